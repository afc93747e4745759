// Package nullifier provides an optional, non-circuit-bound proof-reuse
// guard: an application layer that wants to prevent the same credential
// from generating multiple accepted proofs can record and check
// nullifiers here. It is never consulted by the verification pipeline
// itself -- nullifier soundness is outside the circuit's guarantees.
package nullifier

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Generate derives a nullifier for credential using secret. If secret is
// nil, a fresh 32-byte random secret is generated and returned alongside
// the nullifier so the caller can persist it for later reuse checks.
func Generate(credential string, secret []byte) (nullifierHex string, usedSecret []byte, err error) {
	if secret == nil {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return "", nil, err
		}
	}

	h := sha256.New()
	h.Write([]byte(credential))
	h.Write(secret)
	digest := h.Sum(nil)

	return hex.EncodeToString(digest), secret, nil
}

// Set is a concurrency-safe used-nullifier tracker.
type Set struct {
	seen sync.Map // string -> struct{}
}

// NewSet returns an empty nullifier set.
func NewSet() *Set {
	return &Set{}
}

// Record marks nullifierHex as used. It reports whether it was already
// present, so callers can reject a replay in one call.
func (s *Set) Record(nullifierHex string) (alreadyUsed bool) {
	_, loaded := s.seen.LoadOrStore(nullifierHex, struct{}{})
	return loaded
}

// Seen reports whether nullifierHex has been recorded, without marking
// it used.
func (s *Set) Seen(nullifierHex string) bool {
	_, ok := s.seen.Load(nullifierHex)
	return ok
}
