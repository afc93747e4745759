// Package credential owns named credential sets: it validates and stores
// credential lists, builds their Poseidon Merkle commitment, and produces
// inclusion witnesses on demand. It is the in-memory, authoritative store
// for the lifetime of the process -- there is no persistence layer here by
// design (see spec Non-goals).
package credential

import (
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zkcreds/membership/internal/apperrors"
	"github.com/zkcreds/membership/internal/merkle"
	"github.com/zkcreds/membership/internal/zkp/field"
)

// SetType tags the domain a credential set belongs to. It is data, not
// behavior -- every set type is built and verified identically.
type SetType string

const (
	SetTypeUniversities   SetType = "universities"
	SetTypeCompanies      SetType = "companies"
	SetTypeCertifications SetType = "certifications"
	SetTypeCustom         SetType = "custom"
)

const wireVersion = "1.0.0"

// MaxCredentialLength is the maximum trimmed length, in bytes, of a
// single credential string.
const MaxCredentialLength = 256

// Set is an immutable-after-creation named collection of credentials and
// its derived Merkle commitment.
type Set struct {
	ID          string
	Name        string
	Description string
	Type        SetType
	Credentials []string
	Root        string // 64 lowercase hex nibbles
	CreatedAt   time.Time
	Version     string

	tree    *merkle.Tree
	indexOf map[string]int
}

// copy returns a value safe to hand to callers without exposing the
// manager's internal tree/index state or letting them mutate the
// canonical credential slice.
func (s *Set) copy() *Set {
	creds := make([]string, len(s.Credentials))
	copy(creds, s.Credentials)
	return &Set{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Type:        s.Type,
		Credentials: creds,
		Root:        s.Root,
		CreatedAt:   s.CreatedAt,
		Version:     s.Version,
	}
}

// Manager owns every credential set for the process lifetime. Mutators
// (Create/Delete) exclude readers; readers (Get/List/GenerateWitness/
// VerifyWitness) may proceed concurrently, mirroring the reader/writer
// discipline of a registry sized for a read:write ratio far above 100:1.
type Manager struct {
	mu   sync.RWMutex
	sets map[string]*Set

	hasher         *field.Hasher
	logger         *zap.Logger
	maxCredentials int
}

// NewManager builds an empty set catalogue bound to hasher for Merkle
// construction. maxCredentials bounds the size of any one set (default
// 1024, per configuration).
func NewManager(hasher *field.Hasher, maxCredentials int, logger *zap.Logger) *Manager {
	if maxCredentials <= 0 {
		maxCredentials = 1024
	}
	return &Manager{
		sets:           make(map[string]*Set),
		hasher:         hasher,
		logger:         logger,
		maxCredentials: maxCredentials,
	}
}

// CreateOptions carries the optional fields of a create request.
type CreateOptions struct {
	Description string
	Type        SetType
}

// Create validates credentials, builds the Merkle tree, and stores a new
// set under a fresh UUIDv4. The stored credential slice is never handed
// out for mutation.
func (m *Manager) Create(name string, credentials []string, opts CreateOptions) (*Set, error) {
	cleaned, err := m.validateCredentials(credentials)
	if err != nil {
		return nil, err
	}

	setType := opts.Type
	if setType == "" {
		setType = SetTypeCustom
	}

	tree, indexOf, err := m.buildTree(cleaned)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to build credential tree", err)
	}

	s := &Set{
		ID:          uuid.New().String(),
		Name:        name,
		Description: opts.Description,
		Type:        setType,
		Credentials: cleaned,
		Root:        hexRoot(tree.Root()),
		CreatedAt:   time.Now().UTC(),
		Version:     wireVersion,
		tree:        tree,
		indexOf:     indexOf,
	}

	m.mu.Lock()
	m.sets[s.ID] = s
	m.mu.Unlock()

	m.logger.Info("credential set created",
		zap.String("set_id", s.ID),
		zap.String("name", s.Name),
		zap.Int("credential_count", len(s.Credentials)),
		zap.String("merkle_root", s.Root),
	)

	return s.copy(), nil
}

// Restore rebuilds a set's tree/root from a previously-recorded
// description without minting a new ID -- for a host process that
// persists set descriptions externally and needs the core to recompute
// the commitment deterministically after a restart. The core itself
// still persists nothing.
func (m *Manager) Restore(id, name string, credentials []string, description string, setType SetType) (*Set, error) {
	cleaned, err := m.validateCredentials(credentials)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.New(apperrors.KindValidationError, "id must be a valid UUID")
	}
	if setType == "" {
		setType = SetTypeCustom
	}

	tree, indexOf, err := m.buildTree(cleaned)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to rebuild credential tree", err)
	}

	s := &Set{
		ID:          id,
		Name:        name,
		Description: description,
		Type:        setType,
		Credentials: cleaned,
		Root:        hexRoot(tree.Root()),
		CreatedAt:   time.Now().UTC(),
		Version:     wireVersion,
		tree:        tree,
		indexOf:     indexOf,
	}

	m.mu.Lock()
	m.sets[s.ID] = s
	m.mu.Unlock()

	return s.copy(), nil
}

// Get returns a copy of the set with the given id.
func (m *Manager) Get(id string) (*Set, error) {
	m.mu.RLock()
	s, ok := m.sets[id]
	m.mu.RUnlock()

	if !ok {
		return nil, apperrors.New(apperrors.KindCredentialSetNotFound, "credential set not found")
	}
	return s.copy(), nil
}

// List returns copies of every known set.
func (m *Manager) List() []*Set {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Set, 0, len(m.sets))
	for _, s := range m.sets {
		out = append(out, s.copy())
	}
	return out
}

// Delete removes a set entirely.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sets[id]; !ok {
		return apperrors.New(apperrors.KindCredentialSetNotFound, "credential set not found")
	}
	delete(m.sets, id)
	return nil
}

// Count returns the number of known sets.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sets)
}

// GenerateWitness produces an inclusion witness for credential within
// setID. Per spec, an absent credential reports a generic
// "invalid credential" that does not distinguish "wrong credential" from
// "credential exists in a different set" -- only an absent *set* gets its
// own distinguishable error code.
func (m *Manager) GenerateWitness(setID, credential string) (*merkle.Witness, error) {
	m.mu.RLock()
	s, ok := m.sets[setID]
	m.mu.RUnlock()

	if !ok {
		return nil, apperrors.New(apperrors.KindCredentialSetNotFound, "credential set not found")
	}

	idx, ok := s.indexOf[credential]
	if !ok {
		return nil, apperrors.New(apperrors.KindCredentialNotFound, "invalid credential")
	}

	w, err := s.tree.Witness(idx)
	if err != nil {
		// The index came from our own map, so this can only be a broken
		// invariant, never a caller mistake.
		return nil, apperrors.Internal(err)
	}
	return w, nil
}

// VerifyWitness checks a witness against setID's stored root, first by
// structural equality of the root and then by recomputing the path.
func (m *Manager) VerifyWitness(setID string, w *merkle.Witness) (bool, error) {
	m.mu.RLock()
	s, ok := m.sets[setID]
	m.mu.RUnlock()

	if !ok {
		return false, apperrors.New(apperrors.KindCredentialSetNotFound, "credential set not found")
	}
	if w == nil || w.Root == nil {
		return false, nil
	}
	if hexRoot(w.Root) != s.Root {
		return false, nil
	}
	return merkle.Verify(m.hasher, w), nil
}

func (m *Manager) buildTree(credentials []string) (*merkle.Tree, map[string]int, error) {
	leaves := make([]*big.Int, len(credentials))
	indexOf := make(map[string]int, len(credentials))
	for i, c := range credentials {
		leaves[i] = m.hasher.StrToField(c)
		indexOf[c] = i
	}

	tree, err := merkle.New(m.hasher, leaves)
	if err != nil {
		return nil, nil, err
	}
	return tree, indexOf, nil
}

func (m *Manager) validateCredentials(credentials []string) ([]string, error) {
	if len(credentials) == 0 {
		return nil, apperrors.New(apperrors.KindValidationError, "credentials must not be empty")
	}
	if len(credentials) > m.maxCredentials {
		return nil, apperrors.New(apperrors.KindCredentialLimitExceeded,
			fmt.Sprintf("credential set exceeds maximum of %d", m.maxCredentials))
	}

	seen := make(map[string]bool, len(credentials))
	cleaned := make([]string, 0, len(credentials))
	for _, c := range credentials {
		trimmed := strings.TrimSpace(c)
		if trimmed == "" {
			return nil, apperrors.New(apperrors.KindInvalidCredential, "credential must not be empty")
		}
		if len(trimmed) > MaxCredentialLength {
			return nil, apperrors.New(apperrors.KindInvalidCredential,
				fmt.Sprintf("credential exceeds maximum length of %d bytes", MaxCredentialLength))
		}
		if seen[trimmed] {
			return nil, apperrors.New(apperrors.KindDuplicateCredential,
				fmt.Sprintf("duplicate credential: %q", trimmed))
		}
		seen[trimmed] = true
		cleaned = append(cleaned, trimmed)
	}

	return cleaned, nil
}

func hexRoot(x *big.Int) string {
	return fmt.Sprintf("%064x", x)
}
