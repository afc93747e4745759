// Package proof defines the wire representation of a membership proof and
// its canonical JSON codec.
package proof

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/zkcreds/membership/internal/apperrors"
)

// wireVersion is stamped into every proof this core mints.
const wireVersion = "1.0.0"

// timeLayout is millisecond-precision UTC ISO-8601, per the wire spec.
const timeLayout = "2006-01-02T15:04:05.000Z"

// Metadata carries everything about a proof besides the cryptographic
// material itself.
type Metadata struct {
	ProofID         string    `json:"proofId"`
	CredentialSetID string    `json:"credentialSetId"`
	MerkleRoot      string    `json:"merkleRoot"`
	Timestamp       time.Time `json:"timestamp"`
	ExpiresAt       time.Time `json:"expiresAt"`
	Version         string    `json:"version"`
	CircuitID       string    `json:"circuitId"`
}

// Proof is a complete membership proof: the opaque Groth16 proof object
// (hex-encoded), its public signals (decimal-string field elements), and
// metadata. The only public signal is the circuit's computed root.
type Proof struct {
	ProofData     []byte
	PublicSignals []string
	Metadata      Metadata
}

// wireMetadata mirrors Metadata but with wire-formatted timestamps, for
// (de)serialization only.
type wireMetadata struct {
	ProofID         string `json:"proofId"`
	CredentialSetID string `json:"credentialSetId"`
	MerkleRoot      string `json:"merkleRoot"`
	Timestamp       string `json:"timestamp"`
	ExpiresAt       string `json:"expiresAt"`
	Version         string `json:"version"`
	CircuitID       string `json:"circuitId"`
}

type wireProof struct {
	Proof         string       `json:"proof"`
	PublicSignals []string     `json:"publicSignals"`
	Metadata      wireMetadata `json:"metadata"`
}

// Serialize produces the canonical JSON wire form, with timestamps
// rendered as millisecond-precision UTC ISO-8601.
func Serialize(p *Proof) ([]byte, error) {
	w := wireProof{
		Proof:         hex.EncodeToString(p.ProofData),
		PublicSignals: p.PublicSignals,
		Metadata: wireMetadata{
			ProofID:         p.Metadata.ProofID,
			CredentialSetID: p.Metadata.CredentialSetID,
			MerkleRoot:      p.Metadata.MerkleRoot,
			Timestamp:       p.Metadata.Timestamp.UTC().Format(timeLayout),
			ExpiresAt:       p.Metadata.ExpiresAt.UTC().Format(timeLayout),
			Version:         p.Metadata.Version,
			CircuitID:       p.Metadata.CircuitID,
		},
	}

	out, err := json.Marshal(w)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to marshal proof", err)
	}
	return out, nil
}

// Deserialize reconstructs a Proof from its canonical wire form, parsing
// timestamps strictly. Any structural failure is reported as
// INVALID_PROOF_STRUCTURE, never as a raw JSON error.
func Deserialize(data []byte) (*Proof, error) {
	var w wireProof
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidProofStructure, "malformed proof json", err)
	}

	proofBytes, err := hex.DecodeString(w.Proof)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidProofStructure, "proof field is not valid hex", err)
	}

	timestamp, err := time.Parse(timeLayout, w.Metadata.Timestamp)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidProofStructure, "metadata.timestamp is not valid ISO-8601", err)
	}
	expiresAt, err := time.Parse(timeLayout, w.Metadata.ExpiresAt)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidProofStructure, "metadata.expiresAt is not valid ISO-8601", err)
	}

	p := &Proof{
		ProofData:     proofBytes,
		PublicSignals: w.PublicSignals,
		Metadata: Metadata{
			ProofID:         w.Metadata.ProofID,
			CredentialSetID: w.Metadata.CredentialSetID,
			MerkleRoot:      w.Metadata.MerkleRoot,
			Timestamp:       timestamp,
			ExpiresAt:       expiresAt,
			Version:         w.Metadata.Version,
			CircuitID:       w.Metadata.CircuitID,
		},
	}

	if err := validateStructure(p); err != nil {
		return nil, err
	}

	return p, nil
}

// Validate reports whether x parses into a structurally sound Proof,
// without ever panicking or returning an error -- callers that only need
// a yes/no answer should use this instead of Deserialize.
func Validate(data []byte) bool {
	_, err := Deserialize(data)
	return err == nil
}

// ValidateDetailed behaves like Validate but returns the reason for a
// negative result, for callers (tests, diagnostics) that need to know
// what was wrong rather than just that something was.
func ValidateDetailed(data []byte) error {
	_, err := Deserialize(data)
	return err
}

func validateStructure(p *Proof) error {
	m := p.Metadata
	if m.ProofID == "" || m.CredentialSetID == "" || m.MerkleRoot == "" || m.Version == "" || m.CircuitID == "" {
		return apperrors.New(apperrors.KindInvalidProofStructure, "metadata is missing required fields")
	}
	if len(m.MerkleRoot) != 64 {
		return apperrors.New(apperrors.KindInvalidProofStructure, "metadata.merkleRoot must be 64 hex characters")
	}
	if len(p.ProofData) == 0 {
		return apperrors.New(apperrors.KindInvalidProofStructure, "proof field must not be empty")
	}
	if len(p.PublicSignals) == 0 {
		return apperrors.New(apperrors.KindInvalidProofStructure, "publicSignals must not be empty")
	}
	if !m.ExpiresAt.After(m.Timestamp) {
		return apperrors.New(apperrors.KindInvalidProofStructure, "metadata.expiresAt must be after metadata.timestamp")
	}
	return nil
}
