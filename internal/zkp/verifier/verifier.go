// Package verifier runs the staged, short-circuiting verification
// pipeline: structural pre-check, temporal check, trust check, and
// finally the cryptographic Groth16 check.
package verifier

import (
	"bytes"
	"math/big"
	"time"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"

	"github.com/zkcreds/membership/internal/apperrors"
	"github.com/zkcreds/membership/internal/proof"
	"github.com/zkcreds/membership/internal/trustroot"
	"github.com/zkcreds/membership/internal/zkp/circuitmanager"
	"github.com/zkcreds/membership/internal/zkp/circuits"
)

// Result is the outcome of running the verification pipeline. It never
// reveals which stage rejected a proof beyond the normative error kind
// recorded in Errors -- side-channel resistance is part of the contract.
type Result struct {
	Valid           bool
	VerifiedAt      time.Time
	CredentialSetID string
	Errors          []apperrors.Kind
	Warnings        []string
}

// Verifier ties the trusted-root registry to the compiled circuit's
// verifying key.
type Verifier struct {
	manager  *circuitmanager.Manager
	registry *trustroot.Registry
}

// New builds a Verifier bound to manager for the verifying key and
// registry for trust decisions.
func New(manager *circuitmanager.Manager, registry *trustroot.Registry) *Verifier {
	return &Verifier{manager: manager, registry: registry}
}

// Verify runs every stage of the pipeline against p, short-circuiting on
// the first failure.
func (v *Verifier) Verify(p *proof.Proof) Result {
	now := time.Now().UTC()

	if err := structuralCheck(p, now); err != nil {
		return reject(p, now, err)
	}

	if !p.Metadata.ExpiresAt.After(now) {
		return reject(p, now, apperrors.New(apperrors.KindProofExpired, "proof has expired"))
	}

	if !v.registry.IsTrusted(p.Metadata.CredentialSetID, p.Metadata.MerkleRoot) {
		return reject(p, now, apperrors.New(apperrors.KindUntrustedRoot, "credential set root is not trusted"))
	}

	if err := v.cryptographicCheck(p); err != nil {
		return reject(p, now, err)
	}

	return Result{
		Valid:           true,
		VerifiedAt:      now,
		CredentialSetID: p.Metadata.CredentialSetID,
	}
}

func structuralCheck(p *proof.Proof, now time.Time) error {
	if p == nil {
		return apperrors.New(apperrors.KindInvalidProofStructure, "proof must not be nil")
	}
	m := p.Metadata
	if m.ProofID == "" || m.CredentialSetID == "" || m.MerkleRoot == "" {
		return apperrors.New(apperrors.KindInvalidProofStructure, "metadata is missing required fields")
	}
	if len(p.ProofData) == 0 || len(p.PublicSignals) == 0 {
		return apperrors.New(apperrors.KindInvalidProofStructure, "proof body is incomplete")
	}
	if m.Timestamp.After(now) {
		return apperrors.New(apperrors.KindInvalidProofStructure, "metadata.timestamp is in the future")
	}
	if !m.ExpiresAt.After(m.Timestamp) {
		return apperrors.New(apperrors.KindInvalidProofStructure, "metadata.expiresAt must be after metadata.timestamp")
	}
	return nil
}

func (v *Verifier) cryptographicCheck(p *proof.Proof) error {
	artifact, err := v.manager.Get()
	if err != nil {
		return err
	}

	groth16Proof := groth16.NewProof(v.manager.Curve())
	if _, err := groth16Proof.ReadFrom(bytes.NewReader(p.ProofData)); err != nil {
		return apperrors.Wrap(apperrors.KindProofVerificationFailed, "failed to decode groth16 proof", err)
	}

	root, err := decimalToBigInt(p.PublicSignals)
	if err != nil {
		return apperrors.Wrap(apperrors.KindProofVerificationFailed, "failed to parse public signals", err)
	}

	// The public signal is the root the proof was made against; it must be
	// the same root the trust stage accepted from the metadata.
	claimed, ok := new(big.Int).SetString(p.Metadata.MerkleRoot, 16)
	if !ok || claimed.Cmp(root) != 0 {
		return apperrors.New(apperrors.KindProofVerificationFailed, "public signal does not match metadata.merkleRoot")
	}

	publicAssignment := &circuits.MembershipCircuit{Root: root}
	publicWitness, err := frontend.NewWitness(publicAssignment, v.manager.Curve().ScalarField(), frontend.PublicOnly())
	if err != nil {
		return apperrors.Wrap(apperrors.KindProofVerificationFailed, "failed to reconstruct public witness", err)
	}

	if err := groth16.Verify(groth16Proof, artifact.VK, publicWitness); err != nil {
		return apperrors.Wrap(apperrors.KindProofVerificationFailed, "groth16 verification failed", err)
	}
	return nil
}

func reject(p *proof.Proof, now time.Time, err error) Result {
	res := Result{
		Valid:      false,
		VerifiedAt: now,
		Errors:     []apperrors.Kind{apperrors.KindOf(err)},
	}
	if p != nil {
		res.CredentialSetID = p.Metadata.CredentialSetID
	}
	return res
}

func decimalToBigInt(signals []string) (*big.Int, error) {
	if len(signals) == 0 {
		return nil, apperrors.New(apperrors.KindProofVerificationFailed, "publicSignals must not be empty")
	}
	v, ok := new(big.Int).SetString(signals[0], 10)
	if !ok {
		return nil, apperrors.New(apperrors.KindProofVerificationFailed, "public signal is not a valid decimal integer")
	}
	return v, nil
}
