// Package prover turns a Merkle inclusion witness into a Groth16
// membership proof, following the compile-once/prove-many split the
// teacher's Groth16Prover established: circuit artifacts are memoized by
// internal/zkp/circuitmanager, and this package only ever runs the (much
// cheaper) per-request Prove step.
package prover

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zkcreds/membership/internal/apperrors"
	"github.com/zkcreds/membership/internal/merkle"
	"github.com/zkcreds/membership/internal/proof"
	"github.com/zkcreds/membership/internal/zkp/circuitmanager"
	"github.com/zkcreds/membership/internal/zkp/circuits"
	"github.com/zkcreds/membership/internal/zkp/field"
)

const wireVersion = "1.0.0"

// Groth16Prover generates membership proofs for witnesses produced by
// internal/credential.Manager.
type Groth16Prover struct {
	manager   *circuitmanager.Manager
	hasher    *field.Hasher
	circuitID string
	proofTTL  time.Duration
	logger    *zap.Logger
}

// New builds a prover bound to manager for circuit artifacts, hasher for
// field encoding, circuitID as the identifier stamped into every proof's
// metadata, and proofTTL as the default expiry window.
func New(manager *circuitmanager.Manager, hasher *field.Hasher, circuitID string, proofTTL time.Duration, logger *zap.Logger) *Groth16Prover {
	return &Groth16Prover{
		manager:   manager,
		hasher:    hasher,
		circuitID: circuitID,
		proofTTL:  proofTTL,
		logger:    logger,
	}
}

// Generate produces a membership proof for credential within setID,
// using witness w extracted from that set's Merkle tree. ctx bounds the
// whole operation: if its deadline passes before the (comparatively
// cheap) circuit-artifact fetch or the (expensive) Groth16 proving step
// starts, Generate returns a PROOF_GENERATION_FAILED error with a
// "timeout" detail instead of running either.
func (p *Groth16Prover) Generate(ctx context.Context, setID string, w *merkle.Witness, credential string) (*proof.Proof, error) {
	if err := p.validate(w, credential); err != nil {
		return nil, err
	}

	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	artifact, err := p.manager.Get()
	if err != nil {
		return nil, err
	}

	credentialField := p.hasher.StrToField(credential)
	if credentialField.Cmp(p.hasher.Reduce(w.Leaf)) != 0 {
		return nil, apperrors.New(apperrors.KindProofGenerationFailed, "credential does not match witness leaf")
	}

	padded := w.PadTo(circuits.MerkleDepth)

	assignment := &circuits.MembershipCircuit{
		Root:       w.Root,
		Credential: credentialField,
	}
	for i, s := range padded.Siblings {
		assignment.Siblings[i] = s.Hash
	}

	fullWitness, err := frontend.NewWitness(assignment, p.manager.Curve().ScalarField())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindProofGenerationFailed, "failed to build witness", err)
	}

	if err := ctxErr(ctx); err != nil {
		return nil, err
	}

	groth16Proof, err := groth16.Prove(artifact.CS, artifact.PK, fullWitness)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindProofGenerationFailed, "groth16 proving failed", err)
	}

	var buf bytes.Buffer
	if _, err := groth16Proof.WriteTo(&buf); err != nil {
		return nil, apperrors.Wrap(apperrors.KindProofGenerationFailed, "failed to serialize proof", err)
	}

	root := p.hasher.Reduce(w.Root)
	now := time.Now().UTC()

	result := &proof.Proof{
		ProofData:     buf.Bytes(),
		PublicSignals: []string{root.String()},
		Metadata: proof.Metadata{
			ProofID:         uuid.New().String(),
			CredentialSetID: setID,
			MerkleRoot:      hexRoot(root),
			Timestamp:       now,
			ExpiresAt:       now.Add(p.proofTTL),
			Version:         wireVersion,
			CircuitID:       p.circuitID,
		},
	}

	p.logger.Info("proof generated",
		zap.String("set_id", setID),
		zap.String("proof_id", result.Metadata.ProofID),
		zap.String("circuit_id", p.circuitID),
	)

	return result, nil
}

func (p *Groth16Prover) validate(w *merkle.Witness, credential string) error {
	if credential == "" {
		return apperrors.New(apperrors.KindProofGenerationFailed, "credential must not be empty")
	}
	if w == nil || w.Leaf == nil || w.Root == nil {
		return apperrors.New(apperrors.KindProofGenerationFailed, "witness is incomplete")
	}
	if len(w.Siblings) > circuits.MerkleDepth {
		return apperrors.New(apperrors.KindProofGenerationFailed,
			fmt.Sprintf("witness depth %d exceeds circuit depth %d", len(w.Siblings), circuits.MerkleDepth))
	}
	return nil
}

func hexRoot(x *big.Int) string {
	return fmt.Sprintf("%064x", x)
}

// ctxErr reports ctx's cancellation as a PROOF_GENERATION_FAILED error
// carrying a "timeout" detail, or nil if ctx is still live.
func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return apperrors.New(apperrors.KindProofGenerationFailed, "proof generation deadline exceeded", "timeout")
	default:
		return nil
	}
}
