package verifier_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zkcreds/membership/internal/apperrors"
	"github.com/zkcreds/membership/internal/common/logger"
	"github.com/zkcreds/membership/internal/credential"
	"github.com/zkcreds/membership/internal/proof"
	"github.com/zkcreds/membership/internal/trustroot"
	"github.com/zkcreds/membership/internal/zkp/circuitmanager"
	"github.com/zkcreds/membership/internal/zkp/field"
	"github.com/zkcreds/membership/internal/zkp/prover"
	"github.com/zkcreds/membership/internal/zkp/verifier"
)

type harness struct {
	manager  *credential.Manager
	prover   *prover.Groth16Prover
	registry *trustroot.Registry
	verifier *verifier.Verifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	hasher, err := field.New("bn254")
	require.NoError(t, err)

	manager := credential.NewManager(hasher, 0, logger.Nop())
	circuitManager, err := circuitmanager.NewForTesting("bn254")
	require.NoError(t, err)

	registry := trustroot.New()

	return &harness{
		manager:  manager,
		prover:   prover.New(circuitManager, hasher, "membership-v1", time.Hour, logger.Nop()),
		registry: registry,
		verifier: verifier.New(circuitManager, registry),
	}
}

func (h *harness) proveAndTrust(t *testing.T, credentials []string, member string) (*credential.Set, *proof.Proof) {
	t.Helper()

	set, err := h.manager.Create("set", credentials, credential.CreateOptions{})
	require.NoError(t, err)

	witness, err := h.manager.GenerateWitness(set.ID, member)
	require.NoError(t, err)

	p, err := h.prover.Generate(context.Background(), set.ID, witness, member)
	require.NoError(t, err)

	require.NoError(t, h.registry.Add(set.ID, set.Root, nil, nil))
	return set, p
}

func TestVerifyAcceptsValidTrustedProof(t *testing.T) {
	h := newHarness(t)
	_, p := h.proveAndTrust(t, []string{"alice", "bob", "carol"}, "bob")

	result := h.verifier.Verify(p)
	require.True(t, result.Valid)
	require.Empty(t, result.Errors)
}

func TestVerifyRejectsUntrustedRoot(t *testing.T) {
	h := newHarness(t)
	set, err := h.manager.Create("set", []string{"alice", "bob"}, credential.CreateOptions{})
	require.NoError(t, err)

	witness, err := h.manager.GenerateWitness(set.ID, "alice")
	require.NoError(t, err)

	p, err := h.prover.Generate(context.Background(), set.ID, witness, "alice")
	require.NoError(t, err)
	// Deliberately never pinning set.Root as trusted.

	result := h.verifier.Verify(p)
	require.False(t, result.Valid)
	require.Contains(t, result.Errors, apperrors.KindUntrustedRoot)
}

func TestVerifyRejectsExpiredProof(t *testing.T) {
	h := newHarness(t)
	_, p := h.proveAndTrust(t, []string{"alice", "bob"}, "alice")

	// Backdate the whole validity window: expiresAt stays after timestamp,
	// so the structural stage passes and the temporal stage must reject.
	p.Metadata.Timestamp = time.Now().Add(-2 * time.Hour)
	p.Metadata.ExpiresAt = time.Now().Add(-time.Hour)

	result := h.verifier.Verify(p)
	require.False(t, result.Valid)
	require.Contains(t, result.Errors, apperrors.KindProofExpired)
}

func TestVerifyRejectsStructurallyInvalidProof(t *testing.T) {
	h := newHarness(t)
	_, p := h.proveAndTrust(t, []string{"alice"}, "alice")

	p.Metadata.ProofID = ""

	result := h.verifier.Verify(p)
	require.False(t, result.Valid)
	require.Contains(t, result.Errors, apperrors.KindInvalidProofStructure)
}

func TestVerifyRejectsCrossSetRootSwap(t *testing.T) {
	h := newHarness(t)
	_, p1 := h.proveAndTrust(t, []string{"alice", "bob"}, "alice")
	set2, _ := h.proveAndTrust(t, []string{"carol", "dave"}, "carol")

	// Swap in a different (also trusted) set's root and id -- the proof's
	// cryptographic binding to its own root must still reject this.
	p1.Metadata.CredentialSetID = set2.ID
	p1.Metadata.MerkleRoot = set2.Root
	p1.PublicSignals = []string{p1.PublicSignals[0]} // keep the original, now-mismatched signal

	result := h.verifier.Verify(p1)
	require.False(t, result.Valid)
}

func TestVerifyRejectsTamperedProofData(t *testing.T) {
	h := newHarness(t)
	_, p := h.proveAndTrust(t, []string{"alice", "bob"}, "bob")

	tampered := make([]byte, len(p.ProofData))
	copy(tampered, p.ProofData)
	tampered[0] ^= 0xFF
	p.ProofData = tampered

	result := h.verifier.Verify(p)
	require.False(t, result.Valid)
	require.Contains(t, result.Errors, apperrors.KindProofVerificationFailed)
}

func TestVerifySerializeDeserializeRoundTripStillVerifies(t *testing.T) {
	h := newHarness(t)
	_, p := h.proveAndTrust(t, []string{"alice", "bob", "carol"}, "carol")

	wire, err := proof.Serialize(p)
	require.NoError(t, err)

	decoded, err := proof.Deserialize(wire)
	require.NoError(t, err)

	result := h.verifier.Verify(decoded)
	require.True(t, result.Valid)
}
