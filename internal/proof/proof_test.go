package proof_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zkcreds/membership/internal/apperrors"
	"github.com/zkcreds/membership/internal/proof"
)

func sampleProof() *proof.Proof {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &proof.Proof{
		ProofData:     []byte{0x01, 0x02, 0x03, 0x04},
		PublicSignals: []string{"12345678901234567890"},
		Metadata: proof.Metadata{
			ProofID:         "b3b1e6f0-6e2a-4d9d-9b9b-2f6d6f6a6b6c",
			CredentialSetID: "d1d1e6f0-6e2a-4d9d-9b9b-2f6d6f6a6b6d",
			MerkleRoot:      "ab000000000000000000000000000000000000000000000000000000000000cd",
			Timestamp:       now,
			ExpiresAt:       now.Add(time.Hour),
			Version:         "1.0.0",
			CircuitID:       "membership-v1",
		},
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	p := sampleProof()

	wire, err := proof.Serialize(p)
	require.NoError(t, err)

	decoded, err := proof.Deserialize(wire)
	require.NoError(t, err)

	require.Equal(t, p.ProofData, decoded.ProofData)
	require.Equal(t, p.PublicSignals, decoded.PublicSignals)
	require.Equal(t, p.Metadata.ProofID, decoded.Metadata.ProofID)
	require.Equal(t, p.Metadata.MerkleRoot, decoded.Metadata.MerkleRoot)
	require.True(t, p.Metadata.Timestamp.Equal(decoded.Metadata.Timestamp))
	require.True(t, p.Metadata.ExpiresAt.Equal(decoded.Metadata.ExpiresAt))
}

func TestDeserializeRejectsMalformedJSON(t *testing.T) {
	_, err := proof.Deserialize([]byte("not json"))
	require.Error(t, err)
	require.Equal(t, apperrors.KindInvalidProofStructure, apperrors.KindOf(err))
}

func TestDeserializeRejectsInvalidHexProof(t *testing.T) {
	wire, err := proof.Serialize(sampleProof())
	require.NoError(t, err)

	root := "ab000000000000000000000000000000000000000000000000000000000000cd"
	tampered := []byte(`{"proof":"not-hex!!","publicSignals":["1"],"metadata":{"proofId":"x","credentialSetId":"y","merkleRoot":"` + root + `","timestamp":"2026-01-01T00:00:00.000Z","expiresAt":"2026-01-01T01:00:00.000Z","version":"1.0.0","circuitId":"c"}}`)

	_, err = proof.Deserialize(tampered)
	require.Error(t, err)
	require.Equal(t, apperrors.KindInvalidProofStructure, apperrors.KindOf(err))

	// sanity: the original wire form still parses fine.
	_, err = proof.Deserialize(wire)
	require.NoError(t, err)
}

func TestDeserializeRejectsMissingMetadataFields(t *testing.T) {
	p := sampleProof()
	p.Metadata.ProofID = ""
	wire, err := proof.Serialize(p)
	require.NoError(t, err)

	_, err = proof.Deserialize(wire)
	require.Error(t, err)
	require.Equal(t, apperrors.KindInvalidProofStructure, apperrors.KindOf(err))
}

func TestDeserializeRejectsShortMerkleRoot(t *testing.T) {
	p := sampleProof()
	p.Metadata.MerkleRoot = "abcd"
	wire, err := proof.Serialize(p)
	require.NoError(t, err)

	_, err = proof.Deserialize(wire)
	require.Error(t, err)
}

func TestDeserializeRejectsExpiryBeforeTimestamp(t *testing.T) {
	p := sampleProof()
	p.Metadata.ExpiresAt = p.Metadata.Timestamp.Add(-time.Minute)
	wire, err := proof.Serialize(p)
	require.NoError(t, err)

	_, err = proof.Deserialize(wire)
	require.Error(t, err)
}

func TestDeserializeRejectsEmptyProofData(t *testing.T) {
	p := sampleProof()
	p.ProofData = nil
	wire, err := proof.Serialize(p)
	require.NoError(t, err)

	_, err = proof.Deserialize(wire)
	require.Error(t, err)
}

func TestValidateTrueForWellFormedProof(t *testing.T) {
	wire, err := proof.Serialize(sampleProof())
	require.NoError(t, err)
	require.True(t, proof.Validate(wire))
}

func TestValidateFalseForMalformedProof(t *testing.T) {
	require.False(t, proof.Validate([]byte("garbage")))
}

func TestValidateDetailedReturnsUnderlyingError(t *testing.T) {
	err := proof.ValidateDetailed([]byte("garbage"))
	require.Error(t, err)
	require.Equal(t, apperrors.KindInvalidProofStructure, apperrors.KindOf(err))
}
