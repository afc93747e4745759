package apperrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkcreds/membership/internal/apperrors"
)

func TestNewCarriesKindAndMessage(t *testing.T) {
	err := apperrors.New(apperrors.KindInvalidCredential, "credential must not be empty", "field:credential")
	require.Equal(t, apperrors.KindInvalidCredential, err.Kind)
	require.Contains(t, err.Error(), "INVALID_CREDENTIAL")
	require.Contains(t, err.Error(), "credential must not be empty")
	require.Equal(t, []string{"field:credential"}, err.Details)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("underlying failure")
	err := apperrors.Wrap(apperrors.KindProofGenerationFailed, "generation failed", cause)

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "underlying failure")
}

func TestInternalHidesCauseFromMessage(t *testing.T) {
	cause := fmt.Errorf("panic: nil pointer dereference")
	err := apperrors.Internal(cause)

	require.Equal(t, apperrors.KindInternal, err.Kind)
	require.NotContains(t, err.Message, "nil pointer")
}

func TestIsMatchesOnKindOnly(t *testing.T) {
	err := apperrors.New(apperrors.KindProofExpired, "proof expired at some specific time")
	sentinel := apperrors.New(apperrors.KindProofExpired, "")

	require.True(t, errors.Is(err, sentinel))

	other := apperrors.New(apperrors.KindUntrustedRoot, "")
	require.False(t, errors.Is(err, other))
}

func TestKindOfExtractsWrappedKind(t *testing.T) {
	err := apperrors.Wrap(apperrors.KindCircuitInitializationFailed, "setup failed", fmt.Errorf("boom"))
	wrapped := fmt.Errorf("outer: %w", err)

	require.Equal(t, apperrors.KindCircuitInitializationFailed, apperrors.KindOf(wrapped))
}

func TestKindOfDefaultsToInternalForUnknownErrors(t *testing.T) {
	require.Equal(t, apperrors.KindInternal, apperrors.KindOf(fmt.Errorf("some plain error")))
}

func TestKindOfNilIsEmpty(t *testing.T) {
	require.Equal(t, apperrors.Kind(""), apperrors.KindOf(nil))
}
