package field_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkcreds/membership/internal/zkp/field"
)

func TestNewRejectsUnsupportedCurve(t *testing.T) {
	_, err := field.New("bls12-381")
	require.Error(t, err)
}

func TestStrToFieldDeterministic(t *testing.T) {
	h, err := field.New("bn254")
	require.NoError(t, err)

	a := h.StrToField("alice@acme.example")
	b := h.StrToField("alice@acme.example")
	require.Equal(t, 0, a.Cmp(b))

	c := h.StrToField("bob@acme.example")
	require.NotEqual(t, 0, a.Cmp(c))
}

func TestStrToFieldWithinModulus(t *testing.T) {
	h, err := field.New("bn254")
	require.NoError(t, err)

	x := h.StrToField("some-long-credential-value-used-for-testing")
	require.Equal(t, -1, x.Cmp(h.Modulus()))
	require.GreaterOrEqual(t, x.Sign(), 0)
}

func TestHashPairDeterministicAndOrderSensitive(t *testing.T) {
	h, err := field.New("bn254")
	require.NoError(t, err)

	a := big.NewInt(1)
	b := big.NewInt(2)

	h1 := h.HashPair(a, b)
	h2 := h.HashPair(a, b)
	require.Equal(t, 0, h1.Cmp(h2))

	h3 := h.HashPair(b, a)
	require.NotEqual(t, 0, h1.Cmp(h3))
}

func TestHashOneMatchesArityOneHashN(t *testing.T) {
	h, err := field.New("bn254")
	require.NoError(t, err)

	x := big.NewInt(42)
	require.Equal(t, 0, h.HashOne(x).Cmp(h.HashN([]*big.Int{x})))
}

func TestReduceFoldsIntoRange(t *testing.T) {
	h, err := field.New("bn254")
	require.NoError(t, err)

	over := new(big.Int).Add(h.Modulus(), big.NewInt(7))
	reduced := h.Reduce(over)
	require.Equal(t, 0, reduced.Cmp(big.NewInt(7)))
}
