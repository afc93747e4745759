// Package field wraps the ZK-friendly Poseidon2 hash used both off-circuit
// (building and walking the Merkle tree) and, via gnark's in-circuit
// permutation of the same name, inside the Groth16 circuit itself. The two
// must agree bit-for-bit or proofs generated against the off-circuit tree
// will never satisfy the circuit's root constraint.
package field

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	poseidon2bn254 "github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
)

// Hasher exposes the Poseidon2 primitives the Merkle engine and the
// credential encoder need. It holds no mutable state past construction and
// may be shared freely across goroutines.
type Hasher struct {
	curve   ecc.ID
	modulus *big.Int
}

// New builds a Hasher bound to curveName. It fails hard if the curve is not
// one gnark-crypto ships Poseidon2 parameters for, since a mismatched
// parameter set silently produces proofs that can never verify.
func New(curveName string) (*Hasher, error) {
	var curve ecc.ID
	switch curveName {
	case "bn254":
		curve = ecc.BN254
	default:
		return nil, fmt.Errorf("field: unsupported curve for poseidon2: %s", curveName)
	}

	return &Hasher{
		curve:   curve,
		modulus: curve.ScalarField(),
	}, nil
}

// Modulus returns the prime p of the underlying scalar field.
func (h *Hasher) Modulus() *big.Int {
	return new(big.Int).Set(h.modulus)
}

// Reduce folds x into [0, p) for the hasher's field.
func (h *Hasher) Reduce(x *big.Int) *big.Int {
	return new(big.Int).Mod(x, h.modulus)
}

// StrToField encodes an arbitrary UTF-8 string into a field element by
// taking SHA-256 of its bytes, interpreting the digest big-endian, and
// reducing modulo p. This is the credential -> leaf-preimage encoding.
func (h *Hasher) StrToField(s string) *big.Int {
	digest := sha256.Sum256([]byte(s))
	x := new(big.Int).SetBytes(digest[:])
	return h.Reduce(x)
}

// HashPair computes Poseidon2(a, b), the two-input compression function
// used for internal Merkle nodes.
func (h *Hasher) HashPair(a, b *big.Int) *big.Int {
	return h.HashN([]*big.Int{a, b})
}

// HashN computes the Poseidon2 sponge/Merkle-Damgard hash of an arbitrary
// number of field elements, matching the construction gnark's
// std/hash/poseidon2.New uses in-circuit (hash.NewMerkleDamgardHasher over
// the poseidon2 permutation).
func (h *Hasher) HashN(xs []*big.Int) *big.Int {
	switch h.curve {
	case ecc.BN254:
		hasher := poseidon2bn254.NewMerkleDamgardHasher()
		for _, x := range xs {
			var buf [32]byte
			h.Reduce(x).FillBytes(buf[:])
			_, _ = hasher.Write(buf[:])
		}
		digest := hasher.Sum(nil)
		return h.Reduce(new(big.Int).SetBytes(digest))
	default:
		panic(fmt.Sprintf("field: no poseidon2 implementation wired for curve %s", h.curve))
	}
}

// HashOne applies the arity-1 Poseidon2 pass used to turn a pre-Poseidon
// leaf value into the signal the Merkle tree and the membership circuit
// actually fold into their sorted-pair hashing (see internal/merkle and
// internal/zkp/circuits' package docs for why the raw leaf isn't used
// directly).
func (h *Hasher) HashOne(x *big.Int) *big.Int {
	return h.HashN([]*big.Int{x})
}
