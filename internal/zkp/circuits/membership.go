// Package circuits defines the Groth16 circuit that proves a credential is
// a member of a Merkle-committed credential set without revealing which
// leaf it is or the sibling values along its path.
package circuits

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash"
	_ "github.com/consensys/gnark/std/hash/poseidon2"
	"github.com/consensys/gnark/std/math/bits"
)

// MerkleDepth is the fixed depth every circuit instance is compiled for.
// Real trees shallower than this are padded with zero siblings, which the
// circuit treats as no-op steps (see the IsZero/Select skip below).
const MerkleDepth = 20

// MembershipCircuit proves knowledge of a credential and an inclusion
// path that hashes up to Root under sorted-pair Poseidon2, without
// revealing the credential, the path, or the leaf index.
//
// Leaf handling. Credential is the pre-Poseidon SHA-256-reduced field
// element the off-chain tree's Witness.Leaf carries (see internal/merkle's
// package doc). The circuit applies one extra arity-1 Poseidon2 pass to
// it before folding it into the path, matching field.Hasher.HashOne --
// the same pass the tree itself applies internally before hashing leaves
// together, so the two roots agree.
//
// Sibling ordering. Internal nodes hash as Poseidon2(min(a,b), max(a,b)),
// ordered by numeric magnitude, matching internal/merkle's off-chain
// construction exactly. Path position never enters into it, so this
// circuit takes no PathIndices input at all -- fullRangeLess decides the
// operand order for every step from the two field values alone.
type MembershipCircuit struct {
	Root frontend.Variable `gnark:",public"`

	Credential frontend.Variable             `gnark:",secret"`
	Siblings   [MerkleDepth]frontend.Variable `gnark:",secret"`
}

// Define implements frontend.Circuit.
func (c *MembershipCircuit) Define(api frontend.API) error {
	h, err := hash.POSEIDON2.New(api)
	if err != nil {
		return err
	}

	h.Reset()
	h.Write(c.Credential)
	current := h.Sum()

	for i := 0; i < MerkleDepth; i++ {
		sibling := c.Siblings[i]
		siblingIsZero := api.IsZero(sibling)

		currentIsSmaller := fullRangeLess(api, current, sibling)
		lo := api.Select(currentIsSmaller, current, sibling)
		hi := api.Select(currentIsSmaller, sibling, current)

		h.Reset()
		h.Write(lo, hi)
		next := h.Sum()

		// A zero sibling marks padding past the tree's real depth: leave
		// the running hash untouched for this step.
		current = api.Select(siblingIsZero, current, next)
	}

	api.AssertIsEqual(current, c.Root)
	return nil
}

// fullRangeLess returns 1 if a < b and 0 otherwise, comparing the two
// field elements over their full bit width rather than a bounded
// difference. std/math/cmp's BoundedComparator only holds when the
// caller can bound |a-b| well below the field's bit length (it panics at
// construction otherwise, see cmp.NewBoundedComparator) -- Poseidon2
// outputs span the whole field, so this circuit instead decomposes both
// operands into bits (LSB-first, per bits.ToBinary) and folds a
// textbook MSB-to-LSB lexicographic comparison: at each bit position,
// a<b if that bit pair is (0,1) and every higher bit pair was equal.
func fullRangeLess(api frontend.API, a, b frontend.Variable) frontend.Variable {
	nbBits := api.Compiler().FieldBitLen()
	aBits := bits.ToBinary(api, a, bits.WithNbDigits(nbBits))
	bBits := bits.ToBinary(api, b, bits.WithNbDigits(nbBits))

	less := frontend.Variable(0)
	stillEqual := frontend.Variable(1)
	for i := nbBits - 1; i >= 0; i-- {
		ab, bb := aBits[i], bBits[i]

		// bitLess = 1 iff ab==0 && bb==1, i.e. b's bit is strictly greater.
		bitLess := api.Mul(api.Sub(1, ab), bb)
		// bitEqual = 1 iff ab==bb.
		bitEqual := api.Sub(1, api.Xor(ab, bb))

		less = api.Add(less, api.Mul(stillEqual, bitLess))
		stillEqual = api.Mul(stillEqual, bitEqual)
	}
	return less
}
