// Package merkle builds and walks a fixed-arity-2, sorted-pair Poseidon
// Merkle tree over field elements.
//
// Leaf hashing. A Witness's Leaf field is the pre-Poseidon,
// SHA-256-reduced value field.Hasher.StrToField produces for a
// credential string -- callers compare against this directly. Internally,
// though, the tree folds field.Hasher.HashOne(leaf) into the sorted-pair
// hash, not the raw leaf: this arity-1 Poseidon pass is what the
// in-circuit fold applies to its Credential input too (see
// internal/zkp/circuits), so a witness's root only ever matches the
// circuit's root when both sides apply that same pass. Verify does this
// automatically; nothing else in this package's public surface needs to
// know about it.
//
// Node ordering. Internal nodes hash as Poseidon2(min(a,b), max(a,b)),
// ordered by numeric magnitude rather than tree position. This makes
// off-chain verification order-independent: Verify never needs to know
// which side of a pair a sibling occupied, only its value. PathIndices
// and Sibling.Position are still recorded on every Witness as advisory
// path metadata, but neither Verify nor the in-circuit fold
// (internal/zkp/circuits.MembershipCircuit) consumes them to pick a hash
// order -- both independently sort each pair before hashing it.
//
// Odd-node promotion. When a layer has an odd number of nodes, the last
// node has no distinct partner this round. This tree promotes it by
// hashing it with itself (Poseidon2(node, node), which is invariant to
// left/right ordering since both operands are equal) rather than
// carrying its raw value forward unchanged -- this keeps every layer a
// genuine hashing round, so witness extraction never needs a "skip this
// level" case for off-chain verification. Circuit-side, a promoted node
// still corresponds to a real sibling entry (itself), never a zero pad.
package merkle

import (
	"fmt"
	"math/big"

	"github.com/zkcreds/membership/internal/zkp/field"
)

// Position records which side of the pair a sibling occupied: PositionRight
// means the running hash was the left operand and the sibling the right,
// PositionLeft the reverse. It is advisory path metadata only -- since
// nodes hash by sorted magnitude, neither Verify nor the circuit needs it
// to reproduce the correct hash order.
type Position string

const (
	PositionLeft  Position = "left"
	PositionRight Position = "right"
)

// Sibling is one step of an inclusion path.
type Sibling struct {
	Hash     *big.Int
	Position Position
}

// Witness is a compact (unpadded) inclusion proof: one Sibling per real
// tree layer walked, from the leaf up to the root.
type Witness struct {
	Leaf        *big.Int
	LeafIndex   int
	Root        *big.Int
	Siblings    []Sibling
	PathIndices []int
}

// Tree is an in-memory, compact Poseidon Merkle tree. It stores every
// layer so witnesses can be extracted in O(depth) without recomputation.
type Tree struct {
	hasher    *field.Hasher
	rawLeaves []*big.Int   // pre-Poseidon leaf values, index-aligned with layers[0]
	layers    [][]*big.Int // layers[0] = HashOne(rawLeaves), layers[len-1] = [root]
}

// New builds a tree over leaves in the given order. The leaf list must be
// non-empty; construction is O(n) and deterministic.
func New(hasher *field.Hasher, leaves []*big.Int) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, fmt.Errorf("merkle: cannot build a tree over zero leaves")
	}

	raw := make([]*big.Int, len(leaves))
	layer := make([]*big.Int, len(leaves))
	for i, l := range leaves {
		raw[i] = hasher.Reduce(l)
		layer[i] = hasher.HashOne(raw[i])
	}

	layers := [][]*big.Int{layer}
	for len(layer) > 1 {
		next := make([]*big.Int, 0, (len(layer)+1)/2)
		for i := 0; i+1 < len(layer); i += 2 {
			next = append(next, sortedHash(hasher, layer[i], layer[i+1]))
		}
		if len(layer)%2 == 1 {
			last := layer[len(layer)-1]
			next = append(next, sortedHash(hasher, last, last))
		}
		layers = append(layers, next)
		layer = next
	}

	return &Tree{hasher: hasher, rawLeaves: raw, layers: layers}, nil
}

// Root returns the tree's Merkle root.
func (t *Tree) Root() *big.Int {
	top := t.layers[len(t.layers)-1]
	return new(big.Int).Set(top[0])
}

// Depth is the number of real hashing layers in the compact tree,
// ceil(log2(n)).
func (t *Tree) Depth() int {
	return len(t.layers) - 1
}

// NumLeaves returns the number of leaves the tree was built over.
func (t *Tree) NumLeaves() int {
	return len(t.layers[0])
}

// Witness extracts the compact inclusion path for leaf index i.
func (t *Tree) Witness(index int) (*Witness, error) {
	if index < 0 || index >= len(t.layers[0]) {
		return nil, fmt.Errorf("merkle: leaf index %d out of range [0,%d)", index, len(t.layers[0]))
	}

	leaf := new(big.Int).Set(t.rawLeaves[index])
	w := &Witness{
		Leaf:      leaf,
		LeafIndex: index,
		Root:      t.Root(),
	}

	i := index
	for level := 0; level < len(t.layers)-1; level++ {
		layer := t.layers[level]
		var siblingVal *big.Int
		if i%2 == 0 {
			if i+1 < len(layer) {
				siblingVal = layer[i+1]
			} else {
				// odd node out this round: promoted by self-hash, so its
				// own value is its sibling.
				siblingVal = layer[i]
			}
			w.Siblings = append(w.Siblings, Sibling{Hash: new(big.Int).Set(siblingVal), Position: PositionRight})
			w.PathIndices = append(w.PathIndices, 0)
		} else {
			siblingVal = layer[i-1]
			w.Siblings = append(w.Siblings, Sibling{Hash: new(big.Int).Set(siblingVal), Position: PositionLeft})
			w.PathIndices = append(w.PathIndices, 1)
		}
		i = i / 2
	}

	return w, nil
}

// PadTo returns a copy of w extended with zero siblings (position=right,
// pathIndices=0) up to depth, the shape the circuit expects. It is a
// no-op if w already has at least depth siblings. This padded shape is
// never used for off-chain Verify -- only the compact witness is, since
// the circuit alone knows to treat a zero sibling as a no-op step (see
// internal/zkp/circuits).
func (w *Witness) PadTo(depth int) *Witness {
	if len(w.Siblings) >= depth {
		return w
	}

	padded := &Witness{
		Leaf:        w.Leaf,
		LeafIndex:   w.LeafIndex,
		Root:        w.Root,
		Siblings:    make([]Sibling, len(w.Siblings), depth),
		PathIndices: make([]int, len(w.PathIndices), depth),
	}
	copy(padded.Siblings, w.Siblings)
	copy(padded.PathIndices, w.PathIndices)

	for len(padded.Siblings) < depth {
		padded.Siblings = append(padded.Siblings, Sibling{Hash: big.NewInt(0), Position: PositionRight})
		padded.PathIndices = append(padded.PathIndices, 0)
	}
	return padded
}

// Verify recomputes the root from a compact witness and reports whether
// it matches w.Root. It never mutates w and never leaks *why* a witness
// failed -- only the caller decides how to report that.
func Verify(hasher *field.Hasher, w *Witness) bool {
	if w == nil || w.Leaf == nil || w.Root == nil {
		return false
	}
	if len(w.Siblings) != len(w.PathIndices) {
		return false
	}

	h := hasher.HashOne(hasher.Reduce(w.Leaf))
	for _, s := range w.Siblings {
		sib := hasher.Reduce(s.Hash)
		h = sortedHash(hasher, h, sib)
	}

	return h.Cmp(hasher.Reduce(w.Root)) == 0
}

// sortedHash hashes a and b as Poseidon2(min(a,b), max(a,b)), the
// order-independent pairing every internal node uses. big.Int.Cmp
// operates on the pre-hash values directly; ties (a == b, as in
// self-hash promotion) hash either way with identical results.
func sortedHash(hasher *field.Hasher, a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return hasher.HashPair(a, b)
	}
	return hasher.HashPair(b, a)
}
