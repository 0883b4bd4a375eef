package merkle

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/acpoll/crypto/hash/poseidon"
	"github.com/vocdoni/acpoll/types"
)

// fullTreePath returns the root of a quinary tree over leaves, which must
// fill it exactly, and the inclusion path of leaves[index].
func fullTreePath(c *qt.C, leaves []types.HashBytes, index int) (types.HashBytes, [][]types.HashBytes) {
	const arity = 5
	hasher, err := poseidon.New(arity)
	c.Assert(err, qt.IsNil)
	var path [][]types.HashBytes
	level := leaves
	for len(level) > 1 {
		group := index / arity * arity
		siblings := make([]types.HashBytes, 0, arity-1)
		for i := group; i < group+arity; i++ {
			if i != index {
				siblings = append(siblings, level[i])
			}
		}
		path = append(path, siblings)
		next := make([]types.HashBytes, len(level)/arity)
		for i := range next {
			next[i], err = hasher.Hash(level[i*arity : (i+1)*arity]...)
			c.Assert(err, qt.IsNil)
		}
		level = next
		index /= arity
	}
	return level[0], path
}

func TestComputeRootFromPath(t *testing.T) {
	c := qt.New(t)

	leaves := testLeaves(25)
	for _, index := range []int{0, 3, 4, 5, 12, 24} {
		root, path := fullTreePath(c, leaves, index)
		got, err := ComputeRootFromPath(5, 2, uint32(index), leaves[index], path)
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, root, qt.Commentf("index %d", index))

		// The same path does not prove another leaf.
		got, err = ComputeRootFromPath(5, 2, uint32(index), types.HashBytesFromUint64(1), path)
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Not(qt.Equals), root)
	}
}

func TestComputeRootFromPathMatchesTree(t *testing.T) {
	c := qt.New(t)

	leaves := testLeaves(25)
	tree, err := New(5, 2)
	c.Assert(err, qt.IsNil)
	for _, leaf := range leaves {
		_, err := tree.Insert(leaf)
		c.Assert(err, qt.IsNil)
	}
	root, err := tree.Merge(true)
	c.Assert(err, qt.IsNil)

	_, path := fullTreePath(c, leaves, 17)
	got, err := ComputeRootFromPath(5, 2, 17, leaves[17], path)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, root)
}

func TestComputeRootFromPathMalformed(t *testing.T) {
	c := qt.New(t)

	leaves := testLeaves(25)
	_, path := fullTreePath(c, leaves, 2)

	_, err := ComputeRootFromPath(5, 3, 2, leaves[2], path)
	c.Assert(err, qt.ErrorIs, ErrMalformedPath)

	_, err = ComputeRootFromPath(5, 2, 25, leaves[2], path)
	c.Assert(err, qt.ErrorIs, ErrMalformedPath)

	short := [][]types.HashBytes{path[0], path[1][:3]}
	_, err = ComputeRootFromPath(5, 2, 2, leaves[2], short)
	c.Assert(err, qt.ErrorIs, ErrMalformedPath)
}
