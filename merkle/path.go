package merkle

import (
	"fmt"
	"slices"

	"github.com/vocdoni/acpoll/crypto/hash/poseidon"
	"github.com/vocdoni/acpoll/types"
)

// ComputeRootFromPath walks an inclusion path from leaf up to the root of a
// tree of the given arity and depth. path[l] holds the arity-1 siblings of
// the node at level l, in slot order with the node itself removed.
func ComputeRootFromPath(arity uint32, depth uint8, index uint32, leaf types.HashBytes, path [][]types.HashBytes) (types.HashBytes, error) {
	if len(path) != int(depth) {
		return types.HashBytes{}, fmt.Errorf("%w: %d levels for depth %d", ErrMalformedPath, len(path), depth)
	}
	if capacity, ok := types.Pow(arity, depth); ok && index >= capacity {
		return types.HashBytes{}, fmt.Errorf("%w: index %d out of range", ErrMalformedPath, index)
	}
	hasher, err := poseidon.New(int(arity))
	if err != nil {
		return types.HashBytes{}, err
	}
	node := leaf
	for l, siblings := range path {
		if uint32(len(siblings)) != arity-1 {
			return types.HashBytes{}, fmt.Errorf("%w: level %d has %d siblings, want %d",
				ErrMalformedPath, l, len(siblings), arity-1)
		}
		position := int(index % arity)
		children := slices.Insert(slices.Clone(siblings), position, node)
		if node, err = hasher.Hash(children...); err != nil {
			return types.HashBytes{}, err
		}
		index /= arity
	}
	return node, nil
}
