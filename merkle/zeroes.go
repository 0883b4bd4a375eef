package merkle

import (
	"fmt"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vocdoni/acpoll/crypto/hash/poseidon"
	"github.com/vocdoni/acpoll/types"
)

// Padding selects the family of empty subtrees used to fill the unused slots
// of a tree when it is merged.
type Padding uint8

const (
	// PaddingNone marks a tree that has not been merged yet.
	PaddingNone Padding = iota
	// PaddingZero fills empty slots with the zero leaf. Used by the
	// interaction accumulator.
	PaddingZero
	// PaddingBlankRegistration fills empty slots with the leaf of a blank
	// registration, Poseidon(0, 0, 1, 0). Used by the registration
	// accumulator.
	PaddingBlankRegistration
)

func (p Padding) String() string {
	switch p {
	case PaddingNone:
		return "none"
	case PaddingZero:
		return "zero"
	case PaddingBlankRegistration:
		return "blank-registration"
	default:
		return "unknown"
	}
}

type zeroKey struct {
	arity uint32
	leaf  types.HashBytes
}

var (
	zeroCache     *lru.Cache[zeroKey, []types.HashBytes]
	zeroCacheOnce sync.Once
)

func zeroes() *lru.Cache[zeroKey, []types.HashBytes] {
	zeroCacheOnce.Do(func() {
		var err error
		if zeroCache, err = lru.New[zeroKey, []types.HashBytes](64); err != nil {
			panic(fmt.Sprintf("zero subtree cache: %v", err))
		}
	})
	return zeroCache
}

// PaddingLeaf returns the level 0 value of the padding family.
func PaddingLeaf(p Padding) (types.HashBytes, error) {
	switch p {
	case PaddingZero:
		return types.HashBytes{}, nil
	case PaddingBlankRegistration:
		return poseidon.Hash(
			types.HashBytes{},
			types.HashBytes{},
			types.HashBytesFromUint64(1),
			types.HashBytesFromUint64(0),
		)
	default:
		return types.HashBytes{}, fmt.Errorf("%w: no leaf for padding %s", ErrInvalidParameters, p)
	}
}

// ZeroRoots returns the roots of the empty subtrees of every height from 0 to
// depth, where level 0 is leaf and level l+1 hashes arity copies of level l.
// Results are cached and the returned slice is a copy.
func ZeroRoots(arity uint32, depth uint8, leaf types.HashBytes) ([]types.HashBytes, error) {
	key := zeroKey{arity: arity, leaf: leaf}
	cache := zeroes()
	if cached, ok := cache.Get(key); ok && len(cached) > int(depth) {
		return slices.Clone(cached[:depth+1]), nil
	}
	hasher, err := poseidon.New(int(arity))
	if err != nil {
		return nil, err
	}
	roots := make([]types.HashBytes, depth+1)
	roots[0] = leaf
	children := make([]types.HashBytes, arity)
	for l := 1; l <= int(depth); l++ {
		for i := range children {
			children[i] = roots[l-1]
		}
		if roots[l], err = hasher.Hash(children...); err != nil {
			return nil, err
		}
	}
	cache.Add(key, roots)
	return slices.Clone(roots), nil
}

// ZeroRoot returns the root of an empty subtree of the given height for the
// padding family.
func ZeroRoot(arity uint32, level uint8, p Padding) (types.HashBytes, error) {
	leaf, err := PaddingLeaf(p)
	if err != nil {
		return types.HashBytes{}, err
	}
	roots, err := ZeroRoots(arity, level, leaf)
	if err != nil {
		return types.HashBytes{}, err
	}
	return roots[level], nil
}

// EmptyBallotRoot returns the root of a quinary ballot tree of height
// stateDepth where every ballot is blank. A blank ballot is
// Poseidon(nonce=0, voteOptionRoot) with an all-zero vote option tree of
// height voteOptionDepth. Polls pass their registration depth as stateDepth,
// which assumes the process circuit's ballot tree is as deep as the
// registration tree.
// TODO: add a known-answer test against the empty ballot roots emitted by the
// circuit build once its constants are published with the circuits.
func EmptyBallotRoot(stateDepth, voteOptionDepth uint8) (types.HashBytes, error) {
	voteOptionRoot, err := ZeroRoot(types.VoteOptionTreeArity, voteOptionDepth, PaddingZero)
	if err != nil {
		return types.HashBytes{}, err
	}
	blankBallot, err := poseidon.Hash(types.HashBytes{}, voteOptionRoot)
	if err != nil {
		return types.HashBytes{}, err
	}
	roots, err := ZeroRoots(types.VoteOptionTreeArity, stateDepth, blankBallot)
	if err != nil {
		return types.HashBytes{}, err
	}
	return roots[stateDepth], nil
}
