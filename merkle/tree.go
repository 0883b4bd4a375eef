// Package merkle implements the append-only accumulator used to collect poll
// registrations and interactions. Leaves are inserted one at a time and the
// tree keeps, for every level, the nodes of the subtree that is still being
// filled, so that an insertion hashes at most depth nodes. The root is only
// computed once, when the tree is merged, by padding the unused slots with
// empty subtrees.
package merkle

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vocdoni/acpoll/crypto/hash/poseidon"
	"github.com/vocdoni/acpoll/log"
	"github.com/vocdoni/acpoll/types"
)

var (
	// ErrCapacityExceeded is returned when inserting into a tree that
	// already holds its maximum number of leaves.
	ErrCapacityExceeded = errors.New("merkle tree capacity exceeded")
	// ErrAlreadyFinalized is returned when inserting into a merged tree.
	ErrAlreadyFinalized = errors.New("merkle tree already finalized")
	// ErrMergeFailed is returned when the root of the tree cannot be
	// computed.
	ErrMergeFailed = errors.New("merkle tree merge failed")
	// ErrMalformedPath is returned when an inclusion path does not match
	// the shape of the tree.
	ErrMalformedPath = errors.New("malformed merkle path")
	// ErrInvalidParameters is returned by New for unusable arity and depth
	// combinations.
	ErrInvalidParameters = errors.New("invalid merkle tree parameters")
	// ErrHashUnavailable is returned when the node hasher fails.
	ErrHashUnavailable = poseidon.ErrHashUnavailable
)

// Tree is an amortized incremental Merkle tree of fixed arity and depth.
// Fields are exported so that the tree can be stored as part of a poll.
type Tree struct {
	Arity     uint32 `json:"arity" cbor:"0,keyasint"`
	Depth     uint8  `json:"depth" cbor:"1,keyasint"`
	MaxLeaves uint32 `json:"maxLeaves" cbor:"2,keyasint"`
	Count     uint32 `json:"count" cbor:"3,keyasint"`
	// Root is nil until the tree is merged.
	Root    *types.HashBytes `json:"root,omitempty" cbor:"4,keyasint,omitempty"`
	Padding Padding          `json:"padding" cbor:"5,keyasint"`
	// Levels[l] holds the completed subtrees of height l that are not yet
	// hashed into their parent, at most Arity-1 of them. Levels[Depth]
	// holds the root of a full tree.
	Levels [][]types.HashBytes `json:"levels" cbor:"6,keyasint"`
}

// Option configures a Tree built with New.
type Option func(*Tree)

// WithMaxLeaves limits the number of leaves below the capacity of the tree.
func WithMaxLeaves(n uint32) Option {
	return func(t *Tree) {
		t.MaxLeaves = n
	}
}

// New returns an empty tree with the given arity and depth.
func New(arity uint32, depth uint8, opts ...Option) (*Tree, error) {
	if arity < 2 || arity > poseidon.MaxArity {
		return nil, fmt.Errorf("%w: arity %d", ErrInvalidParameters, arity)
	}
	capacity, ok := types.Pow(arity, depth)
	if !ok {
		return nil, fmt.Errorf("%w: %d^%d leaves do not fit in 32 bits", ErrInvalidParameters, arity, depth)
	}
	t := &Tree{
		Arity:     arity,
		Depth:     depth,
		MaxLeaves: capacity,
		Levels:    make([][]types.HashBytes, int(depth)+1),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.MaxLeaves > capacity {
		return nil, fmt.Errorf("%w: max leaves %d above capacity %d", ErrInvalidParameters, t.MaxLeaves, capacity)
	}
	return t, nil
}

// Capacity returns the number of leaf slots of the tree, arity^depth.
func (t *Tree) Capacity() uint32 {
	capacity, _ := types.Pow(t.Arity, t.Depth)
	return capacity
}

// BatchSize returns the number of leaves of a subtree of the given height.
func (t *Tree) BatchSize(subDepth uint8) uint32 {
	size, _ := types.Pow(t.Arity, subDepth)
	return size
}

// IsFinalized reports whether the tree has been merged.
func (t *Tree) IsFinalized() bool {
	return t.Root != nil
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	c := *t
	if t.Root != nil {
		root := *t.Root
		c.Root = &root
	}
	c.Levels = make([][]types.HashBytes, len(t.Levels))
	for i := range t.Levels {
		c.Levels[i] = slices.Clone(t.Levels[i])
	}
	return &c
}

// Insert appends a leaf and returns its index. The tree is left untouched
// when an error is returned.
func (t *Tree) Insert(leaf types.HashBytes) (uint32, error) {
	if t.Root != nil {
		return 0, ErrAlreadyFinalized
	}
	if t.Count >= t.MaxLeaves {
		return 0, fmt.Errorf("%w: %d leaves", ErrCapacityExceeded, t.MaxLeaves)
	}
	hasher, err := poseidon.New(int(t.Arity))
	if err != nil {
		return 0, err
	}
	// Hash every level that becomes complete before touching the tree.
	node := leaf
	level := 0
	for level < int(t.Depth) && uint32(len(t.Levels[level]))+1 == t.Arity {
		children := append(slices.Clone(t.Levels[level]), node)
		if node, err = hasher.Hash(children...); err != nil {
			return 0, err
		}
		level++
	}
	for l := range level {
		t.Levels[l] = t.Levels[l][:0]
	}
	t.Levels[level] = append(t.Levels[level], node)
	index := t.Count
	t.Count++
	return index, nil
}

// Merge computes and stores the root of the tree. Unused slots are filled
// with the empty subtrees of the zero leaf when padWithZeroSubtree is set and
// with those of the blank registration leaf otherwise. Once merged, the tree
// keeps its root and later calls return it unchanged.
func (t *Tree) Merge(padWithZeroSubtree bool) (types.HashBytes, error) {
	if t.Root != nil {
		return *t.Root, nil
	}
	padding := PaddingBlankRegistration
	if padWithZeroSubtree {
		padding = PaddingZero
	}
	root, err := t.computeRoot(padding)
	if err != nil {
		return types.HashBytes{}, fmt.Errorf("%w: %w", ErrMergeFailed, err)
	}
	t.Root = &root
	t.Padding = padding
	log.Debugw("merkle tree merged",
		"arity", t.Arity,
		"depth", t.Depth,
		"count", t.Count,
		"padding", padding.String(),
		"root", root.String())
	return root, nil
}

func (t *Tree) computeRoot(padding Padding) (types.HashBytes, error) {
	if len(t.Levels) != int(t.Depth)+1 {
		return types.HashBytes{}, fmt.Errorf("tree has %d levels, want %d", len(t.Levels), t.Depth+1)
	}
	if len(t.Levels[t.Depth]) > 0 {
		return t.Levels[t.Depth][0], nil
	}
	leaf, err := PaddingLeaf(padding)
	if err != nil {
		return types.HashBytes{}, err
	}
	zero, err := ZeroRoots(t.Arity, t.Depth, leaf)
	if err != nil {
		return types.HashBytes{}, err
	}
	hasher, err := poseidon.New(int(t.Arity))
	if err != nil {
		return types.HashBytes{}, err
	}
	// carry is the partially filled subtree coming from the level below,
	// it always follows the completed nodes of the current level.
	var carry *types.HashBytes
	for l := 0; l < int(t.Depth); l++ {
		nodes := slices.Clone(t.Levels[l])
		if carry != nil {
			nodes = append(nodes, *carry)
		}
		if len(nodes) == 0 {
			continue
		}
		for uint32(len(nodes)) < t.Arity {
			nodes = append(nodes, zero[l])
		}
		parent, err := hasher.Hash(nodes...)
		if err != nil {
			return types.HashBytes{}, err
		}
		carry = &parent
	}
	if carry == nil {
		return zero[t.Depth], nil
	}
	return *carry, nil
}
