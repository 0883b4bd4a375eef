// Package poseidon wraps the circom compatible Poseidon permutation over the
// BN254 scalar field. Hashers have a fixed arity and work on 32-byte
// big-endian field elements.
package poseidon

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/vocdoni/acpoll/crypto/field"
	"github.com/vocdoni/acpoll/types"
)

// MaxArity is the widest Poseidon instance available.
const MaxArity = 16

// ErrHashUnavailable is returned when a hasher cannot be built for the
// requested arity or the permutation fails. It is not retryable with the
// same inputs.
var ErrHashUnavailable = errors.New("poseidon hash unavailable")

// Hasher hashes exactly Arity field elements into one.
type Hasher struct {
	arity int
}

// New returns a Hasher for the given arity.
func New(arity int) (*Hasher, error) {
	if arity < 1 || arity > MaxArity {
		return nil, fmt.Errorf("%w: unsupported arity %d", ErrHashUnavailable, arity)
	}
	return &Hasher{arity: arity}, nil
}

// Arity returns the number of inputs the hasher expects.
func (h *Hasher) Arity() int {
	return h.arity
}

// HashElements hashes the field elements provided.
func (h *Hasher) HashElements(inputs ...fr.Element) (fr.Element, error) {
	if len(inputs) != h.arity {
		return fr.Element{}, fmt.Errorf("%w: got %d inputs for arity %d", ErrHashUnavailable, len(inputs), h.arity)
	}
	bigInputs := make([]*big.Int, len(inputs))
	for i := range inputs {
		bigInputs[i] = field.BigInt(inputs[i])
	}
	out, err := poseidon.Hash(bigInputs)
	if err != nil {
		return fr.Element{}, fmt.Errorf("%w: %w", ErrHashUnavailable, err)
	}
	return field.FromBigInt(out), nil
}

// Hash reduces each input modulo the field order, hashes them and returns
// the 32-byte big-endian encoding of the result.
func (h *Hasher) Hash(inputs ...types.HashBytes) (types.HashBytes, error) {
	elements := make([]fr.Element, len(inputs))
	for i := range inputs {
		elements[i] = field.FromHash(inputs[i])
	}
	out, err := h.HashElements(elements...)
	if err != nil {
		return types.HashBytes{}, err
	}
	return field.ToHash(out), nil
}

// Hash builds a hasher with the arity given by the number of inputs and
// hashes them.
func Hash(inputs ...types.HashBytes) (types.HashBytes, error) {
	h, err := New(len(inputs))
	if err != nil {
		return types.HashBytes{}, err
	}
	return h.Hash(inputs...)
}
