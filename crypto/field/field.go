// Package field converts between the 32-byte big-endian encoding shared with
// the circuits and elements of the BN254 scalar field.
package field

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/vocdoni/acpoll/types"
)

// Modulus returns the order of the BN254 scalar field.
func Modulus() *big.Int {
	return fr.Modulus()
}

// FromBytes interprets b as a big-endian integer reduced modulo the field
// order.
func FromBytes(b []byte) fr.Element {
	var e fr.Element
	e.SetBytes(b)
	return e
}

// FromHash reduces a 32-byte value into the field.
func FromHash(h types.HashBytes) fr.Element {
	return FromBytes(h[:])
}

// FromUint64 returns v as a field element.
func FromUint64(v uint64) fr.Element {
	var e fr.Element
	e.SetUint64(v)
	return e
}

// FromBigInt returns x reduced modulo the field order.
func FromBigInt(x *big.Int) fr.Element {
	var e fr.Element
	e.SetBigInt(x)
	return e
}

// BigInt returns the canonical integer representation of e.
func BigInt(e fr.Element) *big.Int {
	return e.BigInt(new(big.Int))
}

// ToHash serializes e as 32 big-endian bytes.
func ToHash(e fr.Element) types.HashBytes {
	return types.HashBytes(e.Bytes())
}

// Reduce returns h reduced modulo the field order, re-encoded.
func Reduce(h types.HashBytes) types.HashBytes {
	return ToHash(FromHash(h))
}
