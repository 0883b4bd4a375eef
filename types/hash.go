package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
)

// HashLen is the length in bytes of a serialized field element.
const HashLen = 32

// HashBytes is a field element serialized as a fixed 32-byte big-endian
// value, left padded with zeros. It is the encoding used for every hash input
// and output shared with the zero-knowledge circuits.
type HashBytes [HashLen]byte

// HashBytesFromBigInt returns the 32-byte big-endian encoding of x. The value
// is not reduced, callers are expected to pass a field element.
func HashBytesFromBigInt(x *big.Int) HashBytes {
	var h HashBytes
	if x == nil {
		return h
	}
	x.FillBytes(h[:])
	return h
}

// HashBytesFromUint64 returns the 32-byte big-endian encoding of v.
func HashBytesFromUint64(v uint64) HashBytes {
	return HashBytesFromBigInt(new(big.Int).SetUint64(v))
}

// HashBytesFromHex parses a hex string, optionally 0x prefixed, into
// HashBytes. Shorter inputs are left padded.
func HashBytesFromHex(s string) (HashBytes, error) {
	var h HashBytes
	b, err := HexStringToHexBytes(s)
	if err != nil {
		return h, err
	}
	if len(b) > HashLen {
		return h, fmt.Errorf("hash too long: %d bytes", len(b))
	}
	copy(h[HashLen-len(b):], b)
	return h, nil
}

// Bytes returns a copy of the hash as a byte slice.
func (h HashBytes) Bytes() []byte {
	return bytes.Clone(h[:])
}

// BigInt returns the hash interpreted as a big-endian unsigned integer.
func (h HashBytes) BigInt() *big.Int {
	return new(big.Int).SetBytes(h[:])
}

// IsZero reports whether all the bytes of the hash are zero.
func (h HashBytes) IsZero() bool {
	return h == HashBytes{}
}

// Equal reports whether h and other hold the same bytes.
func (h HashBytes) Equal(other HashBytes) bool {
	return h == other
}

// String returns the 0x prefixed hex representation of the hash.
func (h HashBytes) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// MarshalJSON encodes the hash as a 0x prefixed hex string.
func (h HashBytes) MarshalJSON() ([]byte, error) {
	return HexBytes(h[:]).MarshalJSON()
}

// UnmarshalJSON decodes a hex string, left padding it to 32 bytes.
func (h *HashBytes) UnmarshalJSON(data []byte) error {
	var b HexBytes
	if err := b.UnmarshalJSON(data); err != nil {
		return err
	}
	if len(b) > HashLen {
		return fmt.Errorf("hash too long: %d bytes", len(b))
	}
	*h = HashBytes{}
	copy(h[HashLen-len(b):], b)
	return nil
}
