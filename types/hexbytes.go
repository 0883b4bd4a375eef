package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
)

// HexBytes is a byte slice encoded in JSON as a 0x prefixed hex string.
// Verifying keys and proofs travel as HexBytes.
type HexBytes []byte

// String returns the 0x prefixed hex encoding.
func (b HexBytes) String() string {
	return "0x" + hex.EncodeToString(b)
}

// BigInt interprets the bytes as a big-endian unsigned integer.
func (b HexBytes) BigInt() *big.Int {
	return new(big.Int).SetBytes(b)
}

// LeftPad returns a copy of b left padded with zeros up to n bytes.
func (b HexBytes) LeftPad(n int) HexBytes {
	out := make(HexBytes, max(n, len(b)))
	copy(out[len(out)-len(b):], b)
	return out
}

func (b HexBytes) Equal(other HexBytes) bool {
	return bytes.Equal(b, other)
}

func (b HexBytes) MarshalJSON() ([]byte, error) {
	return fmt.Appendf(nil, "%q", b.String()), nil
}

// UnmarshalJSON accepts a hex string with or without the 0x prefix.
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid JSON string: %q", data)
	}
	decoded, err := hex.DecodeString(trimHexPrefix(string(data[1 : len(data)-1])))
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// HexStringToHexBytes decodes a hex string with or without the 0x prefix.
func HexStringToHexBytes(s string) (HexBytes, error) {
	s = trimHexPrefix(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string %q: %w", s, err)
	}
	return b, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
