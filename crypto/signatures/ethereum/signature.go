// Package ethereum signs and verifies EIP-191 personal messages with
// secp256k1 account keys.
package ethereum

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/acpoll/types"
)

// SignatureLength is the size of an encoded [R || S || V] signature.
const SignatureLength = ethcrypto.SignatureLength

// Signature is a recoverable ECDSA signature. V is kept in its 0/1 form.
type Signature [SignatureLength]byte

// SignatureFromBytes decodes a 65 byte signature. The recovery byte may use
// either the 0/1 or the 27/28 convention.
func SignatureFromBytes(b []byte) (Signature, error) {
	var sig Signature
	if len(b) != SignatureLength {
		return sig, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(b))
	}
	copy(sig[:], b)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !ethcrypto.ValidateSignatureValues(sig[64], r, s, true) {
		return Signature{}, fmt.Errorf("invalid signature values")
	}
	return sig, nil
}

// SignatureFromHex decodes a hex encoded signature, with or without 0x.
func SignatureFromHex(s string) (Signature, error) {
	b, err := types.HexStringToHexBytes(s)
	if err != nil {
		return Signature{}, err
	}
	return SignatureFromBytes(b)
}

// Hex encodes the signature with the 27/28 recovery byte wallets produce.
func (sig Signature) Hex() string {
	out := sig
	out[64] += 27
	return hexutil.Encode(out[:])
}

// Recover returns the address that signed msg.
func (sig Signature) Recover(msg []byte) (common.Address, error) {
	pub, err := ethcrypto.SigToPub(HashMessage(msg), sig[:])
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// Verify reports whether msg was signed by expected.
func (sig Signature) Verify(msg []byte, expected common.Address) bool {
	addr, err := sig.Recover(msg)
	return err == nil && addr == expected
}
