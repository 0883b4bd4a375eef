package ethereum

import (
	"crypto/ecdsa"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/acpoll/types"
)

// signingPrefix is prepended to every message before hashing, so signatures
// cannot be replayed as transactions.
const signingPrefix = "\x19Ethereum Signed Message:\n"

// Signer is an account private key.
type Signer ecdsa.PrivateKey

// NewSigner generates a random key.
func NewSigner() (*Signer, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("could not generate key: %w", err)
	}
	return (*Signer)(key), nil
}

// NewSignerFromHex loads a hex encoded private key.
func NewSignerFromHex(hexKey string) (*Signer, error) {
	b, err := types.HexStringToHexBytes(hexKey)
	if err != nil {
		return nil, err
	}
	key, err := ethcrypto.ToECDSA(b)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return (*Signer)(key), nil
}

// NewSignerFromSeed derives a key from the keccak256 of seed.
func NewSignerFromSeed(seed []byte) (*Signer, error) {
	key, err := ethcrypto.ToECDSA(ethcrypto.Keccak256(seed))
	if err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}
	return (*Signer)(key), nil
}

// Address returns the account address of the key.
func (s *Signer) Address() common.Address {
	return ethcrypto.PubkeyToAddress(s.PublicKey)
}

// HexPrivateKey returns the private key bytes.
func (s *Signer) HexPrivateKey() types.HexBytes {
	return ethcrypto.FromECDSA((*ecdsa.PrivateKey)(s))
}

// Sign signs msg as an EIP-191 personal message.
func (s *Signer) Sign(msg []byte) (Signature, error) {
	b, err := ethcrypto.Sign(HashMessage(msg), (*ecdsa.PrivateKey)(s))
	if err != nil {
		return Signature{}, fmt.Errorf("could not sign message: %w", err)
	}
	var sig Signature
	copy(sig[:], b)
	return sig, nil
}

// HashMessage returns keccak256(prefix || len(msg) || msg).
func HashMessage(msg []byte) []byte {
	return ethcrypto.Keccak256([]byte(signingPrefix), []byte(strconv.Itoa(len(msg))), msg)
}
