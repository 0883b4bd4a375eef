package poll

import (
	"github.com/vocdoni/acpoll/crypto/hash/poseidon"
	"github.com/vocdoni/acpoll/types"
)

// RegistrationLeaf returns the accumulator leaf of a participant:
// Poseidon(pk.x, pk.y, 1, timestamp).
func RegistrationLeaf(pk types.PublicKey, timestamp uint64) (types.HashBytes, error) {
	return poseidon.Hash(pk.X, pk.Y, types.HashBytesFromUint64(1), types.HashBytesFromUint64(timestamp))
}

// InteractionLeaf returns the accumulator leaf of an interaction:
// Poseidon(Poseidon(d0..d4), Poseidon(d5..d9), pk.x, pk.y).
func InteractionLeaf(pk types.PublicKey, data types.InteractionData) (types.HashBytes, error) {
	half := types.InteractionDataLen / 2
	left, err := poseidon.Hash(data[:half]...)
	if err != nil {
		return types.HashBytes{}, err
	}
	right, err := poseidon.Hash(data[half:]...)
	if err != nil {
		return types.HashBytes{}, err
	}
	return poseidon.Hash(left, right, pk.X, pk.Y)
}

// PublicKeyHash returns Poseidon(pk.x, pk.y).
func PublicKeyHash(pk types.PublicKey) (types.HashBytes, error) {
	return poseidon.Hash(pk.X, pk.Y)
}
