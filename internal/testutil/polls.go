// Package testutil provides fixtures shared by the tests of the node
// packages.
package testutil

import (
	"encoding/binary"
	"math/rand/v2"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	qt "github.com/frankban/quicktest"
	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/vocdoni/acpoll/poll"
	"github.com/vocdoni/acpoll/types"
)

// DeterministicAddress derives an account address from n.
func DeterministicAddress(n uint64) common.Address {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)

	prefix := []byte("deterministic-address:")
	h := crypto.Keccak256(append(prefix, b[:]...))
	return common.BytesToAddress(h[12:])
}

func RandomAddress() common.Address {
	return DeterministicAddress(rand.Uint64())
}

// RandomPublicKey returns the public key of a fresh BabyJubJub private key.
func RandomPublicKey() types.PublicKey {
	sk := babyjub.NewRandPrivKey()
	return types.PublicKeyFromPoint(sk.Public().Point())
}

// VerifyKey returns placeholder verifying keys for both circuits.
func VerifyKey() types.VerifyKey {
	return types.VerifyKey{Process: types.HexBytes{0x01}, Tally: types.HexBytes{0x02}}
}

// PollConfig returns a poll with three options, signup and voting periods
// of 50 and 200 blocks and quinary trees of depth 2 with batches of 5.
func PollConfig() types.PollConfig {
	return types.PollConfig{
		SignupPeriod:          50,
		VotingPeriod:          200,
		VoteOptions:           []types.VoteOption{{Label: "a"}, {Label: "b"}, {Label: "c"}},
		VoteOptionTreeDepth:   1,
		ProcessSubtreeDepth:   1,
		TallySubtreeDepth:     1,
		RegistrationTreeDepth: 2,
		InteractionTreeDepth:  2,
		MaxRegistrations:      25,
		MaxInteractions:       25,
	}
}

// InteractionData returns a deterministic interaction payload.
func InteractionData(seed uint64) types.InteractionData {
	var data types.InteractionData
	for i := range data {
		data[i] = types.HashBytesFromUint64(seed*100 + uint64(i))
	}
	return data
}

// Outcome builds an outcome for at most five tallies over a quinary result
// tree of depth 1, and returns it with the tally commitment it proves.
func Outcome(tb testing.TB, tallies []uint32) (*types.PollOutcome, types.HashBytes) {
	outcome, commitment, err := poll.BuildOutcome(1, tallies,
		types.HashBytesFromUint64(0x5a17), types.HashBytesFromUint64(0x5a18))
	qt.New(tb).Assert(err, qt.IsNil)
	return outcome, commitment
}
