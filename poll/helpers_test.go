package poll

import (
	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/vocdoni/acpoll/crypto/hash/poseidon"
	"github.com/vocdoni/acpoll/types"
)

const (
	testCreatedAt = types.BlockNumber(100)
	testSignup    = types.BlockNumber(50)
	testVoting    = types.BlockNumber(200)

	registrationHeight = types.BlockNumber(110)
	votingHeight       = types.BlockNumber(160)
	closedHeight       = types.BlockNumber(350)
)

var testCoordinatorAddr = common.HexToAddress("0x00000000000000000000000000000000000000c0")

func testConfig() types.PollConfig {
	return types.PollConfig{
		SignupPeriod:          testSignup,
		VotingPeriod:          testVoting,
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

func newTestPoll(c *qt.C) *Poll {
	p, err := New(1, testCoordinatorAddr, testCreatedAt, testConfig())
	c.Assert(err, qt.IsNil)
	return p
}

func randomKey() types.PublicKey {
	sk := babyjub.NewRandPrivKey()
	return types.PublicKeyFromPoint(sk.Public().Point())
}

func testCoordinator() types.Coordinator {
	return types.Coordinator{
		PublicKey: randomKey(),
		VerifyKey: types.VerifyKey{
			Process: types.HexBytes{0x01},
			Tally:   types.HexBytes{0x02},
		},
	}
}

func testInteractionData(seed uint64) types.InteractionData {
	var data types.InteractionData
	for i := range data {
		data[i] = types.HashBytesFromUint64(seed*100 + uint64(i))
	}
	return data
}

// populatedPoll returns a poll with the given number of registrations and
// interactions, merged at closedHeight.
func populatedPoll(c *qt.C, registrations, interactions int) *Poll {
	p := newTestPoll(c)
	var err error
	for i := range registrations {
		_, p, err = p.RegisterParticipant(registrationHeight, randomKey(), uint64(i))
		c.Assert(err, qt.IsNil)
	}
	for i := range interactions {
		_, p, err = p.ConsumeInteraction(votingHeight, randomKey(), testInteractionData(uint64(i)))
		c.Assert(err, qt.IsNil)
	}
	p, err = p.MergeRegistrations(closedHeight)
	c.Assert(err, qt.IsNil)
	p, err = p.MergeInteractions(closedHeight)
	c.Assert(err, qt.IsNil)
	return p
}

// prove accepts every remaining batch proof, using finalTally as the
// commitment of the last tally batch.
func prove(c *qt.C, p *Poll, coordinator types.Coordinator, finalTally types.HashBytes) *Poll {
	for step := uint64(1); !p.IsProven(); step++ {
		commitment := types.HashBytesFromUint64(step)
		last := p.State.Commitment.Process.Index == p.State.Commitment.ExpectedProcess &&
			p.State.Commitment.Tally.Index+1 == p.State.Commitment.ExpectedTally
		if last {
			commitment = finalTally
		}
		inputs, ok := p.PreparePublicInputs(coordinator, commitment)
		c.Assert(ok, qt.IsTrue)
		p = p.WithCommitment(inputs.Commitment)
	}
	return p
}

// testOutcome builds an outcome for the given tallies over a quinary result
// tree of depth 1, and returns it with the tally commitment it proves.
func testOutcome(c *qt.C, tallies []uint32) (*types.PollOutcome, types.HashBytes) {
	leaves := make([]types.HashBytes, types.VoteOptionTreeArity)
	for i, tally := range tallies {
		leaves[i] = TallyResultLeaf(tally)
	}
	root, err := poseidon.Hash(leaves...)
	c.Assert(err, qt.IsNil)

	outcome := &types.PollOutcome{
		TallyResults:    tallies,
		TallyResultSalt: types.HashBytesFromUint64(0xaa),
		TotalSpent:      types.HashBytesFromUint64(uint64(sum(tallies))),
		TotalSpentSalt:  types.HashBytesFromUint64(0xbb),
	}
	for i := range tallies {
		siblings := make([]types.HashBytes, 0, types.VoteOptionTreeArity-1)
		for j, leaf := range leaves {
			if j != i {
				siblings = append(siblings, leaf)
			}
		}
		outcome.TallyResultProofs = append(outcome.TallyResultProofs, [][]types.HashBytes{siblings})
	}
	outcome.NewResultsCommitment, err = poseidon.Hash(root, outcome.TallyResultSalt)
	c.Assert(err, qt.IsNil)
	outcome.SpentVotesHash, err = poseidon.Hash(outcome.TotalSpent, outcome.TotalSpentSalt)
	c.Assert(err, qt.IsNil)
	commitment, err := poseidon.Hash(outcome.NewResultsCommitment, outcome.SpentVotesHash)
	c.Assert(err, qt.IsNil)
	return outcome, commitment
}

func sum(values []uint32) uint32 {
	var total uint32
	for _, v := range values {
		total += v
	}
	return total
}
