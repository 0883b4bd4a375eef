package poll

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/acpoll/crypto/hash/poseidon"
	"github.com/vocdoni/acpoll/merkle"
	"github.com/vocdoni/acpoll/types"
)

func TestNewPoll(t *testing.T) {
	c := qt.New(t)

	p := newTestPoll(c)
	c.Assert(p.State.Registrations.MaxLeaves, qt.Equals, uint32(24))
	c.Assert(p.State.Interactions.MaxLeaves, qt.Equals, uint32(25))
	c.Assert(p.State.Registrations.Root, qt.IsNil)
	c.Assert(p.IsMerged(), qt.IsFalse)
	c.Assert(p.IsProven(), qt.IsFalse)

	cfg := testConfig()
	cfg.VotingPeriod = 0
	_, err := New(1, testCoordinatorAddr, testCreatedAt, cfg)
	c.Assert(err, qt.ErrorIs, types.ErrInvalidPollConfig)
}

func TestRegisterParticipant(t *testing.T) {
	c := qt.New(t)
	p := newTestPoll(c)
	pk := randomKey()

	count, next, err := p.RegisterParticipant(registrationHeight, pk, 42)
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, uint32(1))
	c.Assert(next.State.Registrations.Count, qt.Equals, uint32(1))
	c.Assert(p.State.Registrations.Count, qt.Equals, uint32(0))

	leaf, err := RegistrationLeaf(pk, 42)
	c.Assert(err, qt.IsNil)
	want, err := poseidon.Hash(pk.X, pk.Y, types.HashBytesFromUint64(1), types.HashBytesFromUint64(42))
	c.Assert(err, qt.IsNil)
	c.Assert(leaf, qt.Equals, want)
	c.Assert(next.State.Registrations.Levels[0], qt.DeepEquals, []types.HashBytes{leaf})

	_, _, err = p.RegisterParticipant(votingHeight, pk, 42)
	c.Assert(err, qt.ErrorIs, ErrNotRegistrationPeriod)

	bad := pk
	bad.Y = types.HashBytesFromUint64(3)
	_, _, err = p.RegisterParticipant(registrationHeight, bad, 42)
	c.Assert(err, qt.ErrorIs, ErrInvalidPublicKey)
}

func TestRegistrationLimit(t *testing.T) {
	c := qt.New(t)

	cfg := testConfig()
	cfg.MaxRegistrations = 3
	p, err := New(1, testCoordinatorAddr, testCreatedAt, cfg)
	c.Assert(err, qt.IsNil)

	for range 2 {
		c.Assert(p.RegistrationLimitReached(), qt.IsFalse)
		_, p, err = p.RegisterParticipant(registrationHeight, randomKey(), 0)
		c.Assert(err, qt.IsNil)
	}
	c.Assert(p.RegistrationLimitReached(), qt.IsTrue)
	_, _, err = p.RegisterParticipant(registrationHeight, randomKey(), 0)
	c.Assert(err, qt.ErrorIs, ErrCapacityExceeded)
	c.Assert(p.State.Registrations.Count, qt.Equals, uint32(2))
}

func TestConsumeInteraction(t *testing.T) {
	c := qt.New(t)

	cfg := testConfig()
	cfg.MaxInteractions = 2
	p, err := New(1, testCoordinatorAddr, testCreatedAt, cfg)
	c.Assert(err, qt.IsNil)
	pk := randomKey()
	data := testInteractionData(1)

	_, _, err = p.ConsumeInteraction(registrationHeight, pk, data)
	c.Assert(err, qt.ErrorIs, ErrNotVotingPeriod)
	_, _, err = p.ConsumeInteraction(closedHeight, pk, data)
	c.Assert(err, qt.ErrorIs, ErrNotVotingPeriod)

	count, p, err := p.ConsumeInteraction(votingHeight, pk, data)
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, uint32(1))

	left, err := poseidon.Hash(data[:5]...)
	c.Assert(err, qt.IsNil)
	right, err := poseidon.Hash(data[5:]...)
	c.Assert(err, qt.IsNil)
	want, err := poseidon.Hash(left, right, pk.X, pk.Y)
	c.Assert(err, qt.IsNil)
	c.Assert(p.State.Interactions.Levels[0], qt.DeepEquals, []types.HashBytes{want})

	count, p, err = p.ConsumeInteraction(votingHeight, pk, data)
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, uint32(2))
	c.Assert(p.InteractionLimitReached(), qt.IsTrue)
	_, _, err = p.ConsumeInteraction(votingHeight, pk, data)
	c.Assert(err, qt.ErrorIs, ErrCapacityExceeded)
}

func TestMerge(t *testing.T) {
	c := qt.New(t)

	p := newTestPoll(c)
	var err error
	for i := range 3 {
		_, p, err = p.RegisterParticipant(registrationHeight, randomKey(), uint64(i))
		c.Assert(err, qt.IsNil)
	}
	for i := range 7 {
		_, p, err = p.ConsumeInteraction(votingHeight, randomKey(), testInteractionData(uint64(i)))
		c.Assert(err, qt.IsNil)
	}

	_, err = p.MergeRegistrations(closedHeight - 1)
	c.Assert(err, qt.ErrorIs, ErrPollNotOver)
	_, err = p.MergeInteractions(votingHeight)
	c.Assert(err, qt.ErrorIs, ErrPollNotOver)

	p, err = p.MergeRegistrations(closedHeight)
	c.Assert(err, qt.IsNil)
	c.Assert(p.State.Registrations.IsFinalized(), qt.IsTrue)
	c.Assert(p.State.Registrations.Padding, qt.Equals, merkle.PaddingBlankRegistration)
	c.Assert(p.IsMerged(), qt.IsFalse)
	c.Assert(p.State.Commitment.ExpectedTally, qt.Equals, uint32(1))

	ballotRoot, err := merkle.EmptyBallotRoot(2, 1)
	c.Assert(err, qt.IsNil)
	want, err := poseidon.Hash(*p.State.Registrations.Root, ballotRoot, types.HashBytes{})
	c.Assert(err, qt.IsNil)
	c.Assert(p.State.Commitment.Process, qt.Equals, ProofState{Index: 0, Hash: want})

	p, err = p.MergeInteractions(closedHeight)
	c.Assert(err, qt.IsNil)
	c.Assert(p.IsMerged(), qt.IsTrue)
	c.Assert(p.State.Interactions.Padding, qt.Equals, merkle.PaddingZero)
	c.Assert(p.State.Commitment.ExpectedProcess, qt.Equals, uint32(2))

	// Later merges leave the poll untouched, including accepted proofs.
	inputs, ok := p.PreparePublicInputs(testCoordinator(), types.HashBytesFromUint64(9))
	c.Assert(ok, qt.IsTrue)
	p = p.WithCommitment(inputs.Commitment)
	again, err := p.MergeRegistrations(closedHeight + 10)
	c.Assert(err, qt.IsNil)
	again, err = again.MergeInteractions(closedHeight + 10)
	c.Assert(err, qt.IsNil)
	c.Assert(again, qt.DeepEquals, p)

	_, _, err = p.ConsumeInteraction(votingHeight, randomKey(), testInteractionData(0))
	c.Assert(err, qt.ErrorIs, ErrAlreadyFinalized)
}

func TestClone(t *testing.T) {
	c := qt.New(t)

	p := populatedPoll(c, 1, 1)
	clone := p.Clone()
	clone.Config.VoteOptions[0].Label = "changed"
	*clone.State.Registrations.Root = types.HashBytesFromUint64(1)
	clone.State.Commitment.Tally.Index = 7

	c.Assert(p.Config.VoteOptions[0].Label, qt.Equals, "a")
	c.Assert(*p.State.Registrations.Root, qt.Not(qt.Equals), types.HashBytesFromUint64(1))
	c.Assert(p.State.Commitment.Tally.Index, qt.Equals, uint32(0))
}
