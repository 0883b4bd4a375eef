package service

import (
	"errors"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/acpoll/internal/testutil"
	"github.com/vocdoni/acpoll/poll"
	"github.com/vocdoni/acpoll/storage"
	"github.com/vocdoni/acpoll/types"
)

func TestRegisterCoordinator(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c, DefaultConfig(), ShapeVerifier{})

	pk := testutil.RandomPublicKey()
	c.Assert(env.RegisterCoordinator(alice, pk, testutil.VerifyKey()), qt.IsNil)
	c.Assert(env.RegisterCoordinator(alice, testutil.RandomPublicKey(), testutil.VerifyKey()), qt.ErrorIs, ErrCoordinatorAlreadyRegistered)

	coordinator, err := env.Coordinator(alice)
	c.Assert(err, qt.IsNil)
	c.Assert(coordinator.PublicKey, qt.Equals, pk)

	_, err = env.Coordinator(bob)
	c.Assert(err, qt.ErrorIs, ErrCoordinatorNotRegistered)

	bad := testutil.RandomPublicKey()
	bad.X = types.HashBytesFromUint64(1)
	c.Assert(env.RegisterCoordinator(bob, bad, testutil.VerifyKey()), qt.ErrorIs, poll.ErrInvalidPublicKey)

	c.Assert(env.drain(), qt.DeepEquals, []EventKind{EventCoordinatorRegistered})
}

func TestRegisterCoordinatorKeyLengths(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c, Config{MaxPublicKeyLength: 32, MaxVerifyKeyLength: 4}, ShapeVerifier{})
	c.Assert(env.RegisterCoordinator(alice, testutil.RandomPublicKey(), testutil.VerifyKey()), qt.ErrorIs, ErrPublicKeyTooLong)

	env = newTestEnv(c, Config{MaxVerifyKeyLength: 4}, ShapeVerifier{})
	vk := types.VerifyKey{Process: make(types.HexBytes, 3), Tally: make(types.HexBytes, 2)}
	c.Assert(env.RegisterCoordinator(alice, testutil.RandomPublicKey(), vk), qt.ErrorIs, ErrVerifyKeyTooLong)
	vk.Tally = vk.Tally[:1]
	c.Assert(env.RegisterCoordinator(alice, testutil.RandomPublicKey(), vk), qt.IsNil)
}

func TestRotateKeys(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c, DefaultConfig(), ShapeVerifier{})

	pk := testutil.RandomPublicKey()
	c.Assert(env.RotateKeys(alice, &pk, nil), qt.ErrorIs, ErrCoordinatorNotRegistered)
	c.Assert(env.RegisterCoordinator(alice, testutil.RandomPublicKey(), testutil.VerifyKey()), qt.IsNil)
	c.Assert(env.RotateKeys(alice, nil, nil), qt.IsNotNil)

	c.Assert(env.RotateKeys(alice, &pk, nil), qt.IsNil)
	coordinator, err := env.Coordinator(alice)
	c.Assert(err, qt.IsNil)
	c.Assert(coordinator.PublicKey, qt.Equals, pk)
	c.Assert(coordinator.VerifyKey, qt.DeepEquals, testutil.VerifyKey())

	vk := types.VerifyKey{Process: types.HexBytes{0x0a}, Tally: types.HexBytes{0x0b}}
	c.Assert(env.RotateKeys(alice, nil, &vk), qt.IsNil)
	coordinator, err = env.Coordinator(alice)
	c.Assert(err, qt.IsNil)
	c.Assert(coordinator.PublicKey, qt.Equals, pk)
	c.Assert(coordinator.VerifyKey, qt.DeepEquals, vk)

	c.Assert(env.drain(), qt.DeepEquals, []EventKind{
		EventCoordinatorRegistered,
		EventCoordinatorKeyChanged,
		EventCoordinatorKeyChanged,
	})
}

func TestCreatePoll(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c, DefaultConfig(), ShapeVerifier{})

	_, err := env.CreatePoll(alice, testutil.PollConfig())
	c.Assert(err, qt.ErrorIs, ErrCoordinatorNotRegistered)
	c.Assert(env.RegisterCoordinator(alice, testutil.RandomPublicKey(), testutil.VerifyKey()), qt.IsNil)

	invalid := testutil.PollConfig()
	invalid.VoteOptions = nil
	_, err = env.CreatePoll(alice, invalid)
	c.Assert(err, qt.ErrorIs, types.ErrInvalidPollConfig)

	p, err := env.CreatePoll(alice, testutil.PollConfig())
	c.Assert(err, qt.IsNil)
	c.Assert(p.Index, qt.Equals, types.PollID(1))
	c.Assert(p.CreatedAt, qt.Equals, types.BlockNumber(100))
	c.Assert(p.Coordinator, qt.Equals, alice)

	// The previous poll is ongoing up to and including its end block.
	env.height.Set(350)
	_, err = env.CreatePoll(alice, testutil.PollConfig())
	c.Assert(err, qt.ErrorIs, ErrPollOngoing)

	env.height.Set(351)
	p, err = env.CreatePoll(alice, testutil.PollConfig())
	c.Assert(err, qt.IsNil)
	c.Assert(p.Index, qt.Equals, types.PollID(2))

	c.Assert(env.RegisterCoordinator(bob, testutil.RandomPublicKey(), testutil.VerifyKey()), qt.IsNil)
	p, err = env.CreatePoll(bob, testutil.PollConfig())
	c.Assert(err, qt.IsNil)
	c.Assert(p.Index, qt.Equals, types.PollID(3))

	ids, err := env.CoordinatorPolls(alice)
	c.Assert(err, qt.IsNil)
	c.Assert(ids, qt.DeepEquals, []types.PollID{1, 2})
	ids, err = env.Polls()
	c.Assert(err, qt.IsNil)
	c.Assert(ids, qt.DeepEquals, []types.PollID{1, 2, 3})

	stored, err := env.Poll(2)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.CreatedAt, qt.Equals, types.BlockNumber(351))
}

func TestCreatePollLimit(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c, Config{MaxCoordinatorPolls: 1}, ShapeVerifier{})

	c.Assert(env.RegisterCoordinator(alice, testutil.RandomPublicKey(), testutil.VerifyKey()), qt.IsNil)
	_, err := env.CreatePoll(alice, testutil.PollConfig())
	c.Assert(err, qt.IsNil)
	env.height.Set(1000)
	_, err = env.CreatePoll(alice, testutil.PollConfig())
	c.Assert(err, qt.ErrorIs, ErrCoordinatorMayNotCreatePolls)
}

func TestParticipation(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c, DefaultConfig(), ShapeVerifier{})
	c.Assert(env.RegisterCoordinator(alice, testutil.RandomPublicKey(), testutil.VerifyKey()), qt.IsNil)
	p, err := env.CreatePoll(alice, testutil.PollConfig())
	c.Assert(err, qt.IsNil)

	_, err = env.RegisterParticipant(42, bob, testutil.RandomPublicKey())
	c.Assert(err, qt.ErrorIs, storage.ErrNotFound)

	count, err := env.RegisterParticipant(p.Index, bob, testutil.RandomPublicKey())
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, uint32(1))
	_, err = env.SubmitInteraction(p.Index, bob, testutil.RandomPublicKey(), testutil.InteractionData(1))
	c.Assert(err, qt.ErrorIs, poll.ErrNotVotingPeriod)

	env.height.Set(150)
	_, err = env.RegisterParticipant(p.Index, bob, testutil.RandomPublicKey())
	c.Assert(err, qt.ErrorIs, poll.ErrNotRegistrationPeriod)
	count, err = env.SubmitInteraction(p.Index, bob, testutil.RandomPublicKey(), testutil.InteractionData(1))
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, uint32(1))

	_, err = env.MergeRegistrations(p.Index, carol)
	c.Assert(err, qt.ErrorIs, poll.ErrPollNotOver)

	stored, err := env.Poll(p.Index)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.State.Registrations.Count, qt.Equals, uint32(1))
	c.Assert(stored.State.Interactions.Count, qt.Equals, uint32(1))

	c.Assert(env.Nullify(p.Index, bob), qt.ErrorIs, ErrNotCoordinator)
	c.Assert(env.Nullify(p.Index, alice), qt.IsNil)
	_, err = env.SubmitInteraction(p.Index, bob, testutil.RandomPublicKey(), testutil.InteractionData(2))
	c.Assert(err, qt.ErrorIs, ErrPollFulfilled)

	c.Assert(env.drain(), qt.DeepEquals, []EventKind{
		EventCoordinatorRegistered,
		EventPollCreated,
		EventParticipantRegistered,
		EventInteractionSubmitted,
		EventPollNullified,
	})
}

func TestMergeOnce(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c, DefaultConfig(), ShapeVerifier{})
	p := runPoll(c, env, 3, 4)
	root := *p.State.Interactions.Root

	again, err := env.MergeInteractions(p.Index, bob)
	c.Assert(err, qt.IsNil)
	c.Assert(*again.State.Interactions.Root, qt.Equals, root)
	c.Assert(again.State.Commitment, qt.Equals, p.State.Commitment)

	kinds := env.drain()
	merges := 0
	for _, k := range kinds {
		if k == EventRegistrationsMerged || k == EventInteractionsMerged {
			merges++
		}
	}
	c.Assert(merges, qt.Equals, 2)
}

func TestProveAndFulfill(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c, DefaultConfig(), ShapeVerifier{})
	p := runPoll(c, env, 6, 7)
	outcome, finalTally := testutil.Outcome(c, []uint32{2, 5, 1})

	_, err := env.SubmitOutcome(p.Index, alice, outcome)
	c.Assert(err, qt.ErrorIs, ErrOutcomeRejected)

	_, err = env.SubmitProof(p.Index, bob, []byte{1}, types.HashBytesFromUint64(1))
	c.Assert(err, qt.ErrorIs, ErrCoordinatorNotRegistered)

	var circuits []poll.Circuit
	for step := uint64(1); ; step++ {
		p, err = env.Poll(p.Index)
		c.Assert(err, qt.IsNil)
		if p.IsProven() {
			break
		}
		commitment := types.HashBytesFromUint64(step)
		cm := p.State.Commitment
		if cm.Process.Index == cm.ExpectedProcess && cm.Tally.Index+1 == cm.ExpectedTally {
			commitment = finalTally
		}
		expected, err := env.PublicInputs(p.Index, commitment)
		c.Assert(err, qt.IsNil)
		inputs, err := env.SubmitProof(p.Index, alice, []byte{0xca, 0xfe}, commitment)
		c.Assert(err, qt.IsNil)
		c.Assert(inputs, qt.DeepEquals, expected)
		circuits = append(circuits, inputs.Circuit)
	}
	c.Assert(circuits, qt.DeepEquals, []poll.Circuit{
		poll.CircuitProcess, poll.CircuitProcess, poll.CircuitTally, poll.CircuitTally,
	})

	_, err = env.SubmitProof(p.Index, alice, []byte{1}, types.HashBytesFromUint64(99))
	c.Assert(err, qt.ErrorIs, ErrNothingToProve)
	_, err = env.PublicInputs(p.Index, types.HashBytesFromUint64(99))
	c.Assert(err, qt.ErrorIs, ErrNothingToProve)

	_, err = env.SubmitOutcome(p.Index, bob, outcome)
	c.Assert(err, qt.ErrorIs, ErrNotCoordinator)

	winner, err := env.SubmitOutcome(p.Index, alice, outcome)
	c.Assert(err, qt.IsNil)
	c.Assert(winner, qt.Equals, types.OutcomeIndex(1))

	_, err = env.SubmitOutcome(p.Index, alice, outcome)
	c.Assert(err, qt.ErrorIs, ErrPollFulfilled)

	stored, err := env.Poll(p.Index)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.IsFulfilled(), qt.IsTrue)
	c.Assert(*stored.State.Outcome, qt.Equals, types.OutcomeIndex(1))
}

func TestProofRejected(t *testing.T) {
	c := qt.New(t)
	reject := VerifierFunc(func(types.HexBytes, []byte, *poll.PublicInputs) error {
		return errors.New("pairing check failed")
	})
	env := newTestEnv(c, DefaultConfig(), reject)
	p := runPoll(c, env, 2, 2)

	_, err := env.SubmitProof(p.Index, alice, []byte{1}, types.HashBytesFromUint64(1))
	c.Assert(err, qt.ErrorIs, ErrProofRejected)

	stored, err := env.Poll(p.Index)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.State.Commitment, qt.Equals, p.State.Commitment)
}

func TestShapeVerifier(t *testing.T) {
	c := qt.New(t)
	inputs := &poll.PublicInputs{
		Circuit: poll.CircuitTally,
		Inputs:  make([]types.HashBytes, poll.CircuitTally.InputsLen()),
	}
	v := ShapeVerifier{}
	c.Assert(v.Verify(types.HexBytes{1}, []byte{1}, inputs), qt.IsNil)
	c.Assert(v.Verify(nil, []byte{1}, inputs), qt.ErrorMatches, "empty tally verifying key")
	c.Assert(v.Verify(types.HexBytes{1}, nil, inputs), qt.ErrorMatches, "empty proof")

	inputs.Inputs[2] = types.HashBytesFromBigInt(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)))
	c.Assert(v.Verify(types.HexBytes{1}, []byte{1}, inputs), qt.ErrorMatches, "public input 2 is not a field element")

	inputs.Inputs = inputs.Inputs[:4]
	c.Assert(v.Verify(types.HexBytes{1}, []byte{1}, inputs), qt.ErrorMatches, "tally circuit takes 5 public inputs, got 4")
}

func TestDefaultVerifierRejectsForgedProof(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(c, DefaultConfig(), nil)
	c.Assert(env.verifier, qt.Satisfies, func(v ProofVerifier) bool {
		_, ok := v.(*CircomVerifier)
		return ok
	})
	p := runPoll(c, env, 2, 3)

	_, err := env.SubmitProof(p.Index, alice, []byte("not a proof"), types.HashBytesFromUint64(0xdead))
	c.Assert(err, qt.ErrorIs, ErrProofRejected)

	stored, err := env.Poll(p.Index)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.State.Commitment, qt.Equals, p.State.Commitment)
	c.Assert(stored.State.Commitment.Process.Index, qt.Equals, uint32(0))
}
