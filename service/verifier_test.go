package service

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/acpoll/internal/testutil"
	"github.com/vocdoni/acpoll/poll"
	"github.com/vocdoni/acpoll/types"
	"github.com/vocdoni/acpoll/util/circomgnark"
)

func TestCircomVerifier(t *testing.T) {
	c := qt.New(t)
	process := testutil.NewGroth16Prover(c, poll.CircuitProcess.InputsLen())
	tally := testutil.NewGroth16Prover(c, poll.CircuitTally.InputsLen())

	verifier, err := NewCircomVerifier(4)
	c.Assert(err, qt.IsNil)
	env := newTestEnv(c, DefaultConfig(), verifier)
	c.Assert(env.RegisterCoordinator(alice, testutil.RandomPublicKey(), types.VerifyKey{
		Process: process.VerifyKey(c),
		Tally:   tally.VerifyKey(c),
	}), qt.IsNil)
	p, err := env.CreatePoll(alice, testutil.PollConfig())
	c.Assert(err, qt.IsNil)

	env.height.Set(110)
	_, err = env.RegisterParticipant(p.Index, bob, testutil.RandomPublicKey())
	c.Assert(err, qt.IsNil)
	env.height.Set(160)
	_, err = env.SubmitInteraction(p.Index, bob, testutil.RandomPublicKey(), testutil.InteractionData(1))
	c.Assert(err, qt.IsNil)
	env.height.Set(350)
	_, err = env.MergeRegistrations(p.Index, carol)
	c.Assert(err, qt.IsNil)
	_, err = env.MergeInteractions(p.Index, carol)
	c.Assert(err, qt.IsNil)

	outcome, finalTally := testutil.Outcome(c, []uint32{0, 0, 1})
	provers := map[poll.Circuit]*testutil.Groth16Prover{
		poll.CircuitProcess: process,
		poll.CircuitTally:   tally,
	}
	commitments := []types.HashBytes{types.HashBytesFromUint64(1), finalTally}
	for _, commitment := range commitments {
		inputs, err := env.PublicInputs(p.Index, commitment)
		c.Assert(err, qt.IsNil)

		// A proof for other inputs is rejected and leaves the ledger alone.
		other := provers[inputs.Circuit].Prove(c, (&poll.PublicInputs{
			Inputs: append([]types.HashBytes{types.HashBytesFromUint64(42)}, inputs.Inputs[1:]...),
		}).BigInts())
		_, err = env.SubmitProof(p.Index, alice, other, commitment)
		c.Assert(err, qt.ErrorIs, ErrProofRejected)
		c.Assert(err, qt.ErrorIs, circomgnark.ErrInvalidProof)

		proof := provers[inputs.Circuit].Prove(c, inputs.BigInts())
		accepted, err := env.SubmitProof(p.Index, alice, proof, commitment)
		c.Assert(err, qt.IsNil)
		c.Assert(accepted, qt.DeepEquals, inputs)
	}

	winner, err := env.SubmitOutcome(p.Index, alice, outcome)
	c.Assert(err, qt.IsNil)
	c.Assert(winner, qt.Equals, types.OutcomeIndex(2))
}

func TestCircomVerifierMalformed(t *testing.T) {
	c := qt.New(t)
	verifier, err := NewCircomVerifier(1)
	c.Assert(err, qt.IsNil)
	inputs := &poll.PublicInputs{
		Circuit: poll.CircuitTally,
		Inputs:  make([]types.HashBytes, poll.CircuitTally.InputsLen()),
	}
	c.Assert(verifier.Verify(types.HexBytes("{}"), []byte("{}"), inputs), qt.ErrorMatches,
		`tally verifying key: unsupported verification key protocol ""`)

	prover := testutil.NewGroth16Prover(c, 3)
	c.Assert(verifier.Verify(prover.VerifyKey(c), []byte("not json"), inputs), qt.ErrorMatches,
		"failed to parse proof JSON: .*")
	c.Assert(verifier.keys.Len(), qt.Equals, 1)
	proof := prover.Prove(c, inputs.BigInts()[:3])
	c.Assert(verifier.Verify(prover.VerifyKey(c), proof, inputs), qt.ErrorMatches,
		"verification key takes 3 public signals, got 5")
}
