package service

import (
	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/acpoll/chain"
	"github.com/vocdoni/acpoll/db/metadb"
	"github.com/vocdoni/acpoll/internal/testutil"
	"github.com/vocdoni/acpoll/poll"
	"github.com/vocdoni/acpoll/storage"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol = common.HexToAddress("0x00000000000000000000000000000000000ca401")
)

type testEnv struct {
	*Service
	height *chain.Manual
	sink   *ChanSink
}

func newTestEnv(c *qt.C, cfg Config, verifier ProofVerifier) *testEnv {
	stg := storage.New(metadb.NewTest(c))
	c.Cleanup(stg.Close)
	height := chain.NewManual(100)
	sink := NewChanSink(128)
	return &testEnv{
		Service: New(cfg, stg, height, verifier, sink),
		height:  height,
		sink:    sink,
	}
}

// drain returns the kinds of the events emitted so far.
func (e *testEnv) drain() []EventKind {
	var kinds []EventKind
	for {
		select {
		case ev := <-e.sink.Events():
			kinds = append(kinds, ev.Kind)
		default:
			return kinds
		}
	}
}

// runPoll registers alice as coordinator, creates a poll, registers the
// given number of participants and interactions and merges both
// accumulators.
func runPoll(c *qt.C, env *testEnv, registrations, interactions int) *poll.Poll {
	c.Assert(env.RegisterCoordinator(alice, testutil.RandomPublicKey(), testutil.VerifyKey()), qt.IsNil)
	p, err := env.CreatePoll(alice, testutil.PollConfig())
	c.Assert(err, qt.IsNil)

	env.height.Set(110)
	for range registrations {
		_, err := env.RegisterParticipant(p.Index, bob, testutil.RandomPublicKey())
		c.Assert(err, qt.IsNil)
	}
	env.height.Set(160)
	for i := range interactions {
		_, err := env.SubmitInteraction(p.Index, bob, testutil.RandomPublicKey(), testutil.InteractionData(uint64(i)))
		c.Assert(err, qt.IsNil)
	}
	env.height.Set(350)
	_, err = env.MergeRegistrations(p.Index, carol)
	c.Assert(err, qt.IsNil)
	p, err = env.MergeInteractions(p.Index, carol)
	c.Assert(err, qt.IsNil)
	c.Assert(p.IsMerged(), qt.IsTrue)
	return p
}
