package finalizer

import (
	"context"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/acpoll/chain"
	"github.com/vocdoni/acpoll/db/metadb"
	"github.com/vocdoni/acpoll/internal/testutil"
	"github.com/vocdoni/acpoll/service"
	"github.com/vocdoni/acpoll/storage"
	"github.com/vocdoni/acpoll/types"
)

var coordinator = testutil.DeterministicAddress(1)

func setupService(c *qt.C) (*service.Service, *chain.Manual, types.PollID) {
	stg := storage.New(metadb.NewTest(c))
	c.Cleanup(stg.Close)
	height := chain.NewManual(100)
	svc := service.New(service.DefaultConfig(), stg, height, service.ShapeVerifier{}, nil)

	c.Assert(svc.RegisterCoordinator(coordinator, testutil.RandomPublicKey(), testutil.VerifyKey()), qt.IsNil)
	config := testutil.PollConfig()
	config.SignupPeriod = 10
	config.VotingPeriod = 10
	p, err := svc.CreatePoll(coordinator, config)
	c.Assert(err, qt.IsNil)
	_, err = svc.RegisterParticipant(p.Index, coordinator, testutil.RandomPublicKey())
	c.Assert(err, qt.IsNil)
	return svc, height, p.Index
}

func TestFinalizeOnDemand(t *testing.T) {
	c := qt.New(t)
	svc, height, id := setupService(c)

	f := New(svc)
	f.Start(t.Context(), 0, nil)
	defer f.Close()

	height.Set(120)
	f.OndemandCh <- id
	c.Assert(f.WaitUntilMerged(t.Context(), id), qt.IsNil)

	p, err := svc.Poll(id)
	c.Assert(err, qt.IsNil)
	c.Assert(p.IsMerged(), qt.IsTrue)
	c.Assert(p.State.Commitment.ExpectedProcess, qt.Equals, uint32(0))
	c.Assert(p.State.Commitment.ExpectedTally, qt.Equals, uint32(1))
}

func TestFinalizeByHeight(t *testing.T) {
	c := qt.New(t)
	svc, height, id := setupService(c)

	blocks := make(chan types.BlockNumber, 1)
	f := New(svc)
	f.Start(t.Context(), 0, blocks)
	defer f.Close()

	// Not over yet, nothing to merge.
	f.finalizeOver(119)
	c.Assert(f.OndemandCh, qt.HasLen, 0)

	height.Set(120)
	blocks <- 120
	c.Assert(f.WaitUntilMerged(t.Context(), id), qt.IsNil)

	// Merged polls are not queued again.
	f.finalizeOver(121)
	c.Assert(f.OndemandCh, qt.HasLen, 0)
}

func TestFinalizeSkipsNullified(t *testing.T) {
	c := qt.New(t)
	svc, _, id := setupService(c)
	c.Assert(svc.Nullify(id, coordinator), qt.IsNil)

	f := New(svc)
	f.finalizeOver(1000)
	f.finalizeOver(1001)
	c.Assert(f.OndemandCh, qt.HasLen, 0)
	c.Assert(f.settled, qt.HasLen, 1)
}

func TestFinalizeQueuesOnce(t *testing.T) {
	c := qt.New(t)
	svc, height, id := setupService(c)
	height.Set(120)

	f := New(svc)
	f.finalizeOver(120)
	f.finalizeOver(121)
	f.finalizeOver(122)
	c.Assert(f.OndemandCh, qt.HasLen, 1)

	f.process(<-f.OndemandCh)
	p, err := svc.Poll(id)
	c.Assert(err, qt.IsNil)
	c.Assert(p.IsMerged(), qt.IsTrue)
	c.Assert(f.pending, qt.HasLen, 0)
	c.Assert(f.settled, qt.HasLen, 1)

	f.finalizeOver(123)
	c.Assert(f.OndemandCh, qt.HasLen, 0)
}

func TestFinalizeRetriesFailedMerge(t *testing.T) {
	c := qt.New(t)
	svc, _, id := setupService(c)

	f := New(svc)
	// Still in its voting period, the merge fails and the poll is not settled.
	f.pending[id] = struct{}{}
	f.process(id)
	c.Assert(f.pending, qt.HasLen, 0)
	c.Assert(f.settled, qt.HasLen, 0)
}

func TestWaitUntilMergedTimeout(t *testing.T) {
	c := qt.New(t)
	svc, _, id := setupService(c)

	f := New(svc)
	f.Start(t.Context(), 0, nil)
	defer f.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()
	c.Assert(f.WaitUntilMerged(ctx, id), qt.ErrorMatches, "timeout waiting for poll 1 to be merged.*")
}
