// Package finalizer merges the accumulators of polls once their voting
// period is over, so coordinators can start proving without a manual merge.
package finalizer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/acpoll/log"
	"github.com/vocdoni/acpoll/service"
	"github.com/vocdoni/acpoll/types"
)

// Account is the caller recorded in the merge events emitted by the
// finalizer.
var Account = common.Address{}

// Finalizer merges polls that are over.
type Finalizer struct {
	svc        *service.Service
	OndemandCh chan types.PollID
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc

	mu sync.Mutex
	// pending holds the polls queued by a scan and not merged yet.
	pending map[types.PollID]struct{}
	// settled holds the polls that are merged, nullified or fulfilled.
	// They never need merging again, so scans skip them without loading.
	settled map[types.PollID]struct{}
}

// New creates a new Finalizer.
func New(svc *service.Service) *Finalizer {
	return &Finalizer{
		svc:        svc,
		OndemandCh: make(chan types.PollID, 64),
		pending:    make(map[types.PollID]struct{}),
		settled:    make(map[types.PollID]struct{}),
	}
}

// Start listens for polls to merge on OndemandCh. Every height received on
// blocks, and every monitorInterval if it is positive, the stored polls are
// scanned and those that are over and not merged are queued.
func (f *Finalizer) Start(ctx context.Context, monitorInterval time.Duration, blocks <-chan types.BlockNumber) {
	f.ctx, f.cancel = context.WithCancel(ctx)

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for {
			select {
			case id := <-f.OndemandCh:
				f.process(id)
			case <-f.ctx.Done():
				return
			}
		}
	}()

	if monitorInterval > 0 || blocks != nil {
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			var tick <-chan time.Time
			if monitorInterval > 0 {
				ticker := time.NewTicker(monitorInterval)
				defer ticker.Stop()
				tick = ticker.C
			}
			for {
				select {
				case <-tick:
					f.finalizeOver(f.svc.Height())
				case height := <-blocks:
					f.finalizeOver(height)
				case <-f.ctx.Done():
					return
				}
			}
		}()
	}
	log.Infow("finalizer started", "interval", monitorInterval.String(), "blocks", blocks != nil)
}

// Close stops the finalizer and waits for its goroutines to exit.
func (f *Finalizer) Close() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	f.cancel = nil

	waitCh := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
		log.Infow("finalizer closed successfully")
	case <-time.After(5 * time.Second):
		log.Warnw("some finalizer goroutines did not exit cleanly")
	}
}

// finalizeOver queues every poll that is over at height and still has an
// open accumulator. A poll already queued is not queued again. Polls are
// skipped when the queue is full; the next scan picks them up.
func (f *Finalizer) finalizeOver(height types.BlockNumber) {
	ids, err := f.svc.Polls()
	if err != nil {
		log.Errorw(err, "could not list polls")
		return
	}
	for _, id := range ids {
		f.mu.Lock()
		_, settled := f.settled[id]
		_, pending := f.pending[id]
		f.mu.Unlock()
		if settled || pending {
			continue
		}
		p, err := f.svc.Poll(id)
		if err != nil {
			log.Errorw(err, fmt.Sprintf("could not retrieve poll %d", id))
			continue
		}
		if p.IsMerged() || p.IsNullified() || p.IsFulfilled() {
			f.settle(id)
			continue
		}
		if !p.IsOver(height) {
			continue
		}
		log.Debugw("found poll to merge", "poll", id, "height", height)
		f.mu.Lock()
		f.pending[id] = struct{}{}
		f.mu.Unlock()
		select {
		case f.OndemandCh <- id:
		default:
			f.mu.Lock()
			delete(f.pending, id)
			f.mu.Unlock()
			log.Warnw("finalizer queue full", "poll", id)
			return
		}
	}
}

func (f *Finalizer) settle(id types.PollID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, id)
	f.settled[id] = struct{}{}
}

// process merges a queued poll and updates the bookkeeping of the scans.
// A failed merge leaves the poll eligible for the next scan.
func (f *Finalizer) process(id types.PollID) {
	if err := f.finalize(id); err != nil {
		log.Errorw(err, fmt.Sprintf("merging poll %d", id))
		f.mu.Lock()
		delete(f.pending, id)
		f.mu.Unlock()
		return
	}
	f.settle(id)
}

// finalize merges both accumulators of a poll. Merging an already merged
// accumulator is a no-op.
func (f *Finalizer) finalize(id types.PollID) error {
	if _, err := f.svc.MergeRegistrations(id, Account); err != nil {
		return fmt.Errorf("could not merge registrations: %w", err)
	}
	p, err := f.svc.MergeInteractions(id, Account)
	if err != nil {
		return fmt.Errorf("could not merge interactions: %w", err)
	}
	log.Infow("merged poll",
		"poll", id,
		"registrations", p.State.Registrations.Count,
		"interactions", p.State.Interactions.Count,
		"expectedProcess", p.State.Commitment.ExpectedProcess,
		"expectedTally", p.State.Commitment.ExpectedTally)
	return nil
}

// WaitUntilMerged blocks until both accumulators of a poll are merged.
func (f *Finalizer) WaitUntilMerged(ctx context.Context, id types.PollID) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 60*time.Second)
		defer cancel()
	}
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		p, err := f.svc.Poll(id)
		if err != nil {
			return fmt.Errorf("could not retrieve poll %d: %w", id, err)
		}
		if p.IsMerged() {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for poll %d to be merged: %w", id, ctx.Err())
		case <-f.ctx.Done():
			return fmt.Errorf("finalizer is shutting down while waiting for poll %d", id)
		}
	}
}
