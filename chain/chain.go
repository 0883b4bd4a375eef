// Package chain provides the block height the poll lifecycle is measured
// against.
package chain

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vocdoni/acpoll/log"
	"github.com/vocdoni/acpoll/types"
)

// HeightSource returns the current block height. Heights never decrease.
type HeightSource interface {
	Height() types.BlockNumber
}

// Manual is a height source moved by hand, used by tests and tooling.
type Manual struct {
	height atomic.Uint64
}

// NewManual returns a Manual source at the given height.
func NewManual(height types.BlockNumber) *Manual {
	m := &Manual{}
	m.height.Store(uint64(height))
	return m
}

func (m *Manual) Height() types.BlockNumber {
	return types.BlockNumber(m.height.Load())
}

// Set moves the height forward. Lower heights are ignored.
func (m *Manual) Set(height types.BlockNumber) {
	for {
		current := m.height.Load()
		if uint64(height) <= current || m.height.CompareAndSwap(current, uint64(height)) {
			return
		}
	}
}

// Advance increases the height by n and returns the new height.
func (m *Manual) Advance(n uint64) types.BlockNumber {
	return types.BlockNumber(m.height.Add(n))
}

// Local produces a new block every BlockTime while started.
type Local struct {
	BlockTime time.Duration

	height atomic.Uint64
	wg     sync.WaitGroup
	mu     sync.Mutex
	cancel context.CancelFunc
	// subscribers are notified of every new height without blocking.
	subscribers []chan types.BlockNumber
}

// NewLocal returns a local chain starting at height.
func NewLocal(blockTime time.Duration, height types.BlockNumber) *Local {
	l := &Local{BlockTime: blockTime}
	l.height.Store(uint64(height))
	return l
}

func (l *Local) Height() types.BlockNumber {
	return types.BlockNumber(l.height.Load())
}

// Subscribe returns a channel receiving new heights. Heights are dropped if
// the channel is full.
func (l *Local) Subscribe() <-chan types.BlockNumber {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch := make(chan types.BlockNumber, 16)
	l.subscribers = append(l.subscribers, ch)
	return ch
}

// Start produces blocks until ctx is done or Stop is called.
func (l *Local) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}
	ctx, l.cancel = context.WithCancel(ctx)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(l.BlockTime)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.produce()
			case <-ctx.Done():
				return
			}
		}
	}()
	log.Infow("local chain started", "height", l.Height(), "blockTime", l.BlockTime.String())
}

func (l *Local) produce() {
	height := types.BlockNumber(l.height.Add(1))
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ch := range l.subscribers {
		select {
		case ch <- height:
		default:
		}
	}
}

// Stop halts block production and waits for the producer to exit.
func (l *Local) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	l.wg.Wait()
	log.Infow("local chain stopped", "height", l.Height())
}
