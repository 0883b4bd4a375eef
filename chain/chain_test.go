package chain

import (
	"context"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/acpoll/types"
)

func TestManual(t *testing.T) {
	c := qt.New(t)

	m := NewManual(10)
	c.Assert(m.Height(), qt.Equals, types.BlockNumber(10))
	m.Set(5)
	c.Assert(m.Height(), qt.Equals, types.BlockNumber(10))
	m.Set(20)
	c.Assert(m.Height(), qt.Equals, types.BlockNumber(20))
	c.Assert(m.Advance(3), qt.Equals, types.BlockNumber(23))

	var _ HeightSource = m
}

func TestLocal(t *testing.T) {
	c := qt.New(t)

	l := NewLocal(5*time.Millisecond, 100)
	heights := l.Subscribe()
	l.Start(context.Background())
	l.Start(context.Background())

	select {
	case h := <-heights:
		c.Assert(h > 100, qt.IsTrue)
	case <-time.After(5 * time.Second):
		c.Fatal("no block produced")
	}
	l.Stop()
	stopped := l.Height()
	time.Sleep(20 * time.Millisecond)
	c.Assert(l.Height(), qt.Equals, stopped)
	l.Stop()
}

func TestLocalContextCancel(t *testing.T) {
	c := qt.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	l := NewLocal(time.Hour, 1)
	l.Start(ctx)
	cancel()
	l.Stop()
	c.Assert(l.Height(), qt.Equals, types.BlockNumber(1))
}
