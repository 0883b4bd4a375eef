// Package dbtest holds the behaviour every db.Database backend must share.
package dbtest

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/acpoll/db"
)

// TestWriteTx checks that writes are only visible after Commit and that a
// discarded transaction leaves the database untouched.
func TestWriteTx(t *testing.T, database db.Database) {
	c := qt.New(t)

	wTx := database.WriteTx()
	_, err := wTx.Get([]byte("a"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)

	c.Assert(wTx.Set([]byte("a"), []byte("b")), qt.IsNil)
	v, err := wTx.Get([]byte("a"))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("b"))

	_, err = database.Get([]byte("a"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
	c.Assert(wTx.Commit(), qt.IsNil)

	v, err = database.Get([]byte("a"))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("b"))

	wTx = database.WriteTx()
	c.Assert(wTx.Delete([]byte("a")), qt.IsNil)
	_, err = wTx.Get([]byte("a"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
	wTx.Discard()

	v, err = database.Get([]byte("a"))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("b"))

	c.Assert(db.Update(database, func(tx db.WriteTx) error {
		return tx.Delete([]byte("a"))
	}), qt.IsNil)
	_, err = database.Get([]byte("a"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
}

// TestIterate checks prefix iteration order, early stop and that pending
// writes are visible from the transaction.
func TestIterate(t *testing.T, database db.Database) {
	c := qt.New(t)

	c.Assert(db.Update(database, func(tx db.WriteTx) error {
		for i := 9; i >= 0; i-- {
			if err := tx.Set(fmt.Appendf(nil, "p/%02d", i), []byte{byte(i)}); err != nil {
				return err
			}
		}
		return tx.Set([]byte("q/00"), []byte{0xff})
	}), qt.IsNil)

	var keys []string
	c.Assert(database.Iterate([]byte("p/"), func(k, v []byte) bool {
		keys = append(keys, string(k))
		return true
	}), qt.IsNil)
	c.Assert(keys, qt.HasLen, 10)
	c.Assert(keys[0], qt.Equals, "p/00")
	c.Assert(keys[9], qt.Equals, "p/09")

	count := 0
	c.Assert(database.Iterate([]byte("p/"), func(k, v []byte) bool {
		count++
		return count < 3
	}), qt.IsNil)
	c.Assert(count, qt.Equals, 3)

	wTx := database.WriteTx()
	defer wTx.Discard()
	c.Assert(wTx.Set([]byte("p/10"), []byte{10}), qt.IsNil)
	c.Assert(wTx.Delete([]byte("p/00")), qt.IsNil)
	keys = nil
	c.Assert(wTx.Iterate([]byte("p/"), func(k, v []byte) bool {
		keys = append(keys, string(k))
		return true
	}), qt.IsNil)
	c.Assert(keys, qt.HasLen, 10)
	c.Assert(keys[0], qt.Equals, "p/01")
	c.Assert(keys[9], qt.Equals, "p/10")
}

// TestWriteTxApply checks that Apply copies the writes of another
// transaction.
func TestWriteTxApply(t *testing.T, database db.Database) {
	c := qt.New(t)

	first := database.WriteTx()
	c.Assert(first.Set([]byte("a"), []byte("1")), qt.IsNil)
	second := database.WriteTx()
	c.Assert(second.Set([]byte("b"), []byte("2")), qt.IsNil)

	c.Assert(first.Apply(second), qt.IsNil)
	second.Discard()
	c.Assert(first.Commit(), qt.IsNil)

	v, err := database.Get([]byte("b"))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("2"))
}

// TestWriteTxApplyPrefixed checks that writes applied through a prefixed
// view land under the prefix of the parent database.
func TestWriteTxApplyPrefixed(t *testing.T, database, prefixed db.Database) {
	c := qt.New(t)

	prefix := []byte("one")
	inner := prefixed.WriteTx()
	c.Assert(inner.Set([]byte("a"), []byte("1")), qt.IsNil)

	outer := prefixed.WriteTx()
	c.Assert(outer.Apply(inner), qt.IsNil)
	inner.Discard()
	c.Assert(outer.Commit(), qt.IsNil)

	v, err := prefixed.Get([]byte("a"))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("1"))

	v, err = database.Get(append(prefix, 'a'))
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte("1"))

	_, err = database.Get([]byte("a"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
}

// TestConcurrentWriteTx checks that concurrent read-modify-write
// transactions on the same key never lose an update.
func TestConcurrentWriteTx(t *testing.T, database db.Database) {
	c := qt.New(t)
	key := []byte("counter")
	c.Assert(db.Update(database, func(tx db.WriteTx) error {
		return tx.Set(key, []byte{0})
	}), qt.IsNil)

	const workers = 8
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				tx := database.WriteTx()
				v, err := tx.Get(key)
				if err != nil {
					tx.Discard()
					t.Error(err)
					return
				}
				if err := tx.Set(key, []byte{v[0] + 1}); err != nil {
					tx.Discard()
					t.Error(err)
					return
				}
				err = tx.Commit()
				tx.Discard()
				if err == nil {
					return
				}
				if !errors.Is(err, db.ErrConflict) {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	v, err := database.Get(key)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.DeepEquals, []byte{workers})
}
