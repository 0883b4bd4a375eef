package prefixeddb_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/acpoll/db"
	"github.com/vocdoni/acpoll/db/inmemory"
	"github.com/vocdoni/acpoll/db/prefixeddb"
)

func TestPrefixedIsolation(t *testing.T) {
	c := qt.New(t)

	parent, err := inmemory.New(db.Options{})
	c.Assert(err, qt.IsNil)
	polls := prefixeddb.NewPrefixedDatabase(parent, []byte("p/"))
	coordinators := prefixeddb.NewPrefixedDatabase(parent, []byte("c/"))

	c.Assert(db.Update(polls, func(tx db.WriteTx) error {
		return tx.Set([]byte("1"), []byte("poll"))
	}), qt.IsNil)
	c.Assert(db.Update(coordinators, func(tx db.WriteTx) error {
		return tx.Set([]byte("1"), []byte("coordinator"))
	}), qt.IsNil)

	v, err := polls.Get([]byte("1"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(v), qt.Equals, "poll")
	v, err = parent.Get([]byte("c/1"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(v), qt.Equals, "coordinator")

	var keys []string
	c.Assert(polls.Iterate(nil, func(k, _ []byte) bool {
		keys = append(keys, string(k))
		return true
	}), qt.IsNil)
	c.Assert(keys, qt.DeepEquals, []string{"1"})
}

func TestPrefixedWriteTxShared(t *testing.T) {
	c := qt.New(t)

	parent, err := inmemory.New(db.Options{})
	c.Assert(err, qt.IsNil)

	// Two views over one transaction commit together.
	tx := parent.WriteTx()
	c.Assert(prefixeddb.NewPrefixedWriteTx(tx, []byte("a/")).Set([]byte("k"), []byte("1")), qt.IsNil)
	c.Assert(prefixeddb.NewPrefixedWriteTx(tx, []byte("b/")).Set([]byte("k"), []byte("2")), qt.IsNil)
	c.Assert(tx.Commit(), qt.IsNil)

	v, err := parent.Get([]byte("b/k"))
	c.Assert(err, qt.IsNil)
	c.Assert(string(v), qt.Equals, "2")
}
