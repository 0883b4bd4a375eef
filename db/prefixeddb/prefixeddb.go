// Package prefixeddb exposes a key range of a database, or of a write
// transaction, as a database of its own.
package prefixeddb

import (
	"github.com/vocdoni/acpoll/db"
)

func prefixed(prefix, key []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(key))
	return append(append(out, prefix...), key...)
}

func iterate(r db.Reader, prefix, sub []byte, callback func(key, value []byte) bool) error {
	return r.Iterate(prefixed(prefix, sub), func(key, value []byte) bool {
		return callback(key[len(prefix):], value)
	})
}

// PrefixedDatabase prepends a prefix to every key of the parent database.
type PrefixedDatabase struct {
	parent db.Database
	prefix []byte
}

var _ db.Database = (*PrefixedDatabase)(nil)

// NewPrefixedDatabase returns a view of parent restricted to keys starting
// with prefix.
func NewPrefixedDatabase(parent db.Database, prefix []byte) *PrefixedDatabase {
	return &PrefixedDatabase{parent: parent, prefix: prefix}
}

// Close does nothing, the parent database must be closed by its owner.
func (d *PrefixedDatabase) Close() error { return nil }

func (d *PrefixedDatabase) Compact() error { return d.parent.Compact() }

func (d *PrefixedDatabase) Get(key []byte) ([]byte, error) {
	return d.parent.Get(prefixed(d.prefix, key))
}

func (d *PrefixedDatabase) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return iterate(d.parent, d.prefix, prefix, callback)
}

func (d *PrefixedDatabase) WriteTx() db.WriteTx {
	return NewPrefixedWriteTx(d.parent.WriteTx(), d.prefix)
}

// PrefixedWriteTx prepends a prefix to every key of the parent transaction.
type PrefixedWriteTx struct {
	tx     db.WriteTx
	prefix []byte
}

var _ db.WriteTx = (*PrefixedWriteTx)(nil)

// NewPrefixedWriteTx returns a view of tx restricted to keys starting with
// prefix. Committing it commits tx.
func NewPrefixedWriteTx(tx db.WriteTx, prefix []byte) *PrefixedWriteTx {
	return &PrefixedWriteTx{tx: tx, prefix: prefix}
}

func (t *PrefixedWriteTx) Get(key []byte) ([]byte, error) {
	return t.tx.Get(prefixed(t.prefix, key))
}

func (t *PrefixedWriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return iterate(t.tx, t.prefix, prefix, callback)
}

func (t *PrefixedWriteTx) Set(key, value []byte) error {
	return t.tx.Set(prefixed(t.prefix, key), value)
}

func (t *PrefixedWriteTx) Delete(key []byte) error {
	return t.tx.Delete(prefixed(t.prefix, key))
}

// Apply sets every key of other, as seen through other, under this prefix.
func (t *PrefixedWriteTx) Apply(other db.WriteTx) error {
	var err error
	if iterErr := other.Iterate(nil, func(key, value []byte) bool {
		err = t.Set(key, value)
		return err == nil
	}); iterErr != nil {
		return iterErr
	}
	return err
}

func (t *PrefixedWriteTx) Commit() error { return t.tx.Commit() }

func (t *PrefixedWriteTx) Discard() { t.tx.Discard() }
