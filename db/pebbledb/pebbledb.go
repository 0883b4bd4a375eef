// Package pebbledb is a db.Database backed by cockroachdb/pebble. Write
// transactions are indexed pebble batches, they are atomic but do not
// detect conflicts with concurrent transactions.
package pebbledb

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/pebble"
	"github.com/vocdoni/acpoll/db"
)

// PebbleDB implements db.Database.
type PebbleDB struct {
	db *pebble.DB
}

var _ db.Database = (*PebbleDB)(nil)

// New opens, creating it if needed, the database at opts.Path.
func New(opts db.Options) (*PebbleDB, error) {
	if err := os.MkdirAll(opts.Path, 0o750); err != nil {
		return nil, fmt.Errorf("could not create database directory: %w", err)
	}
	pdb, err := pebble.Open(opts.Path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("could not open pebble database: %w", err)
	}
	return &PebbleDB{db: pdb}, nil
}

func (d *PebbleDB) Close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

func (d *PebbleDB) Compact() error {
	iter, err := d.db.NewIter(nil)
	if err != nil {
		return err
	}
	var first, last []byte
	if iter.First() {
		first = bytes.Clone(iter.Key())
	}
	if iter.Last() {
		last = bytes.Clone(iter.Key())
	}
	if err := iter.Close(); err != nil {
		return err
	}
	if first == nil {
		return nil
	}
	return d.db.Compact(first, append(last, 0x00), true)
}

type getter interface {
	Get(key []byte) ([]byte, io.Closer, error)
}

func get(g getter, key []byte) ([]byte, error) {
	value, closer, err := g.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return bytes.Clone(value), nil
}

type iterable interface {
	NewIter(o *pebble.IterOptions) (*pebble.Iterator, error)
}

func iterate(it iterable, prefix []byte, callback func(key, value []byte) bool) (err error) {
	iter, err := it.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: db.PrefixEnd(prefix),
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := iter.Close(); err == nil {
			err = cerr
		}
	}()
	for valid := iter.First(); valid; valid = iter.Next() {
		if !callback(bytes.Clone(iter.Key()), bytes.Clone(iter.Value())) {
			break
		}
	}
	return nil
}

func (d *PebbleDB) Get(key []byte) ([]byte, error) {
	return get(d.db, key)
}

func (d *PebbleDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return iterate(d.db, prefix, callback)
}

func (d *PebbleDB) WriteTx() db.WriteTx {
	return &WriteTx{batch: d.db.NewIndexedBatch()}
}

// WriteTx implements db.WriteTx over an indexed pebble batch.
type WriteTx struct {
	batch  *pebble.Batch
	closed bool
}

var _ db.WriteTx = (*WriteTx)(nil)

func (tx *WriteTx) Get(key []byte) ([]byte, error) {
	return get(tx.batch, key)
}

func (tx *WriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return iterate(tx.batch, prefix, callback)
}

func (tx *WriteTx) Set(key, value []byte) error {
	return tx.batch.Set(key, value, nil)
}

func (tx *WriteTx) Delete(key []byte) error {
	return tx.batch.Delete(key, nil)
}

func (tx *WriteTx) Apply(other db.WriteTx) error {
	var err error
	if iterErr := other.Iterate(nil, func(key, value []byte) bool {
		err = tx.Set(key, value)
		return err == nil
	}); iterErr != nil {
		return iterErr
	}
	return err
}

func (tx *WriteTx) Commit() error {
	if tx.closed {
		return db.ErrTxClosed
	}
	return tx.batch.Commit(pebble.Sync)
}

func (tx *WriteTx) Discard() {
	if tx.closed {
		return
	}
	tx.closed = true
	_ = tx.batch.Close()
}
