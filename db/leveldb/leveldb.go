// Package leveldb is a db.Database backed by syndtr/goleveldb. Write
// transactions buffer their writes in memory and apply them as one leveldb
// batch on commit.
package leveldb

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/vocdoni/acpoll/db"
)

// LevelDB implements db.Database.
type LevelDB struct {
	db *leveldb.DB
}

var _ db.Database = (*LevelDB)(nil)

// New opens, creating it if needed, the database at opts.Path.
func New(opts db.Options) (*LevelDB, error) {
	ldb, err := leveldb.OpenFile(opts.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("could not open leveldb database: %w", err)
	}
	return &LevelDB{db: ldb}, nil
}

func (d *LevelDB) Close() error {
	err := d.db.Close()
	if errors.Is(err, leveldb.ErrClosed) {
		return nil
	}
	return err
}

func (d *LevelDB) Compact() error {
	return d.db.CompactRange(util.Range{})
}

func (d *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := d.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, db.ErrKeyNotFound
	}
	return value, err
}

func (d *LevelDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	iter := d.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		if !callback(bytes.Clone(iter.Key()), bytes.Clone(iter.Value())) {
			break
		}
	}
	return iter.Error()
}

func (d *LevelDB) WriteTx() db.WriteTx {
	return &WriteTx{db: d, pending: make(map[string][]byte)}
}

// WriteTx implements db.WriteTx. A nil pending value is a delete.
type WriteTx struct {
	db      *LevelDB
	pending map[string][]byte
	closed  bool
}

var _ db.WriteTx = (*WriteTx)(nil)

func (tx *WriteTx) Get(key []byte) ([]byte, error) {
	if v, ok := tx.pending[string(key)]; ok {
		if v == nil {
			return nil, db.ErrKeyNotFound
		}
		return bytes.Clone(v), nil
	}
	return tx.db.Get(key)
}

func (tx *WriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	entries := make(map[string][]byte)
	if err := tx.db.Iterate(prefix, func(key, value []byte) bool {
		entries[string(key)] = value
		return true
	}); err != nil {
		return err
	}
	for k, v := range tx.pending {
		if !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		if v == nil {
			delete(entries, k)
		} else {
			entries[k] = bytes.Clone(v)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(entries)) {
		if !callback([]byte(k), entries[k]) {
			break
		}
	}
	return nil
}

func (tx *WriteTx) Set(key, value []byte) error {
	if tx.closed {
		return db.ErrTxClosed
	}
	if value == nil {
		value = []byte{}
	}
	tx.pending[string(key)] = bytes.Clone(value)
	return nil
}

func (tx *WriteTx) Delete(key []byte) error {
	if tx.closed {
		return db.ErrTxClosed
	}
	tx.pending[string(key)] = nil
	return nil
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
	batch := new(leveldb.Batch)
	for k, v := range tx.pending {
		if v == nil {
			batch.Delete([]byte(k))
		} else {
			batch.Put([]byte(k), v)
		}
	}
	if err := tx.db.db.Write(batch, nil); err != nil {
		return err
	}
	tx.closed = true
	return nil
}

func (tx *WriteTx) Discard() {
	tx.closed = true
	clear(tx.pending)
}
