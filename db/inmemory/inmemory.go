// Package inmemory is an ephemeral db.Database with optimistic transactions:
// a transaction fails to commit if any key it read or wrote was modified
// after the transaction started.
package inmemory

import (
	"bytes"
	"maps"
	"slices"
	"sync"

	"github.com/vocdoni/acpoll/db"
)

type record struct {
	value   []byte
	version uint64
}

// Database keeps every key in a map. Deleted keys keep their version as a
// tombstone so that conflicting deletes are detected.
type Database struct {
	mu      sync.RWMutex
	records map[string]record
	clock   uint64
}

var _ db.Database = (*Database)(nil)

// New returns an empty database. Options are ignored.
func New(_ db.Options) (*Database, error) {
	return &Database{records: make(map[string]record)}, nil
}

func (d *Database) Close() error   { return nil }
func (d *Database) Compact() error { return nil }

func (d *Database) Get(key []byte) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.records[string(key)]
	if !ok || r.value == nil {
		return nil, db.ErrKeyNotFound
	}
	return bytes.Clone(r.value), nil
}

func (d *Database) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	iterateSorted(d.snapshot(prefix, nil), callback)
	return nil
}

// snapshot copies the live values under prefix, recording their versions in
// versions when it is not nil. Must not be called with d.mu held.
func (d *Database) snapshot(prefix []byte, versions map[string]uint64) map[string][]byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string][]byte)
	for k, r := range d.records {
		if r.value == nil || !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		out[k] = bytes.Clone(r.value)
		if versions != nil {
			if _, seen := versions[k]; !seen {
				versions[k] = r.version
			}
		}
	}
	return out
}

func (d *Database) version(key string) uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.records[key].version
}

func (d *Database) WriteTx() db.WriteTx {
	d.mu.RLock()
	start := d.clock
	d.mu.RUnlock()
	return &WriteTx{
		db:       d,
		start:    start,
		pending:  make(map[string][]byte),
		versions: make(map[string]uint64),
	}
}

// WriteTx buffers writes until Commit. A nil pending value is a delete.
type WriteTx struct {
	db       *Database
	start    uint64
	pending  map[string][]byte
	versions map[string]uint64
	closed   bool
}

var _ db.WriteTx = (*WriteTx)(nil)

func (tx *WriteTx) track(key string) {
	if _, ok := tx.versions[key]; !ok {
		tx.versions[key] = tx.db.version(key)
	}
}

func (tx *WriteTx) Get(key []byte) ([]byte, error) {
	k := string(key)
	if v, ok := tx.pending[k]; ok {
		if v == nil {
			return nil, db.ErrKeyNotFound
		}
		return bytes.Clone(v), nil
	}
	tx.track(k)
	return tx.db.Get(key)
}

func (tx *WriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	entries := tx.db.snapshot(prefix, tx.versions)
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
	iterateSorted(entries, callback)
	return nil
}

func (tx *WriteTx) Set(key, value []byte) error {
	if tx.closed {
		return db.ErrTxClosed
	}
	k := string(key)
	tx.track(k)
	if value == nil {
		value = []byte{}
	}
	tx.pending[k] = bytes.Clone(value)
	return nil
}

func (tx *WriteTx) Delete(key []byte) error {
	if tx.closed {
		return db.ErrTxClosed
	}
	k := string(key)
	tx.track(k)
	tx.pending[k] = nil
	return nil
}

func (tx *WriteTx) Apply(other db.WriteTx) error {
	var err error
	if iterErr := other.Iterate(nil, func(k, v []byte) bool {
		err = tx.Set(k, v)
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
	d := tx.db
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, seen := range tx.versions {
		current := d.records[k].version
		if seen > tx.start || current != seen {
			return db.ErrConflict
		}
	}
	for k, v := range tx.pending {
		d.clock++
		d.records[k] = record{value: v, version: d.clock}
	}
	tx.closed = true
	return nil
}

func (tx *WriteTx) Discard() {
	tx.closed = true
	clear(tx.pending)
	clear(tx.versions)
}

func iterateSorted(entries map[string][]byte, callback func(key, value []byte) bool) {
	for _, k := range slices.Sorted(maps.Keys(entries)) {
		if !callback([]byte(k), entries[k]) {
			return
		}
	}
}
