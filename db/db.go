// Package db defines the key-value database used to persist polls and
// coordinators, and the write transactions used to update them.
package db

import (
	"errors"
	"io"
)

const (
	TypePebble  = "pebble"
	TypeLevelDB = "leveldb"
	TypeInMem   = "inmem"
)

var (
	// ErrKeyNotFound is returned by Get when the key is not set.
	ErrKeyNotFound = errors.New("key not found")
	// ErrConflict is returned by Commit when another transaction wrote a
	// key this one depends on.
	ErrConflict = errors.New("transaction conflict")
	// ErrTxClosed is returned when using a committed or discarded
	// transaction.
	ErrTxClosed = errors.New("transaction already committed or discarded")
)

// Options configures a database backend.
type Options struct {
	Path string
}

// Reader reads keys. Returned slices are owned by the caller.
type Reader interface {
	Get(key []byte) ([]byte, error)
	// Iterate calls callback for every key with the given prefix in
	// ascending order, stopping when it returns false. Keys are passed
	// without the prefix stripped.
	Iterate(prefix []byte, callback func(key, value []byte) bool) error
}

// WriteTx groups writes that are applied atomically on Commit. Reads see
// the pending writes of the transaction.
type WriteTx interface {
	Reader
	Set(key, value []byte) error
	Delete(key []byte) error
	// Apply copies every key set in other into this transaction.
	Apply(other WriteTx) error
	Commit() error
	// Discard drops the pending writes. It is safe to call after Commit.
	Discard()
}

// Database is a key-value store.
type Database interface {
	io.Closer
	Reader
	WriteTx() WriteTx
	Compact() error
}

// Update runs fn inside a new write transaction and commits it if fn
// succeeds.
func Update(database Database, fn func(tx WriteTx) error) error {
	tx := database.WriteTx()
	defer tx.Discard()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// PrefixEnd returns the smallest key greater than every key with the given
// prefix, or nil if there is none.
func PrefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
