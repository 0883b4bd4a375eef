/*
Package storage persists polls and coordinators in a key-value database.

Records are CBOR encoded and organized under these prefixes:

  - p/  : poll index (4 bytes, big-endian) → poll.Poll
  - c/  : coordinator address → types.Coordinator
  - cp/ : coordinator address → list of poll indexes created by it
  - n/  : singleton keys → number of polls created so far and last block height

Updates are read-modify-write cycles serialized by a global lock, so a
poll returned by an update callback replaces the stored one atomically.
*/
package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vocdoni/acpoll/db"
	"github.com/vocdoni/acpoll/db/prefixeddb"
	"github.com/vocdoni/acpoll/log"
	"github.com/vocdoni/acpoll/types"
)

var (
	ErrKeyAlreadyExists = errors.New("key already exists")
	ErrNotFound         = errors.New("not found")

	pollPrefix            = []byte("p/")
	coordinatorPrefix     = []byte("c/")
	coordinatorPollPrefix = []byte("cp/")
	counterPrefix         = []byte("n/")

	pollCounterKey = []byte("polls")
	heightKey      = []byte("height")
)

const coordinatorCacheSize = 256

// Storage stores polls and coordinators.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
	// coordinators caches decoded coordinator records by address.
	coordinators *lru.Cache[common.Address, types.Coordinator]
}

// New returns a Storage over database.
func New(database db.Database) *Storage {
	cache, err := lru.New[common.Address, types.Coordinator](coordinatorCacheSize)
	if err != nil {
		log.Fatalf("failed to create LRU cache: %v", err)
	}
	return &Storage{
		db:           database,
		coordinators: cache,
	}
}

// Close closes the underlying database.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Errorw(err, "failed to close storage")
	}
}

// getArtifact decodes the record stored at prefix+key into out. It returns
// ErrNotFound if the key is not set.
func getArtifact(r db.Reader, prefix, key []byte, out any) error {
	data, err := r.Get(append(append([]byte{}, prefix...), key...))
	if errors.Is(err, db.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := DecodeArtifact(data, out); err != nil {
		return fmt.Errorf("could not decode artifact: %w", err)
	}
	return nil
}

// setArtifact encodes artifact and stores it at key in the prefixed view of
// tx, without committing.
func setArtifact(tx db.WriteTx, prefix, key []byte, artifact any) error {
	data, err := EncodeArtifact(artifact)
	if err != nil {
		return err
	}
	return prefixeddb.NewPrefixedWriteTx(tx, prefix).Set(key, data)
}

// listKeys returns every key stored under prefix, with the prefix removed.
func (s *Storage) listKeys(prefix []byte) ([][]byte, error) {
	var keys [][]byte
	if err := prefixeddb.NewPrefixedDatabase(s.db, prefix).Iterate(nil, func(k, _ []byte) bool {
		keys = append(keys, append([]byte(nil), k...))
		return true
	}); err != nil {
		return nil, err
	}
	return keys, nil
}
