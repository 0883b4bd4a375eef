package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/vocdoni/acpoll/db"
	"github.com/vocdoni/acpoll/poll"
	"github.com/vocdoni/acpoll/types"
)

// PollUpdate receives the stored poll and returns the poll that replaces it.
type PollUpdate func(*poll.Poll) (*poll.Poll, error)

func pollKey(id types.PollID) []byte {
	return binary.BigEndian.AppendUint32(nil, uint32(id))
}

// Poll returns the poll with the given index, or ErrNotFound.
func (s *Storage) Poll(id types.PollID) (*poll.Poll, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.pollUnsafe(id)
}

func (s *Storage) pollUnsafe(id types.PollID) (*poll.Poll, error) {
	p := &poll.Poll{}
	if err := getArtifact(s.db, pollPrefix, pollKey(id), p); err != nil {
		return nil, err
	}
	return p, nil
}

// PollCount returns the number of polls created so far.
func (s *Storage) PollCount() (uint32, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return pollCount(s.db)
}

func pollCount(r db.Reader) (uint32, error) {
	var count uint32
	err := getArtifact(r, counterPrefix, pollCounterKey, &count)
	if err == ErrNotFound {
		return 0, nil
	}
	return count, err
}

// NextPollIndex returns the index the next created poll will get.
func (s *Storage) NextPollIndex() (types.PollID, error) {
	count, err := s.PollCount()
	if err != nil {
		return 0, err
	}
	return types.PollID(count + 1), nil
}

// NewPoll stores a newly created poll. Its index must be the next one, and
// the poll is appended to the list of polls of its coordinator in the same
// transaction.
func (s *Storage) NewPoll(p *poll.Poll) error {
	if p == nil {
		return fmt.Errorf("nil poll")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	tx := s.db.WriteTx()
	defer tx.Discard()

	count, err := pollCount(tx)
	if err != nil {
		return fmt.Errorf("failed to read poll counter: %w", err)
	}
	if p.Index != types.PollID(count+1) {
		return fmt.Errorf("%w: poll %d, next index is %d", ErrKeyAlreadyExists, p.Index, count+1)
	}
	var ids []types.PollID
	if err := getArtifact(tx, coordinatorPollPrefix, p.Coordinator.Bytes(), &ids); err != nil && err != ErrNotFound {
		return fmt.Errorf("failed to read coordinator polls: %w", err)
	}
	ids = append(ids, p.Index)

	if err := setArtifact(tx, pollPrefix, pollKey(p.Index), p); err != nil {
		return err
	}
	if err := setArtifact(tx, coordinatorPollPrefix, p.Coordinator.Bytes(), ids); err != nil {
		return err
	}
	if err := setArtifact(tx, counterPrefix, pollCounterKey, uint32(p.Index)); err != nil {
		return err
	}
	return tx.Commit()
}

// SetPoll overwrites an existing poll.
func (s *Storage) SetPoll(p *poll.Poll) error {
	if p == nil {
		return fmt.Errorf("nil poll")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	if _, err := s.pollUnsafe(p.Index); err != nil {
		return err
	}
	return db.Update(s.db, func(tx db.WriteTx) error {
		return setArtifact(tx, pollPrefix, pollKey(p.Index), p)
	})
}

// UpdatePoll performs an atomic read-modify-write of a poll. Each update
// receives the result of the previous one; if any fails nothing is stored.
// The stored poll is returned.
func (s *Storage) UpdatePoll(id types.PollID, updates ...PollUpdate) (*poll.Poll, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("no update function provided")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	p, err := s.pollUnsafe(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll %d for update: %w", id, err)
	}
	for _, update := range updates {
		if p, err = update(p); err != nil {
			return nil, err
		}
		if p == nil || p.Index != id {
			return nil, fmt.Errorf("update of poll %d returned another poll", id)
		}
	}
	if err := db.Update(s.db, func(tx db.WriteTx) error {
		return setArtifact(tx, pollPrefix, pollKey(id), p)
	}); err != nil {
		return nil, fmt.Errorf("failed to save updated poll %d: %w", id, err)
	}
	return p, nil
}

// ListPolls returns the indexes of every stored poll in ascending order.
func (s *Storage) ListPolls() ([]types.PollID, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	keys, err := s.listKeys(pollPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]types.PollID, 0, len(keys))
	for _, k := range keys {
		if len(k) != 4 {
			return nil, fmt.Errorf("invalid poll key %x", k)
		}
		ids = append(ids, types.PollID(binary.BigEndian.Uint32(k)))
	}
	return ids, nil
}
