package storage

import (
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/acpoll/db"
	"github.com/vocdoni/acpoll/poll"
	"github.com/vocdoni/acpoll/types"
)

func cloneCoordinator(c types.Coordinator) *types.Coordinator {
	c.VerifyKey.Process = slices.Clone(c.VerifyKey.Process)
	c.VerifyKey.Tally = slices.Clone(c.VerifyKey.Tally)
	return &c
}

// Coordinator returns the coordinator registered by addr, or ErrNotFound.
func (s *Storage) Coordinator(addr common.Address) (*types.Coordinator, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.coordinatorUnsafe(addr)
}

func (s *Storage) coordinatorUnsafe(addr common.Address) (*types.Coordinator, error) {
	if c, ok := s.coordinators.Get(addr); ok {
		return cloneCoordinator(c), nil
	}
	c := types.Coordinator{}
	if err := getArtifact(s.db, coordinatorPrefix, addr.Bytes(), &c); err != nil {
		return nil, err
	}
	s.coordinators.Add(addr, c)
	return cloneCoordinator(c), nil
}

// NewCoordinator registers a coordinator. It returns ErrKeyAlreadyExists if
// addr is already registered.
func (s *Storage) NewCoordinator(addr common.Address, c *types.Coordinator) error {
	if c == nil {
		return fmt.Errorf("nil coordinator")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	if _, err := s.coordinatorUnsafe(addr); err == nil {
		return fmt.Errorf("%w: coordinator %s", ErrKeyAlreadyExists, addr.Hex())
	} else if err != ErrNotFound {
		return err
	}
	return s.setCoordinatorUnsafe(addr, c)
}

// UpdateCoordinator performs an atomic read-modify-write of a coordinator.
func (s *Storage) UpdateCoordinator(addr common.Address, update func(*types.Coordinator) error) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	c, err := s.coordinatorUnsafe(addr)
	if err != nil {
		return err
	}
	if err := update(c); err != nil {
		return err
	}
	return s.setCoordinatorUnsafe(addr, c)
}

func (s *Storage) setCoordinatorUnsafe(addr common.Address, c *types.Coordinator) error {
	if err := db.Update(s.db, func(tx db.WriteTx) error {
		return setArtifact(tx, coordinatorPrefix, addr.Bytes(), c)
	}); err != nil {
		s.coordinators.Remove(addr)
		return err
	}
	s.coordinators.Add(addr, *cloneCoordinator(*c))
	return nil
}

// CoordinatorPollIDs returns the indexes of the polls created by addr, in
// creation order.
func (s *Storage) CoordinatorPollIDs(addr common.Address) ([]types.PollID, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	var ids []types.PollID
	if err := getArtifact(s.db, coordinatorPollPrefix, addr.Bytes(), &ids); err != nil && err != ErrNotFound {
		return nil, err
	}
	return ids, nil
}

// LastCoordinatorPoll returns the most recent poll created by addr, or
// ErrNotFound if it never created one.
func (s *Storage) LastCoordinatorPoll(addr common.Address) (*poll.Poll, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	var ids []types.PollID
	if err := getArtifact(s.db, coordinatorPollPrefix, addr.Bytes(), &ids); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	return s.pollUnsafe(ids[len(ids)-1])
}
