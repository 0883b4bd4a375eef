package storage

import (
	"github.com/vocdoni/acpoll/db"
	"github.com/vocdoni/acpoll/types"
)

// Height returns the last block height recorded with SetHeight, or zero.
func (s *Storage) Height() (types.BlockNumber, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	var height types.BlockNumber
	if err := getArtifact(s.db, counterPrefix, heightKey, &height); err != nil && err != ErrNotFound {
		return 0, err
	}
	return height, nil
}

// SetHeight records the block height the node has reached. Lower heights
// are ignored so a node never resumes behind a stored poll.
func (s *Storage) SetHeight(height types.BlockNumber) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return db.Update(s.db, func(tx db.WriteTx) error {
		var stored types.BlockNumber
		if err := getArtifact(tx, counterPrefix, heightKey, &stored); err != nil && err != ErrNotFound {
			return err
		}
		if height <= stored {
			return nil
		}
		return setArtifact(tx, counterPrefix, heightKey, height)
	})
}
