package service

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/acpoll/log"
	"github.com/vocdoni/acpoll/poll"
	"github.com/vocdoni/acpoll/storage"
	"github.com/vocdoni/acpoll/types"
)

func (s *Service) checkPublicKey(pk types.PublicKey) error {
	if s.cfg.MaxPublicKeyLength > 0 && publicKeyLen > s.cfg.MaxPublicKeyLength {
		return fmt.Errorf("%w: %d > %d", ErrPublicKeyTooLong, publicKeyLen, s.cfg.MaxPublicKeyLength)
	}
	if err := pk.Validate(); err != nil {
		return fmt.Errorf("%w: %w", poll.ErrInvalidPublicKey, err)
	}
	return nil
}

func (s *Service) checkVerifyKey(vk types.VerifyKey) error {
	if s.cfg.MaxVerifyKeyLength > 0 && vk.Len() > s.cfg.MaxVerifyKeyLength {
		return fmt.Errorf("%w: %d > %d", ErrVerifyKeyTooLong, vk.Len(), s.cfg.MaxVerifyKeyLength)
	}
	return nil
}

// RegisterCoordinator registers who as a coordinator with the given keys.
// A coordinator may only register once.
func (s *Service) RegisterCoordinator(who common.Address, pk types.PublicKey, vk types.VerifyKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkPublicKey(pk); err != nil {
		return err
	}
	if err := s.checkVerifyKey(vk); err != nil {
		return err
	}
	if err := s.stg.NewCoordinator(who, &types.Coordinator{PublicKey: pk, VerifyKey: vk}); err != nil {
		if errors.Is(err, storage.ErrKeyAlreadyExists) {
			return fmt.Errorf("%w: %s", ErrCoordinatorAlreadyRegistered, who.Hex())
		}
		return fmt.Errorf("failed to store coordinator: %w", err)
	}
	log.Infow("coordinator registered", "address", who.Hex())
	s.emit(Event{Kind: EventCoordinatorRegistered, Who: who})
	return nil
}

// RotateKeys replaces the public key, the verify key or both of a
// registered coordinator. Nil keys are left untouched.
func (s *Service) RotateKeys(who common.Address, pk *types.PublicKey, vk *types.VerifyKey) error {
	if pk == nil && vk == nil {
		return fmt.Errorf("no key to rotate")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if pk != nil {
		if err := s.checkPublicKey(*pk); err != nil {
			return err
		}
	}
	if vk != nil {
		if err := s.checkVerifyKey(*vk); err != nil {
			return err
		}
	}
	err := s.stg.UpdateCoordinator(who, func(c *types.Coordinator) error {
		if pk != nil {
			c.PublicKey = *pk
		}
		if vk != nil {
			c.VerifyKey = *vk
		}
		return nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrCoordinatorNotRegistered, who.Hex())
	}
	if err != nil {
		return fmt.Errorf("failed to update coordinator: %w", err)
	}
	log.Infow("coordinator keys rotated",
		"address", who.Hex(),
		"publicKey", pk != nil,
		"verifyKey", vk != nil)
	s.emit(Event{Kind: EventCoordinatorKeyChanged, Who: who, PublicKey: pk, VerifyKey: vk})
	return nil
}
