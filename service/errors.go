package service

import "errors"

var (
	ErrCoordinatorAlreadyRegistered = errors.New("coordinator already registered")
	ErrCoordinatorNotRegistered     = errors.New("coordinator not registered")
	ErrCoordinatorMayNotCreatePolls = errors.New("coordinator may not create more polls")
	ErrPublicKeyTooLong             = errors.New("coordinator public key too long")
	ErrVerifyKeyTooLong             = errors.New("coordinator verify key too long")
	ErrPollOngoing                  = errors.New("coordinator has an ongoing poll")
	ErrNotCoordinator               = errors.New("caller is not the poll coordinator")
	ErrNothingToProve               = errors.New("no batch left to prove")
	ErrProofRejected                = errors.New("proof rejected")
	ErrOutcomeRejected              = errors.New("outcome rejected")
	ErrPollFulfilled                = errors.New("poll already fulfilled")
)
