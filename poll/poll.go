// Package poll holds the state of an anti-collusion poll and the operations
// that move it through its lifecycle: participant registration, interaction
// collection, accumulator merging, batch proof accounting and outcome
// verification.
//
// Every operation works on a copy of the poll and returns the updated value.
// The caller decides whether to persist it, which allows discarding the
// result when an external proof check fails.
package poll

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/acpoll/merkle"
	"github.com/vocdoni/acpoll/types"
)

var (
	ErrHashUnavailable  = merkle.ErrHashUnavailable
	ErrCapacityExceeded = merkle.ErrCapacityExceeded
	ErrAlreadyFinalized = merkle.ErrAlreadyFinalized
	ErrMergeFailed      = merkle.ErrMergeFailed

	ErrNotRegistrationPeriod = errors.New("poll is not in its registration period")
	ErrNotVotingPeriod       = errors.New("poll is not in its voting period")
	ErrPollNotOver           = errors.New("poll is not over")
	ErrInvalidPublicKey      = errors.New("invalid public key")
)

// ProofState is the progress of one of the circuits: the number of batch
// proofs accepted so far and the commitment of the last one.
type ProofState struct {
	Index uint32          `json:"index" cbor:"0,keyasint"`
	Hash  types.HashBytes `json:"hash" cbor:"1,keyasint"`
}

// Commitment is the ledger of accepted batch proofs.
type Commitment struct {
	Process         ProofState `json:"process" cbor:"0,keyasint"`
	Tally           ProofState `json:"tally" cbor:"1,keyasint"`
	ExpectedProcess uint32     `json:"expectedProcess" cbor:"2,keyasint"`
	ExpectedTally   uint32     `json:"expectedTally" cbor:"3,keyasint"`
}

// State is the mutable part of a poll.
type State struct {
	Registrations *merkle.Tree        `json:"registrations" cbor:"0,keyasint"`
	Interactions  *merkle.Tree        `json:"interactions" cbor:"1,keyasint"`
	Commitment    Commitment          `json:"commitment" cbor:"2,keyasint"`
	Outcome       *types.OutcomeIndex `json:"outcome,omitempty" cbor:"3,keyasint,omitempty"`
	Tombstone     bool                `json:"tombstone" cbor:"4,keyasint"`
}

// Poll is a poll run by a coordinator.
type Poll struct {
	Index       types.PollID      `json:"index" cbor:"0,keyasint"`
	Coordinator common.Address    `json:"coordinator" cbor:"1,keyasint"`
	CreatedAt   types.BlockNumber `json:"createdAt" cbor:"2,keyasint"`
	Config      types.PollConfig  `json:"config" cbor:"3,keyasint"`
	State       State             `json:"state" cbor:"4,keyasint"`
}

// New validates the configuration and returns a poll with empty
// accumulators. The registration accumulator holds one leaf less than
// MaxRegistrations since the circuits reserve the first state slot.
func New(index types.PollID, coordinator common.Address, createdAt types.BlockNumber, config types.PollConfig) (*Poll, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	registrations, err := merkle.New(config.Arity(), config.RegistrationTreeDepth,
		merkle.WithMaxLeaves(config.MaxRegistrations-1))
	if err != nil {
		return nil, fmt.Errorf("registration accumulator: %w", err)
	}
	interactions, err := merkle.New(config.Arity(), config.InteractionTreeDepth,
		merkle.WithMaxLeaves(config.MaxInteractions))
	if err != nil {
		return nil, fmt.Errorf("interaction accumulator: %w", err)
	}
	return &Poll{
		Index:       index,
		Coordinator: coordinator,
		CreatedAt:   createdAt,
		Config:      config,
		State: State{
			Registrations: registrations,
			Interactions:  interactions,
		},
	}, nil
}

// Clone returns a deep copy of the poll.
func (p *Poll) Clone() *Poll {
	if p == nil {
		return nil
	}
	c := *p
	c.Config.VoteOptions = slices.Clone(p.Config.VoteOptions)
	for i := range c.Config.VoteOptions {
		c.Config.VoteOptions[i].Data = slices.Clone(p.Config.VoteOptions[i].Data)
	}
	c.State.Registrations = p.State.Registrations.Clone()
	c.State.Interactions = p.State.Interactions.Clone()
	if p.State.Outcome != nil {
		outcome := *p.State.Outcome
		c.State.Outcome = &outcome
	}
	return &c
}

// String returns a short description of the poll, used in logs.
func (p *Poll) String() string {
	return fmt.Sprintf("poll %d (coordinator %s, registrations %d, interactions %d)",
		p.Index, p.Coordinator.Hex(), p.State.Registrations.Count, p.State.Interactions.Count)
}
