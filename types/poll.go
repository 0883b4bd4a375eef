package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"
)

type (
	// BlockNumber is a height of the host chain.
	BlockNumber uint64
	// PollID identifies a poll. Identifiers are assigned sequentially
	// starting at 1.
	PollID uint32
	// OutcomeIndex is the index of a vote option.
	OutcomeIndex uint32
)

const (
	// DefaultTreeArity is the branching factor of the registration and
	// interaction accumulators.
	DefaultTreeArity = 5
	// VoteOptionTreeArity is the branching factor of the tally result tree
	// built by the tally circuit.
	VoteOptionTreeArity = 5
	// InteractionDataLen is the number of field elements of an encrypted
	// interaction payload.
	InteractionDataLen = 10
)

// InteractionData is the encrypted payload of an interaction.
type InteractionData [InteractionDataLen]HashBytes

// ErrInvalidInteractionData is returned when a decoded payload does not hold
// exactly InteractionDataLen elements.
var ErrInvalidInteractionData = errors.New("invalid interaction data")

func (d *InteractionData) set(elems []HashBytes) error {
	if len(elems) != InteractionDataLen {
		return fmt.Errorf("%w: %d elements, want %d", ErrInvalidInteractionData, len(elems), InteractionDataLen)
	}
	copy(d[:], elems)
	return nil
}

// UnmarshalJSON decodes a JSON array of exactly InteractionDataLen hashes.
// Shorter arrays are not zero filled and longer ones are not truncated.
func (d *InteractionData) UnmarshalJSON(data []byte) error {
	var elems []HashBytes
	if err := json.Unmarshal(data, &elems); err != nil {
		return err
	}
	return d.set(elems)
}

// UnmarshalCBOR applies the same length check as UnmarshalJSON.
func (d *InteractionData) UnmarshalCBOR(data []byte) error {
	var elems []HashBytes
	if err := cbor.Unmarshal(data, &elems); err != nil {
		return err
	}
	return d.set(elems)
}

// VoteOption describes one of the choices of a poll.
type VoteOption struct {
	Label string   `json:"label" cbor:"0,keyasint"`
	Data  HexBytes `json:"data,omitempty" cbor:"1,keyasint,omitempty"`
}

// PollConfig holds the immutable parameters of a poll.
type PollConfig struct {
	SignupPeriod          BlockNumber  `json:"signupPeriod" cbor:"0,keyasint"`
	VotingPeriod          BlockNumber  `json:"votingPeriod" cbor:"1,keyasint"`
	VoteOptions           []VoteOption `json:"voteOptions" cbor:"2,keyasint"`
	VoteOptionTreeDepth   uint8        `json:"voteOptionTreeDepth" cbor:"3,keyasint"`
	ProcessSubtreeDepth   uint8        `json:"processSubtreeDepth" cbor:"4,keyasint"`
	TallySubtreeDepth     uint8        `json:"tallySubtreeDepth" cbor:"5,keyasint"`
	RegistrationTreeDepth uint8        `json:"registrationTreeDepth" cbor:"6,keyasint"`
	InteractionTreeDepth  uint8        `json:"interactionTreeDepth" cbor:"7,keyasint"`
	TreeArity             uint32       `json:"treeArity" cbor:"8,keyasint"`
	MaxRegistrations      uint32       `json:"maxRegistrations" cbor:"9,keyasint"`
	MaxInteractions       uint32       `json:"maxInteractions" cbor:"10,keyasint"`
}

// ErrInvalidPollConfig is returned by PollConfig.Validate.
var ErrInvalidPollConfig = errors.New("invalid poll config")

// Arity returns the accumulator arity, falling back to DefaultTreeArity.
func (c *PollConfig) Arity() uint32 {
	if c.TreeArity == 0 {
		return DefaultTreeArity
	}
	return c.TreeArity
}

// Validate checks the poll parameters are consistent with each other.
func (c *PollConfig) Validate() error {
	if c.SignupPeriod == 0 || c.VotingPeriod == 0 {
		return fmt.Errorf("%w: signup and voting periods must be positive", ErrInvalidPollConfig)
	}
	if len(c.VoteOptions) == 0 {
		return fmt.Errorf("%w: no vote options", ErrInvalidPollConfig)
	}
	if c.VoteOptionTreeDepth == 0 {
		return fmt.Errorf("%w: vote option tree depth must be positive", ErrInvalidPollConfig)
	}
	maxOptions, ok := Pow(VoteOptionTreeArity, c.VoteOptionTreeDepth)
	if !ok || uint64(len(c.VoteOptions)) > uint64(maxOptions) {
		return fmt.Errorf("%w: %d vote options do not fit a tree of depth %d",
			ErrInvalidPollConfig, len(c.VoteOptions), c.VoteOptionTreeDepth)
	}
	arity := c.Arity()
	if arity < 2 {
		return fmt.Errorf("%w: tree arity %d", ErrInvalidPollConfig, arity)
	}
	if c.RegistrationTreeDepth == 0 || c.InteractionTreeDepth == 0 {
		return fmt.Errorf("%w: tree depths must be positive", ErrInvalidPollConfig)
	}
	if c.ProcessSubtreeDepth > c.InteractionTreeDepth {
		return fmt.Errorf("%w: process subtree depth %d exceeds interaction tree depth %d",
			ErrInvalidPollConfig, c.ProcessSubtreeDepth, c.InteractionTreeDepth)
	}
	if c.TallySubtreeDepth > c.RegistrationTreeDepth {
		return fmt.Errorf("%w: tally subtree depth %d exceeds registration tree depth %d",
			ErrInvalidPollConfig, c.TallySubtreeDepth, c.RegistrationTreeDepth)
	}
	regCapacity, ok := Pow(arity, c.RegistrationTreeDepth)
	if !ok {
		return fmt.Errorf("%w: registration tree too large", ErrInvalidPollConfig)
	}
	if c.MaxRegistrations < 2 || c.MaxRegistrations > regCapacity {
		return fmt.Errorf("%w: max registrations %d out of range [2, %d]",
			ErrInvalidPollConfig, c.MaxRegistrations, regCapacity)
	}
	msgCapacity, ok := Pow(arity, c.InteractionTreeDepth)
	if !ok {
		return fmt.Errorf("%w: interaction tree too large", ErrInvalidPollConfig)
	}
	if c.MaxInteractions == 0 || c.MaxInteractions > msgCapacity {
		return fmt.Errorf("%w: max interactions %d out of range [1, %d]",
			ErrInvalidPollConfig, c.MaxInteractions, msgCapacity)
	}
	return nil
}

// Pow returns base^exp and whether the result fits in an uint32.
func Pow(base uint32, exp uint8) (uint32, bool) {
	result := uint64(1)
	for range exp {
		result *= uint64(base)
		if result > math.MaxUint32 {
			return 0, false
		}
	}
	return uint32(result), true
}
