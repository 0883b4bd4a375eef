// Package service dispatches the calls of coordinators and participants
// against stored polls: every call loads the poll, applies a poll
// operation at the current block height, persists the result and emits an
// event.
package service

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/vocdoni/acpoll/chain"
	"github.com/vocdoni/acpoll/poll"
	"github.com/vocdoni/acpoll/storage"
	"github.com/vocdoni/acpoll/types"
)

// publicKeyLen is the encoded length of a coordinator public key.
const publicKeyLen = 2 * types.HashLen

// Config bounds what coordinators may register and create.
type Config struct {
	// MaxCoordinatorPolls is the number of polls a coordinator may create
	// over its lifetime. Zero means unlimited.
	MaxCoordinatorPolls int
	MaxPublicKeyLength  int
	MaxVerifyKeyLength  int
}

// DefaultConfig returns a configuration with unlimited polls and room for
// typical Groth16 verifying keys.
func DefaultConfig() Config {
	return Config{
		MaxCoordinatorPolls: 0,
		MaxPublicKeyLength:  publicKeyLen,
		MaxVerifyKeyLength:  1 << 16,
	}
}

// Service is the dispatch layer over the poll storage.
type Service struct {
	cfg      Config
	stg      *storage.Storage
	heights  chain.HeightSource
	verifier ProofVerifier
	events   EventSink
	// mu serializes dispatches so checks spanning several records hold
	// until the write.
	mu sync.Mutex
}

// DefaultVerifyKeyCacheSize is the number of converted verifying keys kept
// by the CircomVerifier that New builds when no verifier is given.
const DefaultVerifyKeyCacheSize = 64

// New returns a Service. A nil verifier defaults to a CircomVerifier, so
// proofs are checked unless ShapeVerifier is passed explicitly. A nil sink
// discards events.
func New(cfg Config, stg *storage.Storage, heights chain.HeightSource, verifier ProofVerifier, events EventSink) *Service {
	if verifier == nil {
		circom, err := NewCircomVerifier(DefaultVerifyKeyCacheSize)
		if err != nil {
			panic(fmt.Sprintf("default proof verifier: %v", err))
		}
		verifier = circom
	}
	if events == nil {
		events = discardSink{}
	}
	return &Service{
		cfg:      cfg,
		stg:      stg,
		heights:  heights,
		verifier: verifier,
		events:   events,
	}
}

// Height returns the current block height.
func (s *Service) Height() types.BlockNumber {
	return s.heights.Height()
}

// Poll returns a stored poll.
func (s *Service) Poll(id types.PollID) (*poll.Poll, error) {
	return s.stg.Poll(id)
}

// Polls returns the indexes of every poll.
func (s *Service) Polls() ([]types.PollID, error) {
	return s.stg.ListPolls()
}

// Coordinator returns the keys of a registered coordinator.
func (s *Service) Coordinator(who common.Address) (*types.Coordinator, error) {
	c, err := s.stg.Coordinator(who)
	if err == storage.ErrNotFound {
		return nil, ErrCoordinatorNotRegistered
	}
	return c, err
}

// CoordinatorPolls returns the polls created by a coordinator in creation
// order.
func (s *Service) CoordinatorPolls(who common.Address) ([]types.PollID, error) {
	return s.stg.CoordinatorPollIDs(who)
}

func (s *Service) emit(e Event) {
	e.ID = uuid.New()
	if e.Height == 0 {
		e.Height = s.heights.Height()
	}
	s.events.Emit(e)
}
