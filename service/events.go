package service

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/vocdoni/acpoll/log"
	"github.com/vocdoni/acpoll/poll"
	"github.com/vocdoni/acpoll/types"
)

// EventKind names what happened.
type EventKind string

const (
	EventCoordinatorRegistered EventKind = "CoordinatorRegistered"
	EventCoordinatorKeyChanged EventKind = "CoordinatorKeyChanged"
	EventPollCreated           EventKind = "PollCreated"
	EventParticipantRegistered EventKind = "ParticipantRegistered"
	EventInteractionSubmitted  EventKind = "InteractionSubmitted"
	EventRegistrationsMerged   EventKind = "RegistrationsMerged"
	EventInteractionsMerged    EventKind = "InteractionsMerged"
	EventProofAccepted         EventKind = "ProofAccepted"
	EventPollFulfilled         EventKind = "PollFulfilled"
	EventPollNullified         EventKind = "PollNullified"
)

// Event is emitted by every successful dispatch. Fields that do not apply to
// the kind are left zero.
type Event struct {
	ID         uuid.UUID           `json:"id"`
	Kind       EventKind           `json:"kind"`
	Height     types.BlockNumber   `json:"height"`
	Who        common.Address      `json:"who"`
	Poll       types.PollID        `json:"poll,omitempty"`
	Count      uint32              `json:"count,omitempty"`
	StartsAt   types.BlockNumber   `json:"startsAt,omitempty"`
	EndsAt     types.BlockNumber   `json:"endsAt,omitempty"`
	Root       *types.HashBytes    `json:"root,omitempty"`
	Circuit    *poll.Circuit       `json:"circuit,omitempty"`
	Commitment *poll.Commitment    `json:"commitment,omitempty"`
	Outcome    *types.OutcomeIndex `json:"outcome,omitempty"`
	PublicKey  *types.PublicKey    `json:"publicKey,omitempty"`
	VerifyKey  *types.VerifyKey    `json:"verifyKey,omitempty"`
}

// EventSink receives the events emitted by the service.
type EventSink interface {
	Emit(Event)
}

// ChanSink delivers events on a buffered channel. Events are dropped, with
// a warning, when the buffer is full.
type ChanSink struct {
	ch chan Event
}

// NewChanSink returns a sink buffering up to size events.
func NewChanSink(size int) *ChanSink {
	return &ChanSink{ch: make(chan Event, size)}
}

func (s *ChanSink) Emit(e Event) {
	select {
	case s.ch <- e:
	default:
		log.Warnw("event dropped, sink full", "kind", string(e.Kind), "id", e.ID.String())
	}
}

// Events returns the channel events are delivered on.
func (s *ChanSink) Events() <-chan Event {
	return s.ch
}

type discardSink struct{}

func (discardSink) Emit(Event) {}
