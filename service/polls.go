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

// CreatePoll creates a poll coordinated by who, starting at the current
// height. A coordinator may not create a poll while its previous one is
// ongoing.
func (s *Service) CreatePoll(who common.Address, config types.PollConfig) (*poll.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.stg.Coordinator(who); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCoordinatorNotRegistered, who.Hex())
		}
		return nil, err
	}
	ids, err := s.stg.CoordinatorPollIDs(who)
	if err != nil {
		return nil, err
	}
	if s.cfg.MaxCoordinatorPolls > 0 && len(ids) >= s.cfg.MaxCoordinatorPolls {
		return nil, fmt.Errorf("%w: %d polls created", ErrCoordinatorMayNotCreatePolls, len(ids))
	}

	now := s.heights.Height()
	last, err := s.stg.LastCoordinatorPoll(who)
	switch {
	case err == nil:
		if poll.IsOngoing(now, last.CreatedAt, last.Config.SignupPeriod, last.Config.VotingPeriod) {
			return nil, fmt.Errorf("%w: poll %d ends at %d", ErrPollOngoing, last.Index, last.VotingPeriodEnd())
		}
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}

	index, err := s.stg.NextPollIndex()
	if err != nil {
		return nil, err
	}
	p, err := poll.New(index, who, now, config)
	if err != nil {
		return nil, err
	}
	if err := s.stg.NewPoll(p); err != nil {
		return nil, fmt.Errorf("failed to store poll %d: %w", index, err)
	}
	log.Infow("poll created",
		"poll", p.Index,
		"coordinator", who.Hex(),
		"startsAt", p.SignupPeriodEnd(),
		"endsAt", p.VotingPeriodEnd())
	s.emit(Event{
		Kind:     EventPollCreated,
		Height:   now,
		Who:      who,
		Poll:     p.Index,
		StartsAt: p.SignupPeriodEnd(),
		EndsAt:   p.VotingPeriodEnd(),
	})
	return p, nil
}

func notFulfilled(p *poll.Poll) (*poll.Poll, error) {
	if p.IsFulfilled() {
		return nil, fmt.Errorf("%w: poll %d", ErrPollFulfilled, p.Index)
	}
	return p, nil
}

func coordinatedBy(who common.Address) storage.PollUpdate {
	return func(p *poll.Poll) (*poll.Poll, error) {
		if p.Coordinator != who {
			return nil, fmt.Errorf("%w: poll %d", ErrNotCoordinator, p.Index)
		}
		return p, nil
	}
}

// RegisterParticipant registers pk in a poll during its registration
// period and returns the number of registrations. The registration
// timestamp is the current height.
func (s *Service) RegisterParticipant(id types.PollID, who common.Address, pk types.PublicKey) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.heights.Height()
	var count uint32
	_, err := s.stg.UpdatePoll(id, notFulfilled, func(p *poll.Poll) (*poll.Poll, error) {
		var next *poll.Poll
		var err error
		count, next, err = p.RegisterParticipant(now, pk, uint64(now))
		return next, err
	})
	if err != nil {
		return 0, err
	}
	s.emit(Event{Kind: EventParticipantRegistered, Height: now, Who: who, Poll: id, Count: count, PublicKey: &pk})
	return count, nil
}

// SubmitInteraction adds an encrypted interaction to a poll during its
// voting period and returns the number of interactions.
func (s *Service) SubmitInteraction(id types.PollID, who common.Address, pk types.PublicKey, data types.InteractionData) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.heights.Height()
	var count uint32
	_, err := s.stg.UpdatePoll(id, notFulfilled, func(p *poll.Poll) (*poll.Poll, error) {
		var next *poll.Poll
		var err error
		count, next, err = p.ConsumeInteraction(now, pk, data)
		return next, err
	})
	if err != nil {
		return 0, err
	}
	s.emit(Event{Kind: EventInteractionSubmitted, Height: now, Who: who, Poll: id, Count: count})
	return count, nil
}

// MergeRegistrations finalizes the registration accumulator of a poll that
// is over. Anyone may call it; merging twice is a no-op.
func (s *Service) MergeRegistrations(id types.PollID, who common.Address) (*poll.Poll, error) {
	return s.merge(id, who, EventRegistrationsMerged,
		func(p *poll.Poll) *types.HashBytes { return p.State.Registrations.Root },
		(*poll.Poll).MergeRegistrations)
}

// MergeInteractions finalizes the interaction accumulator of a poll that is
// over. Anyone may call it; merging twice is a no-op.
func (s *Service) MergeInteractions(id types.PollID, who common.Address) (*poll.Poll, error) {
	return s.merge(id, who, EventInteractionsMerged,
		func(p *poll.Poll) *types.HashBytes { return p.State.Interactions.Root },
		(*poll.Poll).MergeInteractions)
}

func (s *Service) merge(
	id types.PollID,
	who common.Address,
	kind EventKind,
	root func(*poll.Poll) *types.HashBytes,
	merge func(*poll.Poll, types.BlockNumber) (*poll.Poll, error),
) (*poll.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.heights.Height()
	merged := false
	p, err := s.stg.UpdatePoll(id, func(p *poll.Poll) (*poll.Poll, error) {
		merged = root(p) == nil
		return merge(p, now)
	})
	if err != nil {
		return nil, err
	}
	if merged {
		s.emit(Event{Kind: kind, Height: now, Who: who, Poll: id, Root: root(p), Commitment: &p.State.Commitment})
	}
	return p, nil
}

// PublicInputs returns the public inputs the next batch proof of a poll
// must be verified against, for the given new commitment.
func (s *Service) PublicInputs(id types.PollID, newCommitment types.HashBytes) (*poll.PublicInputs, error) {
	p, err := s.stg.Poll(id)
	if err != nil {
		return nil, err
	}
	coordinator, err := s.Coordinator(p.Coordinator)
	if err != nil {
		return nil, err
	}
	inputs, ok := p.PreparePublicInputs(*coordinator, newCommitment)
	if !ok {
		return nil, fmt.Errorf("%w: poll %d", ErrNothingToProve, id)
	}
	return inputs, nil
}

// SubmitProof verifies the next batch proof of a poll and, once accepted,
// moves its commitment ledger to newCommitment. Only the poll coordinator
// may submit proofs.
func (s *Service) SubmitProof(id types.PollID, who common.Address, proof []byte, newCommitment types.HashBytes) (*poll.PublicInputs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coordinator, err := s.Coordinator(who)
	if err != nil {
		return nil, err
	}
	var inputs *poll.PublicInputs
	_, err = s.stg.UpdatePoll(id, coordinatedBy(who), notFulfilled, func(p *poll.Poll) (*poll.Poll, error) {
		var ok bool
		if inputs, ok = p.PreparePublicInputs(*coordinator, newCommitment); !ok {
			return nil, fmt.Errorf("%w: poll %d", ErrNothingToProve, id)
		}
		if err := s.verifier.Verify(inputs.VerifyKey, proof, inputs); err != nil {
			log.Warnw("proof rejected",
				"poll", id,
				"circuit", inputs.Circuit.String(),
				"error", err.Error())
			return nil, fmt.Errorf("%w: %w", ErrProofRejected, err)
		}
		return p.WithCommitment(inputs.Commitment), nil
	})
	if err != nil {
		return nil, err
	}
	log.Infow("proof accepted",
		"poll", id,
		"circuit", inputs.Circuit.String(),
		"process", inputs.Commitment.Process.Index,
		"tally", inputs.Commitment.Tally.Index)
	s.emit(Event{Kind: EventProofAccepted, Who: who, Poll: id, Circuit: &inputs.Circuit, Commitment: &inputs.Commitment})
	return inputs, nil
}

// SubmitOutcome checks a claimed tally against the last accepted tally
// commitment and records the winning option. Only the poll coordinator may
// submit the outcome, once.
func (s *Service) SubmitOutcome(id types.PollID, who common.Address, outcome *types.PollOutcome) (types.OutcomeIndex, error) {
	if outcome == nil {
		return 0, fmt.Errorf("nil outcome")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.stg.UpdatePoll(id, coordinatedBy(who), notFulfilled, func(p *poll.Poll) (*poll.Poll, error) {
		next, ok := p.RecordOutcome(outcome)
		if !ok {
			log.Warnw("outcome rejected", "poll", id, "proven", p.IsProven())
			return nil, fmt.Errorf("%w: poll %d", ErrOutcomeRejected, id)
		}
		return next, nil
	})
	if err != nil {
		return 0, err
	}
	winner := *p.State.Outcome
	log.Infow("poll fulfilled", "poll", id, "outcome", winner)
	s.emit(Event{Kind: EventPollFulfilled, Who: who, Poll: id, Outcome: &winner})
	return winner, nil
}

// Nullify abandons a poll. Only its coordinator may nullify it, in any
// state.
func (s *Service) Nullify(id types.PollID, who common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.stg.UpdatePoll(id, coordinatedBy(who), func(p *poll.Poll) (*poll.Poll, error) {
		return p.Nullify(), nil
	}); err != nil {
		return err
	}
	log.Infow("poll nullified", "poll", id)
	s.emit(Event{Kind: EventPollNullified, Who: who, Poll: id})
	return nil
}
