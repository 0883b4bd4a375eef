package poll

import (
	"fmt"

	"github.com/vocdoni/acpoll/crypto/hash/poseidon"
	"github.com/vocdoni/acpoll/log"
	"github.com/vocdoni/acpoll/merkle"
	"github.com/vocdoni/acpoll/types"
)

// RegisterParticipant adds a participant to the registration accumulator
// and returns the new number of registrations with the updated poll.
func (p *Poll) RegisterParticipant(now types.BlockNumber, pk types.PublicKey, timestamp uint64) (uint32, *Poll, error) {
	if !p.IsRegistrationPeriod(now) {
		return 0, nil, fmt.Errorf("%w: height %d", ErrNotRegistrationPeriod, now)
	}
	if err := pk.Validate(); err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	leaf, err := RegistrationLeaf(pk, timestamp)
	if err != nil {
		return 0, nil, err
	}
	next := p.Clone()
	if _, err := next.State.Registrations.Insert(leaf); err != nil {
		return 0, nil, fmt.Errorf("could not register participant: %w", err)
	}
	log.Debugw("participant registered",
		"poll", p.Index,
		"count", next.State.Registrations.Count,
		"leaf", leaf.String())
	return next.State.Registrations.Count, next, nil
}

// ConsumeInteraction adds an interaction to the interaction accumulator and
// returns the new number of interactions with the updated poll.
func (p *Poll) ConsumeInteraction(now types.BlockNumber, pk types.PublicKey, data types.InteractionData) (uint32, *Poll, error) {
	if !p.IsVotingPeriod(now) {
		return 0, nil, fmt.Errorf("%w: height %d", ErrNotVotingPeriod, now)
	}
	if err := pk.Validate(); err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	leaf, err := InteractionLeaf(pk, data)
	if err != nil {
		return 0, nil, err
	}
	next := p.Clone()
	if _, err := next.State.Interactions.Insert(leaf); err != nil {
		return 0, nil, fmt.Errorf("could not consume interaction: %w", err)
	}
	log.Debugw("interaction consumed",
		"poll", p.Index,
		"count", next.State.Interactions.Count,
		"leaf", leaf.String())
	return next.State.Interactions.Count, next, nil
}

// MergeRegistrations finalizes the registration accumulator, fixes the
// number of expected tally batches and sets the initial process commitment,
// Poseidon(registrationRoot, emptyBallotRoot, 0). Merging a poll whose
// registrations are already finalized returns it unchanged.
func (p *Poll) MergeRegistrations(now types.BlockNumber) (*Poll, error) {
	if !p.IsOver(now) {
		return nil, fmt.Errorf("%w: voting ends at %d", ErrPollNotOver, p.VotingPeriodEnd())
	}
	next := p.Clone()
	if p.State.Registrations.IsFinalized() {
		return next, nil
	}
	registrations := next.State.Registrations
	root, err := registrations.Merge(false)
	if err != nil {
		return nil, err
	}
	ballotRoot, err := merkle.EmptyBallotRoot(registrations.Depth, p.Config.VoteOptionTreeDepth)
	if err != nil {
		return nil, err
	}
	commitment, err := poseidon.Hash(root, ballotRoot, types.HashBytes{})
	if err != nil {
		return nil, err
	}
	next.State.Commitment.Process = ProofState{Index: 0, Hash: commitment}
	next.State.Commitment.ExpectedTally = ExpectedTallyBatches(
		registrations.Count, registrations.BatchSize(p.Config.TallySubtreeDepth))
	log.Debugw("registrations merged",
		"poll", p.Index,
		"root", root.String(),
		"expectedTally", next.State.Commitment.ExpectedTally)
	return next, nil
}

// MergeInteractions finalizes the interaction accumulator and fixes the
// number of expected process batches. Merging a poll whose interactions are
// already finalized returns it unchanged.
func (p *Poll) MergeInteractions(now types.BlockNumber) (*Poll, error) {
	if !p.IsOver(now) {
		return nil, fmt.Errorf("%w: voting ends at %d", ErrPollNotOver, p.VotingPeriodEnd())
	}
	next := p.Clone()
	if p.State.Interactions.IsFinalized() {
		return next, nil
	}
	interactions := next.State.Interactions
	root, err := interactions.Merge(true)
	if err != nil {
		return nil, err
	}
	next.State.Commitment.ExpectedProcess = ExpectedProcessBatches(
		interactions.Count, interactions.BatchSize(p.Config.ProcessSubtreeDepth))
	log.Debugw("interactions merged",
		"poll", p.Index,
		"root", root.String(),
		"expectedProcess", next.State.Commitment.ExpectedProcess)
	return next, nil
}

// Nullify marks the poll as abandoned. It is legal in any state and the
// poll is fulfilled from then on.
func (p *Poll) Nullify() *Poll {
	next := p.Clone()
	next.State.Tombstone = true
	return next
}

// WithCommitment returns a copy of the poll with the given commitment
// ledger, as produced by PreparePublicInputs once its proof is accepted.
func (p *Poll) WithCommitment(c Commitment) *Poll {
	next := p.Clone()
	next.State.Commitment = c
	return next
}
