package poll

import (
	"fmt"

	"github.com/vocdoni/acpoll/types"
)

// Phase is the lifecycle stage of a poll at a given height.
type Phase uint8

const (
	PhasePending Phase = iota
	PhaseRegistration
	PhaseVoting
	PhaseClosed
	PhaseMerged
	PhaseProven
	PhaseFulfilled
	PhaseNullified
)

var phaseNames = map[Phase]string{
	PhasePending:      "pending",
	PhaseRegistration: "registration",
	PhaseVoting:       "voting",
	PhaseClosed:       "closed",
	PhaseMerged:       "merged",
	PhaseProven:       "proven",
	PhaseFulfilled:    "fulfilled",
	PhaseNullified:    "nullified",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown poll phase %q", text)
}

// SignupPeriodEnd returns the first height of the voting period.
func (p *Poll) SignupPeriodEnd() types.BlockNumber {
	return p.CreatedAt + p.Config.SignupPeriod
}

// VotingPeriodEnd returns the first height after the voting period.
func (p *Poll) VotingPeriodEnd() types.BlockNumber {
	return p.SignupPeriodEnd() + p.Config.VotingPeriod
}

// IsRegistrationPeriod reports whether participants may register at now.
func (p *Poll) IsRegistrationPeriod(now types.BlockNumber) bool {
	return now >= p.CreatedAt && now < p.SignupPeriodEnd()
}

// IsVotingPeriod reports whether interactions are accepted at now.
func (p *Poll) IsVotingPeriod(now types.BlockNumber) bool {
	return now >= p.SignupPeriodEnd() && now < p.VotingPeriodEnd()
}

// IsOver reports whether the voting period has ended at now.
func (p *Poll) IsOver(now types.BlockNumber) bool {
	return now >= p.VotingPeriodEnd()
}

// IsMerged reports whether both accumulators have been finalized.
func (p *Poll) IsMerged() bool {
	return p.State.Registrations.IsFinalized() && p.State.Interactions.IsFinalized()
}

// IsProven reports whether every expected batch proof has been accepted,
// that is the process and tally indexes reached their expected counts.
// It is stricter than comparing the counts alone: expected counts are only
// known after merging, so an unmerged poll is never proven, even though its
// indexes and expected counts are all zero.
func (p *Poll) IsProven() bool {
	c := p.State.Commitment
	return p.IsMerged() &&
		c.Process.Index == c.ExpectedProcess &&
		c.Tally.Index == c.ExpectedTally
}

// IsNullified reports whether the poll has been abandoned.
func (p *Poll) IsNullified() bool {
	return p.State.Tombstone
}

// IsFulfilled reports whether the poll has a verified outcome or has been
// nullified.
func (p *Poll) IsFulfilled() bool {
	return p.State.Outcome != nil || p.IsNullified()
}

// RegistrationLimitReached reports whether no more participants fit.
func (p *Poll) RegistrationLimitReached() bool {
	return p.State.Registrations.Count >= p.Config.MaxRegistrations-1
}

// InteractionLimitReached reports whether no more interactions fit.
func (p *Poll) InteractionLimitReached() bool {
	return p.State.Interactions.Count >= p.Config.MaxInteractions
}

// Phase returns the lifecycle stage of the poll at now.
func (p *Poll) Phase(now types.BlockNumber) Phase {
	switch {
	case p.IsNullified():
		return PhaseNullified
	case p.IsFulfilled():
		return PhaseFulfilled
	case p.IsProven():
		return PhaseProven
	case p.IsMerged():
		return PhaseMerged
	case p.IsOver(now):
		return PhaseClosed
	case p.IsVotingPeriod(now):
		return PhaseVoting
	case p.IsRegistrationPeriod(now):
		return PhaseRegistration
	default:
		return PhasePending
	}
}

// IsOngoing reports whether a poll created at createdAt with the given
// periods still blocks its coordinator from creating another one. Both ends
// of the interval are included.
func IsOngoing(now, createdAt, signupPeriod, votingPeriod types.BlockNumber) bool {
	return now >= createdAt && now <= createdAt+signupPeriod+votingPeriod
}
