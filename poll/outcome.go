package poll

import (
	"fmt"
	"slices"

	"github.com/vocdoni/acpoll/crypto/hash/poseidon"
	"github.com/vocdoni/acpoll/log"
	"github.com/vocdoni/acpoll/merkle"
	"github.com/vocdoni/acpoll/types"
)

// TallyResultLeaf returns the leaf of a tally result in the result tree: the
// tally as a big-endian integer in the last bytes of the field element.
func TallyResultLeaf(tally uint32) types.HashBytes {
	return types.HashBytesFromUint64(uint64(tally))
}

// VerifyOutcome checks a claimed outcome against the last tally commitment
// and returns the index of the winning option. Each option result must be
// included in the result tree committed by the tally, and the total spent
// voice credits must match the same commitment. The winner is the option
// with the largest tally, the lowest index on ties. It returns false if the
// poll is not proven or any check fails.
func (p *Poll) VerifyOutcome(outcome *types.PollOutcome) (types.OutcomeIndex, bool) {
	if !p.IsProven() || outcome == nil {
		return 0, false
	}
	hasher, err := poseidon.New(2)
	if err != nil {
		log.Warnw("outcome hasher unavailable", "error", err.Error())
		return 0, false
	}
	tallyCommitment := p.State.Commitment.Tally.Hash
	var winner types.OutcomeIndex
	var maxTally uint32
	for i := range p.Config.VoteOptions {
		if i >= len(outcome.TallyResults) || i >= len(outcome.TallyResultProofs) {
			return 0, false
		}
		tally := outcome.TallyResults[i]
		root, err := merkle.ComputeRootFromPath(types.VoteOptionTreeArity, p.Config.VoteOptionTreeDepth,
			uint32(i), TallyResultLeaf(tally), outcome.TallyResultProofs[i])
		if err != nil {
			log.Debugw("invalid tally result path", "poll", p.Index, "option", i, "error", err.Error())
			return 0, false
		}
		resultsCommitment, err := hasher.Hash(root, outcome.TallyResultSalt)
		if err != nil {
			return 0, false
		}
		got, err := hasher.Hash(resultsCommitment, outcome.SpentVotesHash)
		if err != nil || got != tallyCommitment {
			log.Debugw("tally result mismatch", "poll", p.Index, "option", i)
			return 0, false
		}
		if tally > maxTally {
			winner = types.OutcomeIndex(i)
			maxTally = tally
		}
	}
	spent, err := hasher.Hash(outcome.TotalSpent, outcome.TotalSpentSalt)
	if err != nil {
		return 0, false
	}
	got, err := hasher.Hash(outcome.NewResultsCommitment, spent)
	if err != nil || got != tallyCommitment {
		log.Debugw("total spent mismatch", "poll", p.Index)
		return 0, false
	}
	return winner, true
}

// RecordOutcome verifies the outcome and returns a copy of the poll with
// the winning option stored. An outcome can only be recorded once.
func (p *Poll) RecordOutcome(outcome *types.PollOutcome) (*Poll, bool) {
	if p.IsFulfilled() {
		return nil, false
	}
	winner, ok := p.VerifyOutcome(outcome)
	if !ok {
		return nil, false
	}
	next := p.Clone()
	next.State.Outcome = &winner
	return next, true
}

// BuildOutcome assembles the outcome of a tally over a vote option tree of
// the given depth, with inclusion paths for every result. It returns the
// outcome with the tally commitment it opens, the value the last tally
// batch must commit to.
func BuildOutcome(voteOptionDepth uint8, tallies []uint32, resultSalt, spentSalt types.HashBytes) (*types.PollOutcome, types.HashBytes, error) {
	arity := uint32(types.VoteOptionTreeArity)
	capacity, ok := types.Pow(arity, voteOptionDepth)
	if !ok || uint64(len(tallies)) > uint64(capacity) {
		return nil, types.HashBytes{}, fmt.Errorf("%d results do not fit a tree of depth %d", len(tallies), voteOptionDepth)
	}
	hasher, err := poseidon.New(int(arity))
	if err != nil {
		return nil, types.HashBytes{}, err
	}
	// levels[0] holds the leaves, levels[depth] the root.
	levels := make([][]types.HashBytes, voteOptionDepth+1)
	levels[0] = make([]types.HashBytes, capacity)
	total := uint64(0)
	for i, tally := range tallies {
		levels[0][i] = TallyResultLeaf(tally)
		total += uint64(tally)
	}
	for l := range voteOptionDepth {
		below := levels[l]
		level := make([]types.HashBytes, len(below)/int(arity))
		for i := range level {
			if level[i], err = hasher.Hash(below[i*int(arity) : (i+1)*int(arity)]...); err != nil {
				return nil, types.HashBytes{}, err
			}
		}
		levels[l+1] = level
	}

	outcome := &types.PollOutcome{
		TallyResults:      slices.Clone(tallies),
		TallyResultProofs: make([][][]types.HashBytes, len(tallies)),
		TallyResultSalt:   resultSalt,
		TotalSpent:        types.HashBytesFromUint64(total),
		TotalSpentSalt:    spentSalt,
	}
	for i := range tallies {
		index := i
		path := make([][]types.HashBytes, voteOptionDepth)
		for l := range voteOptionDepth {
			start := index - index%int(arity)
			group := levels[l][start : start+int(arity)]
			path[l] = slices.Delete(slices.Clone(group), index%int(arity), index%int(arity)+1)
			index /= int(arity)
		}
		outcome.TallyResultProofs[i] = path
	}
	if outcome.NewResultsCommitment, err = poseidon.Hash(levels[voteOptionDepth][0], resultSalt); err != nil {
		return nil, types.HashBytes{}, err
	}
	if outcome.SpentVotesHash, err = poseidon.Hash(outcome.TotalSpent, spentSalt); err != nil {
		return nil, types.HashBytes{}, err
	}
	commitment, err := poseidon.Hash(outcome.NewResultsCommitment, outcome.SpentVotesHash)
	if err != nil {
		return nil, types.HashBytes{}, err
	}
	return outcome, commitment, nil
}
