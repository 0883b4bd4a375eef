package poll

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/acpoll/log"
	"github.com/vocdoni/acpoll/types"
)

// Circuit identifies which of the coordinator circuits a proof targets.
type Circuit uint8

const (
	CircuitProcess Circuit = iota
	CircuitTally
)

func (c Circuit) String() string {
	switch c {
	case CircuitProcess:
		return "process"
	case CircuitTally:
		return "tally"
	default:
		return "unknown"
	}
}

// InputsLen returns the number of public inputs of the circuit.
func (c Circuit) InputsLen() int {
	switch c {
	case CircuitProcess:
		return 9
	case CircuitTally:
		return 5
	default:
		return 0
	}
}

// MarshalText encodes the circuit by name.
func (c Circuit) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a circuit name.
func (c *Circuit) UnmarshalText(text []byte) error {
	switch string(text) {
	case "process":
		*c = CircuitProcess
	case "tally":
		*c = CircuitTally
	default:
		return fmt.Errorf("unknown circuit %q", text)
	}
	return nil
}

// PublicInputs is what the next batch proof must be verified against, and
// the commitment ledger to store once it is.
type PublicInputs struct {
	Circuit    Circuit           `json:"circuit"`
	VerifyKey  types.HexBytes    `json:"verifyKey"`
	Inputs     []types.HashBytes `json:"inputs"`
	Commitment Commitment        `json:"commitment"`
}

// BigInts returns the public inputs as integers.
func (pi *PublicInputs) BigInts() []*big.Int {
	out := make([]*big.Int, len(pi.Inputs))
	for i := range pi.Inputs {
		out[i] = pi.Inputs[i].BigInt()
	}
	return out
}

// ExpectedProcessBatches returns the number of process proofs needed to
// cover count interactions, ceil(count / batchSize).
func ExpectedProcessBatches(count, batchSize uint32) uint32 {
	batches := count / batchSize
	if count%batchSize > 0 {
		batches++
	}
	return batches
}

// ExpectedTallyBatches returns the number of tally proofs needed for count
// registrations plus the reserved first slot, 1 + floor(count / batchSize).
func ExpectedTallyBatches(count, batchSize uint32) uint32 {
	return 1 + count/batchSize
}

// lastBatchStart returns the index of the first interaction of the last
// process batch. A count that is an exact multiple of the batch size ends
// with a full batch.
func lastBatchStart(count, batchSize uint32) uint32 {
	if count == 0 {
		return 0
	}
	if r := count % batchSize; r != 0 {
		return count - r
	}
	return count - batchSize
}

// PreparePublicInputs returns the public inputs of the next batch proof
// together with the commitment ledger that results from accepting it with
// newCommitment. Process batches are proven first, from the last batch of
// interactions down to the first one, then tally batches in ascending
// order. It returns false when there is nothing left to prove or the poll
// is not merged.
func (p *Poll) PreparePublicInputs(coordinator types.Coordinator, newCommitment types.HashBytes) (*PublicInputs, bool) {
	if !p.IsMerged() || p.IsProven() {
		return nil, false
	}
	interactions := p.State.Interactions
	registrations := p.State.Registrations
	commitment := p.State.Commitment
	registrationsWithBlank := types.HashBytesFromUint64(uint64(registrations.Count) + 1)

	batchSize := interactions.BatchSize(p.Config.ProcessSubtreeDepth)
	lastStart := lastBatchStart(interactions.Count, batchSize)
	offset := uint64(commitment.Process.Index) * uint64(batchSize)
	if interactions.Count > 0 && offset <= uint64(lastStart) {
		pkHash, err := PublicKeyHash(coordinator.PublicKey)
		if err != nil {
			log.Warnw("could not hash coordinator key", "poll", p.Index, "error", err.Error())
			return nil, false
		}
		start := lastStart - uint32(offset)
		end := min(start+batchSize, interactions.Count)
		commitment.Process = ProofState{Index: commitment.Process.Index + 1, Hash: newCommitment}
		return &PublicInputs{
			Circuit:   CircuitProcess,
			VerifyKey: coordinator.VerifyKey.Process,
			Inputs: []types.HashBytes{
				registrationsWithBlank,
				types.HashBytesFromUint64(uint64(p.VotingPeriodEnd())),
				*interactions.Root,
				types.HashBytesFromUint64(uint64(registrations.Depth)),
				types.HashBytesFromUint64(uint64(end)),
				types.HashBytesFromUint64(uint64(start)),
				pkHash,
				p.State.Commitment.Process.Hash,
				newCommitment,
			},
			Commitment: commitment,
		}, true
	}

	tallyBatchSize := registrations.BatchSize(p.Config.TallySubtreeDepth)
	start := uint64(commitment.Tally.Index) * uint64(tallyBatchSize)
	if start >= uint64(registrations.Count)+1 {
		return nil, false
	}
	commitment.Tally = ProofState{Index: commitment.Tally.Index + 1, Hash: newCommitment}
	return &PublicInputs{
		Circuit:   CircuitTally,
		VerifyKey: coordinator.VerifyKey.Tally,
		Inputs: []types.HashBytes{
			p.State.Commitment.Process.Hash,
			p.State.Commitment.Tally.Hash,
			newCommitment,
			types.HashBytesFromUint64(start),
			registrationsWithBlank,
		},
		Commitment: commitment,
	}, true
}
