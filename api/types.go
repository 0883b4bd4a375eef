package api

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/acpoll/merkle"
	"github.com/vocdoni/acpoll/poll"
	"github.com/vocdoni/acpoll/types"
)

// RegisterCoordinatorRequest is the body of a coordinator registration.
type RegisterCoordinatorRequest struct {
	PublicKey types.PublicKey `json:"publicKey"`
	VerifyKey types.VerifyKey `json:"verifyKey"`
}

// RotateKeysRequest holds the keys to replace. Omitted keys are kept.
type RotateKeysRequest struct {
	PublicKey *types.PublicKey `json:"publicKey,omitempty"`
	VerifyKey *types.VerifyKey `json:"verifyKey,omitempty"`
}

// CoordinatorResponse describes a registered coordinator.
type CoordinatorResponse struct {
	Address   common.Address  `json:"address"`
	PublicKey types.PublicKey `json:"publicKey"`
	VerifyKey types.VerifyKey `json:"verifyKey"`
	Polls     []types.PollID  `json:"polls"`
}

// AccumulatorInfo summarizes a poll accumulator.
type AccumulatorInfo struct {
	Count     uint32           `json:"count"`
	MaxLeaves uint32           `json:"maxLeaves"`
	Root      *types.HashBytes `json:"root,omitempty"`
}

func accumulatorInfo(t *merkle.Tree) AccumulatorInfo {
	return AccumulatorInfo{Count: t.Count, MaxLeaves: t.MaxLeaves, Root: t.Root}
}

// PollResponse describes a poll at the current height.
type PollResponse struct {
	Index           types.PollID        `json:"index"`
	Coordinator     common.Address      `json:"coordinator"`
	CreatedAt       types.BlockNumber   `json:"createdAt"`
	SignupPeriodEnd types.BlockNumber   `json:"signupPeriodEnd"`
	VotingPeriodEnd types.BlockNumber   `json:"votingPeriodEnd"`
	Phase           poll.Phase          `json:"phase"`
	Config          types.PollConfig    `json:"config"`
	Registrations   AccumulatorInfo     `json:"registrations"`
	Interactions    AccumulatorInfo     `json:"interactions"`
	Commitment      poll.Commitment     `json:"commitment"`
	Outcome         *types.OutcomeIndex `json:"outcome,omitempty"`
}

func pollResponse(p *poll.Poll, now types.BlockNumber) *PollResponse {
	return &PollResponse{
		Index:           p.Index,
		Coordinator:     p.Coordinator,
		CreatedAt:       p.CreatedAt,
		SignupPeriodEnd: p.SignupPeriodEnd(),
		VotingPeriodEnd: p.VotingPeriodEnd(),
		Phase:           p.Phase(now),
		Config:          p.Config,
		Registrations:   accumulatorInfo(p.State.Registrations),
		Interactions:    accumulatorInfo(p.State.Interactions),
		Commitment:      p.State.Commitment,
		Outcome:         p.State.Outcome,
	}
}

// PollList is the list of poll indexes.
type PollList struct {
	Polls []types.PollID `json:"polls"`
}

// RegistrationRequest is the body of a participant registration.
type RegistrationRequest struct {
	PublicKey types.PublicKey `json:"publicKey"`
}

// InteractionRequest is the body of an interaction submission.
type InteractionRequest struct {
	PublicKey types.PublicKey       `json:"publicKey"`
	Data      types.InteractionData `json:"data"`
}

// CountResponse returns the size of an accumulator after an insertion.
type CountResponse struct {
	Count uint32 `json:"count"`
}

// ProofRequest is the body of a batch proof submission.
type ProofRequest struct {
	Proof      types.HexBytes  `json:"proof"`
	Commitment types.HashBytes `json:"commitment"`
}

// OutcomeResponse returns the winning option of a fulfilled poll.
type OutcomeResponse struct {
	Outcome types.OutcomeIndex `json:"outcome"`
}

// HeightResponse returns the current block height.
type HeightResponse struct {
	Height types.BlockNumber `json:"height"`
}
