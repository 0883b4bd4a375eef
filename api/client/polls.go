package client

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/acpoll/api"
	"github.com/vocdoni/acpoll/poll"
	"github.com/vocdoni/acpoll/types"
)

// Ping checks the node answers.
func (c *HTTPclient) Ping() error {
	return c.call(http.MethodGet, nil, nil, nil, api.PingEndpoint)
}

// Height returns the current block height of the node.
func (c *HTTPclient) Height() (types.BlockNumber, error) {
	resp := &api.HeightResponse{}
	if err := c.call(http.MethodGet, nil, resp, nil, api.HeightEndpoint); err != nil {
		return 0, err
	}
	return resp.Height, nil
}

// RegisterCoordinator registers the client account as coordinator.
func (c *HTTPclient) RegisterCoordinator(pk types.PublicKey, vk types.VerifyKey) error {
	req := &api.RegisterCoordinatorRequest{PublicKey: pk, VerifyKey: vk}
	return c.call(http.MethodPost, req, nil, nil, api.CoordinatorsEndpoint)
}

// Coordinator returns the keys and polls of a coordinator.
func (c *HTTPclient) Coordinator(addr common.Address) (*api.CoordinatorResponse, error) {
	resp := &api.CoordinatorResponse{}
	if err := c.call(http.MethodGet, nil, resp, nil, addressPath(api.CoordinatorEndpoint, addr)); err != nil {
		return nil, err
	}
	return resp, nil
}

// RotateKeys replaces the keys of the client account. Nil keys are kept.
func (c *HTTPclient) RotateKeys(pk *types.PublicKey, vk *types.VerifyKey) error {
	req := &api.RotateKeysRequest{PublicKey: pk, VerifyKey: vk}
	return c.call(http.MethodPut, req, nil, nil, addressPath(api.CoordinatorKeysEndpoint, c.account))
}

// Polls returns the indexes of every poll.
func (c *HTTPclient) Polls() ([]types.PollID, error) {
	resp := &api.PollList{}
	if err := c.call(http.MethodGet, nil, resp, nil, api.PollsEndpoint); err != nil {
		return nil, err
	}
	return resp.Polls, nil
}

// CreatePoll creates a poll coordinated by the client account.
func (c *HTTPclient) CreatePoll(config types.PollConfig) (*api.PollResponse, error) {
	resp := &api.PollResponse{}
	if err := c.call(http.MethodPost, &config, resp, nil, api.PollsEndpoint); err != nil {
		return nil, err
	}
	return resp, nil
}

// Poll returns a poll.
func (c *HTTPclient) Poll(id types.PollID) (*api.PollResponse, error) {
	resp := &api.PollResponse{}
	if err := c.call(http.MethodGet, nil, resp, nil, pollPath(api.PollEndpoint, id)); err != nil {
		return nil, err
	}
	return resp, nil
}

// Register registers a participant key and returns the number of
// registrations.
func (c *HTTPclient) Register(id types.PollID, pk types.PublicKey) (uint32, error) {
	resp := &api.CountResponse{}
	req := &api.RegistrationRequest{PublicKey: pk}
	if err := c.call(http.MethodPost, req, resp, nil, pollPath(api.RegistrationsEndpoint, id)); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Interact submits an encrypted interaction and returns the number of
// interactions.
func (c *HTTPclient) Interact(id types.PollID, pk types.PublicKey, data types.InteractionData) (uint32, error) {
	resp := &api.CountResponse{}
	req := &api.InteractionRequest{PublicKey: pk, Data: data}
	if err := c.call(http.MethodPost, req, resp, nil, pollPath(api.InteractionsEndpoint, id)); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Merge finalizes both accumulators of a poll that is over.
func (c *HTTPclient) Merge(id types.PollID) (*api.PollResponse, error) {
	resp := &api.PollResponse{}
	if err := c.call(http.MethodPost, nil, resp, nil, pollPath(api.MergeEndpoint, id)); err != nil {
		return nil, err
	}
	return resp, nil
}

// PublicInputs returns the public inputs of the next batch proof for the
// given new commitment.
func (c *HTTPclient) PublicInputs(id types.PollID, commitment types.HashBytes) (*poll.PublicInputs, error) {
	resp := &poll.PublicInputs{}
	params := []string{api.CommitmentQueryParam, commitment.String()}
	if err := c.call(http.MethodGet, nil, resp, params, pollPath(api.InputsEndpoint, id)); err != nil {
		return nil, err
	}
	return resp, nil
}

// SubmitProof submits the next batch proof of a poll and returns the public
// inputs it was verified against.
func (c *HTTPclient) SubmitProof(id types.PollID, proof types.HexBytes, commitment types.HashBytes) (*poll.PublicInputs, error) {
	resp := &poll.PublicInputs{}
	req := &api.ProofRequest{Proof: proof, Commitment: commitment}
	if err := c.call(http.MethodPost, req, resp, nil, pollPath(api.ProofsEndpoint, id)); err != nil {
		return nil, err
	}
	return resp, nil
}

// SubmitOutcome submits the outcome of a proven poll and returns the
// winning option.
func (c *HTTPclient) SubmitOutcome(id types.PollID, outcome *types.PollOutcome) (types.OutcomeIndex, error) {
	resp := &api.OutcomeResponse{}
	if err := c.call(http.MethodPost, outcome, resp, nil, pollPath(api.OutcomeEndpoint, id)); err != nil {
		return 0, err
	}
	return resp.Outcome, nil
}

// Nullify abandons a poll coordinated by the client account.
func (c *HTTPclient) Nullify(id types.PollID) error {
	return c.call(http.MethodPost, nil, nil, nil, pollPath(api.NullifyEndpoint, id))
}
