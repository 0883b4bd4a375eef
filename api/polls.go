package api

import (
	"net/http"

	"github.com/vocdoni/acpoll/types"
)

// polls lists the indexes of every poll.
//
// GET /polls
func (a *API) polls(w http.ResponseWriter, r *http.Request) {
	ids, err := a.svc.Polls()
	if err != nil {
		writeError(w, err)
		return
	}
	if ids == nil {
		ids = []types.PollID{}
	}
	httpWriteJSON(w, &PollList{Polls: ids})
}

// newPoll creates a poll coordinated by the caller.
//
// POST /polls
func (a *API) newPoll(w http.ResponseWriter, r *http.Request) {
	who, err := callerAccount(r)
	if err != nil {
		writeError(w, err)
		return
	}
	config := &types.PollConfig{}
	if err := decodeBody(r, config); err != nil {
		writeError(w, err)
		return
	}
	p, err := a.svc.CreatePoll(who, *config)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, pollResponse(p, a.svc.Height()))
}

// poll returns a poll.
//
// GET /polls/{pollId}
func (a *API) poll(w http.ResponseWriter, r *http.Request) {
	id, err := pollIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := a.svc.Poll(id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, pollResponse(p, a.svc.Height()))
}

// registerParticipant registers a participant key in a poll.
//
// POST /polls/{pollId}/registrations
func (a *API) registerParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := pollIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	who, err := callerAccount(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req := &RegistrationRequest{}
	if err := decodeBody(r, req); err != nil {
		writeError(w, err)
		return
	}
	count, err := a.svc.RegisterParticipant(id, who, req.PublicKey)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, &CountResponse{Count: count})
}

// submitInteraction adds an encrypted interaction to a poll.
//
// POST /polls/{pollId}/interactions
func (a *API) submitInteraction(w http.ResponseWriter, r *http.Request) {
	id, err := pollIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	who, err := callerAccount(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req := &InteractionRequest{}
	if err := decodeBody(r, req); err != nil {
		writeError(w, err)
		return
	}
	count, err := a.svc.SubmitInteraction(id, who, req.PublicKey, req.Data)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, &CountResponse{Count: count})
}

// merge finalizes both accumulators of a poll that is over.
//
// POST /polls/{pollId}/merge
func (a *API) merge(w http.ResponseWriter, r *http.Request) {
	id, err := pollIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	who, err := callerAccount(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := a.svc.MergeRegistrations(id, who); err != nil {
		writeError(w, err)
		return
	}
	p, err := a.svc.MergeInteractions(id, who)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, pollResponse(p, a.svc.Height()))
}

// publicInputs returns the public inputs of the next batch proof of a poll
// for the commitment given as query parameter.
//
// GET /polls/{pollId}/inputs?commitment=<hex>
func (a *API) publicInputs(w http.ResponseWriter, r *http.Request) {
	id, err := pollIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	raw := r.URL.Query().Get(CommitmentQueryParam)
	if raw == "" {
		ErrMalformedParam.Withf("missing %s", CommitmentQueryParam).Write(w)
		return
	}
	commitment, err := types.HashBytesFromHex(raw)
	if err != nil {
		ErrMalformedParam.Withf("%s: %v", CommitmentQueryParam, err).Write(w)
		return
	}
	inputs, err := a.svc.PublicInputs(id, commitment)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, inputs)
}

// submitProof verifies the next batch proof of a poll.
//
// POST /polls/{pollId}/proofs
func (a *API) submitProof(w http.ResponseWriter, r *http.Request) {
	id, err := pollIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	who, err := callerAccount(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req := &ProofRequest{}
	if err := decodeBody(r, req); err != nil {
		writeError(w, err)
		return
	}
	inputs, err := a.svc.SubmitProof(id, who, req.Proof, req.Commitment)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, inputs)
}

// submitOutcome records the verified outcome of a poll.
//
// POST /polls/{pollId}/outcome
func (a *API) submitOutcome(w http.ResponseWriter, r *http.Request) {
	id, err := pollIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	who, err := callerAccount(r)
	if err != nil {
		writeError(w, err)
		return
	}
	outcome := &types.PollOutcome{}
	if err := decodeBody(r, outcome); err != nil {
		writeError(w, err)
		return
	}
	winner, err := a.svc.SubmitOutcome(id, who, outcome)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, &OutcomeResponse{Outcome: winner})
}

// nullify abandons a poll.
//
// POST /polls/{pollId}/nullify
func (a *API) nullify(w http.ResponseWriter, r *http.Request) {
	id, err := pollIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	who, err := callerAccount(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.svc.Nullify(id, who); err != nil {
		writeError(w, err)
		return
	}
	httpWriteOK(w)
}
