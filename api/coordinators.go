package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// registerCoordinator registers the caller as a coordinator.
//
// POST /coordinators
func (a *API) registerCoordinator(w http.ResponseWriter, r *http.Request) {
	who, err := callerAccount(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req := &RegisterCoordinatorRequest{}
	if err := decodeBody(r, req); err != nil {
		writeError(w, err)
		return
	}
	if err := a.svc.RegisterCoordinator(who, req.PublicKey, req.VerifyKey); err != nil {
		writeError(w, err)
		return
	}
	httpWriteOK(w)
}

// coordinator returns the keys and polls of a coordinator.
//
// GET /coordinators/{address}
func (a *API) coordinator(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, AddressURLParam))
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := a.svc.Coordinator(addr)
	if err != nil {
		writeError(w, err)
		return
	}
	ids, err := a.svc.CoordinatorPolls(addr)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, &CoordinatorResponse{
		Address:   addr,
		PublicKey: c.PublicKey,
		VerifyKey: c.VerifyKey,
		Polls:     ids,
	})
}

// rotateKeys replaces the keys of the calling coordinator.
//
// PUT /coordinators/{address}/keys
func (a *API) rotateKeys(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, AddressURLParam))
	if err != nil {
		writeError(w, err)
		return
	}
	who, err := callerAccount(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if who != addr {
		ErrUnauthorized.Withf("%s may not rotate the keys of %s", who.Hex(), addr.Hex()).Write(w)
		return
	}
	req := &RotateKeysRequest{}
	if err := decodeBody(r, req); err != nil {
		writeError(w, err)
		return
	}
	if req.PublicKey == nil && req.VerifyKey == nil {
		ErrMalformedBody.With("no key to rotate").Write(w)
		return
	}
	if err := a.svc.RotateKeys(who, req.PublicKey, req.VerifyKey); err != nil {
		writeError(w, err)
		return
	}
	httpWriteOK(w)
}
