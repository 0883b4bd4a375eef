package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/acpoll/log"
	"github.com/vocdoni/acpoll/types"
)

// maxRequestBodySize bounds the size of decoded request bodies.
const maxRequestBodySize = 4 << 20

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data any) {
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err.Error())
		return
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err.Error())
		return
	}
	if !DisabledLogging && log.Level() == log.LogLevelDebug {
		log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
	}
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err.Error())
	}
}

// decodeBody decodes the JSON body of r into out, rejecting unknown fields.
func decodeBody(r *http.Request, out any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return ErrMalformedBody.WithErr(err)
	}
	return nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, ErrMalformedAddress.Withf("%q", s)
	}
	return common.HexToAddress(s), nil
}

// callerAccount returns the address of the caller from the account header.
func callerAccount(r *http.Request) (common.Address, error) {
	value := r.Header.Get(AccountHeader)
	if value == "" {
		return common.Address{}, ErrMalformedAddress.Withf("missing %s header", AccountHeader)
	}
	return parseAddress(value)
}

// pollIDParam returns the poll index of the URL.
func pollIDParam(r *http.Request) (types.PollID, error) {
	raw := chi.URLParam(r, PollURLParam)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, ErrMalformedPollID.Withf("%q", raw)
	}
	return types.PollID(id), nil
}

// writeError writes err as an API error.
func writeError(w http.ResponseWriter, err error) {
	apiErr := serviceError(err)
	if apiErr.HTTPstatus >= http.StatusInternalServerError {
		log.Errorw(err, "api request failed")
	}
	apiErr.Write(w)
}
