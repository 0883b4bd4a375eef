//nolint:lll
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vocdoni/acpoll/poll"
	"github.com/vocdoni/acpoll/service"
	"github.com/vocdoni/acpoll/storage"
	"github.com/vocdoni/acpoll/types"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 403, 404 or 409, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX.
// If you notice there's a gap DON'T fill it in, that code was used in the past and shouldn't be reused.
// There's no correlation between Code and HTTP Status.
var (
	ErrResourceNotFound             = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody                = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrKeyLengthExceeded            = Error{Code: 40012, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("key length exceeded")}
	ErrUnauthorized                 = Error{Code: 40014, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("unauthorized")}
	ErrMalformedParam               = Error{Code: 40015, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed parameter")}
	ErrMalformedAddress             = Error{Code: 40017, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed address")}
	ErrMalformedPollID              = Error{Code: 40023, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed poll ID")}
	ErrPollNotFound                 = Error{Code: 40024, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("poll not found")}
	ErrCoordinatorNotFound          = Error{Code: 40025, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("coordinator not registered")}
	ErrCoordinatorAlreadyRegistered = Error{Code: 40026, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("coordinator already registered")}
	ErrInvalidPublicKey             = Error{Code: 40027, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid public key")}
	ErrInvalidPollConfig            = Error{Code: 40028, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid poll configuration")}
	ErrCoordinatorMayNotCreatePolls = Error{Code: 40029, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("coordinator may not create more polls")}
	ErrPollOngoing                  = Error{Code: 40030, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("coordinator has an ongoing poll")}
	ErrWrongPollPhase               = Error{Code: 40031, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("poll is not in the required phase")}
	ErrPollCapacityExceeded         = Error{Code: 40032, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("poll capacity exceeded")}
	ErrNothingToProve               = Error{Code: 40033, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("nothing to prove")}
	ErrProofRejected                = Error{Code: 40034, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("proof rejected")}
	ErrOutcomeRejected              = Error{Code: 40035, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("outcome rejected")}
	ErrPollFulfilled                = Error{Code: 40036, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("poll already fulfilled")}
	ErrInvalidSignature             = Error{Code: 40037, HTTPstatus: http.StatusUnauthorized, Err: fmt.Errorf("invalid request signature")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrHashUnavailable            = Error{Code: 50003, HTTPstatus: http.StatusServiceUnavailable, Err: fmt.Errorf("hash function unavailable")}
)

// serviceErrors maps the sentinel errors of the lower layers to API errors.
// The first match wins.
var serviceErrors = []struct {
	target error
	apiErr Error
}{
	{storage.ErrNotFound, ErrPollNotFound},
	{service.ErrCoordinatorNotRegistered, ErrCoordinatorNotFound},
	{service.ErrCoordinatorAlreadyRegistered, ErrCoordinatorAlreadyRegistered},
	{service.ErrPublicKeyTooLong, ErrKeyLengthExceeded},
	{service.ErrVerifyKeyTooLong, ErrKeyLengthExceeded},
	{service.ErrCoordinatorMayNotCreatePolls, ErrCoordinatorMayNotCreatePolls},
	{service.ErrPollOngoing, ErrPollOngoing},
	{service.ErrNotCoordinator, ErrUnauthorized},
	{service.ErrNothingToProve, ErrNothingToProve},
	{service.ErrProofRejected, ErrProofRejected},
	{service.ErrOutcomeRejected, ErrOutcomeRejected},
	{service.ErrPollFulfilled, ErrPollFulfilled},
	{poll.ErrInvalidPublicKey, ErrInvalidPublicKey},
	{poll.ErrNotRegistrationPeriod, ErrWrongPollPhase},
	{poll.ErrNotVotingPeriod, ErrWrongPollPhase},
	{poll.ErrPollNotOver, ErrWrongPollPhase},
	{poll.ErrAlreadyFinalized, ErrWrongPollPhase},
	{poll.ErrCapacityExceeded, ErrPollCapacityExceeded},
	{poll.ErrHashUnavailable, ErrHashUnavailable},
	{types.ErrInvalidPollConfig, ErrInvalidPollConfig},
}

// serviceError converts an error returned by the service into an API error.
func serviceError(err error) Error {
	var apiErr Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			return m.apiErr.WithErr(err)
		}
	}
	return ErrGenericInternalServerError.WithErr(err)
}
