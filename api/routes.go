package api

import (
	"fmt"
	"net/url"
	"strings"
)

// Route constants for the API endpoints

const (
	// Health endpoints
	PingEndpoint   = "/ping"   // Health check endpoint
	HeightEndpoint = "/height" // GET: current block height

	// AccountHeader carries the address of the caller. Authenticating it is
	// left to the gateway in front of the node.
	AccountHeader = "X-Account"

	// Coordinator endpoints
	AddressURLParam         = "address"                                 // URL parameter for a coordinator address
	CoordinatorsEndpoint    = "/coordinators"                           // POST: register the caller as coordinator
	CoordinatorEndpoint     = "/coordinators/{" + AddressURLParam + "}" // GET: coordinator keys and polls
	CoordinatorKeysEndpoint = CoordinatorEndpoint + "/keys"             // PUT: rotate coordinator keys

	// Poll endpoints
	PollURLParam          = "pollId"                        // URL parameter for a poll index
	CommitmentQueryParam  = "commitment"                    // URL query param for the new commitment of a proof
	PollsEndpoint         = "/polls"                        // GET: list polls, POST: create a poll
	PollEndpoint          = "/polls/{" + PollURLParam + "}" // GET: poll info
	RegistrationsEndpoint = PollEndpoint + "/registrations" // POST: register a participant
	InteractionsEndpoint  = PollEndpoint + "/interactions"  // POST: submit an interaction
	MergeEndpoint         = PollEndpoint + "/merge"         // POST: merge both accumulators
	InputsEndpoint        = PollEndpoint + "/inputs"        // GET: public inputs of the next proof
	ProofsEndpoint        = PollEndpoint + "/proofs"        // POST: submit a batch proof
	OutcomeEndpoint       = PollEndpoint + "/outcome"       // POST: submit the outcome
	NullifyEndpoint       = PollEndpoint + "/nullify"       // POST: nullify the poll
)

// EndpointWithParam creates an endpoint URL by replacing the parameter
// placeholder with the actual value. Used to build fully qualified
// endpoint URLs.
func EndpointWithParam(path, key, param string) string {
	rawKey := fmt.Sprintf("{%s}", key)

	if strings.Contains(path, rawKey) {
		return strings.Replace(path, rawKey, url.PathEscape(param), 1)
	}

	// Fallback: add as query param
	escapedKey := url.QueryEscape(key)
	escapedVal := url.QueryEscape(param)

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	return fmt.Sprintf("%s%s%s=%s", path, sep, escapedKey, escapedVal)
}

// LogExcludedPrefixes defines URL prefixes to exclude from request logging
var LogExcludedPrefixes = []string{
	PingEndpoint,
	HeightEndpoint,
}
