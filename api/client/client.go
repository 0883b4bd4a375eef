// Package client is an HTTP client of the poll node API.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/acpoll/api"
	"github.com/vocdoni/acpoll/crypto/signatures/ethereum"
	"github.com/vocdoni/acpoll/log"
	"github.com/vocdoni/acpoll/types"
)

const (
	// DefaultRetries this enables Request() to handle the situation where the server connection fails
	DefaultRetries = 3
	// DefaultTimeout is the default timeout for the HTTP client
	DefaultTimeout = 10 * time.Second

	retryDelay = 500 * time.Millisecond
)

// APIError is returned for every response with a status other than 200.
type APIError struct {
	Status  int
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// IsCode reports whether err is an APIError carrying the code of apiErr.
func IsCode(err error, apiErr api.Error) bool {
	var e *APIError
	return errors.As(err, &e) && e.Code == apiErr.Code
}

// HTTPclient is the poll node API HTTP client. Requests are sent on behalf
// of an account, given in the account header.
type HTTPclient struct {
	c       *http.Client
	host    *url.URL
	account common.Address
	signer  *ethereum.Signer
	retries int
}

// New returns a client of the node at host, after checking it answers.
func New(host string) (*HTTPclient, error) {
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, err
	}
	tr := &http.Transport{
		IdleConnTimeout:    DefaultTimeout,
		DisableCompression: false,
		WriteBufferSize:    1 * 1024 * 1024, // 1 MiB
		ReadBufferSize:     1 * 1024 * 1024, // 1 MiB
	}
	c := &HTTPclient{
		c:       &http.Client{Transport: tr, Timeout: DefaultTimeout},
		host:    hostURL,
		retries: DefaultRetries,
	}
	log.Debugw("http client created", "host", hostURL.String())
	if err := c.Ping(); err != nil {
		return nil, err
	}
	return c, nil
}

// WithAccount returns a copy of the client acting as account.
func (c *HTTPclient) WithAccount(account common.Address) *HTTPclient {
	cp := *c
	cp.account = account
	return &cp
}

// WithSigner returns a copy of the client acting as the signer account and
// signing every request, for nodes that require signed requests.
func (c *HTTPclient) WithSigner(s *ethereum.Signer) *HTTPclient {
	cp := *c
	cp.account = s.Address()
	cp.signer = s
	return &cp
}

// Account returns the account the client acts as.
func (c *HTTPclient) Account() common.Address {
	return c.account
}

// SetRetries configures the number of retries for the HTTP client.
func (c *HTTPclient) SetRetries(n int) {
	c.retries = max(n, 1)
}

// SetTimeout configures the timeout for the HTTP client.
func (c *HTTPclient) SetTimeout(d time.Duration) {
	c.c.Timeout = d
	if tr, ok := c.c.Transport.(*http.Transport); ok {
		tr.ResponseHeaderTimeout = d
	}
}

// Request performs a raw request to the endpoint specified by urlPath.
// Returns the response body, the status code and an error.
//
// Supports query parameters via params. If the slice is not empty, it should contain pairs of strings;
// the first element of each pair is the key, and the second element is the value.
func (c *HTTPclient) Request(method string, jsonBody any, params []string, urlPath ...string) ([]byte, int, error) {
	var (
		body []byte
		err  error
	)
	if jsonBody != nil {
		body, err = json.Marshal(jsonBody)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal JSON: %w", err)
		}
	}

	u := *c.host
	u.Path = path.Join(u.Path, path.Join(urlPath...))
	// Expecting even-length slice: [key1, val1, key2, val2, ...]
	if len(params) > 0 {
		values := url.Values{}
		for i := 0; i < len(params)-1; i += 2 {
			values.Set(params[i], params[i+1])
		}
		u.RawQuery = values.Encode()
	}

	headers := http.Header{}
	if jsonBody != nil {
		headers.Set("Content-Type", "application/json")
		headers.Set("Accept", "application/json")
	}
	if c.account != (common.Address{}) {
		headers.Set(api.AccountHeader, c.account.Hex())
	}
	if c.signer != nil {
		if err := c.sign(headers, method, u.RequestURI(), body); err != nil {
			return nil, 0, err
		}
	}

	log.Debugw("http client request",
		"type", method,
		"url", u.String(),
		"body", func() string {
			if len(body) > 512 {
				return string(body[:512]) + "..."
			}
			return string(body)
		}(),
	)

	var resp *http.Response
	for i := 1; i <= c.retries; i++ {
		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(body)
		}
		req, rerr := http.NewRequest(method, u.String(), reqBody)
		if rerr != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", rerr)
		}
		req.Header = headers

		resp, err = c.c.Do(req)
		if err != nil {
			log.Warnw("http request failed", "error", err.Error(), "attempt", i, "retries", c.retries)
			time.Sleep(retryDelay)
			continue
		}
		break
	}
	if err != nil {
		return nil, 0, fmt.Errorf("http request ultimately failed after retries: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, resp.StatusCode, nil
}

// sign adds the signature headers of a request.
func (c *HTTPclient) sign(headers http.Header, method, requestURI string, body []byte) error {
	if !strings.HasPrefix(requestURI, "/") {
		requestURI = "/" + requestURI
	}
	ts := time.Now().Unix()
	sig, err := c.signer.Sign(api.RequestMessage(method, requestURI, ts, body))
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}
	headers.Set(api.SignatureHeader, sig.Hex())
	headers.Set(api.TimestampHeader, strconv.FormatInt(ts, 10))
	return nil
}

// call performs a request and decodes a successful JSON response into out,
// which may be nil.
func (c *HTTPclient) call(method string, body, out any, params []string, urlPath ...string) error {
	data, status, err := c.Request(method, body, params, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		apiErr := &APIError{Status: status}
		if jerr := json.Unmarshal(data, apiErr); jerr != nil {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func pollPath(endpoint string, id types.PollID) string {
	return api.EndpointWithParam(endpoint, api.PollURLParam, strconv.FormatUint(uint64(id), 10))
}

func addressPath(endpoint string, addr common.Address) string {
	return api.EndpointWithParam(endpoint, api.AddressURLParam, addr.Hex())
}
