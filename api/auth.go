package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/acpoll/crypto/signatures/ethereum"
)

const (
	// SignatureHeader carries the account signature of a request when the
	// node requires signed requests.
	SignatureHeader = "X-Signature"
	// TimestampHeader carries the unix time, in seconds, the request was
	// signed at.
	TimestampHeader = "X-Timestamp"
	// MaxSignatureAge bounds the clock difference accepted between the
	// signer and the node.
	MaxSignatureAge = 5 * time.Minute
)

// RequestMessage returns the message an account signs for a request: the
// method, the request URI, the signing time and the keccak256 of the body,
// one per line.
func RequestMessage(method, requestURI string, timestamp int64, body []byte) []byte {
	return fmt.Appendf(nil, "%s\n%s\n%d\n%x", method, requestURI, timestamp, ethcrypto.Keccak256(body))
}

// signatureMiddleware rejects requests carrying an account header that is
// not backed by a fresh signature of that account. Requests without an
// account header pass through, the handlers that need one reject them.
func signatureMiddleware(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(AccountHeader) == "" {
				next.ServeHTTP(w, r)
				return
			}
			account, err := callerAccount(r)
			if err != nil {
				writeError(w, err)
				return
			}
			sig, err := ethereum.SignatureFromHex(r.Header.Get(SignatureHeader))
			if err != nil {
				ErrInvalidSignature.WithErr(err).Write(w)
				return
			}
			ts, err := strconv.ParseInt(r.Header.Get(TimestampHeader), 10, 64)
			if err != nil {
				ErrInvalidSignature.Withf("malformed %s header", TimestampHeader).Write(w)
				return
			}
			if age := now().Sub(time.Unix(ts, 0)); age > MaxSignatureAge || age < -MaxSignatureAge {
				ErrInvalidSignature.Withf("signature is %s old", age.Truncate(time.Second)).Write(w)
				return
			}
			var body []byte
			if r.Body != nil {
				if body, err = io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize)); err != nil {
					ErrMalformedBody.WithErr(err).Write(w)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}
			if !sig.Verify(RequestMessage(r.Method, r.URL.RequestURI(), ts, body), account) {
				ErrInvalidSignature.Withf("not signed by %s", account.Hex()).Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
