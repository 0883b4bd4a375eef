package api

import (
	"bytes"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vocdoni/acpoll/log"
)

// DisabledLogging turns the request logging middleware off.
var DisabledLogging = false

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	MaxBodyLog       int
	ExcludedPrefixes []string // URL path prefixes to exclude from logging
}

// shouldSkipLogging reports whether r is left out of the debug request log.
// Requests are only logged at debug level.
func (lc LoggingConfig) shouldSkipLogging(r *http.Request) bool {
	if DisabledLogging || log.Level() != log.LogLevelDebug {
		return true
	}
	return slices.ContainsFunc(lc.ExcludedPrefixes, func(prefix string) bool {
		return strings.HasPrefix(r.URL.Path, prefix)
	})
}

// statusRecorder remembers the first status code written.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	return sr.ResponseWriter.Write(b)
}

// bodySnippet returns the first max bytes of a JSON body for logging, or an
// empty string for anything that does not look like JSON.
func bodySnippet(body []byte, max int) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') || !utf8.Valid(trimmed) {
		return ""
	}
	s := strings.ReplaceAll(string(trimmed), `"`, "")
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}

// loggingMiddleware logs every request and its response status at debug
// level, except for the excluded endpoints.
func loggingMiddleware(maxBodyLog int) func(http.Handler) http.Handler {
	cfg := LoggingConfig{MaxBodyLog: maxBodyLog, ExcludedPrefixes: LogExcludedPrefixes}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.shouldSkipLogging(r) {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			var body []byte
			if r.Body != nil && r.ContentLength != 0 {
				var err error
				if body, err = io.ReadAll(r.Body); err != nil {
					log.Errorw(err, "unable to read request body")
					ErrMalformedBody.WithErr(err).Write(w)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}
			log.Debugw("api request",
				"method", r.Method,
				"url", r.URL.String(),
				"account", r.Header.Get(AccountHeader),
				"body", bodySnippet(body, cfg.MaxBodyLog))

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			log.Debugw("api response",
				"method", r.Method,
				"url", r.URL.String(),
				"status", rec.status,
				"took", time.Since(start).String())
		})
	}
}
