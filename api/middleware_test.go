package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/acpoll/log"
)

func TestLoggingMiddlewarePreservesBody(t *testing.T) {
	c := qt.New(t)
	log.Init(log.LogLevelDebug, "stderr", nil)
	c.Cleanup(func() { log.Init(log.LogLevelError, "stderr", nil) })

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	})
	handler := loggingMiddleware(8)(echo)

	for _, body := range []string{
		`{"publicKey": {"x": "0x01", "y": "0x02"}}`,
		`[1, 2, 3]`,
		"\x00\x01\x02\x03",
		"plain text",
		"",
	} {
		req := httptest.NewRequest(http.MethodPost, "/polls/1/registrations", bytes.NewBufferString(body))
		req.Header.Set(AccountHeader, "0x00000000000000000000000000000000000000aa")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		c.Assert(rec.Code, qt.Equals, http.StatusOK)
		c.Assert(rec.Body.String(), qt.Equals, body)
	}
}

func TestShouldSkipLogging(t *testing.T) {
	c := qt.New(t)
	config := LoggingConfig{MaxBodyLog: 100, ExcludedPrefixes: []string{"/ping", "/health"}}

	log.Init(log.LogLevelInfo, "stderr", nil)
	c.Cleanup(func() { log.Init(log.LogLevelError, "stderr", nil) })
	c.Assert(config.shouldSkipLogging(httptest.NewRequest(http.MethodGet, "/polls", nil)), qt.IsTrue)

	log.Init(log.LogLevelDebug, "stderr", nil)
	for path, skip := range map[string]bool{
		"/ping":        true,
		"/healthcheck": true,
		"/polls":       false,
		"/polls/1":     false,
	} {
		c.Assert(config.shouldSkipLogging(httptest.NewRequest(http.MethodGet, path, nil)), qt.Equals, skip, qt.Commentf(path))
	}

	DisabledLogging = true
	c.Cleanup(func() { DisabledLogging = false })
	c.Assert(config.shouldSkipLogging(httptest.NewRequest(http.MethodGet, "/polls", nil)), qt.IsTrue)
}

func TestBodySnippet(t *testing.T) {
	c := qt.New(t)
	c.Assert(bodySnippet([]byte(` {"a": "b"}`), 100), qt.Equals, `{a: b}`)
	c.Assert(bodySnippet([]byte(`[1,2,3,4,5]`), 4), qt.Equals, `[1,2...`)
	c.Assert(bodySnippet([]byte("plain text"), 100), qt.Equals, "")
	c.Assert(bodySnippet([]byte{'{', 0xff}, 100), qt.Equals, "")
	c.Assert(bodySnippet(nil, 100), qt.Equals, "")
}

func TestStatusRecorder(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
	}{
		{
			name: "explicit status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write([]byte("conflict"))
			},
			status: http.StatusConflict,
		},
		{
			name: "implicit status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("ok"))
			},
			status: http.StatusOK,
		},
		{
			name: "first status wins",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.WriteHeader(http.StatusOK)
			},
			status: http.StatusNotFound,
		},
	}
	for _, tc := range tests {
		c.Run(tc.name, func(c *qt.C) {
			rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
			tc.handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			c.Assert(rec.status, qt.Equals, tc.status)
		})
	}
}
