package log

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestInitLevels(t *testing.T) {
	c := qt.New(t)
	previous := Level()
	defer Init(previous, "stderr", nil)

	for _, level := range []string{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError} {
		Init(level, "stderr", nil)
		c.Assert(Level(), qt.Equals, level)
	}
	c.Assert(func() { Init("verbose", "stderr", nil) }, qt.PanicMatches, `invalid log level: "verbose"`)
}

func TestErrorOutput(t *testing.T) {
	c := qt.New(t)
	previous := Level()
	defer Init(previous, "stderr", nil)

	var errOut bytes.Buffer
	Init(LogLevelDebug, filepath.Join(t.TempDir(), "node.log"), &errOut)
	Infow("merged", "poll", 1)
	c.Assert(errOut.Len(), qt.Equals, 0)

	Warnw("outcome rejected", "poll", 2)
	Errorw(errors.New("disk full"), "could not store poll")
	lines := strings.Split(strings.TrimSpace(errOut.String()), "\n")
	c.Assert(lines, qt.HasLen, 2)
	c.Assert(lines[0], qt.Contains, "outcome rejected")
	c.Assert(lines[0], qt.Contains, "poll=2")
	c.Assert(lines[1], qt.Contains, "disk full")
}

func TestJSONOutput(t *testing.T) {
	c := qt.New(t)
	previous := Level()
	defer Init(previous, "stderr", nil)

	file := filepath.Join(t.TempDir(), "node.json")
	Init(LogLevelInfo, file, nil)
	Infow("poll created", "index", 3)
	Debugw("hidden")

	data, err := os.ReadFile(file)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Contains, `"message":"poll created"`)
	c.Assert(string(data), qt.Contains, `"index":3`)
	c.Assert(string(data), qt.Not(qt.Contains), "hidden")
}
