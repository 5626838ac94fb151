// Package testutils has helpers shared by the package tests.
package testutils

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// NewTestLogger creates a zerolog.Logger that writes to the test log at debug level.
func NewTestLogger(t testing.TB) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: testWriter{t}, TimeFormat: time.RFC3339, NoColor: true}).Level(zerolog.DebugLevel).With().Timestamp().Caller().Logger()
}

type testWriter struct {
	t testing.TB
}

func (tw testWriter) Write(p []byte) (n int, err error) {
	tw.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

// LogCapture collects JSON log lines for assertions. It is safe for concurrent use.
type LogCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewCaptureLogger returns a logger writing JSON lines into the returned LogCapture.
func NewCaptureLogger() (zerolog.Logger, *LogCapture) {
	c := &LogCapture{}
	return zerolog.New(c).Level(zerolog.DebugLevel), c
}

func (c *LogCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// String returns everything logged so far.
func (c *LogCapture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// Lines returns the logged lines containing substr.
func (c *LogCapture) Lines(substr string) (lines []string) {
	for _, l := range strings.Split(c.String(), "\n") {
		if l != "" && strings.Contains(l, substr) {
			lines = append(lines, l)
		}
	}
	return
}
