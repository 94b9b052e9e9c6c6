// Package testhelpers contains utilities shared by the tests of several packages.
package testhelpers

import (
	"io"
	"strings"
	"sync/atomic"
	"testing"
)

// Writer is an [io.Writer] that forwards each write to t.Log so that logs only show up for failing tests.
type Writer struct {
	tb   testing.TB
	done atomic.Bool
}

// NewWriter creates a Writer logging to tb.
//
// Writing after the test has finished panics. That usually means a goroutine, such as a plan generation worker
// or the HTTP server, outlived the test.
func NewWriter(tb testing.TB) io.Writer {
	w := &Writer{tb: tb}
	tb.Cleanup(func() {
		w.done.Store(true)
	})
	return w
}

// Write implements [io.Writer].
func (w *Writer) Write(p []byte) (int, error) {
	if w.done.Load() {
		panic("testwriter: write after test completion, is a goroutine outliving the test?")
	}
	if output := strings.TrimSuffix(string(p), "\n"); output != "" {
		w.tb.Log(output)
	}
	return len(p), nil
}
