// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import (
	"bytes"
	"sync"
)

// tShim is the part of testing.TB used by TestLogScope.
type tShim interface {
	Helper()
	Failed() bool
	Log(args ...interface{})
}

// TestLogScope represents the lifetime of a logging output capture for a
// test. The log entries written while the scope is open are buffered and
// printed with the test output only if the test fails.
type TestLogScope struct {
	mu struct {
		sync.Mutex
		buf bytes.Buffer
	}
	restore   func()
	verbosity int
}

// Scope creates a TestLogScope which captures the log output of the test.
// Use with defer:
//
//	defer log.Scope(t).Close(t)
func Scope(t tShim) *TestLogScope {
	t.Helper()
	s := &TestLogScope{}
	s.restore = SetOutput(scopeWriter{s})
	s.verbosity = SetVerbosity(int(logging.verbosity.Load()))
	return s
}

// Close restores the previous log output. If the test has failed, the
// captured entries are printed with the test output.
func (s *TestLogScope) Close(t tShim) {
	t.Helper()
	s.restore()
	SetVerbosity(s.verbosity)
	if t.Failed() {
		t.Log("log output:\n" + s.String())
	}
}

// String returns the entries captured so far.
func (s *TestLogScope) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mu.buf.String()
}

type scopeWriter struct {
	s *TestLogScope
}

func (w scopeWriter) Write(p []byte) (int, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return w.s.mu.buf.Write(p)
}
