// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import (
	"io"
	"os"
	"sync"
	"sync/atomic"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type config struct {
	mu struct {
		sync.Mutex
		// logger is the backend all entries are written to. It is replaced as a
		// whole by SetOutput.
		logger kitlog.Logger
	}

	// verbosity is the level up to which V returns true.
	verbosity atomic.Int32

	// redactable, when set, keeps the redaction markers around unsafe values
	// in the log output.
	redactable atomic.Bool
}

var logging config

func init() {
	SetOutput(os.Stderr)
}

// SetOutput directs all log entries to w, formatted as logfmt records. It
// returns a function that restores the previous output.
func SetOutput(w io.Writer) (restore func()) {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	logger = level.NewFilter(logger, level.AllowInfo())

	logging.mu.Lock()
	defer logging.mu.Unlock()
	prev := logging.mu.logger
	logging.mu.logger = logger
	return func() {
		logging.mu.Lock()
		defer logging.mu.Unlock()
		logging.mu.logger = prev
	}
}

// SetVerbosity sets the global verbosity level and returns the previous one.
func SetVerbosity(v int) int {
	return int(logging.verbosity.Swap(int32(v)))
}

// SetRedactable configures whether redaction markers are kept in the log
// output and returns the previous setting.
func SetRedactable(b bool) bool {
	return logging.redactable.Swap(b)
}

// V returns true if the logging verbosity is set to the specified level or
// higher.
func V(level int) bool {
	return int(logging.verbosity.Load()) >= level
}

func currentLogger() kitlog.Logger {
	logging.mu.Lock()
	defer logging.mu.Unlock()
	return logging.mu.logger
}
