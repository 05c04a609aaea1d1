// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import (
	"sync"
	"time"
)

// EveryN rate limits a log message that would otherwise be emitted once per
// occurrence, such as a rule that is skipped at every node of a large plan.
// The zero value lets every message through.
type EveryN struct {
	// N is the minimum duration between two messages.
	N time.Duration

	mu      sync.Mutex
	lastLog time.Time
}

// Every returns an EveryN that allows one message per n.
func Every(n time.Duration) EveryN {
	return EveryN{N: n}
}

// ShouldLog returns whether at least N has passed since the last message
// that was let through.
func (e *EveryN) ShouldLog() bool {
	return e.shouldLog(time.Now())
}

func (e *EveryN) shouldLog(now time.Time) bool {
	if V(2) {
		// Always log when high verbosity is desired.
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if now.Sub(e.lastLog) < e.N {
		return false
	}
	e.lastLog = now
	return true
}
