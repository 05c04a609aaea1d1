// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package log is a small context-aware logging facade. Entries are written
// as logfmt records; the tags attached to the context with
// logtags.AddTag are included with every entry.
package log

import "context"

// Infof logs to the INFO severity. Arguments are handled in the manner of
// fmt.Printf.
func Infof(ctx context.Context, format string, args ...interface{}) {
	addStructured(ctx, SeverityInfo, format, args)
}

// Warningf logs to the WARNING severity. Arguments are handled in the manner
// of fmt.Printf.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	addStructured(ctx, SeverityWarning, format, args)
}

// Errorf logs to the ERROR severity. Arguments are handled in the manner of
// fmt.Printf.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	addStructured(ctx, SeverityError, format, args)
}

// VEventf logs the message at INFO severity if the verbosity is at least the
// given level.
func VEventf(ctx context.Context, level int, format string, args ...interface{}) {
	if V(level) {
		addStructured(ctx, SeverityInfo, format, args)
	}
}

// ExpensiveLogEnabled is used to test whether effort should be used to
// produce log messages whose construction is costly. It returns true if the
// verbosity is at least the given level.
func ExpensiveLogEnabled(ctx context.Context, level int) bool {
	return V(level)
}
