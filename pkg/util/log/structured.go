// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import (
	"context"
	"strings"

	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
	"github.com/go-kit/log/level"
)

// Severity identifies the level of a log entry.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// FormatWithContextTags formats the string and prepends the context
// tags.
//
// Redaction markers are *not* inserted. The resulting
// string is generally unsafe for reporting.
func FormatWithContextTags(ctx context.Context, format string, args ...interface{}) string {
	var buf strings.Builder
	if tags := logtags.FromContext(ctx); tags != nil {
		buf.WriteByte('[')
		buf.WriteString(tags.String())
		buf.WriteString("] ")
	}
	buf.WriteString(redact.Sprintf(format, args...).StripMarkers())
	return buf.String()
}

// addStructured creates a structured log entry and writes it to the current
// output. The arguments are formatted with redact, so that values which are
// not marked safe can be told apart in redactable output.
func addStructured(ctx context.Context, sev Severity, format string, args []interface{}) {
	msg := redact.Sprintf(format, args...)
	text := msg.StripMarkers()
	if logging.redactable.Load() {
		text = string(msg)
	}

	logger := currentLogger()
	switch sev {
	case SeverityWarning:
		logger = level.Warn(logger)
	case SeverityError:
		logger = level.Error(logger)
	default:
		logger = level.Info(logger)
	}

	keyvals := make([]interface{}, 0, 4)
	if tags := logtags.FromContext(ctx); tags != nil {
		keyvals = append(keyvals, "tags", tags.String())
	}
	keyvals = append(keyvals, "msg", text)
	_ = logger.Log(keyvals...)
}
