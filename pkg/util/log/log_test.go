// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
	"github.com/stretchr/testify/require"
)

func TestStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	defer SetOutput(&buf)()

	ctx := logtags.AddTag(context.Background(), "opt", nil)
	ctx = logtags.AddTag(ctx, "rule", "FilterJoin")
	Infof(ctx, "applied %d rewrites", 3)
	Warningf(context.Background(), "skipped %s", "RangeScan")

	out := buf.String()
	require.Contains(t, out, "level=info")
	require.Contains(t, out, `tags="opt,rule=FilterJoin"`)
	require.Contains(t, out, `msg="applied 3 rewrites"`)
	require.Contains(t, out, "level=warn")
	require.Contains(t, out, `msg="skipped RangeScan"`)
}

func TestRedactable(t *testing.T) {
	var buf bytes.Buffer
	defer SetOutput(&buf)()
	defer SetRedactable(SetRedactable(true))

	Errorf(context.Background(), "bad value %s in %s", "secret", redact.Safe("filter"))
	require.Contains(t, buf.String(), "‹secret›")
	require.NotContains(t, buf.String(), "‹filter›")
}

func TestVEventf(t *testing.T) {
	var buf bytes.Buffer
	defer SetOutput(&buf)()
	defer SetVerbosity(SetVerbosity(1))

	VEventf(context.Background(), 2, "hidden")
	require.Empty(t, buf.String())
	require.True(t, V(1))
	require.False(t, V(2))

	VEventf(context.Background(), 1, "shown")
	require.Contains(t, buf.String(), "msg=shown")
}

func TestFormatWithContextTags(t *testing.T) {
	ctx := logtags.AddTag(context.Background(), "n", 1)
	require.Equal(t, "[n1] hello world", FormatWithContextTags(ctx, "hello %s", "world"))
	require.Equal(t, "plain", FormatWithContextTags(context.Background(), "plain"))
}

func TestEveryN(t *testing.T) {
	defer SetVerbosity(SetVerbosity(0))
	start := time.Now()
	e := Every(time.Minute)
	require.True(t, e.shouldLog(start))
	require.False(t, e.shouldLog(start.Add(time.Second)))
	require.True(t, e.shouldLog(start.Add(time.Minute)))

	SetVerbosity(2)
	require.True(t, e.shouldLog(start.Add(time.Minute)))

	SetVerbosity(0)
	var zero EveryN
	require.True(t, zero.shouldLog(start))
	require.True(t, zero.shouldLog(start))
}

func TestScope(t *testing.T) {
	s := Scope(t)
	Infof(context.Background(), "captured")
	require.Contains(t, s.String(), "msg=captured")
	s.Close(t)
}
