// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package humanizeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBytes(t *testing.T) {
	for _, tc := range []struct {
		input    string
		expected int64
	}{
		{"0", 0},
		{"512", 512},
		{"1KiB", 1024},
		{"1kB", 1000},
		{"4 MiB", 4 << 20},
		{"-2KiB", -2048},
	} {
		v, err := ParseBytes(tc.input)
		require.NoError(t, err, tc.input)
		require.Equal(t, tc.expected, v, tc.input)
	}
	for _, input := range []string{"", "abc", "1 parsecs"} {
		_, err := ParseBytes(input)
		require.Error(t, err, input)
	}

	require.Equal(t, "1.0 KiB", IBytes(1024))
	require.Equal(t, "-1.0 KiB", IBytes(-1024))
}

func TestBytesValue(t *testing.T) {
	var size int64
	v := NewBytesValue(&size)
	require.False(t, v.IsSet())
	require.Equal(t, "0 B", v.String())
	require.NoError(t, v.Set("2MiB"))
	require.True(t, v.IsSet())
	require.Equal(t, int64(2<<20), size)
	require.Equal(t, int64(2<<20), v.Value())
	require.Equal(t, "2.0 MiB", v.String())
	require.Error(t, v.Set("-1KiB"))
	require.Equal(t, "bytes", v.Type())
}

func TestCount(t *testing.T) {
	require.Equal(t, "0", Count(0))
	require.Equal(t, "12,345", Count(12345))
}

func TestDuration(t *testing.T) {
	for _, tc := range []struct {
		val      time.Duration
		expected string
	}{
		{0, "0µs"},
		{123456, "123µs"},
		{12345678, "12ms"},
		{12345678912, "12.3s"},
		{90 * time.Second, "1m30s"},
	} {
		require.Equal(t, tc.expected, Duration(tc.val))
	}
}
