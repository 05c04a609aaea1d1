// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package humanizeutil

import "time"

// durationPrecision gives, for a duration below limit, the unit it is
// rounded to.
var durationPrecision = []struct {
	limit, unit time.Duration
}{
	{time.Millisecond, time.Microsecond},
	{time.Second, time.Millisecond},
	{time.Minute, 100 * time.Millisecond},
}

// Duration formats a duration with about three significant digits, and never
// more precisely than a microsecond. Durations of a minute or more are
// rounded to the second.
//
//	123456ns       ->  "123µs"
//	12345678ns     ->  "12ms"
//	12345678912ns  ->  "12.3s"
func Duration(val time.Duration) string {
	val = val.Round(time.Microsecond)
	if val == 0 {
		return "0µs"
	}
	for _, p := range durationPrecision {
		if val < p.limit {
			return val.Round(p.unit).String()
		}
	}
	return val.Round(time.Second).String()
}
