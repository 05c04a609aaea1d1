// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

import "github.com/cockroachdb/errors"

// ErrMalformedPredicate marks errors raised when a rule meets a predicate
// whose shape it claims to understand but which violates the shape the rule
// expects, e.g. a key predicate without a constant operand.
var ErrMalformedPredicate = errors.New("malformed predicate")

// ErrUnsupportedOperator marks errors raised when a rule meets an operator it
// has no handling for inside a predicate it otherwise understands.
var ErrUnsupportedOperator = errors.New("unsupported operator")

// MalformedPredicatef returns an error marked with ErrMalformedPredicate.
func MalformedPredicatef(format string, args ...interface{}) error {
	return errors.Mark(errors.NewWithDepthf(1, format, args...), ErrMalformedPredicate)
}

// UnsupportedOperatorf returns an error marked with ErrUnsupportedOperator.
func UnsupportedOperatorf(format string, args ...interface{}) error {
	return errors.Mark(errors.NewWithDepthf(1, format, args...), ErrUnsupportedOperator)
}

// IsRuleError returns true if err is one of the recoverable errors that rules
// return when they meet input they cannot handle. Such an error aborts only
// the application of the rule that raised it.
func IsRuleError(err error) bool {
	return errors.Is(err, ErrMalformedPredicate) || errors.Is(err, ErrUnsupportedOperator)
}
