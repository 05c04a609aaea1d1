// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package types

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// Family specifies a group of types that are compatible with one another.
// Types in the same family share a physical representation and can be
// compared without conversion.
type Family uint8

const (
	// UnknownFamily is the family of the NULL type. A NULL constant is
	// comparable with (and assignable to) every other family.
	UnknownFamily Family = iota

	// BoolFamily is the family of boolean values.
	BoolFamily

	// IntFamily is the family of 64-bit signed integers.
	IntFamily

	// FloatFamily is the family of 64-bit floating point numbers.
	FloatFamily

	// DecimalFamily is the family of arbitrary precision decimals.
	DecimalFamily

	// StringFamily is the family of variable length strings.
	StringFamily
)

var familyNames = [...]string{
	UnknownFamily: "unknown",
	BoolFamily:    "bool",
	IntFamily:     "int",
	FloatFamily:   "float",
	DecimalFamily: "decimal",
	StringFamily:  "string",
}

func (f Family) String() string {
	if int(f) < len(familyNames) {
		return familyNames[f]
	}
	return fmt.Sprintf("family(%d)", uint8(f))
}

// SafeValue implements the redact.SafeValue interface.
func (Family) SafeValue() {}

var _ redact.SafeValue = Family(0)

// T is an immutable description of a scalar type. The package-level
// singletons should be used instead of constructing new values.
type T struct {
	family Family
}

var (
	// Unknown is the type of an untyped NULL.
	Unknown = &T{family: UnknownFamily}
	// Bool is the type of a boolean value.
	Bool = &T{family: BoolFamily}
	// Int is the type of a 64-bit integer.
	Int = &T{family: IntFamily}
	// Float is the type of a 64-bit float.
	Float = &T{family: FloatFamily}
	// Decimal is the type of an arbitrary precision decimal.
	Decimal = &T{family: DecimalFamily}
	// String is the type of a string.
	String = &T{family: StringFamily}
)

// Family returns the type's family.
func (t *T) Family() Family {
	return t.family
}

// Identical returns true if the two types are exactly the same.
func (t *T) Identical(other *T) bool {
	return t.family == other.family
}

// Equivalent returns true if a value of type t can be used where a value of
// type other is expected. Unknown is equivalent to every type.
func (t *T) Equivalent(other *T) bool {
	if t.family == UnknownFamily || other.family == UnknownFamily {
		return true
	}
	return t.family == other.family
}

// IsNumeric returns true for the Int, Float and Decimal families.
func (t *T) IsNumeric() bool {
	switch t.family {
	case IntFamily, FloatFamily, DecimalFamily:
		return true
	}
	return false
}

func (t *T) String() string {
	return t.family.String()
}

// SafeFormat implements the redact.SafeFormatter interface.
func (t *T) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Print(t.family)
}

// FromName returns the type with the given name, as printed by String.
func FromName(name string) (*T, error) {
	switch strings.ToLower(name) {
	case "unknown", "null":
		return Unknown, nil
	case "bool", "boolean":
		return Bool, nil
	case "int", "integer", "int8", "bigint":
		return Int, nil
	case "float", "double", "float8":
		return Float, nil
	case "decimal", "numeric":
		return Decimal, nil
	case "string", "text", "varchar":
		return String, nil
	}
	return nil, errors.Newf("unknown type name %q", name)
}

// CommonNumeric returns the type of the result of mixing two numeric types.
// Float dominates Decimal, which dominates Int.
func CommonNumeric(left, right *T) *T {
	switch {
	case left.family == FloatFamily || right.family == FloatFamily:
		return Float
	case left.family == DecimalFamily || right.family == DecimalFamily:
		return Decimal
	}
	return Int
}
