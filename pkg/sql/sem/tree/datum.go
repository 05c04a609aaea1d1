// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package tree

import (
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/planopt/planopt/pkg/sql/types"
)

// ErrIncomparable is the mark carried by errors returned from Datum.Compare
// when the two datums belong to families without a common ordering.
var ErrIncomparable = errors.New("incomparable datums")

// Datum represents a typed SQL constant. Datums are immutable; every
// operation that "changes" a datum returns a new one.
type Datum interface {
	// ResolvedType returns the type of the datum.
	ResolvedType() *types.T

	// Compare returns -1 if the receiver is less than other, 0 if they are
	// equal and +1 if the receiver is greater. NULL sorts before every other
	// value. Numeric datums compare by value across the Int, Float and Decimal
	// families. Comparing datums of other differing families is an error
	// marked with ErrIncomparable.
	Compare(other Datum) (int, error)

	// String formats the datum as a SQL literal.
	String() string

	datum()
}

// Datums is a slice of Datum values.
type Datums []Datum

// DBool is the boolean Datum.
type DBool bool

var (
	constDBoolTrue  DBool = true
	constDBoolFalse DBool = false

	// DBoolTrue is a pointer to the DBool(true) value and can be used in
	// comparisons against Datum types.
	DBoolTrue = &constDBoolTrue
	// DBoolFalse is a pointer to the DBool(false) value and can be used in
	// comparisons against Datum types.
	DBoolFalse = &constDBoolFalse
)

// MakeDBool converts its argument to a *DBool, returning either DBoolTrue or
// DBoolFalse.
func MakeDBool(d bool) *DBool {
	if d {
		return DBoolTrue
	}
	return DBoolFalse
}

// ResolvedType implements the Datum interface.
func (*DBool) ResolvedType() *types.T { return types.Bool }

// Compare implements the Datum interface.
func (d *DBool) Compare(other Datum) (int, error) {
	if other == DNull {
		return 1, nil
	}
	v, ok := other.(*DBool)
	if !ok {
		return 0, incomparable(d, other)
	}
	switch {
	case !bool(*d) && bool(*v):
		return -1, nil
	case bool(*d) && !bool(*v):
		return 1, nil
	}
	return 0, nil
}

func (d *DBool) String() string { return strconv.FormatBool(bool(*d)) }

func (*DBool) datum() {}

// DInt is the int Datum.
type DInt int64

// NewDInt is a helper routine to create a *DInt initialized from its argument.
func NewDInt(d DInt) *DInt {
	return &d
}

// ResolvedType implements the Datum interface.
func (*DInt) ResolvedType() *types.T { return types.Int }

// Compare implements the Datum interface.
func (d *DInt) Compare(other Datum) (int, error) {
	switch v := other.(type) {
	case dNull:
		return 1, nil
	case *DInt:
		return compareInts(int64(*d), int64(*v)), nil
	case *DFloat:
		return compareFloats(float64(*d), float64(*v)), nil
	case *DDecimal:
		var dd apd.Decimal
		dd.SetInt64(int64(*d))
		return dd.Cmp(&v.Decimal), nil
	}
	return 0, incomparable(d, other)
}

func (d *DInt) String() string { return strconv.FormatInt(int64(*d), 10) }

func (*DInt) datum() {}

// DFloat is the float Datum.
type DFloat float64

// NewDFloat is a helper routine to create a *DFloat initialized from its
// argument.
func NewDFloat(d DFloat) *DFloat {
	return &d
}

// ResolvedType implements the Datum interface.
func (*DFloat) ResolvedType() *types.T { return types.Float }

// Compare implements the Datum interface.
func (d *DFloat) Compare(other Datum) (int, error) {
	switch v := other.(type) {
	case dNull:
		return 1, nil
	case *DInt:
		return compareFloats(float64(*d), float64(*v)), nil
	case *DFloat:
		return compareFloats(float64(*d), float64(*v)), nil
	case *DDecimal:
		f, err := v.Float64()
		if err != nil {
			return 0, errors.Wrapf(err, "comparing %s with %s", d, v)
		}
		return compareFloats(float64(*d), f), nil
	}
	return 0, incomparable(d, other)
}

func (d *DFloat) String() string {
	f := float64(*d)
	if math.IsInf(f, 1) {
		return "+Inf"
	} else if math.IsInf(f, -1) {
		return "-Inf"
	} else if math.IsNaN(f) {
		return "NaN"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func (*DFloat) datum() {}

// DDecimal is the decimal Datum.
type DDecimal struct {
	apd.Decimal
}

// NewDDecimal returns a decimal datum equal to coeff * 10^exponent.
func NewDDecimal(coeff int64, exponent int32) *DDecimal {
	d := &DDecimal{}
	d.SetFinite(coeff, exponent)
	return d
}

// ParseDDecimal parses and returns the *DDecimal Datum value represented by
// the provided string, or an error if parsing is unsuccessful.
func ParseDDecimal(s string) (*DDecimal, error) {
	d := &DDecimal{}
	if _, _, err := d.SetString(s); err != nil {
		return nil, errors.Wrapf(err, "could not parse %q as decimal", s)
	}
	return d, nil
}

// ResolvedType implements the Datum interface.
func (*DDecimal) ResolvedType() *types.T { return types.Decimal }

// Compare implements the Datum interface.
func (d *DDecimal) Compare(other Datum) (int, error) {
	switch v := other.(type) {
	case dNull:
		return 1, nil
	case *DInt:
		var dv apd.Decimal
		dv.SetInt64(int64(*v))
		return d.Cmp(&dv), nil
	case *DFloat:
		res, err := v.Compare(d)
		return -res, err
	case *DDecimal:
		return d.Cmp(&v.Decimal), nil
	}
	return 0, incomparable(d, other)
}

func (d *DDecimal) String() string { return d.Decimal.String() }

func (*DDecimal) datum() {}

// DString is the string Datum.
type DString string

// NewDString is a helper routine to create a *DString initialized from its
// argument.
func NewDString(d string) *DString {
	r := DString(d)
	return &r
}

// ResolvedType implements the Datum interface.
func (*DString) ResolvedType() *types.T { return types.String }

// Compare implements the Datum interface.
func (d *DString) Compare(other Datum) (int, error) {
	if other == DNull {
		return 1, nil
	}
	v, ok := other.(*DString)
	if !ok {
		return 0, incomparable(d, other)
	}
	return strings.Compare(string(*d), string(*v)), nil
}

func (d *DString) String() string {
	return "'" + strings.ReplaceAll(string(*d), "'", "''") + "'"
}

func (*DString) datum() {}

type dNull struct{}

// DNull is the NULL Datum.
var DNull Datum = dNull{}

// ResolvedType implements the Datum interface.
func (dNull) ResolvedType() *types.T { return types.Unknown }

// Compare implements the Datum interface.
func (dNull) Compare(other Datum) (int, error) {
	if other == DNull {
		return 0, nil
	}
	return -1, nil
}

func (dNull) String() string { return "NULL" }

func (dNull) datum() {}

// IsTrue returns true if the datum is the boolean true value.
func IsTrue(d Datum) bool {
	b, ok := d.(*DBool)
	return ok && bool(*b)
}

// IsFalse returns true if the datum is the boolean false value.
func IsFalse(d Datum) bool {
	b, ok := d.(*DBool)
	return ok && !bool(*b)
}

func incomparable(left, right Datum) error {
	return errors.Mark(
		errors.Newf("cannot compare %s (%s) with %s (%s)",
			left, left.ResolvedType(), right, right.ResolvedType()),
		ErrIncomparable,
	)
}

func compareInts(l, r int64) int {
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	}
	return 0
}

// compareFloats orders NaN before every other float, matching the ordering
// used for index keys.
func compareFloats(l, r float64) int {
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	case l == r:
		return 0
	case math.IsNaN(l):
		if math.IsNaN(r) {
			return 0
		}
		return -1
	}
	return 1
}
