// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

import (
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/cockroachdb/errors"
)

// ColSet efficiently stores an unordered set of column ordinals. Ordinals are
// positions in the output of a relational expression, starting at 0.
//
// The zero value is an empty set. Assigning a ColSet shares its storage, so
// Copy must be used before mutating a set that is also referenced elsewhere.
// Every method other than Add, Remove and UnionWith returns a fresh set.
type ColSet struct {
	set *bitset.BitSet
}

// MakeColSet returns a set initialized with the given values.
func MakeColSet(vals ...int) ColSet {
	var res ColSet
	for _, v := range vals {
		res.Add(v)
	}
	return res
}

// MakeColSetRange returns the set of ordinals in [from, to).
func MakeColSetRange(from, to int) ColSet {
	var res ColSet
	for i := from; i < to; i++ {
		res.Add(i)
	}
	return res
}

// Add adds a column to the set. No-op if the column is already in the set.
func (s *ColSet) Add(col int) {
	if col < 0 {
		panic(errors.AssertionFailedf("column ordinal must be non-negative: %d", col))
	}
	if s.set == nil {
		s.set = bitset.New(uint(col + 1))
	}
	s.set.Set(uint(col))
}

// Remove removes a column from the set. No-op if the column is not in the set.
func (s *ColSet) Remove(col int) {
	if s.set == nil || col < 0 {
		return
	}
	s.set.Clear(uint(col))
}

// Contains returns true if the set contains the column.
func (s ColSet) Contains(col int) bool {
	return s.set != nil && col >= 0 && s.set.Test(uint(col))
}

// Empty returns true if the set is empty.
func (s ColSet) Empty() bool {
	return s.set == nil || s.set.None()
}

// Len returns the number of the columns in the set.
func (s ColSet) Len() int {
	if s.set == nil {
		return 0
	}
	return int(s.set.Count())
}

// ForEach calls a function for each column in the set (in increasing order).
func (s ColSet) ForEach(f func(col int)) {
	if s.set == nil {
		return
	}
	for i, ok := s.set.NextSet(0); ok; i, ok = s.set.NextSet(i + 1) {
		f(int(i))
	}
}

// Ordered returns the columns of the set in increasing order.
func (s ColSet) Ordered() []int {
	res := make([]int, 0, s.Len())
	s.ForEach(func(col int) {
		res = append(res, col)
	})
	return res
}

// Copy returns a copy of s which can be modified independently.
func (s ColSet) Copy() ColSet {
	if s.set == nil {
		return ColSet{}
	}
	return ColSet{set: s.set.Clone()}
}

// UnionWith adds all the columns from rhs to this set.
func (s *ColSet) UnionWith(rhs ColSet) {
	if rhs.set == nil {
		return
	}
	if s.set == nil {
		s.set = rhs.set.Clone()
		return
	}
	s.set.InPlaceUnion(rhs.set)
}

// Union returns the union of s and rhs as a new set.
func (s ColSet) Union(rhs ColSet) ColSet {
	res := s.Copy()
	res.UnionWith(rhs)
	return res
}

// Intersection returns the intersection of s and rhs as a new set.
func (s ColSet) Intersection(rhs ColSet) ColSet {
	if s.set == nil || rhs.set == nil {
		return ColSet{}
	}
	return ColSet{set: s.set.Intersection(rhs.set)}
}

// Difference returns the elements of s that are not in rhs as a new set.
func (s ColSet) Difference(rhs ColSet) ColSet {
	if s.set == nil {
		return ColSet{}
	}
	if rhs.set == nil {
		return s.Copy()
	}
	return ColSet{set: s.set.Difference(rhs.set)}
}

// SubsetOf returns true if rhs contains all the elements in s.
func (s ColSet) SubsetOf(rhs ColSet) bool {
	return s.Difference(rhs).Empty()
}

// Equals returns true if the two sets are identical.
func (s ColSet) Equals(rhs ColSet) bool {
	return s.Len() == rhs.Len() && s.SubsetOf(rhs)
}

// Shift returns a new set with delta added to every ordinal. Ordinals that
// would become negative are dropped.
func (s ColSet) Shift(delta int) ColSet {
	var res ColSet
	s.ForEach(func(col int) {
		if col+delta >= 0 {
			res.Add(col + delta)
		}
	})
	return res
}

// Ranks returns a map from each ordinal in the set to its rank, i.e. its
// position in the ordered list of the set's members. It describes how the
// ordinals of an expression are renumbered when only the columns in the set
// are kept.
func (s ColSet) Ranks() map[int]int {
	res := make(map[int]int, s.Len())
	s.ForEach(func(col int) {
		res[col] = len(res)
	})
	return res
}

// String returns a list representation of elements. Sequential runs of
// numbers are shown as ranges. For example, for the set {0, 1, 2, 4, 5, 9},
// the output is "(0-2,4,5,9)".
func (s ColSet) String() string {
	var buf strings.Builder
	buf.WriteByte('(')
	cols := s.Ordered()
	for i := 0; i < len(cols); {
		j := i
		for j+1 < len(cols) && cols[j+1] == cols[j]+1 {
			j++
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Itoa(cols[i]))
		if j-i >= 2 {
			buf.WriteByte('-')
			buf.WriteString(strconv.Itoa(cols[j]))
		} else if j > i {
			buf.WriteByte(',')
			buf.WriteString(strconv.Itoa(cols[j]))
		}
		i = j + 1
	}
	buf.WriteByte(')')
	return buf.String()
}
