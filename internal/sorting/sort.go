// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package sorting

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// ErrUnsupportedType is returned for column types Sort cannot compare.
var ErrUnsupportedType = errors.New("unsupported column type")

// Result is a sorted permutation and its inverse.
//
// RecordIndices maps rank to original row index and RecordOrders maps
// original row index to rank, so RecordIndices[RecordOrders[i]] == i.
type Result struct {
	RecordIndices []int
	RecordOrders  []int
}

// Len returns the number of rows in the result.
func (r *Result) Len() int {
	return len(r.RecordIndices)
}

// Window returns up to n original row indices starting at rank from. The
// window is clipped to the rows available and is empty, not nil, when from
// is past the end.
func (r *Result) Window(from, n uint64) []uint64 {
	total := uint64(len(r.RecordIndices))
	if from >= total {
		return []uint64{}
	}
	end := total
	if n < total-from {
		end = from + n
	}
	out := make([]uint64, 0, end-from)
	for _, idx := range r.RecordIndices[from:end] {
		out = append(out, uint64(idx))
	}
	return out
}

// Rank returns the rank of the original row index.
func (r *Result) Rank(row uint64) (uint64, bool) {
	if row >= uint64(len(r.RecordOrders)) {
		return 0, false
	}
	return uint64(r.RecordOrders[row]), true
}

// Validate checks that RecordOrders is the inverse of RecordIndices.
func (r *Result) Validate() error {
	if len(r.RecordIndices) != len(r.RecordOrders) {
		return fmt.Errorf("permutation length %d does not match inverse length %d", len(r.RecordIndices), len(r.RecordOrders))
	}
	n := len(r.RecordIndices)
	for rank, idx := range r.RecordIndices {
		if idx < 0 || idx >= n {
			return fmt.Errorf("rank %d maps to out of range row %d", rank, idx)
		}
		if r.RecordOrders[idx] != rank {
			return fmt.Errorf("row %d has rank %d, want %d", idx, r.RecordOrders[idx], rank)
		}
	}
	return nil
}

// Sort returns the permutation that orders column. Nulls sort last in both
// directions. Equal values are ordered by ascending original row index, so
// the output does not depend on the stability of the sort algorithm.
func Sort(column arrow.Array, order Order) (*Result, error) {
	compare, err := valueComparer(column)
	if err != nil {
		return nil, err
	}

	n := column.Len()
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	hasNulls := column.NullN() > 0
	descending := order == Descending

	slices.SortFunc(perm, func(a, b int) int {
		if hasNulls {
			aNull, bNull := column.IsNull(a), column.IsNull(b)
			switch {
			case aNull && bNull:
				return cmp.Compare(a, b)
			case aNull:
				return 1
			case bNull:
				return -1
			}
		}
		c := compare(a, b)
		if descending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	orders := make([]int, n)
	for rank, idx := range perm {
		orders[idx] = rank
	}

	return &Result{
		RecordIndices: perm,
		RecordOrders:  orders,
	}, nil
}

// valueComparer returns a three-way comparison of two non-null positions of
// column.
func valueComparer(column arrow.Array) (func(a, b int) int, error) {
	switch c := column.(type) {
	case *array.Float64:
		return func(a, b int) int { return compareFloat(c.Value(a), c.Value(b)) }, nil
	case *array.Int64:
		return func(a, b int) int { return cmp.Compare(c.Value(a), c.Value(b)) }, nil
	case *array.String:
		return func(a, b int) int { return strings.Compare(c.Value(a), c.Value(b)) }, nil
	case *array.LargeString:
		return func(a, b int) int { return strings.Compare(c.Value(a), c.Value(b)) }, nil
	case *array.Boolean:
		return func(a, b int) int { return compareBool(c.Value(a), c.Value(b)) }, nil
	case *array.Null:
		return func(a, b int) int { return 0 }, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, column.DataType())
}

// compareFloat orders NaN above +Inf, so it lands after every other value
// in ascending order but still ahead of nulls.
func compareFloat(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	}
	return cmp.Compare(a, b)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
