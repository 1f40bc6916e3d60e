// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fastsum computes sums of int64 sequences.
//
// Sum and SumN follow Go's integer semantics: an overflowing sum wraps
// around silently. Callers that cannot rule out overflow should use
// SumChecked, which reports it.
//
// All functions in this package are safe for concurrent use. None of them
// modify their input.
package fastsum

import (
	"errors"
	"fmt"
	"math"
)

// Sum returns the sum of all elements of values. The sum of an empty or
// nil slice is 0.
//
// On amd64, the summation loop is implemented in assembly.
func Sum(values []int64) int64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values)
}

// SumN returns the sum of the first n elements of values.
//
// If n is 0, SumN returns 0 without reading values, which may be nil.
// SumN panics if n is negative or greater than len(values). A negative n
// is a caller error, not an empty prefix: it is reported rather than
// summed as zero elements.
func SumN(values []int64, n int64) int64 {
	if n == 0 {
		return 0
	}
	if n < 0 || n > int64(len(values)) {
		panic(&RangeError{N: n, Len: len(values)})
	}
	return sum(values[:n])
}

// A RangeError is the panic value used by SumN when n does not describe a
// prefix of values.
type RangeError struct {
	N   int64
	Len int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("fastsum: count %d out of range for %d values", e.N, e.Len)
}

// ErrOverflow is matched by errors returned from SumChecked when the sum
// does not fit in an int64.
var ErrOverflow = errors.New("fastsum: int64 overflow")

// An OverflowError records the position at which a checked sum left the
// int64 range.
type OverflowError struct {
	// Index is the index of the element whose addition overflowed.
	Index int

	// Partial is the running total before Values[Index] was added.
	Partial int64

	// Value is the element that could not be added.
	Value int64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("fastsum: int64 overflow adding %d to %d at index %d", e.Value, e.Partial, e.Index)
}

// Is reports whether target is ErrOverflow.
func (e *OverflowError) Is(target error) bool { return target == ErrOverflow }

// SumChecked is like Sum, but returns an *OverflowError if the running
// total leaves the int64 range at any point.
//
// The check applies to the running total, not only the final result: a
// sequence whose intermediate total overflows is reported even if later
// elements would bring the mathematical sum back into range.
func SumChecked(values []int64) (int64, error) {
	var total int64
	for i, v := range values {
		if (v > 0 && total > math.MaxInt64-v) || (v < 0 && total < math.MinInt64-v) {
			return 0, &OverflowError{Index: i, Partial: total, Value: v}
		}
		total += v
	}
	return total, nil
}

// sumGeneric is the portable summation loop. It is used directly on
// platforms without an assembly kernel, and by tests as a reference.
func sumGeneric(values []int64) int64 {
	var total int64
	for _, v := range values {
		total += v
	}
	return total
}
