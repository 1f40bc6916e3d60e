// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fastsum

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrPerfUnsupported is returned by Profile when hardware performance
// counters are not available on the host.
var ErrPerfUnsupported = errors.New("fastsum: perf events not supported")

// A Report is the result of profiling a call to Sum.
type Report struct {
	// Sum is the value returned by Sum.
	Sum int64

	// Len is the number of elements summed.
	Len int

	// Counts holds one entry per counter, in the order requested.
	Counts []CounterValue

	// Running is the time the counters were running.
	Running time.Duration
}

// A CounterValue is the value read from a single performance counter.
type CounterValue struct {
	Label string
	Value uint64
}

// Lookup returns the value of the counter with the specified label.
func (r Report) Lookup(label string) (uint64, bool) {
	for _, c := range r.Counts {
		if c.Label == label {
			return c.Value, true
		}
	}
	return 0, false
}

// IPC returns instructions per cycle, or 0 if either counter is missing.
func (r Report) IPC() float64 {
	insns, ok1 := r.Lookup("instructions")
	cycles, ok2 := r.Lookup("cpu-cycles")
	if !ok1 || !ok2 || cycles == 0 {
		return 0
	}
	return float64(insns) / float64(cycles)
}

// CyclesPerElement returns cpu-cycles divided by Len, or 0 if the counter
// is missing or nothing was summed.
func (r Report) CyclesPerElement() float64 {
	cycles, ok := r.Lookup("cpu-cycles")
	if !ok || r.Len == 0 {
		return 0
	}
	return float64(cycles) / float64(r.Len)
}

// WriteTo writes a human readable rendition of r to w, in the style of
// perf stat.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	var total int64
	write := func(format string, args ...interface{}) error {
		n, err := fmt.Fprintf(w, format, args...)
		total += int64(n)
		return err
	}
	for _, c := range r.Counts {
		if err := write("%20d  %s\n", c.Value, c.Label); err != nil {
			return total, err
		}
	}
	if ipc := r.IPC(); ipc > 0 {
		if err := write("%20.2f  instrs/cycle\n", ipc); err != nil {
			return total, err
		}
	}
	if cpe := r.CyclesPerElement(); cpe > 0 {
		if err := write("%20.2f  cycles/element\n", cpe); err != nil {
			return total, err
		}
	}
	err := write("%20v  running\n", r.Running)
	return total, err
}
