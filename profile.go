// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux
// +build linux

package fastsum

import (
	"fmt"
	"runtime"

	"acln.ro/fastsum/internal/perf"
)

// DefaultCounters are the counters Profile measures when no
// WithCounters option is given.
var DefaultCounters = []string{"instructions", "cpu-cycles"}

// A ProfileOption configures Profile.
type ProfileOption func(*profileConfig)

type profileConfig struct {
	counters      []string
	includeKernel bool
}

// WithCounters configures Profile to measure the counters with the
// specified labels, as used by the perf tool, e.g. "instructions",
// "cpu-cycles", "cache-misses" or "task-clock".
func WithCounters(labels ...string) ProfileOption {
	return func(cfg *profileConfig) {
		cfg.counters = labels
	}
}

// WithKernel configures Profile to also count events which happen in
// kernel space. By default, only user space is measured.
func WithKernel() ProfileOption {
	return func(cfg *profileConfig) {
		cfg.includeKernel = true
	}
}

// Profile computes Sum(values) with performance counters enabled on the
// calling thread, and reports the counts.
//
// If the host does not support perf events, Profile returns
// ErrPerfUnsupported. Other failures to open counters, for example due to
// perf_event_paranoid restrictions, are returned as wrapped errors.
func Profile(values []int64, opts ...ProfileOption) (Report, error) {
	cfg := profileConfig{counters: DefaultCounters}
	for _, o := range opts {
		o(&cfg)
	}
	if !perf.Supported() {
		return Report{}, ErrPerfUnsupported
	}
	if len(cfg.counters) == 0 {
		return Report{}, fmt.Errorf("fastsum: no counters to profile")
	}

	var g perf.Group
	g.CountFormat.Running = true
	g.Options.ExcludeKernel = !cfg.includeKernel
	g.Options.ExcludeHypervisor = true
	for _, label := range cfg.counters {
		c, err := perf.LookupCounter(label)
		if err != nil {
			return Report{}, err
		}
		g.Add(c)
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ev, err := g.Open(perf.CallingThread, perf.AnyCPU)
	if err != nil {
		return Report{}, fmt.Errorf("fastsum: %w", err)
	}
	defer ev.Close()

	var s int64
	gc, err := ev.MeasureGroup(func() {
		s = Sum(values)
	})
	if err != nil {
		return Report{}, fmt.Errorf("fastsum: measuring sum: %w", err)
	}

	r := Report{
		Sum:     s,
		Len:     len(values),
		Running: gc.Running,
	}
	for _, v := range gc.Values {
		r.Counts = append(r.Counts, CounterValue{Label: v.Label, Value: v.Value})
	}
	return r, nil
}
