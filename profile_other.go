// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux
// +build !linux

package fastsum

// DefaultCounters are the counters Profile measures when no
// WithCounters option is given.
var DefaultCounters = []string{"instructions", "cpu-cycles"}

// A ProfileOption configures Profile.
type ProfileOption func()

// WithCounters is a no-op on this platform.
func WithCounters(labels ...string) ProfileOption { return func() {} }

// WithKernel is a no-op on this platform.
func WithKernel() ProfileOption { return func() {} }

// Profile always returns ErrPerfUnsupported: perf events are specific
// to Linux.
func Profile(values []int64, opts ...ProfileOption) (Report, error) {
	return Report{}, ErrPerfUnsupported
}
