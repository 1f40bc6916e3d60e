// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux
// +build linux

// Package perf provides counting access to the Linux perf API. See man 2
// perf_event_open.
//
// Only counting mode is supported: events are opened, enabled around a
// function of interest, and read back as Count or GroupCount values.
// Sampling and the memory mapped ring buffer are not exposed.
package perf

import (
	"os"
	"time"
	"unsafe"
)

// paranoidPath is the sysctl which gates unprivileged use of perf events.
const paranoidPath = "/proc/sys/kernel/perf_event_paranoid"

// Supported returns a boolean indicating whether the host kernel supports
// the perf_event_open system call, which is a prerequisite for the
// operations of this package.
func Supported() bool {
	_, err := os.Stat(paranoidPath)
	return err == nil
}

// fields is a collection of 64-bit fields, as read from a perf event
// file descriptor.
type fields []byte

// uint64 decodes the next 64 bit field into v.
func (f *fields) uint64(v *uint64) {
	*v = *(*uint64)(unsafe.Pointer(&(*f)[0]))
	f.advance(8)
}

// uint64If decodes the next 64 bit field into v, if cond is true.
func (f *fields) uint64If(cond bool, v *uint64) {
	if cond {
		f.uint64(v)
	}
}

// duration decodes a duration into d.
func (f *fields) duration(d *time.Duration) {
	*d = *(*time.Duration)(unsafe.Pointer(&(*f)[0]))
	f.advance(8)
}

// durationIf decodes a duration into d, if cond is true.
func (f *fields) durationIf(cond bool, d *time.Duration) {
	if cond {
		f.duration(d)
	}
}

// count decodes a Count into c, as configured by ev.
func (f *fields) count(c *Count, ev *Event) {
	cf := ev.attr.CountFormat
	f.uint64(&c.Value)
	f.durationIf(cf.Enabled, &c.Enabled)
	f.durationIf(cf.Running, &c.Running)
	f.uint64If(cf.ID, &c.ID)
	c.Label = ev.attr.Label
}

// groupCount decodes a GroupCount into gc, as configured by ev, which must
// be a group leader.
func (f *fields) groupCount(gc *GroupCount, ev *Event) {
	cf := ev.attr.CountFormat
	var nr uint64
	f.uint64(&nr)
	f.durationIf(cf.Enabled, &gc.Enabled)
	f.durationIf(cf.Running, &gc.Running)
	gc.Values = make([]struct {
		Value uint64
		ID    uint64
		Label string
	}, nr)
	for i := 0; i < int(nr); i++ {
		f.uint64(&gc.Values[i].Value)
		f.uint64If(cf.ID, &gc.Values[i].ID)
		if i == 0 {
			gc.Values[i].Label = ev.attr.Label
		} else if i-1 < len(ev.group) {
			gc.Values[i].Label = ev.group[i-1].attr.Label
		}
	}
}

// advance advances through the fields by n bytes.
func (f *fields) advance(n int) {
	*f = (*f)[n:]
}

// marshalBitwiseUint64 marshals a set of bitwise flags into a
// uint64, LSB first.
func marshalBitwiseUint64(fields []bool) uint64 {
	var res uint64
	for shift, set := range fields {
		if set {
			res |= 1 << uint(shift)
		}
	}
	return res
}
