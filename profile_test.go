// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux
// +build linux

package fastsum

import (
	"errors"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"acln.ro/fastsum/internal/perf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile(t *testing.T) {
	values := randomValues(rand.New(rand.NewSource(6)), 1<<16)

	r, err := Profile(values)
	if errors.Is(err, ErrPerfUnsupported) {
		t.Skip(err)
	}
	if err != nil {
		t.Skipf("counters unavailable: %v", err)
	}

	assert.Equal(t, Sum(values), r.Sum)
	assert.Equal(t, len(values), r.Len)
	require.Len(t, r.Counts, 2)
	assert.Equal(t, "instructions", r.Counts[0].Label)
	assert.Equal(t, "cpu-cycles", r.Counts[1].Label)

	insns, ok := r.Lookup("instructions")
	require.True(t, ok)
	if insns == 0 {
		t.Skip("instructions counter opened but did not count")
	}
	// The loop touches every element at least once.
	assert.GreaterOrEqual(t, insns, uint64(len(values)/2))
	t.Logf("%.2f instrs/cycle, %.2f cycles/element", r.IPC(), r.CyclesPerElement())
}

// requireSoftwarePMU skips the test unless software events can be opened
// for user space on the calling thread.
func requireSoftwarePMU(t *testing.T) {
	t.Helper()
	if !perf.Supported() {
		t.Skip("perf events not supported")
	}
	if _, err := os.Stat("/sys/bus/event_source/devices/software/type"); err != nil {
		t.Skipf("software PMU not supported: %v", err)
	}
	content, err := os.ReadFile("/proc/sys/kernel/perf_event_paranoid")
	if err != nil {
		t.Skip(err)
	}
	level, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil || level > 2 {
		t.Skipf("perf_event_paranoid = %q, want <= 2", strings.TrimSpace(string(content)))
	}
}

func TestProfileSoftwareCounters(t *testing.T) {
	requireSoftwarePMU(t)

	values := randomValues(rand.New(rand.NewSource(8)), 1<<20)
	r, err := Profile(values, WithCounters("task-clock", "cpu-clock"))
	require.NoError(t, err)

	assert.Equal(t, Sum(values), r.Sum)
	assert.Equal(t, len(values), r.Len)
	require.Len(t, r.Counts, 2)
	assert.Equal(t, "task-clock", r.Counts[0].Label)
	assert.Equal(t, "cpu-clock", r.Counts[1].Label)
	assert.NotZero(t, r.Counts[0].Value)
	assert.NotZero(t, r.Counts[1].Value)
	assert.Greater(t, r.Running, time.Duration(0))

	// Both clocks run only while the group is enabled, so the follower
	// must track the leader.
	task := time.Duration(r.Counts[0].Value)
	cpu := time.Duration(r.Counts[1].Value)
	diff := cpu - task
	if diff < 0 {
		diff = -diff
	}
	assert.LessOrEqual(t, diff, task/2+time.Millisecond, "task-clock %v, cpu-clock %v", task, cpu)

	// Neither clock has a cycles counter to divide by.
	assert.Zero(t, r.IPC())
	assert.Zero(t, r.CyclesPerElement())
}

func TestProfileUnknownCounter(t *testing.T) {
	if !perf.Supported() {
		t.Skip("perf events not supported")
	}
	_, err := Profile([]int64{1}, WithCounters("no-such-counter"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrPerfUnsupported))
}

func TestProfileNoCounters(t *testing.T) {
	if !perf.Supported() {
		t.Skip("perf events not supported")
	}
	_, err := Profile([]int64{1}, WithCounters())
	require.Error(t, err)
}

func TestReportWriteTo(t *testing.T) {
	r := Report{
		Sum: 15,
		Len: 5,
		Counts: []CounterValue{
			{Label: "instructions", Value: 40},
			{Label: "cpu-cycles", Value: 20},
		},
	}
	assert.InDelta(t, 2.0, r.IPC(), 1e-9)
	assert.InDelta(t, 4.0, r.CyclesPerElement(), 1e-9)

	var sb strings.Builder
	n, err := r.WriteTo(&sb)
	require.NoError(t, err)
	assert.Equal(t, int64(sb.Len()), n)

	out := sb.String()
	assert.Contains(t, out, "instructions")
	assert.Contains(t, out, "instrs/cycle")
	assert.Contains(t, out, "cycles/element")
}

func TestReportMissingCounters(t *testing.T) {
	r := Report{Len: 3, Counts: []CounterValue{{Label: "task-clock", Value: 9}}}
	assert.Zero(t, r.IPC())
	assert.Zero(t, r.CyclesPerElement())
	_, ok := r.Lookup("cpu-cycles")
	assert.False(t, ok)
}

var sink int64

func benchmarkSum(b *testing.B, n int, f func([]int64) int64) {
	values := randomValues(rand.New(rand.NewSource(7)), n)
	b.SetBytes(int64(8 * n))
	defer perf.Benchmark(b).Stop()
	for i := 0; i < b.N; i++ {
		sink = f(values)
	}
}

func BenchmarkSum(b *testing.B) {
	for _, n := range []int{16, 1024, 1 << 16} {
		b.Run(strconv.Itoa(n), func(b *testing.B) {
			benchmarkSum(b, n, Sum)
		})
	}
}

func BenchmarkSumGeneric(b *testing.B) {
	for _, n := range []int{16, 1024, 1 << 16} {
		b.Run(strconv.Itoa(n), func(b *testing.B) {
			benchmarkSum(b, n, sumGeneric)
		})
	}
}

func BenchmarkSumChecked(b *testing.B) {
	checked := func(values []int64) int64 {
		s, _ := SumChecked(values)
		return s
	}
	for _, n := range []int{16, 1024, 1 << 16} {
		b.Run(strconv.Itoa(n), func(b *testing.B) {
			benchmarkSum(b, n, checked)
		})
	}
}
