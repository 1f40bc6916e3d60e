// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux
// +build linux

package perf

import (
	"runtime"
	"testing"
)

// Stopper implements the Stop() method.
type Stopper func()

// Stop calls the given stopper.
func (s Stopper) Stop() { s() }

// Benchmark starts counting instructions and CPU cycles on the calling
// thread, for the benchmark b. The returned Stopper reports instrs/op,
// cycles/op and instrs/cycle metrics. Typical usage:
//
//	func BenchmarkFoo(b *testing.B) {
//		defer perf.Benchmark(b).Stop()
//		for i := 0; i < b.N; i++ {
//			foo()
//		}
//	}
//
// If the counters cannot be opened, the benchmark is skipped.
func Benchmark(b *testing.B) Stopper {
	var g Group
	g.Options.ExcludeKernel = true
	g.Options.ExcludeHypervisor = true
	g.Add(Instructions, CPUCycles)

	runtime.LockOSThread()
	ev, err := g.Open(CallingThread, AnyCPU)
	if err != nil {
		runtime.UnlockOSThread()
		b.Skipf("hardware counters unavailable: %v", err)
	}
	if err := ev.Disable(); err != nil {
		ev.Close()
		runtime.UnlockOSThread()
		b.Fatal(err)
	}
	if err := ev.Reset(); err != nil {
		ev.Close()
		runtime.UnlockOSThread()
		b.Fatal(err)
	}
	b.ResetTimer()
	if err := ev.Enable(); err != nil {
		ev.Close()
		runtime.UnlockOSThread()
		b.Fatal(err)
	}

	return Stopper(func() {
		err := ev.Disable()
		b.StopTimer()
		defer runtime.UnlockOSThread()
		defer ev.Close()
		if err != nil {
			b.Fatal(err)
		}

		gc, err := ev.ReadGroupCount()
		if err != nil {
			b.Fatal(err)
		}
		insns := float64(gc.Values[0].Value)
		cycles := float64(gc.Values[1].Value)

		if cycles > 0 {
			b.ReportMetric(insns/cycles, "instrs/cycle")
		}
		b.ReportMetric(insns/float64(b.N), "instrs/op")
		b.ReportMetric(cycles/float64(b.N), "cycles/op")
	})
}
