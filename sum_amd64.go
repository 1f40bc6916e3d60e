// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fastsum

// sum returns the sum of values. It is implemented in assembly, and
// assumes len(values) > 0.
//
//go:noescape
func sum(values []int64) int64
