// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux
// +build linux

package perf

// Perf file descriptor ioctls.

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func ioctlEnable(fd int, arg int) error {
	err := ioctlInt(fd, unix.PERF_EVENT_IOC_ENABLE, arg)
	return wrapIoctlError("PERF_EVENT_IOC_ENABLE", err)
}

func ioctlDisable(fd int, arg int) error {
	err := ioctlInt(fd, unix.PERF_EVENT_IOC_DISABLE, arg)
	return wrapIoctlError("PERF_EVENT_IOC_DISABLE", err)
}

func ioctlReset(fd int, arg int) error {
	err := ioctlInt(fd, unix.PERF_EVENT_IOC_RESET, arg)
	return wrapIoctlError("PERF_EVENT_IOC_RESET", err)
}

func ioctlInt(fd int, number uintptr, arg int) error {
	_, _, e := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), number, uintptr(arg))
	if e != 0 {
		return e
	}
	return nil
}

func wrapIoctlError(ioctl string, err error) error {
	if err == nil {
		return nil
	}
	return &ioctlError{ioctl: ioctl, err: err}
}

type ioctlError struct {
	ioctl string
	err   error
}

func (e *ioctlError) Error() string {
	return fmt.Sprintf("%s: %v", e.ioctl, e.err)
}

func (e *ioctlError) Unwrap() error { return e.err }
