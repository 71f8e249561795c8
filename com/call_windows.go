// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package com

import (
	"syscall"

	"golang.org/x/sys/windows"
)

func newCallback(fn any) uintptr {
	return windows.NewCallback(fn)
}

func call(fn uintptr, args ...uintptr) uintptr {
	rc, _, _ := syscall.SyscallN(fn, args...)
	return rc
}
