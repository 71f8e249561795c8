// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package com

import (
	"github.com/dblohm7/wingrt"
)

// NewCallback converts fn into a function pointer that may be stored in a
// vtable and invoked through the platform ABI. fn must be a func whose
// parameters and single result are all uintptr. Callbacks are never freed, so
// NewCallback must only be used to build long-lived tables.
func NewCallback(fn any) uintptr {
	return newCallback(fn)
}

// Call invokes the ABI function pointer fn with args, returning the raw result
// register. Any memory referenced by args must be kept alive by the caller for
// the duration of the call.
func Call(fn uintptr, args ...uintptr) uintptr {
	return call(fn, args...)
}

// CallHRESULT is Call for methods returning an HRESULT. It returns nil on
// success and a wingrt.Error otherwise.
func CallHRESULT(fn uintptr, args ...uintptr) error {
	hr := wingrt.HRESULT(call(fn, args...))
	if e := wingrt.ErrorFromHRESULT(hr); e.Failed() {
		return e
	}
	return nil
}

// escapeSink forces values passed to escape onto the heap.
var (
	escapeSink   any
	escapeToHeap bool
)

func escape(p any) {
	if escapeToHeap {
		escapeSink = p
	}
}

// Out allocates storage for an ABI out-parameter. The storage is guaranteed to
// live on the heap, so its address remains valid while it is passed through
// Call as a uintptr.
func Out[T any]() *T {
	p := new(T)
	escape(p)
	return p
}
