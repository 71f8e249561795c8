// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !windows

package com

import (
	"fmt"
	"sync"
)

// Without a native callback mechanism, function pointers are handles into a
// registry of Go funcs. Handles are never dereferenced as code; they are only
// ever passed back to call.
var (
	callbacksMu sync.RWMutex
	callbacks   []any
)

// callbackBase keeps handles away from zero and from small integers that might
// be confused with status codes.
const callbackBase = 0x10000

func newCallback(fn any) uintptr {
	switch fn.(type) {
	case func(uintptr) uintptr,
		func(uintptr, uintptr) uintptr,
		func(uintptr, uintptr, uintptr) uintptr,
		func(uintptr, uintptr, uintptr, uintptr) uintptr,
		func(uintptr, uintptr, uintptr, uintptr, uintptr) uintptr,
		func(uintptr, uintptr, uintptr, uintptr, uintptr, uintptr) uintptr,
		func(uintptr, uintptr, uintptr, uintptr, uintptr, uintptr, uintptr) uintptr:
	default:
		panic(fmt.Sprintf("com.NewCallback: unsupported callback type %T", fn))
	}

	callbacksMu.Lock()
	defer callbacksMu.Unlock()
	callbacks = append(callbacks, fn)
	return uintptr(callbackBase + len(callbacks) - 1)
}

func lookupCallback(fn uintptr) any {
	callbacksMu.RLock()
	defer callbacksMu.RUnlock()
	i := int(fn) - callbackBase
	if i < 0 || i >= len(callbacks) {
		return nil
	}
	return callbacks[i]
}

func call(fn uintptr, args ...uintptr) uintptr {
	a := func(i int) uintptr {
		if i < len(args) {
			return args[i]
		}
		panic(fmt.Sprintf("com.Call: function 0x%X called with %d arguments", fn, len(args)))
	}

	switch f := lookupCallback(fn).(type) {
	case func(uintptr) uintptr:
		return f(a(0))
	case func(uintptr, uintptr) uintptr:
		return f(a(0), a(1))
	case func(uintptr, uintptr, uintptr) uintptr:
		return f(a(0), a(1), a(2))
	case func(uintptr, uintptr, uintptr, uintptr) uintptr:
		return f(a(0), a(1), a(2), a(3))
	case func(uintptr, uintptr, uintptr, uintptr, uintptr) uintptr:
		return f(a(0), a(1), a(2), a(3), a(4))
	case func(uintptr, uintptr, uintptr, uintptr, uintptr, uintptr) uintptr:
		return f(a(0), a(1), a(2), a(3), a(4), a(5))
	case func(uintptr, uintptr, uintptr, uintptr, uintptr, uintptr, uintptr) uintptr:
		return f(a(0), a(1), a(2), a(3), a(4), a(5), a(6))
	case nil:
		panic(fmt.Sprintf("com.Call: 0x%X is not a registered function pointer", fn))
	}
	panic("unreachable")
}
