// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !windows

package winrt

import (
	"sync"

	"github.com/dblohm7/wingrt"
)

// Without combase, runtime strings are reference-counted UTF-16 buffers kept in
// a registry keyed by handle. Handles are never reused, so a stale handle can
// not alias a newer string.
type hstringHeader struct {
	refs int32
	buf  []uint16
}

var (
	hstringsMu  sync.Mutex
	hstrings    = map[HString]*hstringHeader{}
	lastHString = HString(hstringBase)
)

// hstringBase keeps handles clear of the callback handle range.
const hstringBase = 0x1000000

func hstringCreate(us []uint16) (HString, error) {
	hdr := &hstringHeader{refs: 1, buf: append([]uint16(nil), us...)}

	hstringsMu.Lock()
	defer hstringsMu.Unlock()
	lastHString++
	if lastHString == 0 {
		return 0, wingrt.Error(wingrt.E_OUTOFMEMORY)
	}
	hstrings[lastHString] = hdr
	return lastHString, nil
}

func hstringBuffer(hs HString) []uint16 {
	hstringsMu.Lock()
	defer hstringsMu.Unlock()
	if hdr, ok := hstrings[hs]; ok {
		return hdr.buf
	}
	return nil
}

func hstringDuplicate(hs HString) (HString, error) {
	hstringsMu.Lock()
	defer hstringsMu.Unlock()
	hdr, ok := hstrings[hs]
	if !ok {
		return 0, wingrt.Error(wingrt.E_INVALIDARG)
	}
	hdr.refs++
	return hs, nil
}

func hstringDelete(hs HString) {
	hstringsMu.Lock()
	defer hstringsMu.Unlock()
	hdr, ok := hstrings[hs]
	if !ok {
		return
	}
	if hdr.refs--; hdr.refs == 0 {
		delete(hstrings, hs)
	}
}

func liveHStrings() int {
	hstringsMu.Lock()
	defer hstringsMu.Unlock()
	return len(hstrings)
}
