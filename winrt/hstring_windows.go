// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package winrt

import (
	"unsafe"

	"github.com/dblohm7/wingrt"
)

func hstringCreate(us []uint16) (HString, error) {
	var hs HString
	hr := windowsCreateString(&us[0], uint32(len(us)), &hs)
	if e := wingrt.ErrorFromHRESULT(hr); e.Failed() {
		return 0, e
	}
	return hs, nil
}

func hstringBuffer(hs HString) []uint16 {
	var n uint32
	p := windowsGetStringRawBuffer(hs, &n)
	if p == nil || n == 0 {
		return nil
	}
	return unsafe.Slice(p, n)
}

func hstringDuplicate(hs HString) (HString, error) {
	var dup HString
	hr := windowsDuplicateString(hs, &dup)
	if e := wingrt.ErrorFromHRESULT(hr); e.Failed() {
		return 0, e
	}
	return dup, nil
}

func hstringDelete(hs HString) {
	windowsDeleteString(hs)
}
