// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package winrt

import (
	"github.com/dblohm7/wingrt/com"
	"golang.org/x/sys/windows"
)

func taskMemFree(p uintptr) {
	windows.CoTaskMemFree(com.PointerFromABI(p))
}
