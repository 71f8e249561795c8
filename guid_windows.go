// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package wingrt

import (
	"golang.org/x/sys/windows"
)

// GUIDFromWindows converts a windows.GUID into a GUID.
func GUIDFromWindows(g windows.GUID) GUID {
	return GUID{Data1: g.Data1, Data2: g.Data2, Data3: g.Data3, Data4: g.Data4}
}

// ToWindows converts g into a windows.GUID.
func (g GUID) ToWindows() windows.GUID {
	return windows.GUID{Data1: g.Data1, Data2: g.Data2, Data3: g.Data3, Data4: g.Data4}
}
