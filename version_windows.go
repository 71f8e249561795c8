// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package wingrt

import (
	"sync"

	"golang.org/x/sys/windows"
)

var verInfo = sync.OnceValue(func() *windows.OsVersionInfoEx {
	return windows.RtlGetVersion()
})

// IsWinVersionOrGreater returns true when the running version of Windows is at
// least major.minor.build.
func IsWinVersionOrGreater(major, minor, build uint32) bool {
	vi := verInfo()
	return isVerGE(vi.MajorVersion, major, vi.MinorVersion, minor, vi.BuildNumber, build)
}

// IsWin8OrGreater returns true when the Windows Runtime is available, which
// first shipped with Windows 8.
func IsWin8OrGreater() bool {
	return IsWinVersionOrGreater(6, 2, 0)
}
