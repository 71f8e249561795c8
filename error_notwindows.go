// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !windows

package wingrt

func newErrorPlatform(code any) (Error, bool) {
	return Error(E_UNEXPECTED), false
}
