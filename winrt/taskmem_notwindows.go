// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !windows

package winrt

// In-process objects never hand out task-allocated arrays, so there is
// nothing to free.
func taskMemFree(p uintptr) {}
