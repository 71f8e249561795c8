// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package wingrt

import (
	"golang.org/x/sys/windows"
)

// ErrorFromNTStatus converts an NTSTATUS into an Error using the
// HRESULT_FROM_NT rules.
func ErrorFromNTStatus(status windows.NTStatus) Error {
	if status == windows.STATUS_SUCCESS {
		return Error(S_OK)
	}
	return Error(HRESULT(int32(uint32(status) | hrFacilityNTBit)))
}

// AsNTStatus returns the NTSTATUS wrapped by e, or STATUS_SUCCESS when
// IsAvailableAsNTStatus is false.
func (e Error) AsNTStatus() windows.NTStatus {
	if !e.IsAvailableAsNTStatus() {
		return windows.STATUS_SUCCESS
	}
	return windows.NTStatus(uint32(e) &^ hrFacilityNTBit)
}

func newErrorPlatform(code any) (Error, bool) {
	if status, ok := code.(windows.NTStatus); ok {
		return ErrorFromNTStatus(status), true
	}
	return Error(E_UNEXPECTED), false
}
