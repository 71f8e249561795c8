// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package wingrt contains the status-code and identifier types shared by every
// layer of the WinRT projection.
package wingrt

import (
	"errors"
	"fmt"
	"syscall"
)

// HRESULT is the 32-bit status code returned by every ABI entry point.
type HRESULT int32

type hrCode uint16
type hrFacility uint16

const (
	hrFailBit       = 0x80000000
	hrCustomerBit   = 0x20000000 // Also defined as syscall.APPLICATION_ERROR
	hrFacilityNTBit = 0x10000000
	hrFacilityMax   = 0x00001FFF
	hrFacilityMask  = hrFacilityMax << 16
	hrCodeMax       = 0x0000FFFF
	hrCodeMask      = hrCodeMax

	hrFacilityWin32 = hrFacility(7)
)

// hresult converts an unsigned literal (as written in the SDK headers) into an
// HRESULT without tripping constant overflow checks.
func hresult(u uint32) HRESULT {
	return HRESULT(int32(u))
}

var (
	S_OK    = HRESULT(0)
	S_FALSE = HRESULT(1)

	E_NOTIMPL                     = hresult(0x80004001)
	E_NOINTERFACE                 = hresult(0x80004002)
	E_POINTER                     = hresult(0x80004003)
	E_ABORT                       = hresult(0x80004004)
	E_FAIL                        = hresult(0x80004005)
	E_UNEXPECTED                  = hresult(0x8000FFFF)
	E_BOUNDS                      = hresult(0x8000000B)
	E_CHANGED_STATE               = hresult(0x8000000C)
	E_ILLEGAL_STATE_CHANGE        = hresult(0x8000000D)
	E_ILLEGAL_METHOD_CALL         = hresult(0x8000000E)
	E_ILLEGAL_DELEGATE_ASSIGNMENT = hresult(0x80000018)
	E_ACCESSDENIED                = hresult(0x80070005)
	E_OUTOFMEMORY                 = hresult(0x8007000E)
	E_INVALIDARG                  = hresult(0x80070057)
	TYPE_E_WRONGTYPEKIND          = hresult(0x8002802A)
	TYPE_E_TYPEMISMATCH           = hresult(0x80028CA0)
	RPC_E_SERVERFAULT             = hresult(0x80010105)
	RPC_E_CHANGED_MODE            = hresult(0x80010106)
	CO_E_NOTINITIALIZED           = hresult(0x800401F0)
	REGDB_E_CLASSNOTREG           = hresult(0x80040154)
)

var hrNames = map[HRESULT]string{
	S_OK:                          "S_OK",
	S_FALSE:                       "S_FALSE",
	E_NOTIMPL:                     "E_NOTIMPL",
	E_NOINTERFACE:                 "E_NOINTERFACE",
	E_POINTER:                     "E_POINTER",
	E_ABORT:                       "E_ABORT",
	E_FAIL:                        "E_FAIL",
	E_UNEXPECTED:                  "E_UNEXPECTED",
	E_BOUNDS:                      "E_BOUNDS",
	E_CHANGED_STATE:               "E_CHANGED_STATE",
	E_ILLEGAL_STATE_CHANGE:        "E_ILLEGAL_STATE_CHANGE",
	E_ILLEGAL_METHOD_CALL:         "E_ILLEGAL_METHOD_CALL",
	E_ILLEGAL_DELEGATE_ASSIGNMENT: "E_ILLEGAL_DELEGATE_ASSIGNMENT",
	E_ACCESSDENIED:                "E_ACCESSDENIED",
	E_OUTOFMEMORY:                 "E_OUTOFMEMORY",
	E_INVALIDARG:                  "E_INVALIDARG",
	TYPE_E_WRONGTYPEKIND:          "TYPE_E_WRONGTYPEKIND",
	TYPE_E_TYPEMISMATCH:           "TYPE_E_TYPEMISMATCH",
	RPC_E_SERVERFAULT:             "RPC_E_SERVERFAULT",
	RPC_E_CHANGED_MODE:            "RPC_E_CHANGED_MODE",
	CO_E_NOTINITIALIZED:           "CO_E_NOTINITIALIZED",
	REGDB_E_CLASSNOTREG:           "REGDB_E_CLASSNOTREG",
}

func (hr HRESULT) isNT() bool {
	return (hr & (hrCustomerBit | hrFacilityNTBit)) == hrFacilityNTBit
}

func (hr HRESULT) isCustomer() bool {
	return (hr & hrCustomerBit) != 0
}

// Succeeded returns true when hr is a success code (S_OK, S_FALSE, ...).
func (hr HRESULT) Succeeded() bool {
	return hr >= 0
}

// Failed returns true when hr is a failure code.
func (hr HRESULT) Failed() bool {
	return !hr.Succeeded()
}

func (hr HRESULT) facility() hrFacility {
	return hrFacility((uint32(hr) >> 16) & hrFacilityMax)
}

func (hr HRESULT) code() hrCode {
	return hrCode(hr & hrCodeMask)
}

func (hr HRESULT) String() string {
	if name, ok := hrNames[hr]; ok {
		return name
	}
	return fmt.Sprintf("HRESULT 0x%08X", uint32(hr))
}

// Error is an HRESULT that satisfies the error interface. It is the Go-side
// rendition of every status code that crosses the ABI boundary.
type Error HRESULT

// ErrorFromHRESULT wraps hr as an Error. Success codes are also representable;
// callers check Failed before treating the result as an error.
func ErrorFromHRESULT(hr HRESULT) Error {
	return Error(hr)
}

// ErrorFromErrno converts a Win32 error code into an Error using the
// HRESULT_FROM_WIN32 rules.
func ErrorFromErrno(e syscall.Errno) Error {
	if e == 0 {
		return Error(S_OK)
	}
	u := uint32(e)
	if int32(u) < 0 {
		return Error(HRESULT(int32(u)))
	}
	return Error(HRESULT(int32((u & hrCodeMask) | (uint32(hrFacilityWin32) << 16) | hrFailBit)))
}

// NewError converts code into an Error. code may be an HRESULT, an Error, a
// syscall.Errno, or (on Windows) a windows.NTStatus. ok is false for any other
// type.
func NewError(code any) (err Error, ok bool) {
	switch v := code.(type) {
	case HRESULT:
		return Error(v), true
	case Error:
		return v, true
	case syscall.Errno:
		return ErrorFromErrno(v), true
	}
	return newErrorPlatform(code)
}

func (e Error) Error() string {
	return HRESULT(e).String()
}

// AsHRESULT returns e as its underlying status code.
func (e Error) AsHRESULT() HRESULT {
	return HRESULT(e)
}

// HRESULT lets Error satisfy the same contract as any other error type that
// carries an ABI status code.
func (e Error) HRESULT() HRESULT {
	return HRESULT(e)
}

// Failed returns true when e represents a failure.
func (e Error) Failed() bool {
	return HRESULT(e).Failed()
}

// Succeeded returns true when e represents success.
func (e Error) Succeeded() bool {
	return HRESULT(e).Succeeded()
}

// IsAvailableAsHRESULT is always true; every Error is an HRESULT.
func (e Error) IsAvailableAsHRESULT() bool {
	return true
}

// IsAvailableAsErrno reports whether e can be losslessly converted with AsErrno.
func (e Error) IsAvailableAsErrno() bool {
	hr := HRESULT(e)
	return hr == S_OK || (!hr.isCustomer() && !hr.isNT() && hr.facility() == hrFacilityWin32)
}

// IsAvailableAsNTStatus reports whether e wraps an NTSTATUS.
func (e Error) IsAvailableAsNTStatus() bool {
	hr := HRESULT(e)
	return hr == S_OK || hr.isNT()
}

// AsErrno returns the Win32 error code wrapped by e, or zero when
// IsAvailableAsErrno is false.
func (e Error) AsErrno() syscall.Errno {
	if !e.IsAvailableAsErrno() {
		return 0
	}
	return syscall.Errno(HRESULT(e).code())
}

type hresulter interface {
	HRESULT() HRESULT
}

// HRESULTFromError maps a Go error onto the ABI status convention: nil is
// S_OK, anything in err's chain that exposes an HRESULT reports that code, and
// every other error is E_FAIL.
func HRESULTFromError(err error) HRESULT {
	if err == nil {
		return S_OK
	}
	var h hresulter
	if errors.As(err, &h) {
		if hr := h.HRESULT(); hr.Failed() {
			return hr
		}
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return HRESULT(ErrorFromErrno(errno))
	}
	return E_FAIL
}
