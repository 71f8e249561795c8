// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package com

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/dblohm7/wingrt"
)

// IUnknownABI represents the memory layout shared by every COM interface
// pointer: a pointer to a table of function pointers.
type IUnknownABI struct {
	Vtbl *uintptr
}

// ABIReceiver is the type that receives COM interface pointers from COM method
// out-parameters.
type ABIReceiver **IUnknownABI

// NewABIReceiver returns a heap-allocated ABIReceiver.
func NewABIReceiver() ABIReceiver {
	return ABIReceiver(Out[*IUnknownABI]())
}

// UnknownFromRaw reinterprets an ABI pointer received as a machine word.
func UnknownFromRaw(raw uintptr) *IUnknownABI {
	return (*IUnknownABI)(PointerFromABI(raw))
}

func (abi *IUnknownABI) method(count, index int) uintptr {
	return unsafe.Slice(abi.Vtbl, count)[index]
}

// QueryInterface asks abi for the interface identified by iid. On success the
// returned pointer carries its own reference.
func (abi *IUnknownABI) QueryInterface(iid *IID) (*IUnknownABI, error) {
	ppv := NewABIReceiver()
	err := CallHRESULT(
		abi.method(3, 0),
		uintptr(unsafe.Pointer(abi)),
		uintptr(unsafe.Pointer(iid)),
		uintptr(unsafe.Pointer(ppv)),
	)
	runtime.KeepAlive(iid)
	if err != nil {
		return nil, err
	}
	return *ppv, nil
}

// AddRef increments abi's reference count and returns the new count.
func (abi *IUnknownABI) AddRef() uint32 {
	return uint32(Call(abi.method(3, 1), uintptr(unsafe.Pointer(abi))))
}

// Release decrements abi's reference count and returns the new count.
func (abi *IUnknownABI) Release() uint32 {
	return uint32(Call(abi.method(3, 2), uintptr(unsafe.Pointer(abi))))
}

// ReleaseABI releases the interface pointer held by r, if any, and clears it.
func ReleaseABI(r ABIReceiver) {
	if r == nil || *r == nil {
		return
	}
	(*r).Release()
	*r = nil
}

// InterfaceError is returned when an object rejects a query for an interface
// it does not implement, or when an interface identifier fails validation.
type InterfaceError struct {
	IID IID
	Err error
}

func (e *InterfaceError) Error() string {
	return fmt.Sprintf("interface %v: %v", e.IID, e.Err)
}

func (e *InterfaceError) Unwrap() error {
	return e.Err
}

// Object is the interface implemented by every projected COM interface type.
// Wrappers do not use finalizers: references are owned explicitly and released
// with Close.
type Object interface {
	// GetIID returns the interface ID for the object. This method may be called
	// on Objects containing the zero value, so its return value must not depend
	// on the value of the method's receiver.
	GetIID() *IID

	// Make wraps the interface pointer held by r without adding a reference.
	// The type of its return value must always match the type of the method's
	// receiver. Make may be called on zero values.
	Make(r ABIReceiver) any

	// AsRaw returns the underlying interface pointer as a machine word, or 0
	// for a null object. No ownership is transferred.
	AsRaw() uintptr
}

// TryAs queries o for the interface implemented by T. The result holds its own
// reference and must be closed by the caller; o is unaffected.
func TryAs[T Object](o Object) (T, error) {
	var zero T
	iid := zero.GetIID()
	raw := o.AsRaw()
	if raw == 0 {
		return zero, &InterfaceError{IID: *iid, Err: wingrt.Error(wingrt.E_POINTER)}
	}

	punk, err := UnknownFromRaw(raw).QueryInterface(iid)
	if err != nil {
		Logger().Sugar().Debugf("QueryInterface(%v) on 0x%X: %v", *iid, raw, err)
		return zero, &InterfaceError{IID: *iid, Err: err}
	}

	return zero.Make(&punk).(T), nil
}
