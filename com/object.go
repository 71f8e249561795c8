// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package com

import (
	"unsafe"
)

// GenericObject is a struct that wraps any interface that implements the COM
// ABI. A must be a struct whose first field is the vtable pointer. The zero
// value is a null object.
//
// Copying a GenericObject copies the pointer without adding a reference; use
// Clone for an independent owner.
type GenericObject[A any] struct {
	p *A
}

// Wrap returns a GenericObject for the pointer held by r without adding a
// reference.
func Wrap[A any](r ABIReceiver) GenericObject[A] {
	if r == nil || *r == nil {
		return GenericObject[A]{}
	}
	return GenericObject[A]{p: (*A)(unsafe.Pointer(*r))}
}

// WrapInterface wraps p, typically an interface pointer of a Server, without
// adding a reference.
func WrapInterface[A any](p *IUnknownABI) GenericObject[A] {
	return GenericObject[A]{p: (*A)(unsafe.Pointer(p))}
}

// WrapRaw is Wrap for a pointer received as a machine word.
func WrapRaw[A any](raw uintptr) GenericObject[A] {
	return GenericObject[A]{p: (*A)(PointerFromABI(raw))}
}

// PointerFromABI converts a pointer received as a machine word back into a
// pointer. The memory it refers to must be kept alive by the caller that
// passed it, for at least the duration of the call.
func PointerFromABI(raw uintptr) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&raw))
}

// IsNull reports whether o wraps no interface pointer.
func (o GenericObject[A]) IsNull() bool {
	return o.p == nil
}

// AsRaw returns the wrapped pointer as a machine word for identity comparison
// or for passing as a borrowed ABI argument.
func (o GenericObject[A]) AsRaw() uintptr {
	return uintptr(unsafe.Pointer(o.p))
}

// UnsafeUnwrap returns the wrapped ABI pointer.
func (o GenericObject[A]) UnsafeUnwrap() *A {
	return o.p
}

// Unknown returns the wrapped pointer viewed as IUnknown.
func (o GenericObject[A]) Unknown() *IUnknownABI {
	return (*IUnknownABI)(unsafe.Pointer(o.p))
}

// Clone adds a reference and returns a new owner of the same pointer.
func (o GenericObject[A]) Clone() GenericObject[A] {
	if o.p != nil {
		o.Unknown().AddRef()
	}
	return o
}

// Close releases the reference held by o and resets it to null. Closing a
// null object is a no-op.
func (o *GenericObject[A]) Close() error {
	if o.p != nil {
		o.Unknown().Release()
		o.p = nil
	}
	return nil
}
