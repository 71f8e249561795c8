// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package winrt

import (
	"fmt"
	"unsafe"

	"github.com/dblohm7/wingrt"
	"github.com/dblohm7/wingrt/com"
	"golang.org/x/exp/constraints"
)

// Values cross the ABI in one of three ways:
//
//   - Integers, booleans and enumerations are passed as a single machine word.
//   - Strings are passed as runtime strings. An argument string is owned by the
//     caller and lives for the duration of the call; an out-parameter string is
//     owned by whoever receives it.
//   - Objects are passed as raw interface pointers. Arguments are borrowed: the
//     callee must Clone an argument it wants to keep past the call. Objects
//     written to out-parameters carry a reference owned by the receiver.
//
// 64-bit integers cannot be passed as a single word on 32-bit platforms and
// floating-point values are not passed in integer registers at all; both are
// rejected with ErrUnsupportedType when they would need to cross as arguments.

const wordSize = unsafe.Sizeof(uintptr(0))

func intWord[I constraints.Integer](i I) uintptr {
	return uintptr(i)
}

func unsupported[T any]() error {
	var zero T
	return fmt.Errorf("%w: %T", ErrUnsupportedType, zero)
}

// CheckArgument reports whether values of type T can be passed as ABI
// arguments. Projections call it at construction time so that unsupported
// instantiations fail early rather than on first invocation.
func CheckArgument[T any]() error {
	var zero T
	switch any(zero).(type) {
	case bool, uint8, int16, uint16, int32, uint32, string, Object, Enum:
		return nil
	case int64, uint64:
		if wordSize >= 8 {
			return nil
		}
	}
	return unsupported[T]()
}

// ToABI converts v into the word passed for it as an argument. The returned
// release func must be called once the call has returned; it is never nil.
func ToABI[T any](v T) (word uintptr, release func(), err error) {
	release = func() {}
	switch x := any(v).(type) {
	case bool:
		if x {
			word = 1
		}
	case uint8:
		word = intWord(x)
	case int16:
		word = intWord(x)
	case uint16:
		word = intWord(x)
	case int32:
		word = intWord(x)
	case uint32:
		word = intWord(x)
	case int64:
		if wordSize < 8 {
			return 0, release, unsupported[T]()
		}
		word = intWord(x)
	case uint64:
		if wordSize < 8 {
			return 0, release, unsupported[T]()
		}
		word = intWord(x)
	case string:
		hs, err := NewHString(x)
		if err != nil {
			return 0, release, err
		}
		return uintptr(hs), func() { hs.Close() }, nil
	case Object:
		word = x.AsRaw()
	case Enum:
		word = x.ToWord()
	default:
		return 0, release, unsupported[T]()
	}
	return word, release, nil
}

// FromABI converts an argument word received by a callee into T. Objects and
// strings are borrowed: the result must not be closed, and an object must be
// cloned to be kept past the call.
func FromABI[T any](w uintptr) (T, error) {
	return fromWord[T](w, false)
}

// TakeABI is FromABI for words whose ownership is transferred to the receiver.
// Strings are copied and their handle released; objects are wrapped as an
// owned reference.
func TakeABI[T any](w uintptr) (T, error) {
	return fromWord[T](w, true)
}

func fromWord[T any](w uintptr, owned bool) (T, error) {
	var zero T
	var v any
	switch x := any(zero).(type) {
	case bool:
		v = uint8(w) != 0
	case uint8:
		v = uint8(w)
	case int16:
		v = int16(w)
	case uint16:
		v = uint16(w)
	case int32:
		v = int32(w)
	case uint32:
		v = uint32(w)
	case int64:
		if wordSize < 8 {
			return zero, unsupported[T]()
		}
		v = int64(w)
	case uint64:
		if wordSize < 8 {
			return zero, unsupported[T]()
		}
		v = uint64(w)
	case string:
		hs := HString(w)
		v = hs.String()
		if owned {
			hs.Close()
		}
	case Object:
		p := com.UnknownFromRaw(w)
		v = x.Make(&p)
	case Enum:
		v = x.FromWord(w)
	default:
		return zero, unsupported[T]()
	}
	return v.(T), nil
}

// StoreOut writes v to the out-parameter at p using T's natural ABI size,
// transferring ownership to the caller: strings are newly allocated and
// objects gain a reference.
func StoreOut[T any](p uintptr, v T) error {
	if p == 0 {
		return errPointer
	}
	ptr := com.PointerFromABI(p)
	switch x := any(v).(type) {
	case bool:
		*(*bool)(ptr) = x
	case uint8:
		*(*uint8)(ptr) = x
	case int16:
		*(*int16)(ptr) = x
	case uint16:
		*(*uint16)(ptr) = x
	case int32:
		*(*int32)(ptr) = x
	case uint32:
		*(*uint32)(ptr) = x
	case int64:
		*(*int64)(ptr) = x
	case uint64:
		*(*uint64)(ptr) = x
	case float32:
		*(*float32)(ptr) = x
	case float64:
		*(*float64)(ptr) = x
	case wingrt.GUID:
		*(*wingrt.GUID)(ptr) = x
	case string:
		hs, err := NewHString(x)
		if err != nil {
			return err
		}
		*(*HString)(ptr) = hs
	case Object:
		raw := x.AsRaw()
		if raw != 0 {
			com.UnknownFromRaw(raw).AddRef()
		}
		*(*uintptr)(ptr) = raw
	case Enum:
		*(*uint32)(ptr) = uint32(x.ToWord())
	default:
		return unsupported[T]()
	}
	return nil
}

// OutSlot is storage for an out-parameter of any type that StoreOut
// supports. Allocate it with com.Out.
type OutSlot [16]byte

// Addr returns the address passed to the callee.
func (s *OutSlot) Addr() uintptr {
	return uintptr(unsafe.Pointer(s))
}

// TakeOut reads a value of type T written by a callee through StoreOut, taking
// ownership of it.
func TakeOut[T any](s *OutSlot) (T, error) {
	var zero T
	ptr := unsafe.Pointer(s)
	var v any
	switch x := any(zero).(type) {
	case bool:
		v = *(*bool)(ptr)
	case uint8:
		v = *(*uint8)(ptr)
	case int16:
		v = *(*int16)(ptr)
	case uint16:
		v = *(*uint16)(ptr)
	case int32:
		v = *(*int32)(ptr)
	case uint32:
		v = *(*uint32)(ptr)
	case int64:
		v = *(*int64)(ptr)
	case uint64:
		v = *(*uint64)(ptr)
	case float32:
		v = *(*float32)(ptr)
	case float64:
		v = *(*float64)(ptr)
	case wingrt.GUID:
		v = *(*wingrt.GUID)(ptr)
	case string:
		hs := *(*HString)(ptr)
		v = hs.String()
		hs.Close()
	case Object:
		p := *(**com.IUnknownABI)(ptr)
		v = x.Make(&p)
	case Enum:
		v = x.FromWord(uintptr(*(*uint32)(ptr)))
	default:
		return zero, unsupported[T]()
	}
	return v.(T), nil
}
