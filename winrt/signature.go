// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package winrt

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dblohm7/wingrt"
	"github.com/dblohm7/wingrt/com"
	"github.com/google/uuid"
)

// ErrUnsupportedType is returned when a Go type has no runtime signature or
// cannot be marshaled across the ABI.
var ErrUnsupportedType = errors.New("type is not supported by the runtime projection")

// Object is implemented by every projected runtime reference type (interfaces,
// delegates, and runtime classes). Its methods may be called on zero values.
type Object interface {
	com.Object

	// Signature returns the type's signature in the runtime type system, used
	// to derive identifiers for generic instantiations.
	Signature() string
}

// Enum is implemented by projected enumeration types. Enumerations cross the
// ABI as a single 32-bit value. Its methods may be called on zero values.
type Enum interface {
	Signature() string
	ToWord() uintptr
	FromWord(w uintptr) any
}

// Signature returns the runtime signature of T. Primitive Go types map onto the
// runtime fundamentals; everything else must implement Object or Enum.
func Signature[T any]() (string, error) {
	var zero T
	switch v := any(zero).(type) {
	case bool:
		return "b1", nil
	case uint8:
		return "u1", nil
	case int16:
		return "i2", nil
	case uint16:
		return "u2", nil
	case int32:
		return "i4", nil
	case uint32:
		return "u4", nil
	case int64:
		return "i8", nil
	case uint64:
		return "u8", nil
	case float32:
		return "f4", nil
	case float64:
		return "f8", nil
	case string:
		return "string", nil
	case wingrt.GUID:
		return "g16", nil
	case Object:
		return v.Signature(), nil
	case Enum:
		return v.Signature(), nil
	}
	return "", fmt.Errorf("%w: %T", ErrUnsupportedType, zero)
}

// MustSignature is like Signature but panics for unsupported types. Generic
// projections use it from zero-value methods, after their constructors have
// validated the type arguments.
func MustSignature[T any]() string {
	sig, err := Signature[T]()
	if err != nil {
		panic(err)
	}
	return sig
}

// GUIDSignature formats g the way it appears inside signatures.
func GUIDSignature(g *com.IID) string {
	return strings.ToLower(wingrt.GUID(*g).String())
}

// InterfaceSignature returns the signature of a non-generic interface.
func InterfaceSignature(iid *com.IID) string {
	return GUIDSignature(iid)
}

// DelegateSignature returns the signature of a delegate whose (possibly
// derived) identifier is iid.
func DelegateSignature(iid *com.IID) string {
	return "delegate(" + GUIDSignature(iid) + ")"
}

// RuntimeClassSignature returns the signature of a runtime class given its
// name and default interface signature.
func RuntimeClassSignature(name, defaultInterface string) string {
	return "rc(" + name + ";" + defaultInterface + ")"
}

// EnumSignature returns the signature of an enumeration; flags enumerations
// have an unsigned underlying type.
func EnumSignature(name string, flags bool) string {
	if flags {
		return "enum(" + name + ";u4)"
	}
	return "enum(" + name + ";i4)"
}

// ParameterizedSignature returns the signature of template instantiated over
// the ordered type argument signatures args.
func ParameterizedSignature(template *com.IID, args ...string) string {
	var b strings.Builder
	b.WriteString("pinterface(")
	b.WriteString(GUIDSignature(template))
	for _, a := range args {
		b.WriteByte(';')
		b.WriteString(a)
	}
	b.WriteByte(')')
	return b.String()
}

// runtimeNamespace is the UUID namespace for identifiers derived from
// signatures, {11f47ad5-7b73-42c0-abae-878b1e16adee}.
var runtimeNamespace = uuid.MustParse("11f47ad5-7b73-42c0-abae-878b1e16adee")

var derivedIIDs sync.Map

// IIDFromSignature derives an interface identifier from sig as a name-based
// (version 5, SHA-1) UUID in the runtime namespace. The result is a pure
// function of sig and is shared between callers, who must not modify it.
func IIDFromSignature(sig string) *com.IID {
	if v, ok := derivedIIDs.Load(sig); ok {
		return v.(*com.IID)
	}
	iid := com.IID(wingrt.GUIDFromBytes(uuid.NewSHA1(runtimeNamespace, []byte(sig))))
	v, _ := derivedIIDs.LoadOrStore(sig, &iid)
	return v.(*com.IID)
}

// ParameterizedIID returns the identifier of template instantiated over the
// ordered type argument signatures args.
func ParameterizedIID(template *com.IID, args ...string) *com.IID {
	return IIDFromSignature(ParameterizedSignature(template, args...))
}

// IIDOf returns the interface identifier of T: the metadata-assigned value for
// non-generic types, the derived value for generic instantiations.
func IIDOf[T com.Object]() *com.IID {
	var zero T
	return zero.GetIID()
}

// IIDMismatchError reports that the runtime assigned an identifier to a type
// that differs from the one derived from its signature.
type IIDMismatchError struct {
	Signature string
	Derived   com.IID
	Assigned  com.IID
}

func (e *IIDMismatchError) Error() string {
	return fmt.Sprintf("identifier mismatch for %s: derived %v, runtime assigned %v", e.Signature, e.Derived, e.Assigned)
}

// VerifyIID compares the identifier derived for T with one assigned to it
// externally (by metadata or by the runtime). A mismatch is reported as an
// *IIDMismatchError rather than trusted silently.
func VerifyIID[T Object](assigned com.IID) error {
	var zero T
	derived := zero.GetIID()
	if *derived == assigned {
		return nil
	}
	err := &IIDMismatchError{Signature: zero.Signature(), Derived: *derived, Assigned: assigned}
	com.Logger().Sugar().Warnf("%v", err)
	return err
}
