// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package winrt

import (
	"sync"
	"unsafe"

	"github.com/dblohm7/wingrt"
	"github.com/dblohm7/wingrt/com"
)

var IID_IInspectable = &com.IID{Data1: 0xAF86E2E0, Data2: 0xB12D, Data3: 0x4C6A, Data4: [8]byte{0x9C, 0x5A, 0xD7, 0xAA, 0x65, 0x10, 0x1E, 0x90}}

// TrustLevel is the trust classification reported by IInspectable.
type TrustLevel int32

const (
	BaseTrust    = TrustLevel(0)
	PartialTrust = TrustLevel(1)
	FullTrust    = TrustLevel(2)
)

// IInspectableABI is the base ABI of every runtime interface.
type IInspectableABI struct {
	com.IUnknownABI
}

// InspectableFromRaw reinterprets an ABI pointer received as a machine word.
func InspectableFromRaw(raw uintptr) *IInspectableABI {
	return (*IInspectableABI)(com.PointerFromABI(raw))
}

// GetIids returns the interfaces (other than IUnknown and IInspectable) the
// object reports implementing.
func (abi *IInspectableABI) GetIids() ([]com.IID, error) {
	count := com.Out[uint32]()
	iids := com.Out[uintptr]()
	method := unsafe.Slice(abi.Vtbl, 6)[3]

	if err := com.CallHRESULT(
		method,
		uintptr(unsafe.Pointer(abi)),
		uintptr(unsafe.Pointer(count)),
		uintptr(unsafe.Pointer(iids)),
	); err != nil {
		return nil, err
	}
	if *iids == 0 {
		return nil, nil
	}
	defer taskMemFree(*iids)

	src := unsafe.Slice((*com.IID)(com.PointerFromABI(*iids)), *count)
	return append([]com.IID(nil), src...), nil
}

// GetRuntimeClassName returns the fully-qualified name of the object's
// runtime class.
func (abi *IInspectableABI) GetRuntimeClassName() (string, error) {
	name := com.Out[HString]()
	method := unsafe.Slice(abi.Vtbl, 6)[4]

	if err := com.CallHRESULT(
		method,
		uintptr(unsafe.Pointer(abi)),
		uintptr(unsafe.Pointer(name)),
	); err != nil {
		return "", err
	}
	defer name.Close()
	return name.String(), nil
}

// GetTrustLevel returns the object's trust level.
func (abi *IInspectableABI) GetTrustLevel() (TrustLevel, error) {
	level := com.Out[TrustLevel]()
	method := unsafe.Slice(abi.Vtbl, 6)[5]

	if err := com.CallHRESULT(
		method,
		uintptr(unsafe.Pointer(abi)),
		uintptr(unsafe.Pointer(level)),
	); err != nil {
		return 0, err
	}
	return *level, nil
}

// Inspectable is a reference to an arbitrary runtime object (the Object type
// of the runtime's type system).
type Inspectable struct {
	com.GenericObject[IInspectableABI]
}

func (Inspectable) GetIID() *com.IID {
	return IID_IInspectable
}

func (Inspectable) Signature() string {
	return "cinterface(IInspectable)"
}

func (Inspectable) Make(r com.ABIReceiver) any {
	return Inspectable{com.Wrap[IInspectableABI](r)}
}

// Clone returns a new owning reference to the same object.
func (o Inspectable) Clone() Inspectable {
	return Inspectable{o.GenericObject.Clone()}
}

// AsInspectable returns a borrowed IInspectable view of o, which must be a
// runtime object: every runtime interface derives from IInspectable. The view
// shares o's reference and must not be closed.
func AsInspectable(o com.Object) Inspectable {
	return Inspectable{com.WrapRaw[IInspectableABI](o.AsRaw())}
}

// RuntimeClassName returns the name of the object's runtime class.
func (o Inspectable) RuntimeClassName() (string, error) {
	if o.IsNull() {
		return "", wingrt.Error(wingrt.E_POINTER)
	}
	return o.UnsafeUnwrap().GetRuntimeClassName()
}

// RuntimeClass is implemented by the Go values backing in-process runtime
// objects that report a class name through IInspectable.
type RuntimeClass interface {
	RuntimeClassName() string
}

var inspectableMethods = sync.OnceValue(func() [3]uintptr {
	return [3]uintptr{
		com.NewCallback(inspectableGetIids),
		com.NewCallback(inspectableGetRuntimeClassName),
		com.NewCallback(inspectableGetTrustLevel),
	}
})

// NewInspectableVtable is com.NewVtable for interfaces deriving from
// IInspectable: the three IInspectable methods are inserted ahead of methods.
// The Server's impl should implement RuntimeClass.
func NewInspectableVtable(methods ...any) *com.Vtable {
	insp := inspectableMethods()
	all := make([]any, 0, len(insp)+len(methods))
	for _, m := range insp {
		all = append(all, m)
	}
	all = append(all, methods...)
	return com.NewVtable(all...)
}

func inspectableGetIids(this, count, iids uintptr) uintptr {
	return com.Dispatch(this, "GetIids", func(*com.Server, int) wingrt.HRESULT {
		if count == 0 || iids == 0 {
			return wingrt.E_POINTER
		}
		// In-process objects do not advertise additional interfaces; callers
		// discover them through QueryInterface.
		*(*uint32)(com.PointerFromABI(count)) = 0
		*(*uintptr)(com.PointerFromABI(iids)) = 0
		return wingrt.S_OK
	})
}

func inspectableGetRuntimeClassName(this, name uintptr) uintptr {
	return com.Dispatch(this, "GetRuntimeClassName", func(s *com.Server, _ int) wingrt.HRESULT {
		if name == 0 {
			return wingrt.E_POINTER
		}
		rc, ok := s.Impl().(RuntimeClass)
		if !ok {
			*(*HString)(com.PointerFromABI(name)) = 0
			return wingrt.E_NOTIMPL
		}
		hs, err := NewHString(rc.RuntimeClassName())
		if err != nil {
			return wingrt.HRESULTFromError(err)
		}
		*(*HString)(com.PointerFromABI(name)) = hs
		return wingrt.S_OK
	})
}

func inspectableGetTrustLevel(this, level uintptr) uintptr {
	return com.Dispatch(this, "GetTrustLevel", func(*com.Server, int) wingrt.HRESULT {
		if level == 0 {
			return wingrt.E_POINTER
		}
		*(*TrustLevel)(com.PointerFromABI(level)) = BaseTrust
		return wingrt.S_OK
	})
}
