// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package foundation

import (
	"unsafe"

	"github.com/dblohm7/wingrt"
	"github.com/dblohm7/wingrt/com"
	"github.com/dblohm7/wingrt/winrt"
)

// PropertyValueStatics is the activation factory of the system
// Windows.Foundation.PropertyValue class.
type PropertyValueStatics struct {
	winrt.Inspectable
}

// GetPropertyValueStatics obtains the system factory. The calling thread must
// have initialized the runtime with winrt.RoInitialize.
func GetPropertyValueStatics() (PropertyValueStatics, error) {
	f, err := winrt.GetActivationFactory("Windows.Foundation.PropertyValue", IID_IPropertyValueStatics)
	return PropertyValueStatics{f}, err
}

// Vtable index of IPropertyValueStatics::CreateUInt8; the Create methods for
// the scalar types follow in PropertyType order.
const staticsCreateUInt8 = 7

// CreateValue boxes v using the system factory. Floating-point and GUID values
// cannot be passed as ABI arguments and are rejected with
// winrt.ErrUnsupportedType; use Box for those.
func CreateValue[T any](statics PropertyValueStatics, v T) (IPropertyValue, error) {
	if statics.IsNull() {
		return IPropertyValue{}, wingrt.Error(wingrt.E_POINTER)
	}
	typ, err := propertyTypeOf[T]()
	if err != nil {
		return IPropertyValue{}, err
	}
	w, release, err := winrt.ToABI(v)
	defer release()
	if err != nil {
		return IPropertyValue{}, err
	}

	abi := statics.UnsafeUnwrap()
	method := unsafe.Slice(abi.Vtbl, 21)[staticsCreateUInt8+int(typ)-int(PropertyTypeUInt8)]
	out := com.Out[winrt.OutSlot]()
	if err := com.CallHRESULT(method, uintptr(unsafe.Pointer(abi)), w, out.Addr()); err != nil {
		return IPropertyValue{}, err
	}

	insp, err := winrt.TakeOut[winrt.Inspectable](out)
	if err != nil {
		return IPropertyValue{}, err
	}
	defer insp.Close()
	return com.TryAs[IPropertyValue](insp)
}
