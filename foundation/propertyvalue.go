// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package foundation

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/dblohm7/wingrt"
	"github.com/dblohm7/wingrt/com"
	"github.com/dblohm7/wingrt/winrt"
)

var (
	IID_IPropertyValue        = &com.IID{Data1: 0x4BD682DD, Data2: 0x7554, Data3: 0x40E9, Data4: [8]byte{0x9A, 0x9B, 0x82, 0x65, 0x4E, 0xDE, 0x7E, 0x62}}
	IID_IPropertyValueStatics = &com.IID{Data1: 0x629BDBC8, Data2: 0xD932, Data3: 0x4FF4, Data4: [8]byte{0x96, 0xB9, 0x8D, 0x96, 0xC5, 0xC1, 0xE8, 0x58}}

	templateIReference = &com.IID{Data1: 0x61C17706, Data2: 0x2D65, Data3: 0x11E0, Data4: [8]byte{0x9A, 0xE8, 0xD4, 0x85, 0x64, 0x01, 0x54, 0x72}}
)

// PropertyType identifies the type of a boxed value.
type PropertyType int32

const (
	PropertyTypeEmpty       = PropertyType(0)
	PropertyTypeUInt8       = PropertyType(1)
	PropertyTypeInt16       = PropertyType(2)
	PropertyTypeUInt16      = PropertyType(3)
	PropertyTypeInt32       = PropertyType(4)
	PropertyTypeUInt32      = PropertyType(5)
	PropertyTypeInt64       = PropertyType(6)
	PropertyTypeUInt64      = PropertyType(7)
	PropertyTypeSingle      = PropertyType(8)
	PropertyTypeDouble      = PropertyType(9)
	PropertyTypeChar16      = PropertyType(10)
	PropertyTypeBoolean     = PropertyType(11)
	PropertyTypeString      = PropertyType(12)
	PropertyTypeInspectable = PropertyType(13)
	PropertyTypeDateTime    = PropertyType(14)
	PropertyTypeTimeSpan    = PropertyType(15)
	PropertyTypeGuid        = PropertyType(16)
	PropertyTypePoint       = PropertyType(17)
	PropertyTypeSize        = PropertyType(18)
	PropertyTypeRect        = PropertyType(19)
	PropertyTypeOtherType   = PropertyType(20)
)

var propertyTypeNames = map[PropertyType]string{
	PropertyTypeEmpty:   "Empty",
	PropertyTypeUInt8:   "UInt8",
	PropertyTypeInt16:   "Int16",
	PropertyTypeUInt16:  "UInt16",
	PropertyTypeInt32:   "Int32",
	PropertyTypeUInt32:  "UInt32",
	PropertyTypeInt64:   "Int64",
	PropertyTypeUInt64:  "UInt64",
	PropertyTypeSingle:  "Single",
	PropertyTypeDouble:  "Double",
	PropertyTypeChar16:  "Char16",
	PropertyTypeBoolean: "Boolean",
	PropertyTypeString:  "String",
	PropertyTypeGuid:    "Guid",
}

func (t PropertyType) String() string {
	if name, ok := propertyTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("PropertyType(%d)", int32(t))
}

func (PropertyType) Signature() string {
	return winrt.EnumSignature("Windows.Foundation.PropertyType", false)
}

func (t PropertyType) ToWord() uintptr {
	return uintptr(uint32(t))
}

func (PropertyType) FromWord(w uintptr) any {
	return PropertyType(int32(w))
}

func (t PropertyType) isNumericScalar() bool {
	return t >= PropertyTypeUInt8 && t <= PropertyTypeDouble
}

// Vtable indices of IPropertyValue. The scalar getters run from
// propGetUInt8 to propGetGuid in PropertyType order, skipping Empty.
const (
	propType            = 6
	propIsNumericScalar = 7
	propGetUInt8        = 8
	propGetGuid         = 20
	propLastScalar      = 25
	propMethodCount     = 45
)

// getterTypes maps scalar getter indices to the type they return.
var getterTypes = [...]PropertyType{
	PropertyTypeUInt8,
	PropertyTypeInt16,
	PropertyTypeUInt16,
	PropertyTypeInt32,
	PropertyTypeUInt32,
	PropertyTypeInt64,
	PropertyTypeUInt64,
	PropertyTypeSingle,
	PropertyTypeDouble,
	PropertyTypeChar16,
	PropertyTypeBoolean,
	PropertyTypeString,
	PropertyTypeGuid,
}

// IPropertyValueABI is the ABI of Windows.Foundation.IPropertyValue.
type IPropertyValueABI struct {
	winrt.IInspectableABI
}

func (abi *IPropertyValueABI) get(index int, out *winrt.OutSlot) error {
	method := unsafe.Slice(abi.Vtbl, propMethodCount)[index]
	return com.CallHRESULT(method, uintptr(unsafe.Pointer(abi)), out.Addr())
}

// IPropertyValue is a boxed primitive value.
type IPropertyValue struct {
	com.GenericObject[IPropertyValueABI]
}

func (IPropertyValue) GetIID() *com.IID {
	return IID_IPropertyValue
}

func (IPropertyValue) Signature() string {
	return winrt.InterfaceSignature(IID_IPropertyValue)
}

func (IPropertyValue) Make(r com.ABIReceiver) any {
	return IPropertyValue{com.Wrap[IPropertyValueABI](r)}
}

// Clone returns a new owning reference to the same value.
func (v IPropertyValue) Clone() IPropertyValue {
	return IPropertyValue{v.GenericObject.Clone()}
}

func propertyGet[T any](v IPropertyValue, index int) (T, error) {
	if v.IsNull() {
		var zero T
		return zero, wingrt.Error(wingrt.E_POINTER)
	}
	out := com.Out[winrt.OutSlot]()
	if err := v.UnsafeUnwrap().get(index, out); err != nil {
		var zero T
		return zero, err
	}
	return winrt.TakeOut[T](out)
}

// Type returns the type of the boxed value.
func (v IPropertyValue) Type() (PropertyType, error) {
	return propertyGet[PropertyType](v, propType)
}

// IsNumericScalar reports whether the boxed value is an integer or floating
// point number.
func (v IPropertyValue) IsNumericScalar() (bool, error) {
	return propertyGet[bool](v, propIsNumericScalar)
}

func (v IPropertyValue) GetUInt8() (uint8, error) {
	return propertyGet[uint8](v, propGetUInt8)
}

func (v IPropertyValue) GetInt16() (int16, error) {
	return propertyGet[int16](v, propGetUInt8+1)
}

func (v IPropertyValue) GetUInt16() (uint16, error) {
	return propertyGet[uint16](v, propGetUInt8+2)
}

func (v IPropertyValue) GetInt32() (int32, error) {
	return propertyGet[int32](v, propGetUInt8+3)
}

func (v IPropertyValue) GetUInt32() (uint32, error) {
	return propertyGet[uint32](v, propGetUInt8+4)
}

func (v IPropertyValue) GetInt64() (int64, error) {
	return propertyGet[int64](v, propGetUInt8+5)
}

func (v IPropertyValue) GetUInt64() (uint64, error) {
	return propertyGet[uint64](v, propGetUInt8+6)
}

func (v IPropertyValue) GetSingle() (float32, error) {
	return propertyGet[float32](v, propGetUInt8+7)
}

func (v IPropertyValue) GetDouble() (float64, error) {
	return propertyGet[float64](v, propGetUInt8+8)
}

// GetChar16 returns a boxed UTF-16 code unit.
func (v IPropertyValue) GetChar16() (uint16, error) {
	return propertyGet[uint16](v, propGetUInt8+9)
}

func (v IPropertyValue) GetBoolean() (bool, error) {
	return propertyGet[bool](v, propGetUInt8+10)
}

func (v IPropertyValue) GetString() (string, error) {
	return propertyGet[string](v, propGetUInt8+11)
}

func (v IPropertyValue) GetGuid() (wingrt.GUID, error) {
	return propertyGet[wingrt.GUID](v, propGetGuid)
}

// IReferenceABI is the ABI of Windows.Foundation.IReference<T>.
type IReferenceABI struct {
	winrt.IInspectableABI
}

// IReference is Windows.Foundation.IReference<T>, the typed view of a boxed
// value.
type IReference[T any] struct {
	com.GenericObject[IReferenceABI]
}

func (IReference[T]) GetIID() *com.IID {
	return winrt.IIDFromSignature(IReference[T]{}.Signature())
}

func (IReference[T]) Signature() string {
	return winrt.ParameterizedSignature(templateIReference, winrt.MustSignature[T]())
}

func (IReference[T]) Make(r com.ABIReceiver) any {
	return IReference[T]{com.Wrap[IReferenceABI](r)}
}

// Value returns the boxed value.
func (r IReference[T]) Value() (T, error) {
	var zero T
	if r.IsNull() {
		return zero, wingrt.Error(wingrt.E_POINTER)
	}
	abi := r.UnsafeUnwrap()
	method := unsafe.Slice(abi.Vtbl, 7)[6]
	out := com.Out[winrt.OutSlot]()
	if err := com.CallHRESULT(method, uintptr(unsafe.Pointer(abi)), out.Addr()); err != nil {
		return zero, err
	}
	return winrt.TakeOut[T](out)
}

// Unbox extracts a value of type T from a boxed object. Objects that do not
// box a T fail with an *com.InterfaceError wrapping E_NOINTERFACE.
func Unbox[T any](o com.Object) (T, error) {
	ref, err := com.TryAs[IReference[T]](o)
	if err != nil {
		var zero T
		return zero, err
	}
	defer ref.Close()
	return ref.Value()
}

// boxed is the in-process implementation of a boxed value.
type boxed struct {
	typ   PropertyType
	value any
}

func (b *boxed) RuntimeClassName() string {
	return "Windows.Foundation.IReference`1<" + b.typ.String() + ">"
}

func propertyTypeOf[T any]() (PropertyType, error) {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return PropertyTypeUInt8, nil
	case int16:
		return PropertyTypeInt16, nil
	case uint16:
		return PropertyTypeUInt16, nil
	case int32:
		return PropertyTypeInt32, nil
	case uint32:
		return PropertyTypeUInt32, nil
	case int64:
		return PropertyTypeInt64, nil
	case uint64:
		return PropertyTypeUInt64, nil
	case float32:
		return PropertyTypeSingle, nil
	case float64:
		return PropertyTypeDouble, nil
	case bool:
		return PropertyTypeBoolean, nil
	case string:
		return PropertyTypeString, nil
	case wingrt.GUID:
		return PropertyTypeGuid, nil
	}
	return PropertyTypeEmpty, fmt.Errorf("%w: cannot box %T", winrt.ErrUnsupportedType, zero)
}

var propertyValueVtable = sync.OnceValue(func() *com.Vtable {
	methods := []any{boxedGetType, boxedIsNumericScalar}
	for _, typ := range getterTypes {
		methods = append(methods, boxedGetter(typ))
	}
	for i := propGetGuid + 1; i < propMethodCount; i++ {
		if i <= propLastScalar {
			methods = append(methods, com.NotImplemented(2))
		} else {
			// Array getters: this, length, elements.
			methods = append(methods, com.NotImplemented(3))
		}
	}
	return winrt.NewInspectableVtable(methods...)
})

var referenceVtable = sync.OnceValue(func() *com.Vtable {
	return winrt.NewInspectableVtable(boxedGetValue)
})

// Box boxes v as an in-process object implementing IPropertyValue and
// IReference<T>.
func Box[T any](v T) (IPropertyValue, error) {
	typ, err := propertyTypeOf[T]()
	if err != nil {
		return IPropertyValue{}, err
	}

	itfs := []com.Interface{
		{Vtable: propertyValueVtable(), IIDs: []*com.IID{IID_IPropertyValue, winrt.IID_IInspectable}},
		{Vtable: referenceVtable(), IIDs: []*com.IID{IReference[T]{}.GetIID()}},
	}
	impl := &boxed{typ: typ, value: v}
	s := com.NewServer(impl, itfs, com.WithName(impl.RuntimeClassName()))
	return IPropertyValue{com.WrapInterface[IPropertyValueABI](s.Interface(0))}, nil
}

func boxedImpl(s *com.Server) *boxed {
	return s.Impl().(*boxed)
}

func boxedGetType(this, out uintptr) uintptr {
	return com.Dispatch(this, "get_Type", func(s *com.Server, _ int) wingrt.HRESULT {
		return wingrt.HRESULTFromError(winrt.StoreOut(out, boxedImpl(s).typ))
	})
}

func boxedIsNumericScalar(this, out uintptr) uintptr {
	return com.Dispatch(this, "get_IsNumericScalar", func(s *com.Server, _ int) wingrt.HRESULT {
		return wingrt.HRESULTFromError(winrt.StoreOut(out, boxedImpl(s).typ.isNumericScalar()))
	})
}

func boxedGetter(want PropertyType) func(this, out uintptr) uintptr {
	return func(this, out uintptr) uintptr {
		return com.Dispatch(this, "IPropertyValue", func(s *com.Server, _ int) wingrt.HRESULT {
			b := boxedImpl(s)
			if b.typ != want {
				return wingrt.TYPE_E_TYPEMISMATCH
			}
			return wingrt.HRESULTFromError(winrt.StoreOut(out, b.value))
		})
	}
}

func boxedGetValue(this, out uintptr) uintptr {
	return com.Dispatch(this, "get_Value", func(s *com.Server, _ int) wingrt.HRESULT {
		return wingrt.HRESULTFromError(winrt.StoreOut(out, boxedImpl(s).value))
	})
}
