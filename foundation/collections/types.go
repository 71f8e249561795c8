// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package collections projects the observable map types of
// Windows.Foundation.Collections and provides in-process implementations of
// them, including PropertySet.
package collections

import (
	"fmt"
	"unsafe"

	"github.com/dblohm7/wingrt"
	"github.com/dblohm7/wingrt/com"
	"github.com/dblohm7/wingrt/winrt"
)

var (
	templateMapChangedEventHandler = &com.IID{Data1: 0x179517F3, Data2: 0x94EE, Data3: 0x41F8, Data4: [8]byte{0xBD, 0xDC, 0x76, 0x8A, 0x89, 0x55, 0x44, 0xF3}}
	templateIObservableMap         = &com.IID{Data1: 0x65DF2BF5, Data2: 0xBF39, Data3: 0x41B5, Data4: [8]byte{0xAE, 0xBC, 0x5A, 0x9D, 0x86, 0x5E, 0x47, 0x2B}}
	templateIMap                   = &com.IID{Data1: 0x3C2925FE, Data2: 0x8519, Data3: 0x45C1, Data4: [8]byte{0xAA, 0x79, 0x19, 0x7B, 0x67, 0x18, 0xC1, 0xC1}}
	templateIMapChangedEventArgs   = &com.IID{Data1: 0x9939F4DF, Data2: 0x050A, Data3: 0x4C0F, Data4: [8]byte{0xAA, 0x60, 0x77, 0x07, 0x5F, 0x9C, 0x47, 0x77}}
)

// CollectionChange describes the kind of change reported by a map changed
// event.
type CollectionChange int32

const (
	CollectionChangeReset        = CollectionChange(0)
	CollectionChangeItemInserted = CollectionChange(1)
	CollectionChangeItemRemoved  = CollectionChange(2)
	CollectionChangeItemChanged  = CollectionChange(3)
)

func (c CollectionChange) String() string {
	switch c {
	case CollectionChangeReset:
		return "Reset"
	case CollectionChangeItemInserted:
		return "ItemInserted"
	case CollectionChangeItemRemoved:
		return "ItemRemoved"
	case CollectionChangeItemChanged:
		return "ItemChanged"
	}
	return fmt.Sprintf("CollectionChange(%d)", int32(c))
}

func (CollectionChange) Signature() string {
	return winrt.EnumSignature("Windows.Foundation.Collections.CollectionChange", false)
}

func (c CollectionChange) ToWord() uintptr {
	return uintptr(uint32(c))
}

func (CollectionChange) FromWord(w uintptr) any {
	return CollectionChange(int32(w))
}

// IMapChangedEventArgsABI is the ABI of IMapChangedEventArgs<K>.
type IMapChangedEventArgsABI struct {
	winrt.IInspectableABI
}

func (abi *IMapChangedEventArgsABI) get(index int, out *winrt.OutSlot) error {
	method := unsafe.Slice(abi.Vtbl, 8)[index]
	return com.CallHRESULT(method, uintptr(unsafe.Pointer(abi)), out.Addr())
}

// IMapChangedEventArgs describes a single change to an observable map.
type IMapChangedEventArgs[K any] struct {
	com.GenericObject[IMapChangedEventArgsABI]
}

func (IMapChangedEventArgs[K]) GetIID() *com.IID {
	return winrt.IIDFromSignature(IMapChangedEventArgs[K]{}.Signature())
}

func (IMapChangedEventArgs[K]) Signature() string {
	return winrt.ParameterizedSignature(templateIMapChangedEventArgs, winrt.MustSignature[K]())
}

func (IMapChangedEventArgs[K]) Make(r com.ABIReceiver) any {
	return IMapChangedEventArgs[K]{com.Wrap[IMapChangedEventArgsABI](r)}
}

// CollectionChange returns the kind of change.
func (a IMapChangedEventArgs[K]) CollectionChange() (CollectionChange, error) {
	if a.IsNull() {
		return 0, wingrt.Error(wingrt.E_POINTER)
	}
	out := com.Out[winrt.OutSlot]()
	if err := a.UnsafeUnwrap().get(6, out); err != nil {
		return 0, err
	}
	return winrt.TakeOut[CollectionChange](out)
}

// Key returns the key of the affected item. It is the zero K for Reset.
func (a IMapChangedEventArgs[K]) Key() (K, error) {
	var zero K
	if a.IsNull() {
		return zero, wingrt.Error(wingrt.E_POINTER)
	}
	out := com.Out[winrt.OutSlot]()
	if err := a.UnsafeUnwrap().get(7, out); err != nil {
		return zero, err
	}
	return winrt.TakeOut[K](out)
}

// MapChangedEventHandler is the delegate type of IObservableMap<K, V>'s
// MapChanged event.
type MapChangedEventHandler[K, V any] struct {
	winrt.Delegate
}

func (MapChangedEventHandler[K, V]) GetIID() *com.IID {
	return winrt.IIDFromSignature(MapChangedEventHandler[K, V]{}.Signature())
}

func (MapChangedEventHandler[K, V]) Signature() string {
	return winrt.ParameterizedSignature(templateMapChangedEventHandler, winrt.MustSignature[K](), winrt.MustSignature[V]())
}

func (MapChangedEventHandler[K, V]) Make(r com.ABIReceiver) any {
	return MapChangedEventHandler[K, V]{winrt.MakeDelegate(r)}
}

// NewMapChangedEventHandler creates a handler that calls fn. Both arguments
// are borrowed for the duration of the call.
func NewMapChangedEventHandler[K, V any](fn func(sender IObservableMap[K, V], event IMapChangedEventArgs[K]) error, opts ...com.ServerOption) (MapChangedEventHandler[K, V], error) {
	var zero MapChangedEventHandler[K, V]
	if err := checkTypes[K, V](); err != nil {
		return zero, err
	}

	d, err := winrt.NewDelegate(zero.GetIID(), 2, func(args []uintptr) error {
		sender, err := winrt.FromABI[IObservableMap[K, V]](args[0])
		if err != nil {
			return err
		}
		event, err := winrt.FromABI[IMapChangedEventArgs[K]](args[1])
		if err != nil {
			return err
		}
		return fn(sender, event)
	}, opts...)
	return MapChangedEventHandler[K, V]{d}, err
}

// Clone returns a new owning reference to the same handler.
func (h MapChangedEventHandler[K, V]) Clone() MapChangedEventHandler[K, V] {
	return MapChangedEventHandler[K, V]{h.Delegate.Clone()}
}

// Invoke calls the handler.
func (h MapChangedEventHandler[K, V]) Invoke(sender IObservableMap[K, V], event IMapChangedEventArgs[K]) error {
	return h.InvokeRaw(sender.AsRaw(), event.AsRaw())
}

// checkTypes validates the type arguments of a map instantiation.
func checkTypes[K, V any]() error {
	if err := winrt.CheckArgument[K](); err != nil {
		return err
	}
	return winrt.CheckArgument[V]()
}
