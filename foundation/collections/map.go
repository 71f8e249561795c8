// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package collections

import (
	"unsafe"

	"github.com/dblohm7/wingrt"
	"github.com/dblohm7/wingrt/com"
	"github.com/dblohm7/wingrt/winrt"
)

// IObservableMapABI is the ABI of IObservableMap<K, V>.
type IObservableMapABI struct {
	winrt.IInspectableABI
}

func (abi *IObservableMapABI) method(i int) uintptr {
	return unsafe.Slice(abi.Vtbl, 8)[i]
}

// AddMapChanged registers the delegate pointer handler.
func (abi *IObservableMapABI) AddMapChanged(handler uintptr) (winrt.EventRegistrationToken, error) {
	token := com.Out[winrt.EventRegistrationToken]()
	err := com.CallHRESULT(abi.method(6), uintptr(unsafe.Pointer(abi)), handler, uintptr(unsafe.Pointer(token)))
	return *token, err
}

// RemoveMapChanged unregisters the handler identified by token.
func (abi *IObservableMapABI) RemoveMapChanged(token winrt.EventRegistrationToken) error {
	args := append([]uintptr{uintptr(unsafe.Pointer(abi))}, token.Words()...)
	return com.CallHRESULT(abi.method(7), args...)
}

// IObservableMap is a map that raises MapChanged whenever it is modified.
type IObservableMap[K, V any] struct {
	com.GenericObject[IObservableMapABI]
}

func (IObservableMap[K, V]) GetIID() *com.IID {
	return winrt.IIDFromSignature(IObservableMap[K, V]{}.Signature())
}

func (IObservableMap[K, V]) Signature() string {
	return winrt.ParameterizedSignature(templateIObservableMap, winrt.MustSignature[K](), winrt.MustSignature[V]())
}

func (IObservableMap[K, V]) Make(r com.ABIReceiver) any {
	return IObservableMap[K, V]{com.Wrap[IObservableMapABI](r)}
}

// Clone returns a new owning reference to the same map.
func (m IObservableMap[K, V]) Clone() IObservableMap[K, V] {
	return IObservableMap[K, V]{m.GenericObject.Clone()}
}

// AddMapChanged subscribes handler to the map's changes. The map keeps its own
// reference to handler until the returned token is removed.
func (m IObservableMap[K, V]) AddMapChanged(handler MapChangedEventHandler[K, V]) (winrt.EventRegistrationToken, error) {
	if m.IsNull() {
		return winrt.EventRegistrationToken{}, wingrt.Error(wingrt.E_POINTER)
	}
	return m.UnsafeUnwrap().AddMapChanged(handler.AsRaw())
}

// RemoveMapChanged cancels the subscription identified by token.
func (m IObservableMap[K, V]) RemoveMapChanged(token winrt.EventRegistrationToken) error {
	if m.IsNull() {
		return wingrt.Error(wingrt.E_POINTER)
	}
	return m.UnsafeUnwrap().RemoveMapChanged(token)
}

// MapChanged subscribes fn to the map's changes, creating the handler
// delegate on the caller's behalf.
func (m IObservableMap[K, V]) MapChanged(fn func(sender IObservableMap[K, V], event IMapChangedEventArgs[K]) error) (winrt.EventRegistrationToken, error) {
	h, err := NewMapChangedEventHandler(fn)
	if err != nil {
		return winrt.EventRegistrationToken{}, err
	}
	defer h.Close()
	return m.AddMapChanged(h)
}

// Map queries m for its IMap<K, V> interface.
func (m IObservableMap[K, V]) Map() (IMap[K, V], error) {
	return com.TryAs[IMap[K, V]](m)
}

// Vtable indices of IMap<K, V>.
const (
	mapLookup = 6 + iota
	mapSize
	mapHasKey
	mapGetView
	mapInsert
	mapRemove
	mapClear
	mapMethodCount
)

// IMapABI is the ABI of IMap<K, V>.
type IMapABI struct {
	winrt.IInspectableABI
}

func (abi *IMapABI) call(i int, args ...uintptr) error {
	method := unsafe.Slice(abi.Vtbl, mapMethodCount)[i]
	return com.CallHRESULT(method, append([]uintptr{uintptr(unsafe.Pointer(abi))}, args...)...)
}

// IMap is a mutable associative collection.
type IMap[K, V any] struct {
	com.GenericObject[IMapABI]
}

func (IMap[K, V]) GetIID() *com.IID {
	return winrt.IIDFromSignature(IMap[K, V]{}.Signature())
}

func (IMap[K, V]) Signature() string {
	return winrt.ParameterizedSignature(templateIMap, winrt.MustSignature[K](), winrt.MustSignature[V]())
}

func (IMap[K, V]) Make(r com.ABIReceiver) any {
	return IMap[K, V]{com.Wrap[IMapABI](r)}
}

// Clone returns a new owning reference to the same map.
func (m IMap[K, V]) Clone() IMap[K, V] {
	return IMap[K, V]{m.GenericObject.Clone()}
}

func (m IMap[K, V]) abi() (*IMapABI, error) {
	if m.IsNull() {
		return nil, wingrt.Error(wingrt.E_POINTER)
	}
	return m.UnsafeUnwrap(), nil
}

// Lookup returns the value stored under key. A missing key fails with
// E_BOUNDS. The caller owns the result.
func (m IMap[K, V]) Lookup(key K) (V, error) {
	var zero V
	abi, err := m.abi()
	if err != nil {
		return zero, err
	}
	k, release, err := winrt.ToABI(key)
	defer release()
	if err != nil {
		return zero, err
	}
	out := com.Out[winrt.OutSlot]()
	if err := abi.call(mapLookup, k, out.Addr()); err != nil {
		return zero, err
	}
	return winrt.TakeOut[V](out)
}

// Size returns the number of entries.
func (m IMap[K, V]) Size() (uint32, error) {
	abi, err := m.abi()
	if err != nil {
		return 0, err
	}
	out := com.Out[winrt.OutSlot]()
	if err := abi.call(mapSize, out.Addr()); err != nil {
		return 0, err
	}
	return winrt.TakeOut[uint32](out)
}

// HasKey reports whether key is present.
func (m IMap[K, V]) HasKey(key K) (bool, error) {
	abi, err := m.abi()
	if err != nil {
		return false, err
	}
	k, release, err := winrt.ToABI(key)
	defer release()
	if err != nil {
		return false, err
	}
	out := com.Out[winrt.OutSlot]()
	if err := abi.call(mapHasKey, k, out.Addr()); err != nil {
		return false, err
	}
	return winrt.TakeOut[bool](out)
}

// Insert stores value under key and reports whether it replaced an existing
// entry.
func (m IMap[K, V]) Insert(key K, value V) (replaced bool, err error) {
	abi, err := m.abi()
	if err != nil {
		return false, err
	}
	k, releaseKey, err := winrt.ToABI(key)
	defer releaseKey()
	if err != nil {
		return false, err
	}
	v, releaseValue, err := winrt.ToABI(value)
	defer releaseValue()
	if err != nil {
		return false, err
	}
	out := com.Out[winrt.OutSlot]()
	if err := abi.call(mapInsert, k, v, out.Addr()); err != nil {
		return false, err
	}
	return winrt.TakeOut[bool](out)
}

// Remove deletes the entry stored under key. A missing key fails with
// E_BOUNDS.
func (m IMap[K, V]) Remove(key K) error {
	abi, err := m.abi()
	if err != nil {
		return err
	}
	k, release, err := winrt.ToABI(key)
	defer release()
	if err != nil {
		return err
	}
	return abi.call(mapRemove, k)
}

// Clear deletes every entry.
func (m IMap[K, V]) Clear() error {
	abi, err := m.abi()
	if err != nil {
		return err
	}
	return abi.call(mapClear)
}
