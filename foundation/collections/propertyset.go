// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package collections

import (
	"sync"

	"github.com/dblohm7/wingrt/com"
	"github.com/dblohm7/wingrt/winrt"
)

var IID_IPropertySet = &com.IID{Data1: 0x8A43ED9F, Data2: 0xF4E6, Data3: 0x4421, Data4: [8]byte{0xAC, 0xF9, 0x1D, 0xAB, 0x29, 0x86, 0x82, 0x0C}}

const propertySetClassName = "Windows.Foundation.Collections.PropertySet"

// IPropertySetABI is the ABI of IPropertySet, which adds no methods of its own
// to IInspectable.
type IPropertySetABI struct {
	winrt.IInspectableABI
}

// PropertySet is an observable map from strings to runtime objects.
type PropertySet struct {
	com.GenericObject[IPropertySetABI]
}

func (PropertySet) GetIID() *com.IID {
	return IID_IPropertySet
}

func (PropertySet) Signature() string {
	return winrt.RuntimeClassSignature(propertySetClassName, winrt.InterfaceSignature(IID_IPropertySet))
}

func (PropertySet) Make(r com.ABIReceiver) any {
	return PropertySet{com.Wrap[IPropertySetABI](r)}
}

// Clone returns a new owning reference to the same set.
func (p PropertySet) Clone() PropertySet {
	return PropertySet{p.GenericObject.Clone()}
}

// ObservableMap queries p for its IObservableMap<String, Object> interface.
// The caller owns the result.
func (p PropertySet) ObservableMap() (IObservableMap[string, winrt.Inspectable], error) {
	return com.TryAs[IObservableMap[string, winrt.Inspectable]](p)
}

// Map queries p for its IMap<String, Object> interface. The caller owns the
// result.
func (p PropertySet) Map() (IMap[string, winrt.Inspectable], error) {
	return com.TryAs[IMap[string, winrt.Inspectable]](p)
}

func (p PropertySet) withMap(fn func(IMap[string, winrt.Inspectable]) error) error {
	m, err := p.Map()
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}

func (p PropertySet) withObservable(fn func(IObservableMap[string, winrt.Inspectable]) error) error {
	m, err := p.ObservableMap()
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}

// Insert stores value under key; the set takes its own reference. It reports
// whether an existing entry was replaced.
func (p PropertySet) Insert(key string, value com.Object) (replaced bool, err error) {
	err = p.withMap(func(m IMap[string, winrt.Inspectable]) error {
		replaced, err = m.Insert(key, winrt.AsInspectable(value))
		return err
	})
	return replaced, err
}

// Lookup returns the object stored under key. The caller owns the result.
func (p PropertySet) Lookup(key string) (v winrt.Inspectable, err error) {
	err = p.withMap(func(m IMap[string, winrt.Inspectable]) error {
		v, err = m.Lookup(key)
		return err
	})
	return v, err
}

// Size returns the number of entries.
func (p PropertySet) Size() (n uint32, err error) {
	err = p.withMap(func(m IMap[string, winrt.Inspectable]) error {
		n, err = m.Size()
		return err
	})
	return n, err
}

// HasKey reports whether key is present.
func (p PropertySet) HasKey(key string) (ok bool, err error) {
	err = p.withMap(func(m IMap[string, winrt.Inspectable]) error {
		ok, err = m.HasKey(key)
		return err
	})
	return ok, err
}

// Remove deletes the entry stored under key.
func (p PropertySet) Remove(key string) error {
	return p.withMap(func(m IMap[string, winrt.Inspectable]) error {
		return m.Remove(key)
	})
}

// Clear deletes every entry.
func (p PropertySet) Clear() error {
	return p.withMap(func(m IMap[string, winrt.Inspectable]) error {
		return m.Clear()
	})
}

// AddMapChanged subscribes handler to the set's changes.
func (p PropertySet) AddMapChanged(handler MapChangedEventHandler[string, winrt.Inspectable]) (token winrt.EventRegistrationToken, err error) {
	err = p.withObservable(func(m IObservableMap[string, winrt.Inspectable]) error {
		token, err = m.AddMapChanged(handler)
		return err
	})
	return token, err
}

// RemoveMapChanged cancels the subscription identified by token. Removing a
// token twice is not an error.
func (p PropertySet) RemoveMapChanged(token winrt.EventRegistrationToken) error {
	return p.withObservable(func(m IObservableMap[string, winrt.Inspectable]) error {
		return m.RemoveMapChanged(token)
	})
}

// MapChanged subscribes fn to the set's changes.
func (p PropertySet) MapChanged(fn func(sender IObservableMap[string, winrt.Inspectable], event IMapChangedEventArgs[string]) error) (token winrt.EventRegistrationToken, err error) {
	err = p.withObservable(func(m IObservableMap[string, winrt.Inspectable]) error {
		token, err = m.MapChanged(fn)
		return err
	})
	return token, err
}

var propertySetVtable = sync.OnceValue(func() *com.Vtable {
	return winrt.NewInspectableVtable()
})

// NewPropertySet creates an empty in-process PropertySet. Event senders are
// its IObservableMap<String, Object> interface pointer, as with the system
// implementation.
func NewPropertySet() (PropertySet, error) {
	lead := []com.Interface{
		{
			Vtable: propertySetVtable(),
			IIDs:   []*com.IID{IID_IPropertySet, winrt.IID_IInspectable},
		},
	}
	s, _, err := newObservableMapServer[string, winrt.Inspectable](propertySetClassName, lead)
	if err != nil {
		return PropertySet{}, err
	}
	return PropertySet{com.WrapInterface[IPropertySetABI](s.Interface(0))}, nil
}
