// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package collections

import (
	"sync"
	"unsafe"

	"github.com/dblohm7/wingrt"
	"github.com/dblohm7/wingrt/com"
	"github.com/dblohm7/wingrt/winrt"
	"go.uber.org/zap"
)

// mapServer is implemented by every instantiation of observableMap, so that
// one set of vtables serves all of them.
type mapServer interface {
	lookup(key, out uintptr) wingrt.HRESULT
	size(out uintptr) wingrt.HRESULT
	hasKey(key, out uintptr) wingrt.HRESULT
	insert(s *com.Server, key, value, out uintptr) wingrt.HRESULT
	remove(s *com.Server, key uintptr) wingrt.HRESULT
	clear(s *com.Server) wingrt.HRESULT
	events() *winrt.EventSource
}

// observableMap is the in-process IObservableMap<K, V> and IMap<K, V>. Object
// values are stored with their own reference.
type observableMap[K comparable, V any] struct {
	className  string
	senderSlot int
	changed    *winrt.EventSource

	mu    sync.Mutex
	items map[K]V
}

func (m *observableMap[K, V]) RuntimeClassName() string {
	return m.className
}

func (m *observableMap[K, V]) events() *winrt.EventSource {
	return m.changed
}

func retainValue[V any](v V) V {
	if o, ok := any(v).(com.Object); ok && o.AsRaw() != 0 {
		com.UnknownFromRaw(o.AsRaw()).AddRef()
	}
	return v
}

func releaseValue[V any](v V) {
	if o, ok := any(v).(com.Object); ok && o.AsRaw() != 0 {
		com.UnknownFromRaw(o.AsRaw()).Release()
	}
}

func (m *observableMap[K, V]) lookup(key, out uintptr) wingrt.HRESULT {
	k, err := winrt.FromABI[K](key)
	if err != nil {
		return wingrt.HRESULTFromError(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[k]
	if !ok {
		return wingrt.E_BOUNDS
	}
	return wingrt.HRESULTFromError(winrt.StoreOut(out, v))
}

func (m *observableMap[K, V]) size(out uintptr) wingrt.HRESULT {
	m.mu.Lock()
	defer m.mu.Unlock()
	return wingrt.HRESULTFromError(winrt.StoreOut(out, uint32(len(m.items))))
}

func (m *observableMap[K, V]) hasKey(key, out uintptr) wingrt.HRESULT {
	k, err := winrt.FromABI[K](key)
	if err != nil {
		return wingrt.HRESULTFromError(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[k]
	return wingrt.HRESULTFromError(winrt.StoreOut(out, ok))
}

func (m *observableMap[K, V]) insert(s *com.Server, key, value, out uintptr) wingrt.HRESULT {
	if out == 0 {
		return wingrt.E_POINTER
	}
	k, err := winrt.FromABI[K](key)
	if err != nil {
		return wingrt.HRESULTFromError(err)
	}
	v, err := winrt.FromABI[V](value)
	if err != nil {
		return wingrt.HRESULTFromError(err)
	}

	m.mu.Lock()
	old, replaced := m.items[k]
	m.items[k] = retainValue(v)
	m.mu.Unlock()

	if replaced {
		releaseValue(old)
	}
	if err := winrt.StoreOut(out, replaced); err != nil {
		return wingrt.HRESULTFromError(err)
	}

	change := CollectionChangeItemInserted
	if replaced {
		change = CollectionChangeItemChanged
	}
	m.raise(s, change, k)
	return wingrt.S_OK
}

func (m *observableMap[K, V]) remove(s *com.Server, key uintptr) wingrt.HRESULT {
	k, err := winrt.FromABI[K](key)
	if err != nil {
		return wingrt.HRESULTFromError(err)
	}

	m.mu.Lock()
	old, ok := m.items[k]
	delete(m.items, k)
	m.mu.Unlock()

	if !ok {
		return wingrt.E_BOUNDS
	}
	releaseValue(old)
	m.raise(s, CollectionChangeItemRemoved, k)
	return wingrt.S_OK
}

func (m *observableMap[K, V]) clear(s *com.Server) wingrt.HRESULT {
	m.mu.Lock()
	old := m.items
	m.items = map[K]V{}
	m.mu.Unlock()

	for _, v := range old {
		releaseValue(v)
	}
	var zero K
	m.raise(s, CollectionChangeReset, zero)
	return wingrt.S_OK
}

// raise delivers one MapChanged notification to every subscribed handler.
// The sender is the object's IObservableMap interface pointer.
func (m *observableMap[K, V]) raise(s *com.Server, change CollectionChange, key K) {
	if m.changed.Len() == 0 {
		return
	}
	args, err := newMapChangedEventArgs(change, key)
	if err != nil {
		com.Logger().Error("creating map changed event args", zap.Error(err))
		return
	}
	defer args.Close()

	sender := uintptr(unsafe.Pointer(s.Interface(m.senderSlot)))
	m.changed.Raise(func(handler winrt.Delegate) error {
		return handler.InvokeRaw(sender, args.AsRaw())
	})
}

func (m *observableMap[K, V]) drop() {
	m.mu.Lock()
	old := m.items
	m.items = nil
	m.mu.Unlock()

	for _, v := range old {
		releaseValue(v)
	}
	m.changed.Close()
}

func newObservableMapServer[K comparable, V any](className string, lead []com.Interface) (*com.Server, *observableMap[K, V], error) {
	if err := checkTypes[K, V](); err != nil {
		return nil, nil, err
	}

	impl := &observableMap[K, V]{
		className:  className,
		senderSlot: len(lead),
		changed:    winrt.NewEventSource(className + ".MapChanged"),
		items:      map[K]V{},
	}
	itfs := append(lead[:len(lead):len(lead)],
		com.Interface{
			Vtable: observableMapVtable(),
			IIDs:   []*com.IID{IObservableMap[K, V]{}.GetIID(), winrt.IID_IInspectable},
		},
		com.Interface{
			Vtable: mapVtable(),
			IIDs:   []*com.IID{IMap[K, V]{}.GetIID()},
		},
	)
	s := com.NewServer(impl, itfs, com.WithName(className), com.WithDrop(impl.drop))
	return s, impl, nil
}

// NewObservableMap creates an empty in-process observable map.
func NewObservableMap[K comparable, V any]() (IObservableMap[K, V], error) {
	s, impl, err := newObservableMapServer[K, V]("Windows.Foundation.Collections.IObservableMap`2", nil)
	if err != nil {
		return IObservableMap[K, V]{}, err
	}
	return IObservableMap[K, V]{com.WrapInterface[IObservableMapABI](s.Interface(impl.senderSlot))}, nil
}

func mapImpl(s *com.Server) mapServer {
	return s.Impl().(mapServer)
}

var observableMapVtable = sync.OnceValue(func() *com.Vtable {
	var remove any = func(this, token uintptr) uintptr {
		return removeMapChanged(this, winrt.TokenFromWords(token))
	}
	if unsafe.Sizeof(uintptr(0)) < 8 {
		remove = func(this, lo, hi uintptr) uintptr {
			return removeMapChanged(this, winrt.TokenFromWords(lo, hi))
		}
	}
	return winrt.NewInspectableVtable(addMapChanged, remove)
})

func addMapChanged(this, handler, token uintptr) uintptr {
	return com.Dispatch(this, "add_MapChanged", func(s *com.Server, _ int) wingrt.HRESULT {
		if token == 0 {
			return wingrt.E_POINTER
		}
		tok, err := mapImpl(s).events().Add(handler)
		if err != nil {
			return wingrt.HRESULTFromError(err)
		}
		*(*winrt.EventRegistrationToken)(com.PointerFromABI(token)) = tok
		return wingrt.S_OK
	})
}

func removeMapChanged(this uintptr, token winrt.EventRegistrationToken) uintptr {
	return com.Dispatch(this, "remove_MapChanged", func(s *com.Server, _ int) wingrt.HRESULT {
		mapImpl(s).events().Remove(token)
		return wingrt.S_OK
	})
}

var mapVtable = sync.OnceValue(func() *com.Vtable {
	return winrt.NewInspectableVtable(
		mapLookupMethod,
		mapSizeMethod,
		mapHasKeyMethod,
		com.NotImplemented(2), // GetView
		mapInsertMethod,
		mapRemoveMethod,
		mapClearMethod,
	)
})

func mapLookupMethod(this, key, out uintptr) uintptr {
	return com.Dispatch(this, "Lookup", func(s *com.Server, _ int) wingrt.HRESULT {
		return mapImpl(s).lookup(key, out)
	})
}

func mapSizeMethod(this, out uintptr) uintptr {
	return com.Dispatch(this, "get_Size", func(s *com.Server, _ int) wingrt.HRESULT {
		return mapImpl(s).size(out)
	})
}

func mapHasKeyMethod(this, key, out uintptr) uintptr {
	return com.Dispatch(this, "HasKey", func(s *com.Server, _ int) wingrt.HRESULT {
		return mapImpl(s).hasKey(key, out)
	})
}

func mapInsertMethod(this, key, value, out uintptr) uintptr {
	return com.Dispatch(this, "Insert", func(s *com.Server, _ int) wingrt.HRESULT {
		return mapImpl(s).insert(s, key, value, out)
	})
}

func mapRemoveMethod(this, key uintptr) uintptr {
	return com.Dispatch(this, "Remove", func(s *com.Server, _ int) wingrt.HRESULT {
		return mapImpl(s).remove(s, key)
	})
}

func mapClearMethod(this uintptr) uintptr {
	return com.Dispatch(this, "Clear", func(s *com.Server, _ int) wingrt.HRESULT {
		return mapImpl(s).clear(s)
	})
}

// mapChangedEventArgs is the in-process IMapChangedEventArgs<K>.
type mapChangedEventArgs[K any] struct {
	change CollectionChange
	key    K
}

func (a *mapChangedEventArgs[K]) RuntimeClassName() string {
	return "Windows.Foundation.Collections.IMapChangedEventArgs`1"
}

func (a *mapChangedEventArgs[K]) storeChange(out uintptr) error {
	return winrt.StoreOut(out, a.change)
}

func (a *mapChangedEventArgs[K]) storeKey(out uintptr) error {
	return winrt.StoreOut(out, a.key)
}

type eventArgsServer interface {
	storeChange(out uintptr) error
	storeKey(out uintptr) error
}

var eventArgsVtable = sync.OnceValue(func() *com.Vtable {
	return winrt.NewInspectableVtable(
		func(this, out uintptr) uintptr {
			return com.Dispatch(this, "get_CollectionChange", func(s *com.Server, _ int) wingrt.HRESULT {
				return wingrt.HRESULTFromError(s.Impl().(eventArgsServer).storeChange(out))
			})
		},
		func(this, out uintptr) uintptr {
			return com.Dispatch(this, "get_Key", func(s *com.Server, _ int) wingrt.HRESULT {
				return wingrt.HRESULTFromError(s.Impl().(eventArgsServer).storeKey(out))
			})
		},
	)
})

func newMapChangedEventArgs[K any](change CollectionChange, key K) (IMapChangedEventArgs[K], error) {
	if err := winrt.CheckArgument[K](); err != nil {
		return IMapChangedEventArgs[K]{}, err
	}
	itfs := []com.Interface{
		{
			Vtable: eventArgsVtable(),
			IIDs:   []*com.IID{IMapChangedEventArgs[K]{}.GetIID(), winrt.IID_IInspectable},
		},
	}
	s := com.NewServer(&mapChangedEventArgs[K]{change: change, key: retainValue(key)}, itfs,
		com.WithDrop(func() { releaseValue(key) }))
	return IMapChangedEventArgs[K]{com.WrapInterface[IMapChangedEventArgsABI](s.Interface(0))}, nil
}
