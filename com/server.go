// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package com

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/dblohm7/wingrt"
	"go.uber.org/zap"
)

// Vtable is a table of ABI function pointers for one interface. Its first
// three entries are always the IUnknown methods of Server.
type Vtable struct {
	entries []uintptr
}

var unknownMethods = sync.OnceValue(func() [3]uintptr {
	return [3]uintptr{
		NewCallback(serverQueryInterface),
		NewCallback(serverAddRef),
		NewCallback(serverRelease),
	}
})

// NewVtable builds a vtable whose entries follow the IUnknown methods. Each
// method is either a func accepted by NewCallback or a uintptr that already is
// an ABI function pointer. Vtables are meant to be built once per interface
// and shared by every object implementing it.
func NewVtable(methods ...any) *Vtable {
	unk := unknownMethods()
	entries := make([]uintptr, 0, len(unk)+len(methods))
	entries = append(entries, unk[:]...)
	for _, m := range methods {
		if fp, ok := m.(uintptr); ok {
			entries = append(entries, fp)
			continue
		}
		entries = append(entries, NewCallback(m))
	}
	return &Vtable{entries: entries}
}

// Len returns the number of entries in v, including the IUnknown methods.
func (v *Vtable) Len() int {
	return len(v.entries)
}

// Interface describes one interface pointer exposed by a Server: the vtable
// behind it and the interface IDs that QueryInterface resolves to it.
type Interface struct {
	Vtable *Vtable
	IIDs   []*IID
}

// slot is the memory an interface pointer refers to. Its first field must be
// the vtable pointer so that it is layout-compatible with IUnknownABI.
type slot struct {
	vtbl   *uintptr
	server *Server
	index  int
}

// liveSlots maps interface pointers to their slots for every Server whose
// reference count is above zero. It keeps the Go memory reachable while only
// ABI callers hold it, and lets calls through a dangling pointer fail cleanly.
var liveSlots sync.Map

func registerSlot(sl *slot) {
	liveSlots.Store(uintptr(unsafe.Pointer(sl)), sl)
}

func unregisterSlot(sl *slot) {
	liveSlots.Delete(uintptr(unsafe.Pointer(sl)))
}

func lookupSlot(this uintptr) *slot {
	v, ok := liveSlots.Load(this)
	if !ok {
		return nil
	}
	return v.(*slot)
}

// Server is a COM object implemented in Go. All of its interface pointers share
// one atomic reference count; when the count reaches zero the object is torn
// down exactly once and its drop hook runs.
type Server struct {
	refs    atomic.Int32
	dropped atomic.Bool
	slots   []*slot
	itfs    []Interface
	impl    any
	name    string
	drop    func()
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithDrop registers fn to run once the object's reference count reaches zero.
func WithDrop(fn func()) ServerOption {
	return func(s *Server) {
		s.drop = fn
	}
}

// WithName sets the name used for s in log messages.
func WithName(name string) ServerOption {
	return func(s *Server) {
		s.name = name
	}
}

// NewServer creates an object exposing itfs, backed by impl. The object starts
// with a reference count of one, owned by the caller. itfs[0] is the identity
// interface: queries for IUnknown and IAgileObject resolve to it.
func NewServer(impl any, itfs []Interface, opts ...ServerOption) *Server {
	if len(itfs) == 0 {
		panic("com.NewServer: at least one interface is required")
	}

	s := &Server{impl: impl, itfs: itfs}
	for _, o := range opts {
		o(s)
	}
	s.refs.Store(1)

	s.slots = make([]*slot, len(itfs))
	for i, itf := range itfs {
		sl := &slot{vtbl: &itf.Vtable.entries[0], server: s, index: i}
		s.slots[i] = sl
		registerSlot(sl)
	}

	stats.objectsCreated.Add(1)
	stats.liveObjects.Add(1)
	Logger().Debug("object created", zap.String("name", s.name), zap.Int("interfaces", len(itfs)))
	return s
}

// LookupServer returns the Server behind the interface pointer raw, provided
// it is a live Go-implemented object.
func LookupServer(raw uintptr) (*Server, bool) {
	sl := lookupSlot(raw)
	if sl == nil {
		return nil, false
	}
	return sl.server, true
}

// Impl returns the value the Server was created with.
func (s *Server) Impl() any {
	return s.impl
}

// Interface returns the interface pointer for itfs[i]. No reference is added.
func (s *Server) Interface(i int) *IUnknownABI {
	return (*IUnknownABI)(unsafe.Pointer(s.slots[i]))
}

// RefCount returns a snapshot of the reference count.
func (s *Server) RefCount() int32 {
	return s.refs.Load()
}

// AddRef increments the reference count and returns the new value.
func (s *Server) AddRef() int32 {
	return s.refs.Add(1)
}

// tryAddRef increments the reference count and returns the new value unless
// the count has already reached zero. A call racing with the final Release
// must not bring the object back.
func (s *Server) tryAddRef() (int32, bool) {
	for {
		n := s.refs.Load()
		if n <= 0 {
			return 0, false
		}
		if s.refs.CompareAndSwap(n, n+1) {
			return n + 1, true
		}
	}
}

// Release decrements the reference count and returns the new value, tearing
// the object down when it reaches zero.
func (s *Server) Release() int32 {
	n := s.refs.Add(-1)
	switch {
	case n == 0:
		s.destroy()
	case n < 0:
		Logger().Error("object released more times than it was referenced", zap.String("name", s.name), zap.Int32("refs", n))
		return 0
	}
	return n
}

func (s *Server) destroy() {
	if !s.dropped.CompareAndSwap(false, true) {
		return
	}
	for _, sl := range s.slots {
		unregisterSlot(sl)
	}
	stats.liveObjects.Add(-1)
	Logger().Debug("object destroyed", zap.String("name", s.name))
	if s.drop != nil {
		s.drop()
	}
}

func (s *Server) queryInterface(iid *IID) *slot {
	if *iid == *IID_IUnknown || *iid == *IID_IAgileObject {
		return s.slots[0]
	}
	for i, itf := range s.itfs {
		for _, candidate := range itf.IIDs {
			if *candidate == *iid {
				return s.slots[i]
			}
		}
	}
	return nil
}

func serverQueryInterface(this, riid, ppv uintptr) uintptr {
	sl := lookupSlot(this)
	if sl == nil || riid == 0 || ppv == 0 {
		return hrResult(wingrt.E_POINTER)
	}

	out := (*uintptr)(PointerFromABI(ppv))
	iid := (*IID)(PointerFromABI(riid))
	found := sl.server.queryInterface(iid)
	if found == nil {
		*out = 0
		return hrResult(wingrt.E_NOINTERFACE)
	}
	if _, ok := sl.server.tryAddRef(); !ok {
		*out = 0
		return hrResult(wingrt.E_POINTER)
	}
	*out = uintptr(unsafe.Pointer(found))
	return hrResult(wingrt.S_OK)
}

func serverAddRef(this uintptr) uintptr {
	sl := lookupSlot(this)
	if sl == nil {
		return 0
	}
	n, _ := sl.server.tryAddRef()
	return uintptr(uint32(n))
}

func serverRelease(this uintptr) uintptr {
	sl := lookupSlot(this)
	if sl == nil {
		Logger().Warn("Release on unknown or destroyed object", zap.Uintptr("this", this))
		return 0
	}
	var n int32
	guard("Release", func() wingrt.HRESULT {
		n = sl.server.Release()
		return wingrt.S_OK
	})
	return uintptr(uint32(n))
}

func hrResult(hr wingrt.HRESULT) uintptr {
	return uintptr(uint32(hr))
}

// Dispatch runs fn on behalf of an ABI call made through the interface pointer
// this and returns fn's status as a result register value. The object is kept
// alive for the duration of the call. Calls through pointers that do not
// belong to a live Server, or that race with its final Release, fail with
// E_POINTER, and panics raised by fn are
// converted into RPC_E_SERVERFAULT.
func Dispatch(this uintptr, method string, fn func(s *Server, index int) wingrt.HRESULT) uintptr {
	sl := lookupSlot(this)
	if sl == nil {
		Logger().Warn("call on unknown or destroyed object", zap.String("method", method), zap.Uintptr("this", this))
		return hrResult(wingrt.E_POINTER)
	}

	s := sl.server
	if _, ok := s.tryAddRef(); !ok {
		Logger().Warn("call on destroyed object", zap.String("method", method), zap.String("name", s.name))
		return hrResult(wingrt.E_POINTER)
	}
	defer s.Release()

	stats.calls.Add(1)
	hr := guard(method, func() wingrt.HRESULT {
		return fn(s, sl.index)
	})
	if hr.Failed() {
		stats.failedCalls.Add(1)
	}
	return hrResult(hr)
}

// guard is the unwind barrier at the ABI boundary: a panic must never escape
// into the caller's frames, which may not be Go code.
func guard(method string, fn func() wingrt.HRESULT) (hr wingrt.HRESULT) {
	defer func() {
		if r := recover(); r != nil {
			stats.panics.Add(1)
			Logger().Error("recovered panic at ABI boundary",
				zap.String("method", method),
				zap.Any("panic", r),
				zap.Stack("stack"))
			hr = wingrt.RPC_E_SERVERFAULT
		}
	}()
	return fn()
}

// NotImplemented returns a callback of the given word arity (including the
// this pointer) that fails with E_NOTIMPL. It is used to fill vtable entries
// for methods an in-process object does not support.
func NotImplemented(arity int) any {
	fail := func(this uintptr) uintptr {
		if lookupSlot(this) == nil {
			return hrResult(wingrt.E_POINTER)
		}
		return hrResult(wingrt.E_NOTIMPL)
	}
	switch arity {
	case 1:
		return func(this uintptr) uintptr { return fail(this) }
	case 2:
		return func(this, _ uintptr) uintptr { return fail(this) }
	case 3:
		return func(this, _, _ uintptr) uintptr { return fail(this) }
	case 4:
		return func(this, _, _, _ uintptr) uintptr { return fail(this) }
	case 5:
		return func(this, _, _, _, _ uintptr) uintptr { return fail(this) }
	}
	panic("com.NotImplemented: unsupported arity")
}
