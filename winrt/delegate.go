// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package winrt

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/dblohm7/wingrt"
	"github.com/dblohm7/wingrt/com"
)

var errPointer = wingrt.Error(wingrt.E_POINTER)

// MaxDelegateArity is the largest number of arguments (excluding the this
// pointer) that a delegate created by NewDelegate may accept.
const MaxDelegateArity = 6

// DelegateABI is the ABI shared by all delegates: IUnknown followed by a
// single Invoke method.
type DelegateABI struct {
	com.IUnknownABI
}

// Invoke calls the delegate's Invoke method with args following the this
// pointer. Any memory referenced by args must be kept alive by the caller.
func (abi *DelegateABI) Invoke(args ...uintptr) error {
	method := unsafe.Slice(abi.Vtbl, 4)[3]
	words := make([]uintptr, 0, len(args)+1)
	words = append(words, uintptr(unsafe.Pointer(abi)))
	words = append(words, args...)
	return com.CallHRESULT(method, words...)
}

// Delegate is a reference-counted handle to a callback object. The zero value
// is the null delegate. Copying a Delegate does not add a reference; use Clone
// to obtain an independent owner and Close to release one.
//
// Delegate carries no interface identifier of its own. Projected delegate
// types embed it and provide GetIID, Signature and Make.
type Delegate struct {
	com.GenericObject[DelegateABI]
}

// WrapDelegate wraps the delegate pointer raw. No reference is added.
func WrapDelegate(raw uintptr) Delegate {
	return Delegate{com.WrapRaw[DelegateABI](raw)}
}

// MakeDelegate wraps the delegate pointer held by r. No reference is added.
func MakeDelegate(r com.ABIReceiver) Delegate {
	return Delegate{com.Wrap[DelegateABI](r)}
}

// Clone returns a new owning reference to the same delegate.
func (d Delegate) Clone() Delegate {
	return Delegate{d.GenericObject.Clone()}
}

// InvokeRaw calls the delegate with pre-marshaled argument words. Invoking the
// null delegate fails with E_POINTER.
func (d Delegate) InvokeRaw(args ...uintptr) error {
	if d.IsNull() {
		return errPointer
	}
	return d.UnsafeUnwrap().Invoke(args...)
}

// delegateImpl is the Go state behind a delegate created by NewDelegate.
type delegateImpl struct {
	iid   *com.IID
	arity int
	fn    func(args []uintptr) error
}

func invokeDelegate(this uintptr, args ...uintptr) uintptr {
	return com.Dispatch(this, "Invoke", func(s *com.Server, _ int) wingrt.HRESULT {
		d := s.Impl().(*delegateImpl)
		return wingrt.HRESULTFromError(d.fn(args))
	})
}

// One vtable per arity, shared by every delegate with that arity. Delegates
// differ only in the IIDs their objects answer to.
var delegateVtables = sync.OnceValue(func() [MaxDelegateArity + 1]*com.Vtable {
	return [...]*com.Vtable{
		com.NewVtable(func(this uintptr) uintptr {
			return invokeDelegate(this)
		}),
		com.NewVtable(func(this, a0 uintptr) uintptr {
			return invokeDelegate(this, a0)
		}),
		com.NewVtable(func(this, a0, a1 uintptr) uintptr {
			return invokeDelegate(this, a0, a1)
		}),
		com.NewVtable(func(this, a0, a1, a2 uintptr) uintptr {
			return invokeDelegate(this, a0, a1, a2)
		}),
		com.NewVtable(func(this, a0, a1, a2, a3 uintptr) uintptr {
			return invokeDelegate(this, a0, a1, a2, a3)
		}),
		com.NewVtable(func(this, a0, a1, a2, a3, a4 uintptr) uintptr {
			return invokeDelegate(this, a0, a1, a2, a3, a4)
		}),
		com.NewVtable(func(this, a0, a1, a2, a3, a4, a5 uintptr) uintptr {
			return invokeDelegate(this, a0, a1, a2, a3, a4, a5)
		}),
	}
})

// NewDelegate creates a delegate object that answers to iid and whose Invoke
// method accepts arity argument words. Each invocation calls fn with those
// words; a non-nil error is returned to the caller as its HRESULT (see
// wingrt.HRESULTFromError), and a panic in fn is reported as
// RPC_E_SERVERFAULT. fn may be called from any goroutine or thread, including
// concurrently and re-entrantly; it must synchronize its own state.
//
// The returned Delegate holds the only reference. fn, and anything it
// captures, is released once every reference is gone; opts may include
// com.WithDrop to observe that.
func NewDelegate(iid *com.IID, arity int, fn func(args []uintptr) error, opts ...com.ServerOption) (Delegate, error) {
	if arity < 0 || arity > MaxDelegateArity {
		return Delegate{}, fmt.Errorf("%w: delegate with %d arguments", ErrUnsupportedType, arity)
	}
	if iid == nil || fn == nil {
		return Delegate{}, wingrt.Error(wingrt.E_INVALIDARG)
	}

	impl := &delegateImpl{iid: iid, arity: arity, fn: fn}
	itfs := []com.Interface{
		{Vtable: delegateVtables()[arity], IIDs: []*com.IID{iid}},
	}
	opts = append([]com.ServerOption{com.WithName("delegate " + iid.String())}, opts...)
	s := com.NewServer(impl, itfs, opts...)
	return Delegate{com.WrapInterface[DelegateABI](s.Interface(0))}, nil
}
