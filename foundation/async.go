// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package foundation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/dblohm7/wingrt"
	"github.com/dblohm7/wingrt/com"
	"github.com/dblohm7/wingrt/winrt"
	"go.uber.org/zap"
)

var (
	IID_IAsyncAction                = &com.IID{Data1: 0x5A648006, Data2: 0x843A, Data3: 0x4DA9, Data4: [8]byte{0x86, 0x5B, 0x9D, 0x26, 0xE5, 0xDF, 0xAD, 0x7B}}
	IID_IAsyncInfo                  = &com.IID{Data1: 0x00000036, Data2: 0x0000, Data3: 0x0000, Data4: [8]byte{0xC0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46}}
	IID_AsyncActionCompletedHandler = &com.IID{Data1: 0xA4ED5C81, Data2: 0x76C9, Data3: 0x40BD, Data4: [8]byte{0x8B, 0xE6, 0xB1, 0xD9, 0x0F, 0xB2, 0x0A, 0xE7}}
)

// AsyncStatus is the state of an asynchronous operation.
type AsyncStatus int32

const (
	AsyncStatusStarted   = AsyncStatus(0)
	AsyncStatusCompleted = AsyncStatus(1)
	AsyncStatusCanceled  = AsyncStatus(2)
	AsyncStatusError     = AsyncStatus(3)
)

func (s AsyncStatus) String() string {
	switch s {
	case AsyncStatusStarted:
		return "Started"
	case AsyncStatusCompleted:
		return "Completed"
	case AsyncStatusCanceled:
		return "Canceled"
	case AsyncStatusError:
		return "Error"
	}
	return fmt.Sprintf("AsyncStatus(%d)", int32(s))
}

func (AsyncStatus) Signature() string {
	return winrt.EnumSignature("Windows.Foundation.AsyncStatus", false)
}

func (s AsyncStatus) ToWord() uintptr {
	return uintptr(uint32(s))
}

func (AsyncStatus) FromWord(w uintptr) any {
	return AsyncStatus(int32(w))
}

// errCanceled is HRESULT_FROM_WIN32(ERROR_CANCELLED).
var errCanceled = wingrt.ErrorFromErrno(syscall.Errno(1223))

// IAsyncActionABI is the ABI of Windows.Foundation.IAsyncAction.
type IAsyncActionABI struct {
	winrt.IInspectableABI
}

func (abi *IAsyncActionABI) method(i int) uintptr {
	return unsafe.Slice(abi.Vtbl, 9)[i]
}

// PutCompleted sets the completion handler. It may only be set once.
func (abi *IAsyncActionABI) PutCompleted(handler uintptr) error {
	return com.CallHRESULT(abi.method(6), uintptr(unsafe.Pointer(abi)), handler)
}

// GetCompleted returns the completion handler with a new reference, or 0.
func (abi *IAsyncActionABI) GetCompleted() (uintptr, error) {
	out := com.Out[uintptr]()
	if err := com.CallHRESULT(abi.method(7), uintptr(unsafe.Pointer(abi)), uintptr(unsafe.Pointer(out))); err != nil {
		return 0, err
	}
	return *out, nil
}

// GetResults returns the outcome of a finished action.
func (abi *IAsyncActionABI) GetResults() error {
	return com.CallHRESULT(abi.method(8), uintptr(unsafe.Pointer(abi)))
}

// IAsyncAction is an asynchronous action without a result.
type IAsyncAction struct {
	com.GenericObject[IAsyncActionABI]
}

func (IAsyncAction) GetIID() *com.IID {
	return IID_IAsyncAction
}

func (IAsyncAction) Signature() string {
	return winrt.InterfaceSignature(IID_IAsyncAction)
}

func (IAsyncAction) Make(r com.ABIReceiver) any {
	return IAsyncAction{com.Wrap[IAsyncActionABI](r)}
}

// Clone returns a new owning reference to the same action.
func (a IAsyncAction) Clone() IAsyncAction {
	return IAsyncAction{a.GenericObject.Clone()}
}

// SetCompleted registers handler to be called once the action finishes. If it
// has already finished, handler is called before SetCompleted returns. A
// second handler is rejected with E_ILLEGAL_DELEGATE_ASSIGNMENT.
func (a IAsyncAction) SetCompleted(handler AsyncActionCompletedHandler) error {
	if a.IsNull() {
		return wingrt.Error(wingrt.E_POINTER)
	}
	return a.UnsafeUnwrap().PutCompleted(handler.AsRaw())
}

// Completed returns the registered completion handler, which may be null. The
// caller owns the result.
func (a IAsyncAction) Completed() (AsyncActionCompletedHandler, error) {
	if a.IsNull() {
		return AsyncActionCompletedHandler{}, wingrt.Error(wingrt.E_POINTER)
	}
	raw, err := a.UnsafeUnwrap().GetCompleted()
	if err != nil {
		return AsyncActionCompletedHandler{}, err
	}
	return AsyncActionCompletedHandler{winrt.WrapDelegate(raw)}, nil
}

// GetResults returns nil if the action completed successfully, the action's
// error if it failed, and E_ILLEGAL_METHOD_CALL while it is still running.
func (a IAsyncAction) GetResults() error {
	if a.IsNull() {
		return wingrt.Error(wingrt.E_POINTER)
	}
	return a.UnsafeUnwrap().GetResults()
}

// Info queries the action for its IAsyncInfo interface.
func (a IAsyncAction) Info() (IAsyncInfo, error) {
	return com.TryAs[IAsyncInfo](a)
}

// Wait blocks until the action finishes or ctx is done. It registers the
// action's completion handler, so it cannot be combined with SetCompleted.
func (a IAsyncAction) Wait(ctx context.Context) (AsyncStatus, error) {
	done := make(chan AsyncStatus, 1)
	h, err := NewAsyncActionCompletedHandler(func(_ IAsyncAction, status AsyncStatus) error {
		done <- status
		return nil
	})
	if err != nil {
		return AsyncStatusError, err
	}
	defer h.Close()

	if err := a.SetCompleted(h); err != nil {
		return AsyncStatusError, err
	}
	select {
	case status := <-done:
		if status == AsyncStatusCompleted {
			return status, nil
		}
		return status, a.GetResults()
	case <-ctx.Done():
		return AsyncStatusStarted, ctx.Err()
	}
}

// IAsyncInfoABI is the ABI of Windows.Foundation.IAsyncInfo.
type IAsyncInfoABI struct {
	winrt.IInspectableABI
}

func (abi *IAsyncInfoABI) method(i int) uintptr {
	return unsafe.Slice(abi.Vtbl, 11)[i]
}

func (abi *IAsyncInfoABI) getUint32(i int) (uint32, error) {
	out := com.Out[uint32]()
	if err := com.CallHRESULT(abi.method(i), uintptr(unsafe.Pointer(abi)), uintptr(unsafe.Pointer(out))); err != nil {
		return 0, err
	}
	return *out, nil
}

// ID returns the action's identifier.
func (abi *IAsyncInfoABI) ID() (uint32, error) {
	return abi.getUint32(6)
}

// Status returns the action's current status.
func (abi *IAsyncInfoABI) Status() (AsyncStatus, error) {
	v, err := abi.getUint32(7)
	return AsyncStatus(int32(v)), err
}

// ErrorCode returns the status code the action failed with.
func (abi *IAsyncInfoABI) ErrorCode() (wingrt.HRESULT, error) {
	v, err := abi.getUint32(8)
	return wingrt.HRESULT(int32(v)), err
}

// Cancel requests cancellation.
func (abi *IAsyncInfoABI) Cancel() error {
	return com.CallHRESULT(abi.method(9), uintptr(unsafe.Pointer(abi)))
}

// Close releases the action's resources once it has finished.
func (abi *IAsyncInfoABI) Close() error {
	return com.CallHRESULT(abi.method(10), uintptr(unsafe.Pointer(abi)))
}

// IAsyncInfo is the status interface shared by all asynchronous operations.
type IAsyncInfo struct {
	com.GenericObject[IAsyncInfoABI]
}

func (IAsyncInfo) GetIID() *com.IID {
	return IID_IAsyncInfo
}

func (IAsyncInfo) Signature() string {
	return winrt.InterfaceSignature(IID_IAsyncInfo)
}

func (IAsyncInfo) Make(r com.ABIReceiver) any {
	return IAsyncInfo{com.Wrap[IAsyncInfoABI](r)}
}

// AsyncActionCompletedHandler is the delegate called when an IAsyncAction
// finishes.
type AsyncActionCompletedHandler struct {
	winrt.Delegate
}

func (AsyncActionCompletedHandler) GetIID() *com.IID {
	return IID_AsyncActionCompletedHandler
}

func (AsyncActionCompletedHandler) Signature() string {
	return winrt.DelegateSignature(IID_AsyncActionCompletedHandler)
}

func (AsyncActionCompletedHandler) Make(r com.ABIReceiver) any {
	return AsyncActionCompletedHandler{winrt.MakeDelegate(r)}
}

// NewAsyncActionCompletedHandler creates a handler that calls fn. The action
// passed to fn is borrowed for the duration of the call and may be null.
func NewAsyncActionCompletedHandler(fn func(asyncInfo IAsyncAction, status AsyncStatus) error, opts ...com.ServerOption) (AsyncActionCompletedHandler, error) {
	d, err := winrt.NewDelegate(IID_AsyncActionCompletedHandler, 2, func(args []uintptr) error {
		info, err := winrt.FromABI[IAsyncAction](args[0])
		if err != nil {
			return err
		}
		status, err := winrt.FromABI[AsyncStatus](args[1])
		if err != nil {
			return err
		}
		return fn(info, status)
	}, opts...)
	return AsyncActionCompletedHandler{d}, err
}

// Clone returns a new owning reference to the same handler.
func (h AsyncActionCompletedHandler) Clone() AsyncActionCompletedHandler {
	return AsyncActionCompletedHandler{h.Delegate.Clone()}
}

// Invoke calls the handler.
func (h AsyncActionCompletedHandler) Invoke(asyncInfo IAsyncAction, status AsyncStatus) error {
	return h.InvokeRaw(asyncInfo.AsRaw(), status.ToWord())
}

// asyncAction is the in-process IAsyncAction created by RunAsync.
type asyncAction struct {
	id     uint32
	cancel context.CancelFunc

	mu       sync.Mutex
	status   AsyncStatus
	err      wingrt.HRESULT
	handler  winrt.Delegate
	assigned bool
	finished bool
	closed   bool
}

func (*asyncAction) RuntimeClassName() string {
	return "Windows.Foundation.IAsyncAction"
}

var nextAsyncID atomic.Uint32

var asyncInterfaces = sync.OnceValue(func() []com.Interface {
	return []com.Interface{
		{
			Vtable: winrt.NewInspectableVtable(asyncPutCompleted, asyncGetCompleted, asyncGetResults),
			IIDs:   []*com.IID{IID_IAsyncAction, winrt.IID_IInspectable},
		},
		{
			Vtable: winrt.NewInspectableVtable(asyncGetID, asyncGetStatus, asyncGetErrorCode, asyncCancel, asyncClose),
			IIDs:   []*com.IID{IID_IAsyncInfo},
		},
	}
})

// RunAsync starts fn on a new goroutine and returns an IAsyncAction tracking
// it. ctx is canceled when the action is canceled through IAsyncInfo. The
// completion handler, if any, is called exactly once, on fn's goroutine or (if
// registered after fn returns) on the registering goroutine.
func RunAsync(fn func(ctx context.Context) error) IAsyncAction {
	ctx, cancel := context.WithCancel(context.Background())
	impl := &asyncAction{id: nextAsyncID.Add(1), cancel: cancel}
	s := com.NewServer(impl, asyncInterfaces(), com.WithName("IAsyncAction"), com.WithDrop(impl.drop))

	// The running goroutine keeps the action alive until it has reported
	// completion.
	s.AddRef()
	go func() {
		defer s.Release()
		err := runGuarded(ctx, fn)
		impl.complete(s, err)
	}()

	return IAsyncAction{com.WrapInterface[IAsyncActionABI](s.Interface(0))}
}

func runGuarded(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			com.Logger().Error("async action panicked", zap.Any("panic", r), zap.Stack("stack"))
			err = wingrt.Error(wingrt.RPC_E_SERVERFAULT)
		}
	}()
	return fn(ctx)
}

func (a *asyncAction) complete(s *com.Server, err error) {
	a.mu.Lock()
	switch {
	case a.status == AsyncStatusCanceled:
		a.err = wingrt.HRESULT(errCanceled)
	case err != nil:
		a.status = AsyncStatusError
		a.err = wingrt.HRESULTFromError(err)
	default:
		a.status = AsyncStatusCompleted
	}
	a.finished = true
	status := a.status
	handler := a.handler.Clone()
	a.mu.Unlock()
	a.cancel()

	com.Logger().Debug("async action finished", zap.Uint32("id", a.id), zap.Stringer("status", status))
	a.notify(s, handler, status)
}

// notify invokes handler with the action as sender and releases handler.
func (a *asyncAction) notify(s *com.Server, handler winrt.Delegate, status AsyncStatus) {
	if handler.IsNull() {
		return
	}
	defer handler.Close()
	if err := handler.InvokeRaw(uintptr(unsafe.Pointer(s.Interface(0))), status.ToWord()); err != nil {
		com.Logger().Warn("async completion handler failed", zap.Uint32("id", a.id), zap.Error(err))
	}
}

func (a *asyncAction) drop() {
	a.cancel()
	a.mu.Lock()
	h := a.handler
	a.handler = winrt.Delegate{}
	a.mu.Unlock()
	h.Close()
}

func asyncImpl(s *com.Server) *asyncAction {
	return s.Impl().(*asyncAction)
}

func asyncPutCompleted(this, handler uintptr) uintptr {
	return com.Dispatch(this, "put_Completed", func(s *com.Server, _ int) wingrt.HRESULT {
		a := asyncImpl(s)
		a.mu.Lock()
		if a.assigned {
			a.mu.Unlock()
			return wingrt.E_ILLEGAL_DELEGATE_ASSIGNMENT
		}
		if a.closed {
			a.mu.Unlock()
			return wingrt.E_ILLEGAL_METHOD_CALL
		}
		a.assigned = true
		a.handler = winrt.WrapDelegate(handler).Clone()
		status := a.status
		var now winrt.Delegate
		if a.finished {
			now = a.handler.Clone()
		}
		a.mu.Unlock()

		a.notify(s, now, status)
		return wingrt.S_OK
	})
}

func asyncGetCompleted(this, out uintptr) uintptr {
	return com.Dispatch(this, "get_Completed", func(s *com.Server, _ int) wingrt.HRESULT {
		a := asyncImpl(s)
		a.mu.Lock()
		defer a.mu.Unlock()
		return wingrt.HRESULTFromError(winrt.StoreOut(out, AsyncActionCompletedHandler{a.handler}))
	})
}

func asyncGetResults(this uintptr) uintptr {
	return com.Dispatch(this, "GetResults", func(s *com.Server, _ int) wingrt.HRESULT {
		a := asyncImpl(s)
		a.mu.Lock()
		defer a.mu.Unlock()
		switch {
		case !a.finished:
			return wingrt.E_ILLEGAL_METHOD_CALL
		case a.status == AsyncStatusCompleted:
			return wingrt.S_OK
		}
		return a.err
	})
}

func asyncGetID(this, out uintptr) uintptr {
	return com.Dispatch(this, "get_Id", func(s *com.Server, _ int) wingrt.HRESULT {
		return wingrt.HRESULTFromError(winrt.StoreOut(out, asyncImpl(s).id))
	})
}

func asyncGetStatus(this, out uintptr) uintptr {
	return com.Dispatch(this, "get_Status", func(s *com.Server, _ int) wingrt.HRESULT {
		a := asyncImpl(s)
		a.mu.Lock()
		defer a.mu.Unlock()
		return wingrt.HRESULTFromError(winrt.StoreOut(out, a.status))
	})
}

func asyncGetErrorCode(this, out uintptr) uintptr {
	return com.Dispatch(this, "get_ErrorCode", func(s *com.Server, _ int) wingrt.HRESULT {
		a := asyncImpl(s)
		a.mu.Lock()
		defer a.mu.Unlock()
		return wingrt.HRESULTFromError(winrt.StoreOut(out, int32(a.err)))
	})
}

func asyncCancel(this uintptr) uintptr {
	return com.Dispatch(this, "Cancel", func(s *com.Server, _ int) wingrt.HRESULT {
		a := asyncImpl(s)
		a.mu.Lock()
		if a.status == AsyncStatusStarted {
			a.status = AsyncStatusCanceled
		}
		a.mu.Unlock()
		a.cancel()
		return wingrt.S_OK
	})
}

func asyncClose(this uintptr) uintptr {
	return com.Dispatch(this, "Close", func(s *com.Server, _ int) wingrt.HRESULT {
		a := asyncImpl(s)
		a.mu.Lock()
		defer a.mu.Unlock()
		if !a.finished {
			return wingrt.E_ILLEGAL_STATE_CHANGE
		}
		a.closed = true
		return wingrt.S_OK
	})
}
