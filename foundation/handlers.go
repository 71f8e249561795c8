// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package foundation

import (
	"github.com/dblohm7/wingrt/com"
	"github.com/dblohm7/wingrt/winrt"
)

var (
	templateTypedEventHandler = &com.IID{Data1: 0x9DE1C534, Data2: 0x6AE1, Data3: 0x11E0, Data4: [8]byte{0x84, 0xE1, 0x18, 0xA9, 0x05, 0xBC, 0xC5, 0x3F}}
	templateEventHandler      = &com.IID{Data1: 0x9DE1C535, Data2: 0x6AE1, Data3: 0x11E0, Data4: [8]byte{0x84, 0xE1, 0x18, 0xA9, 0x05, 0xBC, 0xC5, 0x3F}}
)

// checkArgs validates that a delegate can be instantiated over the given
// argument types.
func checkArgs(checks ...func() error) error {
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// TypedEventHandler is Windows.Foundation.TypedEventHandler<TSender, TResult>,
// the delegate type of most runtime events.
type TypedEventHandler[TSender, TResult any] struct {
	winrt.Delegate
}

func (TypedEventHandler[TSender, TResult]) GetIID() *com.IID {
	return winrt.IIDFromSignature(TypedEventHandler[TSender, TResult]{}.Signature())
}

func (TypedEventHandler[TSender, TResult]) Signature() string {
	return winrt.ParameterizedSignature(templateTypedEventHandler, winrt.MustSignature[TSender](), winrt.MustSignature[TResult]())
}

func (TypedEventHandler[TSender, TResult]) Make(r com.ABIReceiver) any {
	return TypedEventHandler[TSender, TResult]{winrt.MakeDelegate(r)}
}

// NewTypedEventHandler creates a handler that calls fn. sender is borrowed for
// the duration of the call. args points at a copy of the argument that is only
// valid during the call; when TResult is an object type, the object it holds
// is borrowed too.
func NewTypedEventHandler[TSender, TResult any](fn func(sender TSender, args *TResult) error, opts ...com.ServerOption) (TypedEventHandler[TSender, TResult], error) {
	var zero TypedEventHandler[TSender, TResult]
	if err := checkArgs(winrt.CheckArgument[TSender], winrt.CheckArgument[TResult]); err != nil {
		return zero, err
	}

	d, err := winrt.NewDelegate(zero.GetIID(), 2, func(args []uintptr) error {
		sender, err := winrt.FromABI[TSender](args[0])
		if err != nil {
			return err
		}
		result, err := winrt.FromABI[TResult](args[1])
		if err != nil {
			return err
		}
		return fn(sender, &result)
	}, opts...)
	return TypedEventHandler[TSender, TResult]{d}, err
}

// Clone returns a new owning reference to the same handler.
func (h TypedEventHandler[TSender, TResult]) Clone() TypedEventHandler[TSender, TResult] {
	return TypedEventHandler[TSender, TResult]{h.Delegate.Clone()}
}

// Invoke calls the handler.
func (h TypedEventHandler[TSender, TResult]) Invoke(sender TSender, args TResult) error {
	return invoke2(h.Delegate, sender, args)
}

// EventHandler is Windows.Foundation.EventHandler<T>, whose sender is an
// arbitrary object.
type EventHandler[T any] struct {
	winrt.Delegate
}

func (EventHandler[T]) GetIID() *com.IID {
	return winrt.IIDFromSignature(EventHandler[T]{}.Signature())
}

func (EventHandler[T]) Signature() string {
	return winrt.ParameterizedSignature(templateEventHandler, winrt.MustSignature[T]())
}

func (EventHandler[T]) Make(r com.ABIReceiver) any {
	return EventHandler[T]{winrt.MakeDelegate(r)}
}

// NewEventHandler creates a handler that calls fn, with the same argument
// lifetimes as NewTypedEventHandler.
func NewEventHandler[T any](fn func(sender winrt.Inspectable, args *T) error, opts ...com.ServerOption) (EventHandler[T], error) {
	var zero EventHandler[T]
	if err := winrt.CheckArgument[T](); err != nil {
		return zero, err
	}

	d, err := winrt.NewDelegate(zero.GetIID(), 2, func(args []uintptr) error {
		sender, err := winrt.FromABI[winrt.Inspectable](args[0])
		if err != nil {
			return err
		}
		result, err := winrt.FromABI[T](args[1])
		if err != nil {
			return err
		}
		return fn(sender, &result)
	}, opts...)
	return EventHandler[T]{d}, err
}

// Clone returns a new owning reference to the same handler.
func (h EventHandler[T]) Clone() EventHandler[T] {
	return EventHandler[T]{h.Delegate.Clone()}
}

// Invoke calls the handler.
func (h EventHandler[T]) Invoke(sender winrt.Inspectable, args T) error {
	return invoke2(h.Delegate, sender, args)
}

func invoke2[A, B any](d winrt.Delegate, a A, b B) error {
	wa, releaseA, err := winrt.ToABI(a)
	defer releaseA()
	if err != nil {
		return err
	}
	wb, releaseB, err := winrt.ToABI(b)
	defer releaseB()
	if err != nil {
		return err
	}
	return d.InvokeRaw(wa, wb)
}
