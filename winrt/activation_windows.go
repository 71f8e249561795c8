// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package winrt

import (
	"errors"

	"github.com/dblohm7/wingrt"
	"github.com/dblohm7/wingrt/com"
	"go.uber.org/zap"
)

// ErrRuntimeUnavailable is returned by RoInitialize on versions of Windows
// that predate the runtime.
var ErrRuntimeUnavailable = errors.New("the Windows Runtime requires Windows 8 or newer")

// RoInitType specifies the threading model of the calling thread's apartment.
type RoInitType int32

const (
	SingleThreaded = RoInitType(0)
	MultiThreaded  = RoInitType(1)
)

// RoInitialize initializes the runtime on the calling OS thread. The caller
// must have locked the goroutine to its thread, and must call RoUninitialize
// on that same thread when finished. Both S_OK and S_FALSE (already
// initialized) are success.
func RoInitialize(initType RoInitType) error {
	if !wingrt.IsWin8OrGreater() {
		return ErrRuntimeUnavailable
	}
	hr := roInitialize(initType)
	if e := wingrt.ErrorFromHRESULT(hr); e.Failed() {
		return e
	}
	com.Logger().Debug("runtime initialized", zap.Int32("type", int32(initType)), zap.Stringer("hr", hr))
	return nil
}

// RoUninitialize undoes one successful RoInitialize on the calling thread.
func RoUninitialize() {
	roUninitialize()
}

// GetActivationFactory returns the activation factory of the runtime class
// className, queried for the interface identified by iid.
func GetActivationFactory(className string, iid *com.IID) (Inspectable, error) {
	id, err := NewHString(className)
	if err != nil {
		return Inspectable{}, err
	}
	defer id.Close()

	factory := com.Out[*IInspectableABI]()
	hr := roGetActivationFactory(id, iid, factory)
	if e := wingrt.ErrorFromHRESULT(hr); e.Failed() {
		com.Logger().Debug("RoGetActivationFactory failed", zap.String("class", className), zap.Stringer("iid", *iid), zap.Error(e))
		return Inspectable{}, &com.InterfaceError{IID: *iid, Err: e}
	}
	return Inspectable{com.WrapInterface[IInspectableABI](&(*factory).IUnknownABI)}, nil
}

// ActivateInstance creates an instance of className using its default
// constructor.
func ActivateInstance(className string) (Inspectable, error) {
	id, err := NewHString(className)
	if err != nil {
		return Inspectable{}, err
	}
	defer id.Close()

	instance := com.Out[*IInspectableABI]()
	hr := roActivateInstance(id, instance)
	if e := wingrt.ErrorFromHRESULT(hr); e.Failed() {
		return Inspectable{}, e
	}
	return Inspectable{com.WrapInterface[IInspectableABI](&(*instance).IUnknownABI)}, nil
}

// Activate is ActivateInstance followed by a query for T. The intermediate
// reference is released.
func Activate[T com.Object](className string) (T, error) {
	insp, err := ActivateInstance(className)
	if err != nil {
		var zero T
		return zero, err
	}
	defer insp.Close()
	return com.TryAs[T](insp)
}
