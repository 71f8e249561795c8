// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package winrt

//go:generate go tool mkwinsyscall -output zsyscall_windows.go mksyscall_windows.go
//go:generate go tool goimports -w zsyscall_windows.go

//sys windowsCreateString(sourceString *uint16, length uint32, str *HString) (hr wingrt.HRESULT) = combase.WindowsCreateString
//sys windowsDeleteString(str HString) (hr wingrt.HRESULT) = combase.WindowsDeleteString
//sys windowsDuplicateString(str HString, newString *HString) (hr wingrt.HRESULT) = combase.WindowsDuplicateString
//sys windowsGetStringRawBuffer(str HString, length *uint32) (buf *uint16) = combase.WindowsGetStringRawBuffer
//sys roInitialize(initType RoInitType) (hr wingrt.HRESULT) = combase.RoInitialize
//sys roUninitialize() = combase.RoUninitialize
//sys roGetActivationFactory(activatableClassId HString, iid *com.IID, factory **IInspectableABI) (hr wingrt.HRESULT) = combase.RoGetActivationFactory
//sys roActivateInstance(activatableClassId HString, instance **IInspectableABI) (hr wingrt.HRESULT) = combase.RoActivateInstance
