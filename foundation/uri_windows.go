// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package foundation

import (
	"unsafe"

	"github.com/dblohm7/wingrt/com"
	"github.com/dblohm7/wingrt/winrt"
)

// ActivateUri creates a Uri using the system runtime. The calling thread must
// have initialized the runtime with winrt.RoInitialize.
func ActivateUri(rawURI string) (Uri, error) {
	factory, err := winrt.GetActivationFactory(uriClassName, IID_IUriRuntimeClassFactory)
	if err != nil {
		return Uri{}, err
	}
	defer factory.Close()

	s, err := winrt.NewHString(rawURI)
	if err != nil {
		return Uri{}, err
	}
	defer s.Close()

	// IUriRuntimeClassFactory::CreateUri is the first method after
	// IInspectable.
	abi := factory.UnsafeUnwrap()
	method := unsafe.Slice(abi.Vtbl, 8)[6]
	out := com.Out[winrt.OutSlot]()
	if err := com.CallHRESULT(method, uintptr(unsafe.Pointer(abi)), uintptr(s), out.Addr()); err != nil {
		return Uri{}, err
	}
	return winrt.TakeOut[Uri](out)
}
