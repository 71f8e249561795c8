// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package main

import (
	"fmt"

	"github.com/dblohm7/wingrt/com"
	"github.com/dblohm7/wingrt/foundation"
)

func init() {
	register("TypedEventHandler", TypedEventHandler)
}

func comDrop(flag *bool) com.ServerOption {
	return com.WithDrop(func() { *flag = true })
}

// TypedEventHandler invokes a Go handler with a system Uri as its sender.
func TypedEventHandler() {
	if err != nil {
		return
	}

	uri, err := foundation.ActivateUri("http://kennykerr.ca")
	if err != nil {
		fmt.Println("error: ", err)
		return
	}
	defer uri.Close()

	port, err := uri.Port()
	if err != nil {
		fmt.Println("error: ", err)
		return
	}

	var gotSender uintptr
	var gotPort int32
	dropped := false
	h, err := foundation.NewTypedEventHandler(func(sender foundation.Uri, args *int32) error {
		gotSender, gotPort = sender.AsRaw(), *args
		return nil
	}, comDrop(&dropped))
	if err != nil {
		fmt.Println("error: ", err)
		return
	}

	if err := h.Invoke(uri, port); err != nil {
		fmt.Println("error: ", err)
		return
	}
	if gotSender != uri.AsRaw() || gotPort != 80 {
		fmt.Printf("error: got (%#x, %d), want (%#x, 80)\n", gotSender, gotPort, uri.AsRaw())
		return
	}

	h.Close()
	if !dropped {
		fmt.Println("error: handler not dropped after its last reference was released")
		return
	}

	fmt.Println("OK")
}
