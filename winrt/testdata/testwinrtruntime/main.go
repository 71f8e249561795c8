// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

// Program testwinrtruntime runs one named scenario against the system
// runtime and prints OK or a line starting with "error: ". Each scenario runs
// in its own process because runtime initialization is per-thread state that
// the Go test binary must not inherit.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/dblohm7/wingrt/winrt"
)

var (
	cmds  = map[string]func(){}
	inits = map[string]func(){}
	err   error
)

func register(name string, f func()) {
	if cmds[name] != nil {
		panic("duplicate registration: " + name)
	}
	cmds[name] = f
}

func registerInit(name string, f func()) {
	if len(os.Args) >= 2 && os.Args[1] == name {
		inits[name] = f
	}
}

func init() {
	// Scenarios run on the main goroutine, which stays on the thread whose
	// apartment RoInitialize configures.
	runtime.LockOSThread()
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: testwinrtruntime <scenario>")
		os.Exit(2)
	}
	name := os.Args[1]
	f := cmds[name]
	if f == nil {
		fmt.Printf("unknown scenario %q\n", name)
		os.Exit(2)
	}

	if initFn := inits[name]; initFn != nil {
		initFn()
	} else if err = winrt.RoInitialize(winrt.MultiThreaded); err != nil {
		fmt.Println("error: ", err)
	}
	defer winrt.RoUninitialize()

	f()
}
