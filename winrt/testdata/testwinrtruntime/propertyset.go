// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package main

import (
	"fmt"
	"runtime"

	"github.com/dblohm7/wingrt/foundation"
	"github.com/dblohm7/wingrt/foundation/collections"
	"github.com/dblohm7/wingrt/winrt"
)

func init() {
	register("PropertySetEvent", PropertySetEvent)
	registerInit("PropertySetEventSTA", PropertySetEventSTAInit)
	register("PropertySetEventSTA", PropertySetEvent)
}

func PropertySetEventSTAInit() {
	if err = winrt.RoInitialize(winrt.SingleThreaded); err != nil {
		fmt.Println("error: ", err)
	}
}

// PropertySetEvent subscribes to a system PropertySet and checks the
// notification raised by one insertion.
func PropertySetEvent() {
	if err != nil {
		return
	}

	set, err := collections.ActivatePropertySet()
	if err != nil {
		fmt.Println("error: ", err)
		return
	}
	defer set.Close()

	// The system object must answer to the derived identifier.
	om, err := set.ObservableMap()
	if err != nil {
		fmt.Println("error: ", err)
		return
	}
	defer om.Close()

	dropped := false
	type change struct {
		sender uintptr
		kind   collections.CollectionChange
		key    string
	}
	var got []change
	h, err := collections.NewMapChangedEventHandler(func(sender collections.IObservableMap[string, winrt.Inspectable], event collections.IMapChangedEventArgs[string]) error {
		kind, err := event.CollectionChange()
		if err != nil {
			return err
		}
		key, err := event.Key()
		if err != nil {
			return err
		}
		got = append(got, change{sender.AsRaw(), kind, key})
		return nil
	}, comDrop(&dropped))
	if err != nil {
		fmt.Println("error: ", err)
		return
	}

	token, err := set.AddMapChanged(h)
	h.Close()
	if err != nil {
		fmt.Println("error: ", err)
		return
	}

	statics, err := foundation.GetPropertyValueStatics()
	if err != nil {
		fmt.Println("error: ", err)
		return
	}
	defer statics.Close()
	v, err := foundation.CreateValue(statics, uint32(1))
	if err != nil {
		fmt.Println("error: ", err)
		return
	}
	defer v.Close()

	if _, err := set.Insert("A", v); err != nil {
		fmt.Println("error: ", err)
		return
	}

	want := change{om.AsRaw(), collections.CollectionChangeItemInserted, "A"}
	if len(got) != 1 || got[0] != want {
		fmt.Printf("error: got %+v, want [%+v]\n", got, want)
		return
	}

	stored, err := set.Lookup("A")
	if err != nil {
		fmt.Println("error: ", err)
		return
	}
	n, err := foundation.Unbox[uint32](stored)
	stored.Close()
	if err != nil || n != 1 {
		fmt.Printf("error: Unbox got (%d, %v), want (1, nil)\n", n, err)
		return
	}

	if err := set.RemoveMapChanged(token); err != nil {
		fmt.Println("error: ", err)
		return
	}
	if !dropped {
		fmt.Println("error: handler still referenced after RemoveMapChanged")
		return
	}

	// Force a collection before exit so that refcount bugs surface here.
	runtime.GC()

	fmt.Println("OK")
}
