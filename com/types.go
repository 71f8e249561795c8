// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package com

import (
	"github.com/dblohm7/wingrt"
)

// IID is a GUID that represents an interface ID.
type IID wingrt.GUID

// CLSID is a GUID that represents a class ID.
type CLSID wingrt.GUID

func (iid IID) String() string {
	return wingrt.GUID(iid).String()
}

func (clsid CLSID) String() string {
	return wingrt.GUID(clsid).String()
}

var (
	IID_IUnknown     = &IID{0x00000000, 0x0000, 0x0000, [8]byte{0xC0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46}}
	IID_IAgileObject = &IID{0x94EA2B94, 0xE9CC, 0x49E0, [8]byte{0xC0, 0xFF, 0xEE, 0x64, 0xCA, 0x8F, 0x5B, 0x90}}
)
