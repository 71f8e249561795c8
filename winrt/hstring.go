// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package winrt

import (
	"unicode/utf16"
)

// HString is a handle to an immutable runtime string (HSTRING). The zero value
// is the empty string and needs no cleanup. Every non-zero HString obtained
// from NewHString, Duplicate, or an ABI out-parameter must be closed.
type HString uintptr

// NewHString creates a runtime string holding a copy of s.
func NewHString(s string) (HString, error) {
	if s == "" {
		return 0, nil
	}
	return NewHStringFromUTF16(utf16.Encode([]rune(s)))
}

// NewHStringFromUTF16 creates a runtime string holding a copy of us.
func NewHStringFromUTF16(us []uint16) (HString, error) {
	if len(us) == 0 {
		return 0, nil
	}
	return hstringCreate(us)
}

// Len returns the length of hs in UTF-16 code units.
func (hs HString) Len() uint32 {
	return uint32(len(hs.toUTF16()))
}

func (hs HString) String() string {
	return string(utf16.Decode(hs.toUTF16()))
}

// toUTF16 is unsafe for general use because it returns a slice that is only
// valid while hs is alive.
func (hs HString) toUTF16() []uint16 {
	if hs == 0 {
		return nil
	}
	return hstringBuffer(hs)
}

// ToUTF16 returns a copy of the contents of hs.
func (hs HString) ToUTF16() []uint16 {
	return append([]uint16{}, hs.toUTF16()...)
}

// Duplicate returns a new reference to the same string contents.
func (hs HString) Duplicate() (HString, error) {
	if hs == 0 {
		return 0, nil
	}
	return hstringDuplicate(hs)
}

// IsNil reports whether hs is the empty string handle.
func (hs HString) IsNil() bool {
	return hs == 0
}

// Close releases hs and resets it to the empty handle.
func (hs *HString) Close() error {
	if *hs != 0 {
		hstringDelete(*hs)
		*hs = 0
	}
	return nil
}
