// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package wingrt

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// GUID has the same memory layout as the Windows GUID structure, so pointers
// to it may be handed across the ABI boundary.
type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// String returns g in the registry format, e.g. {A4ED5C81-76C9-40BD-8BE6-B1D90FB20AE7}.
func (g GUID) String() string {
	return guidToString(g)
}

func guidToString(g GUID) string {
	return fmt.Sprintf("{%08X-%04X-%04X-%04X-%012X}", g.Data1, g.Data2, g.Data3, g.Data4[:2], g.Data4[2:])
}

// IsZero reports whether g is the null GUID.
func (g GUID) IsZero() bool {
	return g == GUID{}
}

// Bytes returns g in RFC 4122 (big-endian) byte order.
func (g GUID) Bytes() (b [16]byte) {
	binary.BigEndian.PutUint32(b[0:4], g.Data1)
	binary.BigEndian.PutUint16(b[4:6], g.Data2)
	binary.BigEndian.PutUint16(b[6:8], g.Data3)
	copy(b[8:], g.Data4[:])
	return b
}

// GUIDFromBytes is the inverse of Bytes.
func GUIDFromBytes(b [16]byte) (g GUID) {
	g.Data1 = binary.BigEndian.Uint32(b[0:4])
	g.Data2 = binary.BigEndian.Uint16(b[4:6])
	g.Data3 = binary.BigEndian.Uint16(b[6:8])
	copy(g.Data4[:], b[8:])
	return g
}

// GUIDFromString parses s, which may be surrounded by braces and may use
// either case.
func GUIDFromString(s string) (GUID, error) {
	t := strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
	if len(t) != 36 || t[8] != '-' || t[13] != '-' || t[18] != '-' || t[23] != '-' {
		return GUID{}, fmt.Errorf("malformed GUID %q", s)
	}
	var b [16]byte
	if _, err := hex.Decode(b[:], []byte(t[0:8]+t[9:13]+t[14:18]+t[19:23]+t[24:])); err != nil {
		return GUID{}, fmt.Errorf("malformed GUID %q: %w", s, err)
	}
	return GUIDFromBytes(b), nil
}

// MustGUID is like GUIDFromString but panics on malformed input. It is
// intended for package-level identifier tables.
func MustGUID(s string) GUID {
	g, err := GUIDFromString(s)
	if err != nil {
		panic(err)
	}
	return g
}
