// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package wingrt

import (
	"testing"

	"golang.org/x/sys/windows"
)

func TestGUIDToString(t *testing.T) {
	testGUID, err := windows.GenerateGUID()
	if err != nil {
		t.Fatal(err)
	}

	winStr := testGUID.String()
	ourStr := guidToString(GUIDFromWindows(testGUID))
	if winStr != ourStr {
		t.Errorf("guidToString is buggy: got %s, want %s", ourStr, winStr)
	}

	if back := GUIDFromWindows(testGUID).ToWindows(); back != testGUID {
		t.Errorf("round trip through GUID changed value: got %v, want %v", back, testGUID)
	}
}
