// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package winrt

import (
	"fmt"
	"os"
	"strings"

	"github.com/tc-hib/winres"
)

// supportedOSIDs are the compatibility GUIDs of Vista through Windows 10.
// Without them, version checks inside the runtime report an older OS.
var supportedOSIDs = []string{
	"e2011457-1546-43c5-a5fe-008deee3d3f0",
	"35138b9a-5d96-4fbd-8e2d-a2440225f93a",
	"4a2f28e3-53b9-4441-ba9c-d69d4a4a6e38",
	"1f676c76-80e1-4239-95bb-83d0f6d0da78",
	"8e0f7a12-bfb3-4fe8-b9a5-48fd50a15a9a",
}

// maxVersionTested opts the test programs into runtime behavior introduced
// up to Windows 10 2004.
const maxVersionTested = "10.0.19041.0"

func manifestContents() []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<assembly xmlns="urn:schemas-microsoft-com:asm.v1" manifestVersion="1.0">
	<compatibility xmlns="urn:schemas-microsoft-com:compatibility.v1">
		<application>
`)
	fmt.Fprintf(&b, "\t\t\t<maxversiontested Id=%q />\n", maxVersionTested)
	for _, id := range supportedOSIDs {
		fmt.Fprintf(&b, "\t\t\t<supportedOS Id=\"{%s}\" />\n", id)
	}
	b.WriteString(`		</application>
	</compatibility>
</assembly>`)
	return []byte(b.String())
}

// addManifest writes a copy of the executable at inPath to outPath with the
// test programs' application manifest embedded.
func addManifest(outPath, inPath string) (err error) {
	inf, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer inf.Close()

	outf, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer func() {
		outf.Close()
		if err != nil {
			os.Remove(outPath)
		}
	}()

	var rs winres.ResourceSet
	if err := rs.Set(winres.RT_MANIFEST, winres.ID(1), 0, manifestContents()); err != nil {
		return err
	}
	return rs.WriteToEXE(outf, inf, winres.ForceCheckSum())
}
