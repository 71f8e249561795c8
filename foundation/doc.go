// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package foundation projects the Windows.Foundation types the delegate bridge
// needs: asynchronous actions and their completion handlers, the generic event
// handler delegates, Uri, and primitive boxing through IPropertyValue.
//
// Every runtime class here has an in-process implementation written in Go, so
// the package is fully usable without the system runtime. On Windows the
// system implementations can also be activated.
package foundation
