// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package winrt implements the runtime-specific layer on top of package com:
// IInspectable, runtime strings, type signatures and the interface identifiers
// derived from them, delegates implemented by Go closures, and the event
// sources that hold them.
package winrt
