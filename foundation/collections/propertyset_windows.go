// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package collections

import "github.com/dblohm7/wingrt/winrt"

// ActivatePropertySet creates a PropertySet implemented by the system. The
// calling thread must have initialized the runtime.
func ActivatePropertySet() (PropertySet, error) {
	return winrt.Activate[PropertySet](propertySetClassName)
}
