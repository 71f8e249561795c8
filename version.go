// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package wingrt

func isVerGE(lmajor, rmajor, lminor, rminor, lbuild, rbuild uint32) bool {
	return lmajor > rmajor ||
		lmajor == rmajor &&
			(lminor > rminor ||
				lminor == rminor && lbuild >= rbuild)
}
