// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package com

import (
	"sync/atomic"
)

var stats struct {
	objectsCreated atomic.Uint64
	liveObjects    atomic.Int64
	calls          atomic.Uint64
	failedCalls    atomic.Uint64
	panics         atomic.Uint64
}

// Stats is a snapshot of the counters kept for Go-implemented objects.
type Stats struct {
	// ObjectsCreated counts every Server ever created.
	ObjectsCreated uint64
	// LiveObjects is the number of Servers whose reference count is above zero.
	LiveObjects int64
	// Calls counts ABI method calls dispatched into Go, excluding IUnknown.
	Calls uint64
	// FailedCalls counts the subset of Calls that returned a failure code.
	FailedCalls uint64
	// Panics counts panics recovered at the ABI boundary.
	Panics uint64
}

// ReadStats returns the current counters.
func ReadStats() Stats {
	return Stats{
		ObjectsCreated: stats.objectsCreated.Load(),
		LiveObjects:    stats.liveObjects.Load(),
		Calls:          stats.calls.Load(),
		FailedCalls:    stats.failedCalls.Load(),
		Panics:         stats.panics.Load(),
	}
}
