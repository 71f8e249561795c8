// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package winrt

import (
	"errors"
	"sync"

	"github.com/dblohm7/wingrt"
	"github.com/dblohm7/wingrt/com"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// EventRegistrationToken identifies one handler registration on an event
// source. The zero token never identifies a registration.
type EventRegistrationToken struct {
	Value int64
}

// Words returns t as passed by value at the ABI: one word on 64-bit
// platforms, low word then high word on 32-bit ones.
func (t EventRegistrationToken) Words() []uintptr {
	if wordSize >= 8 {
		return []uintptr{uintptr(t.Value)}
	}
	u := uint64(t.Value)
	return []uintptr{uintptr(uint32(u)), uintptr(uint32(u >> 32))}
}

// TokenFromWords is the inverse of EventRegistrationToken.Words.
func TokenFromWords(words ...uintptr) EventRegistrationToken {
	if len(words) == 1 {
		return EventRegistrationToken{Value: int64(words[0])}
	}
	return EventRegistrationToken{Value: int64(uint64(uint32(words[0])) | uint64(uint32(words[1]))<<32)}
}

type registration struct {
	token   int64
	handler Delegate
}

// EventSource is the subscription list behind one event of an in-process
// object. Each registration holds its own reference to the handler. The zero
// value is ready to use.
type EventSource struct {
	mu       sync.Mutex
	name     string
	next     int64
	handlers []registration
	closed   bool
}

// NewEventSource returns an EventSource whose log messages are tagged with
// name.
func NewEventSource(name string) *EventSource {
	return &EventSource{name: name}
}

// Add registers the delegate pointer handler, adding a reference to it. The
// returned token removes exactly this registration; registering the same
// handler twice yields two independent registrations.
func (es *EventSource) Add(handler uintptr) (EventRegistrationToken, error) {
	if handler == 0 {
		return EventRegistrationToken{}, errPointer
	}

	d := WrapDelegate(handler).Clone()

	es.mu.Lock()
	if es.closed {
		es.mu.Unlock()
		d.Close()
		return EventRegistrationToken{}, wingrt.Error(wingrt.E_ILLEGAL_METHOD_CALL)
	}
	es.next++
	token := es.next
	es.handlers = append(es.handlers, registration{token: token, handler: d})
	n := len(es.handlers)
	es.mu.Unlock()

	com.Logger().Debug("event handler added", zap.String("event", es.name), zap.Int64("token", token), zap.Int("handlers", n))
	return EventRegistrationToken{Value: token}, nil
}

// Remove unregisters the handler identified by token and releases the
// registration's reference. It reports whether a registration was removed;
// removing an unknown or already-removed token is a no-op.
func (es *EventSource) Remove(token EventRegistrationToken) bool {
	es.mu.Lock()
	i := slices.IndexFunc(es.handlers, func(r registration) bool {
		return r.token == token.Value
	})
	if i < 0 {
		es.mu.Unlock()
		return false
	}
	d := es.handlers[i].handler
	es.handlers = slices.Delete(es.handlers, i, i+1)
	es.mu.Unlock()

	d.Close()
	com.Logger().Debug("event handler removed", zap.String("event", es.name), zap.Int64("token", token.Value))
	return true
}

// Raise calls invoke once for every handler registered at the time of the
// call. Handlers run on the calling goroutine, outside any lock, so they may
// add or remove registrations (including their own) while being raised; such
// changes take effect for the next Raise. The Delegate passed to invoke is
// borrowed. Handler failures do not stop the remaining handlers; they are
// logged and returned joined together.
func (es *EventSource) Raise(invoke func(handler Delegate) error) error {
	es.mu.Lock()
	snapshot := slices.Clone(es.handlers)
	for _, r := range snapshot {
		r.handler.Clone()
	}
	es.mu.Unlock()

	var errs []error
	for _, r := range snapshot {
		if err := invoke(r.handler); err != nil {
			com.Logger().Warn("event handler failed", zap.String("event", es.name), zap.Int64("token", r.token), zap.Error(err))
			errs = append(errs, err)
		}
		r.handler.Close()
	}
	return errors.Join(errs...)
}

// Len returns the number of current registrations.
func (es *EventSource) Len() int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return len(es.handlers)
}

// Close releases every registration. Subsequent calls to Add fail with
// E_ILLEGAL_METHOD_CALL.
func (es *EventSource) Close() error {
	es.mu.Lock()
	handlers := es.handlers
	es.handlers = nil
	es.closed = true
	es.mu.Unlock()

	for _, r := range handlers {
		r.handler.Close()
	}
	return nil
}
