// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package winrt

import (
	"errors"
	"testing"

	"github.com/dblohm7/wingrt"
	"github.com/dblohm7/wingrt/com"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	Delegate
	calls *int
	drops *int
}

func newCountingHandler(t *testing.T, fn func() error) countingHandler {
	t.Helper()
	h := countingHandler{calls: new(int), drops: new(int)}
	d, err := NewDelegate(iidTestHandler, 1, func([]uintptr) error {
		*h.calls++
		if fn != nil {
			return fn()
		}
		return nil
	}, com.WithDrop(func() { *h.drops++ }))
	require.NoError(t, err)
	h.Delegate = d
	return h
}

func raiseAll(es *EventSource) error {
	return es.Raise(func(d Delegate) error {
		return d.InvokeRaw(0)
	})
}

func TestEventSourceAddRaiseRemove(t *testing.T) {
	es := NewEventSource("Changed")
	h1 := newCountingHandler(t, nil)
	h2 := newCountingHandler(t, nil)

	tok1, err := es.Add(h1.AsRaw())
	require.NoError(t, err)
	tok2, err := es.Add(h2.AsRaw())
	require.NoError(t, err)
	assert.NotEqual(t, tok1, tok2)
	assert.NotZero(t, tok1.Value)
	assert.Equal(t, 2, es.Len())

	// The source keeps its own references.
	h1.Close()
	h2.Close()
	assert.Zero(t, *h1.drops)

	require.NoError(t, raiseAll(es))
	assert.Equal(t, 1, *h1.calls)
	assert.Equal(t, 1, *h2.calls)

	assert.True(t, es.Remove(tok1))
	assert.Equal(t, 1, *h1.drops)
	assert.False(t, es.Remove(tok1), "removal is idempotent")
	assert.False(t, es.Remove(EventRegistrationToken{}))

	require.NoError(t, raiseAll(es))
	assert.Equal(t, 1, *h1.calls)
	assert.Equal(t, 2, *h2.calls)

	require.NoError(t, es.Close())
	assert.Equal(t, 1, *h2.drops)
	assert.Zero(t, es.Len())
}

func TestEventSourceSameHandlerTwice(t *testing.T) {
	var es EventSource
	h := newCountingHandler(t, nil)
	defer h.Close()

	tok1, err := es.Add(h.AsRaw())
	require.NoError(t, err)
	_, err = es.Add(h.AsRaw())
	require.NoError(t, err)

	require.NoError(t, raiseAll(&es))
	assert.Equal(t, 2, *h.calls)

	es.Remove(tok1)
	require.NoError(t, raiseAll(&es))
	assert.Equal(t, 3, *h.calls)
	require.NoError(t, es.Close())
	assert.Zero(t, *h.drops)
}

func TestEventSourceErrors(t *testing.T) {
	var es EventSource
	defer es.Close()

	_, err := es.Add(0)
	assert.Equal(t, wingrt.Error(wingrt.E_POINTER), err)

	failing := newCountingHandler(t, func() error { return wingrt.Error(wingrt.E_ACCESSDENIED) })
	defer failing.Close()
	ok := newCountingHandler(t, nil)
	defer ok.Close()

	_, err = es.Add(failing.AsRaw())
	require.NoError(t, err)
	_, err = es.Add(ok.AsRaw())
	require.NoError(t, err)

	err = raiseAll(&es)
	assert.True(t, errors.Is(err, wingrt.Error(wingrt.E_ACCESSDENIED)))
	assert.Equal(t, 1, *failing.calls)
	assert.Equal(t, 1, *ok.calls, "a failing handler does not stop the others")
}

func TestEventSourceClosed(t *testing.T) {
	var es EventSource
	require.NoError(t, es.Close())

	h := newCountingHandler(t, nil)
	_, err := es.Add(h.AsRaw())
	assert.Equal(t, wingrt.Error(wingrt.E_ILLEGAL_METHOD_CALL), err)
	h.Close()
	assert.Equal(t, 1, *h.drops, "a rejected registration keeps no reference")
}

func TestEventSourceRemoveDuringRaise(t *testing.T) {
	var es EventSource
	var tok EventRegistrationToken
	h := newCountingHandler(t, func() error {
		es.Remove(tok)
		return nil
	})
	var err error
	tok, err = es.Add(h.AsRaw())
	require.NoError(t, err)
	h.Close()

	require.NoError(t, raiseAll(&es))
	assert.Equal(t, 1, *h.calls)
	assert.Zero(t, es.Len())
	assert.Equal(t, 1, *h.drops, "released once the raise completes")

	require.NoError(t, raiseAll(&es))
	assert.Equal(t, 1, *h.calls)
}

func TestEventRegistrationTokenWords(t *testing.T) {
	for _, v := range []int64{1, 42, 1 << 33, -1} {
		tok := EventRegistrationToken{Value: v}
		words := tok.Words()
		if wordSize >= 8 {
			assert.Len(t, words, 1)
		} else {
			assert.Len(t, words, 2)
		}
		assert.Equal(t, tok, TokenFromWords(words...))
	}
}
