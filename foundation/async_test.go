// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package foundation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dblohm7/wingrt"
	"github.com/dblohm7/wingrt/com"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAsyncCompletion(t *testing.T) {
	release := make(chan struct{})
	action := RunAsync(func(context.Context) error {
		<-release
		return nil
	})
	defer action.Close()

	assert.Equal(t, wingrt.Error(wingrt.E_ILLEGAL_METHOD_CALL), action.GetResults())

	type call struct {
		sender uintptr
		status AsyncStatus
	}
	calls := make(chan call, 2)
	var invocations atomic.Int32
	h, err := NewAsyncActionCompletedHandler(func(info IAsyncAction, status AsyncStatus) error {
		invocations.Add(1)
		calls <- call{info.AsRaw(), status}
		return nil
	})
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, action.SetCompleted(h))
	assert.Equal(t, wingrt.Error(wingrt.E_ILLEGAL_DELEGATE_ASSIGNMENT), action.SetCompleted(h))

	registered, err := action.Completed()
	require.NoError(t, err)
	assert.Equal(t, h.AsRaw(), registered.AsRaw())
	registered.Close()

	close(release)
	select {
	case c := <-calls:
		assert.Equal(t, call{action.AsRaw(), AsyncStatusCompleted}, c)
	case <-time.After(10 * time.Second):
		t.Fatal("completion handler was not called")
	}
	require.NoError(t, action.GetResults())

	info, err := action.Info()
	require.NoError(t, err)
	defer info.Close()
	status, err := info.UnsafeUnwrap().Status()
	require.NoError(t, err)
	assert.Equal(t, AsyncStatusCompleted, status)
	require.NoError(t, info.UnsafeUnwrap().Close())
	assert.EqualValues(t, 1, invocations.Load())
}

func TestRunAsyncLateRegistration(t *testing.T) {
	action := RunAsync(func(context.Context) error {
		return wingrt.Error(wingrt.E_ACCESSDENIED)
	})
	defer action.Close()

	status, err := action.Wait(context.Background())
	assert.Equal(t, AsyncStatusError, status)
	assert.Equal(t, wingrt.Error(wingrt.E_ACCESSDENIED), err)

	info, err := action.Info()
	require.NoError(t, err)
	defer info.Close()
	code, err := info.UnsafeUnwrap().ErrorCode()
	require.NoError(t, err)
	assert.Equal(t, wingrt.E_ACCESSDENIED, code)

	// The handler slot is taken now; a late handler is rejected.
	var called bool
	h, err := NewAsyncActionCompletedHandler(func(IAsyncAction, AsyncStatus) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	defer h.Close()
	assert.Error(t, action.SetCompleted(h))
	assert.False(t, called)
}

func TestRunAsyncFinishedBeforeRegistration(t *testing.T) {
	action := RunAsync(func(context.Context) error { return nil })
	defer action.Close()

	info, err := action.Info()
	require.NoError(t, err)
	defer info.Close()
	require.Eventually(t, func() bool {
		status, err := info.UnsafeUnwrap().Status()
		return err == nil && status == AsyncStatusCompleted
	}, 10*time.Second, time.Millisecond)

	var calls int
	h, err := NewAsyncActionCompletedHandler(func(_ IAsyncAction, status AsyncStatus) error {
		calls++
		assert.Equal(t, AsyncStatusCompleted, status)
		return nil
	})
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, action.SetCompleted(h))
	assert.Equal(t, 1, calls, "called synchronously on registration")
}

func TestRunAsyncCancel(t *testing.T) {
	action := RunAsync(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	defer action.Close()

	info, err := action.Info()
	require.NoError(t, err)
	defer info.Close()
	assert.Equal(t, wingrt.Error(wingrt.E_ILLEGAL_STATE_CHANGE), info.UnsafeUnwrap().Close())
	require.NoError(t, info.UnsafeUnwrap().Cancel())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	status, err := action.Wait(ctx)
	assert.Equal(t, AsyncStatusCanceled, status)
	assert.Equal(t, errCanceled, err)
}

func TestRunAsyncPanic(t *testing.T) {
	action := RunAsync(func(context.Context) error { panic("async boom") })
	defer action.Close()

	status, err := action.Wait(context.Background())
	assert.Equal(t, AsyncStatusError, status)
	assert.Equal(t, wingrt.Error(wingrt.RPC_E_SERVERFAULT), err)
}

func TestRunAsyncLifetime(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan struct{})
	action := RunAsync(func(context.Context) error {
		<-release
		return nil
	})
	raw := action.AsRaw()

	h, err := NewAsyncActionCompletedHandler(func(IAsyncAction, AsyncStatus) error {
		close(finished)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, action.SetCompleted(h))
	h.Close()

	// The running action outlives the caller's reference.
	action.Close()
	_, ok := com.LookupServer(raw)
	assert.True(t, ok)

	close(release)
	<-finished
	require.Eventually(t, func() bool {
		_, ok := com.LookupServer(raw)
		return !ok
	}, 10*time.Second, time.Millisecond)
}

func TestAsyncStatusErrors(t *testing.T) {
	var null IAsyncAction
	assert.Equal(t, wingrt.Error(wingrt.E_POINTER), null.GetResults())
	assert.Equal(t, wingrt.Error(wingrt.E_POINTER), null.SetCompleted(AsyncActionCompletedHandler{}))
	_, err := null.Info()
	assert.True(t, errors.Is(err, wingrt.Error(wingrt.E_POINTER)))
	assert.Equal(t, "Canceled", AsyncStatusCanceled.String())
}
