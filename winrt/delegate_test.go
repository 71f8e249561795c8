// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package winrt

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/dblohm7/wingrt"
	"github.com/dblohm7/wingrt/com"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var iidTestHandler = mustIID("{6B0C1E42-8C3B-4E0C-9E0B-3D7D2C1A9F51}")

func TestNullDelegate(t *testing.T) {
	var d Delegate
	assert.True(t, d.IsNull())
	assert.Zero(t, d.AsRaw())
	assert.Equal(t, wingrt.Error(wingrt.E_POINTER), d.InvokeRaw(1, 2))
	assert.True(t, d.Clone().IsNull())
	require.NoError(t, d.Close())
}

func TestDelegateInvoke(t *testing.T) {
	var calls int
	var got []uintptr
	d, err := NewDelegate(iidTestHandler, 2, func(args []uintptr) error {
		calls++
		got = append([]uintptr(nil), args...)
		return nil
	})
	require.NoError(t, err)
	defer d.Close()

	require.False(t, d.IsNull())
	require.NoError(t, d.InvokeRaw(7, 80))
	assert.Equal(t, 1, calls)
	assert.Equal(t, []uintptr{7, 80}, got)
}

type boundsError struct{}

func (boundsError) Error() string { return "index out of range" }
func (boundsError) HRESULT() wingrt.HRESULT { return wingrt.E_BOUNDS }

func TestDelegateErrors(t *testing.T) {
	testCases := []struct {
		name string
		fn   func(args []uintptr) error
		want wingrt.HRESULT
	}{
		{"success", func([]uintptr) error { return nil }, wingrt.S_OK},
		{"hresult", func([]uintptr) error { return wingrt.Error(wingrt.E_ILLEGAL_METHOD_CALL) }, wingrt.E_ILLEGAL_METHOD_CALL},
		{"domain error", func([]uintptr) error { return boundsError{} }, wingrt.E_BOUNDS},
		{"wrapped", func([]uintptr) error { return errors.Join(errors.New("context"), boundsError{}) }, wingrt.E_BOUNDS},
		{"plain error", func([]uintptr) error { return errors.New("nope") }, wingrt.E_FAIL},
		{"panic", func([]uintptr) error { panic("boom") }, wingrt.RPC_E_SERVERFAULT},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := NewDelegate(iidTestHandler, 0, tc.fn)
			require.NoError(t, err)
			defer d.Close()

			err = d.InvokeRaw()
			assert.Equal(t, tc.want, wingrt.HRESULTFromError(err))
			if tc.want.Failed() {
				var e wingrt.Error
				require.ErrorAs(t, err, &e)
			}
		})
	}
}

func TestDelegateArity(t *testing.T) {
	for arity := 0; arity <= MaxDelegateArity; arity++ {
		var n int
		d, err := NewDelegate(iidTestHandler, arity, func(args []uintptr) error {
			n = len(args)
			return nil
		})
		require.NoError(t, err)
		args := make([]uintptr, arity)
		require.NoError(t, d.InvokeRaw(args...))
		assert.Equal(t, arity, n)
		d.Close()
	}

	_, err := NewDelegate(iidTestHandler, MaxDelegateArity+1, func([]uintptr) error { return nil })
	assert.ErrorIs(t, err, ErrUnsupportedType)
	_, err = NewDelegate(iidTestHandler, -1, func([]uintptr) error { return nil })
	assert.ErrorIs(t, err, ErrUnsupportedType)
	_, err = NewDelegate(nil, 0, func([]uintptr) error { return nil })
	assert.Equal(t, wingrt.Error(wingrt.E_INVALIDARG), err)
}

func TestDelegateCloneAndDrop(t *testing.T) {
	var drops atomic.Int32
	var calls atomic.Int32
	d, err := NewDelegate(iidTestHandler, 0, func([]uintptr) error {
		calls.Add(1)
		return nil
	}, com.WithDrop(func() { drops.Add(1) }))
	require.NoError(t, err)

	clone := d.Clone()
	assert.Equal(t, d.AsRaw(), clone.AsRaw())

	require.NoError(t, d.Close())
	assert.True(t, d.IsNull())
	assert.Zero(t, drops.Load())

	require.NoError(t, clone.InvokeRaw())
	assert.EqualValues(t, 1, calls.Load())

	raw := clone.AsRaw()
	require.NoError(t, clone.Close())
	assert.EqualValues(t, 1, drops.Load())

	// Closing again is a no-op and the dead pointer is no longer callable.
	require.NoError(t, clone.Close())
	assert.EqualValues(t, 1, drops.Load())
	_, ok := com.LookupServer(raw)
	assert.False(t, ok)
}

// The delegate must hand out the Server's own interface pointer, so that a
// call made straight after creation reaches the callback.
func TestDelegateInterfacePointer(t *testing.T) {
	var calls atomic.Int64
	d, err := NewDelegate(iidTestHandler, 0, func([]uintptr) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	defer d.Close()

	s, ok := com.LookupServer(d.AsRaw())
	require.True(t, ok)
	assert.Same(t, s.Interface(0), d.Unknown())

	require.NoError(t, d.InvokeRaw())
	assert.EqualValues(t, 1, calls.Load())
}

func TestDelegateQueryInterface(t *testing.T) {
	d, err := NewDelegate(iidTestHandler, 0, func([]uintptr) error { return nil })
	require.NoError(t, err)
	defer d.Close()

	for _, iid := range []*com.IID{iidTestHandler, com.IID_IUnknown, com.IID_IAgileObject} {
		p, err := d.Unknown().QueryInterface(iid)
		require.NoError(t, err, "%v", iid)
		assert.Equal(t, d.AsRaw(), uintptr(unsafe.Pointer(p)))
		p.Release()
	}

	_, err = d.Unknown().QueryInterface(IID_IInspectable)
	assert.Equal(t, wingrt.Error(wingrt.E_NOINTERFACE), err)

	s, ok := com.LookupServer(d.AsRaw())
	require.True(t, ok)
	assert.EqualValues(t, 1, s.RefCount())
}

func TestDelegateConcurrentInvoke(t *testing.T) {
	const goroutines, iterations = 8, 200

	var calls atomic.Int64
	d, err := NewDelegate(iidTestHandler, 1, func(args []uintptr) error {
		calls.Add(int64(args[0]))
		return nil
	})
	require.NoError(t, err)
	defer d.Close()

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := d.Clone()
			defer c.Close()
			for j := 0; j < iterations; j++ {
				if err := c.InvokeRaw(1); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, goroutines*iterations, calls.Load())
}

func TestDelegateReentrant(t *testing.T) {
	var d Delegate
	var depth int
	var err error
	d, err = NewDelegate(iidTestHandler, 1, func(args []uintptr) error {
		depth++
		if args[0] > 0 {
			return d.InvokeRaw(args[0] - 1)
		}
		return nil
	})
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.InvokeRaw(4))
	assert.Equal(t, 5, depth)
}
