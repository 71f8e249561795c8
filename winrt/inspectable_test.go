// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package winrt

import (
	"testing"

	"github.com/dblohm7/wingrt"
	"github.com/dblohm7/wingrt/com"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var iidTestWidget = mustIID("{3F1A4A5E-7E35-4C4B-9A52-1C6E2B8F0D11}")

type testWidget struct {
	class string
}

func (w *testWidget) RuntimeClassName() string {
	return w.class
}

func newTestInspectable(t *testing.T, class string) Inspectable {
	t.Helper()
	itfs := []com.Interface{
		{Vtable: NewInspectableVtable(), IIDs: []*com.IID{IID_IInspectable, iidTestWidget}},
	}
	s := com.NewServer(&testWidget{class: class}, itfs)
	return Inspectable{com.WrapInterface[IInspectableABI](s.Interface(0))}
}

func TestInspectable(t *testing.T) {
	obj := newTestInspectable(t, "Test.Widget")
	defer obj.Close()

	name, err := obj.RuntimeClassName()
	require.NoError(t, err)
	assert.Equal(t, "Test.Widget", name)

	iids, err := obj.UnsafeUnwrap().GetIids()
	require.NoError(t, err)
	assert.Empty(t, iids)

	level, err := obj.UnsafeUnwrap().GetTrustLevel()
	require.NoError(t, err)
	assert.Equal(t, BaseTrust, level)

	other, err := com.TryAs[Inspectable](obj)
	require.NoError(t, err)
	assert.Equal(t, obj.AsRaw(), other.AsRaw())
	other.Close()

	var null Inspectable
	_, err = null.RuntimeClassName()
	assert.Equal(t, wingrt.Error(wingrt.E_POINTER), err)
}
