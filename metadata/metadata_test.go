// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dblohm7/wingrt/foundation"
	"github.com/dblohm7/wingrt/foundation/collections"
	"github.com/dblohm7/wingrt/winrt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpr(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"Int32", "Int32"},
		{"Windows.Foundation.IReference`1<Int32>", "Windows.Foundation.IReference`1<Int32>"},
		{"Windows.Foundation.IReference<Int32>", "Windows.Foundation.IReference`1<Int32>"},
		{" IMap`2< String ,Object > ", "IMap`2<String, Object>"},
		{"A<B<C, D>, E>", "A`2<B`2<C, D>, E>"},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			e, err := ParseExpr(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, e.String())
		})
	}
}

func TestParseExprErrors(t *testing.T) {
	for _, in := range []string{
		"",
		"IMap<",
		"IMap<String",
		"IMap<String;Object>",
		"IMap`2<String>",
		"IMap`x<String>",
		"Int32 Int32",
		"<Int32>",
	} {
		_, err := ParseExpr(in)
		var syntaxErr *SyntaxError
		assert.ErrorAs(t, err, &syntaxErr, "%q", in)
	}
}

func TestIID(t *testing.T) {
	db := Default()
	testCases := []struct {
		expr string
		want string
	}{
		{"Windows.Foundation.AsyncActionCompletedHandler", "{A4ED5C81-76C9-40BD-8BE6-B1D90FB20AE7}"},
		{"Windows.Foundation.Uri", "{9E365E57-48B2-4160-956F-C7385120BBFC}"},
		{"Windows.Foundation.TypedEventHandler`2<Windows.Foundation.Uri, Int32>", "{DAE18EA9-FCF3-5ACF-BCDD-8C354CBA6D23}"},
		{"Windows.Foundation.IReference`1<Int32>", "{548CEFBD-BC8A-5FA0-8DF2-957440FC8BF4}"},
		{"Windows.Foundation.IReference`1<Boolean>", "{3C00FD60-2950-5939-A21A-2D12C5A01B8A}"},
		{"Windows.Foundation.Collections.MapChangedEventHandler`2<String, Object>", "{24F981E5-DDCA-538D-AADA-A59906084CF1}"},
		{"Windows.Foundation.Collections.IObservableMap`2<String, Object>", "{236AAC9D-FB12-5C4D-A41C-9E445FB4D7EC}"},
		{"Windows.Foundation.Collections.IMap`2<String, Object>", "{1B0D3570-0877-5EC2-8A2C-3B9539506ACA}"},
		{"Windows.Foundation.Collections.IMapChangedEventArgs`1<String>", "{60141EFB-F2F9-5377-96FD-F8C60D9558B5}"},
		{"Windows.Foundation.Collections.PropertySet", "{8A43ED9F-F4E6-4421-ACF9-1DAB2986820C}"},
	}
	for _, tc := range testCases {
		t.Run(tc.expr, func(t *testing.T) {
			iid, _, err := db.IID(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, iid.String())
		})
	}
}

func TestAgreesWithProjections(t *testing.T) {
	db := Default()
	testCases := []struct {
		expr string
		sig  string
	}{
		{"Windows.Foundation.TypedEventHandler<Windows.Foundation.Uri, Int32>", foundation.TypedEventHandler[foundation.Uri, int32]{}.Signature()},
		{"Windows.Foundation.EventHandler<String>", foundation.EventHandler[string]{}.Signature()},
		{"Windows.Foundation.IReference<UInt8>", foundation.IReference[uint8]{}.Signature()},
		{"Windows.Foundation.Collections.MapChangedEventHandler<String, Object>", collections.MapChangedEventHandler[string, winrt.Inspectable]{}.Signature()},
		{"Windows.Foundation.Collections.IMapChangedEventArgs<Int64>", collections.IMapChangedEventArgs[int64]{}.Signature()},
		{"Windows.Foundation.Collections.IObservableMap<String, Windows.Foundation.Collections.CollectionChange>", collections.IObservableMap[string, collections.CollectionChange]{}.Signature()},
		{"Windows.Foundation.Collections.PropertySet", collections.PropertySet{}.Signature()},
	}
	for _, tc := range testCases {
		t.Run(tc.expr, func(t *testing.T) {
			sig, err := db.Signature(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.sig, sig)
		})
	}
}

func TestSignatureErrors(t *testing.T) {
	db := Default()

	_, err := db.Signature("Windows.Foundation.Nonexistent")
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = db.Signature("Windows.Foundation.IReference")
	assert.Error(t, err, "missing type arguments")

	_, err = db.Signature("Int32<String>")
	assert.Error(t, err, "fundamental types are not generic")

	_, _, err = db.IID("Windows.Foundation.AsyncStatus")
	assert.Error(t, err, "enums have no identifier")

	_, _, err = db.IID("String")
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
	}{
		{"missing name", "types:\n  - kind: enum\n"},
		{"unknown kind", "types:\n  - name: A\n    kind: struct\n"},
		{"interface without guid", "types:\n  - name: A\n    kind: interface\n"},
		{"malformed guid", "types:\n  - name: A\n    kind: interface\n    guid: nope\n"},
		{"runtime class without default", "types:\n  - name: A\n    kind: runtimeclass\n"},
		{"generic enum", "types:\n  - name: A\n    kind: enum\n    arity: 1\n"},
		{"duplicate", "types:\n  - name: A\n    kind: enum\n  - name: A\n    kind: enum\n"},
		{"not yaml", "types: [\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFileAndExtend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.yaml")
	doc := `types:
  - name: Contoso.IWidget
    kind: interface
    guid: 0f0e0d0c-0b0a-0908-0706-050403020100
  - name: Contoso.Widget
    kind: runtimeclass
    default: Contoso.IWidget
  - name: Contoso.WidgetFlags
    kind: enum
    flags: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	user, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Contoso.IWidget", "Contoso.Widget", "Contoso.WidgetFlags"}, user.Names())

	db := Default().Extend(user)
	assert.Equal(t, Default().Len()+3, db.Len())
	_, ok := Default().Lookup("Contoso.Widget")
	assert.False(t, ok, "Extend does not modify its receiver")

	sig, err := db.Signature("Windows.Foundation.TypedEventHandler<Contoso.Widget, Contoso.WidgetFlags>")
	require.NoError(t, err)
	assert.Equal(t,
		"pinterface({9de1c534-6ae1-11e0-84e1-18a905bcc53f};rc(Contoso.Widget;{0f0e0d0c-0b0a-0908-0706-050403020100});enum(Contoso.WidgetFlags;u4))",
		sig)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRuntimeClassCycle(t *testing.T) {
	db, err := Parse([]byte("types:\n  - name: A\n    kind: runtimeclass\n    default: B\n  - name: B\n    kind: runtimeclass\n    default: A\n"))
	require.NoError(t, err)
	_, err = db.Signature("A")
	assert.Error(t, err)
}
