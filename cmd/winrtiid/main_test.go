// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"winrtiid"}, args...))
	return out.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var coder cli.ExitCoder
	require.ErrorAs(t, err, &coder)
	return coder.ExitCode()
}

func TestIID(t *testing.T) {
	out, err := run(t, "iid",
		"Windows.Foundation.Collections.IObservableMap`2<String, Object>",
		"Windows.Foundation.IReference<Int32>")
	require.NoError(t, err)
	assert.Equal(t,
		"{236AAC9D-FB12-5C4D-A41C-9E445FB4D7EC}  pinterface({65df2bf5-bf39-41b5-aebc-5a9d865e472b};string;cinterface(IInspectable))\n"+
			"{548CEFBD-BC8A-5FA0-8DF2-957440FC8BF4}  pinterface({61c17706-2d65-11e0-9ae8-d48564015472};i4)\n",
		out)

	_, err = run(t, "iid")
	assert.Equal(t, 2, exitCode(t, err))

	_, err = run(t, "iid", "Contoso.Unknown")
	assert.Equal(t, 1, exitCode(t, err))
}

func TestVerify(t *testing.T) {
	expr := "Windows.Foundation.Collections.MapChangedEventHandler<String, Object>"

	out, err := run(t, "verify", "--expect", "{24f981e5-ddca-538d-aada-a59906084cf1}", expr)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ok  {24F981E5-DDCA-538D-AADA-A59906084CF1}"), out)

	_, err = run(t, "verify", "--expect", "{00000000-0000-0000-0000-000000000001}", expr)
	assert.Equal(t, 1, exitCode(t, err))
	assert.Contains(t, err.Error(), "identifier mismatch")

	_, err = run(t, "verify", "--expect", "not-a-guid", expr)
	assert.Equal(t, 2, exitCode(t, err))

	_, err = run(t, "verify", expr)
	assert.Error(t, err, "--expect is required")
}

func TestListWithTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.yaml")
	require.NoError(t, os.WriteFile(path, []byte("types:\n  - name: Contoso.IGadget\n    kind: interface\n    guid: 0f0e0d0c-0b0a-0908-0706-050403020100\n    arity: 1\n"), 0o644))

	out, err := run(t, "--types", path, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "{0F0E0D0C-0B0A-0908-0706-050403020100} Contoso.IGadget`1\n")
	assert.Contains(t, out, "Windows.Foundation.Collections.PropertySet\n")

	out, err = run(t, "--types", path, "iid", "Contoso.IGadget<String>")
	require.NoError(t, err)
	assert.Contains(t, out, "pinterface({0f0e0d0c-0b0a-0908-0706-050403020100};string)")

	_, err = run(t, "--types", filepath.Join(t.TempDir(), "missing.yaml"), "list")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
