// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build windows

package winrt

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// Each scenario runs as its own process, since it initializes the runtime on
// the process's main thread.

func TestPropertySetEventMTA(t *testing.T) {
	runScenario(t, "PropertySetEvent")
}

func TestPropertySetEventSTA(t *testing.T) {
	runScenario(t, "PropertySetEventSTA")
}

func TestTypedEventHandlerWithSystemUri(t *testing.T) {
	runScenario(t, "TypedEventHandler")
}

func runScenario(t *testing.T, name string) {
	t.Helper()
	output := strings.TrimSpace(runTestProg(t, "testwinrtruntime", name))
	if output != "OK" {
		t.Errorf("%s\n", strings.TrimPrefix(output, "error: "))
	}
}

type builtProg struct {
	once sync.Once
	exe  string
	err  error
}

var (
	builtMu sync.Mutex
	built   = map[string]*builtProg{}
)

func buildTestProg(t *testing.T, binary string) (string, error) {
	builtMu.Lock()
	b := built[binary]
	if b == nil {
		b = &builtProg{}
		built[binary] = b
	}
	builtMu.Unlock()

	b.once.Do(func() {
		goTool, err := exec.LookPath("go")
		if err != nil {
			b.err = err
			return
		}

		// Not t.TempDir: the executable outlives the test that first built it.
		dir, err := os.MkdirTemp("", binary)
		if err != nil {
			b.err = err
			return
		}
		plain := filepath.Join(dir, binary+"_nomanifest.exe")
		cmd := exec.Command(goTool, "build", "-o", plain, ".")
		cmd.Dir = filepath.Join("testdata", binary)
		if out, err := cmd.CombinedOutput(); err != nil {
			b.err = fmt.Errorf("building %s: %v\n%s", binary, err, out)
			return
		}

		exe := filepath.Join(dir, binary+".exe")
		if err := addManifest(exe, plain); err != nil {
			b.err = fmt.Errorf("adding manifest to %s: %w", binary, err)
			return
		}
		b.exe = exe
	})
	return b.exe, b.err
}

func runTestProg(t *testing.T, binary, name string) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping subprocess test in short mode")
	}
	exe, err := buildTestProg(t, binary)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			t.Skip("go tool not available")
		}
		t.Fatal(err)
	}
	out, _ := exec.Command(exe, name).CombinedOutput()
	return string(out)
}
