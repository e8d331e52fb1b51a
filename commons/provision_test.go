package commons

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aexvir/tap"
	"github.com/aexvir/tap/formula"
	"github.com/aexvir/tap/installer"
	"github.com/aexvir/tap/platform"
)

func fake(t *testing.T, name string, sources ...string) *installer.Installer {
	t.Helper()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	w, err := writer.Create(name)
	require.NoError(t, err)
	_, err = w.Write([]byte("#!/bin/sh\necho " + name + " 1.0.0\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	archive := buf.Bytes()
	sum := sha256.Sum256(archive)

	server := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				w.Write(archive)
			},
		),
	)
	t.Cleanup(server.Close)

	f := &formula.Formula{Name: name, Version: "1.0.0", Binary: name, TestArgs: []string{"--version"}}
	for _, src := range sources {
		goos, goarch, _ := strings.Cut(src, "/")
		f.Sources = append(f.Sources, formula.Source{
			OS:     goos,
			Arch:   goarch,
			URL:    server.URL + "/" + name + ".zip",
			SHA256: hex.EncodeToString(sum[:]),
		})
	}

	inst, err := installer.New(
		f,
		installer.WithBinDir(filepath.Join(t.TempDir(), "bin")),
		installer.WithCacheDir(t.TempDir()),
		installer.WithDetector(platform.Static{OS: "linux", Arch: "amd64"}),
		installer.WithOutput(&bytes.Buffer{}),
	)
	require.NoError(t, err)

	return inst
}

func TestProvision(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses shell scripts as binaries")
	}

	first := fake(t, "first", "linux/amd64")
	second := fake(t, "second", "linux/amd64", "darwin/amd64")

	out := &bytes.Buffer{}
	require.NoError(t, ProvisionTo(out, false, first, second)(context.Background()))

	assert.True(t, first.Installed())
	assert.True(t, second.Installed())
	assert.Contains(t, out.String(), "provisioning 2 formulas: first, second")
}

func TestProvision_ContinuesAfterFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses shell scripts as binaries")
	}

	unsupported := fake(t, "maconly", "darwin/amd64")
	supported := fake(t, "linuxonly", "linux/amd64")

	out := &bytes.Buffer{}
	err := ProvisionTo(out, false, unsupported, supported)(context.Background())
	require.Error(t, err)

	assert.True(t, tap.IsKind(err, tap.KindUnsupportedPlatform))
	assert.Contains(t, out.String(), "failed to provision maconly")
	assert.False(t, unsupported.Installed())
	assert.True(t, supported.Installed())
}

func TestIsCIEnv(t *testing.T) {
	for _, name := range ciVariables {
		t.Setenv(name, "")
	}
	assert.False(t, IsCIEnv())

	called := false
	task := func(_ context.Context) error { called = true; return nil }

	require.NoError(t, OnlyOnCI(task)(context.Background()))
	assert.False(t, called)
	require.NoError(t, OnlyLocally(task)(context.Background()))
	assert.True(t, called)

	t.Setenv("GITHUB_ACTIONS", "true")
	assert.True(t, IsCIEnv())
}
