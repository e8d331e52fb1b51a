package formula

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aexvir/tap"
	"github.com/aexvir/tap/platform"
)

func sample() *Formula {
	return &Formula{
		Name:     "tool",
		Version:  "2.0.1",
		Binary:   "tool",
		TestArgs: []string{"--version"},
		Sources: []Source{
			{OS: "darwin", Arch: "amd64", URL: "https://example.com/v{{.Version}}/tool_{{.ReleaseOS}}_{{.ReleaseArch}}.zip", SHA256: "aa"},
			{OS: "linux", Arch: "amd64", URL: "https://example.com/v{{.Version}}/tool_{{.ReleaseOS}}_{{.ReleaseArch}}.zip", SHA256: "bb"},
		},
	}
}

func TestApigeecliResolve(t *testing.T) {
	f, err := NewRegistry().Lookup("apigeecli")
	require.NoError(t, err)

	t.Run("darwin on intel", func(t *testing.T) {
		info, err := platform.Parse("Darwin", "x86_64")
		require.NoError(t, err)

		src, err := f.Resolve(info)
		require.NoError(t, err)

		assert.Equal(t, "https://github.com/apigee/apigeecli/releases/download/v1.7.2/apigeecli_v1.7.2_Darwin_x86_64.zip", src.URL)
		assert.True(t, strings.HasPrefix(src.SHA256, "3801"))
		assert.True(t, strings.HasSuffix(src.SHA256, "dec7379"))
	})

	t.Run("darwin on apple silicon uses the intel build", func(t *testing.T) {
		info, err := platform.Parse("Darwin", "arm64")
		require.NoError(t, err)

		src, err := f.Resolve(info)
		require.NoError(t, err)

		assert.Equal(t, "darwin/arm64", src.Platform())
		assert.Equal(t, "https://github.com/apigee/apigeecli/releases/download/v1.7.2/apigeecli_v1.7.2_Darwin_x86_64.zip", src.URL)
		assert.True(t, strings.HasPrefix(src.SHA256, "3801"))
		assert.True(t, strings.HasSuffix(src.SHA256, "dec7379"))
	})

	t.Run("linux on intel", func(t *testing.T) {
		info, err := platform.Parse("Linux", "x86_64")
		require.NoError(t, err)

		src, err := f.Resolve(info)
		require.NoError(t, err)

		assert.Equal(t, "https://github.com/apigee/apigeecli/releases/download/v1.7.2/apigeecli_v1.7.2_Linux_x86_64.zip", src.URL)
		assert.True(t, strings.HasPrefix(src.SHA256, "d161"))
		assert.True(t, strings.HasSuffix(src.SHA256, "eef257bb"))
	})

	unsupported := []struct{ os, arch string }{
		{"Linux", "arm64"},
		{"Linux", "aarch64"},
		{"Windows", "x86_64"},
		{"FreeBSD", "amd64"},
	}
	for _, test := range unsupported {
		t.Run("rejects "+test.os+"/"+test.arch, func(t *testing.T) {
			info, err := platform.Parse(test.os, test.arch)
			require.NoError(t, err)

			src, err := f.Resolve(info)
			require.Error(t, err)
			assert.Empty(t, src.URL)
			assert.ErrorIs(t, err, ErrUnsupportedPlatform)
			assert.True(t, tap.IsKind(err, tap.KindUnsupportedPlatform))
			assert.Contains(t, err.Error(), "darwin/amd64, darwin/arm64, linux/amd64")
		})
	}
}

func TestResolveExactlyOnePerSupportedPlatform(t *testing.T) {
	f := sample()

	for _, key := range f.Platforms() {
		parts := strings.Split(key, "/")
		src, err := f.Resolve(platform.Info{OS: parts[0], Arch: parts[1]})
		require.NoError(t, err)
		assert.Equal(t, key, src.Platform())
		assert.NotContains(t, src.URL, "{{")
	}
}

func TestResolveSignatureTemplate(t *testing.T) {
	f := sample()
	f.PublicKey = "key"
	f.Sources[1].Signature = "https://example.com/v{{.Version}}/tool_{{.OS}}_{{.Arch}}.zip.sig"

	src, err := f.Resolve(platform.Info{OS: "linux", Arch: "amd64"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/v2.0.1/tool_linux_amd64.zip.sig", src.Signature)
}

func TestResolveBrokenTemplate(t *testing.T) {
	f := sample()
	f.Sources[0].URL = "https://example.com/{{.Nope}}"

	_, err := f.Resolve(platform.Info{OS: "darwin", Arch: "amd64"})
	require.Error(t, err)
	assert.True(t, tap.IsKind(err, tap.KindInvalidFormula))
	assert.False(t, errors.Is(err, ErrUnsupportedPlatform))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *Formula)
		problem string
	}{
		{"missing name", func(f *Formula) { f.Name = "" }, "name must be set"},
		{"missing version", func(f *Formula) { f.Version = "" }, "version must be set"},
		{"bad version", func(f *Formula) { f.Version = "one.two" }, "not a semantic version"},
		{"binary with path", func(f *Formula) { f.Binary = "bin/tool" }, "must be a file name"},
		{"no platforms", func(f *Formula) { f.Sources = nil }, "at least one platform"},
		{"duplicate platform", func(f *Formula) { f.Sources[1].OS = "darwin" }, "declared more than once"},
		{"missing url", func(f *Formula) { f.Sources[0].URL = "" }, "url must be set"},
		{"missing digest", func(f *Formula) { f.Sources[0].SHA256 = "" }, "sha256 must be set"},
		{"signature without key", func(f *Formula) { f.Sources[0].Signature = "https://x/sig" }, "without a public key"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := sample()
			test.mutate(f)

			err := f.Validate()
			require.Error(t, err)
			assert.True(t, tap.IsKind(err, tap.KindInvalidFormula))
			assert.Contains(t, err.Error(), test.problem)
		})
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, sample().Validate())
	})
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "v1.7.2", Canonical("1.7.2"))
	assert.Equal(t, "v1.7.2", Canonical("v1.7.2"))
	assert.Equal(t, "", Canonical(""))
}
