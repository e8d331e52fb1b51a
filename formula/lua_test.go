package formula

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aexvir/tap"
)

const minimal = `
formula = {
  name    = "tool",
  version = "0.3.0",
  platforms = {
    { os = "Linux", arch = "x86_64", url = "https://example.com/tool.tar.gz", sha256 = "abc" },
  },
}
`

func TestParse(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		f, err := Parse("tool", minimal)
		require.NoError(t, err)

		assert.Equal(t, "tool", f.Name)
		assert.Equal(t, "tool", f.Binary)
		assert.Equal(t, []string{"--version"}, f.TestArgs)
		require.Len(t, f.Sources, 1)
		assert.Equal(t, "linux", f.Sources[0].OS)
		assert.Equal(t, "amd64", f.Sources[0].Arch)
	})

	t.Run("builtin apigeecli descriptor", func(t *testing.T) {
		code, err := builtin.ReadFile("formulas/apigeecli.lua")
		require.NoError(t, err)

		f, err := Parse("apigeecli", string(code))
		require.NoError(t, err)

		assert.Equal(t, "1.7.2", f.Version)
		assert.Equal(t, BottleUnneeded, f.Bottle)
		assert.Equal(t, "Apache-2.0", f.License)
		assert.Equal(t, []string{"--version"}, f.TestArgs)
		assert.Equal(t, []string{"darwin/amd64", "darwin/arm64", "linux/amd64"}, f.Platforms())
		assert.NotEmpty(t, f.Livecheck)
	})

	t.Run("string test argument", func(t *testing.T) {
		f, err := Parse("tool", minimal+`formula.test = "version"`)
		require.NoError(t, err)
		assert.Equal(t, []string{"version"}, f.TestArgs)
	})

	t.Run("lua can compute values", func(t *testing.T) {
		code := `
local v = "1.0.0"
formula = {
  name = "tool",
  version = v,
  platforms = {},
}
for _, os in ipairs({ "darwin", "linux" }) do
  table.insert(formula.platforms, { os = os, arch = "amd64", url = "https://example.com/" .. os, sha256 = "ff" })
end
`
		f, err := Parse("tool", code)
		require.NoError(t, err)
		assert.Equal(t, []string{"darwin/amd64", "linux/amd64"}, f.Platforms())
	})
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		message string
	}{
		{"syntax error", `formula = {`, "lua error"},
		{"no table", `x = 1`, "no global formula table"},
		{"wrong field type", `formula = { name = {} }`, "name must be a string"},
		{"platforms not a table", `formula = { name = "t", platforms = "linux" }`, "platforms must be a table"},
		{"platform entry not a table", `formula = { name = "t", platforms = { "linux" } }`, "must be a table"},
		{"test list with numbers", `formula = { name = "t", test = { 1 } }`, "entries must be strings"},
		{"sandboxed io", `io.open("/etc/passwd")`, "lua error"},
		{"sandboxed os", `os.execute("true")`, "lua error"},
		{"fails validation", `formula = { name = "t" }`, "version must be set"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse("t", test.code)
			require.Error(t, err)
			assert.True(t, tap.IsKind(err, tap.KindInvalidFormula))
			assert.Contains(t, err.Error(), test.message)
		})
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tool.lua")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o644))

	f, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tool", f.Name)

	_, err = ParseFile(filepath.Join(dir, "missing.lua"))
	assert.Error(t, err)
}
