package formula

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aexvir/tap"
)

// Default is the formula installed when none is named.
const Default = "apigeecli"

//go:embed formulas/*.lua
var builtin embed.FS

// ErrNotFound is returned when no formula with the requested name exists.
var ErrNotFound = errors.New("formula not found")

// Registry looks formulas up by name, first in the configured directories
// and then among the ones embedded in the binary.
type Registry struct {
	dirs []string
}

// NewRegistry creates a registry; empty directory entries are ignored.
func NewRegistry(dirs ...string) *Registry {
	r := Registry{}
	for _, dir := range dirs {
		if dir != "" {
			r.dirs = append(r.dirs, dir)
		}
	}
	return &r
}

// Lookup returns the parsed formula called name.
func (r *Registry) Lookup(name string) (*Formula, error) {
	if name == "" {
		name = Default
	}
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return nil, tap.Fail("formula.lookup", tap.KindInvalidFormula, name, fmt.Errorf("invalid formula name"))
	}

	filename := name + ".lua"

	for _, dir := range r.dirs {
		path := filepath.Join(dir, filename)
		if _, err := os.Stat(path); err == nil {
			return ParseFile(path)
		}
	}

	code, err := builtin.ReadFile("formulas/" + filename)
	if err != nil {
		return nil, tap.Fail("formula.lookup", tap.KindInvalidFormula, name, fmt.Errorf("%w: %s", ErrNotFound, name))
	}

	return Parse(name, string(code))
}

// Names lists every formula the registry can look up, sorted and deduplicated.
func (r *Registry) Names() ([]string, error) {
	seen := make(map[string]bool)

	entries, err := fs.ReadDir(builtin, "formulas")
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		seen[strings.TrimSuffix(entry.Name(), ".lua")] = true
	}

	for _, dir := range r.dirs {
		matches, err := filepath.Glob(filepath.Join(dir, "*.lua"))
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			seen[strings.TrimSuffix(filepath.Base(match), ".lua")] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}
