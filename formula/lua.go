package formula

import (
	"fmt"
	"os"

	lua "github.com/yuin/gopher-lua"

	"github.com/aexvir/tap"
	"github.com/aexvir/tap/platform"
)

// Parse evaluates a Lua formula descriptor and returns the validated [Formula].
// The descriptor must assign a global "formula" table.
func Parse(name, code string) (*Formula, error) {
	L := newSandboxedVM()
	defer L.Close()

	if err := L.DoString(code); err != nil {
		return nil, tap.Fail("formula.parse", tap.KindInvalidFormula, name, fmt.Errorf("lua error: %w", err))
	}

	table, ok := L.GetGlobal("formula").(*lua.LTable)
	if !ok {
		return nil, tap.Fail("formula.parse", tap.KindInvalidFormula, name, fmt.Errorf("no global formula table found"))
	}

	f, err := extractFormula(table)
	if err != nil {
		return nil, tap.Fail("formula.parse", tap.KindInvalidFormula, name, err)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}

	return f, nil
}

// ParseFile reads and parses a Lua formula from disk.
func ParseFile(path string) (*Formula, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, tap.Fail("formula.parse", tap.KindInvalidFormula, path, err)
	}
	return Parse(path, string(code))
}

// newSandboxedVM creates a Lua state that can't touch the filesystem, run commands
// or load other code; formulas are declarative.
func newSandboxedVM() *lua.LState {
	L := lua.NewState()

	for _, global := range []string{"os", "io", "require", "dofile", "loadfile", "load", "loadstring", "debug"} {
		L.SetGlobal(global, lua.LNil)
	}

	return L
}

func extractFormula(table *lua.LTable) (*Formula, error) {
	f := Formula{}

	fields := map[string]*string{
		"name":       &f.Name,
		"desc":       &f.Desc,
		"homepage":   &f.Homepage,
		"license":    &f.License,
		"version":    &f.Version,
		"bottle":     &f.Bottle,
		"binary":     &f.Binary,
		"livecheck":  &f.Livecheck,
		"public_key": &f.PublicKey,
	}
	for key, target := range fields {
		value, err := optionalString(table, key)
		if err != nil {
			return nil, err
		}
		*target = value
	}

	// installing the formula's own name is the common case
	if f.Binary == "" {
		f.Binary = f.Name
	}

	test, err := stringList(table, "test")
	if err != nil {
		return nil, err
	}
	f.TestArgs = test
	if f.TestArgs == nil {
		f.TestArgs = []string{"--version"}
	}

	platforms := table.RawGetString("platforms")
	switch platforms.Type() {
	case lua.LTNil:
	case lua.LTTable:
		var perr error
		platforms.(*lua.LTable).ForEach(func(key, value lua.LValue) {
			if perr != nil {
				return
			}
			entry, ok := value.(*lua.LTable)
			if !ok {
				perr = fmt.Errorf("platforms[%s] must be a table, got %s", key, value.Type())
				return
			}
			src, err := extractSource(entry)
			if err != nil {
				perr = fmt.Errorf("platforms[%s]: %w", key, err)
				return
			}
			f.Sources = append(f.Sources, src)
		})
		if perr != nil {
			return nil, perr
		}
	default:
		return nil, fmt.Errorf("platforms must be a table, got %s", platforms.Type())
	}

	return &f, nil
}

func extractSource(table *lua.LTable) (Source, error) {
	var src Source

	fields := map[string]*string{
		"os":        &src.OS,
		"arch":      &src.Arch,
		"url":       &src.URL,
		"sha256":    &src.SHA256,
		"signature": &src.Signature,
	}
	for key, target := range fields {
		value, err := optionalString(table, key)
		if err != nil {
			return Source{}, err
		}
		*target = value
	}

	src.OS = platform.NormalizeOS(src.OS)
	src.Arch = platform.NormalizeArch(src.Arch)

	return src, nil
}

func optionalString(table *lua.LTable, key string) (string, error) {
	value := table.RawGetString(key)
	switch value.Type() {
	case lua.LTNil:
		return "", nil
	case lua.LTString:
		return value.String(), nil
	case lua.LTNumber:
		// version = 1.7 is a common slip; accept it but keep the literal text
		return value.String(), nil
	default:
		return "", fmt.Errorf("%s must be a string, got %s", key, value.Type())
	}
}

func stringList(table *lua.LTable, key string) ([]string, error) {
	value := table.RawGetString(key)
	switch value.Type() {
	case lua.LTNil:
		return nil, nil
	case lua.LTString:
		return []string{value.String()}, nil
	case lua.LTTable:
		var list []string
		var err error
		value.(*lua.LTable).ForEach(func(_, item lua.LValue) {
			if item.Type() != lua.LTString {
				err = fmt.Errorf("%s entries must be strings, got %s", key, item.Type())
				return
			}
			list = append(list, item.String())
		})
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []string{}
		}
		return list, nil
	default:
		return nil, fmt.Errorf("%s must be a string or a list of strings, got %s", key, value.Type())
	}
}
