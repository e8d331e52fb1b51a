// Package formula holds the declarative descriptors tap installs from.
//
// A [Formula] declares a release version and, per (operating system,
// architecture) pair, the archive to download and the SHA-256 digest that
// archive must match. Formulas are written in Lua and embedded in the binary;
// additional ones can be loaded from a directory on disk.
//
//	formula = {
//		name    = "apigeecli",
//		version = "1.7.2",
//		binary  = "apigeecli",
//		platforms = {
//			{ os = "linux", arch = "amd64", url = "https://.../{{.ReleaseOS}}_{{.ReleaseArch}}.zip", sha256 = "..." },
//		},
//		test = { "--version" },
//	}
package formula

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/aexvir/tap"
	"github.com/aexvir/tap/platform"
)

// ErrUnsupportedPlatform is returned when a formula declares no source for the platform.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// BottleUnneeded marks formulas installing generic release archives instead of bottles.
const BottleUnneeded = "unneeded"

// Formula describes how to obtain, verify and install one binary.
type Formula struct {
	Name     string
	Desc     string
	Homepage string
	License  string
	Version  string
	Bottle   string

	// Binary is the executable extracted from the archive and installed into the bin dir.
	Binary string
	// TestArgs are passed to the installed binary by the smoke test.
	TestArgs []string
	// Livecheck is an url answering with the latest upstream release, github api style.
	Livecheck string
	// PublicKey is an armored pgp key; required when any source declares a signature.
	PublicKey string

	Sources []Source
}

// Source is the downloadable archive for one platform.
type Source struct {
	OS   string
	Arch string
	// URL may contain [Template] placeholders.
	URL    string
	SHA256 string
	// Signature is an optional detached pgp signature url for the archive.
	Signature string
}

// Platform returns the os/arch key of the source.
func (s Source) Platform() string {
	return s.OS + "/" + s.Arch
}

// Validate checks the invariants every formula must hold before it's used.
func (f *Formula) Validate() error {
	var problems []string

	if f.Name == "" {
		problems = append(problems, "name must be set")
	}
	if f.Version == "" {
		problems = append(problems, "version must be set")
	} else if !semver.IsValid(Canonical(f.Version)) {
		problems = append(problems, fmt.Sprintf("version %q is not a semantic version", f.Version))
	}
	if f.Binary == "" {
		problems = append(problems, "binary must be set")
	} else if strings.ContainsAny(f.Binary, `/\`) {
		problems = append(problems, fmt.Sprintf("binary %q must be a file name", f.Binary))
	}
	if len(f.Sources) == 0 {
		problems = append(problems, "at least one platform must be declared")
	}

	seen := make(map[string]bool, len(f.Sources))
	for i, src := range f.Sources {
		key := src.Platform()
		switch {
		case src.OS == "" || src.Arch == "":
			problems = append(problems, fmt.Sprintf("platform #%d: os and arch must be set", i+1))
		case seen[key]:
			problems = append(problems, fmt.Sprintf("platform %s declared more than once", key))
		}
		seen[key] = true

		if src.URL == "" {
			problems = append(problems, fmt.Sprintf("platform %s: url must be set", key))
		}
		if src.SHA256 == "" {
			problems = append(problems, fmt.Sprintf("platform %s: sha256 must be set", key))
		}
		if src.Signature != "" && f.PublicKey == "" {
			problems = append(problems, fmt.Sprintf("platform %s: signature declared without a public key", key))
		}
	}

	if len(problems) > 0 {
		return tap.Fail(
			"formula.validate",
			tap.KindInvalidFormula,
			f.Name,
			errors.New(strings.Join(problems, "; ")),
		)
	}

	return nil
}

// Resolve selects the single source matching the platform, with its url template resolved.
// There is no fallback: a platform without a declared source is an error.
func (f *Formula) Resolve(info platform.Info) (Source, error) {
	goos, goarch := platform.NormalizeOS(info.OS), platform.NormalizeArch(info.Arch)

	for _, src := range f.Sources {
		if src.OS != goos || src.Arch != goarch {
			continue
		}

		tmpl := f.Template(goos, goarch)

		url, err := tmpl.Resolve(src.URL)
		if err != nil {
			return Source{}, tap.Fail("formula.resolve", tap.KindInvalidFormula, f.Name, fmt.Errorf("failed to resolve url: %w", err))
		}
		src.URL = url

		if src.Signature != "" {
			sig, err := tmpl.Resolve(src.Signature)
			if err != nil {
				return Source{}, tap.Fail("formula.resolve", tap.KindInvalidFormula, f.Name, fmt.Errorf("failed to resolve signature url: %w", err))
			}
			src.Signature = sig
		}

		return src, nil
	}

	return Source{}, tap.Fail(
		"formula.resolve",
		tap.KindUnsupportedPlatform,
		"",
		fmt.Errorf(
			"%w: %s %s has no artifact for %s (available: %s)",
			ErrUnsupportedPlatform, f.Name, f.Version, goos+"/"+goarch, strings.Join(f.Platforms(), ", "),
		),
	)
}

// Platforms lists the declared os/arch pairs, sorted.
func (f *Formula) Platforms() []string {
	platforms := make([]string, 0, len(f.Sources))
	for _, src := range f.Sources {
		platforms = append(platforms, src.Platform())
	}
	sort.Strings(platforms)
	return platforms
}

// Template returns the values url templates are resolved with for a platform.
func (f *Formula) Template(goos, goarch string) Template {
	return Template{
		Name:        f.Name,
		Binary:      f.Binary,
		Version:     strings.TrimPrefix(f.Version, "v"),
		OS:          goos,
		Arch:        goarch,
		ReleaseOS:   platform.ReleaseOS(goos),
		ReleaseArch: platform.ReleaseArch(goarch),
	}
}

// Canonical returns the version with the "v" prefix semver expects.
func Canonical(version string) string {
	if version == "" || strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}
