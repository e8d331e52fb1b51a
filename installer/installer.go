// Package installer performs the install sequence of a formula:
// resolve the platform source, fetch the archive, verify it, extract the binary into
// the bin directory and smoke test it.
package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/mod/semver"

	"github.com/aexvir/tap"
	"github.com/aexvir/tap/artifact"
	"github.com/aexvir/tap/formula"
	"github.com/aexvir/tap/platform"
)

// Installer installs the binary declared by one formula.
// It's not safe for concurrent use; every step records what the next one needs.
type Installer struct {
	formula *formula.Formula

	bindir   string
	cachedir string

	detector  platform.Detector
	fetcher   *artifact.Fetcher
	verifier  *artifact.Verifier
	extractor *artifact.Extractor

	versionargs []string

	out    io.Writer
	logger *slog.Logger

	// filled while the steps run
	platform  platform.Info
	source    formula.Source
	archive   string
	signature string
}

// New creates an installer for f; the formula is validated first.
func New(f *formula.Formula, options ...Option) (*Installer, error) {
	if f == nil {
		return nil, fmt.Errorf("formula must be set")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	inst := Installer{
		formula:     f,
		bindir:      filepath.FromSlash("./bin"),
		cachedir:    filepath.Join(os.TempDir(), "tap"),
		detector:    platform.NewDetector(),
		verifier:    artifact.NewVerifier(),
		versionargs: f.TestArgs,
		out:         color.Output,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range options {
		opt(&inst)
	}

	if inst.fetcher == nil {
		inst.fetcher = artifact.NewFetcher(artifact.WithFetchLog(inst.out))
	}
	inst.extractor = artifact.NewExtractor(inst.out)
	inst.logger = inst.logger.With("formula", f.Name, "version", f.Version)

	return &inst, nil
}

// Name of the formula being installed.
func (i *Installer) Name() string {
	return i.formula.Name
}

// Formula being installed.
func (i *Installer) Formula() *formula.Formula {
	return i.formula
}

// BinPath is where the binary ends up once installed.
func (i *Installer) BinPath() string {
	return filepath.Join(i.bindir, i.formula.Binary)
}

// Ensure installs the formula unless the expected version is already installed.
func (i *Installer) Ensure(ctx context.Context) error {
	return i.Install(ctx, false)
}

// Install runs the whole sequence: resolve, fetch, verify, install and test.
// Without force an already installed binary reporting the formula version is kept.
// The first failing step aborts the installation and its error is returned as is.
func (i *Installer) Install(ctx context.Context, force bool) error {
	if !force && i.Installed() && i.IsExpectedVersion(ctx) {
		tap.LogStep(i.out, fmt.Sprintf("%s %s already installed", i.formula.Name, i.formula.Version))
		tap.LogDetail(i.out, i.BinPath())
		i.logger.Info("installer.skip", "path", i.BinPath())
		return nil
	}

	i.logger.Info("installer.install", "bindir", i.bindir, "force", force)

	err := tap.New(tap.WithOutput(i.out)).Execute(ctx, i.Steps()...)
	if err != nil {
		i.logger.Error("installer.failed", "kind", string(tap.KindOf(err)), "error", err)
		return err
	}

	i.logger.Info("installer.installed", "path", i.BinPath())
	return nil
}

// Fetch only resolves, downloads and verifies the archive, returning its path.
func (i *Installer) Fetch(ctx context.Context) (string, error) {
	steps := i.Steps()[:3]
	if err := tap.New(tap.WithOutput(i.out)).Execute(ctx, steps...); err != nil {
		return "", err
	}
	return i.archive, nil
}

// Steps lists the install sequence in the order it must run.
func (i *Installer) Steps() []tap.Step {
	name := i.formula.Name
	return []tap.Step{
		tap.Named(fmt.Sprintf("resolving %s %s", name, i.formula.Version), i.Resolve),
		tap.Named(fmt.Sprintf("fetching %s", name), i.Download),
		tap.Named(fmt.Sprintf("verifying %s", name), i.Verify),
		tap.Named(fmt.Sprintf("installing %s", name), i.Extract),
		tap.Named(fmt.Sprintf("testing %s", name), i.Test),
	}
}

// Resolve detects the platform and selects the single source declared for it.
func (i *Installer) Resolve(ctx context.Context) error {
	info, err := i.detector.Detect(ctx)
	if err != nil {
		return tap.Fail("installer.resolve", tap.KindUnsupportedPlatform, "", err)
	}

	src, err := i.formula.Resolve(info)
	if err != nil {
		return err
	}

	// a digest that can never match fails here, before anything is downloaded
	if err := artifact.CheckDigest(src.SHA256); err != nil {
		return tap.Fail("installer.resolve", tap.KindIntegrity, src.URL, err)
	}

	i.platform, i.source = info, src
	i.archive = artifact.CachePath(i.cachedir, i.formula.Name, i.formula.Version, src.URL)
	i.signature = ""
	if src.Signature != "" {
		i.signature = i.archive + filepath.Ext(src.Signature)
	}

	tap.LogDetail(i.out, fmt.Sprintf("%s → %s", info, src.URL))
	i.logger.Debug("installer.resolve", "platform", info.String(), "raw_arch", info.ArchRaw, "url", src.URL)

	return nil
}

// Download fetches the archive into the cache, reusing a cached copy when present.
// Cached archives are still verified by the next step.
func (i *Installer) Download(ctx context.Context) error {
	if err := i.requireResolved(); err != nil {
		return err
	}

	if artifact.Cached(i.archive) {
		tap.LogDetail(i.out, fmt.Sprintf("using cached %s", i.archive))
		i.logger.Debug("installer.fetch.cached", "path", i.archive)
	} else {
		i.logger.Debug("installer.fetch", "url", i.source.URL, "path", i.archive)
		if err := i.fetcher.Fetch(ctx, i.source.URL, i.archive); err != nil {
			return err
		}
	}

	if i.signature != "" && !artifact.Cached(i.signature) {
		if err := i.fetcher.Fetch(ctx, i.source.Signature, i.signature); err != nil {
			return err
		}
	}

	return nil
}

// Verify checks the archive digest and, when declared, its signature.
func (i *Installer) Verify(_ context.Context) error {
	if err := i.requireResolved(); err != nil {
		return err
	}

	if err := i.verifier.Verify(i.archive, i.source.SHA256); err != nil {
		i.logger.Warn("installer.verify", "path", i.archive, "error", err)
		return err
	}
	tap.LogDetail(i.out, fmt.Sprintf("sha256 %s", strings.ToLower(i.source.SHA256)))

	if i.signature != "" {
		if err := i.verifier.VerifySignature(i.archive, i.signature, i.formula.PublicKey); err != nil {
			i.logger.Warn("installer.signature", "path", i.signature, "error", err)
			// neither file can be trusted, the next run downloads both again
			if errors.Is(err, artifact.ErrSignature) {
				os.Remove(i.signature)
				os.Remove(i.archive)
			}
			return err
		}
		tap.LogDetail(i.out, "signature ok")
	}

	return nil
}

// Extract installs the binary from the verified archive into the bin directory.
func (i *Installer) Extract(_ context.Context) error {
	if err := i.requireResolved(); err != nil {
		return err
	}

	installed, err := i.extractor.Extract(i.archive, i.formula.Binary, i.bindir)
	if err != nil {
		return err
	}

	i.logger.Debug("installer.extract", "path", installed)
	return nil
}

// Test runs the installed binary with the formula test arguments; exit status 0 passes.
func (i *Installer) Test(ctx context.Context) error {
	var output bytes.Buffer

	err := tap.Run(
		ctx,
		i.BinPath(),
		tap.WithArgs(i.formula.TestArgs...),
		tap.WithStdOut(&output),
		tap.WithStdErr(&output),
		tap.WithStdIn(nil),
		tap.WithLog(i.out),
	)

	for _, line := range strings.Split(strings.TrimSpace(output.String()), "\n") {
		if line != "" {
			tap.LogDetail(i.out, line)
		}
	}
	i.logger.Debug("installer.test", "args", i.formula.TestArgs, "output", output.String())

	return tap.Fail("installer.test", tap.KindSmokeTest, i.BinPath(), err)
}

// Uninstall removes the installed binary; a missing binary is not an error.
func (i *Installer) Uninstall() error {
	err := os.Remove(i.BinPath())
	if err != nil && !os.IsNotExist(err) {
		return tap.Fail("installer.uninstall", tap.KindFilesystem, i.BinPath(), err)
	}

	tap.LogStep(i.out, fmt.Sprintf("removed %s", i.BinPath()))
	i.logger.Info("installer.uninstall", "path", i.BinPath())
	return nil
}

// Installed returns true if an executable file exists at the bin path.
func (i *Installer) Installed() bool {
	info, err := os.Stat(i.BinPath())
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}

// IsExpectedVersion runs the version command and looks for the formula version in its output.
// With no version arguments configured the check always fails, forcing an install.
func (i *Installer) IsExpectedVersion(ctx context.Context) bool {
	if len(i.versionargs) == 0 {
		return false
	}

	var output bytes.Buffer
	err := tap.Run(
		ctx,
		i.BinPath(),
		tap.WithArgs(i.versionargs...),
		tap.WithoutNoise(),
		tap.WithStdOut(&output),
		tap.WithStdErr(&output),
		tap.WithStdIn(nil),
	)
	if err != nil {
		return false
	}

	return ContainsVersion(output.String(), i.formula.Version)
}

// Source returns the source selected by [Installer.Resolve].
func (i *Installer) Source() formula.Source {
	return i.source
}

// Archive returns the cache path of the archive, set once resolved.
func (i *Installer) Archive() string {
	return i.archive
}

// ContainsVersion reports whether any word of output is the semantic version expected,
// with or without the "v" prefix.
func ContainsVersion(output, expected string) bool {
	want := formula.Canonical(expected)
	if !semver.IsValid(want) {
		return false
	}

	for _, field := range strings.Fields(output) {
		got := formula.Canonical(strings.Trim(field, `"',;:()[]`))
		if !semver.IsValid(got) || strings.Count(strings.SplitN(got, "-", 2)[0], ".") != 2 {
			continue
		}
		if semver.Compare(got, want) == 0 {
			return true
		}
	}

	return false
}

func (i *Installer) requireResolved() error {
	if i.source.URL == "" {
		return tap.Fail("installer", tap.KindInvalidFormula, i.formula.Name, fmt.Errorf("source not resolved yet"))
	}
	return nil
}
