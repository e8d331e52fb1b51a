package installer

import (
	"io"
	"log/slog"

	"github.com/aexvir/tap/artifact"
	"github.com/aexvir/tap/platform"
)

type Option func(i *Installer)

// WithBinDir sets the directory the binary is installed into.
func WithBinDir(dir string) Option {
	return func(i *Installer) {
		if dir != "" {
			i.bindir = dir
		}
	}
}

// WithCacheDir sets the directory archives are downloaded into.
func WithCacheDir(dir string) Option {
	return func(i *Installer) {
		if dir != "" {
			i.cachedir = dir
		}
	}
}

// WithDetector replaces host detection; pass [platform.Static] to install for
// an explicit os/arch pair.
func WithDetector(detector platform.Detector) Option {
	return func(i *Installer) {
		if detector != nil {
			i.detector = detector
		}
	}
}

// WithFetcher sets the fetcher used for downloads.
func WithFetcher(fetcher *artifact.Fetcher) Option {
	return func(i *Installer) {
		i.fetcher = fetcher
	}
}

// WithVersionArgs allows customizing the arguments passed to the binary to check
// its installed version. This is useful for binaries that don't support the
// `--version` flag. Passing no arguments disables the check, so every install
// reinstalls.
func WithVersionArgs(args ...string) Option {
	return func(i *Installer) {
		i.versionargs = args
	}
}

// WithOutput redirects the step output.
func WithOutput(w io.Writer) Option {
	return func(i *Installer) {
		if w != nil {
			i.out = w
		}
	}
}

// WithLogger sets the structured logger receiving debug records.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Installer) {
		if logger != nil {
			i.logger = logger
		}
	}
}
