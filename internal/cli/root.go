package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aexvir/tap/artifact"
	"github.com/aexvir/tap/commons"
	"github.com/aexvir/tap/formula"
	"github.com/aexvir/tap/installer"
	"github.com/aexvir/tap/internal/config"
	"github.com/aexvir/tap/internal/logger"
	"github.com/aexvir/tap/platform"
)

// Execute runs the tap command line and exits with status 1 on any failure.
func Execute(version string) {
	if err := execute(newRootCmd(version)); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

// execute runs cmd and releases what setup acquired, whether the command failed or not.
func execute(cmd *cobra.Command, a *app) error {
	err := cmd.Execute()
	if cerr := a.close(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to close debug log: %w", cerr)
	}
	return err
}

// app is the state shared by every command, filled before any of them runs.
type app struct {
	version string

	configPath string
	binDir     string
	cacheDir   string
	formulaDir string
	debug      bool

	cfg      config.Config
	registry *formula.Registry
	cleanup  func() error

	// overridable in tests
	client   *http.Client
	detector platform.Detector
}

func newRootCmd(version string, overrides ...func(a *app)) (*cobra.Command, *app) {
	a := &app{version: version}
	for _, override := range overrides {
		override(a)
	}

	cmd := &cobra.Command{
		Use:           "tap",
		Short:         "Install prebuilt release binaries from verified formulas",
		Long:          "tap resolves the archive declared for this platform, downloads it, verifies its sha256,\ninstalls the binary and smoke tests it. Without arguments commands act on " + formula.Default + ".",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/tap/config.yaml)")
	flags.StringVar(&a.binDir, "bin-dir", "", "directory binaries are installed into (default ~/.local/bin)")
	flags.StringVar(&a.cacheDir, "cache-dir", "", "directory archives are downloaded into (default $XDG_CACHE_HOME/tap)")
	flags.StringVar(&a.formulaDir, "formula-dir", "", "directory with additional formula files")
	flags.BoolVar(&a.debug, "debug", false, "write a debug log to <cache-dir>/tap.log")

	cmd.AddCommand(
		installCmd(a),
		testCmd(a),
		fetchCmd(a),
		resolveCmd(a),
		infoCmd(a),
		uninstallCmd(a),
		livecheckCmd(a),
		sha256Cmd(),
		versionCmd(version),
	)

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return fmt.Errorf("%w\nrun '%s --help' for usage", err, c.CommandPath())
	})

	return cmd, a
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	cfg.Apply(config.Overrides{BinDir: a.binDir, CacheDir: a.cacheDir, FormulaDir: a.formulaDir})
	a.cfg = cfg

	if a.debug {
		cleanup, err := logger.Setup(logger.Config{Dir: cfg.CacheDir, Debug: true})
		if err != nil {
			return fmt.Errorf("failed to set up debug log: %w", err)
		}
		a.cleanup = cleanup
	}

	logger.L().Debug("config.loaded",
		"path", cfg.Path,
		"bin_dir", cfg.BinDir,
		"cache_dir", cfg.CacheDir,
		"formula_dir", cfg.FormulaDir,
	)

	a.registry = formula.NewRegistry(cfg.FormulaDir)
	return nil
}

func (a *app) close() error {
	if a.cleanup == nil {
		return nil
	}
	cleanup := a.cleanup
	a.cleanup = nil
	return cleanup()
}

func (a *app) installer(name string, out io.Writer, detector platform.Detector) (*installer.Installer, error) {
	f, err := a.registry.Lookup(name)
	if err != nil {
		return nil, err
	}

	if detector == nil {
		detector = a.detector
	}

	fetcher := artifact.NewFetcher(
		artifact.WithHTTPClient(a.client),
		artifact.WithProgress(a.cfg.Progress && !commons.IsCIEnv()),
		artifact.WithUserAgent("tap/"+a.version),
		artifact.WithFetchLog(out),
	)

	return installer.New(
		f,
		installer.WithBinDir(a.cfg.BinDir),
		installer.WithCacheDir(a.cfg.CacheDir),
		installer.WithDetector(detector),
		installer.WithFetcher(fetcher),
		installer.WithOutput(out),
		installer.WithLogger(logger.L()),
	)
}

// platformOverride builds a static detector from --os/--arch, nil when neither is set.
func platformOverride(ctx context.Context, goos, goarch string) (platform.Detector, error) {
	if goos == "" && goarch == "" {
		return nil, nil
	}

	if goos == "" || goarch == "" {
		detected, err := platform.NewDetector().Detect(ctx)
		if err != nil {
			return nil, err
		}
		if goos == "" {
			goos = detected.OS
		}
		if goarch == "" {
			goarch = detected.Arch
		}
	}

	info, err := platform.Parse(goos, goarch)
	if err != nil {
		return nil, err
	}

	return platform.Static(info), nil
}

func formulaArg(args []string) string {
	if len(args) == 0 {
		return formula.Default
	}
	return args[0]
}
