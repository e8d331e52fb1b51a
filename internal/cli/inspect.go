package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aexvir/tap/artifact"
	"github.com/aexvir/tap/formula"
	"github.com/aexvir/tap/platform"
)

func resolveCmd(a *app) *cobra.Command {
	var goos, goarch string

	c := &cobra.Command{
		Use:   "resolve [formula]",
		Short: "Print the archive url and sha256 selected for a platform",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.registry.Lookup(formulaArg(args))
			if err != nil {
				return err
			}

			detector, err := platformOverride(cmd.Context(), goos, goarch)
			if err != nil {
				return err
			}
			if detector == nil {
				detector = a.detector
			}
			if detector == nil {
				detector = platform.NewDetector()
			}

			info, err := detector.Detect(cmd.Context())
			if err != nil {
				return err
			}

			src, err := f.Resolve(info)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "formula\t%s %s\n", f.Name, f.Version)
			fmt.Fprintf(w, "platform\t%s\n", info)
			fmt.Fprintf(w, "url\t%s\n", src.URL)
			fmt.Fprintf(w, "sha256\t%s\n", src.SHA256)
			if src.Signature != "" {
				fmt.Fprintf(w, "signature\t%s\n", src.Signature)
			}
			return w.Flush()
		},
	}

	c.Flags().StringVar(&goos, "os", "", "operating system to resolve for (default: this host)")
	c.Flags().StringVar(&goarch, "arch", "", "architecture to resolve for (default: this host)")
	return c
}

func infoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info [formula]",
		Short: "Describe a formula",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			inst, err := a.installer(formulaArg(args), out, nil)
			if err != nil {
				return err
			}
			f := inst.Formula()

			status := "not installed"
			if inst.Installed() {
				status = "installed"
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "name\t%s\n", f.Name)
			fmt.Fprintf(w, "version\t%s\n", f.Version)
			if f.Desc != "" {
				fmt.Fprintf(w, "description\t%s\n", f.Desc)
			}
			if f.Homepage != "" {
				fmt.Fprintf(w, "homepage\t%s\n", f.Homepage)
			}
			if f.License != "" {
				fmt.Fprintf(w, "license\t%s\n", f.License)
			}
			if f.Bottle != "" {
				fmt.Fprintf(w, "bottle\t%s\n", f.Bottle)
			}
			fmt.Fprintf(w, "binary\t%s (%s)\n", inst.BinPath(), status)
			fmt.Fprintf(w, "test\t%s %s\n", f.Binary, strings.Join(f.TestArgs, " "))
			fmt.Fprintf(w, "platforms\t%s\n", strings.Join(f.Platforms(), ", "))
			return w.Flush()
		},
	}
}

func livecheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "livecheck [formula]",
		Short: "Compare the declared version with the latest upstream release",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.registry.Lookup(formulaArg(args))
			if err != nil {
				return err
			}

			result, err := formula.NewLivecheck(a.client).Check(cmd.Context(), f)
			if err != nil {
				return err
			}

			status := "up to date"
			if result.Outdated {
				status = "outdated"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s → %s (%s)\n", f.Name, result.Current, result.Latest, status)
			return nil
		},
	}
}

func sha256Cmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sha256 <file>...",
		Short: "Print the sha256 of local archives",
		Args:  cobra.MinimumNArgs(1),
		// no config needed
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				sum, err := artifact.SHA256File(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", sum, path)
			}
			return nil
		},
	}
}

func versionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:               "version",
		Short:             "Print the version of tap",
		Args:              cobra.NoArgs,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tap %s\n", version)
		},
	}
}
