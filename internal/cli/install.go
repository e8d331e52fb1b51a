package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aexvir/tap"
	"github.com/aexvir/tap/commons"
	"github.com/aexvir/tap/installer"
)

func installCmd(a *app) *cobra.Command {
	var force bool

	c := &cobra.Command{
		Use:   "install [formula...]",
		Short: "Fetch, verify, install and test formulas",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{formulaArg(nil)}
			}

			out := cmd.OutOrStdout()
			installers := make([]*installer.Installer, 0, len(args))
			for _, name := range args {
				inst, err := a.installer(name, out, nil)
				if err != nil {
					return err
				}
				installers = append(installers, inst)
			}

			if len(installers) == 1 {
				return installers[0].Install(cmd.Context(), force)
			}

			return commons.ProvisionTo(out, force, installers...)(cmd.Context())
		},
	}

	c.Flags().BoolVarP(&force, "force", "f", false, "reinstall even if the expected version is installed")
	return c
}

func testCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "test [formula]",
		Short: "Smoke test an installed formula",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			inst, err := a.installer(formulaArg(args), out, nil)
			if err != nil {
				return err
			}

			if !inst.Installed() {
				return tap.Fail("cli.test", tap.KindFilesystem, inst.BinPath(), fmt.Errorf("%s is not installed", inst.Name()))
			}

			return tap.New(tap.WithOutput(out)).Execute(
				cmd.Context(),
				tap.Named(fmt.Sprintf("testing %s", inst.Name()), inst.Test),
			)
		},
	}
}

func fetchCmd(a *app) *cobra.Command {
	var goos, goarch string

	c := &cobra.Command{
		Use:   "fetch [formula]",
		Short: "Download and verify the archive of a formula without installing it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detector, err := platformOverride(cmd.Context(), goos, goarch)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			inst, err := a.installer(formulaArg(args), out, detector)
			if err != nil {
				return err
			}

			archive, err := inst.Fetch(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "%s\n", archive)
			return nil
		},
	}

	c.Flags().StringVar(&goos, "os", "", "fetch for another operating system")
	c.Flags().StringVar(&goarch, "arch", "", "fetch for another architecture")
	return c
}

func uninstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall [formula]",
		Short: "Remove an installed formula binary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := a.installer(formulaArg(args), cmd.OutOrStdout(), nil)
			if err != nil {
				return err
			}
			return inst.Uninstall()
		},
	}
}
