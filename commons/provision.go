package commons

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/aexvir/tap"
	"github.com/aexvir/tap/installer"
)

// Provision a list of formulas.
// Generates a task where [installer.Installer.Install] is called on each installer in order,
// collecting and returning any errors encountered. A failing formula doesn't stop the
// remaining ones; each install is still terminal on its own first failure.
func Provision(force bool, installers ...*installer.Installer) tap.Task {
	return ProvisionTo(color.Output, force, installers...)
}

// ProvisionTo is [Provision] with its summary written to w.
func ProvisionTo(w io.Writer, force bool, installers ...*installer.Installer) tap.Task {
	return func(ctx context.Context) (err error) {
		var errs []error
		start := time.Now()
		defer func() {
			elapsed := time.Since(start).Round(time.Millisecond)
			if err != nil {
				color.New(color.FgRed).Fprintf(w, " ✘ %s\n\n", elapsed)
				return
			}
			color.New(color.FgGreen).Fprintf(w, " ✔ %s\n\n", elapsed)
		}()

		names := make([]string, 0, len(installers))
		for _, inst := range installers {
			names = append(names, inst.Name())
		}
		tap.LogStep(w, fmt.Sprintf("provisioning %d formulas: %s", len(installers), strings.Join(names, ", ")))

		for _, inst := range installers {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := inst.Install(ctx, force); err != nil {
				errs = append(errs, fmt.Errorf("failed to provision %s: %w", inst.Name(), err))
			}
		}

		if len(errs) > 0 {
			for _, e := range errs {
				color.New(color.FgRed).Fprintf(w, " • %s\n", e)
			}
			if len(errs) == 1 {
				return errs[0]
			}
			return fmt.Errorf("provisioning failed for %d formulas: %w", len(errs), errs[0])
		}

		return nil
	}
}
