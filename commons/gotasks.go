package commons

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aexvir/tap"
)

// GoFmt runs gofmt and formats code in place.
func GoFmt() tap.Task {
	return func(ctx context.Context) error {
		return tap.Run(
			ctx,
			"gofmt",
			tap.WithArgs("-w", "-s", "."),
			tap.WithErrMsg("failed to format code"),
		)
	}
}

// GoVet runs go vet on every package.
func GoVet() tap.Task {
	return func(ctx context.Context) error {
		return tap.Run(ctx, "go", tap.WithArgs("vet", "./..."))
	}
}

// GoModTidy runs go mod tidy and errors if the go.mod or go.sum files have changed.
func GoModTidy() tap.Task {
	return func(ctx context.Context) error {
		gomod, _ := os.ReadFile("go.mod")
		gosum, _ := os.ReadFile("go.sum")

		err := tap.Run(ctx, "go", tap.WithArgs("mod", "tidy", "-v"))
		if err != nil {
			return err
		}

		newmod, _ := os.ReadFile("go.mod")
		newsum, _ := os.ReadFile("go.sum")

		if !bytes.Equal(gomod, newmod) || !bytes.Equal(gosum, newsum) {
			return errors.New("differences found; fixed go module")
		}

		return nil
	}
}

// GoTest runs go test recursively with the race detector.
// With a coverprofile, coverage is written to that file.
func GoTest(coverprofile string) tap.Task {
	return func(ctx context.Context) error {
		args := []string{"test", "-race", "-cover"}
		if coverprofile != "" {
			args = append(args, "-coverprofile", coverprofile)
		}
		args = append(args, "./...")

		return tap.Run(ctx, "go", tap.WithArgs(args...))
	}
}

// GoBuild builds a go binary, from the package specified as argument, outputting it on the relative path
// supplied as argument. ldflags are passed as -X assignments, e.g. "main.version=1.0.0".
func GoBuild(pkg, out string, ldflags ...string) tap.Task {
	return func(ctx context.Context) error {
		args := []string{"build", "-o", out}

		if len(ldflags) > 0 {
			flags := make([]string, 0, len(ldflags))
			for _, flag := range ldflags {
				flags = append(flags, fmt.Sprintf("-X '%s'", flag))
			}
			args = append(args, "-ldflags", strings.Join(flags, " "))
		}

		args = append(args, pkg)

		return tap.Run(ctx, "go", tap.WithArgs(args...))
	}
}
