//go:build mage

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aexvir/tap"
	"github.com/aexvir/tap/commons"
	"github.com/aexvir/tap/formula"
	"github.com/aexvir/tap/installer"
)

var p = tap.New(
	tap.WithPreExecFunc(
		func(ctx context.Context) error { // ensure go mod download is run before any task
			return tap.Run(ctx, "go", tap.WithArgs("mod", "download"), tap.WithoutNoise())
		},
	),
)

// format codebase using gofmt
func Format(ctx context.Context) error {
	return p.Execute(ctx, tap.Named("gofmt", commons.GoFmt()))
}

// lint the code using go mod tidy and go vet
func Lint(ctx context.Context) error {
	return p.Execute(
		ctx,
		tap.Named("go mod tidy", commons.GoModTidy()),
		tap.Named("go vet", commons.GoVet()),
	)
}

// run unit tests
func Test(ctx context.Context) error {
	coverprofile := ""
	if commons.IsCIEnv() {
		coverprofile = "coverage.out"
	}

	return p.Execute(ctx, tap.Named("go test", commons.GoTest(coverprofile)))
}

// build the tap binary into ./bin
func Build(ctx context.Context) error {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}

	return p.Execute(
		ctx,
		tap.Named(
			"go build",
			commons.GoBuild("./cmd/tap", filepath.Join("bin", "tap"), fmt.Sprintf("main.version=%s", version)),
		),
	)
}

// install every embedded formula into ./bin, useful to try the formulas out
func Provision(ctx context.Context) error {
	registry := formula.NewRegistry()

	names, err := registry.Names()
	if err != nil {
		return err
	}

	installers := make([]*installer.Installer, 0, len(names))
	for _, name := range names {
		f, err := registry.Lookup(name)
		if err != nil {
			return err
		}

		inst, err := installer.New(f, installer.WithCacheDir(filepath.Join("bin", ".cache")))
		if err != nil {
			return err
		}
		installers = append(installers, inst)
	}

	return p.Execute(ctx, tap.Named("provision", commons.Provision(false, installers...)))
}
