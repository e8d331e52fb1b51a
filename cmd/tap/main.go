package main

import "github.com/aexvir/tap/internal/cli"

// set at build time with -ldflags "-X 'main.version=...'"
var version = "dev"

func main() {
	cli.Execute(version)
}
