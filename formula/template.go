package formula

import (
	"strings"
	"text/template"
)

// Template contains the fields url formats are resolved with.
// e.g. "https://github.com/apigee/apigeecli/releases/download/v{{.Version}}/apigeecli_v{{.Version}}_{{.ReleaseOS}}_{{.ReleaseArch}}.zip"
type Template struct {
	// Name of the formula
	Name string
	// Binary is the executable name inside the archive
	Binary string
	// Version without the leading "v"
	Version string
	// OS is the normalized operating system, e.g. "darwin"
	OS string
	// Arch is the normalized architecture, e.g. "amd64"
	Arch string
	// ReleaseOS is the os as spelled in release asset names, e.g. "Darwin"
	ReleaseOS string
	// ReleaseArch is the architecture as spelled in release asset names, e.g. "x86_64"
	ReleaseArch string
}

// Resolve executes the provided format string as a template with the Template's fields.
func (t Template) Resolve(format string) (string, error) {
	tmpl, err := template.New("url").Option("missingkey=error").Parse(format)
	if err != nil {
		return "", err
	}

	var bld strings.Builder
	if err := tmpl.Execute(&bld, t); err != nil {
		return "", err
	}

	return bld.String(), nil
}
