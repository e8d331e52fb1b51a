package platform

import "strings"

var osAliases = map[string]string{
	"darwin": "darwin",
	"macos":  "darwin",
	"osx":    "darwin",
	"linux":  "linux",
	"win":    "windows",
	"win32":  "windows",
}

var archAliases = map[string]string{
	"amd64":   "amd64",
	"x86_64":  "amd64",
	"x64":     "amd64",
	"arm64":   "arm64",
	"aarch64": "arm64",
	"386":     "386",
	"i386":    "386",
	"i686":    "386",
	"x86":     "386",
	"arm":     "arm",
	"armv7l":  "arm",
	"armv6l":  "arm",
}

// upstream release asset naming, as produced by goreleaser's default title-cased uname
var releaseOS = map[string]string{
	"darwin":  "Darwin",
	"linux":   "Linux",
	"windows": "Windows",
}

var releaseArch = map[string]string{
	"amd64": "x86_64",
	"arm64": "arm64",
	"386":   "i386",
	"arm":   "armv7",
}

// NormalizeOS maps an operating system name to its GOOS spelling.
func NormalizeOS(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := osAliases[normalized]; ok {
		return canonical
	}
	return normalized
}

// NormalizeArch maps an architecture name to its GOARCH spelling.
func NormalizeArch(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := archAliases[normalized]; ok {
		return canonical
	}
	return normalized
}

// ReleaseOS returns the os name used in release asset file names, e.g. "Darwin".
func ReleaseOS(goos string) string {
	if name, ok := releaseOS[goos]; ok {
		return name
	}
	return goos
}

// ReleaseArch returns the architecture name used in release asset file names, e.g. "x86_64".
func ReleaseArch(goarch string) string {
	if name, ok := releaseArch[goarch]; ok {
		return name
	}
	return goarch
}
