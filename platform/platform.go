// Package platform detects and normalizes the (operating system, architecture)
// pair a formula source is selected by.
//
// Values are normalized to Go's naming ("darwin", "linux", "amd64", "arm64")
// regardless of whether they came from runtime, from uname style kernel
// reporting ("Darwin", "x86_64", "aarch64") or from user input. Values that are
// not recognized are kept lowercased as-is, so resolution against a formula
// fails as unsupported instead of guessing.
package platform

import (
	"fmt"
	"strings"
)

// Info contains platform detection information.
type Info struct {
	OS      string // "linux", "darwin", "windows"
	Arch    string // "amd64", "arm64" (normalized)
	ArchRaw string // as reported by the kernel or runtime, e.g. "x86_64"
	Distro  string // distro ID, linux only, best effort
	Version string // distro version, linux only, best effort
}

// String returns the os/arch pair, e.g. "linux/amd64".
func (i Info) String() string {
	return fmt.Sprintf("%s/%s", i.OS, i.Arch)
}

// IsLinux returns true if the platform is Linux.
func (i Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsIntel returns true if the architecture is 64 bit x86.
func (i Info) IsIntel() bool {
	return i.Arch == "amd64"
}

// Parse builds an [Info] from user supplied os and architecture names.
func Parse(os, arch string) (Info, error) {
	if strings.TrimSpace(os) == "" {
		return Info{}, fmt.Errorf("operating system must be set")
	}
	if strings.TrimSpace(arch) == "" {
		return Info{}, fmt.Errorf("architecture must be set")
	}

	return Info{
		OS:      NormalizeOS(os),
		Arch:    NormalizeArch(arch),
		ArchRaw: strings.TrimSpace(arch),
	}, nil
}
