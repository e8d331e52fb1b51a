package platform

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (Info, error)
}

// HostDetector implements [Detector] by inspecting the running host.
type HostDetector struct {
	goos       func() string
	goarch     func() string
	kernelArch func(ctx context.Context) (string, error)
	distro     func(ctx context.Context) (string, string, string, error)
}

// NewDetector creates a detector for the running host.
func NewDetector() *HostDetector {
	return &HostDetector{
		goos:       func() string { return runtime.GOOS },
		goarch:     func() string { return runtime.GOARCH },
		kernelArch: func(_ context.Context) (string, error) { return host.KernelArch() },
		distro:     host.PlatformInformationWithContext,
	}
}

// Detect performs platform detection.
//
// The operating system always comes from runtime.GOOS. The architecture prefers the
// kernel's report from gopsutil, so a binary built for one architecture still resolves
// artifacts for the machine it runs on; runtime.GOARCH is the fallback.
// Linux distribution details are informational and their detection failing is not an error.
func (d *HostDetector) Detect(ctx context.Context) (Info, error) {
	info := Info{
		OS:      NormalizeOS(d.goos()),
		ArchRaw: d.goarch(),
	}

	if raw, err := d.kernelArch(ctx); err == nil && strings.TrimSpace(raw) != "" {
		info.ArchRaw = strings.TrimSpace(raw)
	} else if ctx.Err() != nil {
		return Info{}, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
	}
	info.Arch = NormalizeArch(info.ArchRaw)

	if info.IsLinux() {
		distro, _, version, err := d.distro(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Info{}, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
			}
			return info, nil
		}
		info.Distro = strings.ToLower(strings.TrimSpace(distro))
		info.Version = strings.TrimSpace(version)
	}

	return info, nil
}

// Static is a [Detector] that always returns the same info; used for --os/--arch overrides.
type Static Info

func (s Static) Detect(_ context.Context) (Info, error) {
	return Info(s), nil
}
