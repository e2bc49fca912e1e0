package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// HostDetector implements Detector against the real host.
type HostDetector struct{}

// NewDetector creates a platform detector for the current host.
func NewDetector() Detector {
	return &HostDetector{}
}

// Detect returns platform information for the current host. OS and
// architecture come from the runtime; Linux distribution details come from
// gopsutil. If distro detection fails the Info still carries OS and arch,
// since most tool manifests never branch on the distribution.
func (d *HostDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:      runtime.GOOS,
		ArchRaw: runtime.GOARCH,
	}

	arch, err := NormalizeArch(runtime.GOARCH)
	if err != nil {
		return nil, fmt.Errorf("platform detection failed: %w", err)
	}
	info.Arch = arch

	if runtime.GOOS != "linux" {
		return info, nil
	}

	distro, family, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		// Graceful fallback: OS and arch are enough for most manifests.
		return info, nil
	}

	info.Platform = normalizeDistro(distro)
	info.Family = mapFamily(family, info.Platform)
	info.Version = normalizeDistro(version)

	return info, nil
}
