// Package platform detects the OS, architecture, and Linux distribution of
// the host so that tool manifests can select the right release asset (for
// example musl builds on Alpine, aarch64 archives on arm64).
//
// Detection uses runtime.GOOS/GOARCH plus gopsutil for Linux distribution
// details, and degrades gracefully to OS/arch only when distro detection
// fails. The detected Info is also exposed to Lua manifests as a read-only
// `platform` table.
package platform

import "context"

// Linux distribution family constants, used to group related distributions.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Info contains detected host platform information.
type Info struct {
	OS       string // "linux", "darwin", "windows"
	Arch     string // "amd64", "arm64" (normalized)
	ArchRaw  string // original GOARCH value
	Platform string // distro ID (Linux only, e.g. "ubuntu", "alpine")
	Family   string // canonical family (e.g. "debian", "rhel")
	Version  string // distro version (Linux only, e.g. "22.04")
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// IsMusl returns true when the host likely links against musl libc.
// Manifests use this to pick musl release assets.
func (i *Info) IsMusl() bool {
	return i.OS == "linux" && i.Family == FamilyAlpine
}

// ExecutableName appends ".exe" on Windows.
func (i *Info) ExecutableName(name string) string {
	if i.IsWindows() {
		return name + ".exe"
	}
	return name
}

// Key returns the "os-arch" pair identifying this platform, e.g. "linux-amd64".
func (i *Info) Key() string {
	return i.OS + "-" + i.Arch
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// Static returns a Detector that always reports the given Info. Used in tests
// and when the caller has already resolved the platform.
func Static(info *Info) Detector {
	return staticDetector{info: info}
}

type staticDetector struct {
	info *Info
}

func (s staticDetector) Detect(ctx context.Context) (*Info, error) {
	return s.info, nil
}
