// Package installer implements the acquisition engine: given a tool identity
// and an archive spec it downloads the release asset (optionally through an
// authenticated asset resolver), extracts it when needed, and places the
// result either in the shared tool cache or in a caller-supplied fixed
// directory. Every temporary resource created during one acquisition is
// removed before the call returns, on success and on failure.
package installer

import (
	"context"
	"net/http"
)

// Kind identifies the archive format of a release asset. KindNone means the
// source URL points directly at an executable, not an archive.
type Kind string

const (
	KindNone  Kind = ""
	KindTarGz Kind = "tar.gz"
	KindZip   Kind = "zip"
	Kind7z    Kind = "7z"
	KindXar   Kind = "xar"
)

// ParseKind maps a manifest kind string to a Kind. "none" and the empty
// string both select the raw-binary path.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "", "none", "raw":
		return KindNone, true
	case "tar.gz", "tgz":
		return KindTarGz, true
	case "zip":
		return KindZip, true
	case "7z":
		return Kind7z, true
	case "xar", "pkg":
		return KindXar, true
	default:
		return KindNone, false
	}
}

// Identity uniquely identifies one cache slot: a tool name at an exact
// version for one architecture. Immutable once constructed.
type Identity struct {
	Name    string
	Version string
	Arch    string
}

func (id Identity) String() string {
	return id.Name + "@" + id.Version + " (" + id.Arch + ")"
}

// ArchiveSpec describes where a release asset lives and how to unpack it.
type ArchiveSpec struct {
	// URL is the fully rendered download URL.
	URL string
	// Subdirectory within the extracted archive holding the release
	// contents. Empty means the extraction root.
	Subdirectory string
	// Kind selects the extractor; KindNone means raw binary.
	Kind Kind
	// SignatureURL optionally points at a detached GPG signature for the
	// asset. When set and the engine has a verifier, the asset is verified
	// before placement.
	SignatureURL string
	// BinaryName overrides the installed file name for raw-binary specs
	// (".exe" suffix on Windows). Empty means the tool name.
	BinaryName string
}

// Placement is the per-run decision of where acquired content is written.
// CachedInstall registers results in the shared cache; FixedDirectoryInstall
// writes into a fixed directory and bypasses the cache entirely.
type Placement struct {
	fixed bool
	dir   string
}

// CachedInstall places results in the shared tool cache.
func CachedInstall() Placement {
	return Placement{}
}

// FixedDirectoryInstall places results directly into dir, creating it if
// absent. Repeat installs overwrite: last writer wins.
func FixedDirectoryInstall(dir string) Placement {
	return Placement{fixed: true, dir: dir}
}

// IsFixed reports whether this placement bypasses the shared cache.
func (p Placement) IsFixed() bool {
	return p.fixed
}

// Dir returns the fixed target directory; empty for cached installs.
func (p Placement) Dir() string {
	return p.dir
}

// DecidePlacement computes the placement mode once per run from the
// environment signal. Isolated environments (containers, self-hosted runners
// with mismatched file ownership) cannot safely share the cache, so they get
// a fixed-directory install; an explicit target directory forces the same.
func DecidePlacement(isolated bool, targetDir, defaultFixedDir string) Placement {
	if targetDir != "" {
		return FixedDirectoryInstall(targetDir)
	}
	if isolated {
		return FixedDirectoryInstall(defaultFixedDir)
	}
	return CachedInstall()
}

// ResolvedAsset is the outcome of private asset resolution: a concrete
// download URL plus any headers the download must carry.
type ResolvedAsset struct {
	URL    string
	Header http.Header
}

// AssetResolver converts a templated, possibly access-restricted source URL
// into a downloadable URL plus auth headers. Implemented by the release
// package; faked in tests.
type AssetResolver interface {
	Resolve(ctx context.Context, sourceURL, credential string) (ResolvedAsset, error)
}

// Verifier checks a downloaded artifact against a detached signature.
// Implemented by the verify package.
type Verifier interface {
	VerifyDetached(artifactPath, signaturePath string) error
}
