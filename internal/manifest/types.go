// Package manifest loads the declarative Lua tool manifest. A manifest is a
// sandboxed Lua file that sets a global `toolchest` table describing where
// each tool's release assets live:
//
//	toolchest = {
//	    tools = {
//	        jq = {
//	            url = "https://github.com/jqlang/jq/releases/download/jq-{{.SemVer}}/jq-linux-{{.Arch}}",
//	            kind = "none",
//	        },
//	        ripgrep = {
//	            url = "https://github.com/BurntSushi/ripgrep/releases/download/{{.SemVer}}/ripgrep-{{.SemVer}}-x86_64-unknown-linux-musl.tar.gz",
//	            subdir = "ripgrep-{{.SemVer}}-x86_64-unknown-linux-musl",
//	        },
//	    },
//	}
//
// The read-only `platform` global is injected before the manifest runs, so
// entries can branch per OS, architecture, or libc.
package manifest

import (
	"fmt"
	"strings"

	"github.com/toolchest-dev/toolchest/internal/installer"
	"github.com/toolchest-dev/toolchest/internal/platform"
	"github.com/toolchest-dev/toolchest/internal/release"
)

// Tool is one manifest entry.
type Tool struct {
	// Name is the tool name (the manifest table key).
	Name string
	// URL is the asset URL template.
	URL string
	// Subdir is an optional subdirectory template within the archive
	// holding the release contents.
	Subdir string
	// Kind is the declared archive kind; empty means "infer from the URL".
	Kind string
	// Signature is an optional URL template for a detached GPG signature.
	Signature string
}

// Manifest is a parsed tool manifest.
type Manifest struct {
	Tools map[string]Tool
}

// Lookup returns the entry for name.
func (m *Manifest) Lookup(name string) (Tool, bool) {
	t, ok := m.Tools[name]
	return t, ok
}

// Validate checks structural requirements of the manifest.
func (m *Manifest) Validate() error {
	for name, tool := range m.Tools {
		if strings.TrimSpace(tool.URL) == "" {
			return fmt.Errorf("tool %q: url is required", name)
		}
		if tool.Kind != "" {
			if _, ok := installer.ParseKind(tool.Kind); !ok {
				return fmt.Errorf("tool %q: unknown kind %q", name, tool.Kind)
			}
		}
	}
	return nil
}

// Resolve renders the entry's templates for one version and platform,
// producing the archive spec the acquisition engine consumes. The archive
// kind is the declared one when present, otherwise inferred from the
// rendered URL's suffix (falling back to a raw binary).
func (t Tool) Resolve(version string, info *platform.Info) (installer.ArchiveSpec, error) {
	data := release.NewTemplateData(t.Name, version, info)

	url, err := release.RenderURL(t.URL, data)
	if err != nil {
		return installer.ArchiveSpec{}, fmt.Errorf("tool %q: %w", t.Name, err)
	}

	spec := installer.ArchiveSpec{URL: url}

	if t.Kind != "" {
		kind, ok := installer.ParseKind(t.Kind)
		if !ok {
			return installer.ArchiveSpec{}, fmt.Errorf("tool %q: unknown kind %q", t.Name, t.Kind)
		}
		spec.Kind = kind
	} else {
		spec.Kind = inferKind(url)
	}

	if spec.Kind == installer.KindNone {
		spec.BinaryName = info.ExecutableName(t.Name)
	}

	if t.Subdir != "" {
		subdir, err := release.RenderURL(t.Subdir, data)
		if err != nil {
			return installer.ArchiveSpec{}, fmt.Errorf("tool %q subdir: %w", t.Name, err)
		}
		spec.Subdirectory = subdir
	}

	if t.Signature != "" {
		sig, err := release.RenderURL(t.Signature, data)
		if err != nil {
			return installer.ArchiveSpec{}, fmt.Errorf("tool %q signature: %w", t.Name, err)
		}
		spec.SignatureURL = sig
	}

	return spec, nil
}

// inferKind guesses the archive kind from a URL suffix. Unknown suffixes are
// treated as raw binaries.
func inferKind(url string) installer.Kind {
	switch {
	case strings.HasSuffix(url, ".tar.gz"), strings.HasSuffix(url, ".tgz"):
		return installer.KindTarGz
	case strings.HasSuffix(url, ".zip"):
		return installer.KindZip
	case strings.HasSuffix(url, ".7z"):
		return installer.Kind7z
	case strings.HasSuffix(url, ".xar"), strings.HasSuffix(url, ".pkg"):
		return installer.KindXar
	default:
		return installer.KindNone
	}
}
