// Package release turns manifest entries into concrete download URLs. It
// renders asset URL templates against the tool's name, version, and the host
// platform, and resolves private GitHub release assets through the GitHub
// API when a credential is supplied.
package release

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/toolchest-dev/toolchest/internal/platform"
)

// TemplateData is the variable set available to asset URL templates.
type TemplateData struct {
	// Name is the tool name.
	Name string
	// Version is the release version including any "v" prefix.
	Version string
	// SemVer is the version with the "v" prefix stripped.
	SemVer string
	// OS and Arch describe the host platform.
	OS   string
	Arch string
}

// NewTemplateData builds template data for one tool on one platform. The
// version is used verbatim as Version and stripped of a leading "v" for
// SemVer, so templates work for both tagging conventions.
func NewTemplateData(name, version string, info *platform.Info) TemplateData {
	return TemplateData{
		Name:    name,
		Version: version,
		SemVer:  strings.TrimPrefix(version, "v"),
		OS:      info.OS,
		Arch:    info.Arch,
	}
}

// templateFuncs are the helpers available inside URL templates.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"trimV": func(s string) string {
			return strings.TrimPrefix(s, "v")
		},
		"trimPrefix": func(pfx, s string) string {
			return strings.TrimPrefix(s, pfx)
		},
		"trimSuffix": func(suffix, s string) string {
			return strings.TrimSuffix(s, suffix)
		},
		"replace": func(old, new, s string) string {
			return strings.ReplaceAll(s, old, new)
		},
	}
}

// RenderURL executes a URL template against data. An empty render is an
// error: it always means a template referenced a variable that does not
// apply to this platform.
func RenderURL(urlTemplate string, data TemplateData) (string, error) {
	tmpl, err := template.New("asset-url").Funcs(templateFuncs()).Parse(urlTemplate)
	if err != nil {
		return "", fmt.Errorf("parse URL template: %w", err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render URL template: %w", err)
	}

	url := strings.TrimSpace(sb.String())
	if url == "" {
		return "", fmt.Errorf("URL template %q rendered empty", urlTemplate)
	}
	return url, nil
}
