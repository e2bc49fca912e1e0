package release

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolchest-dev/toolchest/internal/platform"
)

func linuxAmd64() *platform.Info {
	return &platform.Info{OS: "linux", Arch: "amd64"}
}

func TestNewTemplateData(t *testing.T) {
	data := NewTemplateData("foo", "v1.2.0", linuxAmd64())
	assert.Equal(t, "foo", data.Name)
	assert.Equal(t, "v1.2.0", data.Version)
	assert.Equal(t, "1.2.0", data.SemVer)
	assert.Equal(t, "linux", data.OS)
	assert.Equal(t, "amd64", data.Arch)

	noPrefix := NewTemplateData("foo", "1.2.0", linuxAmd64())
	assert.Equal(t, "1.2.0", noPrefix.Version)
	assert.Equal(t, "1.2.0", noPrefix.SemVer)
}

func TestRenderURL(t *testing.T) {
	data := NewTemplateData("foo", "v1.2.0", linuxAmd64())

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			name:     "plain_variables",
			template: "https://example.com/{{.Name}}/{{.Version}}/{{.Name}}-{{.OS}}-{{.Arch}}.tar.gz",
			want:     "https://example.com/foo/v1.2.0/foo-linux-amd64.tar.gz",
		},
		{
			name:     "semver_strips_prefix",
			template: "https://example.com/{{.Name}}-{{.SemVer}}.tar.gz",
			want:     "https://example.com/foo-1.2.0.tar.gz",
		},
		{
			name:     "trimV_helper",
			template: "https://example.com/{{trimV .Version}}.zip",
			want:     "https://example.com/1.2.0.zip",
		},
		{
			name:     "trimPrefix_helper",
			template: `{{trimPrefix "v" .Version}}`,
			want:     "1.2.0",
		},
		{
			name:     "trimSuffix_helper",
			template: `{{trimSuffix ".0" .SemVer}}`,
			want:     "1.2",
		},
		{
			name:     "replace_helper",
			template: `{{replace "." "_" .SemVer}}`,
			want:     "1_2_0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderURL(tt.template, data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderURLErrors(t *testing.T) {
	data := NewTemplateData("foo", "1.2.0", linuxAmd64())

	t.Run("malformed_template", func(t *testing.T) {
		_, err := RenderURL("https://example.com/{{.Name", data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse URL template")
	})

	t.Run("unknown_function", func(t *testing.T) {
		_, err := RenderURL("{{bogus .Name}}", data)
		require.Error(t, err)
	})

	t.Run("empty_render", func(t *testing.T) {
		_, err := RenderURL(`{{trimPrefix "1.2.0" .SemVer}}`, data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rendered empty")
	})
}
