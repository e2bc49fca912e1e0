package installer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityString(t *testing.T) {
	id := Identity{Name: "foo", Version: "1.2.0", Arch: "amd64"}
	assert.Equal(t, "foo@1.2.0 (amd64)", id.String())
}

func TestDecidePlacement(t *testing.T) {
	tests := []struct {
		name      string
		isolated  bool
		targetDir string
		wantFixed bool
		wantDir   string
	}{
		{
			name:      "default_is_cached",
			wantFixed: false,
		},
		{
			name:      "explicit_target_dir_wins",
			targetDir: "/srv/tools",
			wantFixed: true,
			wantDir:   "/srv/tools",
		},
		{
			name:      "isolated_uses_default_fixed_dir",
			isolated:  true,
			wantFixed: true,
			wantDir:   "/opt/toolchest",
		},
		{
			name:      "explicit_target_dir_overrides_isolated",
			isolated:  true,
			targetDir: "/srv/tools",
			wantFixed: true,
			wantDir:   "/srv/tools",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DecidePlacement(tt.isolated, tt.targetDir, "/opt/toolchest")
			assert.Equal(t, tt.wantFixed, p.IsFixed())
			assert.Equal(t, tt.wantDir, p.Dir())
		})
	}
}

func TestPlacementConstructors(t *testing.T) {
	cached := CachedInstall()
	assert.False(t, cached.IsFixed())
	assert.Empty(t, cached.Dir())

	fixed := FixedDirectoryInstall("/opt/tools")
	assert.True(t, fixed.IsFixed())
	assert.Equal(t, "/opt/tools", fixed.Dir())
}
