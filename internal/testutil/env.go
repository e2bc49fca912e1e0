// Package testutil provides helpers for testing toolchest in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Env holds the isolated directories created for one test.
type Env struct {
	CacheDir    string
	InstallDir  string
	ScratchDir  string
	KeyringDir  string
	ManifestDir string
}

// SetupTestEnv creates isolated directories for a test and points every
// TOOLCHEST_* environment variable at them, so tests never touch the user's
// real cache or installation directories. Cleanup is handled by t.TempDir().
func SetupTestEnv(t *testing.T) Env {
	t.Helper()

	tmpDir := t.TempDir()
	env := Env{
		CacheDir:    filepath.Join(tmpDir, "cache"),
		InstallDir:  filepath.Join(tmpDir, "install"),
		ScratchDir:  filepath.Join(tmpDir, "scratch"),
		KeyringDir:  filepath.Join(tmpDir, "keyrings"),
		ManifestDir: filepath.Join(tmpDir, "manifest"),
	}

	t.Setenv("TOOLCHEST_CACHE_DIR", env.CacheDir)
	t.Setenv("TOOLCHEST_INSTALL_DIR", env.InstallDir)
	t.Setenv("TOOLCHEST_SCRATCH_DIR", env.ScratchDir)
	t.Setenv("TOOLCHEST_ISOLATED", "")
	t.Setenv("TOOLCHEST_GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")

	for _, dir := range []string{env.CacheDir, env.InstallDir, env.ScratchDir, env.KeyringDir, env.ManifestDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	return env
}
