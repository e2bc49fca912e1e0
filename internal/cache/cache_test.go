package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolchest-dev/toolchest/internal/installer"
)

func writeSourceTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	}
	return dir
}

func TestStoreAndFind(t *testing.T) {
	c := New(t.TempDir())
	id := installer.Identity{Name: "foo", Version: "1.2.0", Arch: "amd64"}

	src := writeSourceTree(t, map[string]string{
		"bin/foo": "#!/bin/sh\necho foo\n",
		"LICENSE": "Apache-2.0",
	})

	slot, err := c.Store(id, src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(c.Root(), "foo", "1.2.0", "amd64"), slot)

	found, ok, err := c.Find(id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, slot, found)

	data, err := os.ReadFile(filepath.Join(found, "bin", "foo"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "echo foo")
}

func TestFindMiss(t *testing.T) {
	c := New(t.TempDir())

	_, ok, err := c.Find(installer.Identity{Name: "absent", Version: "1.0.0", Arch: "amd64"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindIgnoresSlotWithoutMarker(t *testing.T) {
	c := New(t.TempDir())
	id := installer.Identity{Name: "foo", Version: "1.2.0", Arch: "amd64"}

	// Simulate a crash between content copy and marker write.
	slot := filepath.Join(c.Root(), "foo", "1.2.0", "amd64")
	require.NoError(t, os.MkdirAll(slot, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(slot, "foo"), []byte("partial"), 0o755))

	_, ok, err := c.Find(id)
	require.NoError(t, err)
	assert.False(t, ok, "slot without marker must be a miss")
}

func TestFindDifferentArchIsMiss(t *testing.T) {
	c := New(t.TempDir())
	src := writeSourceTree(t, map[string]string{"foo": "x"})

	_, err := c.Store(installer.Identity{Name: "foo", Version: "1.2.0", Arch: "amd64"}, src)
	require.NoError(t, err)

	_, ok, err := c.Find(installer.Identity{Name: "foo", Version: "1.2.0", Arch: "arm64"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreReplacesExistingSlot(t *testing.T) {
	c := New(t.TempDir())
	id := installer.Identity{Name: "foo", Version: "1.2.0", Arch: "amd64"}

	first := writeSourceTree(t, map[string]string{"old": "old contents"})
	_, err := c.Store(id, first)
	require.NoError(t, err)

	second := writeSourceTree(t, map[string]string{"new": "new contents"})
	slot, err := c.Store(id, second)
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(slot, "old"))
	assert.True(t, os.IsNotExist(statErr), "previous slot contents should be gone")

	data, err := os.ReadFile(filepath.Join(slot, "new"))
	require.NoError(t, err)
	assert.Equal(t, "new contents", string(data))
}

func TestStoreFilePreservesExecutableBit(t *testing.T) {
	c := New(t.TempDir())
	id := installer.Identity{Name: "jq", Version: "1.7.1", Arch: "amd64"}

	src := filepath.Join(t.TempDir(), "jq-linux-amd64")
	require.NoError(t, os.WriteFile(src, []byte("binary"), 0o755))

	slot, err := c.StoreFile(id, src, "jq")
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(slot, "jq"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o111)

	_, ok, err := c.Find(id)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreWritesMarkerMetadata(t *testing.T) {
	c := New(t.TempDir())
	id := installer.Identity{Name: "foo", Version: "1.2.0", Arch: "amd64"}

	src := writeSourceTree(t, map[string]string{"foo": "x"})
	_, err := c.Store(id, src)
	require.NoError(t, err)

	meta := c.readMarker(id)
	assert.Equal(t, "foo", meta.Name)
	assert.Equal(t, "1.2.0", meta.Version)
	assert.Equal(t, "amd64", meta.Arch)
	assert.False(t, meta.InstalledAt.IsZero())
}

func TestVersions(t *testing.T) {
	c := New(t.TempDir())
	src := writeSourceTree(t, map[string]string{"foo": "x"})

	for _, version := range []string{"1.10.0", "nightly", "1.2.0", "1.2.0-rc.1"} {
		_, err := c.Store(installer.Identity{Name: "foo", Version: version, Arch: "amd64"}, src)
		require.NoError(t, err)
	}

	// An incomplete slot must not be listed.
	require.NoError(t, os.MkdirAll(filepath.Join(c.Root(), "foo", "0.9.0", "amd64"), 0o755))

	versions, err := c.Versions("foo", "amd64")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.2.0-rc.1", "1.2.0", "1.10.0", "nightly"}, versions)
}

func TestVersionsSurfacesLookupErrors(t *testing.T) {
	c := New(t.TempDir())
	src := writeSourceTree(t, map[string]string{"foo": "x"})

	_, err := c.Store(installer.Identity{Name: "foo", Version: "1.0.0", Arch: "amd64"}, src)
	require.NoError(t, err)

	// A self-referential symlink where a slot should be makes stat fail
	// with something other than not-exist.
	broken := filepath.Join(c.Root(), "foo", "2.0.0", "amd64")
	require.NoError(t, os.MkdirAll(filepath.Dir(broken), 0o755))
	require.NoError(t, os.Symlink(broken, broken))

	_, err = c.Versions("foo", "amd64")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check version")
}

func TestVersionsUnknownTool(t *testing.T) {
	c := New(t.TempDir())
	versions, err := c.Versions("nope", "amd64")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestList(t *testing.T) {
	c := New(t.TempDir())
	src := writeSourceTree(t, map[string]string{"x": "x"})

	stored := []installer.Identity{
		{Name: "foo", Version: "1.2.0", Arch: "amd64"},
		{Name: "foo", Version: "1.2.0", Arch: "arm64"},
		{Name: "bar", Version: "0.3.0", Arch: "amd64"},
	}
	for _, id := range stored {
		_, err := c.Store(id, src)
		require.NoError(t, err)
	}

	entries, err := c.List()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	seen := map[installer.Identity]bool{}
	for _, entry := range entries {
		seen[entry.Identity] = true
		assert.DirExists(t, entry.Path)
		assert.Equal(t, entry.Identity.Name, entry.Metadata.Name)
	}
	for _, id := range stored {
		assert.True(t, seen[id], "missing entry for %s", id)
	}
}

func TestListEmptyCache(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "never-created"))
	entries, err := c.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
