// Package cache implements the shared on-disk tool cache. A cache slot is
// keyed by (name, version, architecture) and laid out as
//
//	<root>/<name>/<version>/<arch>/        the installed contents
//	<root>/<name>/<version>/<arch>.complete  completion marker (YAML metadata)
//
// The marker is written only after the slot's contents are fully in place,
// so a partially copied slot is never reported as a hit. The cache does no
// cross-process locking; two processes racing on the same identity is a
// documented gap of this design.
package cache

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/toolchest-dev/toolchest/internal/installer"
)

const markerSuffix = ".complete"

// Metadata is the completion-marker payload for one cache slot.
type Metadata struct {
	Name        string    `yaml:"name"`
	Version     string    `yaml:"version"`
	Arch        string    `yaml:"arch"`
	InstalledAt time.Time `yaml:"installed_at"`
}

// Entry describes one complete cache slot, for listing.
type Entry struct {
	Identity installer.Identity
	Path     string
	Metadata Metadata
}

// Cache is the on-disk implementation of the engine's tool cache.
type Cache struct {
	root string
}

// New creates a cache rooted at root. The directory is created lazily on the
// first store.
func New(root string) *Cache {
	return &Cache{root: root}
}

// Root returns the cache root directory.
func (c *Cache) Root() string {
	return c.root
}

func (c *Cache) slotDir(id installer.Identity) string {
	return filepath.Join(c.root, id.Name, id.Version, id.Arch)
}

func (c *Cache) markerPath(id installer.Identity) string {
	return c.slotDir(id) + markerSuffix
}

// Find reports the path of a previously stored slot for id. A miss is
// (_, false, nil): it is an expected outcome, not an error. Slots without a
// completion marker are treated as misses.
func (c *Cache) Find(id installer.Identity) (string, bool, error) {
	slot := c.slotDir(id)

	info, err := os.Stat(slot)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("stat cache slot: %w", err)
	}
	if !info.IsDir() {
		return "", false, nil
	}

	if _, err := os.Stat(c.markerPath(id)); err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("stat cache marker: %w", err)
	}

	return slot, true, nil
}

// Store copies the contents of sourceDir into the slot for id and marks it
// complete. Any previous slot contents are replaced. Returns the slot path.
func (c *Cache) Store(id installer.Identity, sourceDir string) (string, error) {
	slot := c.slotDir(id)

	if err := c.resetSlot(id); err != nil {
		return "", err
	}
	if err := copyTree(sourceDir, slot); err != nil {
		return "", fmt.Errorf("copy into cache slot: %w", err)
	}
	if err := c.writeMarker(id); err != nil {
		return "", err
	}
	return slot, nil
}

// StoreFile copies a single file into the slot for id under name, preserving
// its executable bit, and marks the slot complete. Returns the slot path.
func (c *Cache) StoreFile(id installer.Identity, sourceFile, name string) (string, error) {
	slot := c.slotDir(id)

	if err := c.resetSlot(id); err != nil {
		return "", err
	}
	if err := os.MkdirAll(slot, 0o755); err != nil {
		return "", fmt.Errorf("create cache slot: %w", err)
	}
	if err := copyFile(sourceFile, filepath.Join(slot, name)); err != nil {
		return "", fmt.Errorf("copy into cache slot: %w", err)
	}
	if err := c.writeMarker(id); err != nil {
		return "", err
	}
	return slot, nil
}

// resetSlot removes any existing contents and marker for id. The marker goes
// first so a crash mid-reset cannot leave a marked, half-removed slot.
func (c *Cache) resetSlot(id installer.Identity) error {
	if err := os.Remove(c.markerPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cache marker: %w", err)
	}
	if err := os.RemoveAll(c.slotDir(id)); err != nil {
		return fmt.Errorf("remove cache slot: %w", err)
	}
	return nil
}

func (c *Cache) writeMarker(id installer.Identity) error {
	meta := Metadata{
		Name:        id.Name,
		Version:     id.Version,
		Arch:        id.Arch,
		InstalledAt: time.Now().UTC(),
	}

	data, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("marshal cache metadata: %w", err)
	}

	// Write-then-rename so the marker appears atomically.
	marker := c.markerPath(id)
	tmp := marker + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache marker: %w", err)
	}
	if err := os.Rename(tmp, marker); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename cache marker: %w", err)
	}
	return nil
}

// Versions returns the complete cached versions of a tool for one
// architecture, semver versions first in ascending order, non-semver
// versions after them lexically.
func (c *Cache) Versions(name, arch string) ([]string, error) {
	toolDir := filepath.Join(c.root, name)

	entries, err := os.ReadDir(toolDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read tool dir: %w", err)
	}

	var versions []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := installer.Identity{Name: name, Version: entry.Name(), Arch: arch}
		_, ok, err := c.Find(id)
		if err != nil {
			return nil, fmt.Errorf("check version %s: %w", entry.Name(), err)
		}
		if ok {
			versions = append(versions, entry.Name())
		}
	}

	sortVersions(versions)
	return versions, nil
}

// List enumerates every complete cache slot.
func (c *Cache) List() ([]Entry, error) {
	tools, err := os.ReadDir(c.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache root: %w", err)
	}

	var out []Entry
	for _, tool := range tools {
		if !tool.IsDir() {
			continue
		}
		versions, err := os.ReadDir(filepath.Join(c.root, tool.Name()))
		if err != nil {
			continue
		}
		for _, version := range versions {
			if !version.IsDir() {
				continue
			}
			archDir := filepath.Join(c.root, tool.Name(), version.Name())
			arches, err := os.ReadDir(archDir)
			if err != nil {
				continue
			}
			for _, arch := range arches {
				if !arch.IsDir() {
					continue
				}
				id := installer.Identity{Name: tool.Name(), Version: version.Name(), Arch: arch.Name()}
				path, ok, err := c.Find(id)
				if err != nil || !ok {
					continue
				}
				out = append(out, Entry{
					Identity: id,
					Path:     path,
					Metadata: c.readMarker(id),
				})
			}
		}
	}

	return out, nil
}

func (c *Cache) readMarker(id installer.Identity) Metadata {
	var meta Metadata
	data, err := os.ReadFile(c.markerPath(id))
	if err != nil {
		return meta
	}
	_ = yaml.Unmarshal(data, &meta)
	return meta
}

// sortVersions orders semver versions ascending, then everything else
// lexically.
func sortVersions(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		vi, erri := semver.NewVersion(versions[i])
		vj, errj := semver.NewVersion(versions[j])
		switch {
		case erri == nil && errj == nil:
			return vi.LessThan(vj)
		case erri == nil:
			return true
		case errj == nil:
			return false
		default:
			return versions[i] < versions[j]
		}
	})
}

// copyTree copies a directory tree, preserving file modes and symlinks.
// Unlike the installer's fixed-directory copy it never overwrites an
// existing symlink: resetSlot empties the slot before Store copies into
// it, so no target can pre-exist.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case info.IsDir():
			return os.MkdirAll(target, 0o755)
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case info.Mode().IsRegular():
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := copyFile(path, target); err != nil {
				return err
			}
			return os.Chmod(target, info.Mode().Perm())
		default:
			return nil
		}
	})
}

func copyFile(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !srcInfo.Mode().IsRegular() {
		return errors.New("source is not a regular file")
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
