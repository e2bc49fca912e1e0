package installer

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/gabriel-vasile/mimetype"
)

// ExtractFunc unpacks an archive into destDir.
type ExtractFunc func(ctx context.Context, archivePath, destDir string) error

// SelectExtractor maps an archive kind to its extraction operation. It is
// total over the four supported kinds; ok is false only for an unknown kind.
// KindNone never reaches this function: the engine branches into the
// raw-binary path before any extractor is selected.
func SelectExtractor(kind Kind) (ExtractFunc, bool) {
	switch kind {
	case KindTarGz:
		return ExtractTarGz, true
	case KindZip:
		return ExtractZip, true
	case Kind7z:
		return Extract7z, true
	case KindXar:
		return ExtractXar, true
	default:
		return nil, false
	}
}

// checkMagic validates the archive's leading bytes against the MIME types
// expected for its declared kind. Catches truncated downloads and mislabeled
// assets before the real extractor produces a confusing mid-stream error.
func checkMagic(archivePath string, want ...string) error {
	mime, err := mimetype.DetectFile(archivePath)
	if err != nil {
		return fmt.Errorf("detect file type: %w", err)
	}
	for _, w := range want {
		if mime.Is(w) {
			return nil
		}
	}
	return fmt.Errorf("unexpected content type %s for %s", mime.String(), filepath.Base(archivePath))
}

// ExtractTarGz extracts a gzip-compressed tarball into destDir.
func ExtractTarGz(ctx context.Context, archivePath, destDir string) error {
	if err := checkMagic(archivePath, "application/gzip", "application/x-gzip"); err != nil {
		return err
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	tarReader := tar.NewReader(gzipReader)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target, err := safeJoin(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case tar.TypeReg:
			if err := writeEntry(target, tarReader, os.FileMode(header.Mode)); err != nil {
				return err
			}

		case tar.TypeSymlink:
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("create symlink %s: %w", target, err)
			}

		default:
			// Skip device nodes and other special entries.
			continue
		}
	}

	return nil
}

// ExtractZip extracts a zip archive into destDir.
func ExtractZip(ctx context.Context, archivePath, destDir string) error {
	if err := checkMagic(archivePath, "application/zip"); err != nil {
		return err
	}

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	for _, f := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open zip entry %s: %w", f.Name, err)
		}
		err = writeEntry(target, rc, f.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

// Extract7z extracts a 7-Zip archive into destDir.
func Extract7z(ctx context.Context, archivePath, destDir string) error {
	if err := checkMagic(archivePath, "application/x-7z-compressed"); err != nil {
		return err
	}

	reader, err := sevenzip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open 7z: %w", err)
	}
	defer reader.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	for _, f := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open 7z entry %s: %w", f.Name, err)
		}
		err = writeEntry(target, rc, f.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

// ExtractXar extracts a xar archive (macOS .pkg) into destDir by invoking the
// system xar tool, which is present wherever xar archives are relevant.
func ExtractXar(ctx context.Context, archivePath, destDir string) error {
	xarBin, err := exec.LookPath("xar")
	if err != nil {
		return fmt.Errorf("xar command not found: %w", err)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, xarBin, "-x", "-f", archivePath, "-C", destDir)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("xar extraction: %w: %s", err, strings.TrimSpace(string(out)))
	}

	return nil
}

// safeJoin joins an archive entry name onto destDir, rejecting entries that
// would escape it.
func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, name)
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal entry path: %s", name)
	}
	return target, nil
}

// writeEntry writes one archive entry to target, creating parents as needed.
func writeEntry(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}

	if mode.Perm() == 0 {
		mode = 0o644
	}
	outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}

	if _, err := io.Copy(outFile, r); err != nil {
		outFile.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}

	return outFile.Close()
}

// SetExecutable marks a file executable (0755).
func SetExecutable(path string) error {
	if err := os.Chmod(path, 0o755); err != nil {
		return fmt.Errorf("set executable: %w", err)
	}
	return nil
}
