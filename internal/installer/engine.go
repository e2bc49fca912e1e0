package installer

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// ToolCache is the engine's view of the shared tool cache. Find must report
// a miss as (_, false, nil); Store and StoreFile take ownership of the given
// content by copy and return the registered slot path.
type ToolCache interface {
	Find(id Identity) (string, bool, error)
	Store(id Identity, sourceDir string) (string, error)
	StoreFile(id Identity, sourceFile, name string) (string, error)
}

// Engine orchestrates one acquisition: optional asset resolution, download,
// extraction, optional signature verification, and placement.
type Engine struct {
	cache       ToolCache
	downloader  *Downloader
	resolver    AssetResolver
	verifier    Verifier
	scratchRoot string
	logger      *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithDownloader replaces the default downloader.
func WithDownloader(d *Downloader) Option {
	return func(e *Engine) { e.downloader = d }
}

// WithResolver sets the private-asset resolver used when a credential is
// supplied.
func WithResolver(r AssetResolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithVerifier sets the signature verifier used for specs that declare a
// signature URL.
func WithVerifier(v Verifier) Option {
	return func(e *Engine) { e.verifier = v }
}

// WithScratchRoot sets the directory under which per-acquisition temporary
// files and directories are created. Defaults to the system temp dir.
func WithScratchRoot(dir string) Option {
	return func(e *Engine) { e.scratchRoot = dir }
}

// WithLogger sets the engine's logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates an acquisition engine backed by the given cache.
func NewEngine(cache ToolCache, opts ...Option) *Engine {
	e := &Engine{
		cache:      cache,
		downloader: NewDownloader(),
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve is the single entry point: it consults the cache first and only on
// a miss runs a full acquisition. The returned path is the directory (cache
// slot or fixed directory) containing the tool, or the binary path itself
// for fixed-directory raw installs.
func (e *Engine) Resolve(ctx context.Context, id Identity, spec ArchiveSpec, placement Placement, credential string) (string, error) {
	if path, ok, err := e.cache.Find(id); err != nil {
		return "", fmt.Errorf("cache lookup for %s: %w", id, err)
	} else if ok {
		e.logger.Debug("cache hit", "tool", id.Name, "version", id.Version, "arch", id.Arch, "path", path)
		return path, nil
	}

	e.logger.Debug("cache miss, acquiring", "tool", id.Name, "version", id.Version, "arch", id.Arch)
	return e.Acquire(ctx, id, spec, placement, credential)
}

// Acquire downloads, unpacks, and places one tool. All temporary resources
// created along the way are removed before it returns, on every exit path.
func (e *Engine) Acquire(ctx context.Context, id Identity, spec ArchiveSpec, placement Placement, credential string) (string, error) {
	url, header, err := e.resolveAsset(ctx, spec, credential)
	if err != nil {
		// No local resources exist yet; nothing to clean up.
		return "", fmt.Errorf("%w: %s: %w", ErrAssetResolution, id, err)
	}

	sess, err := newSession(e.scratchRoot, e.logger)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrDownload, id, err)
	}
	defer sess.release()

	// The fixed target directory is created up front; cached installs
	// assemble content in session scratch and hand it to the cache.
	destRoot := ""
	if placement.IsFixed() {
		destRoot = placement.Dir()
		if err := os.MkdirAll(destRoot, 0o755); err != nil {
			return "", fmt.Errorf("%w: %s: create target dir: %w", ErrPlacement, id, err)
		}
	}

	if spec.Kind == KindNone {
		return e.acquireRawBinary(ctx, sess, id, spec, placement, destRoot, url, header)
	}
	return e.acquireArchive(ctx, sess, id, spec, placement, destRoot, url, header)
}

// resolveAsset runs the private-asset resolver when a credential is present;
// otherwise the spec URL is used directly with no extra headers.
func (e *Engine) resolveAsset(ctx context.Context, spec ArchiveSpec, credential string) (string, http.Header, error) {
	if credential == "" {
		return spec.URL, nil, nil
	}
	if e.resolver == nil {
		return "", nil, fmt.Errorf("credential supplied but no asset resolver configured")
	}

	asset, err := e.resolver.Resolve(ctx, spec.URL, credential)
	if err != nil {
		return "", nil, err
	}
	return asset.URL, asset.Header, nil
}

// acquireRawBinary handles specs whose URL points directly at an executable.
// The binary is downloaded and verified in session scratch; only verified
// content reaches the cache or the fixed directory.
func (e *Engine) acquireRawBinary(ctx context.Context, sess *session, id Identity, spec ArchiveSpec, placement Placement, destRoot, url string, header http.Header) (string, error) {
	binName := spec.BinaryName
	if binName == "" {
		binName = id.Name
	}

	staging := sess.tempFilePath()
	if err := e.downloader.DownloadToFile(ctx, url, header, staging); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrDownload, id, err)
	}
	if err := e.verifySignature(ctx, sess, spec, header, staging); err != nil {
		return "", err
	}
	if err := SetExecutable(staging); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrPlacement, id, err)
	}

	if placement.IsFixed() {
		target := filepath.Join(destRoot, binName)
		if err := copyRegular(staging, target, 0o755); err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrPlacement, id, err)
		}
		e.logger.Debug("installed raw binary", "tool", id.Name, "path", target)
		return target, nil
	}

	slot, err := e.cache.StoreFile(id, staging, binName)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrPlacement, id, err)
	}
	e.logger.Debug("cached raw binary", "tool", id.Name, "slot", slot)
	return slot, nil
}

// acquireArchive handles specs that need extraction.
func (e *Engine) acquireArchive(ctx context.Context, sess *session, id Identity, spec ArchiveSpec, placement Placement, destRoot, url string, header http.Header) (string, error) {
	archivePath := sess.tempFilePath()
	if err := e.downloader.DownloadToFile(ctx, url, header, archivePath); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrDownload, id, err)
	}
	if err := e.verifySignature(ctx, sess, spec, header, archivePath); err != nil {
		return "", err
	}

	extract, ok := SelectExtractor(spec.Kind)
	if !ok {
		return "", fmt.Errorf("%w: %s: unsupported archive kind %q", ErrExtraction, id, spec.Kind)
	}

	extractDir, err := sess.tempDir("extract")
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrExtraction, id, err)
	}
	if err := extract(ctx, archivePath, extractDir); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrExtraction, id, err)
	}

	contentDir := extractDir
	if spec.Subdirectory != "" {
		contentDir = filepath.Join(extractDir, filepath.FromSlash(spec.Subdirectory))
		if info, err := os.Stat(contentDir); err != nil || !info.IsDir() {
			return "", fmt.Errorf("%w: %s: subdirectory %q not found in archive", ErrExtraction, id, spec.Subdirectory)
		}
	}

	if placement.IsFixed() {
		if err := copyTree(contentDir, destRoot); err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrPlacement, id, err)
		}
		path := filepath.Join(destRoot, id.Name)
		e.logger.Debug("installed into fixed directory", "tool", id.Name, "dir", destRoot)
		return path, nil
	}

	slot, err := e.cache.Store(id, contentDir)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrPlacement, id, err)
	}
	e.logger.Debug("cached extracted release", "tool", id.Name, "slot", slot)
	return slot, nil
}

// verifySignature downloads the spec's detached signature into the session
// and checks the artifact against it. Skipped when the spec declares no
// signature; an unconfigured verifier with a declared signature is an error,
// never a silent skip.
func (e *Engine) verifySignature(ctx context.Context, sess *session, spec ArchiveSpec, header http.Header, artifactPath string) error {
	if spec.SignatureURL == "" {
		return nil
	}
	if e.verifier == nil {
		return fmt.Errorf("%w: signature declared but no verifier configured", ErrVerification)
	}

	sigPath := sess.tempFilePath()
	if err := e.downloader.DownloadToFile(ctx, spec.SignatureURL, header, sigPath); err != nil {
		return fmt.Errorf("%w: fetch signature: %w", ErrDownload, err)
	}
	if err := e.verifier.VerifyDetached(artifactPath, sigPath); err != nil {
		return fmt.Errorf("%w: %w", ErrVerification, err)
	}
	return nil
}
