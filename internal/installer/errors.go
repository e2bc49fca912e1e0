package installer

import "errors"

// Acquisition error kinds. Every failure out of Acquire wraps exactly one of
// these, so callers can classify with errors.Is and map to an exit status.
var (
	// ErrAssetResolution indicates the private-asset resolver could not
	// produce a download URL (bad credential, no matching asset).
	ErrAssetResolution = errors.New("asset resolution failed")

	// ErrDownload indicates a network, HTTP status, or write failure while
	// fetching the asset.
	ErrDownload = errors.New("download failed")

	// ErrExtraction indicates a corrupt archive, an unsupported format, or
	// a filesystem error during unpacking.
	ErrExtraction = errors.New("extraction failed")

	// ErrVerification indicates the downloaded asset did not match its
	// detached signature.
	ErrVerification = errors.New("signature verification failed")

	// ErrPlacement indicates the copy into the cache or the fixed target
	// directory failed.
	ErrPlacement = errors.New("placement failed")
)
