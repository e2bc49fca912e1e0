// Package verify checks downloaded release assets against detached GPG
// signatures. Keyrings are armored (or binary) public key files placed in a
// keyring directory; every keyring in the directory is tried until one
// validates the signature.
package verify

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// ErrNoKeyrings indicates the keyring directory holds no usable keys.
var ErrNoKeyrings = errors.New("no keyrings available")

// Verifier validates detached signatures using keyrings from a directory.
type Verifier struct {
	keyringDir string
}

// NewVerifier creates a verifier reading keyrings from keyringDir.
func NewVerifier(keyringDir string) *Verifier {
	return &Verifier{keyringDir: keyringDir}
}

// VerifyDetached checks artifactPath against the detached signature at
// signaturePath. Both armored and binary signatures are accepted.
func (v *Verifier) VerifyDetached(artifactPath, signaturePath string) error {
	keyring, err := v.loadKeyrings()
	if err != nil {
		return fmt.Errorf("load keyrings: %w", err)
	}

	artifact, err := os.Open(artifactPath)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer artifact.Close()

	sig, err := os.Open(signaturePath)
	if err != nil {
		return fmt.Errorf("open signature: %w", err)
	}
	defer sig.Close()

	_, err = openpgp.CheckArmoredDetachedSignature(keyring, artifact, sig, nil)
	if err != nil {
		// Retry as a binary signature.
		if _, serr := artifact.Seek(0, io.SeekStart); serr != nil {
			return fmt.Errorf("rewind artifact: %w", serr)
		}
		if _, serr := sig.Seek(0, io.SeekStart); serr != nil {
			return fmt.Errorf("rewind signature: %w", serr)
		}
		_, err = openpgp.CheckDetachedSignature(keyring, artifact, sig, nil)
	}
	if err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}

	return nil
}

// loadKeyrings reads every keyring file in the keyring directory into one
// entity list.
func (v *Verifier) loadKeyrings() (openpgp.EntityList, error) {
	entries, err := os.ReadDir(v.keyringDir)
	if err != nil {
		return nil, fmt.Errorf("read keyring dir: %w", err)
	}

	var keyring openpgp.EntityList
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		entities, err := readKeyringFile(filepath.Join(v.keyringDir, entry.Name()))
		if err != nil {
			// A malformed keyring file should not block the others.
			continue
		}
		keyring = append(keyring, entities...)
	}

	if len(keyring) == 0 {
		return nil, ErrNoKeyrings
	}
	return keyring, nil
}

func readKeyringFile(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer f.Close()

	entities, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		if _, serr := f.Seek(0, io.SeekStart); serr != nil {
			return nil, fmt.Errorf("rewind keyring: %w", serr)
		}
		entities, err = openpgp.ReadKeyRing(f)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}
	return entities, nil
}
