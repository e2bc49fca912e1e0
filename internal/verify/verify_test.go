package verify

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSigningKey generates a fresh key pair and writes its public half into
// keyringDir, returning the entity for signing.
func newSigningKey(t *testing.T, keyringDir, name string) *openpgp.Entity {
	t.Helper()

	entity, err := openpgp.NewEntity(name, "", name+"@example.com", nil)
	require.NoError(t, err)

	var pub bytes.Buffer
	require.NoError(t, entity.Serialize(&pub))
	require.NoError(t, os.WriteFile(filepath.Join(keyringDir, name+".gpg"), pub.Bytes(), 0o644))

	return entity
}

// signArtifact writes artifact content and a detached binary signature over
// it, returning both paths.
func signArtifact(t *testing.T, entity *openpgp.Entity, content []byte) (string, string) {
	t.Helper()

	dir := t.TempDir()
	artifactPath := filepath.Join(dir, "release.tar.gz")
	require.NoError(t, os.WriteFile(artifactPath, content, 0o644))

	var sig bytes.Buffer
	require.NoError(t, openpgp.DetachSign(&sig, entity, bytes.NewReader(content), nil))

	sigPath := filepath.Join(dir, "release.tar.gz.sig")
	require.NoError(t, os.WriteFile(sigPath, sig.Bytes(), 0o644))

	return artifactPath, sigPath
}

func TestVerifyDetached(t *testing.T) {
	keyringDir := t.TempDir()
	entity := newSigningKey(t, keyringDir, "releases")

	artifact, sig := signArtifact(t, entity, []byte("release contents"))

	v := NewVerifier(keyringDir)
	require.NoError(t, v.VerifyDetached(artifact, sig))
}

func TestVerifyDetachedArmoredSignature(t *testing.T) {
	keyringDir := t.TempDir()
	entity := newSigningKey(t, keyringDir, "releases")

	dir := t.TempDir()
	artifactPath := filepath.Join(dir, "artifact")
	content := []byte("armored release")
	require.NoError(t, os.WriteFile(artifactPath, content, 0o644))

	var sig bytes.Buffer
	require.NoError(t, openpgp.ArmoredDetachSign(&sig, entity, bytes.NewReader(content), nil))
	sigPath := filepath.Join(dir, "artifact.asc")
	require.NoError(t, os.WriteFile(sigPath, sig.Bytes(), 0o644))

	v := NewVerifier(keyringDir)
	require.NoError(t, v.VerifyDetached(artifactPath, sigPath))
}

func TestVerifyDetachedWrongKey(t *testing.T) {
	keyringDir := t.TempDir()
	newSigningKey(t, keyringDir, "trusted")

	rogue, err := openpgp.NewEntity("rogue", "", "rogue@example.com", nil)
	require.NoError(t, err)

	artifact, sig := signArtifact(t, rogue, []byte("tampered release"))

	v := NewVerifier(keyringDir)
	err = v.VerifyDetached(artifact, sig)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verify signature")
}

func TestVerifyDetachedTamperedArtifact(t *testing.T) {
	keyringDir := t.TempDir()
	entity := newSigningKey(t, keyringDir, "releases")

	artifact, sig := signArtifact(t, entity, []byte("original contents"))
	require.NoError(t, os.WriteFile(artifact, []byte("modified contents"), 0o644))

	v := NewVerifier(keyringDir)
	require.Error(t, v.VerifyDetached(artifact, sig))
}

func TestVerifyDetachedNoKeyrings(t *testing.T) {
	v := NewVerifier(t.TempDir())

	dir := t.TempDir()
	artifact := filepath.Join(dir, "artifact")
	sig := filepath.Join(dir, "artifact.sig")
	require.NoError(t, os.WriteFile(artifact, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(sig, []byte("x"), 0o644))

	err := v.VerifyDetached(artifact, sig)
	require.ErrorIs(t, err, ErrNoKeyrings)
}

func TestVerifyDetachedSkipsMalformedKeyrings(t *testing.T) {
	keyringDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(keyringDir, "junk.gpg"), []byte("not a key"), 0o644))
	entity := newSigningKey(t, keyringDir, "releases")

	artifact, sig := signArtifact(t, entity, []byte("release contents"))

	v := NewVerifier(keyringDir)
	require.NoError(t, v.VerifyDetached(artifact, sig))
}
