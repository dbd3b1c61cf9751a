package hasher

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/fgeck/blueprint-backup/internal/models"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

func writeFile(t *testing.T, fs afero.Fs, path string, data []byte) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, data, 0o644))
}

func TestFingerprint_KnownDigest(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/blueprint-storage.dat", []byte("abc"))

	svc, err := New(fs, models.HashSHA256)
	require.NoError(t, err)

	got, err := svc.Fingerprint("/src/blueprint-storage.dat")

	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", got)
}

func TestFingerprint_MultipleChunks(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := bytes.Repeat([]byte("0123456789abcdef"), (3*ChunkSize+17)/16)
	data = append(data, []byte("tail")...)
	writeFile(t, fs, "/big.dat", data)

	svc, err := New(fs, "")
	require.NoError(t, err)

	got, err := svc.Fingerprint("/big.dat")
	require.NoError(t, err)

	want := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(want[:]), got)
}

func TestFingerprint_EmptyFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/empty.dat", nil)

	svc, err := New(fs, models.HashSHA256)
	require.NoError(t, err)

	got, err := svc.Fingerprint("/empty.dat")
	require.NoError(t, err)

	want := sha256.Sum256(nil)
	assert.Equal(t, hex.EncodeToString(want[:]), got)
}

func TestFingerprint_BLAKE2b(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/a.dat", []byte("abc"))

	svc, err := New(fs, models.HashBLAKE2b)
	require.NoError(t, err)

	got, err := svc.Fingerprint("/a.dat")
	require.NoError(t, err)

	want := blake2b.Sum256([]byte("abc"))
	assert.Equal(t, hex.EncodeToString(want[:]), got)
	assert.Len(t, got, 64)
}

func TestFingerprint_SingleByteChangeFlipsDigest(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/a.dat", []byte("blueprint book v1"))
	writeFile(t, fs, "/b.dat", []byte("blueprint book v2"))

	svc, err := New(fs, models.HashSHA256)
	require.NoError(t, err)

	a, err := svc.Fingerprint("/a.dat")
	require.NoError(t, err)
	b, err := svc.Fingerprint("/b.dat")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestFingerprint_MissingFile(t *testing.T) {
	svc, err := New(afero.NewMemMapFs(), models.HashSHA256)
	require.NoError(t, err)

	_, err = svc.Fingerprint("/nope.dat")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening /nope.dat")
}

func TestNew_UnknownAlgorithm(t *testing.T) {
	_, err := New(afero.NewMemMapFs(), "md5")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
	assert.False(t, ValidAlgorithm("md5"))
	assert.True(t, ValidAlgorithm(models.HashBLAKE2b))
}
