// Package hasher computes content fingerprints of files.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/fgeck/blueprint-backup/internal/models"
	"github.com/spf13/afero"
	"golang.org/x/crypto/blake2b"
)

// ChunkSize is the read buffer size used while hashing.
const ChunkSize = 64 * 1024

// ErrUnknownAlgorithm is returned for an unsupported hash algorithm name.
var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

// Service defines the interface for fingerprinting files.
type Service interface {
	Fingerprint(path string) (string, error)
}

// Impl implements the Service interface.
type Impl struct {
	fs      afero.Fs
	newHash func() hash.Hash
}

// New creates a hasher for the named algorithm reading through fs.
// An empty algorithm selects SHA-256.
func New(fs afero.Fs, algorithm string) (*Impl, error) {
	newHash, err := hashFunc(algorithm)
	if err != nil {
		return nil, err
	}
	return &Impl{fs: fs, newHash: newHash}, nil
}

func hashFunc(algorithm string) (func() hash.Hash, error) {
	switch algorithm {
	case "", models.HashSHA256:
		return sha256.New, nil
	case models.HashBLAKE2b:
		return func() hash.Hash {
			// blake2b.New256 only fails for keys longer than 64 bytes.
			h, _ := blake2b.New256(nil)
			return h
		}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownAlgorithm, "%q", algorithm)
	}
}

// ValidAlgorithm reports whether name is a supported hash algorithm.
func ValidAlgorithm(name string) bool {
	_, err := hashFunc(name)
	return err == nil
}

// Fingerprint returns the hex digest of the file at path.
// The file is read in ChunkSize chunks, each fed to the hash exactly once.
func (s *Impl) Fingerprint(path string) (string, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "opening %s", path)
	}
	defer func() { _ = f.Close() }()

	h := s.newHash()
	buf := make([]byte, ChunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			_, _ = h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.Wrapf(err, "reading %s", path)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
