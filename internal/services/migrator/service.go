// Package migrator copies a backups folder to another folder, keeping only
// the first file of every distinct content.
package migrator

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/fgeck/blueprint-backup/internal/fileutil"
	"github.com/fgeck/blueprint-backup/internal/models"
	"github.com/fgeck/blueprint-backup/internal/services/hasher"
	"github.com/fgeck/blueprint-backup/internal/services/manager"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// ErrSameFolder is returned when source and destination are the same folder.
var ErrSameFolder = errors.New("source and destination are the same folder")

// Service defines the interface for migrating a backups folder.
type Service interface {
	Migrate(ctx context.Context, cfg models.MigrationConfig) (*models.MigrationResult, error)
}

// Impl implements the Service interface.
type Impl struct {
	fs     afero.Fs
	hasher hasher.Service
	logger zerolog.Logger
}

// New creates a new migrator service.
func New(fs afero.Fs, h hasher.Service, logger zerolog.Logger) *Impl {
	return &Impl{
		fs:     fs,
		hasher: h,
		logger: logger,
	}
}

// Migrate copies every regular file of cfg.Source into cfg.Destination,
// in name order, skipping files whose content was already copied or is
// already present in the destination. Existing destination files are
// never overwritten.
func (s *Impl) Migrate(ctx context.Context, cfg models.MigrationConfig) (*models.MigrationResult, error) {
	start := time.Now()
	src := filepath.Clean(cfg.Source)
	dst := filepath.Clean(cfg.Destination)
	result := &models.MigrationResult{Source: src, Destination: dst}

	if src == dst {
		return nil, errors.Wrapf(ErrSameFolder, "%s", src)
	}
	if err := s.checkSource(src); err != nil {
		return nil, err
	}
	if err := s.ensureDestination(dst, cfg.CreateFolderMissing); err != nil {
		return nil, err
	}

	// Content already in the destination counts as seen.
	seen := make(map[string]string)
	existing, err := s.fingerprints(ctx, dst)
	if err != nil {
		return nil, err
	}
	for _, f := range existing {
		if _, ok := seen[f.sum]; !ok {
			seen[f.sum] = filepath.Join(dst, f.name)
		}
	}

	files, err := s.fingerprints(ctx, src)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return result, errors.Wrap(err, "migration cancelled")
		}

		if first, ok := seen[f.sum]; ok {
			result.Duplicates = append(result.Duplicates, models.Duplicate{Name: f.name, Of: first})
			s.logger.Info().Str("file", f.name).Str("of", first).Msgf("skipping %s: same content as %s", f.name, first)
			continue
		}

		target := filepath.Join(dst, f.name)
		exists, err := afero.Exists(s.fs, target)
		if err != nil {
			return result, errors.Mark(errors.Wrapf(err, "checking %s", target), manager.ErrIO)
		}
		if exists {
			result.Conflicts = append(result.Conflicts, f.name)
			s.logger.Warn().Str("file", target).Msgf("skipping %s: %s exists with different content", f.name, target)
			continue
		}

		n, err := fileutil.AtomicCopy(s.fs, filepath.Join(src, f.name), target, 0o644)
		if err != nil {
			return result, errors.Mark(err, manager.ErrIO)
		}
		seen[f.sum] = target
		result.Copied = append(result.Copied, f.name)
		result.BytesCopied += n
		s.logger.Info().Str("file", target).Msgf("%s migrated", f.name)
	}

	result.Duration = time.Since(start)
	s.logger.Info().
		Int("copied", len(result.Copied)).
		Int("duplicates", len(result.Duplicates)).
		Int("conflicts", len(result.Conflicts)).
		Str("size", humanize.IBytes(uint64(result.BytesCopied))).
		Msgf("migrated %d files from %s to %s", len(result.Copied), src, dst)

	return result, nil
}

type fingerprint struct {
	name string
	sum  string
}

// fingerprints hashes the regular files directly inside dir, in name order.
func (s *Impl) fingerprints(ctx context.Context, dir string) ([]fingerprint, error) {
	infos, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "listing %s", dir), manager.ErrIO)
	}

	var out []fingerprint
	for _, info := range infos {
		if !info.Mode().IsRegular() || fileutil.IsTemp(info.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "migration cancelled")
		}
		sum, err := s.hasher.Fingerprint(filepath.Join(dir, info.Name()))
		if err != nil {
			return nil, errors.Mark(err, manager.ErrIO)
		}
		out = append(out, fingerprint{name: info.Name(), sum: sum})
	}
	return out, nil
}

func (s *Impl) checkSource(src string) error {
	info, err := s.fs.Stat(src)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return errors.Wrapf(manager.ErrMissingFolder, "%s is not a directory", src)
	case os.IsNotExist(err):
		return errors.Wrapf(manager.ErrMissingFolder, "%s", src)
	default:
		return errors.Mark(errors.Wrapf(err, "checking %s", src), manager.ErrIO)
	}
}

func (s *Impl) ensureDestination(dst string, create bool) error {
	info, err := s.fs.Stat(dst)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return errors.Wrapf(manager.ErrMissingFolder, "%s is not a directory", dst)
	case !os.IsNotExist(err):
		return errors.Mark(errors.Wrapf(err, "checking %s", dst), manager.ErrIO)
	}

	if !create {
		return errors.WithHint(errors.Wrapf(manager.ErrMissingFolder, "%s", dst),
			"Add the -c flag to create the folder automatically.")
	}
	if err := s.fs.MkdirAll(dst, 0o755); err != nil {
		return errors.Mark(errors.Wrapf(err, "creating %s", dst), manager.ErrIO)
	}
	s.logger.Info().Str("folder", dst).Msgf("created destination folder %s", dst)
	return nil
}
