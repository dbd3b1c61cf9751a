// Package retention prunes the oldest timestamped files of a managed folder.
package retention

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fgeck/blueprint-backup/internal/models"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// ErrMalformedEntry marks a filename that does not follow the managed naming convention.
var ErrMalformedEntry = errors.New("malformed backup entry")

// Service defines the interface for retention cleanup.
type Service interface {
	Apply(dir string, naming models.Naming, keep int, protected ...string) (*models.CleanupResult, error)
}

// Impl implements the Service interface.
type Impl struct {
	fs     afero.Fs
	logger zerolog.Logger
}

// New creates a new retention service.
func New(fs afero.Fs, logger zerolog.Logger) *Impl {
	return &Impl{
		fs:     fs,
		logger: logger,
	}
}

// ParseEntry extracts the timestamp from name, which must be exactly
// <naming.Prefix>_<timestamp><naming.Ext>.
func ParseEntry(name string, naming models.Naming) (models.BackupEntry, error) {
	if !strings.HasPrefix(name, naming.Prefix+"_") || !strings.HasSuffix(name, naming.Ext) {
		return models.BackupEntry{}, errors.Wrapf(ErrMalformedEntry, "%q", name)
	}

	stem := strings.TrimSuffix(name, naming.Ext)
	if len(stem) != len(naming.Prefix)+1+len(models.TimestampLayout) {
		return models.BackupEntry{}, errors.Wrapf(ErrMalformedEntry, "%q", name)
	}

	raw := stem[len(naming.Prefix)+1:]
	ts, err := time.ParseInLocation(models.TimestampLayout, raw, time.Local)
	if err != nil {
		return models.BackupEntry{}, errors.Wrapf(ErrMalformedEntry, "%q: %v", name, err)
	}

	return models.BackupEntry{Name: name, Timestamp: ts}, nil
}

// SelectForDeletion returns the names of the oldest entries that exceed keep.
// Protected names are dropped from the candidates before counting, so they
// are never selected and never count against keep. A keep of zero means
// unlimited and selects nothing.
func SelectForDeletion(entries []models.BackupEntry, keep int, protected map[string]struct{}) []string {
	if keep <= 0 {
		return nil
	}

	candidates := make([]models.BackupEntry, 0, len(entries))
	for _, e := range entries {
		if _, ok := protected[e.Name]; ok {
			continue
		}
		candidates = append(candidates, e)
	}

	excess := len(candidates) - keep
	if excess <= 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.Name < b.Name
	})

	names := make([]string, 0, excess)
	for _, e := range candidates[:excess] {
		names = append(names, e.Name)
	}
	return names
}

// Apply deletes the oldest files in dir beyond keep. Files that do not follow
// naming are logged and left alone. protected holds bare filenames.
func (s *Impl) Apply(dir string, naming models.Naming, keep int, protected ...string) (*models.CleanupResult, error) {
	result := &models.CleanupResult{Folder: dir}

	infos, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", dir)
	}

	var entries []models.BackupEntry
	for _, info := range infos {
		if !info.Mode().IsRegular() {
			continue
		}
		entry, err := ParseEntry(info.Name(), naming)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("folder", dir).
				Msgf("skipping %s: name does not match %s_<timestamp>%s", info.Name(), naming.Prefix, naming.Ext)
			result.Malformed = append(result.Malformed, info.Name())
			continue
		}
		entries = append(entries, entry)
	}

	protectedSet := make(map[string]struct{}, len(protected))
	for _, name := range protected {
		if name != "" {
			protectedSet[name] = struct{}{}
		}
	}

	toDelete := SelectForDeletion(entries, keep, protectedSet)
	for _, name := range toDelete {
		path := filepath.Join(dir, name)
		if err := s.fs.Remove(path); err != nil {
			return result, errors.Wrapf(err, "removing %s", path)
		}
		result.Deleted = append(result.Deleted, name)
		s.logger.Info().Str("file", path).Msgf("%s has been deleted", path)
	}
	result.Kept = len(entries) - len(result.Deleted)

	if len(result.Deleted) > 0 {
		s.logger.Info().
			Str("folder", dir).
			Int("removed", len(result.Deleted)).
			Int("kept", result.Kept).
			Msgf("%d older files removed from %s", len(result.Deleted), dir)
	}

	return result, nil
}
