// Package manager implements the blueprint backup manager: duplicate
// detection, snapshot creation and retention of the managed folders.
package manager

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/fgeck/blueprint-backup/internal/fileutil"
	"github.com/fgeck/blueprint-backup/internal/models"
	"github.com/fgeck/blueprint-backup/internal/services/hasher"
	"github.com/fgeck/blueprint-backup/internal/services/retention"
	"github.com/fgeck/blueprint-backup/internal/services/runlog"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Sentinel errors. Match them with errors.Is from github.com/cockroachdb/errors.
var (
	ErrMissingSource    = errors.New("blueprints file not found")
	ErrMissingFolder    = errors.New("backups folder not found")
	ErrInvalidRetention = errors.New("max backups must not be negative")
	ErrIO               = errors.New("i/o failure")
)

// Service defines the interface for a single backup run.
type Service interface {
	AlreadyBackedUp() (bool, error)
	BackupFile() (*models.BackupEntry, error)
	CleanUp() ([]*models.CleanupResult, error)
	LogFile() string
	Logger() zerolog.Logger
	Close() error
}

// Impl implements the Service interface.
type Impl struct {
	cfg        models.BackupConfig
	fs         afero.Fs
	hasher     hasher.Service
	retention  retention.Service
	logger     zerolog.Logger
	now        func() time.Time
	logsFolder string
	runLog     *runlog.File
	backupName string
}

// Option configures an Impl.
type Option func(*Impl)

// WithFs sets the filesystem the manager works on.
func WithFs(fs afero.Fs) Option {
	return func(s *Impl) {
		s.fs = fs
	}
}

// WithClock sets the time source used for filenames.
func WithClock(now func() time.Time) Option {
	return func(s *Impl) {
		s.now = now
	}
}

// WithHasher replaces the content hasher.
func WithHasher(h hasher.Service) Option {
	return func(s *Impl) {
		s.hasher = h
	}
}

// WithRetention replaces the retention service.
func WithRetention(r retention.Service) Option {
	return func(s *Impl) {
		s.retention = r
	}
}

// New validates cfg and prepares a backup run.
//
// Validation happens before anything is written: a negative retention cap,
// a missing blueprints file or a missing backups folder (without
// CreateFolderMissing) fail without touching the filesystem. Once valid, the
// backups folder is created if needed and, with logging enabled, the run's
// log file is opened under <folder>/logs and attached to the logger.
func New(cfg models.BackupConfig, logger zerolog.Logger, opts ...Option) (*Impl, error) {
	s := &Impl{
		cfg:        cfg,
		fs:         afero.NewOsFs(),
		logger:     logger,
		now:        time.Now,
		logsFolder: filepath.Join(cfg.BackupsFolder, models.LogsFolderName),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.MaxBackups < 0 {
		err := errors.Wrapf(ErrInvalidRetention, "got %d", cfg.MaxBackups)
		s.logger.Error().Int("max_backups", cfg.MaxBackups).Msg("max backups must be 0 (unlimited) or positive")
		return nil, errors.WithHint(err, "Use -n 0 to keep an unlimited number of backups.")
	}

	if s.hasher == nil {
		h, err := hasher.New(s.fs, cfg.HashAlgorithm)
		if err != nil {
			return nil, err
		}
		s.hasher = h
	}
	if err := s.checkSource(); err != nil {
		return nil, err
	}
	if err := s.ensureFolder(); err != nil {
		return nil, err
	}

	if cfg.Logging {
		if err := s.fs.MkdirAll(s.logsFolder, 0o755); err != nil {
			return nil, markIO(err, "creating %s", s.logsFolder)
		}
		lf, err := runlog.Open(s.fs, s.logsFolder, s.now())
		if err != nil {
			return nil, errors.Mark(err, ErrIO)
		}
		s.runLog = lf
		s.logger = s.logger.Hook(lf)
	}

	if s.retention == nil {
		s.retention = retention.New(s.fs, s.logger)
	}

	return s, nil
}

func (s *Impl) checkSource() error {
	info, err := s.fs.Stat(s.cfg.BlueprintsLocation)
	switch {
	case err == nil && info.Mode().IsRegular():
		return nil
	case err == nil:
		err = errors.Wrapf(ErrMissingSource, "%s is not a regular file", s.cfg.BlueprintsLocation)
	case os.IsNotExist(err):
		err = errors.Wrapf(ErrMissingSource, "%s", s.cfg.BlueprintsLocation)
	default:
		return markIO(err, "checking %s", s.cfg.BlueprintsLocation)
	}

	s.logger.Error().
		Str("path", s.cfg.BlueprintsLocation).
		Msgf("could not locate the Factorio blueprints file at %s", s.cfg.BlueprintsLocation)
	return errors.WithHint(err,
		"Factorio keeps blueprint-storage.dat in its user data directory; pass -b to point at it.")
}

func (s *Impl) ensureFolder() error {
	folder := s.cfg.BackupsFolder
	info, err := s.fs.Stat(folder)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return errors.Wrapf(ErrMissingFolder, "%s is not a directory", folder)
	case !os.IsNotExist(err):
		return markIO(err, "checking %s", folder)
	}

	if !s.cfg.CreateFolderMissing {
		s.logger.Error().Str("folder", folder).Msgf("could not find the %s folder", folder)
		return errors.WithHint(errors.Wrapf(ErrMissingFolder, "%s", folder),
			"Add the -c flag to create the folder automatically.")
	}

	if err := s.fs.MkdirAll(folder, 0o755); err != nil {
		return markIO(err, "creating %s", folder)
	}
	s.logger.Info().Str("folder", folder).Msgf("created backups folder %s", folder)
	return nil
}

// AlreadyBackedUp reports whether any regular file directly inside the
// backups folder has the same content as the blueprints file. It stops at
// the first match.
func (s *Impl) AlreadyBackedUp() (bool, error) {
	sourceSum, err := s.hasher.Fingerprint(s.cfg.BlueprintsLocation)
	if err != nil {
		return false, errors.Mark(err, ErrIO)
	}

	infos, err := afero.ReadDir(s.fs, s.cfg.BackupsFolder)
	if err != nil {
		return false, markIO(err, "listing %s", s.cfg.BackupsFolder)
	}

	for _, info := range infos {
		if !info.Mode().IsRegular() || fileutil.IsTemp(info.Name()) {
			continue
		}
		path := filepath.Join(s.cfg.BackupsFolder, info.Name())
		sum, err := s.hasher.Fingerprint(path)
		if err != nil {
			return false, errors.Mark(err, ErrIO)
		}
		if sum == sourceSum {
			s.logger.Info().
				Str("match", info.Name()).
				Str("fingerprint", sourceSum).
				Msgf("File already backed up as %s.", info.Name())
			return true, nil
		}
	}

	s.logger.Debug().Str("fingerprint", sourceSum).Int("scanned", len(infos)).Msg("no existing backup matches")
	return false, nil
}

// BackupFile copies the blueprints file to a new timestamped snapshot and
// protects it from this run's cleanup.
func (s *Impl) BackupFile() (*models.BackupEntry, error) {
	ts := s.now().Truncate(time.Second)
	name := models.BackupNaming.FileName(ts)
	target := filepath.Join(s.cfg.BackupsFolder, name)

	exists, err := afero.Exists(s.fs, target)
	if err != nil {
		return nil, markIO(err, "checking %s", target)
	}
	if exists {
		return nil, errors.Mark(errors.Newf("backup %s already exists", target), ErrIO)
	}

	size, err := fileutil.AtomicCopy(s.fs, s.cfg.BlueprintsLocation, target, 0o644)
	if err != nil {
		err = errors.Mark(err, ErrIO)
		s.logger.Error().Str("target", target).Msgf("backing up to %s failed: %v", target, err)
		return nil, err
	}

	s.backupName = name
	s.logger.Info().
		Str("file", target).
		Str("size", humanize.IBytes(uint64(size))).
		Msgf("File `%s` backed up.", target)

	return &models.BackupEntry{Name: name, Timestamp: ts, SizeBytes: size}, nil
}

// CleanUp applies the retention cap to the backups folder and, if present,
// the logs folder. This run's backup and log file are never deleted.
func (s *Impl) CleanUp() ([]*models.CleanupResult, error) {
	var results []*models.CleanupResult

	res, err := s.retention.Apply(s.cfg.BackupsFolder, models.BackupNaming, s.cfg.MaxBackups, s.backupName)
	if err != nil {
		return results, errors.Mark(err, ErrIO)
	}
	results = append(results, res)

	ok, err := afero.DirExists(s.fs, s.logsFolder)
	if err != nil {
		return results, markIO(err, "checking %s", s.logsFolder)
	}
	if !ok {
		return results, nil
	}

	var logName string
	if s.runLog != nil {
		logName = s.runLog.Name()
	}
	res, err = s.retention.Apply(s.logsFolder, models.LogNaming, s.cfg.MaxBackups, logName)
	if err != nil {
		return results, errors.Mark(err, ErrIO)
	}
	results = append(results, res)

	return results, nil
}

// LogFile returns the path of this run's log file, or "" when logging is off.
func (s *Impl) LogFile() string {
	if s.runLog == nil {
		return ""
	}
	return s.runLog.Path()
}

// Logger returns the manager's logger. With logging enabled it also writes
// to the run's log file.
func (s *Impl) Logger() zerolog.Logger {
	return s.logger
}

// Close releases the run's log file.
func (s *Impl) Close() error {
	if s.runLog == nil {
		return nil
	}
	return s.runLog.Close()
}

func markIO(err error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrIO)
}
