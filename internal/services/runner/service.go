// Package runner orchestrates a blueprint backup run.
package runner

import (
	"context"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/fgeck/blueprint-backup/internal/models"
	"github.com/fgeck/blueprint-backup/internal/services/manager"
	"github.com/fgeck/blueprint-backup/internal/services/telegram"
	"github.com/rs/zerolog"
)

// Service defines the interface for the backup runner.
type Service interface {
	Run(ctx context.Context, cfg models.BackupConfig) (*models.RunResult, error)
}

// ManagerFactory builds the backup manager for a run.
type ManagerFactory func(cfg models.BackupConfig, logger zerolog.Logger) (manager.Service, error)

// Impl implements the runner Service interface.
type Impl struct {
	newManager  ManagerFactory
	telegramSvc telegram.Service
	logger      zerolog.Logger
	hostname    string
}

// New creates a new runner service.
func New(logger zerolog.Logger) *Impl {
	return NewWithServices(logger, defaultManager, telegram.New(logger))
}

// NewWithServices creates a new runner service with custom services (for testing).
func NewWithServices(logger zerolog.Logger, newManager ManagerFactory, telegramSvc telegram.Service) *Impl {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return &Impl{
		newManager:  newManager,
		telegramSvc: telegramSvc,
		logger:      logger,
		hostname:    hostname,
	}
}

func defaultManager(cfg models.BackupConfig, logger zerolog.Logger) (manager.Service, error) {
	m, err := manager.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Run executes one backup run: duplicate check, snapshot, cleanup.
// A source identical to an existing backup ends the run successfully
// without writing anything.
func (s *Impl) Run(ctx context.Context, cfg models.BackupConfig) (*models.RunResult, error) {
	startTime := time.Now()
	result := &models.RunResult{}
	var failedStep string
	var runErr error

	defer func() {
		result.Duration = time.Since(startTime)
		if cfg.Telegram != nil {
			s.sendNotification(ctx, cfg, startTime, result, failedStep, runErr)
		}
	}()

	// Step 1: Validate and prepare folders
	failedStep = "init"
	mgr, err := s.newManager(cfg, s.logger)
	if err != nil {
		runErr = err
		return nil, err
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("closing run log failed")
		}
	}()
	result.LogFile = mgr.LogFile()

	// From here on lines also reach the run log, if there is one.
	logger := mgr.Logger()
	logger.Info().
		Str("source", cfg.BlueprintsLocation).
		Str("folder", cfg.BackupsFolder).
		Int("max_backups", cfg.MaxBackups).
		Msg("starting backup run")

	// Step 2: Duplicate check
	failedStep = "dedup"
	if err := ctx.Err(); err != nil {
		runErr = err
		return nil, errors.Wrap(err, "run cancelled")
	}
	done, err := mgr.AlreadyBackedUp()
	if err != nil {
		runErr = err
		return nil, errors.Wrap(err, "duplicate check failed")
	}
	if done {
		result.AlreadyBackedUp = true
		failedStep = ""
		logger.Info().Msg("blueprints unchanged since last backup, nothing to do")
		return result, nil
	}

	// Step 3: Snapshot
	failedStep = "backup"
	if err := ctx.Err(); err != nil {
		runErr = err
		return nil, errors.Wrap(err, "run cancelled")
	}
	entry, err := mgr.BackupFile()
	if err != nil {
		runErr = err
		return nil, errors.Wrap(err, "backup failed")
	}
	result.Created = entry
	result.SizeBytes = entry.SizeBytes

	// Step 4: Retention
	failedStep = "cleanup"
	cleanups, err := mgr.CleanUp()
	result.Cleanups = cleanups
	if err != nil {
		runErr = err
		return result, errors.Wrap(err, "cleanup failed")
	}

	failedStep = ""
	logger.Info().
		Str("backup", entry.Name).
		Str("size", humanize.IBytes(uint64(entry.SizeBytes))).
		Int("removed", result.Removed()).
		Dur("duration", time.Since(startTime)).
		Msg("backup run completed successfully")

	return result, nil
}

func (s *Impl) sendNotification(
	ctx context.Context,
	cfg models.BackupConfig,
	startTime time.Time,
	result *models.RunResult,
	failedStep string,
	runErr error,
) {
	msg := models.TelegramMessage{
		Success:         runErr == nil,
		Host:            s.hostname,
		Source:          cfg.BlueprintsLocation,
		BackupsFolder:   cfg.BackupsFolder,
		StartTime:       startTime,
		Duration:        time.Since(startTime),
		AlreadyBackedUp: result.AlreadyBackedUp,
		SizeBytes:       result.SizeBytes,
	}

	if result.Created != nil {
		msg.BackupName = result.Created.Name
	}
	for _, c := range result.Cleanups {
		if c.Folder == cfg.BackupsFolder {
			msg.BackupsRemoved = len(c.Deleted)
			msg.BackupsKept = c.Kept
		} else {
			msg.LogsRemoved += len(c.Deleted)
		}
	}

	if runErr != nil {
		msg.FailedStep = failedStep
		msg.ErrorMessage = runErr.Error()
	}

	// A cancelled run still reports its outcome.
	sendCtx := context.WithoutCancel(ctx)
	res, err := s.telegramSvc.SendNotification(sendCtx, *cfg.Telegram, msg)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to send Telegram notification")
		return
	}
	if res.Error != nil {
		s.logger.Error().Err(res.Error).Msg("failed to send Telegram notification")
		return
	}

	s.logger.Info().Msg("Telegram notification sent")
}
