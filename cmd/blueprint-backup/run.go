package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/fgeck/blueprint-backup/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return err
	}

	log.Debug().
		Str("folder", cfg.BackupsFolder).
		Str("source", cfg.BlueprintsLocation).
		Int("max_backups", cfg.MaxBackups).
		Bool("logging", cfg.Logging).
		Str("hash", cfg.HashAlgorithm).
		Msg("configuration loaded")

	ctx, stop := signalContext()
	defer stop()

	runnerSvc := runner.New(log.Logger)
	result, err := runnerSvc.Run(ctx, *cfg)
	if err != nil {
		log.Error().Err(err).Msg("backup failed")
		if hint := errors.FlattenHints(err); hint != "" {
			log.Info().Msg(hint)
		}
		return err
	}

	if result.LogFile != "" {
		log.Debug().Str("log_file", result.LogFile).Msg("run log written")
	}
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM. The
// current step finishes before the command stops.
func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("received signal, stopping after the current step")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
