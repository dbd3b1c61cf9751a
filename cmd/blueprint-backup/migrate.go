package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/fgeck/blueprint-backup/internal/models"
	"github.com/fgeck/blueprint-backup/internal/services/hasher"
	"github.com/fgeck/blueprint-backup/internal/services/migrator"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <source_folder> <destination_folder>",
	Short: "Copy existing backups to another folder without duplicates",
	Long: `Copy every file of source_folder into destination_folder, keeping only the first
file (in name order) of each distinct content. Files already in the destination are
never overwritten, and content already present there is not copied again.

Honors -c to create the destination and --hash to choose the content hash.`,
	Args: cobra.ExactArgs(2),
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	// Flags, environment and config file resolve the same way as for a backup.
	cfg, err := loadConfig(cmd, args[:1])
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return err
	}

	fs := afero.NewOsFs()
	h, err := hasher.New(fs, cfg.HashAlgorithm)
	if err != nil {
		log.Error().Err(err).Msg("invalid hash algorithm")
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	svc := migrator.New(fs, h, log.Logger)
	res, err := svc.Migrate(ctx, models.MigrationConfig{
		Source:              args[0],
		Destination:         args[1],
		CreateFolderMissing: cfg.CreateFolderMissing,
	})
	if err != nil {
		log.Error().Err(err).Msg("migration failed")
		if hint := errors.FlattenHints(err); hint != "" {
			log.Info().Msg(hint)
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Copied: %d (%s)\n", len(res.Copied), humanize.IBytes(uint64(res.BytesCopied)))
	fmt.Fprintf(out, "Duplicates skipped: %d\n", len(res.Duplicates))
	if len(res.Conflicts) > 0 {
		fmt.Fprintf(out, "Name conflicts skipped: %d\n", len(res.Conflicts))
	}

	return nil
}
