package main

import (
	"fmt"

	"github.com/fgeck/blueprint-backup/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <backups_folder>",
	Short: "Validate configuration without backing up",
	Long:  `Check the blueprints file, backups folder and retention settings without creating, copying or deleting anything.`,
	Args:  cobra.ExactArgs(1),
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return err
	}

	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	out := cmd.OutOrStdout()
	retention := fmt.Sprintf("keep %d", cfg.MaxBackups)
	if cfg.Unlimited() {
		retention = "unlimited"
	}

	fmt.Fprintln(out, "Configuration is valid!")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Summary:")
	fmt.Fprintf(out, "  Blueprints: %s\n", cfg.BlueprintsLocation)
	fmt.Fprintf(out, "  Backups folder: %s\n", cfg.BackupsFolder)
	fmt.Fprintf(out, "  Create folder if missing: %v\n", cfg.CreateFolderMissing)
	fmt.Fprintf(out, "  Retention: %s\n", retention)
	fmt.Fprintf(out, "  Hash: %s\n", cfg.HashAlgorithm)
	fmt.Fprintf(out, "  Log files: %v\n", cfg.Logging)
	fmt.Fprintf(out, "  Telegram: %v\n", cfg.Telegram != nil)

	if cfg.Telegram != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Telegram Configuration:")
		fmt.Fprintf(out, "  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Fprintf(out, "  Bot Token: (configured)\n")
	}

	return nil
}
