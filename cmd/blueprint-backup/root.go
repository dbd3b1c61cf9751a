package main

import (
	"io"
	"os"
	"strings"

	"github.com/fgeck/blueprint-backup/internal/config"
	"github.com/fgeck/blueprint-backup/internal/models"
	"github.com/fgeck/blueprint-backup/internal/paths"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Output flags.
	configFile string
	verbose    bool
	quiet      bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "blueprint-backup <backups_folder>",
	Short: "Back up your Factorio blueprints",
	Long: `blueprint-backup copies Factorio's blueprint-storage.dat into a backups folder:
  - skips the copy when an identical backup already exists
  - names each snapshot blueprint-storage_YYYY-MM-DD_HH-MM-SS.dat
  - keeps at most -n backups (and run logs), deleting the oldest first

Use as a one-shot command with an external scheduler (Task Scheduler, cron, systemd timer, etc.)`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	RunE:    runBackup,
	Version: Version,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "optional YAML config file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	pf.BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode (errors only)")
	pf.BoolVar(&jsonOutput, "json", false, "output logs in JSON format")

	pf.BoolP("create-folder-if-missing", "c", false, "create the backups folder if it is missing")
	pf.StringP("blueprints-location", "b", paths.DefaultBlueprintsLocation(), "location of your Factorio blueprint-storage.dat")
	pf.IntP("max-backups", "n", models.DefaultMaxBackups, "maximum number of backups to keep, 0 keeps an unlimited number")
	pf.BoolP("toggle-logging", "l", false, "write a log file for each run under <backups_folder>/logs")
	pf.String("hash", models.HashSHA256, "content hash used to detect duplicates (sha256, blake2b)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(migrateCmd)
}

func setupLogging() {
	// Set output format
	var out io.Writer = os.Stdout
	if !jsonOutput {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
		output.FormatLevel = func(i interface{}) string {
			if s, ok := i.(string); ok {
				return strings.ToUpper(s)
			}
			return ""
		}
		out = output
	}

	// Set log level on the console only; the run log keeps its own floor.
	level := zerolog.InfoLevel
	switch {
	case quiet:
		level = zerolog.ErrorLevel
	case verbose:
		level = zerolog.DebugLevel
	}

	console := &zerolog.FilteredLevelWriter{
		Writer: zerolog.LevelWriterAdapter{Writer: out},
		Level:  level,
	}
	log.Logger = zerolog.New(console).With().Timestamp().Logger()
}

// loadConfig merges flags, environment, the optional config file and the
// positional backups folder into one configuration.
func loadConfig(cmd *cobra.Command, args []string) (*models.BackupConfig, error) {
	parser := config.NewParser()
	if err := parser.BindFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	parser.SetBackupsFolder(args[0])

	if configFile != "" {
		return parser.LoadFile(configFile)
	}
	return parser.Load()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
