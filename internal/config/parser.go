// Package config provides configuration loading from flags, environment and file.
package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/fgeck/blueprint-backup/internal/models"
	"github.com/fgeck/blueprint-backup/internal/paths"
	"github.com/fgeck/blueprint-backup/internal/services/hasher"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the parser,
// e.g. BLUEPRINT_BACKUP_MAX_BACKUPS.
const EnvPrefix = "BLUEPRINT_BACKUP"

// Configuration keys.
const (
	KeyBackupsFolder      = "backups_folder"
	KeyCreateFolder       = "create_folder_if_missing"
	KeyBlueprintsLocation = "blueprints_location"
	KeyMaxBackups         = "max_backups"
	KeyLogging            = "logging"
	KeyHash               = "hash"
	KeyTelegramBotToken   = "telegram.bot_token"
	KeyTelegramChatID     = "telegram.chat_id"
)

// ErrInvalidConfig indicates configuration validation failed.
var ErrInvalidConfig = errors.New("invalid configuration")

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"create-folder-if-missing": KeyCreateFolder,
	"blueprints-location":      KeyBlueprintsLocation,
	"max-backups":              KeyMaxBackups,
	"toggle-logging":           KeyLogging,
	"hash":                     KeyHash,
}

// Parser handles configuration parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser with defaults and
// environment lookup enabled.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyCreateFolder, false)
	v.SetDefault(KeyBlueprintsLocation, paths.DefaultBlueprintsLocation())
	v.SetDefault(KeyMaxBackups, models.DefaultMaxBackups)
	v.SetDefault(KeyLogging, false)
	v.SetDefault(KeyHash, models.HashSHA256)
	// AutomaticEnv only sees nested keys that are known.
	v.SetDefault(KeyTelegramBotToken, "")
	v.SetDefault(KeyTelegramChatID, "")

	return &Parser{v: v}
}

// BindFlags binds the command line flags that exist in flags to their keys.
// Flags override environment variables and the config file when set.
func (p *Parser) BindFlags(flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := p.v.BindPFlag(key, f); err != nil {
			return errors.Wrapf(err, "binding flag --%s", name)
		}
	}
	return nil
}

// SetBackupsFolder sets the backups folder given as a positional argument.
func (p *Parser) SetBackupsFolder(path string) {
	if path != "" {
		p.v.Set(KeyBackupsFolder, path)
	}
}

// Load builds the configuration from flags, environment and defaults only.
func (p *Parser) Load() (*models.BackupConfig, error) {
	return p.parse()
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.BackupConfig, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.BackupConfig, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, errors.Wrap(err, "reading config")
	}

	return p.parse()
}

func (p *Parser) parse() (*models.BackupConfig, error) {
	cfg := &models.BackupConfig{
		BackupsFolder:       p.expandEnv(p.v.GetString(KeyBackupsFolder)),
		BlueprintsLocation:  p.expandEnv(p.v.GetString(KeyBlueprintsLocation)),
		MaxBackups:          p.v.GetInt(KeyMaxBackups),
		CreateFolderMissing: p.v.GetBool(KeyCreateFolder),
		Logging:             p.v.GetBool(KeyLogging),
		HashAlgorithm:       strings.ToLower(p.v.GetString(KeyHash)),
	}

	if cfg.BackupsFolder == "" {
		return nil, errors.Mark(errors.New("backups_folder is required"), ErrInvalidConfig)
	}

	// Parse optional Telegram config.
	token := p.expandEnv(p.v.GetString(KeyTelegramBotToken))
	chatID := p.expandEnv(p.v.GetString(KeyTelegramChatID))
	if token != "" || chatID != "" {
		cfg.Telegram = &models.TelegramConfig{BotToken: token, ChatID: chatID}

		if token == "" {
			return nil, errors.Mark(errors.New("telegram.bot_token is required when telegram is configured"), ErrInvalidConfig)
		}
		if chatID == "" {
			return nil, errors.Mark(errors.New("telegram.chat_id is required when telegram is configured"), ErrInvalidConfig)
		}
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration without touching
// the filesystem beyond stat calls.
func Validate(cfg *models.BackupConfig) error {
	if cfg == nil {
		return errors.Mark(errors.New("configuration is nil"), ErrInvalidConfig)
	}

	if cfg.BackupsFolder == "" {
		return errors.Mark(errors.New("backups_folder is required"), ErrInvalidConfig)
	}

	if cfg.MaxBackups < 0 {
		return errors.Mark(errors.Newf("max_backups must be 0 (unlimited) or positive, got %d", cfg.MaxBackups), ErrInvalidConfig)
	}

	if !hasher.ValidAlgorithm(cfg.HashAlgorithm) {
		return errors.Mark(errors.Newf("hash must be one of: %s, %s", models.HashSHA256, models.HashBLAKE2b), ErrInvalidConfig)
	}

	info, err := os.Stat(cfg.BlueprintsLocation)
	if err != nil || !info.Mode().IsRegular() {
		return errors.Mark(errors.Newf("blueprints file %s not found", cfg.BlueprintsLocation), ErrInvalidConfig)
	}

	info, err = os.Stat(cfg.BackupsFolder)
	switch {
	case err == nil && !info.IsDir():
		return errors.Mark(errors.Newf("%s is not a directory", cfg.BackupsFolder), ErrInvalidConfig)
	case err != nil && !cfg.CreateFolderMissing:
		return errors.Mark(errors.Newf("backups folder %s not found and create_folder_if_missing is off", cfg.BackupsFolder), ErrInvalidConfig)
	}

	return nil
}
