// Package models contains the data structures used throughout blueprint-backup.
package models

// Hash algorithms accepted by the hasher service.
const (
	HashSHA256  = "sha256"
	HashBLAKE2b = "blake2b"
)

// DefaultMaxBackups is the retention cap applied when none is configured.
const DefaultMaxBackups = 30

// BackupConfig holds the complete configuration for a backup run.
type BackupConfig struct {
	BackupsFolder       string
	BlueprintsLocation  string
	MaxBackups          int  // 0 keeps an unlimited number of backups
	CreateFolderMissing bool // create BackupsFolder when it does not exist
	Logging             bool // write a per-run log file under BackupsFolder/logs
	HashAlgorithm       string
	Telegram            *TelegramConfig // nil if not configured
}

// Unlimited reports whether retention cleanup is disabled.
func (c BackupConfig) Unlimited() bool {
	return c.MaxBackups == 0
}
