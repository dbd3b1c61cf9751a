package models

import "time"

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// TelegramMessage holds the data for a backup notification.
type TelegramMessage struct {
	Success       bool
	Host          string
	Source        string
	BackupsFolder string
	StartTime     time.Time
	Duration      time.Duration

	// Backup stats (if successful).
	AlreadyBackedUp bool
	BackupName      string
	SizeBytes       int64

	// Retention stats.
	BackupsRemoved int
	BackupsKept    int
	LogsRemoved    int

	// Error info (if failed).
	ErrorMessage string
	FailedStep   string
}

// TelegramResult holds the result of a Telegram notification.
type TelegramResult struct {
	MessageSent bool
	Error       error
}
