package models

import "time"

// MigrationConfig holds the settings of a backups folder migration.
type MigrationConfig struct {
	Source              string
	Destination         string
	CreateFolderMissing bool
}

// Duplicate is a source file skipped because Of already has its content.
type Duplicate struct {
	Name string
	Of   string
}

// MigrationResult summarizes a migration.
type MigrationResult struct {
	Source      string
	Destination string
	Copied      []string
	Duplicates  []Duplicate
	// Conflicts are names already present in the destination with other content.
	Conflicts   []string
	BytesCopied int64
	Duration    time.Duration
}
