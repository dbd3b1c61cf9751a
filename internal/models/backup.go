package models

import "time"

// TimestampLayout is the timestamp embedded in every managed filename.
// It sorts lexicographically in chronological order.
const TimestampLayout = "2006-01-02_15-04-05"

// Naming describes the <prefix>_<timestamp><ext> convention of a managed folder.
type Naming struct {
	Prefix string
	Ext    string // including the leading dot
}

// FileName returns the managed filename for t.
func (n Naming) FileName(t time.Time) string {
	return n.Prefix + "_" + t.Format(TimestampLayout) + n.Ext
}

// Namings of the two managed folders.
var (
	BackupNaming = Naming{Prefix: "blueprint-storage", Ext: ".dat"}
	LogNaming    = Naming{Prefix: "FactorioBlueprintBackupManager", Ext: ".log"}
)

// LogsFolderName is the log folder nested inside the backups folder.
const LogsFolderName = "logs"

// BackupEntry is a file in a managed folder together with the timestamp
// parsed from its name.
type BackupEntry struct {
	Name      string
	Timestamp time.Time
	SizeBytes int64 // only set for a snapshot created in this run
}

// CleanupResult holds the result of a retention pass over one folder.
type CleanupResult struct {
	Folder    string
	Deleted   []string
	Kept      int
	Malformed []string
}

// RunResult holds the result of a complete backup run.
type RunResult struct {
	AlreadyBackedUp bool
	Created         *BackupEntry
	SizeBytes       int64
	Cleanups        []*CleanupResult
	LogFile         string
	Duration        time.Duration
}

// Removed returns the total number of files deleted by all cleanup passes.
func (r *RunResult) Removed() int {
	total := 0
	for _, c := range r.Cleanups {
		total += len(c.Deleted)
	}
	return total
}
