//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/fgeck/blueprint-backup/internal/models"
	"github.com/fgeck/blueprint-backup/internal/services/runner"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// nextSecond sleeps until the wall clock enters a new second, so consecutive
// runs get distinct snapshot names.
func nextSecond() {
	now := time.Now()
	time.Sleep(now.Truncate(time.Second).Add(time.Second).Sub(now) + 10*time.Millisecond)
}

func TestBackupRuns_Integration(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "factorio", "blueprint-storage.dat")
	require.NoError(t, os.MkdirAll(filepath.Dir(source), 0o755))

	cfg := models.BackupConfig{
		BackupsFolder:       filepath.Join(dir, "backups"),
		BlueprintsLocation:  source,
		MaxBackups:          2,
		CreateFolderMissing: true,
		Logging:             true,
		HashAlgorithm:       models.HashSHA256,
	}
	svc := runner.New(testLogger())

	// Four distinct versions of the blueprint library.
	for _, content := range []string{"v1", "v2", "v3", "v4"} {
		require.NoError(t, os.WriteFile(source, []byte(content), 0o600))
		result, err := svc.Run(context.Background(), cfg)
		require.NoError(t, err)
		assert.False(t, result.AlreadyBackedUp)
		assert.FileExists(t, result.LogFile)
		nextSecond()
	}

	backups := listFiles(t, cfg.BackupsFolder)
	// Two kept plus the snapshot protected in the last run.
	require.Len(t, backups, 3)
	data, err := os.ReadFile(filepath.Join(cfg.BackupsFolder, backups[2]))
	require.NoError(t, err)
	assert.Equal(t, "v4", string(data))
	assert.Len(t, listFiles(t, filepath.Join(cfg.BackupsFolder, models.LogsFolderName)), 3)

	// Unchanged source: no new snapshot.
	result, err := svc.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, result.AlreadyBackedUp)
	assert.Equal(t, backups, listFiles(t, cfg.BackupsFolder))
}
