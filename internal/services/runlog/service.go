// Package runlog writes the per-run log file kept next to the backups.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fgeck/blueprint-backup/internal/models"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// LineTimeFormat is the timestamp written at the start of every log line.
const LineTimeFormat = "2006-01-02 15:04:05"

// A rerun within the same second appends to the existing log instead of truncating it.
const fileFlags = os.O_CREATE | os.O_WRONLY | os.O_APPEND

// MinLevel is the lowest level written to a run log, whatever the console shows.
const MinLevel = zerolog.InfoLevel

// File is a run log file. It mirrors every event at MinLevel or above of a
// zerolog.Logger it is hooked into as a "<time> [LEVEL]: <message>" line.
type File struct {
	mu   sync.Mutex
	f    afero.File
	path string
	now  func() time.Time
}

var _ zerolog.Hook = (*File)(nil)

// Open creates the log file for a run started at now inside dir.
func Open(fs afero.Fs, dir string, now time.Time) (*File, error) {
	path := filepath.Join(dir, models.LogNaming.FileName(now))

	f, err := fs.OpenFile(path, fileFlags, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "creating log file %s", path)
	}

	return &File{f: f, path: path, now: time.Now}, nil
}

// Path returns the full path of the log file.
func (l *File) Path() string {
	return l.path
}

// Name returns the base name of the log file.
func (l *File) Name() string {
	return filepath.Base(l.path)
}

// Run implements zerolog.Hook.
func (l *File) Run(_ *zerolog.Event, level zerolog.Level, msg string) {
	if msg == "" || level < MinLevel {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return
	}
	// Write errors cannot be reported from a hook; the console copy still exists.
	_, _ = fmt.Fprintf(l.f, "%s [%s]: %s\n", l.now().Format(LineTimeFormat), strings.ToUpper(level.String()), msg)
}

// Close flushes and closes the log file. It is safe to call more than once.
func (l *File) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return errors.Wrapf(err, "closing log file %s", l.path)
}
