// Package main is the entry point for blueprint-backup.
package main

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/fgeck/blueprint-backup/internal/services/manager"
)

// Exit codes.
const (
	exitUser   = 1 // invalid arguments or configuration
	exitSystem = 2 // I/O failure while backing up or cleaning up
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, manager.ErrIO) {
		return exitSystem
	}
	return exitUser
}
