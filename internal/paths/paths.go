// Package paths resolves where Factorio keeps its blueprint storage file.
//
// Factorio writes blueprint-storage.dat into its user data directory:
//
//	| OS      | Location                                           |
//	|---------|----------------------------------------------------|
//	| Windows | %APPDATA%\Factorio\blueprint-storage.dat           |
//	| macOS   | ~/Library/Application Support/factorio/...         |
//	| Linux   | ~/.factorio/blueprint-storage.dat                  |
//
// Home and application-support directories come from github.com/adrg/xdg.
package paths

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
)

// BlueprintsFileName is the name of Factorio's blueprint library file.
const BlueprintsFileName = "blueprint-storage.dat"

// DefaultBlueprintsLocation returns the blueprint file location for the running OS.
func DefaultBlueprintsLocation() string {
	return BlueprintsLocation(runtime.GOOS)
}

// BlueprintsLocation returns the default blueprint file location for goos.
func BlueprintsLocation(goos string) string {
	return filepath.Join(UserDataDir(goos), BlueprintsFileName)
}

// UserDataDir returns Factorio's user data directory for goos.
func UserDataDir(goos string) string {
	switch goos {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(xdg.Home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "Factorio")
	case "darwin":
		return filepath.Join(xdg.Home, "Library", "Application Support", "factorio")
	default:
		return filepath.Join(xdg.Home, ".factorio")
	}
}
