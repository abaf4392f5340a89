// Package paths centralizes file and directory names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

import "path/filepath"

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	PIDFile         = "daemon.pid"
	ConfigFile      = "config.toml"
	PreferencesFile = "preferences.toml"
	LogFile         = "daemon.log"
	ScopesDir       = "scopes"
	ScopeExt        = ".toml"
)

const (
	BinaryName = "idecord"
	DataDirRel = ".idecord" // relative to $HOME
)

// ReleaseManifest is the manifest file name at the release repository root.
const ReleaseManifest = ".release-manifest.json"

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// PID returns the full path to the PID file.
func (d DataDir) PID() string { return filepath.Join(d.Root, PIDFile) }

// Config returns the full path to the daemon config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Preferences returns the full path to the global preference document.
func (d DataDir) Preferences() string { return filepath.Join(d.Root, PreferencesFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// Scopes returns the directory holding per-scope preference documents.
func (d DataDir) Scopes() string { return filepath.Join(d.Root, ScopesDir) }

// ScopePreferences returns the default path of the preference document for
// scope.
func (d DataDir) ScopePreferences(scope string) string {
	return filepath.Join(d.Root, ScopesDir, scope+ScopeExt)
}
