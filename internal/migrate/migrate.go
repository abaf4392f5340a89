// Package migrate applies sequential schema migrations to decoded settings
// documents, upgrading them one version at a time.
//
// Documents are the generic map form produced by the TOML and YAML decoders,
// so a single migration serves every on-disk format.
package migrate

import (
	"fmt"
	"log/slog"
	"sort"
)

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Document is a decoded settings file keyed by top-level field name.
type Document = map[string]any

// VersionKey is the document field holding the schema version.
const VersionKey = "version"

// Migration upgrades a document from the prior version to [Migration.Version].
type Migration struct {
	// Version is the schema version this migration produces.
	Version int
	// Description is a short human-readable label for log output.
	Description string
	// Upgrade rewrites doc in place.
	Upgrade func(doc Document) error
}

// ///////////////////////////////////////////////
// Public API
// ///////////////////////////////////////////////

// Run applies migrations in version order where fromVersion < m.Version and
// stamps the reached version into doc. Returns the final version reached.
func Run(doc Document, fromVersion int, migrations []Migration) (int, error) {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})

	version := fromVersion
	for _, m := range sorted {
		if version >= m.Version {
			continue
		}
		slog.Info("applying migration", "version", m.Version, "description", m.Description)
		if err := m.Upgrade(doc); err != nil {
			return version, fmt.Errorf("migration to v%d failed: %w", m.Version, err)
		}
		version = m.Version
		doc[VersionKey] = int64(version)
	}
	return version, nil
}

// PeekVersion returns the document's schema version. A missing, zero, or
// non-numeric version reads as 1.
func PeekVersion(doc Document) int {
	var v int
	switch n := doc[VersionKey].(type) {
	case int:
		v = n
	case int64:
		v = int(n)
	case float64:
		v = int(n)
	}
	if v <= 0 {
		return 1
	}
	return v
}

// NeedsMigration reports whether a document at fileVersion would have any
// migrations applied.
func NeedsMigration(fileVersion int, migrations []Migration) bool {
	for _, m := range migrations {
		if fileVersion < m.Version {
			return true
		}
	}
	return false
}

// ///////////////////////////////////////////////
// Registry
// ///////////////////////////////////////////////

// Registry holds the current version and migrations for one document kind
// (daemon config, preference files). Each kind owns its own instance.
type Registry struct {
	// CurrentVersion is the latest schema version this registry targets.
	CurrentVersion int
	// Migrations is the list of versioned upgrades, in any order.
	Migrations []Migration
}

// Register appends a migration. It panics on a duplicate version.
func (r *Registry) Register(m Migration) {
	for _, existing := range r.Migrations {
		if existing.Version == m.Version {
			panic(fmt.Sprintf("migrate: duplicate migration version %d (description: %q)", m.Version, m.Description))
		}
	}
	r.Migrations = append(r.Migrations, m)
}

// NeedsMigration reports whether doc is behind the registry's current version.
func (r *Registry) NeedsMigration(doc Document) bool {
	v := PeekVersion(doc)
	return v < r.CurrentVersion && NeedsMigration(v, r.Migrations)
}

// Apply migrates doc to the current version. It reports whether anything
// changed so callers know to write the document back.
func (r *Registry) Apply(doc Document) (bool, error) {
	if !r.NeedsMigration(doc) {
		return false, nil
	}
	if _, err := Run(doc, PeekVersion(doc), r.Migrations); err != nil {
		return false, err
	}
	doc[VersionKey] = int64(r.CurrentVersion)
	return true, nil
}
