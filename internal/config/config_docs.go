package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// The genconfig tool uses [FieldDoc] values to annotate the generated config.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "discord.app_id") to
// their [FieldDoc] entries.
var ConfigDocs = map[string]FieldDoc{
	// ── Root ──────────────────────────────────────────────────────
	"version": {
		Comment: "Config schema version. Do not edit.",
	},

	// ── Discord ──────────────────────────────────────────────────
	"discord.app_id": {
		Comment: "Application ID used unless a preference file selects a custom one.\nOverride with your own Discord app to use your own images.",
	},
	"discord.shutdown_grace_seconds": {
		Comment: "Seconds the Discord socket stays open after presence is turned off.\nTurning it back on within this window reuses the socket. 0 closes at once.",
		Alternatives: []string{
			`shutdown_grace_seconds = 0`,
		},
	},
	"discord.small_image": {
		Comment: "Small badge image key (must match an asset uploaded to the Discord app).",
	},
	"discord.small_text": {},

	// ── Behavior ─────────────────────────────────────────────────
	"behavior.poll_interval_seconds": {
		Comment: "Fallback polling interval for preference files when file watching is unavailable.",
	},
	"behavior.reconnect_interval_seconds": {
		Comment: "How often a lost Discord connection is retried.",
	},

	// ── Events ───────────────────────────────────────────────────
	"events.source": {
		Comment: "Where the IDE integration writes its JSON-lines events.\n\"stdin\" reads standard input; anything else is a file or FIFO path.",
		Alternatives: []string{
			`source = "/tmp/idecord.events"`,
		},
	},

	// ── Log ──────────────────────────────────────────────────────
	"log.level": {
		Comment: "Minimum log level. Options: \"trace\", \"debug\", \"info\", \"warn\", \"error\"",
		Alternatives: []string{
			`level = "debug"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Log file size in megabytes before rotation.",
	},

	// ── Update ───────────────────────────────────────────────────
	"update.check": {
		Comment: "Check for a newer release on startup.",
	},
	"update.manifest_url": {
		Comment: "Release manifest location. Leave unset to use the built-in URL.",
		Alternatives: []string{
			`manifest_url = "https://example.com/idecord/.release-manifest.json"`,
		},
	},
}
