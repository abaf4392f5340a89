// Package idecord embeds the daemon's default configuration.
//
// [DefaultConfigTOML] is generated by cmd/genconfig from
// config.ExampleConfig and written to the data directory on first run.
package idecord

import _ "embed"

// DefaultConfigTOML holds config.default.toml.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte
