package main

import (
	"slices"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/idecord/internal/config"
)

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

func TestParseSectionPath(t *testing.T) {
	tests := []struct {
		section string
		want    []string
	}{
		{"discord", []string{"discord"}},
		{"discord.assets", []string{"discord", "assets"}},
		{"a.b.c", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		if got := parseSectionPath(tt.section); !slices.Equal(got, tt.want) {
			t.Errorf("parseSectionPath(%q) = %v, want %v", tt.section, got, tt.want)
		}
	}
}

func TestSectionName(t *testing.T) {
	tests := []struct {
		section string
		want    string
	}{
		{"discord", "Discord"},
		{"discord.assets", "Assets"},
		{"Log", "Log"},
		{"a", "A"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sectionName(tt.section); got != tt.want {
			t.Errorf("sectionName(%q) = %q, want %q", tt.section, got, tt.want)
		}
	}
}

func TestAppendOmittedNoSection(t *testing.T) {
	if out := appendOmitted(nil, config.ConfigDocs, nil, map[string]bool{}); len(out) != 0 {
		t.Errorf("appendOmitted without a section produced %d lines", len(out))
	}
}

// ///////////////////////////////////////////////
// render
// ///////////////////////////////////////////////

func TestRender(t *testing.T) {
	out, err := render(config.ExampleConfig(), config.ConfigDocs)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		"# idecord Configuration",
		"# ///// Discord /////",
		"# Config schema version. Do not edit.",
		"version = 2",
		"# shutdown_grace_seconds = 0",
		`source = "stdin"`,
		// manifest_url is omitempty, so only its docs appear.
		"# Release manifest location. Leave unset to use the built-in URL.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}

	cfg := config.DefaultConfig()
	if _, err := toml.Decode(out, cfg); err != nil {
		t.Fatalf("rendered config does not parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("rendered config does not validate: %v", err)
	}
}
