// Tests for the config package covering [Load] behavior (defaults, overrides,
// missing files, malformed input, migration), validation ([Config.Validate]),
// serialization round-trips ([Config.Save]), and [ConfigDocs] completeness.

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/idecord/internal/identity"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ///////////////////////////////////////////////
// Load
// ///////////////////////////////////////////////

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:   "defaults from minimal config",
			config: "version = 2\n",
			check: func(t *testing.T, cfg *Config) {
				t.Helper()
				if !reflect.DeepEqual(cfg, DefaultConfig()) {
					t.Errorf("cfg = %+v, want defaults", cfg)
				}
			},
		},
		{
			name: "user overrides applied",
			config: `
version = 2

[discord]
app_id = "123456789"
shutdown_grace_seconds = 0

[events]
source = "/tmp/idecord.events"
`,
			check: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.Discord.AppID != "123456789" {
					t.Errorf("AppID = %q", cfg.Discord.AppID)
				}
				if cfg.ShutdownGrace() != 0 {
					t.Errorf("ShutdownGrace = %v, want 0", cfg.ShutdownGrace())
				}
				if cfg.Events.Source != "/tmp/idecord.events" {
					t.Errorf("Source = %q", cfg.Events.Source)
				}
			},
		},
		{
			name: "partial override preserves other defaults",
			config: `
version = 2

[log]
level = "debug"
`,
			check: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.Log.Level != "debug" {
					t.Errorf("Level = %q", cfg.Log.Level)
				}
				if cfg.Log.MaxSizeMB != 10 || cfg.Behavior.PollIntervalSeconds != 5 {
					t.Errorf("defaults lost: %+v", cfg)
				}
			},
		},
		{
			name:    "malformed toml",
			config:  "[discord\napp_id = ",
			wantErr: true,
		},
		{
			name:    "invalid value",
			config:  "version = 2\n[behavior]\npoll_interval_seconds = 0\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.config))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Error("missing file should load defaults")
	}
}

func TestLoad_Migration(t *testing.T) {
	path := writeConfig(t, `
[discord]
app_id = "42"

[events]
path = "/tmp/legacy.events"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Events.Source != "/tmp/legacy.events" {
		t.Errorf("Source = %q, want migrated path", cfg.Events.Source)
	}
	if cfg.Version != Migrations.CurrentVersion {
		t.Errorf("Version = %d", cfg.Version)
	}

	backup, err := os.ReadFile(path + ".bak")
	if err != nil {
		t.Fatalf("backup not written: %v", err)
	}
	if !strings.Contains(string(backup), "path = ") {
		t.Error("backup should hold the original file")
	}

	saved, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(saved), "path = ") || !strings.Contains(string(saved), "version = 2") {
		t.Errorf("migrated file not saved:\n%s", saved)
	}

	// A second load has nothing to migrate.
	if err := os.Remove(path + ".bak"); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, err := os.Stat(path + ".bak"); !os.IsNotExist(err) {
		t.Error("current file should not be backed up again")
	}
}

func TestRenameEventsPath(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]any
		want map[string]any
	}{
		{
			name: "no events table",
			doc:  map[string]any{},
			want: map[string]any{},
		},
		{
			name: "path renamed",
			doc:  map[string]any{"events": map[string]any{"path": "a"}},
			want: map[string]any{"events": map[string]any{"source": "a"}},
		},
		{
			name: "source wins",
			doc:  map[string]any{"events": map[string]any{"path": "a", "source": "b"}},
			want: map[string]any{"events": map[string]any{"source": "b"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := renameEventsPath(tt.doc); err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(tt.doc, tt.want) {
				t.Errorf("doc = %v, want %v", tt.doc, tt.want)
			}
		})
	}
}

// ///////////////////////////////////////////////
// Defaults
// ///////////////////////////////////////////////

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Discord.AppID != identity.DefaultIdentity {
		t.Errorf("AppID = %q", cfg.Discord.AppID)
	}
	if cfg.ShutdownGrace() != 5*time.Second || cfg.PollInterval() != 5*time.Second || cfg.ReconnectInterval() != 15*time.Second {
		t.Errorf("durations = %v %v %v", cfg.ShutdownGrace(), cfg.PollInterval(), cfg.ReconnectInterval())
	}
}

func TestExampleConfig(t *testing.T) {
	if err := ExampleConfig().Validate(); err != nil {
		t.Errorf("example config must validate: %v", err)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	wrote, err := WriteDefault(path, []byte("version = 2\n"))
	if err != nil || !wrote {
		t.Fatalf("first write = %v, %v", wrote, err)
	}
	wrote, err = WriteDefault(path, []byte("other"))
	if err != nil || wrote {
		t.Fatalf("second write = %v, %v", wrote, err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "version = 2\n" {
		t.Errorf("existing file overwritten: %q", data)
	}
}

// ///////////////////////////////////////////////
// Docs
// ///////////////////////////////////////////////

func TestConfigDocsComplete(t *testing.T) {
	fields := collectTOMLFields(reflect.TypeOf(Config{}), "")
	for _, field := range fields {
		if _, ok := ConfigDocs[field]; !ok {
			t.Errorf("ConfigDocs missing entry for field %q", field)
		}
	}
	known := map[string]bool{}
	for _, f := range fields {
		known[f] = true
	}
	for key := range ConfigDocs {
		if !known[key] {
			t.Errorf("ConfigDocs documents unknown field %q", key)
		}
	}
}

// collectTOMLFields recursively walks a struct type and returns the
// dot-separated TOML key path for every tagged field.
func collectTOMLFields(typ reflect.Type, prefix string) []string {
	var fields []string
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("toml")
		if tag == "" || tag == "-" {
			continue
		}
		if idx := strings.Index(tag, ","); idx != -1 {
			tag = tag[:idx]
		}
		path := tag
		if prefix != "" {
			path = prefix + "." + tag
		}
		if f.Type.Kind() == reflect.Struct {
			fields = append(fields, collectTOMLFields(f.Type, path)...)
		} else {
			fields = append(fields, path)
		}
	}
	return fields
}

func TestConfigMarshalFieldOrder(t *testing.T) {
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(DefaultConfig()); err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := buf.String()

	order := []string{"version", "[discord]", "[behavior]", "[events]", "[log]", "[update]"}
	last := -1
	for _, s := range order {
		idx := strings.Index(out, s)
		if idx < 0 {
			t.Fatalf("%q missing from output:\n%s", s, out)
		}
		if idx < last {
			t.Errorf("%q out of order", s)
		}
		last = idx
	}
	if strings.Contains(out, "manifest_url") {
		t.Error("empty manifest_url should be omitted")
	}
}

// ///////////////////////////////////////////////
// Save
// ///////////////////////////////////////////////

func TestConfig_Save_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.Discord.AppID = "987654321"
	cfg.Update.ManifestURL = "https://example.com/manifest.json"
	cfg.Log.Level = "trace"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Errorf("round trip:\n got %+v\nwant %+v", got, cfg)
	}
}

// ///////////////////////////////////////////////
// Validate
// ///////////////////////////////////////////////

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty app id", func(c *Config) { c.Discord.AppID = " " }, "app_id"},
		{"non-numeric app id", func(c *Config) { c.Discord.AppID = "abc" }, "app_id"},
		{"negative grace", func(c *Config) { c.Discord.ShutdownGraceSeconds = -1 }, "shutdown_grace_seconds"},
		{"zero grace", func(c *Config) { c.Discord.ShutdownGraceSeconds = 0 }, ""},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"level case", func(c *Config) { c.Log.Level = "WARN" }, ""},
		{"zero log size", func(c *Config) { c.Log.MaxSizeMB = 0 }, "max_size_mb"},
		{"zero poll", func(c *Config) { c.Behavior.PollIntervalSeconds = 0 }, "poll_interval_seconds"},
		{"zero reconnect", func(c *Config) { c.Behavior.ReconnectIntervalSeconds = 0 }, "reconnect_interval_seconds"},
		{"empty source", func(c *Config) { c.Events.Source = "" }, "events.source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
