package prefs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
	"tools.zach/dev/idecord/internal/atomicfile"
	"tools.zach/dev/idecord/internal/migrate"
	"tools.zach/dev/idecord/internal/paths"
)

// ///////////////////////////////////////////////
// Document Migrations
// ///////////////////////////////////////////////

// Legacy v1 keys: the reset moment used to be three exclusive booleans.
const (
	legacyResetOnStartup    = "reset_elapsed_time_on_startup"
	legacyResetOnNewProject = "reset_elapsed_time_on_new_project"
	legacyResetOnNewFile    = "reset_elapsed_time_on_new_file"
)

// Migrations is the schema registry for preference documents.
var Migrations = &migrate.Registry{
	CurrentVersion: 2,
	Migrations: []migrate.Migration{
		{Version: 2, Description: "fold reset_elapsed_time_on_* flags into reset_elapsed_time", Upgrade: foldResetFlags},
	},
}

// foldResetFlags replaces the v1 reset booleans with the v2 enum value. The
// most specific flag wins; no flag at all means startup.
func foldResetFlags(doc migrate.Document) error {
	flag := func(key string) bool {
		b, _ := doc[key].(bool)
		return b
	}
	_, hadAny := doc[legacyResetOnStartup]
	for _, k := range []string{legacyResetOnNewProject, legacyResetOnNewFile} {
		if _, ok := doc[k]; ok {
			hadAny = true
		}
	}
	if hadAny {
		switch {
		case flag(legacyResetOnNewFile):
			doc[KeyResetElapsedTime] = ResetValueNewResource
		case flag(legacyResetOnNewProject):
			doc[KeyResetElapsedTime] = ResetValueNewProject
		default:
			doc[KeyResetElapsedTime] = ResetValueStartup
		}
	}
	delete(doc, legacyResetOnStartup)
	delete(doc, legacyResetOnNewProject)
	delete(doc, legacyResetOnNewFile)
	return nil
}

// ///////////////////////////////////////////////
// FileStore
// ///////////////////////////////////////////////

// format is the on-disk encoding of a preference document.
type format int

const (
	formatTOML format = iota
	formatYAML
)

func formatFor(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatTOML
	}
}

// FileStore is a [Store] persisted as a flat TOML or YAML document. The
// encoding follows the file extension.
type FileStore struct {
	*MemoryStore
	path   string
	format format
}

// OpenFile loads the document at path. A missing file is an empty store. On
// a decode error the store is still returned, empty, together with the error,
// so callers can keep a stable instance and reload once the file is fixed.
func OpenFile(path string) (*FileStore, error) {
	f := &FileStore{
		MemoryStore: NewMemoryStore(),
		path:        path,
		format:      formatFor(path),
	}
	doc, err := f.read()
	if err != nil {
		return f, err
	}
	f.MemoryStore.replace(doc)
	return f, nil
}

// Path returns the backing file path.
func (f *FileStore) Path() string { return f.path }

// Reload re-reads the file and notifies subscribers once per changed key. On
// error the current values are kept.
func (f *FileStore) Reload() error {
	doc, err := f.read()
	if err != nil {
		return err
	}
	f.MemoryStore.replace(doc)
	return nil
}

// Set stores value under key and writes the document back.
func (f *FileStore) Set(key string, value any) error {
	f.MemoryStore.Set(key, value)
	return f.Save()
}

// Save writes the current values, stamped with the current schema version.
func (f *FileStore) Save() error {
	doc := f.Snapshot()
	doc[migrate.VersionKey] = int64(Migrations.CurrentVersion)
	return writeDocument(f.path, f.format, doc)
}

// read decodes and migrates the document. A migrated document is written back
// with a .bak copy of the original next to it.
func (f *FileStore) read() (map[string]any, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}

	doc := map[string]any{}
	switch f.format {
	case formatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		_, err = toml.Decode(string(data), &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parse preferences %s: %w", f.path, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	changed, err := Migrations.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("migrate preferences %s: %w", f.path, err)
	}
	if changed {
		if bErr := os.WriteFile(f.path+".bak", data, 0o644); bErr != nil {
			slog.Warn("failed to write preferences backup", "path", f.path, "error", bErr)
		}
		if wErr := writeDocument(f.path, f.format, doc); wErr != nil {
			slog.Warn("failed to save migrated preferences", "path", f.path, "error", wErr)
		}
	}
	return doc, nil
}

func writeDocument(path string, ft format, doc map[string]any) error {
	return atomicfile.WriteWith(path, 0o644, func(w io.Writer) error {
		if ft == formatYAML {
			enc := yaml.NewEncoder(w)
			defer enc.Close()
			return enc.Encode(doc)
		}
		return toml.NewEncoder(w).Encode(doc)
	})
}

// ///////////////////////////////////////////////
// Directory
// ///////////////////////////////////////////////

// Directory owns the preference files under a data directory: the global
// document and one document per scope. It implements [ScopeProvider].
type Directory struct {
	root   paths.DataDir
	global *FileStore
	log    *slog.Logger

	// mu guards scopes.
	mu     sync.Mutex
	scopes map[ScopeRef]*FileStore
}

// OpenDirectory opens the preference files under root, creating the scopes
// directory. A corrupt global document is logged and read as defaults.
func OpenDirectory(root paths.DataDir, log *slog.Logger) (*Directory, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(root.Scopes(), 0o755); err != nil {
		return nil, fmt.Errorf("create scopes dir: %w", err)
	}
	global, err := OpenFile(root.Preferences())
	if err != nil {
		log.Warn("global preferences unreadable, using defaults", "path", root.Preferences(), "error", err)
	}
	return &Directory{
		root:   root,
		global: global,
		log:    log,
		scopes: make(map[ScopeRef]*FileStore),
	}, nil
}

// Global returns the global preference store.
func (d *Directory) Global() *FileStore { return d.global }

// ScopeStore implements [ScopeProvider]. Stores are opened lazily and cached.
// A scope whose document cannot be decoded gets an empty store, which reads
// as "inherit global settings".
func (d *Directory) ScopeStore(scope ScopeRef) (Store, error) {
	return d.scopeFile(scope)
}

// ScopeFile returns the concrete file store for scope, for writers.
func (d *Directory) ScopeFile(scope ScopeRef) (*FileStore, error) {
	return d.scopeFile(scope)
}

func (d *Directory) scopeFile(scope ScopeRef) (*FileStore, error) {
	if !scope.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.scopes[scope]; ok {
		return st, nil
	}
	st, err := OpenFile(d.scopePath(scope))
	if err != nil {
		d.log.Warn("scope preferences unreadable, inheriting global settings", "scope", string(scope), "error", err)
	}
	d.scopes[scope] = st
	return st, nil
}

// scopePath prefers an existing YAML document and defaults to TOML.
func (d *Directory) scopePath(scope ScopeRef) string {
	for _, ext := range []string{".yaml", ".yml"} {
		p := filepath.Join(d.root.Scopes(), string(scope)+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return d.root.ScopePreferences(string(scope))
}

// ReloadAll re-reads the global document and every opened scope document.
// Subscribers see one change per key whose value actually moved. Decode
// errors are logged and leave that store's values unchanged.
func (d *Directory) ReloadAll() {
	if err := d.global.Reload(); err != nil {
		d.log.Warn("reload global preferences", "error", err)
	}

	d.mu.Lock()
	refs := make([]ScopeRef, 0, len(d.scopes))
	for ref := range d.scopes {
		refs = append(refs, ref)
	}
	d.mu.Unlock()
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })

	for _, ref := range refs {
		d.mu.Lock()
		st := d.scopes[ref]
		d.mu.Unlock()
		if err := st.Reload(); err != nil {
			d.log.Warn("reload scope preferences", "scope", string(ref), "error", err)
		}
	}
}

// WriteDefaults writes the default global document if none exists yet.
func (d *Directory) WriteDefaults() error {
	if _, err := os.Stat(d.global.path); err == nil {
		return nil
	}
	def := Defaults()
	doc := map[string]any{
		migrate.VersionKey:  int64(Migrations.CurrentVersion),
		KeyShowFileName:     def.ShowsFileName,
		KeyShowProjectName:  def.ShowsScopeName,
		KeyShowElapsedTime:  def.ShowsElapsedTime,
		KeyShowLanguageIcon: def.ShowsLanguageIcon,
		KeyShowPresence:     def.ShowsPresence,
		KeyResetElapsedTime: def.ResetsElapsedTimeOn.String(),
		KeyUseCustomApp:     def.UsesCustomIdentity,
		KeyCustomAppID:      def.CustomIdentity,
		KeyUseCustomWording: def.UsesCustomWording,
		KeyDetailsWording:   def.CustomDetailsTemplate,
		KeyStateWording:     def.CustomStateTemplate,
	}
	if err := writeDocument(d.global.path, d.global.format, doc); err != nil {
		return fmt.Errorf("write default preferences: %w", err)
	}
	return d.global.Reload()
}
