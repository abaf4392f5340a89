package prefs

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ///////////////////////////////////////////////
// Watcher
// ///////////////////////////////////////////////

// Watcher signals when any preference document under a set of directories is
// written. It uses fsnotify and falls back to mtime polling. The daemon
// reacts to a signal by calling [Directory.ReloadAll] on its own goroutine,
// so store notifications never run on the watcher goroutine.
type Watcher struct {
	dirs []string
	// events is buffered to 1 so back-to-back writes coalesce.
	events chan struct{}
	done   chan struct{}
	// fsw is nil when polling.
	fsw          *fsnotify.Watcher
	once         sync.Once
	polling      atomic.Bool
	pollInterval time.Duration
}

// defaultPollInterval is used when NewWatcher gets a non-positive interval.
const defaultPollInterval = 2 * time.Second

// NewWatcher watches the given directories for preference document changes.
// poll is the interval of the polling fallback.
func NewWatcher(poll time.Duration, dirs ...string) (*Watcher, error) {
	if len(dirs) == 0 {
		return nil, fmt.Errorf("watcher: no directories")
	}
	w := &Watcher{
		dirs:         dirs,
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		pollInterval: poll,
	}
	if w.pollInterval <= 0 {
		w.pollInterval = defaultPollInterval
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Info("fsnotify unavailable, falling back to preference polling", "error", err)
		w.startPolling()
		return w, nil
	}
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			slog.Info("cannot watch preferences directory, falling back to polling", "path", dir, "error", err)
			fsw.Close()
			w.startPolling()
			return w, nil
		}
	}
	w.fsw = fsw
	go w.watch()
	return w, nil
}

// isPreferenceFile reports whether name is a preference document. Temp files
// from atomic writes are excluded; their rename shows up as a Create.
func isPreferenceFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".toml", ".yaml", ".yml":
		return true
	}
	return false
}

func (w *Watcher) startPolling() {
	w.polling.Store(true)
	go w.poll()
}

func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
				if isPreferenceFile(event.Name) {
					w.notify()
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Info("fsnotify error, switching to preference polling", "error", err)
			w.fsw.Close()
			w.fsw = nil
			w.startPolling()
			return
		}
	}
}

func (w *Watcher) poll() {
	last := w.fingerprint()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			fp := w.fingerprint()
			if fp != last {
				last = fp
				w.notify()
			}
		}
	}
}

// fingerprint summarizes the preference documents by count and newest mtime,
// so both writes and deletions are noticed while polling.
func (w *Watcher) fingerprint() string {
	var latest time.Time
	count := 0
	for _, dir := range w.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !isPreferenceFile(e.Name()) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			count++
			if info.ModTime().After(latest) {
				latest = info.ModTime()
			}
		}
	}
	return fmt.Sprintf("%d/%d", count, latest.UnixNano())
}

// Polling reports whether the watcher is using polling instead of fsnotify.
func (w *Watcher) Polling() bool {
	return w.polling.Load()
}

// Events returns a channel that receives a signal when a document changes.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		if w.fsw != nil {
			if closeErr := w.fsw.Close(); closeErr != nil {
				err = fmt.Errorf("closing fsnotify watcher: %w", closeErr)
			}
		}
	})
	return err
}

func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}
