// Package hostevents reads the host's context changes from a JSON-lines
// stream. Each line is one event:
//
//	{"event":"activate","path":"/src/app/Main.java","project":"app","kind":"file"}
//
// "project" and "kind" are optional. Without a project the scope is found by
// walking up from the path to the nearest project marker.
package hostevents

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"tools.zach/dev/idecord/internal/prefs"
	"tools.zach/dev/idecord/internal/synth"
)

// ///////////////////////////////////////////////
// Events
// ///////////////////////////////////////////////

// Op is what happened to a resource.
type Op string

const (
	OpActivate Op = "activate"
	OpClose    Op = "close"
)

// Event is one decoded host event.
type Event struct {
	Op       Op
	Resource Resource
}

var (
	// ErrUnknownEvent is returned for an unrecognized "event" value.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrMissingPath is returned for a file event without a path.
	ErrMissingPath = errors.New("missing path")
)

// ///////////////////////////////////////////////
// Resource
// ///////////////////////////////////////////////

// Resource is a host resource. It is comparable and implements
// [synth.Resource] and [synth.Kinded].
type Resource struct {
	path  string
	name  string
	scope prefs.ScopeRef
	kind  string
}

var (
	_ synth.Resource = Resource{}
	_ synth.Kinded   = Resource{}
)

// NewResource builds a resource. An empty kind means a file.
func NewResource(path string, scope prefs.ScopeRef, kind string) Resource {
	if kind == "" {
		kind = synth.KindFile
	}
	r := Resource{path: path, scope: scope, kind: kind}
	if path != "" && kind == synth.KindFile {
		r.name = filepath.Base(path)
	}
	return r
}

func (r Resource) Path() string                { return r.path }
func (r Resource) DisplayName() string         { return r.name }
func (r Resource) OwningScope() prefs.ScopeRef { return r.scope }
func (r Resource) Kind() string                { return r.kind }

// ///////////////////////////////////////////////
// Decoding
// ///////////////////////////////////////////////

// ScopeFunc finds the scope of a path that arrived without a project.
type ScopeFunc func(path string) prefs.ScopeRef

type wireEvent struct {
	Event   string `json:"event"`
	Path    string `json:"path"`
	Project string `json:"project"`
	Kind    string `json:"kind"`
}

// Decode parses one line. detect may be nil, in which case a missing project
// leaves the resource without a scope.
func Decode(line []byte, detect ScopeFunc) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(line, &w); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}

	op := Op(strings.ToLower(strings.TrimSpace(w.Event)))
	if op != OpActivate && op != OpClose {
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, w.Event)
	}

	kind := strings.ToLower(strings.TrimSpace(w.Kind))
	scope := prefs.ScopeRef(strings.TrimSpace(w.Project))
	if scope.IsZero() && w.Path != "" && detect != nil {
		scope = detect(w.Path)
	}

	path := w.Path
	if path == "" {
		if kind != synth.KindTerminal {
			return Event{}, ErrMissingPath
		}
		// One terminal per scope.
		path = "terminal:" + string(scope)
	}
	return Event{Op: op, Resource: NewResource(path, scope, kind)}, nil
}

// ///////////////////////////////////////////////
// Scope Detection
// ///////////////////////////////////////////////

// Markers are the files and directories that mark a project root.
var Markers = []string{".git", "go.mod", ".project", "pom.xml", "build.sbt", "package.json"}

// DetectScope walks up from path to the nearest directory holding one of
// [Markers] and returns its base name. It returns the zero ref when no marker
// is found.
func DetectScope(path string) prefs.ScopeRef {
	dir := filepath.Dir(filepath.Clean(path))
	for {
		for _, m := range Markers {
			if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
				ref := prefs.ScopeRef(filepath.Base(dir))
				if ref.Valid() {
					return ref
				}
				return ""
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ///////////////////////////////////////////////
// Reader
// ///////////////////////////////////////////////

// Reader turns a JSON-lines stream into events.
type Reader struct {
	src    io.Reader
	detect ScopeFunc
	log    *slog.Logger
}

// NewReader reads from src. Scopes are detected with [DetectScope].
func NewReader(src io.Reader, log *slog.Logger) *Reader {
	if log == nil {
		log = slog.Default()
	}
	return &Reader{src: src, detect: DetectScope, log: log}
}

// Open returns a reader over the named source: "stdin" (or "" / "-") for
// standard input, anything else is opened as a file or FIFO.
func Open(source string, log *slog.Logger) (*Reader, error) {
	switch source {
	case "", "-", "stdin":
		return NewReader(os.Stdin, log), nil
	}
	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open event source: %w", err)
	}
	return NewReader(f, log), nil
}

// Run decodes lines and sends the events to out until EOF or ctx is done.
// Blank and malformed lines are skipped. A source that is an [io.Closer] is
// closed when Run returns or ctx ends, which unblocks a pending read.
func (rd *Reader) Run(ctx context.Context, out chan<- Event) error {
	if c, ok := rd.src.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { c.Close() })
		defer func() {
			if stop() {
				c.Close()
			}
		}()
	}

	scanner := bufio.NewScanner(rd.src)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		ev, err := Decode(line, rd.detect)
		if err != nil {
			rd.log.Warn("skipping host event", "line", lineNo, "error", err)
			continue
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read host events: %w", err)
	}
	rd.log.Debug("host event stream ended", "lines", lineNo)
	return nil
}
