// Package presence defines the immutable description of what the user is
// doing, as handed to a presence sink.
package presence

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"tools.zach/dev/idecord/internal/languages"
	"tools.zach/dev/idecord/internal/prefs"
)

// Presence is an immutable presence value. The zero value is the empty
// presence with every field absent. Presence is comparable, and == agrees
// with [Presence.Equal].
type Presence struct {
	details  string
	state    string
	start    int64
	language languages.Tag
	hover    string
	scope    prefs.ScopeRef
}

// Option sets one field during [New].
type Option func(*Presence)

// Details sets the top line.
func Details(s string) Option { return func(p *Presence) { p.details = s } }

// State sets the second line.
func State(s string) Option { return func(p *Presence) { p.state = s } }

// Start sets the elapsed-time anchor.
func Start(t time.Time) Option { return func(p *Presence) { p.start = unix(t) } }

// Language sets the language tag.
func Language(tag languages.Tag) Option { return func(p *Presence) { p.language = tag } }

// HoverText sets the text shown when hovering the language icon.
func HoverText(s string) Option { return func(p *Presence) { p.hover = s } }

// Scope sets the owning scope.
func Scope(s prefs.ScopeRef) Option { return func(p *Presence) { p.scope = s } }

// New builds a presence from opts.
func New(opts ...Option) Presence {
	var p Presence
	for _, opt := range opts {
		opt(&p)
	}
	return p.normalized()
}

// unix converts t to Unix seconds; the zero time maps to 0 (absent).
func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func (p Presence) normalized() Presence {
	if p.start < 0 {
		p.start = 0
	}
	return p
}

// ///////////////////////////////////////////////
// Builders
// ///////////////////////////////////////////////

// WithDetails returns a copy with the top line replaced.
func (p Presence) WithDetails(s string) Presence { p.details = s; return p }

// WithState returns a copy with the second line replaced.
func (p Presence) WithState(s string) Presence { p.state = s; return p }

// WithStart returns a copy with the elapsed-time anchor replaced.
func (p Presence) WithStart(t time.Time) Presence { p.start = unix(t); return p.normalized() }

// WithLanguage returns a copy with the language tag replaced.
func (p Presence) WithLanguage(tag languages.Tag) Presence { p.language = tag; return p }

// WithHoverText returns a copy with the hover text replaced.
func (p Presence) WithHoverText(s string) Presence { p.hover = s; return p }

// WithScope returns a copy with the scope replaced.
func (p Presence) WithScope(s prefs.ScopeRef) Presence { p.scope = s; return p }

// ///////////////////////////////////////////////
// Accessors
// ///////////////////////////////////////////////

func (p Presence) Details() (string, bool) { return p.details, p.details != "" }

func (p Presence) State() (string, bool) { return p.state, p.state != "" }

// Start returns the anchor truncated to whole seconds.
func (p Presence) Start() (time.Time, bool) {
	if p.start <= 0 {
		return time.Time{}, false
	}
	return time.Unix(p.start, 0), true
}

func (p Presence) Language() (languages.Tag, bool) { return p.language, p.language != "" }

func (p Presence) HoverText() (string, bool) { return p.hover, p.hover != "" }

func (p Presence) Scope() (prefs.ScopeRef, bool) { return p.scope, !p.scope.IsZero() }

// IsEmpty reports whether every field is absent.
func (p Presence) IsEmpty() bool { return p == Presence{} }

// Equal reports whether both presences carry the same six fields.
func (p Presence) Equal(o Presence) bool { return p == o }

// ///////////////////////////////////////////////
// Hashing
// ///////////////////////////////////////////////

// wire is the hashed form of a presence.
type wire struct {
	Details  string `json:"details,omitempty"`
	State    string `json:"state,omitempty"`
	Start    int64  `json:"start,omitempty"`
	Language string `json:"language,omitempty"`
	Hover    string `json:"hover,omitempty"`
	Scope    string `json:"scope,omitempty"`
}

// Hash returns a hex SHA-256 digest of the presence. Equal presences hash
// equally. The dispatcher uses it to skip redundant sends.
func (p Presence) Hash() string {
	data, err := json.Marshal(wire{
		Details:  p.details,
		State:    p.state,
		Start:    p.start,
		Language: string(p.language),
		Hover:    p.hover,
		Scope:    string(p.scope),
	})
	if err != nil {
		slog.Warn("failed to hash presence", "error", err)
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// String renders the presence for logs.
func (p Presence) String() string {
	return fmt.Sprintf("details=%q state=%q start=%d language=%s scope=%s", p.details, p.state, p.start, p.language, p.scope)
}
