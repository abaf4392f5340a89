// Package dispatch reacts to the host's context changes (a resource activated
// or closed) and to preference changes, and drives the presence sink.
//
// The [Dispatcher] owns all mutable core state: the active resource, the
// elapsed-time anchors and the scope whose preference source it listens to.
// It is not safe for concurrent use. The daemon calls it from its main loop
// only, and preference reloads happen on that loop too.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tools.zach/dev/idecord/internal/elapsed"
	"tools.zach/dev/idecord/internal/identity"
	"tools.zach/dev/idecord/internal/prefs"
	"tools.zach/dev/idecord/internal/presence"
	"tools.zach/dev/idecord/internal/synth"
)

// ErrAdapterPanic wraps a panic raised while adapting a resource.
var ErrAdapterPanic = errors.New("adapter panicked")

// ///////////////////////////////////////////////
// Collaborators
// ///////////////////////////////////////////////

// Preferences is the global preference source. [*prefs.Global] implements it.
type Preferences interface {
	Resolve(scope prefs.ScopeRef) prefs.Effective
	Scope(scope prefs.ScopeRef) (*prefs.Scope, error)
	AddListener(l prefs.Listener) *prefs.Registration
	RemoveListener(r *prefs.Registration)
}

// Synthesizer builds presences. [*synth.Synthesizer] implements it.
type Synthesizer interface {
	Synthesize(r synth.Resource, a elapsed.Anchors) (*presence.Presence, error)
}

// Synchronizer reconciles the sink's connection. [*identity.Synchronizer]
// implements it.
type Synchronizer interface {
	Apply(p prefs.Effective) identity.Transition
	CanShow(p prefs.Effective) bool
}

// EditingContext is the dispatcher's view of what the user is doing.
type EditingContext struct {
	// Active is nil when no resource is active.
	Active  synth.Resource
	Anchors elapsed.Anchors
}

// ///////////////////////////////////////////////
// Options
// ///////////////////////////////////////////////

// Option configures a [Dispatcher].
type Option func(*Dispatcher)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

// ///////////////////////////////////////////////
// Dispatcher
// ///////////////////////////////////////////////

// Dispatcher is the context-change state machine.
type Dispatcher struct {
	prefs Preferences
	synth Synthesizer
	sync  Synchronizer
	sink  identity.Sink
	now   func() time.Time
	log   *slog.Logger

	ctx EditingContext
	// lastScope is the scope of the most recently activated resource. It
	// survives Close so reopening a file in the same scope keeps the count.
	lastScope prefs.ScopeRef
	// lastHash is the hash of the presence last shown; empty after anything
	// that blanks the sink.
	lastHash string

	globalReg *prefs.Registration
	// listened is the scope whose source scopeReg is attached to.
	listened prefs.ScopeRef
	scopeSrc *prefs.Scope
	scopeReg *prefs.Registration
}

// New builds a dispatcher and subscribes it to the global preference source
// until [Dispatcher.Stop].
func New(global Preferences, s Synthesizer, sync Synchronizer, sink identity.Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		prefs: global,
		synth: s,
		sync:  sync,
		sink:  sink,
		now:   time.Now,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.ctx.Anchors = elapsed.New(d.now())
	d.globalReg = global.AddListener(d.PreferenceChanged)
	return d
}

// Context returns a copy of the editing context.
func (d *Dispatcher) Context() EditingContext { return d.ctx }

// ListenedScope returns the scope whose preference source is attached.
func (d *Dispatcher) ListenedScope() prefs.ScopeRef { return d.listened }

// Activate makes r the active resource. Activating the resource that is
// already active does nothing.
func (d *Dispatcher) Activate(r synth.Resource) {
	if r == nil {
		return
	}
	if d.ctx.Active != nil && d.ctx.Active.Path() == r.Path() {
		return
	}

	scope := r.OwningScope()
	d.ctx.Active = r
	d.ctx.Anchors = d.ctx.Anchors.WithNewSelection(d.now(), scope != d.lastScope)
	d.lastScope = scope
	d.log.Debug("resource activated", "path", r.Path(), "scope", string(scope))

	p, err := d.synthesize(r)
	eff := d.prefs.Resolve(scope)
	tr := d.sync.Apply(eff)
	if tr == identity.Disconnected {
		d.lastHash = ""
	}
	if err != nil {
		d.log.Warn("no presence for resource", "path", r.Path(), "error", err)
		d.blank()
	} else {
		d.show(p, eff, tr == identity.Connected)
	}

	d.listenTo(scope)
}

// Close handles the host closing r. Only the active resource matters.
func (d *Dispatcher) Close(r synth.Resource) {
	if r == nil || d.ctx.Active == nil || d.ctx.Active.Path() != r.Path() {
		return
	}
	d.log.Debug("active resource closed", "path", r.Path())
	d.ctx.Active = nil
	d.sink.ShowNothing()
	d.lastHash = ""
}

// PreferenceChanged re-resolves the preferences of the current scope, fixes
// up the connection and re-shows the presence if it changed. It is installed
// as a listener on the global source and on the current scope's source.
func (d *Dispatcher) PreferenceChanged(ev prefs.Event) {
	d.log.Debug("preference changed", "kind", ev.Kind.String(), "scope", string(ev.Scope))
	d.resync(false)
}

// Refresh resyncs and shows the current presence even if it was already
// shown. The daemon calls it after the sink reconnects on its own.
func (d *Dispatcher) Refresh() {
	d.resync(true)
}

// Stop detaches every listener. The dispatcher must not be used afterwards.
func (d *Dispatcher) Stop() {
	d.prefs.RemoveListener(d.globalReg)
	d.globalReg = nil
	if d.scopeSrc != nil {
		d.scopeSrc.RemoveListener(d.scopeReg)
	}
	d.scopeSrc, d.scopeReg, d.listened = nil, nil, ""
}

func (d *Dispatcher) resync(force bool) {
	var scope prefs.ScopeRef
	if d.ctx.Active != nil {
		scope = d.ctx.Active.OwningScope()
	}
	eff := d.prefs.Resolve(scope)
	tr := d.sync.Apply(eff)
	if tr == identity.Disconnected {
		d.lastHash = ""
		return
	}
	if d.ctx.Active == nil {
		return
	}

	p, err := d.synthesize(d.ctx.Active)
	if err != nil {
		d.log.Warn("no presence for resource", "path", d.ctx.Active.Path(), "error", err)
		d.blank()
		return
	}
	d.show(p, eff, force || tr == identity.Connected)
}

// synthesize runs the synthesizer, turning a panic into an error.
func (d *Dispatcher) synthesize(r synth.Resource) (p *presence.Presence, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p, err = nil, fmt.Errorf("%w: %v", ErrAdapterPanic, rec)
		}
	}()
	return d.synth.Synthesize(r, d.ctx.Anchors)
}

// show sends p when the sink is connected to the right identity and p differs
// from what was last shown, or unconditionally when force is set.
func (d *Dispatcher) show(p *presence.Presence, eff prefs.Effective, force bool) {
	if p == nil || !d.sync.CanShow(eff) {
		return
	}
	hash := p.Hash()
	if !force && hash == d.lastHash {
		return
	}
	d.sink.Show(*p)
	d.lastHash = hash
}

// blank clears a connected sink.
func (d *Dispatcher) blank() {
	if d.sink.IsConnected() {
		d.sink.ShowNothing()
	}
	d.lastHash = ""
}

// listenTo moves the scope listener to scope. A scope whose source cannot be
// obtained is recorded without a listener and retried on the next activation.
func (d *Dispatcher) listenTo(scope prefs.ScopeRef) {
	if scope == d.listened && (scope.IsZero() || d.scopeSrc != nil) {
		return
	}
	if d.scopeSrc != nil {
		d.scopeSrc.RemoveListener(d.scopeReg)
		d.scopeSrc, d.scopeReg = nil, nil
	}
	if !scope.IsZero() {
		src, err := d.prefs.Scope(scope)
		if err != nil {
			d.log.Debug("scope preferences unavailable, not listening", "scope", string(scope), "error", err)
		} else {
			d.scopeSrc = src
			d.scopeReg = src.AddListener(d.PreferenceChanged)
		}
	}
	d.listened = scope
}
