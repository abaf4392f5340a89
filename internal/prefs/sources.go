package prefs

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrInvalidScope is returned for scope references that cannot name a store.
var ErrInvalidScope = errors.New("invalid scope")

// ScopeProvider hands out the store backing a scope. Implementations must
// return the same store instance for the same scope.
type ScopeProvider interface {
	ScopeStore(scope ScopeRef) (Store, error)
}

// ///////////////////////////////////////////////
// Source
// ///////////////////////////////////////////////

// source couples one store with its listener set and translates raw store
// changes into events exactly once.
type source struct {
	scope     ScopeRef
	store     Store
	listeners listenerSet
	cancel    func()
}

func newSource(scope ScopeRef, st Store) *source {
	s := &source{scope: scope, store: st}
	s.cancel = st.OnChange(func(key string, old, new any) {
		if ev, ok := translate(s.scope, key, old, new); ok {
			s.listeners.emit(ev)
		}
	})
	return s
}

// AddListener registers l and returns the handle that removes it.
func (s *source) AddListener(l Listener) *Registration {
	return s.listeners.add(l)
}

// RemoveListener unregisters a listener. Unknown or nil handles are ignored.
func (s *source) RemoveListener(r *Registration) {
	s.listeners.remove(r)
}

// Listeners returns the number of registered listeners.
func (s *source) Listeners() int {
	return s.listeners.len()
}

// ///////////////////////////////////////////////
// Scope
// ///////////////////////////////////////////////

// Scope is the preference source of one scope.
type Scope struct {
	*source
}

// Ref returns the scope this source belongs to.
func (s *Scope) Ref() ScopeRef { return s.scope }

// UsesScopeSettings reports whether the scope opted into its own settings.
func (s *Scope) UsesScopeSettings() bool {
	return s.store.Bool(KeyUseProjectSettings, false)
}

// DisplayName returns the configured display name, or "" when unset.
func (s *Scope) DisplayName() string {
	return s.store.String(KeyProjectName, "")
}

// Effective returns the scope's own values, display name included, ignoring
// the opt-in flag.
func (s *Scope) Effective() Effective {
	return scopeView(s.store)
}

func scopeView(st Store) Effective {
	e := readEffective(st)
	e.ScopeDisplayName = st.String(KeyProjectName, "")
	return e
}

// ///////////////////////////////////////////////
// Global
// ///////////////////////////////////////////////

// Global is the process-wide preference source and the entry point for
// resolution.
type Global struct {
	*source
	scopes ScopeProvider
	log    *slog.Logger

	// mu guards cache.
	mu sync.Mutex
	// cache keeps one Scope source per scope, so the store subscription is
	// made once and listeners attach to a stable instance.
	cache map[ScopeRef]*Scope
}

// NewGlobal builds the global source over st. scopes may be nil, in which case
// every scope inherits global settings.
func NewGlobal(st Store, scopes ScopeProvider, log *slog.Logger) *Global {
	if log == nil {
		log = slog.Default()
	}
	return &Global{
		source: newSource("", st),
		scopes: scopes,
		log:    log,
		cache:  make(map[ScopeRef]*Scope),
	}
}

// Effective returns the global view.
func (g *Global) Effective() Effective {
	return readEffective(g.store)
}

// Scope returns the cached source for scope, creating it on first use.
func (g *Global) Scope(scope ScopeRef) (*Scope, error) {
	if !scope.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.cache[scope]; ok {
		return s, nil
	}
	st, err := g.scopeStore(scope)
	if err != nil {
		return nil, err
	}
	s := &Scope{source: newSource(scope, st)}
	g.cache[scope] = s
	return s, nil
}

func (g *Global) scopeStore(scope ScopeRef) (Store, error) {
	if g.scopes == nil {
		return nil, fmt.Errorf("%w: no scope provider", ErrInvalidScope)
	}
	return g.scopes.ScopeStore(scope)
}

// Resolve returns the preferences governing scope, read fresh from the
// stores.
//
// A zero scope gets the global view. A scope that opted in gets its own view.
// Every other scope gets the global view with the scope's display name
// override, which may be empty. A scope whose store cannot be obtained
// degrades to the plain global view.
func (g *Global) Resolve(scope ScopeRef) Effective {
	view := g.Effective()
	if scope.IsZero() {
		return view
	}
	if !scope.Valid() {
		g.log.Debug("resolving invalid scope, using global preferences", "scope", string(scope))
		return view
	}
	st, err := g.scopeStore(scope)
	if err != nil {
		g.log.Debug("scope preferences unavailable, using global preferences", "scope", string(scope), "error", err)
		return view
	}
	if st.Bool(KeyUseProjectSettings, false) {
		return scopeView(st)
	}
	view.ScopeDisplayName = st.String(KeyProjectName, "")
	return view
}

// Close drops the store subscriptions of the global source and of every
// cached scope source. Listeners stop receiving events.
func (g *Global) Close() {
	g.cancel()
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, s := range g.cache {
		s.cancel()
	}
}
