package synth

import (
	"fmt"

	"tools.zach/dev/idecord/internal/elapsed"
	"tools.zach/dev/idecord/internal/prefs"
	"tools.zach/dev/idecord/internal/presence"
)

// Resolver yields the effective preferences for a scope. [*prefs.Global]
// implements it.
type Resolver interface {
	Resolve(scope prefs.ScopeRef) prefs.Effective
}

// Synthesizer builds presences for resources using a registry and a resolver.
type Synthesizer struct {
	registry *Registry
	prefs    Resolver
}

// New returns a synthesizer. A nil registry means [DefaultRegistry].
func New(registry *Registry, resolver Resolver) *Synthesizer {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Synthesizer{registry: registry, prefs: resolver}
}

// Synthesize returns the presence for r at the given anchors, or nil when r
// is nil. Adapter errors are wrapped with the resource path.
func (s *Synthesizer) Synthesize(r Resource, a elapsed.Anchors) (*presence.Presence, error) {
	if r == nil {
		return nil, nil
	}
	adapter, ok := s.registry.Lookup(r)
	if !ok {
		return nil, fmt.Errorf("%w: %s (kind %s)", ErrNoAdapter, r.Path(), KindOf(r))
	}
	in, err := adapter.Adapt(r)
	if err != nil {
		return nil, fmt.Errorf("adapt %s: %w", r.Path(), err)
	}
	p := Build(in, s.prefs.Resolve(in.Scope), a)
	return &p, nil
}
