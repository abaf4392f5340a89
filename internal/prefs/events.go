package prefs

import (
	"fmt"
	"sort"
	"sync"
)

// ///////////////////////////////////////////////
// Event Vocabulary
// ///////////////////////////////////////////////

// EventKind is the closed set of normalized preference changes.
type EventKind int

const (
	FileNameVisibility EventKind = iota + 1
	ScopeNameVisibility
	LanguageIconVisibility
	ElapsedTimeVisibility
	PresenceVisibility
	ElapsedTimeResetMoment
	ScopeOverrideToggled
	ScopeDisplayNameChanged
	CustomIdentityToggled
	CustomIdentityChanged
	CustomWordingToggled
	DetailsWordingChanged
	StateWordingChanged
)

var kindNames = map[EventKind]string{
	FileNameVisibility:      "fileNameVisibility",
	ScopeNameVisibility:     "scopeNameVisibility",
	LanguageIconVisibility:  "languageIconVisibility",
	ElapsedTimeVisibility:   "elapsedTimeVisibility",
	PresenceVisibility:      "presenceVisibility",
	ElapsedTimeResetMoment:  "elapsedTimeResetMoment",
	ScopeOverrideToggled:    "scopeOverrideToggled",
	ScopeDisplayNameChanged: "scopeDisplayNameChanged",
	CustomIdentityToggled:   "customIdentityToggled",
	CustomIdentityChanged:   "customIdentityChanged",
	CustomWordingToggled:    "customWordingToggled",
	DetailsWordingChanged:   "detailsWordingChanged",
	StateWordingChanged:     "stateWordingChanged",
}

func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is one normalized preference change.
type Event struct {
	Kind EventKind
	// Scope is the source's scope; empty for the global source.
	Scope ScopeRef
	// Old and New are set for the value-carrying kinds (reset moment, display
	// name, identity, wordings) and empty for toggles.
	Old, New string
}

// ///////////////////////////////////////////////
// Translation
// ///////////////////////////////////////////////

// keySpec describes how a raw storage key maps onto the vocabulary.
type keySpec struct {
	kind      EventKind
	def       any
	scopeOnly bool
	valued    bool
}

// keySpecs is the single raw-key to event table.
var keySpecs = map[string]keySpec{
	KeyShowFileName:       {kind: FileNameVisibility, def: true},
	KeyShowProjectName:    {kind: ScopeNameVisibility, def: true},
	KeyShowLanguageIcon:   {kind: LanguageIconVisibility, def: true},
	KeyShowElapsedTime:    {kind: ElapsedTimeVisibility, def: true},
	KeyShowPresence:       {kind: PresenceVisibility, def: true},
	KeyResetElapsedTime:   {kind: ElapsedTimeResetMoment, def: ResetValueNewProject, valued: true},
	KeyUseProjectSettings: {kind: ScopeOverrideToggled, def: false, scopeOnly: true},
	KeyProjectName:        {kind: ScopeDisplayNameChanged, def: "", scopeOnly: true, valued: true},
	KeyUseCustomApp:       {kind: CustomIdentityToggled, def: false},
	KeyCustomAppID:        {kind: CustomIdentityChanged, def: "", valued: true},
	KeyUseCustomWording:   {kind: CustomWordingToggled, def: false},
	KeyDetailsWording:     {kind: DetailsWordingChanged, def: "", valued: true},
	KeyStateWording:       {kind: StateWordingChanged, def: "", valued: true},
}

// translate maps a raw change to an event. Unknown keys, scope-only keys on
// the global source, and changes that leave the effective value untouched
// (e.g. an absent key becoming its default) yield ok == false.
func translate(scope ScopeRef, key string, old, new any) (Event, bool) {
	spec, ok := keySpecs[key]
	if !ok {
		return Event{}, false
	}
	if spec.scopeOnly && scope.IsZero() {
		return Event{}, false
	}
	oldV, newV := normalize(old, spec.def), normalize(new, spec.def)
	if oldV == newV {
		return Event{}, false
	}
	ev := Event{Kind: spec.kind, Scope: scope}
	if spec.valued {
		ev.Old = fmt.Sprint(oldV)
		ev.New = fmt.Sprint(newV)
	}
	return ev, true
}

// normalize replaces absent or mistyped values with the key's default, the
// same way the typed getters read them.
func normalize(v, def any) any {
	switch def.(type) {
	case bool:
		if b, ok := v.(bool); ok {
			return b
		}
	case string:
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// ///////////////////////////////////////////////
// Listeners
// ///////////////////////////////////////////////

// Listener receives normalized events.
type Listener func(Event)

// Registration is the handle returned by AddListener.
type Registration struct {
	seq uint64
}

// listenerSet is a per-source listener collection with O(1) add and remove.
type listenerSet struct {
	mu      sync.Mutex
	entries map[*Registration]Listener
	nextSeq uint64
}

func (s *listenerSet) add(l Listener) *Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		s.entries = make(map[*Registration]Listener)
	}
	r := &Registration{seq: s.nextSeq}
	s.nextSeq++
	s.entries[r] = l
	return r
}

func (s *listenerSet) remove(r *Registration) {
	if r == nil {
		return
	}
	s.mu.Lock()
	delete(s.entries, r)
	s.mu.Unlock()
}

func (s *listenerSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// emit delivers ev to a snapshot of the listeners in registration order.
// Listeners added or removed during delivery take effect on the next event.
func (s *listenerSet) emit(ev Event) {
	s.mu.Lock()
	regs := make([]*Registration, 0, len(s.entries))
	for r := range s.entries {
		regs = append(regs, r)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].seq < regs[j].seq })
	ls := make([]Listener, len(regs))
	for i, r := range regs {
		ls[i] = s.entries[r]
	}
	s.mu.Unlock()

	for _, l := range ls {
		l(ev)
	}
}
