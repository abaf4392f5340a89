package prefs

import (
	"maps"
	"reflect"
	"sort"
	"sync"
)

// ///////////////////////////////////////////////
// Store
// ///////////////////////////////////////////////

// ChangeFunc receives a raw key change. old or new is nil when the key was
// absent on that side.
type ChangeFunc func(key string, old, new any)

// Store is a key/value preference store with change notification.
type Store interface {
	// Bool returns the boolean stored under key, or def when the key is
	// missing or holds another type.
	Bool(key string, def bool) bool
	// String returns the string stored under key, or def.
	String(key string, def string) string
	// OnChange subscribes fn to key changes. The returned func unsubscribes.
	OnChange(fn ChangeFunc) (cancel func())
}

// ///////////////////////////////////////////////
// MemoryStore
// ///////////////////////////////////////////////

// MemoryStore is an in-memory [Store]. [FileStore] builds on it.
type MemoryStore struct {
	// mu guards values and subs. It is never held while subscribers run, so
	// a subscriber may write to the store it is subscribed to.
	mu     sync.Mutex
	values map[string]any
	subs   map[uint64]ChangeFunc
	nextID uint64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]any),
		subs:   make(map[uint64]ChangeFunc),
	}
}

// Bool implements [Store].
func (m *MemoryStore) Bool(key string, def bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.values[key].(bool); ok {
		return v
	}
	return def
}

// String implements [Store].
func (m *MemoryStore) String(key string, def string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.values[key].(string); ok {
		return v
	}
	return def
}

// OnChange implements [Store].
func (m *MemoryStore) OnChange(fn ChangeFunc) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Set stores value under key and notifies subscribers if it changed.
func (m *MemoryStore) Set(key string, value any) {
	m.mu.Lock()
	old, had := m.values[key]
	if had && reflect.DeepEqual(old, value) {
		m.mu.Unlock()
		return
	}
	m.values[key] = value
	m.mu.Unlock()

	m.notify(key, old, value)
}

// Delete removes key and notifies subscribers if it was present.
func (m *MemoryStore) Delete(key string) {
	m.mu.Lock()
	old, had := m.values[key]
	if !had {
		m.mu.Unlock()
		return
	}
	delete(m.values, key)
	m.mu.Unlock()

	m.notify(key, old, nil)
}

// Snapshot returns a copy of the stored values.
func (m *MemoryStore) Snapshot() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.values)
}

// replace swaps in a whole new value set and notifies once per key whose value
// differs, in key order.
func (m *MemoryStore) replace(next map[string]any) {
	m.mu.Lock()
	prev := m.values
	m.values = maps.Clone(next)
	m.mu.Unlock()

	keys := make([]string, 0, len(prev)+len(next))
	for k := range prev {
		keys = append(keys, k)
	}
	for k := range next {
		if _, ok := prev[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		if reflect.DeepEqual(prev[k], next[k]) {
			continue
		}
		m.notify(k, prev[k], next[k])
	}
}

// notify calls every subscriber with a snapshot of the subscriber set, in
// subscription order.
func (m *MemoryStore) notify(key string, old, new any) {
	m.mu.Lock()
	ids := make([]uint64, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]ChangeFunc, len(ids))
	for i, id := range ids {
		fns[i] = m.subs[id]
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(key, old, new)
	}
}

// ///////////////////////////////////////////////
// MemoryScopes
// ///////////////////////////////////////////////

// MemoryScopes is a [ScopeProvider] over in-memory stores, created on first
// use.
type MemoryScopes struct {
	mu     sync.Mutex
	stores map[ScopeRef]*MemoryStore
}

// ScopeStore implements [ScopeProvider].
func (m *MemoryScopes) ScopeStore(scope ScopeRef) (Store, error) {
	return m.Store(scope)
}

// Store returns the concrete store for scope.
func (m *MemoryScopes) Store(scope ScopeRef) (*MemoryStore, error) {
	if !scope.Valid() {
		return nil, ErrInvalidScope
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stores == nil {
		m.stores = make(map[ScopeRef]*MemoryStore)
	}
	st, ok := m.stores[scope]
	if !ok {
		st = NewMemoryStore()
		m.stores[scope] = st
	}
	return st, nil
}
