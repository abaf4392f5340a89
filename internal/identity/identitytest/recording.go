// Package identitytest provides an in-memory presence sink that records every
// call, for tests of code driving an identity.Sink.
package identitytest

import (
	"fmt"
	"sync"

	"tools.zach/dev/idecord/internal/presence"
)

// Call is one recorded sink call, e.g. "initialize(42)", "show", "showNothing"
// or "shutdown".
type Call struct {
	Op       string
	ID       string
	Presence presence.Presence
}

func (c Call) String() string {
	if c.ID != "" {
		return fmt.Sprintf("%s(%s)", c.Op, c.ID)
	}
	return c.Op
}

// Sink records calls and tracks the connection state like a real sink.
type Sink struct {
	mu        sync.Mutex
	connected bool
	id        string
	calls     []Call
	shown     *presence.Presence
}

// Connected returns a sink that starts connected to id.
func Connected(id string) *Sink {
	return &Sink{connected: true, id: id}
}

func (s *Sink) Initialize(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected, s.id = true, id
	s.calls = append(s.calls, Call{Op: "initialize", ID: id})
}

func (s *Sink) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Sink) IsConnectedTo(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected && s.id == id
}

func (s *Sink) Show(p presence.Presence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = &p
	s.calls = append(s.calls, Call{Op: "show", Presence: p})
}

func (s *Sink) ShowNothing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = nil
	s.calls = append(s.calls, Call{Op: "showNothing"})
}

func (s *Sink) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected, s.id = false, ""
	s.shown = nil
	s.calls = append(s.calls, Call{Op: "shutdown"})
}

// Calls returns the recorded calls.
func (s *Sink) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Ops returns the recorded calls in their String form.
func (s *Sink) Ops() []string {
	calls := s.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// Shown returns the presence currently displayed, if any.
func (s *Sink) Shown() (presence.Presence, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shown == nil {
		return presence.Presence{}, false
	}
	return *s.shown, true
}

// Reset forgets the recorded calls but keeps the connection state.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}
