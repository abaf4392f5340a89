// Package identity keeps the presence sink connected under the application
// identity implied by the current preferences, touching the connection only
// when the resolved identity actually changes.
package identity

import (
	"log/slog"

	"tools.zach/dev/idecord/internal/prefs"
	"tools.zach/dev/idecord/internal/presence"
)

// DefaultIdentity is the Discord application ID used when no custom identity
// is configured. The daemon config can override it.
const DefaultIdentity = "1297185478193692734"

// Sink is the external presence display. Implementations report their
// connection state synchronously.
type Sink interface {
	Initialize(id string)
	IsConnected() bool
	IsConnectedTo(id string) bool
	Show(p presence.Presence)
	ShowNothing()
	Shutdown()
}

// ///////////////////////////////////////////////
// Targets
// ///////////////////////////////////////////////

// TargetKind classifies a [Target].
type TargetKind int

const (
	// TargetDisconnected means presence is hidden and the sink should be shut.
	TargetDisconnected TargetKind = iota
	// TargetConnect means the sink should be connected to Target.ID.
	TargetConnect
	// TargetInvalid means a custom identity is enabled but empty. Nothing is
	// done until one is configured.
	TargetInvalid
)

func (k TargetKind) String() string {
	switch k {
	case TargetDisconnected:
		return "disconnected"
	case TargetConnect:
		return "connect"
	case TargetInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Target is the connection state the preferences call for.
type Target struct {
	Kind TargetKind
	ID   string
}

// TargetFor computes the target for p, with def as the default identity.
func TargetFor(p prefs.Effective, def string) Target {
	if !p.ShowsPresence {
		return Target{Kind: TargetDisconnected}
	}
	if p.UsesCustomIdentity {
		if p.CustomIdentity == "" {
			return Target{Kind: TargetInvalid}
		}
		return Target{Kind: TargetConnect, ID: p.CustomIdentity}
	}
	return Target{Kind: TargetConnect, ID: def}
}

// ///////////////////////////////////////////////
// Synchronizer
// ///////////////////////////////////////////////

// Transition reports what [Synchronizer.Apply] did to the sink.
type Transition int

const (
	NoChange Transition = iota
	Disconnected
	// Connected means the sink was (re)initialized and blanked. The caller
	// must show the real presence next.
	Connected
)

func (t Transition) String() string {
	switch t {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	default:
		return "no change"
	}
}

// Synchronizer drives a [Sink] towards the target of each preference view it
// is given. It is not safe for concurrent use; the dispatcher serializes
// calls.
type Synchronizer struct {
	sink      Sink
	defaultID string
	log       *slog.Logger
}

// NewSynchronizer returns a synchronizer for sink. An empty defaultID means
// [DefaultIdentity]; a nil log means slog.Default().
func NewSynchronizer(sink Sink, defaultID string, log *slog.Logger) *Synchronizer {
	if defaultID == "" {
		defaultID = DefaultIdentity
	}
	if log == nil {
		log = slog.Default()
	}
	return &Synchronizer{sink: sink, defaultID: defaultID, log: log}
}

// Target returns the target for p under this synchronizer's default identity.
func (s *Synchronizer) Target(p prefs.Effective) Target {
	return TargetFor(p, s.defaultID)
}

// Apply makes the sink match the target for p:
//
//   - Disconnected: shut down if connected.
//   - Connect(id) while already connected to id: nothing.
//   - Connect(id) otherwise: shut down if connected, initialize id, then
//     show nothing.
//   - Invalid: nothing.
func (s *Synchronizer) Apply(p prefs.Effective) Transition {
	target := s.Target(p)
	switch target.Kind {
	case TargetDisconnected:
		if !s.sink.IsConnected() {
			return NoChange
		}
		s.log.Info("presence hidden, shutting down connection")
		s.sink.Shutdown()
		return Disconnected

	case TargetConnect:
		if s.sink.IsConnectedTo(target.ID) {
			return NoChange
		}
		if s.sink.IsConnected() {
			s.log.Info("identity changed, reconnecting", "app_id", target.ID)
			s.sink.Shutdown()
		} else {
			s.log.Info("connecting", "app_id", target.ID)
		}
		s.sink.Initialize(target.ID)
		s.sink.ShowNothing()
		return Connected

	default:
		s.log.Debug("custom identity enabled but not configured, leaving connection untouched")
		return NoChange
	}
}

// CanShow reports whether a presence may be shown under p: the target is a
// concrete identity and the sink is connected to it.
func (s *Synchronizer) CanShow(p prefs.Effective) bool {
	target := s.Target(p)
	return target.Kind == TargetConnect && s.sink.IsConnectedTo(target.ID)
}
