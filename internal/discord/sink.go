package discord

import (
	"log/slog"
	"sync"
	"time"

	"tools.zach/dev/idecord/internal/presence"
)

// ipcClient is the part of [Client] the sink uses.
type ipcClient interface {
	Connect() error
	SetActivity(a *Activity) error
	ClearActivity() error
	Close() error
	Connected() bool
}

// SinkOptions configures a [Sink].
type SinkOptions struct {
	// ShutdownGrace delays closing the socket after Shutdown, so a quick
	// switch back to the same identity reuses it.
	ShutdownGrace time.Duration
	// SmallImage is the asset key of the small corner icon; empty hides it.
	SmallImage string
	// SmallText is the tooltip of the small icon.
	SmallText string
	Logger    *slog.Logger
}

// Sink is a presence sink backed by the Discord IPC socket.
//
// Its connection state is the identity requested through Initialize, not the
// socket state: a failed dial still reports IsConnectedTo(id), and the
// socket is established later by [Sink.Heal].
type Sink struct {
	opts      SinkOptions
	newClient func(appID string) ipcClient

	mu sync.Mutex
	// requested is the identity of the last Initialize; empty after Shutdown.
	requested string
	client    ipcClient
	clientID  string
	// closing is the pending grace-period close of client, if any.
	closing *time.Timer
	// last is the activity to restore after a reconnect; nil when blank.
	last *Activity
}

// NewSink returns a disconnected sink.
func NewSink(opts SinkOptions) *Sink {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Sink{
		opts:      opts,
		newClient: func(appID string) ipcClient { return NewClient(appID) },
	}
}

// Initialize connects under id. A socket still open for id from a recent
// Shutdown is reused; a socket for another identity is closed.
func (s *Sink) Initialize(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requested = id
	s.last = nil

	if s.client != nil && s.clientID == id {
		if s.closing != nil {
			s.closing.Stop()
			s.closing = nil
			s.opts.Logger.Debug("reusing discord connection within grace period", "app_id", id)
		}
		if s.client.Connected() {
			return
		}
	} else {
		s.closeClientLocked()
		s.client = s.newClient(id)
		s.clientID = id
	}

	if err := s.client.Connect(); err != nil {
		s.opts.Logger.Warn("discord connect failed, will retry", "app_id", id, "error", err)
		return
	}
	s.opts.Logger.Info("connected to discord", "app_id", id)
}

// IsConnected reports whether an identity is requested.
func (s *Sink) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requested != ""
}

// IsConnectedTo reports whether id is the requested identity.
func (s *Sink) IsConnectedTo(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return id != "" && s.requested == id
}

// Show sends p as the current activity.
func (s *Sink) Show(p presence.Presence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requested == "" {
		return
	}
	s.last = ActivityFor(p, s.opts.SmallImage, s.opts.SmallText)
	s.sendLocked()
}

// ShowNothing clears the activity.
func (s *Sink) ShowNothing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = nil
	if s.client == nil || !s.client.Connected() {
		return
	}
	if err := s.client.ClearActivity(); err != nil {
		s.opts.Logger.Debug("discord clear activity failed", "error", err)
	}
}

// Shutdown clears the activity at once and closes the socket after the
// grace period.
func (s *Sink) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requested = ""
	s.last = nil
	if s.client == nil {
		return
	}
	if s.client.Connected() {
		if err := s.client.ClearActivity(); err != nil {
			s.opts.Logger.Debug("discord clear activity failed", "error", err)
		}
	}
	if s.opts.ShutdownGrace <= 0 {
		s.closeClientLocked()
		return
	}
	if s.closing != nil {
		return
	}
	client := s.client
	var timer *time.Timer
	timer = time.AfterFunc(s.opts.ShutdownGrace, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closing != timer || s.client != client {
			return
		}
		s.closing = nil
		s.closeClientLocked()
		s.opts.Logger.Debug("discord connection closed after grace period")
	})
	s.closing = timer
}

// Heal re-dials the requested identity when its socket is down and restores
// the last activity. It reports whether a reconnect happened.
func (s *Sink) Heal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.requested == "" {
		return false
	}
	if s.client != nil && s.client.Connected() {
		return false
	}
	if s.client == nil || s.clientID != s.requested {
		s.client = s.newClient(s.requested)
		s.clientID = s.requested
	}
	if err := s.client.Connect(); err != nil {
		s.opts.Logger.Debug("discord reconnect failed", "app_id", s.requested, "error", err)
		return false
	}
	s.opts.Logger.Info("reconnected to discord", "app_id", s.requested)
	s.sendLocked()
	return true
}

// Close tears the socket down immediately. Used on daemon exit.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requested = ""
	s.last = nil
	s.closeClientLocked()
}

// sendLocked pushes s.last when the socket is up. A write failure drops the
// socket so the next Heal reconnects.
func (s *Sink) sendLocked() {
	if s.last == nil || s.client == nil || !s.client.Connected() {
		return
	}
	if err := s.client.SetActivity(s.last); err != nil {
		s.opts.Logger.Warn("discord set activity failed", "error", err)
		_ = s.client.Close()
	}
}

func (s *Sink) closeClientLocked() {
	if s.closing != nil {
		s.closing.Stop()
		s.closing = nil
	}
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.opts.Logger.Debug("discord close failed", "error", err)
		}
	}
	s.client = nil
	s.clientID = ""
}

// ///////////////////////////////////////////////
// Mapping
// ///////////////////////////////////////////////

// ActivityFor maps a presence onto a Discord activity. The language tag's
// asset key is the large image and the hover text its tooltip.
func ActivityFor(p presence.Presence, smallImage, smallText string) *Activity {
	a := &Activity{}
	a.Details, _ = p.Details()
	a.State, _ = p.State()
	if start, ok := p.Start(); ok {
		a.Timestamps = &Timestamps{Start: start.Unix()}
	}

	var assets Assets
	if tag, ok := p.Language(); ok {
		assets.LargeImage = tag.AssetKey()
	}
	assets.LargeText, _ = p.HoverText()
	if smallImage != "" {
		assets.SmallImage = smallImage
		assets.SmallText = smallText
	}
	if assets != (Assets{}) {
		a.Assets = &assets
	}
	return a
}
