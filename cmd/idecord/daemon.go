package main

import (
	"log/slog"
	"os"
	"time"

	"tools.zach/dev/idecord/internal/dispatch"
	"tools.zach/dev/idecord/internal/hostevents"
	"tools.zach/dev/idecord/internal/prefs"
)

// ///////////////////////////////////////////////
// Event Loop
// ///////////////////////////////////////////////

// reloader re-reads the preference documents. [*prefs.Directory] implements
// it.
type reloader interface {
	ReloadAll()
}

// healer re-dials a dropped Discord socket. [*discord.Sink] implements it.
type healer interface {
	Heal() bool
}

// daemon owns the main loop. Every core transition happens on the loop's
// goroutine: host events, preference reloads and reconnects.
type daemon struct {
	log        *slog.Logger
	dispatcher *dispatch.Dispatcher
	reloader   reloader
	healer     healer
	watcher    *prefs.Watcher
}

// loopInputs are the channels the loop selects over.
type loopInputs struct {
	events  <-chan hostevents.Event
	prefs   <-chan struct{}
	heal    <-chan time.Time
	signals <-chan os.Signal
}

// loop runs until a signal arrives or the host event stream ends.
func (d *daemon) loop(in loopInputs) {
	for {
		select {
		case <-in.signals:
			d.log.Info("received shutdown signal")
			return

		case ev, ok := <-in.events:
			if !ok {
				d.log.Info("host event stream ended, shutting down")
				return
			}
			d.handle(ev)

		case <-in.prefs:
			d.log.Debug("preference files changed, reloading")
			d.reloader.ReloadAll()

		case <-in.heal:
			if d.healer.Heal() {
				d.log.Debug("refreshing presence after reconnect")
				d.dispatcher.Refresh()
			}
		}
	}
}

// handle routes one host event to the dispatcher.
func (d *daemon) handle(ev hostevents.Event) {
	switch ev.Op {
	case hostevents.OpActivate:
		d.dispatcher.Activate(ev.Resource)
	case hostevents.OpClose:
		d.dispatcher.Close(ev.Resource)
	default:
		d.log.Warn("ignoring host event", "op", string(ev.Op))
	}
}
