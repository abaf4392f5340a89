// Package main implements the idecord daemon, which follows the user's IDE
// activity and mirrors it into a Discord Rich Presence card.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"
	rootpkg "tools.zach/dev/idecord"
	"tools.zach/dev/idecord/internal/config"
	"tools.zach/dev/idecord/internal/discord"
	"tools.zach/dev/idecord/internal/dispatch"
	"tools.zach/dev/idecord/internal/hostevents"
	"tools.zach/dev/idecord/internal/identity"
	"tools.zach/dev/idecord/internal/logger"
	"tools.zach/dev/idecord/internal/paths"
	"tools.zach/dev/idecord/internal/prefs"
	"tools.zach/dev/idecord/internal/synth"
	"tools.zach/dev/idecord/internal/update"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via -X main.version=...
var version = "dev"

// resolveVersion returns the ldflags version, or "dev+<hash>" built from the
// VCS info the toolchain embeds.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	return versionFromSettings(info.Settings)
}

func versionFromSettings(settings []debug.BuildSetting) string {
	var revision string
	var dirty bool
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	tag := "dev+" + revision[:min(7, len(revision))]
	if dirty {
		tag += ".dirty"
	}
	return tag
}

// ///////////////////////////////////////////////
// Flags
// ///////////////////////////////////////////////

// options are the command-line flags.
type options struct {
	dataDir     string
	events      string
	tailLog     int
	foreground  bool
	showVersion bool
}

// defaultDataDir returns ~/.idecord, or ./.idecord without a home directory.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", paths.DataDirRel)
	}
	return filepath.Join(home, paths.DataDirRel)
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var o options
	fs.StringVar(&o.dataDir, "data-dir", defaultDataDir(), "Data directory for config, preferences, and logs")
	fs.StringVar(&o.events, "events", "", "Host event source: \"stdin\" or a file/FIFO path (overrides events.source)")
	fs.IntVar(&o.tailLog, "tail-log", 0, "Print the last N lines of the daemon log and exit")
	fs.BoolVar(&o.foreground, "foreground", false, "Mirror log output to stderr")
	fs.BoolVar(&o.showVersion, "version", false, "Print the version and exit")
	err := fs.Parse(args)
	return o, err
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run starts the daemon and returns the process exit code.
func run(opts options) int {
	if opts.showVersion {
		fmt.Println(resolveVersion())
		return 0
	}

	dirs := paths.DataDir{Root: opts.dataDir}
	if opts.tailLog > 0 {
		out, err := logger.ReadTail(dirs.Log(), opts.tailLog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read log: %v\n", err)
			return 1
		}
		fmt.Println(out)
		return 0
	}

	if err := os.MkdirAll(dirs.Root, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: create data dir: %v\n", err)
		return 1
	}
	if alive, pid := checkStalePID(dirs); alive {
		fmt.Fprintf(os.Stderr, "daemon already running (pid %d)\n", pid)
		return 1
	}

	if _, err := config.WriteDefault(dirs.Config(), rootpkg.DefaultConfigTOML); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	cfg, err := config.Load(dirs.Config())
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: load config: %v\n", err)
		return 1
	}
	if opts.events != "" {
		cfg.Events.Source = opts.events
	}

	logOpts := logger.Options{Path: dirs.Log(), Level: logger.ParseLevel(cfg.Log.Level), MaxSizeMB: cfg.Log.MaxSizeMB}
	if opts.foreground {
		logOpts.Mirror = os.Stderr
	}
	log, logCloser := logger.New(logOpts)
	defer logCloser.Close()
	slog.SetDefault(log)

	ver := resolveVersion()
	log.Info("idecord starting", "version", ver, "data_dir", dirs.Root, "events", cfg.Events.Source)

	token := pidToken()
	pidFile, err := writePID(dirs, token)
	if err != nil {
		logger.Fail(log, "failed to write PID file", "error", err)
		return 1
	}
	defer removePID(dirs, token, pidFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Update.Check {
		go checkForUpdate(ctx, update.NewChecker(cfg.Update.ManifestURL, logger.For(log, "update")), ver)
	}

	d, cleanup, err := wire(cfg, dirs, log)
	if err != nil {
		logger.Fail(log, "startup failed", "error", err)
		return 1
	}
	defer cleanup()

	reader, err := hostevents.Open(cfg.Events.Source, logger.For(log, "hostevents"))
	if err != nil {
		logger.Fail(log, "cannot open event source", "error", err)
		return 1
	}

	g, gctx := errgroup.WithContext(ctx)
	events := make(chan hostevents.Event, 16)
	g.Go(func() error {
		defer close(events)
		return reader.Run(gctx, events)
	})

	reconnect := time.NewTicker(cfg.ReconnectInterval())
	defer reconnect.Stop()

	d.loop(loopInputs{
		events:  events,
		prefs:   d.watcher.Events(),
		heal:    reconnect.C,
		signals: signalChannel(),
	})

	cancel()
	waitReader(g, log)
	log.Info("idecord stopped")
	return 0
}

// checkForUpdate runs the release check, never letting a failure escape.
func checkForUpdate(ctx context.Context, c *update.Checker, ver string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("update check panic", "error", r)
		}
	}()
	c.Check(ctx, ver)
}

// waitReader gives the event reader a moment to unwind. A read blocked on a
// terminal stdin cannot always be interrupted, so the daemon does not wait
// forever.
func waitReader(g *errgroup.Group, log *slog.Logger) {
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		if err != nil && err != context.Canceled {
			log.Warn("event reader stopped", "error", err)
		}
	case <-time.After(2 * time.Second):
		log.Debug("event reader still blocked, not waiting")
	}
}

// ///////////////////////////////////////////////
// Wiring
// ///////////////////////////////////////////////

// wire builds the preference stores, the Discord sink and the dispatcher.
// cleanup releases them in reverse order.
func wire(cfg *config.Config, dirs paths.DataDir, log *slog.Logger) (*daemon, func(), error) {
	prefsLog := logger.For(log, "prefs")
	store, err := prefs.OpenDirectory(dirs, prefsLog)
	if err != nil {
		return nil, nil, fmt.Errorf("open preferences: %w", err)
	}
	if err := store.WriteDefaults(); err != nil {
		prefsLog.Warn("could not write default preferences", "error", err)
	}
	global := prefs.NewGlobal(store.Global(), store, prefsLog)

	watcher, err := prefs.NewWatcher(cfg.PollInterval(), dirs.Root, dirs.Scopes())
	if err != nil {
		global.Close()
		return nil, nil, fmt.Errorf("watch preferences: %w", err)
	}
	if watcher.Polling() {
		prefsLog.Info("using polling mode for preference files")
	}

	sink := discord.NewSink(discord.SinkOptions{
		ShutdownGrace: cfg.ShutdownGrace(),
		SmallImage:    cfg.Discord.SmallImage,
		SmallText:     cfg.Discord.SmallText,
		Logger:        logger.For(log, "discord"),
	})
	synchronizer := identity.NewSynchronizer(sink, cfg.Discord.AppID, logger.For(log, "identity"))
	dispatcher := dispatch.New(global, synth.New(nil, global), synchronizer, sink,
		dispatch.WithLogger(logger.For(log, "dispatch")))

	d := &daemon{
		log:        log,
		dispatcher: dispatcher,
		reloader:   store,
		healer:     sink,
		watcher:    watcher,
	}
	cleanup := func() {
		dispatcher.Stop()
		sink.Close()
		watcher.Close()
		global.Close()
	}
	return d, cleanup, nil
}
