//go:build !windows

package discord

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
)

// socketEnv names an explicit socket path that is tried before discovery.
const socketEnv = "IDECORD_DISCORD_IPC"

// Socket prefixes of the stable, Canary and PTB builds.
var ipcPrefixes = []string{"discord-ipc", "discordcanary-ipc", "discordptb-ipc"}

// sandboxDirs are the per-user runtime subdirectories used by Snap and
// Flatpak packages.
var sandboxDirs = []string{
	"snap.discord",
	"snap.discord-canary",
	"snap.discord-ptb",
	"app/com.discordapp.Discord",
	"app/com.discordapp.DiscordCanary",
	"app/com.discordapp.DiscordPTB",
}

// socketCandidates lists every path Discord may listen on, most likely
// first, without duplicates.
func socketCandidates() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	if p := os.Getenv(socketEnv); p != "" {
		add(p)
	}

	var bases []string
	for _, env := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if dir := os.Getenv(env); dir != "" {
			bases = append(bases, dir)
		}
	}
	bases = append(bases, "/tmp")
	for _, base := range bases {
		for _, prefix := range ipcPrefixes {
			for i := range ipcSlots {
				add(filepath.Join(base, fmt.Sprintf("%s-%d", prefix, i)))
			}
		}
	}

	runUser := filepath.Join("/run/user", strconv.Itoa(os.Getuid()))
	for _, dir := range sandboxDirs {
		for i := range ipcSlots {
			add(filepath.Join(runUser, dir, fmt.Sprintf("discord-ipc-%d", i)))
		}
	}

	for _, p := range wslSocketPaths() {
		add(p)
	}
	return out
}

// connectToDiscord dials the first candidate socket that accepts.
func connectToDiscord() (net.Conn, error) {
	for _, p := range socketCandidates() {
		if conn, err := net.Dial("unix", p); err == nil {
			return conn, nil
		}
	}
	if isWSL() {
		return nil, fmt.Errorf("%w: under WSL a socat + npiperelay.exe relay is needed", ErrIPCNotAvailable)
	}
	return nil, ErrIPCNotAvailable
}
