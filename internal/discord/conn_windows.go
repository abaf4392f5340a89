//go:build windows

package discord

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/Microsoft/go-winio"
)

// socketEnv names an explicit pipe path that is tried before discovery.
const socketEnv = "IDECORD_DISCORD_IPC"

// pipeDialTimeout bounds each pipe attempt.
const pipeDialTimeout = 500 * time.Millisecond

func socketCandidates() []string {
	var out []string
	if p := os.Getenv(socketEnv); p != "" {
		out = append(out, p)
	}
	for i := range ipcSlots {
		out = append(out, fmt.Sprintf(`\\.\pipe\discord-ipc-%d`, i))
	}
	return out
}

// connectToDiscord dials the first named pipe that accepts.
func connectToDiscord() (net.Conn, error) {
	timeout := pipeDialTimeout
	for _, p := range socketCandidates() {
		if conn, err := winio.DialPipe(p, &timeout); err == nil {
			return conn, nil
		}
	}
	return nil, ErrIPCNotAvailable
}
