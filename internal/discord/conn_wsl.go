//go:build linux

package discord

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Under WSL2 Discord runs on the Windows side and its named pipe is only
// reachable through a relay such as:
//
//	socat UNIX-LISTEN:/tmp/discord-ipc-0,fork EXEC:"npiperelay.exe -ep -s //./pipe/discord-ipc-0"
//
// The relay's socket paths are added to discovery when WSL is detected.

var (
	wslOnce sync.Once
	wsl     bool
)

// isWSL reports whether the process runs inside WSL. The answer is cached.
func isWSL() bool {
	wslOnce.Do(func() {
		data, err := os.ReadFile("/proc/version")
		wsl = err == nil && strings.Contains(strings.ToLower(string(data)), "microsoft")
	})
	return wsl
}

// wslSocketPaths returns relay socket locations, or nil outside WSL.
func wslSocketPaths() []string {
	if !isWSL() {
		return nil
	}
	paths := make([]string, 0, 2*ipcSlots)
	for _, dir := range []string{"/tmp", "/mnt/wslg/runtime-dir"} {
		for i := range ipcSlots {
			paths = append(paths, fmt.Sprintf("%s/discord-ipc-%d", dir, i))
		}
	}
	return paths
}
