package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"tools.zach/dev/idecord/internal/paths"
)

// ///////////////////////////////////////////////
// PID Management
// ///////////////////////////////////////////////

// The PID file holds "PID:TOKEN". The token proves which instance wrote the
// file, so a daemon never removes a file that another instance now owns.

func pidToken() string {
	return uuid.NewString()
}

// parsePIDFile splits PID file content. pid is 0 when it does not parse.
func parsePIDFile(data string) (pid int, token string) {
	head, tail, _ := strings.Cut(strings.TrimSpace(data), ":")
	pid, _ = strconv.Atoi(head)
	return pid, tail
}

// writePID creates the PID file, takes the advisory lock and writes our
// content. The returned file must stay open for the daemon's lifetime to
// keep the lock.
func writePID(dirs paths.DataDir, token string) (*os.File, error) {
	f, err := os.OpenFile(dirs.PID(), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open PID file: %w", err)
	}
	fail := func(step string, err error) (*os.File, error) {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("%s PID file: %w", step, err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock PID file: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		return fail("truncate", err)
	}
	if _, err := f.WriteAt([]byte(fmt.Sprintf("%d:%s", os.Getpid(), token)), 0); err != nil {
		return fail("write", err)
	}
	return f, nil
}

// removePID releases the lock and deletes the PID file if it still carries
// token.
func removePID(dirs paths.DataDir, token string, f *os.File) {
	if f != nil {
		_ = unlockFile(f)
		f.Close()
	}
	data, err := os.ReadFile(dirs.PID())
	if err != nil {
		return
	}
	if _, owner := parsePIDFile(string(data)); owner == token {
		os.Remove(dirs.PID())
	}
}

// checkStalePID reports whether another daemon holds the PID lock. A PID
// file whose lock can be taken belongs to a dead instance and is removed.
func checkStalePID(dirs paths.DataDir) (alive bool, pid int) {
	f, err := os.OpenFile(dirs.PID(), os.O_RDWR, 0o600)
	if err != nil {
		return false, 0
	}
	defer f.Close()

	if lockErr := lockFile(f); lockErr != nil {
		data, _ := os.ReadFile(dirs.PID())
		pid, _ := parsePIDFile(string(data))
		return true, pid
	}

	_ = unlockFile(f)
	os.Remove(dirs.PID())
	return false, 0
}
