//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// signalChannel delivers SIGINT and SIGTERM, the stop signals of a terminal
// and of service managers.
func signalChannel() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch
}
