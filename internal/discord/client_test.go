package discord

import (
	"errors"
	"net"
	"testing"
	"time"
)

// ///////////////////////////////////////////////
// Test Helpers
// ///////////////////////////////////////////////

// pipeDialer returns a dialer backed by net.Pipe. Each dial hands the server
// end to reply, which runs on its own goroutine, and then to the servers
// channel.
func pipeDialer(t *testing.T, reply func(server net.Conn)) (Dialer, <-chan net.Conn) {
	t.Helper()
	servers := make(chan net.Conn, 4)
	return func() (net.Conn, error) {
		server, client := net.Pipe()
		t.Cleanup(func() { server.Close(); client.Close() })
		go func() {
			reply(server)
			servers <- server
		}()
		return client, nil
	}, servers
}

// ready consumes the handshake and answers READY.
func ready(server net.Conn) {
	if _, err := ReadFrame(server); err != nil {
		return
	}
	_ = WriteJSON(server, OpFrame, map[string]any{"cmd": "DISPATCH", "evt": "READY"})
}

func connected(t *testing.T) (*Client, net.Conn) {
	t.Helper()
	dial, servers := pipeDialer(t, ready)
	c := newClientWithDialer("app-1", dial)
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	select {
	case server := <-servers:
		return c, server
	case <-time.After(2 * time.Second):
		t.Fatal("server never finished the handshake")
		return nil, nil
	}
}

type command struct {
	Cmd   string `json:"cmd"`
	Nonce string `json:"nonce"`
	Args  struct {
		PID      int       `json:"pid"`
		Activity *Activity `json:"activity"`
	} `json:"args"`
}

func readCommand(t *testing.T, server net.Conn) command {
	t.Helper()
	f, err := ReadFrame(server)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if f.Op != OpFrame {
		t.Fatalf("opcode = %v, want FRAME", f.Op)
	}
	var cmd command
	if err := f.Decode(&cmd); err != nil {
		t.Fatal(err)
	}
	return cmd
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// ///////////////////////////////////////////////
// Handshake
// ///////////////////////////////////////////////

func TestClientHandshakePayload(t *testing.T) {
	got := make(chan map[string]any, 1)
	dial, _ := pipeDialer(t, func(server net.Conn) {
		f, err := ReadFrame(server)
		if err != nil {
			return
		}
		var m map[string]any
		_ = f.Decode(&m)
		m["op"] = f.Op
		got <- m
		_ = WriteJSON(server, OpFrame, map[string]any{"evt": "READY"})
	})

	c := newClientWithDialer("app-1", dial)
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	m := <-got
	if m["op"] != OpHandshake {
		t.Errorf("opcode = %v, want HANDSHAKE", m["op"])
	}
	if m["client_id"] != "app-1" {
		t.Errorf("client_id = %v", m["client_id"])
	}
	if v, _ := m["v"].(float64); v != 1 {
		t.Errorf("v = %v", m["v"])
	}
	if !c.Connected() {
		t.Error("client should be connected")
	}
}

func TestClientHandshakeFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply func(server net.Conn)
	}{
		{"rejected", func(server net.Conn) {
			_, _ = ReadFrame(server)
			_ = WriteJSON(server, OpFrame, map[string]any{"evt": "ERROR", "data": map[string]any{"message": "Invalid Client ID"}})
		}},
		{"closed", func(server net.Conn) {
			_, _ = ReadFrame(server)
			_ = WriteJSON(server, OpClose, map[string]any{"code": 4000, "message": "bye"})
		}},
		{"wrong opcode", func(server net.Conn) {
			_, _ = ReadFrame(server)
			_ = WriteJSON(server, OpPong, map[string]any{})
		}},
		{"hang up", func(server net.Conn) {
			_, _ = ReadFrame(server)
			server.Close()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dial, _ := pipeDialer(t, tt.reply)
			c := newClientWithDialer("app-1", dial)
			if err := c.Connect(); err == nil {
				t.Fatal("Connect should fail")
			}
			if c.Connected() {
				t.Error("failed handshake must not leave a socket")
			}
		})
	}
}

func TestClientDialError(t *testing.T) {
	c := newClientWithDialer("app-1", func() (net.Conn, error) { return nil, ErrIPCNotAvailable })
	if err := c.Connect(); !errors.Is(err, ErrIPCNotAvailable) {
		t.Errorf("Connect = %v, want ErrIPCNotAvailable", err)
	}
}

// ///////////////////////////////////////////////
// Commands
// ///////////////////////////////////////////////

func TestClientSetActivity(t *testing.T) {
	c, server := connected(t)

	activity := &Activity{
		Details:    "Editing Foo.java",
		State:      "Working on Bar",
		Timestamps: &Timestamps{Start: 1_700_000_000},
		Assets:     &Assets{LargeImage: "java", LargeText: "Programming in Java"},
	}
	done := make(chan error, 1)
	go func() { done <- c.SetActivity(activity) }()

	cmd := readCommand(t, server)
	if err := <-done; err != nil {
		t.Fatalf("SetActivity: %v", err)
	}
	if cmd.Cmd != "SET_ACTIVITY" || cmd.Nonce != "1" {
		t.Errorf("cmd = %q nonce = %q", cmd.Cmd, cmd.Nonce)
	}
	if cmd.Args.PID == 0 {
		t.Error("pid missing")
	}
	if cmd.Args.Activity == nil || cmd.Args.Activity.Details != "Editing Foo.java" || cmd.Args.Activity.Assets.LargeImage != "java" {
		t.Errorf("activity = %+v", cmd.Args.Activity)
	}

	go func() { done <- c.ClearActivity() }()
	cmd = readCommand(t, server)
	<-done
	if cmd.Args.Activity != nil {
		t.Errorf("clear sent %+v", cmd.Args.Activity)
	}
	if cmd.Nonce != "2" {
		t.Errorf("second nonce = %q, want 2", cmd.Nonce)
	}
}

func TestClientNotConnected(t *testing.T) {
	c := NewClient("app-1")
	if err := c.SetActivity(&Activity{}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SetActivity = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on a fresh client = %v", err)
	}
	if c.Connected() {
		t.Error("fresh client reports connected")
	}
	if c.AppID() != "app-1" {
		t.Errorf("AppID = %q", c.AppID())
	}
}

// ///////////////////////////////////////////////
// Reader
// ///////////////////////////////////////////////

func TestClientAnswersPing(t *testing.T) {
	_, server := connected(t)

	if err := WriteJSON(server, OpPing, map[string]any{"n": 7}); err != nil {
		t.Fatal(err)
	}
	f, err := ReadFrame(server)
	if err != nil {
		t.Fatal(err)
	}
	if f.Op != OpPong {
		t.Fatalf("opcode = %v, want PONG", f.Op)
	}
	var body struct{ N int }
	if err := f.Decode(&body); err != nil || body.N != 7 {
		t.Errorf("pong payload = %s", f.Payload)
	}
}

func TestClientNoticesHangUp(t *testing.T) {
	c, server := connected(t)
	server.Close()
	waitFor(t, "disconnect", func() bool { return !c.Connected() })
}

func TestClientNoticesCloseFrame(t *testing.T) {
	c, server := connected(t)
	if err := WriteJSON(server, OpClose, map[string]any{"code": 1000}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "disconnect", func() bool { return !c.Connected() })
}
