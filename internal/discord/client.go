// Package discord talks to the local Discord client over its IPC socket and
// exposes it as a presence sink.
//
// [Client] owns one socket: handshake, SET_ACTIVITY commands and a reader
// that notices when Discord goes away. [Sink] layers the presence sink
// contract on top: identity switching, a teardown grace period and
// reconnection. Socket discovery lives in the conn_*.go files.
package discord

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
)

// ErrNotConnected is returned when a command is sent without a socket.
var ErrNotConnected = errors.New("not connected")

// ///////////////////////////////////////////////
// Activity
// ///////////////////////////////////////////////

// Timestamps holds the elapsed-time anchor in Unix seconds.
type Timestamps struct {
	Start int64 `json:"start,omitempty"`
}

// Assets holds art asset keys and their tooltips.
type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// Activity is the SET_ACTIVITY payload.
type Activity struct {
	Details    string      `json:"details,omitempty"`
	State      string      `json:"state,omitempty"`
	Timestamps *Timestamps `json:"timestamps,omitempty"`
	Assets     *Assets     `json:"assets,omitempty"`
}

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// Dialer opens a raw IPC socket.
type Dialer func() (net.Conn, error)

// Client is one IPC connection under one application ID.
type Client struct {
	appID string
	dial  Dialer

	// mu guards conn and nonce.
	mu    sync.Mutex
	conn  net.Conn
	nonce uint64
}

// NewClient returns a client for appID using platform socket discovery.
func NewClient(appID string) *Client {
	return &Client{appID: appID, dial: connectToDiscord}
}

// newClientWithDialer is used by tests to plug in a pipe.
func newClientWithDialer(appID string, dial Dialer) *Client {
	return &Client{appID: appID, dial: dial}
}

// AppID returns the application ID the client handshakes with.
func (c *Client) AppID() string { return c.appID }

// Connect dials, handshakes and starts the reader. An existing socket is
// closed first.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	conn, err := c.dial()
	if err != nil {
		return err
	}
	if err := c.handshake(conn); err != nil {
		conn.Close()
		return err
	}
	c.conn = conn
	go c.read(conn)
	return nil
}

// SetActivity shows activity. A nil activity clears it.
func (c *Client) SetActivity(activity *Activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send("SET_ACTIVITY", map[string]any{
		"pid":      os.Getpid(),
		"activity": activity,
	})
}

// ClearActivity removes the activity.
func (c *Client) ClearActivity() error {
	return c.SetActivity(nil)
}

// Close clears the activity and closes the socket. Closing a disconnected
// client is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.send("SET_ACTIVITY", map[string]any{"pid": os.Getpid(), "activity": nil})
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Connected reports whether the socket is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// handshakeReply is the subset of the READY or ERROR reply we look at.
type handshakeReply struct {
	Evt  string `json:"evt"`
	Data struct {
		Message string `json:"message"`
	} `json:"data"`
}

func (c *Client) handshake(conn net.Conn) error {
	if err := WriteJSON(conn, OpHandshake, map[string]any{"v": 1, "client_id": c.appID}); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	f, err := ReadFrame(conn)
	if err != nil {
		return fmt.Errorf("handshake reply: %w", err)
	}
	if f.Op == OpClose {
		var reply struct {
			Message string `json:"message"`
		}
		_ = f.Decode(&reply)
		return fmt.Errorf("handshake closed by discord: %s", reply.Message)
	}
	if f.Op != OpFrame {
		return fmt.Errorf("unexpected handshake reply opcode %s", f.Op)
	}
	var reply handshakeReply
	if err := f.Decode(&reply); err != nil {
		return err
	}
	if reply.Evt == "ERROR" {
		return fmt.Errorf("handshake rejected: %s", reply.Data.Message)
	}
	return nil
}

// send writes a command frame. The caller holds c.mu.
func (c *Client) send(cmd string, args map[string]any) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	c.nonce++
	return WriteJSON(c.conn, OpFrame, map[string]any{
		"cmd":   cmd,
		"args":  args,
		"nonce": strconv.FormatUint(c.nonce, 10),
	})
}

// read drains replies from conn, answering pings, until the socket fails. A
// failed socket is dropped so [Client.Connected] reports the loss.
func (c *Client) read(conn net.Conn) {
	for {
		f, err := ReadFrame(conn)
		if err != nil {
			c.drop(conn, err)
			return
		}
		switch f.Op {
		case OpPing:
			c.mu.Lock()
			if c.conn == conn {
				if err := WriteJSON(conn, OpPong, rawJSON(f.Payload)); err != nil {
					slog.Debug("discord pong failed", "error", err)
				}
			}
			c.mu.Unlock()
		case OpClose:
			c.drop(conn, errors.New("closed by discord"))
			return
		case OpFrame:
			var reply handshakeReply
			if f.Decode(&reply) == nil && reply.Evt == "ERROR" {
				slog.Warn("discord rejected command", "message", reply.Data.Message)
			}
		}
	}
}

func (c *Client) drop(conn net.Conn, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return
	}
	slog.Info("discord connection lost", "app_id", c.appID, "cause", cause)
	c.conn.Close()
	c.conn = nil
}

// rawJSON passes an already-encoded payload through WriteJSON unchanged.
type rawJSON []byte

func (r rawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}
