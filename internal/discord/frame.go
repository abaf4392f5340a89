package discord

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// ///////////////////////////////////////////////
// Opcodes
// ///////////////////////////////////////////////

// Opcode is the first header word of an IPC frame.
type Opcode uint32

const (
	OpHandshake Opcode = 0
	OpFrame     Opcode = 1
	OpClose     Opcode = 2
	OpPing      Opcode = 3
	OpPong      Opcode = 4
)

func (op Opcode) String() string {
	switch op {
	case OpHandshake:
		return "HANDSHAKE"
	case OpFrame:
		return "FRAME"
	case OpClose:
		return "CLOSE"
	case OpPing:
		return "PING"
	case OpPong:
		return "PONG"
	default:
		return fmt.Sprintf("Opcode(%d)", uint32(op))
	}
}

const (
	// headerSize is the little-endian opcode word plus the length word.
	headerSize = 8

	// MaxPayloadSize caps a single frame's payload at 1 MiB.
	MaxPayloadSize = 1 << 20

	// ipcSlots is how many numbered sockets Discord may listen on.
	ipcSlots = 10
)

var (
	// ErrPayloadTooLarge is returned for payloads over [MaxPayloadSize].
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrIPCNotAvailable is returned when no Discord socket answers.
	ErrIPCNotAvailable = errors.New("discord IPC not available")
)

// ///////////////////////////////////////////////
// Frames
// ///////////////////////////////////////////////

// Frame is one IPC message.
type Frame struct {
	Op      Opcode
	Payload []byte
}

// EncodeFrame builds the wire form: opcode, payload length, payload.
func EncodeFrame(op Opcode, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}
	buf := make([]byte, headerSize, headerSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(op))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(payload)))
	return append(buf, payload...), nil
}

// WriteJSON marshals v and writes it to w as a single frame.
func WriteJSON(w io.Writer, op Opcode, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", op, err)
	}
	frame, err := EncodeFrame(op, payload)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write %s frame: %w", op, err)
	}
	return nil
}

// ReadFrame reads exactly one frame from r.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, fmt.Errorf("read frame header: %w", err)
	}
	op := Opcode(binary.LittleEndian.Uint32(header[0:4]))
	n := binary.LittleEndian.Uint32(header[4:8])
	if n > MaxPayloadSize {
		return Frame{}, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, n, MaxPayloadSize)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, fmt.Errorf("read frame payload: %w", err)
	}
	return Frame{Op: op, Payload: payload}, nil
}

// Decode unmarshals the payload into v.
func (f Frame) Decode(v any) error {
	if err := json.Unmarshal(f.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", f.Op, err)
	}
	return nil
}
