package ipc

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// maxFrameBytes bounds a single frame to guard against a corrupt length
// prefix driving an unbounded allocation.
const maxFrameBytes = 64 << 20

// Channel is a duplex framed message channel: every Write is one length
// prefixed JSON-encoded Message; every Read consumes exactly one frame.
// Safe for concurrent Write calls; Read is intended for a single reader
// goroutine (the Listener thread), matching the main-thread/decode-loop
// split the protocol assumes.
type Channel struct {
	conn   net.Conn
	reader *bufio.Reader
	wmu    sync.Mutex
}

// NewChannel wraps conn as a framed Channel.
func NewChannel(conn net.Conn) *Channel {
	return &Channel{conn: conn, reader: bufio.NewReader(conn)}
}

// Send writes one frame for msg. Concurrency-safe.
func (c *Channel) Send(msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("ipc: encode message: %w", err)
	}
	if len(body) > maxFrameBytes {
		return fmt.Errorf("ipc: frame too large: %d bytes", len(body))
	}

	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(body)))

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.conn.Write(header); err != nil {
		return fmt.Errorf("ipc: write frame header: %w", err)
	}
	if _, err := c.conn.Write(body); err != nil {
		return fmt.Errorf("ipc: write frame body: %w", err)
	}
	return nil
}

// Receive blocks until one full frame arrives and returns the decoded
// Message. Returns io.EOF when the peer closed the channel cleanly.
func (c *Channel) Receive() (Message, error) {
	var header [4]byte
	if _, err := io.ReadFull(c.reader, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Message{}, io.EOF
		}
		return Message{}, err
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > maxFrameBytes {
		return Message{}, fmt.Errorf("ipc: peer announced oversized frame: %d bytes", size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(c.reader, body); err != nil {
		return Message{}, fmt.Errorf("ipc: read frame body: %w", err)
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("ipc: decode message: %w", err)
	}
	return msg, nil
}

// ReceivePoll reads one frame with a bounded deadline. It returns
// (Message{}, false, nil) on a read timeout so a listener loop can check a
// shutdown flag between polls rather than blocking indefinitely; this is
// what lets the idle timeout double as a model-eviction timer on the Worker
// side and lets the Front's listener thread honor shutdown promptly.
func (c *Channel) ReceivePoll(timeout time.Duration) (msg Message, ok bool, err error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return Message{}, false, fmt.Errorf("ipc: set read deadline: %w", err)
	}
	msg, err = c.Receive()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return Message{}, false, nil
		}
		return Message{}, false, err
	}
	return msg, true, nil
}

// Close closes the underlying transport.
func (c *Channel) Close() error {
	return c.conn.Close()
}
