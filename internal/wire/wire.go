// Package wire implements the length-prefixed message framing used between
// the server and its clients: every message is a 4-byte big-endian length
// followed by exactly that many UTF-8 bytes. There is no type tagging; the
// meaning of a frame is positional within the session protocol.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrClosed signals that the peer closed the connection, either cleanly at a
// frame boundary or mid-frame.
var ErrClosed = errors.New("connection closed")

// MaxFrameSize bounds a single frame payload. The narrative log is sent as
// one frame on login, so this is generous.
const MaxFrameSize = 64 << 20

// SendFrame writes text as one frame: the length prefix and the payload are
// written separately, so receivers must not assume both arrive together.
func SendFrame(w io.Writer, text string) error {
	payload := []byte(text)
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write frame payload: %w", err)
	}
	return nil
}

// RecvFrame reads one frame. Zero bytes at a frame boundary means the peer
// closed the connection and is reported as ErrClosed, as is a stream that
// ends mid-header or mid-payload. The payload is accumulated across as many
// reads as the transport needs; a multi-byte UTF-8 rune may arrive split
// over several reads and is decoded only once fully assembled.
func RecvFrame(r io.Reader) (string, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return "", ErrClosed
		}
		return "", fmt.Errorf("failed to read frame header: %w", err)
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > MaxFrameSize {
		return "", fmt.Errorf("frame of %d bytes exceeds limit", length)
	}
	if length == 0 {
		return "", nil
	}

	payload := make([]byte, length)
	for read := 0; read < int(length); {
		n, err := r.Read(payload[read:])
		read += n
		if err != nil {
			if read == int(length) {
				break
			}
			if errors.Is(err, io.EOF) {
				return "", ErrClosed
			}
			return "", fmt.Errorf("failed to read frame payload: %w", err)
		}
		if n == 0 {
			return "", ErrClosed
		}
	}

	return string(payload), nil
}

// Conn wraps a duplex stream with a write lock so that frames sent from
// different goroutines (the owning session and hub broadcasts) never
// interleave their header and payload writes.
type Conn struct {
	rw  io.ReadWriteCloser
	wmu sync.Mutex
}

// NewConn wraps rw for framed use.
func NewConn(rw io.ReadWriteCloser) *Conn {
	return &Conn{rw: rw}
}

// Send writes one frame holding the connection's write lock.
func (c *Conn) Send(text string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return SendFrame(c.rw, text)
}

// Recv reads one frame. Only the owning session goroutine may call Recv.
func (c *Conn) Recv() (string, error) {
	return RecvFrame(c.rw)
}

// Close closes the underlying stream.
func (c *Conn) Close() error {
	return c.rw.Close()
}
