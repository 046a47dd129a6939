package redis

import (
	"bytes"
	"errors"
	"io"
	"net"
	"time"
)

// defaultBufferCapacity is the BufferedReader's starting capacity. It
// never shrinks below this, even after serving one very large reply.
const defaultBufferCapacity = 1024

// BufferedReader is a fixed-capacity-by-default, growable read buffer
// over a single net.Conn. It supports the two primitives the parser
// needs: reading exactly N bytes, and reading up to and including a
// short delimiter (always "\r\n" in this protocol).
//
// A BufferedReader is not safe for concurrent use; it is owned
// exclusively by the Connection that embeds it.
type BufferedReader struct {
	conn net.Conn
	buf  []byte
	r, w int // buf[r:w] holds the unconsumed, already-read bytes
}

func newBufferedReader(conn net.Conn) *BufferedReader {
	return &BufferedReader{
		conn: conn,
		buf:  make([]byte, defaultBufferCapacity),
	}
}

// Buffered reports how many unconsumed bytes are currently held.
func (b *BufferedReader) Buffered() int {
	return b.w - b.r
}

// ReadExact returns exactly n bytes, refilling from the stream as
// needed. deadline is an absolute instant, or the zero Time for no
// timeout.
func (b *BufferedReader) ReadExact(n int, deadline time.Time) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}

	b.compact()
	if n > len(b.buf) {
		b.grow(n)
	}

	for b.w < n {
		if err := b.fillOnce(deadline); err != nil {
			return nil, err
		}
	}

	out := make([]byte, n)
	copy(out, b.buf[:n])
	b.r = n
	return out, nil
}

// ReadUntilCRLF returns the bytes up to (but excluding) the first
// "\r\n" found in the stream, consuming the delimiter itself. The
// buffer grows if the delimiter isn't found within current contents.
func (b *BufferedReader) ReadUntilCRLF(deadline time.Time) ([]byte, error) {
	for {
		if idx := bytes.Index(b.buf[b.r:b.w], crlf); idx >= 0 {
			line := make([]byte, idx)
			copy(line, b.buf[b.r:b.r+idx])
			b.r += idx + 2
			return line, nil
		}

		b.compact()
		if b.w == len(b.buf) {
			b.grow(len(b.buf) * 2)
		}
		if err := b.fillOnce(deadline); err != nil {
			return nil, err
		}
	}
}

// fillOnce issues one raw stream read with the remaining deadline
// budget, appending whatever it returns to the buffer.
func (b *BufferedReader) fillOnce(deadline time.Time) error {
	if !deadline.IsZero() && !deadline.After(time.Now()) {
		return &TimeoutError{Op: "read"}
	}

	if err := b.conn.SetReadDeadline(deadline); err != nil {
		return &IOError{Op: "set read deadline", Err: err}
	}

	n, err := b.conn.Read(b.buf[b.w:])
	b.w += n
	if err != nil {
		return mapReadError(err)
	}
	return nil
}

// compact moves the unread chunk to the beginning of the buffer so
// its remaining capacity is reusable without reallocation.
func (b *BufferedReader) compact() {
	if b.r == 0 {
		return
	}
	n := copy(b.buf, b.buf[b.r:b.w])
	b.w = n
	b.r = 0
}

// grow doubles the buffer capacity until it reaches at least minCap.
// The buffer never shrinks below defaultBufferCapacity.
func (b *BufferedReader) grow(minCap int) {
	newCap := len(b.buf)
	if newCap < defaultBufferCapacity {
		newCap = defaultBufferCapacity
	}
	for newCap < minCap {
		newCap *= 2
	}

	nb := make([]byte, newCap)
	copy(nb, b.buf[:b.w])
	b.buf = nb
}

func mapReadError(err error) error {
	if errors.Is(err, io.EOF) {
		return &EOFError{Op: "read"}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Op: "read"}
	}

	return &IOError{Op: "read", Err: err}
}
