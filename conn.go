package redis

import (
	"errors"
	"net"
	"strconv"
	"sync"
	"time"
)

// connState tracks a Connection through Fresh -> Open ->
// (Closed | Poisoned). Poisoned connections must never be returned to
// a pool's idle set.
type connState int32

const (
	stateFresh connState = iota
	stateOpen
	stateClosed
	statePoisoned
)

var errConnNotOpen = errors.New("connection is not open")

// Connection owns a single live stream (or the closed sentinel), a
// BufferedReader over it, and the read timeout applied to subsequent
// reads. A Connection is not safe for concurrent use by multiple
// goroutines — callers are expected to obtain one exclusively via a
// Pool.
type Connection struct {
	mu      sync.Mutex
	netConn net.Conn
	reader  *BufferedReader
	timeout time.Duration // 0 means no timeout
	state   connState
	addr    string
}

// ConnectTCP establishes a TCP connection to host:port with
// TCP_NODELAY enabled. connectTimeout bounds the dial itself; zero
// means no timeout. readTimeout becomes the connection's initial read
// deadline budget.
func ConnectTCP(host string, port int, connectTimeout, readTimeout time.Duration) (*Connection, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var nc net.Conn
	var err error
	if connectTimeout > 0 {
		nc, err = net.DialTimeout("tcp", addr, connectTimeout)
	} else {
		nc, err = net.Dial("tcp", addr)
	}
	if err != nil {
		return nil, &ConnectError{Addr: addr, Err: err}
	}

	if tcpConn, ok := nc.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}

	return newConnection(nc, readTimeout), nil
}

// ConnectLocal connects to a Unix domain socket by filesystem path. No
// socket options are applied.
func ConnectLocal(path string, readTimeout time.Duration) (*Connection, error) {
	nc, err := net.Dial("unix", path)
	if err != nil {
		return nil, &ConnectError{Addr: path, Err: err}
	}
	return newConnection(nc, readTimeout), nil
}

func newConnection(nc net.Conn, readTimeout time.Duration) *Connection {
	return &Connection{
		netConn: nc,
		reader:  newBufferedReader(nc),
		timeout: readTimeout,
		state:   stateOpen,
		addr:    nc.RemoteAddr().String(),
	}
}

// SetTimeout updates the deadline applied to subsequent reads. A
// duration of zero or less means no timeout.
func (c *Connection) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
}

func (c *Connection) deadline() time.Time {
	if c.timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.timeout)
}

// SendCommand serializes and writes command to the stream, bounded by
// the connection's current timeout, and returns the number of bytes
// written. Any write failure, including one that times out against a
// server that has stopped reading, poisons the connection.
func (c *Connection) SendCommand(args [][]byte) (int, error) {
	c.mu.Lock()
	state := c.state
	deadline := c.deadline()
	c.mu.Unlock()

	if state != stateOpen {
		return 0, &IOError{Op: "send", Err: errConnNotOpen}
	}

	if !deadline.IsZero() && !deadline.After(time.Now()) {
		c.poison()
		return 0, &TimeoutError{Op: "write"}
	}

	if err := c.netConn.SetWriteDeadline(deadline); err != nil {
		c.poison()
		return 0, &IOError{Op: "set write deadline", Err: err}
	}

	frame := BuildCommand(args)
	n, err := c.netConn.Write(frame)
	if err != nil {
		c.poison()
		return n, mapWriteError(err)
	}
	return n, nil
}

func mapWriteError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Op: "write"}
	}
	return &IOError{Op: "write", Err: err}
}

// ReadReply parses exactly one reply frame using the connection's
// current timeout. A server-reported Error is returned as a normal
// Data value with a nil error — the connection remains healthy.
// Any other failure (Timeout, EOFError, ProtocolError, IOError)
// poisons the connection.
func (c *Connection) ReadReply() (Data, error) {
	c.mu.Lock()
	state := c.state
	deadline := c.deadline()
	c.mu.Unlock()

	if state != stateOpen {
		return nil, &IOError{Op: "read", Err: errConnNotOpen}
	}

	data, err := Parse(c.reader, deadline)
	if err != nil {
		c.poison()
		return nil, err
	}
	return data, nil
}

// RunCommand is the convenience composition of SendCommand followed
// by ReadReply — the single building block every higher-level command
// wrapper composes over.
func (c *Connection) RunCommand(args [][]byte) (Data, error) {
	if _, err := c.SendCommand(args); err != nil {
		return nil, err
	}
	return c.ReadReply()
}

// Close closes the underlying stream. It is idempotent.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateClosed {
		return nil
	}
	c.state = stateClosed
	return c.netConn.Close()
}

// IsConnected reports whether the connection is open and unpoisoned.
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateOpen
}

// IsPoisoned reports whether the connection has observed a fault and
// must be discarded rather than returned to a pool's idle set.
func (c *Connection) IsPoisoned() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == statePoisoned
}

func (c *Connection) poison() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateOpen {
		c.state = statePoisoned
	}
}

// Addr returns the remote address this connection was dialed to, for
// logging.
func (c *Connection) Addr() string {
	return c.addr
}
