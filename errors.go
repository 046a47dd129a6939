package redis

import "fmt"

// ConnectError is returned when establishing a TCP or local-socket
// connection fails or times out. There is no connection to poison: the
// caller simply never obtained one.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("redis: connect to %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// IOError wraps a failed read or write on an established connection.
// A connection that produces an IOError must be poisoned.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("redis: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned when a read or write deadline expires
// before the operation completes (a connect timeout is reported as a
// *ConnectError instead). A connection that times out
// mid-frame must be poisoned: it may hold unread bytes belonging to a
// partially delivered reply.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("redis: %s: timeout", e.Op)
}

// Timeout reports true, satisfying the conventional net.Error-ish
// "is this a timeout" probe some callers look for.
func (e *TimeoutError) Timeout() bool { return true }

// EOFError is returned when the underlying stream closes before the
// requested number of bytes could be read. A connection that hits EOF
// mid-frame must be poisoned.
type EOFError struct {
	Op string
}

func (e *EOFError) Error() string {
	return fmt.Sprintf("redis: %s: unexpected EOF", e.Op)
}

// ProtocolError signals a structural violation of the RESP wire
// format: a malformed length, a missing CRLF terminator, an unknown
// type byte, or exceeding the parser's recursion depth limit. It is a
// fault, never a reply value, and poisons the connection that produced
// it.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("redis: protocol error: %s", e.Msg)
}

func protoErrorf(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}

// PoolTimeoutError is returned by Pool.Checkout when no connection
// becomes available before the pool's acquisition timeout elapses.
type PoolTimeoutError struct {
	Waited string
}

func (e *PoolTimeoutError) Error() string {
	return fmt.Sprintf("redis: pool: timed out waiting for a connection after %s", e.Waited)
}
