package redis

import (
	"testing"
	"time"

	"github.com/luma/goresp/internal/assert"
	"github.com/luma/goresp/internal/require"
)

func TestConnection_RunCommand(t *testing.T) {
	client, server := newPipe()
	defer client.Close()
	defer server.Close()

	conn := newConnection(client, 0)

	go func() {
		buf := make([]byte, 4096)
		server.Read(buf)
		server.Write([]byte("+PONG\r\n"))
	}()

	reply, err := conn.RunCommand([][]byte{[]byte("PING")})
	require.WantError(t, false, err)
	assert.Equal(t, SimpleString("PONG"), reply)
	if !conn.IsConnected() {
		t.Error("connection should remain open after a successful round trip")
	}
}

func TestConnection_ServerErrorDoesNotPoison(t *testing.T) {
	client, server := newPipe()
	defer client.Close()
	defer server.Close()

	conn := newConnection(client, 0)

	go func() {
		buf := make([]byte, 4096)
		server.Read(buf)
		server.Write([]byte("-ERR invalid password\r\n"))
	}()

	reply, err := conn.RunCommand([][]byte{[]byte("AUTH"), []byte("wrong")})
	require.WantError(t, false, err)
	assert.Equal(t, Error("ERR invalid password"), reply)
	if !conn.IsConnected() {
		t.Error("a server Error reply must leave the connection healthy")
	}
}

func TestConnection_ProtocolErrorPoisons(t *testing.T) {
	client, server := newPipe()
	defer client.Close()
	defer server.Close()

	conn := newConnection(client, 0)

	go func() {
		buf := make([]byte, 4096)
		server.Read(buf)
		server.Write([]byte("!not-a-type-byte\r\n"))
	}()

	_, err := conn.RunCommand([][]byte{[]byte("PING")})
	require.WantError(t, true, err)
	if _, ok := err.(*ProtocolError); !ok {
		t.Errorf("expected *ProtocolError, got %#v", err)
	}
	if !conn.IsPoisoned() {
		t.Error("a protocol fault must poison the connection")
	}
}

func TestConnection_TimeoutMidFramePoisons(t *testing.T) {
	client, server := newPipe()
	defer client.Close()
	defer server.Close()

	conn := newConnection(client, 20*time.Millisecond)

	go func() {
		buf := make([]byte, 4096)
		server.Read(buf)
		server.Write([]byte("$10\r\nabc")) // stall mid-bulk, never send the rest
	}()

	_, err := conn.RunCommand([][]byte{[]byte("GET"), []byte("k")})
	require.WantError(t, true, err)
	if _, ok := err.(*TimeoutError); !ok {
		t.Errorf("expected *TimeoutError, got %#v", err)
	}
	if !conn.IsPoisoned() {
		t.Error("a mid-frame timeout must poison the connection")
	}
}

func TestConnection_WriteTimeoutPoisons(t *testing.T) {
	client, server := newPipe()
	defer client.Close()
	defer server.Close()

	conn := newConnection(client, 20*time.Millisecond)

	// Nobody reads on the server side, so net.Pipe's synchronous Write
	// blocks until the write deadline trips it.
	_, err := conn.SendCommand([][]byte{[]byte("PING")})
	require.WantError(t, true, err)
	if _, ok := err.(*TimeoutError); !ok {
		t.Errorf("expected *TimeoutError, got %#v", err)
	}
	if !conn.IsPoisoned() {
		t.Error("a write timeout must poison the connection")
	}
}

func TestConnection_CloseIsIdempotent(t *testing.T) {
	client, server := newPipe()
	defer server.Close()

	conn := newConnection(client, 0)
	require.WantError(t, false, conn.Close())
	require.WantError(t, false, conn.Close())
	if conn.IsConnected() {
		t.Error("a closed connection must not report as connected")
	}
}

func TestConnection_PipelinedFraming(t *testing.T) {
	client, server := newPipe()
	defer client.Close()
	defer server.Close()

	conn := newConnection(client, 0)

	go func() {
		server.Write([]byte("+OK\r\n:42\r\n$2\r\nhi\r\n"))
	}()

	for _, want := range []Data{SimpleString("OK"), Integer(42), BulkString("hi")} {
		got, err := conn.ReadReply()
		require.WantError(t, false, err)
		assert.Equal(t, want, got)
	}
}
