package redis

import (
	"strings"
	"testing"

	"github.com/luma/goresp/internal/assert"
	"github.com/luma/goresp/internal/require"
)

func parseString(t *testing.T, s string) (Data, error) {
	t.Helper()
	client, server := newPipe()
	defer client.Close()
	defer server.Close()

	go server.Write([]byte(s))

	return Parse(newBufferedReader(client), noDeadline)
}

func TestParse_SimpleString(t *testing.T) {
	data, err := parseString(t, "+PONG\r\n")
	require.WantError(t, false, err)
	assert.Equal(t, SimpleString("PONG"), data)
}

func TestParse_Error(t *testing.T) {
	data, err := parseString(t, "-ERR invalid password\r\n")
	require.WantError(t, false, err)
	assert.Equal(t, Error("ERR invalid password"), data)
}

func TestParse_NullVsEmptyBulk(t *testing.T) {
	null, err := parseString(t, "$-1\r\n")
	require.WantError(t, false, err)
	bs, ok := null.(BulkString)
	if !ok || !bs.IsNull() {
		t.Fatalf("expected null BulkString, got %#v", null)
	}

	empty, err := parseString(t, "$0\r\n\r\n")
	require.WantError(t, false, err)
	bs, ok = empty.(BulkString)
	if !ok || bs.IsNull() || len(bs) != 0 {
		t.Fatalf("expected non-null empty BulkString, got %#v", empty)
	}
}

func TestParse_NullVsEmptyArray(t *testing.T) {
	null, err := parseString(t, "*-1\r\n")
	require.WantError(t, false, err)
	arr, ok := null.(Array)
	if !ok || !arr.IsNull() {
		t.Fatalf("expected null Array, got %#v", null)
	}

	empty, err := parseString(t, "*0\r\n")
	require.WantError(t, false, err)
	arr, ok = empty.(Array)
	if !ok || arr.IsNull() || len(arr) != 0 {
		t.Fatalf("expected non-null empty Array, got %#v", empty)
	}
}

func TestParse_BoundaryIntegers(t *testing.T) {
	data, err := parseString(t, ":9223372036854775807\r\n")
	require.WantError(t, false, err)
	assert.Equal(t, Integer(9223372036854775807), data)

	data, err = parseString(t, ":-9223372036854775808\r\n")
	require.WantError(t, false, err)
	assert.Equal(t, Integer(-9223372036854775808), data)

	_, err = parseString(t, ":9223372036854775808\r\n")
	require.WantError(t, true, err)
	if _, ok := err.(*ProtocolError); !ok {
		t.Errorf("expected *ProtocolError for overflowing integer, got %#v", err)
	}
}

func TestParse_EmbeddedCRLFInPayload(t *testing.T) {
	data, err := parseString(t, "$6\r\nfoo\r\nb\r\n")
	require.WantError(t, false, err)
	assert.Equal(t, BulkString("foo\r\nb"), data)
}

func TestParse_NestedArray(t *testing.T) {
	data, err := parseString(t, "*2\r\n*2\r\n:1\r\n:2\r\n$3\r\nfoo\r\n")
	require.WantError(t, false, err)
	assert.Equal(t, Array{
		Array{Integer(1), Integer(2)},
		BulkString("foo"),
	}, data)
}

func TestParse_UnknownTypeByte(t *testing.T) {
	_, err := parseString(t, "!garbage\r\n")
	require.WantError(t, true, err)
	if _, ok := err.(*ProtocolError); !ok {
		t.Errorf("expected *ProtocolError, got %#v", err)
	}
}

func TestParse_DepthLimit(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < maxArrayDepth+1; i++ {
		sb.WriteString("*1\r\n")
	}
	sb.WriteString(":1\r\n")

	_, err := parseString(t, sb.String())
	require.WantError(t, true, err)
	if _, ok := err.(*ProtocolError); !ok {
		t.Errorf("expected *ProtocolError for excess nesting, got %#v", err)
	}
}

func TestParse_Determinism(t *testing.T) {
	client, server := newPipe()
	defer client.Close()
	defer server.Close()

	go server.Write([]byte("+OK\r\n:42\r\n$2\r\nhi\r\n"))

	r := newBufferedReader(client)
	want := []Data{SimpleString("OK"), Integer(42), BulkString("hi")}
	for i, w := range want {
		got, err := Parse(r, noDeadline)
		require.WantError(t, false, err)
		assert.Equal(t, w, got)
		_ = i
	}
	if r.Buffered() != 0 {
		t.Errorf("expected no bytes left buffered, got %d", r.Buffered())
	}
}

func TestParse_MissingBulkTerminator(t *testing.T) {
	_, err := parseString(t, "$3\r\nfooXX")
	require.WantError(t, true, err)
	if _, ok := err.(*ProtocolError); !ok {
		t.Errorf("expected *ProtocolError for missing CRLF terminator, got %#v", err)
	}
}

func TestParse_InvalidIntegerRejectsLeadingPlus(t *testing.T) {
	_, err := parseString(t, ":+1\r\n")
	require.WantError(t, true, err)
}

func TestParse_InvalidIntegerRejectsEmpty(t *testing.T) {
	_, err := parseString(t, ":\r\n")
	require.WantError(t, true, err)
}
