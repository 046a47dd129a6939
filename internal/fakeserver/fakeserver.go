// Package fakeserver provides an in-memory, deadline-aware net.Conn
// pair for exercising BufferedReader, Parser and Connection behavior
// without a real TCP or Unix socket. It generalizes the netConn helper from the
// original conn_test.go (a bytes.Buffer wrapped as a net.Conn, usable
// only for one-shot writes) into a two-sided pipe so a test can
// observe a client's request and script a reply in response.
package fakeserver

import "net"

// Pipe returns two connected, in-memory net.Conn endpoints. Writes to
// one are readable from the other and vice versa; both honor
// SetDeadline/SetReadDeadline/SetWriteDeadline. client is handed to
// the code under test; server is driven directly by the test to
// script replies (and, for timeout tests, to simply not reply).
func Pipe() (client, server net.Conn) {
	return net.Pipe()
}
