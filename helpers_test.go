package redis

import (
	"net"
	"time"

	"github.com/luma/goresp/internal/fakeserver"
)

// noDeadline is the "no timeout" sentinel used throughout the
// BufferedReader/Parser API.
var noDeadline time.Time

func newPipe() (client, server net.Conn) {
	return fakeserver.Pipe()
}
