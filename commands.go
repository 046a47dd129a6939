package redis

import (
	"strconv"
	"time"
)

// Request builds the argument list a command wrapper sends. Element 0
// must be the uppercase ASCII command name; the rest are argument
// bytes. This is the external wrapper contract described in
// SPEC_FULL.md §6 — the full ~200-method catalogue that implements it
// is out of scope for this repository. The handful of wrappers below
// exist only to demonstrate that the contract is satisfiable against
// Connection.RunCommand.
type Request interface {
	ToArgs() [][]byte
}

// Response decodes a Reply into a typed result. StringResponse,
// IntegerResponse and Discard all return an Error reply as their Go
// error (Error implements error), so every wrapper below reports a
// server error through its error result; none of them returns the
// Error as a reply value.
type Response interface {
	FromData(data Data) error
}

// Do runs req against conn and decodes the reply into res. It is the
// one bridge every wrapper method (in the out-of-scope full catalogue)
// would compose over: build args, call RunCommand, hand the Reply to
// a Response.
func Do(conn *Connection, req Request, res Response) error {
	reply, err := conn.RunCommand(req.ToArgs())
	if err != nil {
		return err
	}
	return res.FromData(reply)
}

type pingRequest struct{}

func (pingRequest) ToArgs() [][]byte {
	return [][]byte{[]byte("PING")}
}

// Ping sends PING and returns the server's status reply.
func Ping(conn *Connection) (*StringResponse, error) {
	var res StringResponse
	return &res, Do(conn, pingRequest{}, &res)
}

// GetRequest builds a GET command.
type GetRequest struct {
	Key string
}

func (req *GetRequest) ToArgs() [][]byte {
	return [][]byte{[]byte("GET"), []byte(req.Key)}
}

// Get fetches the value stored at key.
func Get(conn *Connection, key string) (*StringResponse, error) {
	var res StringResponse
	return &res, Do(conn, &GetRequest{Key: key}, &res)
}

// SetRequest builds a SET command, splicing in PX/NX/XX per §6's rule
// that array-valued and boolean-flag options are appended as
// positional argument bytes in a fixed order.
type SetRequest struct {
	Key          string
	Value        string
	Expire       time.Duration
	NotExist     bool
	AlreadyExist bool
}

func (req *SetRequest) ToArgs() [][]byte {
	args := [][]byte{[]byte("SET"), []byte(req.Key), []byte(req.Value)}

	if req.Expire > 0 {
		args = append(args, []byte("PX"), []byte(strconv.FormatInt(req.Expire.Milliseconds(), 10)))
	}

	switch {
	case req.NotExist:
		args = append(args, []byte("NX"))
	case req.AlreadyExist:
		args = append(args, []byte("XX"))
	}

	return args
}

// Set stores value at key according to req's options.
func Set(conn *Connection, req *SetRequest) (*StringResponse, error) {
	var res StringResponse
	return &res, Do(conn, req, &res)
}

// IncrRequest builds an INCR command.
type IncrRequest struct {
	Key string
}

func (req *IncrRequest) ToArgs() [][]byte {
	return [][]byte{[]byte("INCR"), []byte(req.Key)}
}

// Incr increments the integer value stored at key by one.
func Incr(conn *Connection, key string) (*IntegerResponse, error) {
	var res IntegerResponse
	return &res, Do(conn, &IncrRequest{Key: key}, &res)
}

type delRequest struct {
	keys []string
}

func (req delRequest) ToArgs() [][]byte {
	args := make([][]byte, 0, len(req.keys)+1)
	args = append(args, []byte("DEL"))
	for _, k := range req.keys {
		args = append(args, []byte(k))
	}
	return args
}

// Del removes the given keys, returning the count actually removed.
func Del(conn *Connection, keys ...string) (*IntegerResponse, error) {
	var res IntegerResponse
	return &res, Do(conn, delRequest{keys: keys}, &res)
}

type authRequest struct {
	password string
}

func (req authRequest) ToArgs() [][]byte {
	return [][]byte{[]byte("AUTH"), []byte(req.password)}
}

// AuthAndRaise sends AUTH and returns a server Error reply as its
// error; any other reply is discarded.
func AuthAndRaise(conn *Connection, password string) error {
	return Do(conn, authRequest{password: password}, Discard)
}
