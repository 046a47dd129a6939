package redis

import "strconv"

var crlf = []byte("\r\n")

// BuildCommand encodes a command — a non-empty ordered sequence of
// byte strings — into the RESP unified request form:
//
//	*<N>\r\n
//	$<len(arg_i)>\r\n<arg_i>\r\n     (for i = 0..N-1)
//
// Argument bytes are passed through verbatim: BuildCommand does not
// interpret, escape, or validate content, so callers are free to pass
// arbitrary, non-UTF-8 byte strings (including ones containing CR/LF).
//
// BuildCommand panics if args is empty; a command with zero arguments
// is not well-formed under the protocol this client speaks.
func BuildCommand(args [][]byte) []byte {
	if len(args) == 0 {
		panic("redis: BuildCommand requires at least one argument")
	}

	buf := make([]byte, 0, commandSize(args))
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(len(args)), 10)
	buf = append(buf, crlf...)

	for _, arg := range args {
		buf = append(buf, '$')
		buf = strconv.AppendInt(buf, int64(len(arg)), 10)
		buf = append(buf, crlf...)
		buf = append(buf, arg...)
		buf = append(buf, crlf...)
	}

	return buf
}

// commandSize precomputes the exact encoded length of a command so
// BuildCommand can allocate its output buffer once, with no
// resizing.
func commandSize(args [][]byte) int {
	n := 1 + decimalLen(len(args)) + 2 // *<N>\r\n
	for _, arg := range args {
		n += 1 + decimalLen(len(arg)) + 2 // $<len>\r\n
		n += len(arg) + 2                 // <arg>\r\n
	}
	return n
}

func decimalLen(n int) int {
	if n == 0 {
		return 1
	}
	l := 0
	for n > 0 {
		l++
		n /= 10
	}
	return l
}
