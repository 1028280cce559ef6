package cinterop

import (
	"bufio"
	"io"
	"net"

	"github.com/nersc/instbench/errors"
	"github.com/nersc/instbench/wire"
)

// Client issues matmul requests over a stream, one at a time.
type Client struct {
	w      io.Writer
	r      *bufio.Reader
	closer io.Closer
}

// Wraps an established stream, e.g. a child process's stdin/stdout.
func NewClient(r io.Reader, w io.Writer) *Client {
	c := &Client{w: w, r: bufio.NewReader(r)}
	if closer, ok := w.(io.Closer); ok {
		c.closer = closer
	}
	return c
}

// Connects to a server's unix socket and authenticates with token.
func Dial(path string, token []byte) (*Client, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", path)
	}
	if _, err := conn.Write(token); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "sending token")
	}
	return NewClient(conn, conn), nil
}

func (c *Client) Matmul(req wire.Request) (*wire.Response, error) {
	if err := wire.WriteFrame(c.w, req.Marshal()); err != nil {
		return nil, err
	}
	msg, err := wire.ReadFrame(c.r)
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}
	resp := &wire.Response{}
	if err := resp.Unmarshal(msg); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
