package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/hnimtadd/craft-redis/internal/redis/resp"
)

// Connection is the client side of a RESP link, used to talk to a master.
type Connection interface {
	// WriteThenRead synchronously writes req to the connection and waits for
	// one reply frame.
	WriteThenRead(req resp.Data) (response resp.Data, err error)

	// Write synchronously writes data to the connection.
	Write(data resp.Data) (err error)

	// Read reads the next frame from the connection.
	Read() (resp.Data, error)

	// ReadInlineBytes reads the next "$<len>\r\n<bytes>" payload, which has no
	// trailing terminator.
	ReadInlineBytes() (resp.InlineBytesData, error)

	Close() error
}

type connectionImpl struct {
	conn   net.Conn
	parser resp.Parser

	mu      sync.Mutex
	pending []byte // bytes read but not consumed by a frame yet
	scratch []byte
}

func NewConn(conn net.Conn) Connection {
	return &connectionImpl{
		conn:    conn,
		scratch: make([]byte, 4096),
	}
}

// Dial opens a link to addr.
func Dial(ctx context.Context, addr string) (Connection, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewConn(conn), nil
}

// Write implements Connection.
func (c *connectionImpl) Write(data resp.Data) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(data)
}

// WriteThenRead implements Connection.
func (c *connectionImpl) WriteThenRead(req resp.Data) (resp.Data, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.write(req); err != nil {
		return nil, err
	}
	return c.readFrame(c.parser.ParseNext)
}

// Read implements Connection.
func (c *connectionImpl) Read() (resp.Data, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readFrame(c.parser.ParseNext)
}

// ReadInlineBytes implements Connection.
func (c *connectionImpl) ReadInlineBytes() (resp.InlineBytesData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := c.readFrame(func(b []byte) (resp.Data, int, error) {
		return c.parser.ParseInlineBytes(b)
	})
	if err != nil {
		return resp.InlineBytesData{}, err
	}
	return data.(resp.InlineBytesData), nil
}

// Close implements Connection.
func (c *connectionImpl) Close() error {
	return c.conn.Close()
}

func (c *connectionImpl) write(data resp.Data) error {
	b := resp.Encode(data)
	n, err := c.conn.Write(b)
	if err != nil {
		return fmt.Errorf("write to %s: %w", c.conn.RemoteAddr(), err)
	}
	if n != len(b) {
		return fmt.Errorf("expected %d to be written, actual: %d", len(b), n)
	}
	return nil
}

// readFrame parses from the pending bytes, reading more from the socket
// until parse stops reporting an incomplete frame.
func (c *connectionImpl) readFrame(parse func([]byte) (resp.Data, int, error)) (resp.Data, error) {
	for {
		if len(c.pending) > 0 {
			data, n, err := parse(c.pending)
			if err == nil {
				c.pending = c.pending[n:]
				return data, nil
			}
			if !errors.Is(err, resp.ErrIncomplete) {
				return nil, err
			}
		}

		n, err := c.conn.Read(c.scratch)
		c.pending = append(c.pending, c.scratch[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("read from %s: %w", c.conn.RemoteAddr(), io.ErrUnexpectedEOF)
			}
			return nil, fmt.Errorf("read from %s: %w", c.conn.RemoteAddr(), err)
		}
	}
}
