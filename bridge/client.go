package bridge

import (
	"net"
	"sync"
	"time"
)

// client is the attached network peer. A reader goroutine moves received
// chunks onto in, which is closed once the connection fails or is closed.
type client struct {
	conn         net.Conn
	in           chan []byte
	done         chan struct{}
	once         sync.Once
	writeTimeout time.Duration
}

func newClient(conn net.Conn, bufferSize int, writeTimeout time.Duration) *client {
	c := &client{
		conn:         conn,
		in:           make(chan []byte),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
	go c.read(bufferSize)
	return c
}

func (c *client) read(size int) {
	defer close(c.in)
	buf := make([]byte, size)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case c.in <- chunk:
			case <-c.done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (c *client) Write(p []byte) (int, error) {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return 0, err
		}
	}
	return c.conn.Write(p)
}

func (c *client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *client) String() string {
	return c.conn.RemoteAddr().String()
}
