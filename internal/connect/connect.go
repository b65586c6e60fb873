package connect

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Connector begins a client session with a game server
type Connector interface {
	Connect(ctx context.Context, host string, port int) error
}

// TCPConnector checks that a game server accepts connections and hands
// the live connection to Handoff. Without a Handoff the connection is
// closed again, which makes it a reachability probe.
type TCPConnector struct {
	Timeout time.Duration
	Handoff func(net.Conn) error
}

// NewTCPConnector creates a connector with the given dial timeout
func NewTCPConnector(timeout time.Duration) *TCPConnector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TCPConnector{Timeout: timeout}
}

// Connect dials host:port.
func (c *TCPConnector) Connect(ctx context.Context, host string, port int) error {
	dialer := &net.Dialer{Timeout: c.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("dial %s: %w", host, err)
	}
	if c.Handoff == nil {
		return conn.Close()
	}
	return c.Handoff(conn)
}

// Func adapts a function to the Connector interface
type Func func(ctx context.Context, host string, port int) error

// Connect calls f.
func (f Func) Connect(ctx context.Context, host string, port int) error {
	return f(ctx, host, port)
}
