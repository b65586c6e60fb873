package connect

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPConnectorHandsOffConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	var got net.Conn
	c := NewTCPConnector(time.Second)
	c.Handoff = func(conn net.Conn) error {
		got = conn
		return conn.Close()
	}

	require.NoError(t, c.Connect(context.Background(), "127.0.0.1", port))
	require.NotNil(t, got)
	assert.Equal(t, "127.0.0.1:"+strconv.Itoa(port), got.RemoteAddr().String())
}

func TestTCPConnectorRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	err = NewTCPConnector(time.Second).Connect(context.Background(), "127.0.0.1", port)
	assert.Error(t, err)
}

func TestFunc(t *testing.T) {
	var host string
	var port int
	c := Func(func(ctx context.Context, h string, p int) error {
		host, port = h, p
		return nil
	})
	require.NoError(t, c.Connect(context.Background(), "::1", 14000))
	assert.Equal(t, "::1", host)
	assert.Equal(t, 14000, port)
}
