package edcb

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listenerDialer dials a net.Listener set up by the test, standing in for a
// TCP or UNIX-socket backend connection.
type listenerDialer struct {
	addr string
}

func (d listenerDialer) Dial(ctx context.Context) (net.Conn, error) {
	var dialer net.Dialer
	return dialer.DialContext(ctx, "tcp", d.addr)
}

func serveOnce(t *testing.T, handler func(conn net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}()

	return ln.Addr().String()
}

func TestRoundTripSuccess(t *testing.T) {
	addr := serveOnce(t, func(conn net.Conn) {
		var hdr [8]byte
		_, _ = conn.Read(hdr[:])
		size := binary.LittleEndian.Uint32(hdr[4:8])
		payload := make([]byte, size)
		_, _ = conn.Read(payload)

		var resp [8]byte
		binary.LittleEndian.PutUint32(resp[0:4], StatusSuccess)
		binary.LittleEndian.PutUint32(resp[4:8], 3)
		conn.Write(resp[:])
		conn.Write([]byte("abc"))
	})

	resp, err := roundTrip(context.Background(), listenerDialer{addr: addr}, time.Second, 9999, false, []byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), resp)
}

func TestRoundTripErrorStatus(t *testing.T) {
	addr := serveOnce(t, func(conn net.Conn) {
		var hdr [8]byte
		_, _ = conn.Read(hdr[:])
		size := binary.LittleEndian.Uint32(hdr[4:8])
		payload := make([]byte, size)
		_, _ = conn.Read(payload)

		var resp [8]byte
		binary.LittleEndian.PutUint32(resp[0:4], 0) // failure status
		conn.Write(resp[:])
	})

	_, err := roundTrip(context.Background(), listenerDialer{addr: addr}, time.Second, 9999, false, nil)
	assert.ErrorIs(t, err, ErrBackendRPC)
}

func TestRoundTripTruncatedPayloadIsRecoverable(t *testing.T) {
	addr := serveOnce(t, func(conn net.Conn) {
		var hdr [8]byte
		_, _ = conn.Read(hdr[:])
		size := binary.LittleEndian.Uint32(hdr[4:8])
		payload := make([]byte, size)
		_, _ = conn.Read(payload)

		var resp [8]byte
		binary.LittleEndian.PutUint32(resp[0:4], StatusSuccess)
		binary.LittleEndian.PutUint32(resp[4:8], 100) // declares more than sent
		conn.Write(resp[:])
		conn.Write([]byte("short"))
		conn.Close()
	})

	_, err := roundTrip(context.Background(), listenerDialer{addr: addr}, time.Second, 9999, false, nil)
	assert.ErrorIs(t, err, ErrBackendRPC)
}
