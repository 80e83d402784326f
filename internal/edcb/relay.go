package edcb

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"
)

// relayStream wraps the second connection opened by RelayViewStream: after
// the success envelope, the daemon streams raw MPEG-TS indefinitely and the
// reading side simply keeps consuming it.
type relayStream struct {
	conn net.Conn
}

func (s *relayStream) Read(p []byte) (int, error) { return s.conn.Read(p) }
func (s *relayStream) Close() error                { return s.conn.Close() }

// OpenRelayStream opens the dedicated second connection for RelayViewStream
// and, once the success reply is received, returns an io.ReadCloser that
// streams raw MPEG-TS from the tuner process identified by pid. The caller
// owns the returned stream and must Close it when done, per spec.md §4.A.
func (c *Client) OpenRelayStream(ctx context.Context, pid uint32) (io.ReadCloser, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	conn, err := c.Dialer.Dial(dialCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: dial relay: %v", ErrBackendRPC, err)
	}
	_ = conn.SetDeadline(time.Now().Add(timeout))

	w := NewWriter()
	w.U32(pid)
	if err := sendFrame(conn, CmdRelayViewStream, w.Bytes()); err != nil {
		conn.Close()
		return nil, err
	}

	status, _, err := recvFrame(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if status != StatusSuccess {
		conn.Close()
		return nil, fmt.Errorf("%w: RelayViewStream returned status %d", ErrBackendRPC, status)
	}

	// The RPC timeout governs only the handshake above; streaming reads
	// must not inherit the deadline, so it is cleared before handing the
	// connection to the caller.
	_ = conn.SetDeadline(time.Time{})

	return &relayStream{conn: conn}, nil
}
