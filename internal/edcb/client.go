package edcb

import (
	"context"
	"fmt"
	"time"
)

// Client issues one-shot RPC roundtrips against the recorder daemon. It
// holds no connection state beyond the codec tables, per spec.md §5.
type Client struct {
	Dialer  Dialer
	Timeout time.Duration
}

// NewClient constructs a Client that connects through dialer with DefaultTimeout.
func NewClient(dialer Dialer) *Client {
	return &Client{Dialer: dialer, Timeout: DefaultTimeout}
}

func (c *Client) call(ctx context.Context, cmd uint32, payload []byte) (*Reader, error) {
	resp, err := roundTrip(ctx, c.Dialer, c.Timeout, cmd, isV2(cmd), payload)
	if err != nil {
		return nil, err
	}
	return NewReader(resp), nil
}

// EnumService lists all services/channels known to the daemon.
func (c *Client) EnumService(ctx context.Context) ([]ServiceInfo, error) {
	r, err := c.call(ctx, CmdEnumService, nil)
	if err != nil {
		return nil, err
	}
	return decodeVector(r, decodeServiceInfo)
}

// EnumPgInfoEx fetches EPG events for the services named by filter (packed
// service keys, see original CtrlCmdUtil for the exact packing; this client
// forwards filter opaquely as a vec<u64>).
func (c *Client) EnumPgInfoEx(ctx context.Context, filter []uint64) ([]ServiceEventInfo, error) {
	w := NewWriter()
	w.U32(uint32(8 + len(filter)*8))
	w.U32(uint32(len(filter)))
	for _, v := range filter {
		w.U64(v)
	}
	r, err := c.call(ctx, CmdEnumPgInfoEx, w.Bytes())
	if err != nil {
		return nil, err
	}
	return decodeVector(r, decodeServiceEventInfo)
}

// EnumReserve2 lists all recording reservations.
func (c *Client) EnumReserve2(ctx context.Context) ([]ReserveData, error) {
	r, err := c.call(ctx, CmdEnumReserve2, nil)
	if err != nil {
		return nil, err
	}
	return decodeVector(r, decodeReserveData)
}

// AddReserve2 creates one or more new reservations.
func (c *Client) AddReserve2(ctx context.Context, reservations []ReserveData) error {
	w := NewWriter()
	for _, rd := range reservations {
		w.buf.Write(encodeReserveData(rd))
	}
	_, err := c.call(ctx, CmdAddReserve2, w.Bytes())
	return err
}

// ChgReserve2 updates one or more existing reservations.
func (c *Client) ChgReserve2(ctx context.Context, reservations []ReserveData) error {
	w := NewWriter()
	for _, rd := range reservations {
		w.buf.Write(encodeReserveData(rd))
	}
	_, err := c.call(ctx, CmdChgReserve2, w.Bytes())
	return err
}

// DelReserve deletes reservations by ID.
func (c *Client) DelReserve(ctx context.Context, ids []uint32) error {
	w := NewWriter()
	w.U32(uint32(8 + len(ids)*4))
	w.U32(uint32(len(ids)))
	for _, id := range ids {
		w.U32(id)
	}
	_, err := c.call(ctx, CmdDelReserve, w.Bytes())
	return err
}

// EnumAutoAdd2 lists all keyword-based recording reservation rules.
func (c *Client) EnumAutoAdd2(ctx context.Context) ([]AutoAddData, error) {
	r, err := c.call(ctx, CmdEnumAutoAdd2, nil)
	if err != nil {
		return nil, err
	}
	return decodeVector(r, decodeAutoAddData)
}

// AddAutoAdd creates one or more keyword-based recording reservation rules.
func (c *Client) AddAutoAdd(ctx context.Context, rules []AutoAddData) error {
	w := NewWriter()
	for _, a := range rules {
		w.buf.Write(encodeAutoAddData(a))
	}
	_, err := c.call(ctx, CmdAddAutoAdd, w.Bytes())
	return err
}

// ChgAutoAdd updates one or more existing keyword-based recording reservation rules.
func (c *Client) ChgAutoAdd(ctx context.Context, rules []AutoAddData) error {
	w := NewWriter()
	for _, a := range rules {
		w.buf.Write(encodeAutoAddData(a))
	}
	_, err := c.call(ctx, CmdChgAutoAdd, w.Bytes())
	return err
}

// DelAutoAdd deletes keyword-based recording reservation rules by DataID.
func (c *Client) DelAutoAdd(ctx context.Context, ids []uint32) error {
	w := NewWriter()
	w.U32(uint32(8 + len(ids)*4))
	w.U32(uint32(len(ids)))
	for _, id := range ids {
		w.U32(id)
	}
	_, err := c.call(ctx, CmdDelAutoAdd, w.Bytes())
	return err
}

// FileCopy fetches the contents of a single file known to the daemon (e.g.
// ChSet5.txt, Bitrate.ini).
func (c *Client) FileCopy(ctx context.Context, path string) ([]byte, error) {
	w := NewWriter()
	w.String(path)
	r, err := c.call(ctx, CmdFileCopy, w.Bytes())
	if err != nil {
		return nil, err
	}
	return r.Bytes(r.Remaining())
}

// GetRecFilePath resolves the path of a currently-recording reservation's
// output file.
func (c *Client) GetRecFilePath(ctx context.Context, reserveID uint32) (string, error) {
	w := NewWriter()
	w.U32(reserveID)
	r, err := c.call(ctx, CmdGetRecFilePath, w.Bytes())
	if err != nil {
		return "", err
	}
	return r.String()
}

// NwTVIDSetCh starts or retunes a NetworkTV tuner process bound to info.NwTVID
// and returns its process ID.
func (c *Client) NwTVIDSetCh(ctx context.Context, info SetChInfo) (processID uint32, err error) {
	r, err := c.call(ctx, CmdNwTVIDSetCh, info.encode())
	if err != nil {
		return 0, err
	}
	return r.U32()
}

// NwTVIDClose stops the NetworkTV tuner process bound to nwtvID.
func (c *Client) NwTVIDClose(ctx context.Context, nwtvID uint32) error {
	w := NewWriter()
	w.U32(nwtvID)
	_, err := c.call(ctx, CmdNwTVIDClose, w.Bytes())
	return err
}

// GetStatusNotify2 long-polls for the daemon's notify counter to exceed
// targetCount. Callers must be able to cancel mid-call via ctx, per spec.md §5.
func (c *Client) GetStatusNotify2(ctx context.Context, targetCount uint32) (notifyID uint32, params [6]uint32, notifyTime time.Time, count uint32, err error) {
	w := NewWriter()
	w.U32(targetCount)
	r, rerr := c.call(ctx, CmdGetStatusNotify2, w.Bytes())
	if rerr != nil {
		return 0, params, time.Time{}, 0, rerr
	}
	if notifyID, err = r.U32(); err != nil {
		return
	}
	for i := range params {
		if params[i], err = r.U32(); err != nil {
			return
		}
	}
	st, serr := r.SystemTime()
	if serr != nil {
		err = serr
		return
	}
	notifyTime = st.Time()
	count, err = r.U32()
	return
}

func encodeReserveData(rd ReserveData) []byte {
	return StructBody(func(w *Writer) {
		w.String(rd.Title)
		w.SystemTime(SystemTimeFromTime(rd.StartTime))
		w.U32(rd.DurationSeconds)
		w.U16(rd.NetworkID)
		w.U16(rd.TransportStreamID)
		w.U16(rd.ServiceID)
		w.U16(rd.EventID)
		w.String(rd.Comment)
	})
}

// decodeVector reads a vec<T>-shaped response: u32 total-bytes, u32
// element-count, then count structs each prefixed with their own
// StructSize(), decoded by decodeOne.
func decodeVector[T any](r *Reader, decodeOne func(*Reader) (T, error)) ([]T, error) {
	if _, err := r.U32(); err != nil { // total byte count, informational only
		return nil, err
	}
	count, err := r.U32()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, count)
	for i := uint32(0); i < count; i++ {
		v, err := decodeOne(r)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrBackendRPC, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
