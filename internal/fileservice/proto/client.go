package proto

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/tinylib/msgp/msgp"

	"github.com/bamsammich/ferry/internal/fileservice"
)

// DefaultPort is the default device agent port.
const DefaultPort = 9877

// MaxReadLength caps a single Read request so the response stays well
// inside MaxFrameSize.
const MaxReadLength = 1 << 20

// ErrClientClosed is returned by every operation after Shutdown.
var ErrClientClosed = errors.New("device connection closed")

// DialOpts configures Dial.
type DialOpts struct {
	Timeout  time.Duration
	Compress bool
}

// Compile-time interface check.
var _ fileservice.Service = (*Client)(nil)

// Client implements fileservice.Service against a remote device agent.
// Requests are strictly serial: each call sends one frame and waits for its
// response before the next call may start.
type Client struct {
	conn      net.Conn
	mu        sync.Mutex
	nextID    uint32
	chunkSize int
	closed    bool
}

// Dial connects to the device agent at addr and performs the hello
// handshake.
func Dial(ctx context.Context, addr string, opts DialOpts) (*Client, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c, err := NewClient(conn, opts.Compress)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// NewClient performs the hello handshake over an established connection.
// When compress is set and the agent agrees, the connection switches to
// zstd after the handshake.
func NewClient(conn net.Conn, compress bool) (*Client, error) {
	c := &Client{conn: conn}

	var resp HelloResp
	if err := c.roundTrip(MsgHelloReq, &HelloReq{Version: ProtocolVersion, Compress: compress}, MsgHelloResp, &resp); err != nil {
		return nil, fmt.Errorf("hello: %w", err)
	}
	if resp.Version != ProtocolVersion {
		return nil, fmt.Errorf("hello: unsupported protocol version %d", resp.Version)
	}
	c.chunkSize = resp.ChunkSize
	if c.chunkSize <= 0 || c.chunkSize > DataChunkSize {
		c.chunkSize = DataChunkSize
	}

	if resp.Compress {
		cc, err := NewCompressedConn(conn)
		if err != nil {
			return nil, err
		}
		c.conn = cc
	}
	return c, nil
}

// ChunkSize reports the write chunk size negotiated with the agent.
func (c *Client) ChunkSize() int { return c.chunkSize }

// Shutdown closes the connection. Handles still open on the agent are
// released by the agent when it observes the disconnect.
func (c *Client) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func (c *Client) Stat(p string, followLinks bool) (*fileservice.Descriptor, error) {
	var resp StatResp
	if err := c.roundTrip(MsgStatReq, &StatReq{Path: p, Follow: followLinks}, MsgStatResp, &resp); err != nil {
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}
	d := ToDescriptor(resp.Entry)
	return &d, nil
}

func (c *Client) List(dir fileservice.Descriptor) ([]fileservice.Descriptor, error) {
	var resp ListResp
	if err := c.roundTrip(MsgListReq, &ListReq{Path: dir.Path}, MsgListResp, &resp); err != nil {
		return nil, fmt.Errorf("list %s: %w", dir.Path, err)
	}
	out := make([]fileservice.Descriptor, len(resp.Entries))
	for i, e := range resp.Entries {
		out[i] = ToDescriptor(e)
	}
	return out, nil
}

func (c *Client) Open(
	p string, mode fileservice.OpenMode, perm os.FileMode, create bool,
) (fileservice.Handle, error) {
	req := OpenReq{Path: p, Mode: uint32(mode), Perm: uint32(perm), Create: create}
	var resp HandleResp
	if err := c.roundTrip(MsgOpenReq, &req, MsgHandleResp, &resp); err != nil {
		return 0, fmt.Errorf("open %s: %w", p, err)
	}
	return fileservice.Handle(resp.Handle), nil
}

func (c *Client) Read(h fileservice.Handle, offset int64, maxLength int) ([]byte, error) {
	maxLength = min(maxLength, MaxReadLength)
	var resp ReadResp
	req := ReadReq{Handle: uint32(h), Offset: offset, Max: maxLength}
	if err := c.roundTrip(MsgReadReq, &req, MsgReadResp, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		resp.Data = []byte{}
	}
	return resp.Data, remoteError(resp.Error, resp.Code)
}

func (c *Client) Write(h fileservice.Handle, data []byte) (int, error) {
	total := 0
	for len(data) > 0 {
		n := min(len(data), c.chunkSize)
		var resp WriteResp
		if err := c.roundTrip(MsgWriteReq, &WriteReq{Handle: uint32(h), Data: data[:n]}, MsgWriteResp, &resp); err != nil {
			return total, err
		}
		total += resp.Written
		if resp.Written < n {
			return total, nil
		}
		data = data[n:]
	}
	return total, nil
}

func (c *Client) CreateFolder(p string, perm os.FileMode) error {
	if err := c.roundTrip(MsgCreateFolderReq, &CreateFolderReq{Path: p, Perm: uint32(perm)}, MsgAckResp, &AckResp{}); err != nil {
		return fmt.Errorf("create folder %s: %w", p, err)
	}
	return nil
}

func (c *Client) CreateFile(p string, perm os.FileMode) (fileservice.Handle, error) {
	var resp HandleResp
	if err := c.roundTrip(MsgCreateFileReq, &CreateFileReq{Path: p, Perm: uint32(perm)}, MsgHandleResp, &resp); err != nil {
		return 0, fmt.Errorf("create file %s: %w", p, err)
	}
	return fileservice.Handle(resp.Handle), nil
}

func (c *Client) Close(h fileservice.Handle) error {
	return c.roundTrip(MsgCloseReq, &CloseReq{Handle: uint32(h)}, MsgAckResp, &AckResp{})
}

// roundTrip sends one request and decodes its response. An ErrorResp is
// returned as a *RemoteError.
func (c *Client) roundTrip(reqType byte, req msgp.Marshaler, respType byte, resp msgp.Unmarshaler) error {
	payload, err := req.MarshalMsg(nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}

	c.nextID++
	id := c.nextID
	if err := send(c.conn, Frame{RequestID: id, MsgType: reqType, Payload: payload}); err != nil {
		return err
	}

	f, err := ReadFrame(c.conn)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if f.RequestID != id {
		return fmt.Errorf("response id %d does not match request %d", f.RequestID, id)
	}

	switch f.MsgType {
	case respType:
		if _, err := resp.UnmarshalMsg(f.Payload); err != nil {
			return fmt.Errorf("decode response 0x%02x: %w", f.MsgType, err)
		}
		return nil
	case MsgErrorResp:
		var e ErrorResp
		if _, err := e.UnmarshalMsg(f.Payload); err != nil {
			return errors.New("protocol error (could not decode)")
		}
		return &RemoteError{Message: e.Message, Code: e.Code}
	default:
		return fmt.Errorf("unexpected response type 0x%02x", f.MsgType)
	}
}
