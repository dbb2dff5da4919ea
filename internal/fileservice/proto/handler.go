package proto

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/tinylib/msgp/msgp"

	"github.com/bamsammich/ferry/internal/fileservice"
)

// Handler serves the device protocol for one connection on top of a
// fileservice.Service. Handles opened through the connection are tracked
// and released when the connection ends.
type Handler struct {
	svc      fileservice.Service
	open     map[fileservice.Handle]struct{}
	logger   *slog.Logger
	compress bool
}

// NewHandler creates a handler backed by svc. allowCompress controls
// whether the handler agrees to a client's compression request.
func NewHandler(svc fileservice.Service, allowCompress bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		svc:      svc,
		open:     make(map[fileservice.Handle]struct{}),
		logger:   logger,
		compress: allowCompress,
	}
}

// Serve performs the hello handshake and answers requests until the peer
// disconnects. A clean disconnect returns nil.
func (h *Handler) Serve(conn net.Conn) error {
	defer h.releaseAll()

	conn, err := h.hello(conn)
	if err != nil {
		return err
	}

	for {
		f, err := ReadFrame(conn)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}

		respType, resp, err := h.dispatch(f)
		if err != nil {
			h.logger.Debug("request failed", "msg_type", fmt.Sprintf("0x%02x", f.MsgType), "error", err)
			respType, resp = MsgErrorResp, &ErrorResp{Message: err.Error(), Code: errorCode(err)}
		}
		payload, err := resp.MarshalMsg(nil)
		if err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
		if err := send(conn, Frame{RequestID: f.RequestID, MsgType: respType, Payload: payload}); err != nil {
			return err
		}
	}
}

// hello answers the plaintext handshake and returns the connection to use
// for the rest of the session.
func (h *Handler) hello(conn net.Conn) (net.Conn, error) {
	f, err := ReadFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("read hello: %w", err)
	}
	if f.MsgType != MsgHelloReq {
		return nil, fmt.Errorf("expected hello, got 0x%02x", f.MsgType)
	}
	var req HelloReq
	if _, err := req.UnmarshalMsg(f.Payload); err != nil {
		return nil, fmt.Errorf("decode hello: %w", err)
	}

	var (
		respType byte = MsgHelloResp
		resp     msgp.Marshaler
	)
	compress := req.Compress && h.compress
	if req.Version != ProtocolVersion {
		respType = MsgErrorResp
		resp = &ErrorResp{Message: fmt.Sprintf("unsupported protocol version %d", req.Version)}
	} else {
		resp = &HelloResp{Version: ProtocolVersion, ChunkSize: DataChunkSize, Compress: compress}
	}
	payload, err := resp.MarshalMsg(nil)
	if err != nil {
		return nil, err
	}
	if err := WriteFrame(conn, Frame{RequestID: f.RequestID, MsgType: respType, Payload: payload}); err != nil {
		return nil, err
	}
	if respType == MsgErrorResp {
		return nil, fmt.Errorf("client protocol version %d", req.Version)
	}

	if !compress {
		return conn, nil
	}
	return NewCompressedConn(conn)
}

//nolint:gocyclo // protocol message dispatcher with one case per message type
func (h *Handler) dispatch(f Frame) (byte, msgp.Marshaler, error) {
	switch f.MsgType {
	case MsgStatReq:
		var req StatReq
		if err := decode(&req, f.Payload); err != nil {
			return 0, nil, err
		}
		d, err := h.svc.Stat(req.Path, req.Follow)
		if err != nil {
			return 0, nil, err
		}
		return MsgStatResp, &StatResp{Entry: FromDescriptor(*d)}, nil

	case MsgListReq:
		var req ListReq
		if err := decode(&req, f.Payload); err != nil {
			return 0, nil, err
		}
		dir, err := h.svc.Stat(req.Path, true)
		if err != nil {
			return 0, nil, err
		}
		entries, err := h.svc.List(*dir)
		if err != nil {
			return 0, nil, err
		}
		resp := &ListResp{Entries: make([]DescriptorMsg, len(entries))}
		for i, e := range entries {
			resp.Entries[i] = FromDescriptor(e)
		}
		return MsgListResp, resp, nil

	case MsgOpenReq:
		var req OpenReq
		if err := decode(&req, f.Payload); err != nil {
			return 0, nil, err
		}
		hd, err := h.svc.Open(req.Path, fileservice.OpenMode(req.Mode), os.FileMode(req.Perm), req.Create)
		if err != nil {
			return 0, nil, err
		}
		h.open[hd] = struct{}{}
		return MsgHandleResp, &HandleResp{Handle: uint32(hd)}, nil

	case MsgReadReq:
		var req ReadReq
		if err := decode(&req, f.Payload); err != nil {
			return 0, nil, err
		}
		data, err := h.svc.Read(fileservice.Handle(req.Handle), req.Offset, min(req.Max, MaxReadLength))
		resp := &ReadResp{Data: data}
		if err != nil {
			resp.Error, resp.Code = err.Error(), errorCode(err)
		}
		return MsgReadResp, resp, nil

	case MsgWriteReq:
		var req WriteReq
		if err := decode(&req, f.Payload); err != nil {
			return 0, nil, err
		}
		n, err := h.svc.Write(fileservice.Handle(req.Handle), req.Data)
		if err != nil {
			return 0, nil, err
		}
		return MsgWriteResp, &WriteResp{Written: n}, nil

	case MsgCloseReq:
		var req CloseReq
		if err := decode(&req, f.Payload); err != nil {
			return 0, nil, err
		}
		delete(h.open, fileservice.Handle(req.Handle))
		if err := h.svc.Close(fileservice.Handle(req.Handle)); err != nil {
			return 0, nil, err
		}
		return MsgAckResp, &AckResp{}, nil

	case MsgCreateFolderReq:
		var req CreateFolderReq
		if err := decode(&req, f.Payload); err != nil {
			return 0, nil, err
		}
		if err := h.svc.CreateFolder(req.Path, os.FileMode(req.Perm)); err != nil {
			return 0, nil, err
		}
		return MsgAckResp, &AckResp{}, nil

	case MsgCreateFileReq:
		var req CreateFileReq
		if err := decode(&req, f.Payload); err != nil {
			return 0, nil, err
		}
		hd, err := h.svc.CreateFile(req.Path, os.FileMode(req.Perm))
		if err != nil {
			return 0, nil, err
		}
		h.open[hd] = struct{}{}
		return MsgHandleResp, &HandleResp{Handle: uint32(hd)}, nil

	default:
		return 0, nil, fmt.Errorf("unknown message type: 0x%02x", f.MsgType)
	}
}

// releaseAll closes handles the client left open.
func (h *Handler) releaseAll() {
	for hd := range h.open {
		if err := h.svc.Close(hd); err != nil {
			h.logger.Debug("release handle", "handle", hd, "error", err)
		}
	}
	clear(h.open)
}

func decode(m msgp.Unmarshaler, payload []byte) error {
	if _, err := m.UnmarshalMsg(payload); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}
