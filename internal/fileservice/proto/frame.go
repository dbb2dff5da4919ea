package proto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bamsammich/ferry/internal/fileservice"
)

// Every frame starts with a fixed header:
//
//	[4] length of everything after this field, big-endian
//	[4] request ID, echoed by the response
//	[1] message type
//
// followed by the msgpack payload.
const (
	FrameHeaderSize = 9
	MaxFrameSize    = 4 << 20

	// DataChunkSize is the largest payload of one Read or Write request.
	DataChunkSize = fileservice.ChunkSize

	lengthFieldSize = 4
	minFrameLength  = FrameHeaderSize - lengthFieldSize
)

// Frame is a single protocol message on the wire.
type Frame struct {
	Payload   []byte
	RequestID uint32
	MsgType   byte
}

// ErrFrameTooLarge is returned when a frame exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

func (f Frame) encode() ([]byte, error) {
	size := FrameHeaderSize + len(f.Payload)
	if size > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	buf := make([]byte, size)
	binary.BigEndian.PutUint32(buf, uint32(size-lengthFieldSize)) //nolint:gosec // G115: bounded above
	binary.BigEndian.PutUint32(buf[4:], f.RequestID)
	buf[8] = f.MsgType
	copy(buf[FrameHeaderSize:], f.Payload)
	return buf, nil
}

// WriteFrame writes f to w in a single Write call.
func WriteFrame(w io.Writer, f Frame) error {
	buf, err := f.encode()
	if err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame reads the next frame from r. A clean EOF before the header is
// returned unwrapped so callers can tell a closed peer from a broken one.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}

	n := binary.BigEndian.Uint32(hdr[:4])
	switch {
	case n > MaxFrameSize-lengthFieldSize:
		return Frame{}, ErrFrameTooLarge
	case n < minFrameLength:
		return Frame{}, fmt.Errorf("frame too small: length %d", n)
	}

	f := Frame{RequestID: binary.BigEndian.Uint32(hdr[4:8]), MsgType: hdr[8]}
	if rest := n - minFrameLength; rest > 0 {
		f.Payload = make([]byte, rest)
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return Frame{}, fmt.Errorf("read frame payload: %w", err)
		}
	}
	return f, nil
}

// send writes f and flushes w when it buffers, as compressed connections do.
func send(w io.Writer, f Frame) error {
	if err := WriteFrame(w, f); err != nil {
		return err
	}
	if fl, ok := w.(interface{ Flush() error }); ok {
		if err := fl.Flush(); err != nil {
			return fmt.Errorf("flush frame: %w", err)
		}
	}
	return nil
}
