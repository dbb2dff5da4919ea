package proto

import (
	"fmt"
	"net"

	"github.com/klauspost/compress/zstd"
)

// zstdConn compresses everything written to a connection and decompresses
// everything read from it. Written data is buffered by the encoder until
// Flush, which send calls after each frame.
type zstdConn struct {
	net.Conn
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCompressedConn layers zstd over conn. Both sides of a connection must
// switch at the same point, right after the Hello exchange. Frames are
// small and strictly alternating, so the fastest level and a single
// goroutine per direction are used.
func NewCompressedConn(conn net.Conn) (net.Conn, error) {
	enc, err := zstd.NewWriter(conn,
		zstd.WithEncoderLevel(zstd.SpeedFastest),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(conn, zstd.WithDecoderConcurrency(1))
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &zstdConn{Conn: conn, enc: enc, dec: dec}, nil
}

func (c *zstdConn) Read(p []byte) (int, error)  { return c.dec.Read(p) }
func (c *zstdConn) Write(p []byte) (int, error) { return c.enc.Write(p) }

// Flush ends the current zstd block so the peer can decode it now.
func (c *zstdConn) Flush() error { return c.enc.Flush() }

// Close stops the encoder, closes conn so the decoder's reader unblocks,
// and then releases the decoder.
func (c *zstdConn) Close() error {
	c.enc.Close()
	err := c.Conn.Close()
	c.dec.Close()
	return err
}
