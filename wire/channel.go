
package wire

import (
	"encoding/binary"
	"io"
	"sync"
	"sync/atomic"

	"github.com/lanxfer/lanxfer/config"
	"github.com/lanxfer/lanxfer/xferr"
)

// Channel is a framed byte channel over a reliable ordered byte stream
// (spec §4.1). It is strictly request/response-agnostic: Send and Receive
// never correlate with each other, and the caller must guarantee at most one
// outstanding Send and at most one outstanding Receive at a time — the
// Channel itself is not internally serialised (spec §5).
type Channel struct {
	rwc    io.ReadWriteCloser
	closed int32
	once   sync.Once

	recvBuf []byte // reusable; a returned Message.Payload is a slice into it
}

// NewChannel wraps rwc in a framed Channel. If compress is true, payload
// bytes are snappy-compressed transparently (both peers must agree on this
// out of band — it is a session-level choice, not a per-frame one).
func NewChannel(rwc io.ReadWriteCloser, compress bool) *Channel {
	if compress {
		rwc = newCompStream(rwc)
	}
	return &Channel{
		rwc:     rwc,
		recvBuf: make([]byte, config.BlockSize),
	}
}

// Close tears the channel down. Idempotent; safe to call more than once.
func (c *Channel) Close() error {
	var err error
	c.once.Do(func() {
		atomic.StoreInt32(&c.closed, 1)
		err = c.rwc.Close()
	})
	return err
}

func (c *Channel) isClosed() bool {
	return atomic.LoadInt32(&c.closed) != 0
}

// Send writes one frame: a 5-byte header followed by payload. payload may be
// empty — an empty-payload Metadata or EndOfTransfer frame is a legal
// typed signal.
func (c *Channel) Send(t MessageType, payload []byte) error {
	if c.isClosed() {
		return xferr.New(xferr.Disposed, "wire: send on closed channel")
	}

	var hdr [headerSize]byte
	hdr[0] = byte(t)
	binary.LittleEndian.PutUint32(hdr[1:], uint32(len(payload)))

	if err := c.writeFull(hdr[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	return c.writeFull(payload)
}

// Receive reads one frame. The returned Message.Payload aliases the
// Channel's internal buffer and is only valid until the next Receive call on
// this Channel; callers that need to retain it must copy.
func (c *Channel) Receive() (Message, error) {
	if c.isClosed() {
		return Message{}, xferr.New(xferr.Disposed, "wire: receive on closed channel")
	}

	var hdr [headerSize]byte
	if err := c.readFull(hdr[:]); err != nil {
		return Message{}, err
	}

	t := MessageType(hdr[0])
	size := binary.LittleEndian.Uint32(hdr[1:])

	if size > maxFrameSize {
		c.Close()
		return Message{}, xferr.New(xferr.Protocol, "wire: frame too large")
	}

	payload := c.recvBuf[:size]
	if size > 0 {
		if err := c.readFull(payload); err != nil {
			return Message{}, err
		}
	}

	return Message{Type: t, Payload: payload}, nil
}

// writeFull loops until len(buf) bytes are written. Any error, or a write
// that makes no progress, is fatal to the channel.
func (c *Channel) writeFull(buf []byte) error {
	written := 0
	for written < len(buf) {
		n, err := c.rwc.Write(buf[written:])
		if err != nil {
			c.Close()
			return xferr.Wrap(xferr.Io, err, "wire: short write")
		}
		if n == 0 {
			c.Close()
			return xferr.New(xferr.Io, "wire: remote closed (zero-byte write)")
		}
		written += n
	}
	return nil
}

// readFull loops until len(buf) bytes are read. A short read, including
// io.EOF before any byte arrives, is fatal to the channel.
func (c *Channel) readFull(buf []byte) error {
	if _, err := io.ReadFull(c.rwc, buf); err != nil {
		c.Close()
		return xferr.Wrap(xferr.Io, err, "wire: remote closed")
	}
	return nil
}
