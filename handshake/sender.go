
package handshake

import (
	"encoding/binary"

	"github.com/lanxfer/lanxfer/wire"
	"github.com/lanxfer/lanxfer/xferr"
)

// SenderExchange runs the sender's half of parameter exchange (spec §4.6)
// over ch and returns the resume point the receiver reported — the block
// index the sender must start streaming from.
func SenderExchange(ch *wire.Channel, password string, meta FileMetadata) (resumeFrom int32, err error) {
	if err := ch.Send(wire.Metadata, []byte(password)); err != nil {
		return 0, err
	}

	verdict, err := ch.Receive()
	if err != nil {
		return 0, err
	}
	switch verdict.Type {
	case wire.EndOfTransfer:
		return 0, xferr.New(xferr.InvalidPassword, "handshake: password rejected")
	case wire.Metadata:
		// proceed
	default:
		return 0, xferr.New(xferr.Protocol, "handshake: unexpected password verdict type")
	}

	if err := ch.Send(wire.Metadata, []byte(meta.Name)); err != nil {
		return 0, err
	}
	if err := ch.Send(wire.Metadata, meta.Hash); err != nil {
		return 0, err
	}
	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(meta.Size))
	if err := ch.Send(wire.Metadata, sizeBuf[:]); err != nil {
		return 0, err
	}

	resume, err := ch.Receive()
	if err != nil {
		return 0, err
	}
	switch resume.Type {
	case wire.EndOfTransfer:
		return 0, xferr.New(xferr.RemoteCancelled, "handshake: receiver cancelled during resume negotiation")
	case wire.Metadata:
		if len(resume.Payload) != 4 {
			return 0, xferr.New(xferr.Protocol, "handshake: malformed resume point")
		}
		return int32(binary.LittleEndian.Uint32(resume.Payload)), nil
	default:
		return 0, xferr.New(xferr.Protocol, "handshake: unexpected resume point frame type")
	}
}
