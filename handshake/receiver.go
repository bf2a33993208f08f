
package handshake

import (
	"encoding/binary"

	"github.com/lanxfer/lanxfer/collab"
	"github.com/lanxfer/lanxfer/wire"
	"github.com/lanxfer/lanxfer/xferr"
)

// ReceiverResult bundles what the receiver's parameter exchange needs to
// hand off to the transfer engine (C7).
type ReceiverResult struct {
	Metadata FileMetadata
	Resolved *ResolvedFile
}

// ReceiverExchange runs the receiver's half of parameter exchange (spec
// §4.6), including on-disk file resolution (§4.7). password is the local
// session password; empty means "accept any".
func ReceiverExchange(ch *wire.Channel, password string, root collab.Folder, prompts collab.UserPrompts) (*ReceiverResult, error) {
	pw, err := ch.Receive()
	if err != nil {
		return nil, err
	}
	if pw.Type != wire.Metadata {
		return nil, xferr.New(xferr.Protocol, "handshake: unexpected password frame type")
	}

	if password != "" && string(pw.Payload) != password {
		_ = ch.Send(wire.EndOfTransfer, nil)
		return nil, xferr.New(xferr.InvalidPassword, "handshake: sender password rejected")
	}
	if err := ch.Send(wire.Metadata, nil); err != nil {
		return nil, err
	}

	name, err := ch.Receive()
	if err != nil {
		return nil, err
	}
	if name.Type == wire.EndOfTransfer {
		return nil, xferr.New(xferr.RemoteCancelled, "handshake: sender cancelled before metadata")
	}
	if name.Type != wire.Metadata {
		return nil, xferr.New(xferr.Protocol, "handshake: unexpected filename frame type")
	}
	fileName := string(name.Payload)

	hashMsg, err := ch.Receive()
	if err != nil {
		return nil, err
	}
	if hashMsg.Type != wire.Metadata {
		return nil, xferr.New(xferr.Protocol, "handshake: unexpected hash frame type")
	}
	hash := append([]byte(nil), hashMsg.Payload...)

	sizeMsg, err := ch.Receive()
	if err != nil {
		return nil, err
	}
	if sizeMsg.Type != wire.Metadata || len(sizeMsg.Payload) != 4 {
		return nil, xferr.New(xferr.Protocol, "handshake: unexpected size frame")
	}
	size := int32(binary.LittleEndian.Uint32(sizeMsg.Payload))

	resolved, err := ResolveReceivedFile(root, prompts, fileName, hash)
	if err != nil {
		return nil, err
	}

	var resumeBuf [4]byte
	binary.LittleEndian.PutUint32(resumeBuf[:], uint32(resolved.ResumeFrom))
	if err := ch.Send(wire.Metadata, resumeBuf[:]); err != nil {
		resolved.File.Close()
		resolved.Sidecar.Close()
		return nil, err
	}

	return &ReceiverResult{
		Metadata: FileMetadata{Name: fileName, Hash: hash, Size: size},
		Resolved: resolved,
	}, nil
}
