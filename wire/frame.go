
// Package wire implements the length-prefixed typed message framing used on
// every control and transfer stream (spec §3, §4.1): a 5-byte header
// (1-byte type, 4-byte little-endian size) followed by that many payload
// bytes.
package wire

import "github.com/lanxfer/lanxfer/config"

// MessageType is the 1-byte tag on every frame.
type MessageType byte

const (
	// Metadata carries a password, a filename/hash/size field, or a resume
	// point, depending on the step of parameter exchange.
	Metadata MessageType = 0
	// Data carries one block of file content.
	Data MessageType = 1
	// EndOfTransfer is an empty-payload terminal signal.
	EndOfTransfer MessageType = 2
)

func (t MessageType) String() string {
	switch t {
	case Metadata:
		return "Metadata"
	case Data:
		return "Data"
	case EndOfTransfer:
		return "EndOfTransfer"
	default:
		return "Unknown"
	}
}

// Valid reports whether t is one of the three wire-defined message types.
func (t MessageType) Valid() bool {
	return t == Metadata || t == Data || t == EndOfTransfer
}

// headerSize is the fixed 1-byte type + 4-byte little-endian size header.
const headerSize = 5

// Message is the result of a Channel.Receive call.
type Message struct {
	Type    MessageType
	Payload []byte
}

// maxFrameSize bounds how large a single frame's payload may declare itself;
// a header claiming more is rejected as Protocol without draining the
// stream, per spec §4.1.
const maxFrameSize = config.BlockSize
