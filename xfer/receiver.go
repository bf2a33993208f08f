
package xfer

import (
	"github.com/lanxfer/lanxfer/blockio"
	"github.com/lanxfer/lanxfer/wire"
	"github.com/lanxfer/lanxfer/xferr"
)

// Receive runs the receiver loop (spec §4.8): it writes every Data frame to
// acc and returns Completed once EndOfTransfer arrives. Because the sender
// emits EndOfTransfer strictly after its final data frame, every block is
// guaranteed durably written before Receive returns Completed.
func Receive(ch *wire.Channel, acc *blockio.Accessor, pause, cancel *Token) (Outcome, error) {
	for {
		if pause.Fired() {
			return Paused, nil
		}
		if cancel.Fired() {
			return 0, xferr.New(xferr.Cancelled, "xfer: receiver cancelled")
		}

		msg, err := ch.Receive()
		if err != nil {
			return 0, err
		}

		if cancel.Fired() {
			return 0, xferr.New(xferr.Cancelled, "xfer: receiver cancelled")
		}

		switch msg.Type {
		case wire.Data:
			if err := acc.WriteNextBlock(msg.Payload); err != nil {
				return 0, err
			}
		case wire.EndOfTransfer:
			return Completed, nil
		default:
			return 0, xferr.New(xferr.Protocol, "xfer: unexpected frame type in data stream")
		}
	}
}
