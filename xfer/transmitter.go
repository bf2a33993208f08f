
package xfer

import (
	"github.com/lanxfer/lanxfer/blockio"
	"github.com/lanxfer/lanxfer/config"
	"github.com/lanxfer/lanxfer/wire"
	"github.com/lanxfer/lanxfer/xferr"
)

// Outcome is how a transfer loop ended, short of an error.
type Outcome int

const (
	// Completed means EndOfTransfer was reached normally.
	Completed Outcome = iota
	// Paused means pauseToken fired at a loop boundary; sidecar state is
	// intact and a fresh Token pair can resume the same accessor.
	Paused
)

// Transmit runs the transmitter loop (spec §4.8) until the file is
// exhausted, pause fires, or cancel fires.
func Transmit(ch *wire.Channel, acc *blockio.Accessor, pause, cancel *Token) (Outcome, error) {
	for {
		if pause.Fired() {
			return Paused, nil
		}
		if cancel.Fired() {
			return 0, xferr.New(xferr.Cancelled, "xfer: transmitter cancelled")
		}

		block, err := acc.ReadNextBlock()
		if err != nil {
			return 0, err
		}

		if cancel.Fired() {
			return 0, xferr.New(xferr.Cancelled, "xfer: transmitter cancelled")
		}

		if len(block) == 0 {
			return Completed, ch.Send(wire.EndOfTransfer, nil)
		}

		if err := ch.Send(wire.Data, block); err != nil {
			return 0, err
		}

		if len(block) < config.BlockSize {
			return Completed, ch.Send(wire.EndOfTransfer, nil)
		}
	}
}
