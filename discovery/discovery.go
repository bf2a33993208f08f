
package discovery

import (
	"time"

	"github.com/lanxfer/lanxfer/looptask"
)

// Handler is the two independent loops that together form LAN discovery
// (spec §4.4): a sender broadcasting this machine's addresses, and a
// receiver building the live peer set.
type Handler struct {
	send     *sender
	sendLoop *looptask.Loop

	recv     *receiver
	recvLoop *looptask.Loop

	Peers *PeerSet
}

// New constructs a Handler bound to the given broadcast port, broadcasting
// every interval. quiet suppresses the per-interface startup log lines.
func New(broadcastPort int, interval time.Duration, quiet bool) (*Handler, error) {
	peers := NewPeerSet()

	snd, err := newSender(broadcastPort, interval, quiet)
	if err != nil {
		return nil, err
	}

	rcv, err := newReceiver(broadcastPort, peers, quiet)
	if err != nil {
		snd.closeAll()
		return nil, err
	}

	return &Handler{
		send:     snd,
		sendLoop: snd.asLoop(),
		recv:     rcv,
		recvLoop: rcv.asLoop(),
		Peers:    peers,
	}, nil
}

// Start begins both loops. Idempotent.
func (h *Handler) Start() error {
	if err := h.sendLoop.Run(); err != nil {
		return err
	}
	return h.recvLoop.Run()
}

// Stop cancels both loops and releases their sockets.
func (h *Handler) Stop() {
	h.sendLoop.Close()
	h.recvLoop.Close()
	h.recv.close()
}
