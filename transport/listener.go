
// Package transport provides the TCP connection acceptor and outgoing
// dialer (spec §4.5): a fixed-port listener emitting accepted sockets, and
// a dial helper, both applying the default socket buffer sizes.
package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/lanxfer/lanxfer/config"
	"github.com/lanxfer/lanxfer/looptask"
	"github.com/lanxfer/lanxfer/xferr"
)

// Acceptor wraps a looptask.Loop around a TCP listener: the loop body awaits
// one accepted connection at a time, applies the default socket buffer
// sizes, and hands it to onAccept. Cancellation closes any in-flight Accept
// immediately because Close on the listener unblocks Accept.
type Acceptor struct {
	loop     *looptask.Loop
	listener net.Listener
	onAccept func(net.Conn)
}

// NewAcceptor binds a TCP listener on (0.0.0.0, port) with SO_REUSEADDR on
// non-Windows platforms (spec §4.5) and wires onAccept as the per-connection
// callback.
func NewAcceptor(port int, onAccept func(net.Conn)) (*Acceptor, error) {
	lc := ReuseAddrListenConfig()
	ln, err := lc.Listen(context.Background(), "tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return nil, xferr.Wrap(xferr.Io, err, "transport: listen")
	}

	a := &Acceptor{listener: ln, onAccept: onAccept}
	a.loop = looptask.New(a.acceptLoop)
	return a, nil
}

// Addr returns the listener's bound address.
func (a *Acceptor) Addr() net.Addr { return a.listener.Addr() }

// Start begins accepting connections. Idempotent.
func (a *Acceptor) Start() error { return a.loop.Run() }

// Stop cancels the accept loop and closes the listener so any in-flight
// Accept call unblocks immediately.
func (a *Acceptor) Stop() {
	a.loop.Close()
	a.listener.Close()
}

func (a *Acceptor) acceptLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := a.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			return
		}

		if tcp, ok := conn.(*net.TCPConn); ok {
			tcp.SetReadBuffer(config.SocketBuffer)
			tcp.SetWriteBuffer(config.SocketBuffer)
		}

		select {
		case <-ctx.Done():
			conn.Close()
			return
		default:
		}

		a.onAccept(conn)
	}
}
