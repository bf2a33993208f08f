
package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/lanxfer/lanxfer/config"
	"github.com/lanxfer/lanxfer/xferr"
)

// Dial creates a TCP connection to (address, port), respecting ctx
// cancellation, and sets the default socket buffer sizes (spec §4.5).
func Dial(ctx context.Context, address string, port int) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", address, port))
	if err != nil {
		return nil, xferr.Wrap(xferr.Io, err, "transport: dial")
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.SetReadBuffer(config.SocketBuffer)
		tcp.SetWriteBuffer(config.SocketBuffer)
	}
	return conn, nil
}
