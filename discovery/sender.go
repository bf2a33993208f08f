
package discovery

import (
	"context"
	"log"
	"net"
	"sync"
	"time"

	"github.com/lanxfer/lanxfer/looptask"
)

// sender periodically broadcasts this machine's own IPv4 address out every
// operationally-up, non-loopback interface (spec §4.4).
type sender struct {
	sockets  []senderSocket
	interval time.Duration
	quiet    bool
}

type senderSocket struct {
	conn *net.UDPConn
	self [net.IPv4len]byte
}

func newSender(port int, interval time.Duration, quiet bool) (*sender, error) {
	ifaces, err := localIPv4Interfaces()
	if err != nil {
		return nil, err
	}

	s := &sender{interval: interval, quiet: quiet}
	for _, ifi := range ifaces {
		// Bound to (interface_address, 0) and connected to
		// (network_broadcast_address, port), exactly as spec §4.4 asks.
		conn, err := net.DialUDP("udp4",
			&net.UDPAddr{IP: ifi.ip, Port: 0},
			&net.UDPAddr{IP: ifi.broadcast, Port: port})
		if err != nil {
			s.closeAll()
			return nil, err
		}
		if err := enableBroadcast(conn); err != nil {
			conn.Close()
			s.closeAll()
			return nil, err
		}

		var self [net.IPv4len]byte
		copy(self[:], ifi.ip.To4())
		s.sockets = append(s.sockets, senderSocket{conn: conn, self: self})

		if !quiet {
			log.Println("discovery: broadcasting on", ifi.ip, "->", ifi.broadcast)
		}
	}
	return s, nil
}

func (s *sender) closeAll() {
	for _, sock := range s.sockets {
		sock.conn.Close()
	}
}

func (s *sender) loop(ctx context.Context) {
	defer s.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var wg sync.WaitGroup
		for _, sock := range s.sockets {
			wg.Add(1)
			go func(sock senderSocket) {
				defer wg.Done()
				if _, err := sock.conn.Write(sock.self[:]); err != nil && !s.quiet {
					log.Println("discovery: broadcast send:", err)
				}
			}(sock)
		}
		wg.Wait()

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.interval):
		}
	}
}

// asLoop returns a looptask.Loop ready to be Run/Stop'd by the caller.
func (s *sender) asLoop() *looptask.Loop {
	return looptask.New(s.loop)
}
