
package discovery

import (
	"context"
	"log"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/lanxfer/lanxfer/looptask"
	"github.com/lanxfer/lanxfer/transport"
)

// receiver binds (0.0.0.0, BROADCAST_PORT) and inserts every heard address
// into peers, except addresses that belong to this machine's own
// interfaces (spec §4.4).
type receiver struct {
	pconn *ipv4.PacketConn
	udp   *net.UDPConn
	peers *PeerSet
	quiet bool
}

func newReceiver(port int, peers *PeerSet, quiet bool) (*receiver, error) {
	lc := transport.ReuseAddrListenConfig()
	pc, err := lc.ListenPacket(context.Background(), "udp4", addrWithPort("0.0.0.0", port))
	if err != nil {
		return nil, err
	}

	udp := pc.(*net.UDPConn)
	pconn := ipv4.NewPacketConn(udp)
	// Request the inbound interface on every read so a future caller can
	// attribute a peer to the NIC it arrived on.
	pconn.SetControlMessage(ipv4.FlagInterface, true)

	return &receiver{pconn: pconn, udp: udp, peers: peers, quiet: quiet}, nil
}

func (r *receiver) close() error { return r.udp.Close() }

func (r *receiver) loop(ctx context.Context) {
	buf := make([]byte, net.IPv4len)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, _, from, err := r.pconn.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if !r.quiet {
				log.Println("discovery: receive:", err)
			}
			return
		}
		if n != net.IPv4len {
			continue
		}

		ip := net.IPv4(buf[0], buf[1], buf[2], buf[3]).String()

		ifaces, err := localIPv4Interfaces()
		if err == nil {
			if _, isSelf := localAddrSet(ifaces)[ip]; isSelf {
				continue
			}
		}

		_ = from // sender's ephemeral UDP port is not identity; only the payload is.
		r.peers.add(ip, time.Now())
	}
}

func (r *receiver) asLoop() *looptask.Loop {
	return looptask.New(r.loop)
}

func addrWithPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
