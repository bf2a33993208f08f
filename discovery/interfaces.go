
// Package discovery implements the LAN peer-discovery loop (spec §4.4):
// a per-interface UDP broadcast sender and a single receiver that maintains
// the live peer set, both wrapped in looptask.Loop harnesses.
package discovery

import "net"

// ifaceAddr is one operationally-up, non-loopback IPv4 interface address.
type ifaceAddr struct {
	ip        net.IP
	broadcast net.IP
}

// localIPv4Interfaces enumerates every operationally-up, non-loopback IPv4
// address on the machine, along with its computed network broadcast
// address (addr | ^netmask per octet, spec §4.4).
func localIPv4Interfaces() ([]ifaceAddr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var out []ifaceAddr
	for _, ifi := range ifaces {
		if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := ifi.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil {
				continue
			}
			out = append(out, ifaceAddr{ip: ip4, broadcast: broadcastAddress(ip4, ipnet.Mask)})
		}
	}
	return out, nil
}

// broadcastAddress computes the network broadcast address for ip/mask:
// addr | ^netmask, octet by octet.
func broadcastAddress(ip net.IP, mask net.IPMask) net.IP {
	ip4 := ip.To4()
	bcast := make(net.IP, net.IPv4len)
	for i := 0; i < net.IPv4len; i++ {
		bcast[i] = ip4[i] | ^mask[i]
	}
	return bcast
}

// localAddrSet returns the set of this machine's own interface IPv4
// addresses, used by the receiver to drop self-broadcasts (spec §4.4).
func localAddrSet(ifaces []ifaceAddr) map[string]struct{} {
	set := make(map[string]struct{}, len(ifaces))
	for _, ifi := range ifaces {
		set[ifi.ip.String()] = struct{}{}
	}
	return set
}
