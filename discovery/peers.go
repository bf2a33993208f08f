
package discovery

import (
	"sync"
	"time"
)

// PeerSet is the observable mapping IPv4 -> last-heard timestamp (spec §3).
// It is mutated by the receiver loop only (single producer); readers
// outside the core treat it as safe for concurrent reads.
type PeerSet struct {
	mu    sync.Mutex
	peers map[string]time.Time
}

// NewPeerSet returns an empty peer set.
func NewPeerSet() *PeerSet {
	return &PeerSet{peers: make(map[string]time.Time)}
}

// add records addr as heard-from now. Duplicates simply refresh the
// timestamp; no expiry is implemented here (spec §4.4 leaves that to
// implementers).
func (p *PeerSet) add(addr string, at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.peers[addr] = at
}

// Snapshot returns a copy of the current peer set.
func (p *PeerSet) Snapshot() map[string]time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]time.Time, len(p.peers))
	for k, v := range p.peers {
		out[k] = v
	}
	return out
}
