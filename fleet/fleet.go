
// Package fleet holds the acceptor, the discovery handler, and every live
// session, and fans lifecycle operations out across all three (spec §4.10).
package fleet

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lanxfer/lanxfer/collab"
	"github.com/lanxfer/lanxfer/config"
	"github.com/lanxfer/lanxfer/discovery"
	"github.com/lanxfer/lanxfer/session"
	"github.com/lanxfer/lanxfer/transport"
	"github.com/lanxfer/lanxfer/xferr"
)

// Fleet is the top-level object an embedding program constructs once per
// running instance (spec §4.10's fleet orchestrator).
type Fleet struct {
	cfg      config.Config
	root     collab.Folder
	prompts  collab.UserPrompts

	acceptor  *transport.Acceptor
	discovery *discovery.Handler

	mu       sync.Mutex
	sessions map[*session.Session]struct{}
}

// New builds a Fleet bound to cfg. root is the session's rootDir handle;
// prompts answers the out-of-scope confirmation/conflict surface.
func New(cfg config.Config, root collab.Folder, prompts collab.UserPrompts) (*Fleet, error) {
	f := &Fleet{
		cfg:      cfg,
		root:     root,
		prompts:  prompts,
		sessions: make(map[*session.Session]struct{}),
	}

	acceptor, err := transport.NewAcceptor(cfg.Port, f.onAccept)
	if err != nil {
		return nil, err
	}
	f.acceptor = acceptor

	disc, err := discovery.New(cfg.BroadcastPort, time.Duration(cfg.BroadcastEvery)*time.Millisecond, cfg.Quiet)
	if err != nil {
		return nil, err
	}
	f.discovery = disc

	return f, nil
}

// Start begins accepting connections and broadcasting/listening for peers.
func (f *Fleet) Start() error {
	if err := f.acceptor.Start(); err != nil {
		return err
	}
	return f.discovery.Start()
}

// Stop cancels the acceptor, the discovery loops, and every live session
// (spec §4.10).
func (f *Fleet) Stop() {
	f.acceptor.Stop()
	f.discovery.Stop()

	f.mu.Lock()
	sessions := make([]*session.Session, 0, len(f.sessions))
	for s := range f.sessions {
		sessions = append(sessions, s)
	}
	f.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
}

// Peers returns the live discovery peer set.
func (f *Fleet) Peers() map[string]time.Time {
	return f.discovery.Peers.Snapshot()
}

func (f *Fleet) onAccept(conn net.Conn) {
	s, err := session.AcceptIncoming(conn, f.root, f.cfg.Password, f.prompts, f.cfg.Compress, f.removeSession)
	if err != nil {
		f.prompts.ReportError(err.Error())
		conn.Close()
		return
	}
	f.addSession(s)
}

// SendFile dials (peerHost, peerPort) and starts an outgoing transfer of the
// file at localPath (SPEC_FULL.md's supplemented high-level entry point
// tying together dial + session + parameter exchange for a CLI caller).
func (f *Fleet) SendFile(peerHost string, peerPort int, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return xferr.Wrap(xferr.FileUnavailable, err, "fleet: open send file")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return xferr.Wrap(xferr.FileUnavailable, err, "fleet: stat send file")
	}

	conn, err := transport.Dial(context.Background(), peerHost, peerPort)
	if err != nil {
		file.Close()
		return err
	}

	s, err := session.DialOutgoing(conn, f.root, f.cfg.Password, f.prompts, f.cfg.Compress, f.removeSession)
	if err != nil {
		file.Close()
		conn.Close()
		return err
	}
	f.addSession(s)

	return s.StartOutgoing(file, info.Size(), filepath.Base(localPath))
}

func (f *Fleet) addSession(s *session.Session) {
	f.mu.Lock()
	f.sessions[s] = struct{}{}
	f.mu.Unlock()
}

func (f *Fleet) removeSession(s *session.Session) {
	f.mu.Lock()
	delete(f.sessions, s)
	f.mu.Unlock()
}
