
// Package session wires C1–C7 into one orchestrator per TCP connection
// (spec §4.9): a control stream plus the set of inbound/outbound transfers
// multiplexed above it via smux.
package session

import (
	"context"
	"net"
	"os"
	"sync"

	"github.com/xtaci/smux"

	"github.com/lanxfer/lanxfer/blockio"
	"github.com/lanxfer/lanxfer/collab"
	"github.com/lanxfer/lanxfer/config"
	"github.com/lanxfer/lanxfer/handshake"
	"github.com/lanxfer/lanxfer/looptask"
	"github.com/lanxfer/lanxfer/wire"
	"github.com/lanxfer/lanxfer/xfer"
	"github.com/lanxfer/lanxfer/xferr"
)

// Direction says which way a Transfer's bytes flow relative to this Session.
type Direction int

const (
	Outbound Direction = iota
	Inbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "inbound"
	}
	return "outbound"
}

// State is a Transfer's current run state (spec §4.8/§4.9: only Paused has
// an observable resumption).
type State int

const (
	Active State = iota
	Paused
)

func (s State) String() string {
	if s == Paused {
		return "paused"
	}
	return "active"
}

// TransferStatus is the point-in-time observability record SPEC_FULL.md's
// Snapshot promises, for an out-of-scope UI to poll.
type TransferStatus struct {
	Name       string
	Direction  Direction
	State      State
	BytesDone  int64
	BytesTotal int64
}

// Transfer is one direction's worth of live state (spec §3's Transfer
// record). The Session's run function for a Transfer removes it from its
// set on final termination — but a Paused transfer stays in its set, its
// channel and accessor left open, so ResumeAll/Resume can restart it later.
type Transfer struct {
	Name      string
	Hash      []byte
	Direction Direction

	mu       sync.Mutex
	pause    *xfer.Token
	cancel   *xfer.Token
	progress int32
	state    State

	ch      *wire.Channel
	acc     *blockio.Accessor
	sidecar *blockio.Sidecar // set only for Inbound transfers
}

func (t *Transfer) Progress() int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

func (t *Transfer) setProgress(n int32) {
	t.mu.Lock()
	t.progress = n
	t.mu.Unlock()
}

func (t *Transfer) status() TransferStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := t.acc.Size()
	done := int64(t.progress) * config.BlockSize
	if done > total {
		done = total
	}
	return TransferStatus{
		Name:       t.Name,
		Direction:  t.Direction,
		State:      t.state,
		BytesDone:  done,
		BytesTotal: total,
	}
}

// Pause signals the transfer's pause token; it is checked at the top of the
// next loop iteration (spec §4.8).
func (t *Transfer) Pause() { t.pause.Fire() }

// Cancel signals the transfer's cancel token; this is fatal and tears the
// transfer down at its next suspension point.
func (t *Transfer) Cancel() { t.cancel.Fire() }

// Session owns one control byte channel and two sets of transfers (spec
// §3, §4.9).
type Session struct {
	mux       *smux.Session
	control   *wire.Channel
	heartbeat *looptask.Loop

	root     collab.Folder
	password string
	prompts  collab.UserPrompts
	compress bool

	mu       sync.Mutex
	inbound  map[*Transfer]struct{}
	outbound map[*Transfer]struct{}
	stopped  bool

	acceptLoop *looptask.Loop

	onClosed func(*Session)
}

// newSession is shared setup between client- and server-side construction.
func newSession(mux *smux.Session, control *wire.Channel, root collab.Folder, password string, prompts collab.UserPrompts, compress bool, onClosed func(*Session)) *Session {
	s := &Session{
		mux:      mux,
		control:  control,
		root:     root,
		password: password,
		prompts:  prompts,
		compress: compress,
		inbound:  make(map[*Transfer]struct{}),
		outbound: make(map[*Transfer]struct{}),
		onClosed: onClosed,
	}
	s.heartbeat = looptask.New(s.heartbeatLoop)
	s.acceptLoop = looptask.New(s.acceptLoopBody)
	return s
}

// DialOutgoing establishes the TCP stream, negotiates the smux client side,
// and opens the reserved control stream.
func DialOutgoing(conn net.Conn, root collab.Folder, password string, prompts collab.UserPrompts, compress bool, onClosed func(*Session)) (*Session, error) {
	cfg, err := buildSmuxConfig()
	if err != nil {
		return nil, xferr.Wrap(xferr.Io, err, "session: build smux config")
	}
	mux, err := smux.Client(conn, cfg)
	if err != nil {
		return nil, xferr.Wrap(xferr.Io, err, "session: smux client")
	}
	ctrlStream, err := mux.OpenStream()
	if err != nil {
		mux.Close()
		return nil, xferr.Wrap(xferr.Io, err, "session: open control stream")
	}

	s := newSession(mux, wire.NewChannel(ctrlStream, compress), root, password, prompts, compress, onClosed)
	s.Start()
	return s, nil
}

// AcceptIncoming negotiates the smux server side over an accepted TCP
// connection and accepts the reserved control stream.
func AcceptIncoming(conn net.Conn, root collab.Folder, password string, prompts collab.UserPrompts, compress bool, onClosed func(*Session)) (*Session, error) {
	cfg, err := buildSmuxConfig()
	if err != nil {
		return nil, xferr.Wrap(xferr.Io, err, "session: build smux config")
	}
	mux, err := smux.Server(conn, cfg)
	if err != nil {
		return nil, xferr.Wrap(xferr.Io, err, "session: smux server")
	}
	ctrlStream, err := mux.AcceptStream()
	if err != nil {
		mux.Close()
		return nil, xferr.Wrap(xferr.Io, err, "session: accept control stream")
	}

	s := newSession(mux, wire.NewChannel(ctrlStream, compress), root, password, prompts, compress, onClosed)
	s.Start()
	return s, nil
}

// Start begins the heartbeat loop and the per-transfer stream accept loop,
// on both the dialing and the accepting side. The heartbeat loop only waits
// for cancellation; nothing is sent on the control channel. Idempotent.
func (s *Session) Start() {
	s.heartbeat.Run()
	s.acceptLoop.Run()
}

// StartOutgoing runs parameter exchange as sender over a fresh sub-stream,
// then launches a transmitter transfer (spec §4.9's start_outgoing).
func (s *Session) StartOutgoing(f *os.File, size int64, name string) error {
	hash, err := handshake.HashFile(f)
	if err != nil {
		f.Close()
		return err
	}

	stream, err := s.mux.OpenStream()
	if err != nil {
		f.Close()
		return xferr.Wrap(xferr.Io, err, "session: open transfer stream")
	}
	ch := wire.NewChannel(stream, s.compress)

	resumeFrom, err := handshake.SenderExchange(ch, s.password, handshake.FileMetadata{
		Name: name, Hash: hash, Size: int32(size),
	})
	if err != nil {
		ch.Close()
		f.Close()
		return err
	}

	acc := blockio.NewAccessor(f, size, nil)
	if _, err := acc.SeekToBlock(resumeFrom); err != nil {
		ch.Close()
		acc.Close()
		return err
	}

	t := &Transfer{
		Name: name, Hash: hash, Direction: Outbound,
		pause: xfer.NewToken(), cancel: xfer.NewToken(),
		ch: ch, acc: acc,
	}
	acc.OnProgress(t.setProgress)

	s.mu.Lock()
	s.outbound[t] = struct{}{}
	s.mu.Unlock()

	go s.runTransmitter(t)
	return nil
}

// runTransmitter drives one Transmit loop. Completed/error tears the
// transfer all the way down; Paused leaves ch/acc open and the Transfer in
// s.outbound so a later Resume can reuse them (spec §4.8/§4.9's resumable
// pause, not a hard stop).
func (s *Session) runTransmitter(t *Transfer) {
	outcome, err := xfer.Transmit(t.ch, t.acc, t.pause, t.cancel)
	if err != nil {
		s.prompts.ReportError(err.Error())
		s.teardownOutbound(t)
		return
	}
	if outcome == xfer.Paused {
		t.mu.Lock()
		t.state = Paused
		t.mu.Unlock()
		return
	}
	s.teardownOutbound(t)
}

func (s *Session) teardownOutbound(t *Transfer) {
	t.ch.Close()
	t.acc.Close()
	s.removeOutbound(t)
}

// handleIncoming runs parameter exchange as receiver over an accepted
// sub-stream, then launches a receiver transfer (spec §4.9's
// handle_incoming).
func (s *Session) handleIncoming(stream *smux.Stream) {
	ch := wire.NewChannel(stream, s.compress)

	result, err := handshake.ReceiverExchange(ch, s.password, s.root, s.prompts)
	if err != nil {
		ch.Close()
		if !xferr.Is(err, xferr.Disposed) {
			s.prompts.ReportError(err.Error())
		}
		return
	}

	acc := blockio.NewAccessor(result.Resolved.File, int64(result.Metadata.Size), result.Resolved.Sidecar)
	if _, err := acc.SeekToBlock(result.Resolved.ResumeFrom); err != nil {
		ch.Close()
		acc.Close()
		result.Resolved.Sidecar.Close()
		s.prompts.ReportError(err.Error())
		return
	}

	t := &Transfer{
		Name: result.Metadata.Name, Hash: result.Metadata.Hash, Direction: Inbound,
		pause: xfer.NewToken(), cancel: xfer.NewToken(),
		ch: ch, acc: acc, sidecar: result.Resolved.Sidecar,
	}
	acc.OnProgress(t.setProgress)

	s.mu.Lock()
	s.inbound[t] = struct{}{}
	s.mu.Unlock()

	go s.runReceiver(t)
}

// runReceiver drives one Receive loop with the same Completed/Paused/error
// branching as runTransmitter.
func (s *Session) runReceiver(t *Transfer) {
	outcome, err := xfer.Receive(t.ch, t.acc, t.pause, t.cancel)
	if err != nil {
		s.prompts.ReportError(err.Error())
		s.teardownInbound(t)
		return
	}
	if outcome == xfer.Paused {
		t.mu.Lock()
		t.state = Paused
		t.mu.Unlock()
		return
	}
	if metaDir, err := s.root.GetOrCreateSub(config.MetadataDirName); err == nil {
		metaDir.DeleteFile(handshake.HexHash(t.Hash))
	}
	s.teardownInbound(t)
}

func (s *Session) teardownInbound(t *Transfer) {
	t.ch.Close()
	t.acc.Close()
	t.sidecar.Close()
	s.removeInbound(t)
}

// Resume restarts a Paused transfer with a fresh pause token, keeping its
// cancel token and reusing its still-open channel and accessor. A no-op for
// a transfer that is not currently paused.
func (s *Session) Resume(t *Transfer) {
	t.mu.Lock()
	if t.state != Paused {
		t.mu.Unlock()
		return
	}
	t.pause = xfer.NewToken()
	t.state = Active
	dir := t.Direction
	t.mu.Unlock()

	if dir == Outbound {
		go s.runTransmitter(t)
	} else {
		go s.runReceiver(t)
	}
}

// ResumeAll restarts every paused transfer in both sets.
func (s *Session) ResumeAll() {
	s.mu.Lock()
	transfers := make([]*Transfer, 0, len(s.inbound)+len(s.outbound))
	for t := range s.inbound {
		transfers = append(transfers, t)
	}
	for t := range s.outbound {
		transfers = append(transfers, t)
	}
	s.mu.Unlock()

	for _, t := range transfers {
		s.Resume(t)
	}
}

func (s *Session) removeOutbound(t *Transfer) {
	s.mu.Lock()
	delete(s.outbound, t)
	s.mu.Unlock()
}

func (s *Session) removeInbound(t *Transfer) {
	s.mu.Lock()
	delete(s.inbound, t)
	s.mu.Unlock()
}

func (s *Session) acceptLoopBody(ctx context.Context) {
	for {
		stream, err := s.mux.AcceptStream()
		if err != nil {
			return
		}
		select {
		case <-ctx.Done():
			stream.Close()
			return
		default:
		}
		go s.handleIncoming(stream)
	}
}

func (s *Session) heartbeatLoop(ctx context.Context) {
	<-ctx.Done()
}

// Stop cancels every transfer, closes the control channel and the smux
// session, and drains both sets (spec §4.9's stop). An Active transfer tears
// itself down from its own goroutine once Transmit/Receive observes the
// fired cancel token; a Paused transfer has no goroutine left to do that, so
// Stop closes its channel/accessor/sidecar directly here.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	inbound := make([]*Transfer, 0, len(s.inbound))
	for t := range s.inbound {
		inbound = append(inbound, t)
	}
	outbound := make([]*Transfer, 0, len(s.outbound))
	for t := range s.outbound {
		outbound = append(outbound, t)
	}
	s.mu.Unlock()

	for _, t := range inbound {
		s.stopTransfer(t, true)
	}
	for _, t := range outbound {
		s.stopTransfer(t, false)
	}

	s.heartbeat.Close()
	s.acceptLoop.Close()
	s.control.Close()
	s.mux.Close()

	if s.onClosed != nil {
		s.onClosed(s)
	}
}

func (s *Session) stopTransfer(t *Transfer, inbound bool) {
	t.Cancel()

	t.mu.Lock()
	paused := t.state == Paused
	t.mu.Unlock()
	if !paused {
		return
	}

	t.ch.Close()
	t.acc.Close()
	if inbound {
		t.sidecar.Close()
		s.removeInbound(t)
	} else {
		s.removeOutbound(t)
	}
}

// Snapshot reports the status of every live inbound/outbound transfer
// (SPEC_FULL.md §3(a)'s observability surface for an out-of-scope UI).
func (s *Session) Snapshot() []TransferStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TransferStatus, 0, len(s.inbound)+len(s.outbound))
	for t := range s.inbound {
		out = append(out, t.status())
	}
	for t := range s.outbound {
		out = append(out, t.status())
	}
	return out
}

// PauseAll signals every live transfer's pause token.
func (s *Session) PauseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for t := range s.inbound {
		t.Pause()
	}
	for t := range s.outbound {
		t.Pause()
	}
}
