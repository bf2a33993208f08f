
package session

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lanxfer/lanxfer/collab"
	"github.com/lanxfer/lanxfer/config"
)

// connPair returns two ends of a real loopback TCP connection, since smux
// negotiates actual socket semantics (not just io.Reader/Writer).
func connPair(t *testing.T) (client, server net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	acceptErr := make(chan error, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			acceptErr <- err
			return
		}
		accepted <- c
	}()

	client, err = net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	select {
	case server = <-accepted:
	case err := <-acceptErr:
		t.Fatalf("accept: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("accept timed out")
	}
	return client, server
}

func dialAndAccept(t *testing.T, root1, root2 collab.Folder, password string) (dialer, acceptor *Session, closedDialer, closedAcceptor chan *Session) {
	t.Helper()
	clientConn, serverConn := connPair(t)

	closedDialer = make(chan *Session, 1)
	closedAcceptor = make(chan *Session, 1)

	serverDone := make(chan *Session, 1)
	serverErr := make(chan error, 1)
	go func() {
		s, err := AcceptIncoming(serverConn, root2, password, collab.AutoPrompts{}, false, func(s *Session) { closedAcceptor <- s })
		if err != nil {
			serverErr <- err
			return
		}
		serverDone <- s
	}()

	dialer, err := DialOutgoing(clientConn, root1, password, collab.AutoPrompts{}, false, func(s *Session) { closedDialer <- s })
	if err != nil {
		t.Fatalf("DialOutgoing: %v", err)
	}

	select {
	case acceptor = <-serverDone:
	case err := <-serverErr:
		t.Fatalf("AcceptIncoming: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("AcceptIncoming timed out")
	}
	return dialer, acceptor, closedDialer, closedAcceptor
}

func TestStartOutgoingTransfersFile(t *testing.T) {
	senderRoot := collab.NewLocalFolder(t.TempDir())
	receiverRoot := collab.NewLocalFolder(t.TempDir())

	dialer, acceptor, _, _ := dialAndAccept(t, senderRoot, receiverRoot, "")
	defer dialer.Stop()
	defer acceptor.Stop()

	content := []byte("session package round trip")
	srcPath := filepath.Join(senderRoot.Path(), "greeting.txt")
	if err := os.WriteFile(srcPath, content, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}
	f, err := os.Open(srcPath)
	if err != nil {
		t.Fatalf("open src: %v", err)
	}

	if err := dialer.StartOutgoing(f, int64(len(content)), "greeting.txt"); err != nil {
		t.Fatalf("StartOutgoing: %v", err)
	}

	dstPath := filepath.Join(receiverRoot.Path(), "greeting.txt")
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got, err := os.ReadFile(dstPath)
		if err == nil && string(got) == string(content) {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("timed out waiting for transfer to complete")
}

func TestStopDrainsTransfersAndNotifiesOnClosed(t *testing.T) {
	senderRoot := collab.NewLocalFolder(t.TempDir())
	receiverRoot := collab.NewLocalFolder(t.TempDir())

	dialer, acceptor, closedDialer, closedAcceptor := dialAndAccept(t, senderRoot, receiverRoot, "")

	dialer.Stop()
	acceptor.Stop()

	select {
	case s := <-closedDialer:
		if s != dialer {
			t.Fatal("onClosed callback received wrong *Session")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dialer onClosed callback never fired")
	}
	select {
	case s := <-closedAcceptor:
		if s != acceptor {
			t.Fatal("onClosed callback received wrong *Session")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("acceptor onClosed callback never fired")
	}

	if snap := dialer.Snapshot(); len(snap) != 0 {
		t.Fatalf("expected empty snapshot after Stop, got %+v", snap)
	}

	// Stop is idempotent.
	dialer.Stop()
	acceptor.Stop()
}

func TestStartOutgoingWrongPasswordIsRejected(t *testing.T) {
	senderRoot := collab.NewLocalFolder(t.TempDir())
	receiverRoot := collab.NewLocalFolder(t.TempDir())

	clientConn, serverConn := connPair(t)

	serverDone := make(chan *Session, 1)
	serverErr := make(chan error, 1)
	go func() {
		s, err := AcceptIncoming(serverConn, receiverRoot, "correct-horse", collab.AutoPrompts{}, false, func(*Session) {})
		if err != nil {
			serverErr <- err
			return
		}
		serverDone <- s
	}()

	dialer, err := DialOutgoing(clientConn, senderRoot, "wrong-password", collab.AutoPrompts{}, false, func(*Session) {})
	if err != nil {
		t.Fatalf("DialOutgoing: %v", err)
	}
	defer dialer.Stop()

	var acceptor *Session
	select {
	case acceptor = <-serverDone:
		defer acceptor.Stop()
	case err := <-serverErr:
		t.Fatalf("AcceptIncoming: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("AcceptIncoming timed out")
	}

	content := []byte("should never arrive")
	srcPath := filepath.Join(senderRoot.Path(), "secret.txt")
	if err := os.WriteFile(srcPath, content, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}
	f, err := os.Open(srcPath)
	if err != nil {
		t.Fatalf("open src: %v", err)
	}

	if err := dialer.StartOutgoing(f, int64(len(content)), "secret.txt"); err == nil {
		t.Fatal("expected StartOutgoing to fail on a password mismatch")
	}

	dstPath := filepath.Join(receiverRoot.Path(), "secret.txt")
	if _, err := os.Stat(dstPath); err == nil {
		t.Fatal("file was written to receiver despite a password mismatch")
	}
}

// bigContent returns deterministic content spanning several blocks, large
// enough that a pause fired right after StartOutgoing reliably lands
// mid-transfer rather than racing it to completion.
func bigContent(blocks int, extra int) []byte {
	content := make([]byte, blocks*config.BlockSize+extra)
	for i := range content {
		content[i] = byte(i * 7)
	}
	return content
}

// waitForPartialOutbound polls dialer's snapshot until it sees the lone
// outbound transfer with some but not all bytes sent, then pauses it and
// waits for the Paused state to land (xfer.Transmit only checks its pause
// token at the top of the next loop iteration, not instantly).
func waitForPartialOutbound(t *testing.T, dialer *Session) {
	t.Helper()

	caughtMidFlight := false
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && !caughtMidFlight {
		snap := dialer.Snapshot()
		switch {
		case len(snap) == 1 && snap[0].BytesDone > 0 && snap[0].BytesDone < snap[0].BytesTotal:
			dialer.PauseAll()
			caughtMidFlight = true
		case len(snap) == 0:
			t.Fatal("outbound transfer finished before it could be caught mid-flight")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	if !caughtMidFlight {
		t.Fatal("never observed the outbound transfer mid-flight")
	}

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := dialer.Snapshot()
		if len(snap) == 1 && snap[0].State == Paused {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("outbound transfer never reached Paused state")
}

// TestPauseThenResumeAllCompletesTransfer exercises spec §4.8/§4.9's
// resumable pause within a single still-open session: a Paused outcome must
// leave the channel and accessor alive so ResumeAll can pick up where the
// transfer left off, rather than tearing them down like a Completed outcome.
func TestPauseThenResumeAllCompletesTransfer(t *testing.T) {
	senderRoot := collab.NewLocalFolder(t.TempDir())
	receiverRoot := collab.NewLocalFolder(t.TempDir())

	dialer, acceptor, _, _ := dialAndAccept(t, senderRoot, receiverRoot, "")
	defer dialer.Stop()
	defer acceptor.Stop()

	content := bigContent(40, 0)
	srcPath := filepath.Join(senderRoot.Path(), "big.bin")
	if err := os.WriteFile(srcPath, content, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}
	f, err := os.Open(srcPath)
	if err != nil {
		t.Fatalf("open src: %v", err)
	}

	if err := dialer.StartOutgoing(f, int64(len(content)), "big.bin"); err != nil {
		t.Fatalf("StartOutgoing: %v", err)
	}

	waitForPartialOutbound(t, dialer)

	// The receiver's own transfer is still registered (merely blocked
	// waiting on the next frame, since pause is a sender-side decision) and
	// must not have been torn down by the sender's pause.
	if snap := acceptor.Snapshot(); len(snap) != 1 {
		t.Fatalf("expected the receiver's transfer to still be live across a pause, got %+v", snap)
	}

	dialer.ResumeAll()

	dstPath := filepath.Join(receiverRoot.Path(), "big.bin")
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		got, err := os.ReadFile(dstPath)
		if err == nil && len(got) == len(content) {
			if string(got) != string(content) {
				t.Fatal("content mismatch after resume")
			}
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("timed out waiting for resumed transfer to complete")
}

// TestResumeAfterSessionDropContinuesFromSidecar exercises spec §8's
// "interrupted then resumed" scenario: the connection itself is torn down
// mid-transfer, and a brand new session, dialed later, must pick the file up
// from the receiver's on-disk sidecar rather than starting over.
func TestResumeAfterSessionDropContinuesFromSidecar(t *testing.T) {
	senderRoot := collab.NewLocalFolder(t.TempDir())
	receiverRoot := collab.NewLocalFolder(t.TempDir())

	content := bigContent(40, 1234)
	srcPath := filepath.Join(senderRoot.Path(), "drop.bin")
	if err := os.WriteFile(srcPath, content, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	dialer1, acceptor1, _, _ := dialAndAccept(t, senderRoot, receiverRoot, "")

	f1, err := os.Open(srcPath)
	if err != nil {
		t.Fatalf("open src: %v", err)
	}
	if err := dialer1.StartOutgoing(f1, int64(len(content)), "drop.bin"); err != nil {
		t.Fatalf("StartOutgoing: %v", err)
	}

	waitForPartialOutbound(t, dialer1)

	dstPath := filepath.Join(receiverRoot.Path(), "drop.bin")
	got, err := os.ReadFile(dstPath)
	if err != nil || len(got) == 0 || len(got) >= len(content) {
		t.Fatalf("expected a partial receive before dropping the connection, got %d of %d bytes (err=%v)", len(got), len(content), err)
	}

	// Simulate a dropped connection: tear the whole session down instead of
	// a graceful pause/resume within it.
	dialer1.Stop()
	acceptor1.Stop()

	f2, err := os.Open(srcPath)
	if err != nil {
		t.Fatalf("reopen src: %v", err)
	}
	dialer2, acceptor2, _, _ := dialAndAccept(t, senderRoot, receiverRoot, "")
	defer dialer2.Stop()
	defer acceptor2.Stop()

	if err := dialer2.StartOutgoing(f2, int64(len(content)), "drop.bin"); err != nil {
		t.Fatalf("StartOutgoing (resume): %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		got, err := os.ReadFile(dstPath)
		if err == nil && len(got) == len(content) {
			if string(got) != string(content) {
				t.Fatal("content mismatch after resuming from a dropped session")
			}
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("timed out waiting for the resumed session to complete the transfer")
}
