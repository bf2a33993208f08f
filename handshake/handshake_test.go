package handshake

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/lanxfer/lanxfer/collab"
	"github.com/lanxfer/lanxfer/wire"
	"github.com/lanxfer/lanxfer/xferr"
)

func pipeChannels() (*wire.Channel, *wire.Channel) {
	a, b := net.Pipe()
	return wire.NewChannel(a, false), wire.NewChannel(b, false)
}

func TestExchangeHappyPath(t *testing.T) {
	senderCh, receiverCh := pipeChannels()
	root := collab.NewLocalFolder(t.TempDir())

	meta := FileMetadata{Name: "a.bin", Hash: []byte("0123456789abcdef"), Size: 42}

	recvDone := make(chan *ReceiverResult, 1)
	recvErr := make(chan error, 1)
	go func() {
		res, err := ReceiverExchange(receiverCh, "", root, collab.AutoPrompts{})
		recvDone <- res
		recvErr <- err
	}()

	resume, err := SenderExchange(senderCh, "", meta)
	if err != nil {
		t.Fatalf("sender exchange: %v", err)
	}
	if resume != 0 {
		t.Fatalf("resume = %d, want 0 for a fresh receive", resume)
	}

	res := <-recvDone
	if err := <-recvErr; err != nil {
		t.Fatalf("receiver exchange: %v", err)
	}
	if res.Metadata.Name != "a.bin" || res.Metadata.Size != 42 {
		t.Fatalf("unexpected metadata: %+v", res.Metadata)
	}
	res.Resolved.File.Close()
	res.Resolved.Sidecar.Close()

	if _, err := os.Stat(filepath.Join(root.Path(), "a.bin")); err != nil {
		t.Fatalf("expected a.bin on disk: %v", err)
	}
}

func TestExchangePasswordMismatch(t *testing.T) {
	senderCh, receiverCh := pipeChannels()
	root := collab.NewLocalFolder(t.TempDir())

	recvErr := make(chan error, 1)
	go func() {
		_, err := ReceiverExchange(receiverCh, "open sesame", root, collab.AutoPrompts{})
		recvErr <- err
	}()

	_, err := SenderExchange(senderCh, "hunter2", FileMetadata{Name: "x", Hash: []byte("h"), Size: 0})
	if !xferr.Is(err, xferr.InvalidPassword) {
		t.Fatalf("sender err = %v, want InvalidPassword", err)
	}
	if rerr := <-recvErr; !xferr.Is(rerr, xferr.InvalidPassword) {
		t.Fatalf("receiver err = %v, want InvalidPassword", rerr)
	}
}

func TestFindUnusedNameProbesBatches(t *testing.T) {
	dir := t.TempDir()
	root := collab.NewLocalFolder(dir)

	for _, n := range []string{"report.pdf", "report (1).pdf", "report (2).pdf", "report (3).pdf"} {
		f, err := root.CreateFile(n)
		if err != nil {
			t.Fatalf("seed file %s: %v", n, err)
		}
		f.Close()
	}

	got, err := findUnusedName(root, "report.pdf")
	if err != nil {
		t.Fatalf("findUnusedName: %v", err)
	}
	if got != "report (4).pdf" {
		t.Fatalf("got %q, want report (4).pdf", got)
	}
}

func TestResolveConflictOverwrite(t *testing.T) {
	dir := t.TempDir()
	root := collab.NewLocalFolder(dir)
	f, _ := root.CreateFile("dup.txt")
	f.WriteString("old")
	f.Close()

	name, err := resolveConflict(root, overwritePrompts{}, "dup.txt")
	if err != nil {
		t.Fatalf("resolveConflict: %v", err)
	}
	if name != "dup.txt" {
		t.Fatalf("got %q, want dup.txt", name)
	}
	if ok, _ := root.FileExists("dup.txt"); ok {
		t.Fatal("overwrite should have deleted the existing file before recreation")
	}
}

func TestResolveConflictAbort(t *testing.T) {
	dir := t.TempDir()
	root := collab.NewLocalFolder(dir)
	f, _ := root.CreateFile("dup.txt")
	f.Close()

	_, err := resolveConflict(root, abortPrompts{}, "dup.txt")
	if !xferr.Is(err, xferr.LocalCancelled) {
		t.Fatalf("err = %v, want LocalCancelled", err)
	}
}

type overwritePrompts struct{ collab.AutoPrompts }

func (overwritePrompts) ResolveConflict(string) (collab.ConflictChoice, error) {
	return collab.Overwrite, nil
}

type abortPrompts struct{ collab.AutoPrompts }

func (abortPrompts) ResolveConflict(string) (collab.ConflictChoice, error) {
	return collab.Abort, nil
}
