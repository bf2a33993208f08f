package fleet

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lanxfer/lanxfer/collab"
	"github.com/lanxfer/lanxfer/config"
)

func TestSendFileEndToEnd(t *testing.T) {
	senderRoot := t.TempDir()
	receiverRoot := t.TempDir()

	senderCfg := config.Default()
	senderCfg.Port = 55123
	senderCfg.BroadcastPort = 55913
	senderCfg.RootDir = senderRoot
	senderCfg.Quiet = true

	receiverCfg := config.Default()
	receiverCfg.Port = 55124
	receiverCfg.BroadcastPort = 55914
	receiverCfg.RootDir = receiverRoot
	receiverCfg.Quiet = true

	sender, err := New(senderCfg, collab.NewLocalFolder(senderRoot), collab.AutoPrompts{})
	if err != nil {
		t.Fatalf("sender fleet: %v", err)
	}
	if err := sender.Start(); err != nil {
		t.Fatalf("sender start: %v", err)
	}
	defer sender.Stop()

	receiver, err := New(receiverCfg, collab.NewLocalFolder(receiverRoot), collab.AutoPrompts{})
	if err != nil {
		t.Fatalf("receiver fleet: %v", err)
	}
	if err := receiver.Start(); err != nil {
		t.Fatalf("receiver start: %v", err)
	}
	defer receiver.Stop()

	srcPath := filepath.Join(senderRoot, "hello.txt")
	content := []byte("hello lan transfer")
	if err := os.WriteFile(srcPath, content, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	if err := sender.SendFile("127.0.0.1", 55124, srcPath); err != nil {
		t.Fatalf("send file: %v", err)
	}

	dstPath := filepath.Join(receiverRoot, "hello.txt")
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got, err := os.ReadFile(dstPath)
		if err == nil && len(got) == len(content) {
			if string(got) != string(content) {
				t.Fatalf("content mismatch: got %q, want %q", got, content)
			}
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("timed out waiting for transfer to complete")
}
