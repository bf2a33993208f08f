
package handshake

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lanxfer/lanxfer/blockio"
	"github.com/lanxfer/lanxfer/collab"
	"github.com/lanxfer/lanxfer/config"
	"github.com/lanxfer/lanxfer/xferr"
)

// ResolvedFile is what §4.7's on-disk file resolution hands back to the
// receiver's parameter exchange: the target file ready to write into, its
// sidecar, and the block index to resume from.
type ResolvedFile struct {
	File       *os.File
	Sidecar    *blockio.Sidecar
	ResumeFrom int32
}

// ResolveReceivedFile implements spec §4.7. root is the session's rootDir
// handle; receivedFileName is the name the sender proposed; hash is the
// content hash driving the sidecar's identity key.
func ResolveReceivedFile(root collab.Folder, prompts collab.UserPrompts, receivedFileName string, hash []byte) (*ResolvedFile, error) {
	metaDir, err := root.GetOrCreateSub(config.MetadataDirName)
	if err != nil {
		return nil, xferr.Wrap(xferr.Io, err, "handshake: open metadata dir")
	}

	metaFileName := HexHash(hash)
	metaFile, err := metaDir.GetOrCreateFile(metaFileName)
	if err != nil {
		return nil, xferr.Wrap(xferr.Io, err, "handshake: open sidecar")
	}
	sidecar := blockio.NewSidecarFromFile(metaFile)

	hasResumeState, err := sidecar.Exists()
	if err != nil {
		sidecar.Close()
		return nil, err
	}

	if hasResumeState {
		lastBlock, actualName, err := sidecar.Read()
		if err != nil {
			sidecar.Close()
			return nil, err
		}
		if ok, err := root.FileExists(actualName); err == nil && ok {
			f, err := root.GetOrCreateFile(actualName)
			if err != nil {
				sidecar.Close()
				return nil, xferr.Wrap(xferr.Io, err, "handshake: reopen resumed file")
			}
			return &ResolvedFile{File: f, Sidecar: sidecar, ResumeFrom: lastBlock}, nil
		}
		// The sidecar claims resume state but the target file is gone;
		// fall through and treat this as a fresh receive under the same
		// sidecar.
	}

	finalName, err := resolveConflict(root, prompts, receivedFileName)
	if err != nil {
		sidecar.Close()
		return nil, err
	}

	f, err := root.GetOrCreateFile(finalName)
	if err != nil {
		sidecar.Close()
		return nil, xferr.Wrap(xferr.Io, err, "handshake: create target file")
	}

	if err := sidecar.WriteFileName(finalName); err != nil {
		f.Close()
		sidecar.Close()
		return nil, err
	}
	if err := sidecar.WriteLastBlock(0); err != nil {
		f.Close()
		sidecar.Close()
		return nil, err
	}

	return &ResolvedFile{File: f, Sidecar: sidecar, ResumeFrom: 0}, nil
}

// resolveConflict implements the overwrite/rename/abort prompt (spec §4.7).
// It only consults prompts when candidateName already exists in root.
func resolveConflict(root collab.Folder, prompts collab.UserPrompts, candidateName string) (string, error) {
	exists, err := root.FileExists(candidateName)
	if err != nil {
		return "", xferr.Wrap(xferr.Io, err, "handshake: stat candidate")
	}
	if !exists {
		return candidateName, nil
	}

	choice, err := prompts.ResolveConflict(candidateName)
	if err != nil {
		return "", xferr.Wrap(xferr.Io, err, "handshake: resolve conflict prompt")
	}

	switch choice {
	case collab.Overwrite:
		if err := root.DeleteFile(candidateName); err != nil {
			return "", xferr.Wrap(xferr.Io, err, "handshake: delete for overwrite")
		}
		return candidateName, nil
	case collab.Rename:
		return findUnusedName(root, candidateName)
	case collab.Abort:
		return "", xferr.New(xferr.LocalCancelled, "handshake: user aborted on name conflict")
	default:
		return "", xferr.New(xferr.LocalCancelled, "handshake: unknown conflict choice")
	}
}

// findUnusedName generates "name (n).ext" candidates starting at n=1,
// probing in batches of 5 via FilesExist, and returns the lowest n that is
// free (spec §4.7).
func findUnusedName(root collab.Folder, name string) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for batchStart := 1; ; batchStart += 5 {
		names := make([]string, 5)
		for i := 0; i < 5; i++ {
			names[i] = fmt.Sprintf("%s (%d)%s", base, batchStart+i, ext)
		}
		exist, err := root.FilesExist(names)
		if err != nil {
			return "", xferr.Wrap(xferr.Io, err, "handshake: probe rename batch")
		}
		for i, taken := range exist {
			if !taken {
				return names[i], nil
			}
		}
	}
}
