
// Package handshake implements the per-transfer parameter exchange (spec
// §4.6): password gate, metadata exchange, resume-point negotiation, and the
// receiver-side on-disk file resolution (§4.7) that backs it.
package handshake

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"

	"github.com/lanxfer/lanxfer/xferr"
)

// FileMetadata is the three-frame {name, hash, size} record exchanged during
// parameter exchange (spec §3).
type FileMetadata struct {
	Name string
	Hash []byte // 16 bytes in practice (MD5); treated as an opaque identity key
	Size int32
}

// HashFile computes the MD5 of f's full contents without disturbing the
// caller's notion of position: it reads from offset 0 and seeks back to 0
// before returning, since the caller still needs to stream the file from
// the start afterwards.
func HashFile(f *os.File) ([]byte, error) {
	h := md5.New()
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, xferr.Wrap(xferr.Io, err, "handshake: seek for hash")
	}
	if _, err := io.Copy(h, f); err != nil {
		return nil, xferr.Wrap(xferr.Io, err, "handshake: hash file")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, xferr.Wrap(xferr.Io, err, "handshake: rewind after hash")
	}
	return h.Sum(nil), nil
}

// HexHash is the sidecar file name derived from a content hash.
func HexHash(hash []byte) string {
	return hex.EncodeToString(hash)
}
