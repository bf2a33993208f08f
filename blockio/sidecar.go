
// Package blockio implements resumable block-level file I/O: the Accessor
// reads/writes fixed BlockSize blocks, and the Sidecar persists the crash-safe
// "last durably written block" + target filename record it resumes from
// (spec §3, §4.2).
package blockio

import (
	"encoding/binary"
	"os"

	"github.com/lanxfer/lanxfer/xferr"
)

// sidecarCounterSize is sizeof(int32): the fixed offset at which the
// filename begins.
const sidecarCounterSize = 4

// Sidecar persists { lastWrittenBlock int32 LE, fileName string } at a fixed
// byte layout: [0..4) counter, [4..) name filling the rest of the file.
type Sidecar struct {
	f *os.File
}

// OpenSidecar opens (creating if absent) the sidecar file at path.
func OpenSidecar(path string) (*Sidecar, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, xferr.Wrap(xferr.Io, err, "blockio: open sidecar")
	}
	return &Sidecar{f: f}, nil
}

// NewSidecarFromFile wraps an already-open handle, e.g. one obtained
// through a collab.Folder rather than a bare path.
func NewSidecarFromFile(f *os.File) *Sidecar {
	return &Sidecar{f: f}
}

// Close closes the underlying file.
func (s *Sidecar) Close() error {
	return s.f.Close()
}

// Exists reports whether the sidecar holds usable resume state. Spec §4.2
// pins this as "length > 4" (> sizeof(int32)): a freshly created file has
// length 0, and length in (0,4] has no filename to resume into, so it must
// be treated as fresh too.
func (s *Sidecar) Exists() (bool, error) {
	info, err := s.f.Stat()
	if err != nil {
		return false, xferr.Wrap(xferr.Io, err, "blockio: stat sidecar")
	}
	return info.Size() > sidecarCounterSize, nil
}

// Read loads the persisted (lastWrittenBlock, fileName) pair. Callers should
// check Exists first; calling Read on a fresh sidecar returns (0, "", nil).
func (s *Sidecar) Read() (lastWrittenBlock int32, fileName string, err error) {
	info, err := s.f.Stat()
	if err != nil {
		return 0, "", xferr.Wrap(xferr.Io, err, "blockio: stat sidecar")
	}
	if info.Size() < sidecarCounterSize {
		return 0, "", nil
	}

	buf := make([]byte, info.Size())
	if _, err := s.f.ReadAt(buf, 0); err != nil {
		return 0, "", xferr.Wrap(xferr.Io, err, "blockio: read sidecar")
	}

	lastWrittenBlock = int32(binary.LittleEndian.Uint32(buf[:sidecarCounterSize]))
	fileName = string(buf[sidecarCounterSize:])
	return lastWrittenBlock, fileName, nil
}

// WriteLastBlock seeks to 0, writes the 4-byte LE counter, and flushes to
// durable storage. Callers must call this, and have it return, strictly
// before advancing their in-memory block counter (spec §4.2) so a crash
// mid-write re-requests the partial block instead of skipping it.
func (s *Sidecar) WriteLastBlock(n int32) error {
	var buf [sidecarCounterSize]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(n))
	if _, err := s.f.WriteAt(buf[:], 0); err != nil {
		return xferr.Wrap(xferr.Io, err, "blockio: write sidecar counter")
	}
	return xferr.Wrap(xferr.Io, s.f.Sync(), "blockio: flush sidecar")
}

// WriteFileName truncates the sidecar to 4+len(name) and writes name at
// offset 4, then flushes.
func (s *Sidecar) WriteFileName(name string) error {
	if err := s.f.Truncate(int64(sidecarCounterSize + len(name))); err != nil {
		return xferr.Wrap(xferr.Io, err, "blockio: truncate sidecar")
	}
	if _, err := s.f.WriteAt([]byte(name), sidecarCounterSize); err != nil {
		return xferr.Wrap(xferr.Io, err, "blockio: write sidecar name")
	}
	return xferr.Wrap(xferr.Io, s.f.Sync(), "blockio: flush sidecar")
}
