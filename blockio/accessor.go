
package blockio

import (
	"io"
	"os"

	"github.com/lanxfer/lanxfer/config"
	"github.com/lanxfer/lanxfer/xferr"
)

// ProgressFunc is notified every time lastProcessedBlock changes. It has a
// single subscriber per Accessor and is called synchronously from
// ReadNextBlock/WriteNextBlock, so it must not block.
type ProgressFunc func(lastProcessedBlock int32)

// Accessor holds an open file handle, the declared file size, and an
// optional Sidecar. It performs fixed BlockSize reads/writes (spec §4.2).
type Accessor struct {
	f       *os.File
	size    int64
	sidecar *Sidecar

	lastProcessedBlock int32
	buf                []byte
	onProgress         ProgressFunc
}

// NewAccessor wraps f (already opened for the right mode), with size the
// declared total file size. sidecar may be nil for a write-only transfer
// with no resume tracking.
func NewAccessor(f *os.File, size int64, sidecar *Sidecar) *Accessor {
	return &Accessor{
		f:       f,
		size:    size,
		sidecar: sidecar,
		buf:     make([]byte, config.BlockSize),
	}
}

// OnProgress installs the single progress subscriber.
func (a *Accessor) OnProgress(fn ProgressFunc) { a.onProgress = fn }

// LastProcessedBlock returns the most recent block index touched.
func (a *Accessor) LastProcessedBlock() int32 { return a.lastProcessedBlock }

// Size returns the declared total file size passed to NewAccessor.
func (a *Accessor) Size() int64 { return a.size }

// Close releases the file handle only. It does not close the sidecar;
// callers close that themselves.
func (a *Accessor) Close() error {
	return a.f.Close()
}

// SeekToBlock positions the file at n*BlockSize if the underlying file is
// seekable (os.File always is), updates lastProcessedBlock, and reports
// whether the new position is at or past EOF.
func (a *Accessor) SeekToBlock(n int32) (atEOF bool, err error) {
	offset := int64(n) * config.BlockSize
	pos, err := a.f.Seek(offset, io.SeekStart)
	if err != nil {
		return false, xferr.Wrap(xferr.Io, err, "blockio: seek")
	}
	a.lastProcessedBlock = n
	return pos >= a.size, nil
}

// ReadNextBlock reads up to BlockSize bytes at the current position and
// returns a view over the internal buffer sized to however much was read
// (0 at EOF). Increments lastProcessedBlock by one regardless of how many
// bytes came back, matching spec §4.2's transmitter loop, which treats a
// short read as the end-of-file signal.
func (a *Accessor) ReadNextBlock() ([]byte, error) {
	n, err := io.ReadFull(a.f, a.buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, xferr.Wrap(xferr.Io, err, "blockio: read block")
	}
	a.lastProcessedBlock++
	if a.onProgress != nil {
		a.onProgress(a.lastProcessedBlock)
	}
	return a.buf[:n], nil
}

// WriteNextBlock appends bytes at the current position, durably persists
// the new lastProcessedBlock via the sidecar (if present), and only then
// increments the in-memory counter — in that order, so a crash between the
// write and the counter bump is recovered by re-requesting the same block
// rather than skipping it (spec §4.2, §7).
func (a *Accessor) WriteNextBlock(data []byte) error {
	if _, err := a.f.Write(data); err != nil {
		return xferr.Wrap(xferr.Io, err, "blockio: write block")
	}
	if err := xferr.Wrap(xferr.Io, a.f.Sync(), "blockio: flush block"); err != nil {
		return err
	}

	next := a.lastProcessedBlock + 1
	if a.sidecar != nil {
		if err := a.sidecar.WriteLastBlock(next); err != nil {
			return err
		}
	}

	a.lastProcessedBlock = next
	if a.onProgress != nil {
		a.onProgress(a.lastProcessedBlock)
	}
	return nil
}
