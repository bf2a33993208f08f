
// Package xferr defines the error taxonomy shared by every component of the
// transfer core: a fixed set of kinds plus pkg/errors-style wrapping so a
// caller can recover the kind with KindOf(err) after any number of Wrap calls.
package xferr

import (
	"github.com/pkg/errors"
)

// Kind classifies a failure the way the core's callers need to branch on it.
type Kind int

const (
	// Io is an unrecoverable socket or file fault; the transport cannot be
	// reused.
	Io Kind = iota
	// Protocol is an unexpected message type, a size mismatch, or a frame
	// that exceeds the block size.
	Protocol
	// InvalidPassword means the receiver rejected the sender's password.
	InvalidPassword
	// RemoteCancelled means the peer emitted EndOfTransfer at a non-terminal
	// step of parameter exchange.
	RemoteCancelled
	// LocalCancelled means the user aborted via a prompt (e.g. conflict
	// resolution).
	LocalCancelled
	// Cancelled is a programmatic cancellation (a token fired).
	Cancelled
	// FileUnavailable means the file size is unreadable, access is
	// unauthorized, or the declared handle cannot be opened.
	FileUnavailable
	// Disposed means the operation was attempted on a closed component.
	Disposed
)

func (k Kind) String() string {
	switch k {
	case Io:
		return "Io"
	case Protocol:
		return "Protocol"
	case InvalidPassword:
		return "InvalidPassword"
	case RemoteCancelled:
		return "RemoteCancelled"
	case LocalCancelled:
		return "LocalCancelled"
	case Cancelled:
		return "Cancelled"
	case FileUnavailable:
		return "FileUnavailable"
	case Disposed:
		return "Disposed"
	default:
		return "Unknown"
	}
}

// kindError pairs a Kind with a message. It is the innermost error of what
// Wrap builds, so errors.Cause unwraps to it through any number of
// errors.Wrap layers.
type kindError struct {
	kind Kind
	msg  string
}

func (e *kindError) Error() string { return e.msg }

// New creates a fresh error of the given kind with the given message.
func New(kind Kind, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Wrap tags err with a kind and a message. err's text is folded into the
// message; err itself is not kept in the cause chain. pkg/errors adds a
// stack trace, so %+v prints one at the outermost Wrap.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(&kindError{kind: kind, msg: msg + ": " + err.Error()}, msg)
}

// KindOf recovers the Kind tagged onto err by New or Wrap, walking the
// errors.Cause chain. It returns (Io, false) if err was never tagged.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if ke, ok := err.(*kindError); ok {
			return ke.kind, true
		}
		cause := errors.Cause(err)
		if cause == err {
			return Io, false
		}
		err = cause
	}
	return Io, false
}

// Is reports whether err is tagged with kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
