// Package netio provides the non-blocking socket primitives the channel
// layer and selector build on. It is a thin wrapper: the policy (state
// machine, buffering, callbacks) lives in the knet package; this package
// only knows how to create, connect, accept, read, write, and describe a
// raw socket.
package netio

import (
	"errors"

	"github.com/zaza89/knet-go/internal/address"
)

// ErrWouldBlock is returned by Read/Write when the operation cannot proceed
// without blocking. Callers re-arm the appropriate selector interest and
// retry on the next readiness event.
var ErrWouldBlock = errors.New("netio: operation would block")

// ErrInProgress is returned by Dial when a non-blocking connect has been
// started but not yet completed; the caller waits for send-readiness.
var ErrInProgress = errors.New("netio: connect in progress")

// Socket is a non-blocking, fd-backed stream socket.
type Socket interface {
	Fd() int
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	LocalAddr() (address.Address, error)
	RemoteAddr() (address.Address, error)
	// ConnectError returns the pending error on a connecting socket once it
	// becomes writable (SO_ERROR), or nil if the connect succeeded.
	ConnectError() error
}

// Listener is a non-blocking listening socket.
type Listener interface {
	Fd() int
	Accept() (Socket, error)
	Close() error
	LocalAddr() (address.Address, error)
}
