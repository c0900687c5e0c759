package knet

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/zaza89/knet-go/internal/address"
	"github.com/zaza89/knet-go/internal/netio"
	"github.com/zaza89/knet-go/internal/ringbuf"
	"github.com/zaza89/knet-go/internal/sendlist"
)

// DefaultMaxRecvBufferSize is substituted for a listener that left its
// receive-buffer limit at zero.
const DefaultMaxRecvBufferSize = 16 * 1024

// uuidSeq is a process-wide monotonic counter. The channel identifier is
// identifier a "monotonically assigned UUID" — an ordering guarantee a
// random UUID cannot give on its own, so the counter drives ordering and
// google/uuid only supplies the wire-friendly 128-bit representation.
var uuidSeq uint64

func nextChannelUUID() uuid.UUID {
	var seed [8]byte
	v := atomic.AddUint64(&uuidSeq, 1)
	for i := 7; i >= 0; i-- {
		seed[i] = byte(v)
		v >>= 8
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, seed[:])
}

// Channel owns a non-blocking socket, its bounded send list and receive
// ring buffer, and a monotonically assigned UUID.
type Channel struct {
	id uuid.UUID

	sock     netio.Socket
	listener netio.Listener

	recv *ringbuf.Buffer
	send *sendlist.List

	maxSendListLen    int
	maxRecvBufferSize int
}

// NewChannel creates an unconnected Channel. A maxSendListLen <= 0 means
// unbounded; a maxRecvBufferSize <= 0 defaults to DefaultMaxRecvBufferSize.
func NewChannel(maxSendListLen, maxRecvBufferSize int) *Channel {
	if maxRecvBufferSize <= 0 {
		maxRecvBufferSize = DefaultMaxRecvBufferSize
	}
	return &Channel{
		id:                nextChannelUUID(),
		recv:              ringbuf.New(maxRecvBufferSize),
		send:              sendlist.New(maxSendListLen),
		maxSendListLen:    maxSendListLen,
		maxRecvBufferSize: maxRecvBufferSize,
	}
}

// newChannelFromSocket wraps an already-accepted socket, inheriting the
// listener's send-list and receive-buffer limits.
func newChannelFromSocket(sock netio.Socket, maxSendListLen, maxRecvBufferSize int) *Channel {
	c := NewChannel(maxSendListLen, maxRecvBufferSize)
	c.sock = sock
	return c
}

// UUID returns the channel's assigned identifier.
func (c *Channel) UUID() uuid.UUID { return c.id }

// Fd returns the underlying file descriptor, or -1 on platforms where the
// socket layer falls back to the standard library (see internal/netio).
func (c *Channel) Fd() int {
	if c.sock != nil {
		return c.sock.Fd()
	}
	if c.listener != nil {
		return c.listener.Fd()
	}
	return -1
}

// Connect starts a non-blocking connect to addr. A synchronous rejection
// (e.g. ECONNREFUSED on loopback) is returned as an error; otherwise nil is
// returned and completion is observed later via send-readiness.
func (c *Channel) Connect(addr address.Address) error {
	sock, err := netio.Dial(addr)
	if err != nil && err != netio.ErrInProgress {
		return err
	}
	c.sock = sock
	return nil
}

// Accept binds and listens on addr.
func (c *Channel) Accept(addr address.Address, backlog int) error {
	ln, err := netio.Listen(addr, backlog)
	if err != nil {
		return err
	}
	c.listener = ln
	return nil
}

// AcceptClient performs a non-blocking accept on the listening socket,
// returning a fresh Channel for the client that inherits this channel's
// send-list/recv-buffer limits, coerced to the package defaults when this
// channel (the listener) left them at zero.
func (c *Channel) AcceptClient() (*Channel, error) {
	sock, err := c.listener.Accept()
	if err != nil {
		return nil, err
	}
	maxSendListLen := c.maxSendListLen
	maxRecvBufferSize := c.maxRecvBufferSize
	return newChannelFromSocket(sock, maxSendListLen, maxRecvBufferSize), nil
}

// Send enqueues data for transmission, attempting an immediate write when
// the send list was empty. Returns errSendPartial when some or all of data
// could not be written yet (interest must be re-armed), errSendFail on a
// hard socket error.
func (c *Channel) Send(data []byte) error {
	if len(data) == 0 {
		panic("knet: write with empty buffer")
	}
	wasEmpty := c.send.Empty()
	if err := c.send.PushBack(data); err != nil {
		// Send-list overflow is treated the same as a hard send failure:
		// the peer cannot keep up and the channel cannot make progress.
		return errSendFail
	}
	if wasEmpty {
		return c.drainSend()
	}
	return errSendPartial
}

// UpdateSend drains as much of the pending send list as the socket accepts
// right now.
func (c *Channel) UpdateSend() error {
	if c.send.Empty() {
		return nil
	}
	return c.drainSend()
}

func (c *Channel) drainSend() error {
	for !c.send.Empty() {
		buf := c.send.Front()
		n, err := c.sock.Write(buf)
		if n > 0 {
			c.send.Advance(n)
		}
		if err != nil {
			if err == netio.ErrWouldBlock {
				return errSendPartial
			}
			return errSendFail
		}
	}
	return nil
}

// UpdateRecv reads as many bytes as are currently available into the
// receive ring buffer.
func (c *Channel) UpdateRecv() error {
	buf := make([]byte, 4096)
	for {
		n, err := c.sock.Read(buf)
		if n > 0 {
			if _, werr := c.recv.Write(buf[:n]); werr != nil {
				return errRecvBufferFull
			}
		}
		if err != nil {
			if err == netio.ErrWouldBlock {
				return nil
			}
			return errRecvFail
		}
		if n < len(buf) {
			// Short read with no error: drained the socket for now.
			return nil
		}
	}
}

// ConnectError returns the pending connect error observed via SO_ERROR.
func (c *Channel) ConnectError() error {
	return c.sock.ConnectError()
}

// Close releases the underlying socket or listener.
func (c *Channel) Close() error {
	if c.sock != nil {
		return c.sock.Close()
	}
	if c.listener != nil {
		return c.listener.Close()
	}
	return nil
}

// LocalAddr / RemoteAddr proxy the live syscall on every call. Neither
// Channel nor Reference caches the result, so after the socket is closed
// they return an error instead of the last observed address.
func (c *Channel) LocalAddr() (address.Address, error) {
	if c.sock != nil {
		return c.sock.LocalAddr()
	}
	if c.listener != nil {
		return c.listener.LocalAddr()
	}
	return address.Address{}, ErrNotConnected
}

func (c *Channel) RemoteAddr() (address.Address, error) {
	if c.sock == nil {
		return address.Address{}, ErrNotConnected
	}
	return c.sock.RemoteAddr()
}
