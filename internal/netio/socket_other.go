//go:build !linux

// Non-Linux builds fall back to the standard library's net package instead
// of raw epoll-friendly file descriptors. Readiness is emulated with short
// read/write deadlines, mirroring the deadline-poll idiom the tunnel's own
// TCP bridge used for interruptibility.
package netio

import (
	"errors"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/zaza89/knet-go/internal/address"
)

// ErrClosed is returned by Read when the peer has performed an orderly
// shutdown.
var ErrClosed = errors.New("netio: connection closed by peer")

const pollDeadline = 50 * time.Millisecond

type socket struct {
	conn      net.Conn
	connected bool
}

func Dial(addr address.Address) (Socket, error) {
	conn, err := net.DialTimeout("tcp", addr.String(), pollDeadline)
	if err != nil {
		return &socket{}, ErrInProgress
	}
	return &socket{conn: conn, connected: true}, nil
}

func Listen(addr address.Address, backlog int) (Listener, error) {
	l, err := net.Listen("tcp", addr.String())
	if err != nil {
		return nil, err
	}
	return &listener{l: l}, nil
}

func (s *socket) Fd() int { return -1 }

func (s *socket) Read(p []byte) (int, error) {
	if s.conn == nil {
		return 0, ErrWouldBlock
	}
	s.conn.SetReadDeadline(time.Now().Add(pollDeadline))
	n, err := s.conn.Read(p)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, ErrWouldBlock
		}
		if errors.Is(err, io.EOF) {
			return n, ErrClosed
		}
		return n, err
	}
	return n, nil
}

func (s *socket) Write(p []byte) (int, error) {
	if s.conn == nil {
		return 0, ErrWouldBlock
	}
	s.conn.SetWriteDeadline(time.Now().Add(pollDeadline))
	n, err := s.conn.Write(p)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, ErrWouldBlock
		}
		return n, err
	}
	return n, nil
}

func (s *socket) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *socket) LocalAddr() (address.Address, error) {
	return parseHostPort(s.conn.LocalAddr().String()), nil
}

func (s *socket) RemoteAddr() (address.Address, error) {
	return parseHostPort(s.conn.RemoteAddr().String()), nil
}

func (s *socket) ConnectError() error {
	if s.conn == nil {
		return errNotConnected
	}
	return nil
}

type listener struct {
	l net.Listener
}

func (ln *listener) Fd() int { return -1 }

func (ln *listener) Accept() (Socket, error) {
	ln.l.(interface{ SetDeadline(time.Time) error }).SetDeadline(time.Now().Add(pollDeadline))
	conn, err := ln.l.Accept()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, ErrWouldBlock
		}
		return nil, err
	}
	return &socket{conn: conn, connected: true}, nil
}

func (ln *listener) Close() error { return ln.l.Close() }

func (ln *listener) LocalAddr() (address.Address, error) {
	return parseHostPort(ln.l.Addr().String()), nil
}

var errNotConnected = errors.New("netio: not connected")

func parseHostPort(s string) address.Address {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return address.Address{}
	}
	port, _ := strconv.Atoi(portStr)
	return address.Address{IP: host, Port: port}
}
