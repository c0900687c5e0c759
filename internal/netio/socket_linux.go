//go:build linux

package netio

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/zaza89/knet-go/internal/address"
)

type socket struct {
	fd int
}

func newNonblockingStream() (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("netio: socket: %w", err)
	}
	return fd, nil
}

// Dial starts a non-blocking TCP connect. It returns ErrInProgress when the
// connect has not completed synchronously (the common case); the caller
// arms send-readiness and later checks ConnectError.
func Dial(addr address.Address) (Socket, error) {
	fd, err := newNonblockingStream()
	if err != nil {
		return nil, err
	}
	sa := toSockaddr(addr)
	err = unix.Connect(fd, sa)
	if err == nil {
		return &socket{fd: fd}, nil
	}
	if err == unix.EINPROGRESS {
		return &socket{fd: fd}, ErrInProgress
	}
	unix.Close(fd)
	return nil, fmt.Errorf("netio: connect %s: %w", addr, err)
}

// Listen creates a non-blocking listening socket bound to addr.
func Listen(addr address.Address, backlog int) (Listener, error) {
	fd, err := newNonblockingStream()
	if err != nil {
		return nil, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netio: reuseaddr: %w", err)
	}
	if err := unix.Bind(fd, toSockaddr(addr)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netio: bind %s: %w", addr, err)
	}
	if backlog <= 0 {
		backlog = 100
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netio: listen: %w", err)
	}
	return &listener{fd: fd}, nil
}

func (s *socket) Fd() int { return s.fd }

func (s *socket) Read(p []byte) (int, error) {
	n, err := unix.Read(s.fd, p)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, ErrWouldBlock
		}
		return 0, err
	}
	if n == 0 {
		return 0, ErrClosed
	}
	return n, nil
}

func (s *socket) Write(p []byte) (int, error) {
	n, err := unix.Write(s.fd, p)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, ErrWouldBlock
		}
		return n, err
	}
	return n, nil
}

func (s *socket) Close() error {
	return unix.Close(s.fd)
}

func (s *socket) LocalAddr() (address.Address, error) {
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return address.Address{}, err
	}
	return fromSockaddr(sa), nil
}

func (s *socket) RemoteAddr() (address.Address, error) {
	sa, err := unix.Getpeername(s.fd)
	if err != nil {
		return address.Address{}, err
	}
	return fromSockaddr(sa), nil
}

func (s *socket) ConnectError() error {
	errno, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if errno != 0 {
		return unix.Errno(errno)
	}
	return nil
}

type listener struct {
	fd int
}

func (l *listener) Fd() int { return l.fd }

func (l *listener) Accept() (Socket, error) {
	fd, _, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if err == unix.EAGAIN {
			return nil, ErrWouldBlock
		}
		return nil, err
	}
	return &socket{fd: fd}, nil
}

func (l *listener) Close() error { return unix.Close(l.fd) }

func (l *listener) LocalAddr() (address.Address, error) {
	sa, err := unix.Getsockname(l.fd)
	if err != nil {
		return address.Address{}, err
	}
	return fromSockaddr(sa), nil
}

// AdoptFd wraps an externally-accepted file descriptor (e.g. from a
// selector's own accept hook) as a Socket.
func AdoptFd(fd int) Socket {
	return &socket{fd: fd}
}

func toSockaddr(a address.Address) unix.Sockaddr {
	sa := &unix.SockaddrInet4{Port: a.Port}
	ip := parseIPv4(a.IP)
	sa.Addr = ip
	return sa
}

func fromSockaddr(sa unix.Sockaddr) address.Address {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		return address.Address{IP: formatIPv4(s.Addr), Port: s.Port}
	case *unix.SockaddrInet6:
		return address.Address{IP: formatIPv6(s.Addr), Port: s.Port}
	default:
		return address.Address{}
	}
}
