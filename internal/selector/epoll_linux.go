//go:build linux

package selector

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// epollSelector wraps a Linux epoll instance plus an eventfd used purely to
// interrupt a blocked Wait from another thread — a self-pipe for waking the
// reactor out of band.
type epollSelector struct {
	epfd     int
	wakeFd   int
	eventBuf []unix.EpollEvent
}

// New creates an epoll-backed Selector.
func New() (Selector, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("selector: epoll_create1: %w", err)
	}
	wakeFd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("selector: eventfd: %w", err)
	}
	s := &epollSelector{epfd: epfd, wakeFd: wakeFd, eventBuf: make([]unix.EpollEvent, 128)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(wakeFd),
	}); err != nil {
		unix.Close(wakeFd)
		unix.Close(epfd)
		return nil, fmt.Errorf("selector: register wake fd: %w", err)
	}
	return s, nil
}

func toEpollEvents(m Mask) uint32 {
	var ev uint32
	if m.Has(Readable) {
		ev |= unix.EPOLLIN
	}
	if m.Has(Writable) {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (s *epollSelector) Add(fd int, mask Mask) error {
	return unix.EpollCtl(s.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: toEpollEvents(mask),
		Fd:     int32(fd),
	})
}

func (s *epollSelector) Modify(fd int, mask Mask) error {
	return unix.EpollCtl(s.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Events: toEpollEvents(mask),
		Fd:     int32(fd),
	})
}

func (s *epollSelector) Remove(fd int) error {
	err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (s *epollSelector) Wait(timeout time.Duration) ([]Event, error) {
	ms := int(timeout / time.Millisecond)
	if timeout < 0 {
		ms = 0
	}
	n, err := unix.EpollWait(s.epfd, s.eventBuf, ms)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("selector: epoll_wait: %w", err)
	}
	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		ev := s.eventBuf[i]
		fd := int(ev.Fd)
		if fd == s.wakeFd {
			s.drainWake()
			continue
		}
		var mask Mask
		if ev.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			mask |= Readable
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			mask |= Writable
		}
		events = append(events, Event{Fd: fd, Mask: mask})
	}
	return events, nil
}

func (s *epollSelector) drainWake() {
	var buf [8]byte
	unix.Read(s.wakeFd, buf[:])
}

func (s *epollSelector) Wake() error {
	var one [8]byte
	one[7] = 1
	_, err := unix.Write(s.wakeFd, one[:])
	return err
}

func (s *epollSelector) Close() error {
	unix.Close(s.wakeFd)
	return unix.Close(s.epfd)
}
