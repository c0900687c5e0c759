//go:build linux

package netio

import (
	"errors"
	"fmt"
	"net"
)

// ErrClosed is returned by Read when the peer has performed an orderly
// shutdown (read() returning 0).
var ErrClosed = errors.New("netio: connection closed by peer")

func parseIPv4(s string) [4]byte {
	ip := net.ParseIP(s)
	if ip == nil {
		return [4]byte{0, 0, 0, 0}
	}
	v4 := ip.To4()
	if v4 == nil {
		return [4]byte{0, 0, 0, 0}
	}
	return [4]byte{v4[0], v4[1], v4[2], v4[3]}
}

func formatIPv4(b [4]byte) string {
	return fmt.Sprintf("%d.%d.%d.%d", b[0], b[1], b[2], b[3])
}

func formatIPv6(b [16]byte) string {
	ip := net.IP(b[:])
	return ip.String()
}
