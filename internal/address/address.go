// Package address holds the immutable host:port value type shared by
// channels and references. It is intentionally minimal — address resolution
// is the socket layer's job, not ours.
package address

import "fmt"

// Address is a resolved IPv4/IPv6 endpoint.
type Address struct {
	IP   string
	Port int
}

// New builds an Address, defaulting an empty IP to the loopback address
// when no host is supplied.
func New(ip string, port int) Address {
	if ip == "" {
		ip = "127.0.0.1"
	}
	return Address{IP: ip, Port: port}
}

func (a Address) String() string {
	return fmt.Sprintf("%s:%d", a.IP, a.Port)
}

// Zero reports whether the address was never observed.
func (a Address) Zero() bool {
	return a.IP == "" && a.Port == 0
}
