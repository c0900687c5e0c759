package address_test

import (
	"testing"

	"github.com/zaza89/knet-go/internal/address"
)

func TestNewDefaultsEmptyIPToLoopback(t *testing.T) {
	a := address.New("", 8080)
	if a.IP != "127.0.0.1" {
		t.Fatalf("IP = %q, want 127.0.0.1", a.IP)
	}
	if a.Port != 8080 {
		t.Fatalf("Port = %d, want 8080", a.Port)
	}
}

func TestNewKeepsExplicitIP(t *testing.T) {
	a := address.New("10.0.0.5", 443)
	if a.IP != "10.0.0.5" {
		t.Fatalf("IP = %q, want 10.0.0.5", a.IP)
	}
}

func TestString(t *testing.T) {
	a := address.New("192.168.1.1", 9000)
	if got, want := a.String(), "192.168.1.1:9000"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestZero(t *testing.T) {
	if !(address.Address{}).Zero() {
		t.Fatalf("zero-value Address should report Zero() == true")
	}
	if address.New("1.2.3.4", 1).Zero() {
		t.Fatalf("populated Address should report Zero() == false")
	}
}
