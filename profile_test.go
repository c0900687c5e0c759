package knet_test

import (
	"strings"
	"testing"

	knet "github.com/zaza89/knet-go"
)

func TestProfileCounters(t *testing.T) {
	p := knet.NewProfile()

	if got := p.SentBytes(); got != 0 {
		t.Fatalf("SentBytes() on a fresh Profile = %d, want 0", got)
	}

	p.AddSendBytes(100)
	p.AddRecvBytes(40)
	if got := p.SentBytes(); got != 100 {
		t.Fatalf("SentBytes() = %d, want 100", got)
	}
	if got := p.RecvBytes(); got != 40 {
		t.Fatalf("RecvBytes() = %d, want 40", got)
	}
}

func TestProfileDump(t *testing.T) {
	p := knet.NewProfile()
	p.AddSendBytes(10)

	var buf strings.Builder
	if err := p.Dump(&buf); err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Sent bytes:") || !strings.Contains(out, "10") {
		t.Fatalf("Dump() output = %q, want it to report 10 sent bytes", out)
	}
}
