package knet

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// Profile accumulates per-Loop counters: channel counts by lifecycle stage
// and cumulative send/recv byte totals, plus point-in-time bandwidth
// sampling.
//
// established_channel never counts the loop's own wake descriptor in the
// first place, so there is no "subtract the internal pipe ends" correction
// to apply later.
type Profile struct {
	establishedChannel int64
	activeChannel      int64
	closeChannel       int64

	recvBytes int64
	sendBytes int64

	lastSendBytes int64
	lastRecvBytes int64
	lastSendTick  time.Time
	lastRecvTick  time.Time
}

// NewProfile creates a zeroed Profile with its bandwidth sampling clock
// started at the current time.
func NewProfile() *Profile {
	now := time.Now()
	return &Profile{lastSendTick: now, lastRecvTick: now}
}

func (p *Profile) incEstablishedCount() int64 { return atomic.AddInt64(&p.establishedChannel, 1) }
func (p *Profile) decEstablishedCount() int64 { return atomic.AddInt64(&p.establishedChannel, -1) }

// EstablishedChannelCount returns the number of channels that have
// completed their handshake (connect/accept) and are still active; the
// count drops again when such a channel closes.
func (p *Profile) EstablishedChannelCount() int64 {
	return atomic.LoadInt64(&p.establishedChannel)
}

func (p *Profile) incChannelCount() { p.incActiveCount() }
func (p *Profile) decChannelCount() { p.decActiveCount() }

func (p *Profile) incActiveCount() int64 { return atomic.AddInt64(&p.activeChannel, 1) }
func (p *Profile) decActiveCount() int64 { return atomic.AddInt64(&p.activeChannel, -1) }

// ActiveChannelCount returns the number of channels currently registered
// with the loop's selector.
func (p *Profile) ActiveChannelCount() int64 { return atomic.LoadInt64(&p.activeChannel) }

func (p *Profile) incCloseCount() int64 { return atomic.AddInt64(&p.closeChannel, 1) }

// CloseChannelCount returns the cumulative number of channels that have
// transitioned to StateClose.
func (p *Profile) CloseChannelCount() int64 { return atomic.LoadInt64(&p.closeChannel) }

// AddSendBytes accumulates bytes handed to the socket layer for writing.
func (p *Profile) AddSendBytes(n int) int64 { return atomic.AddInt64(&p.sendBytes, int64(n)) }

// AddRecvBytes accumulates bytes pulled off the socket layer.
func (p *Profile) AddRecvBytes(n int) int64 { return atomic.AddInt64(&p.recvBytes, int64(n)) }

// SentBytes returns the lifetime total of bytes handed to the socket layer.
func (p *Profile) SentBytes() int64 { return atomic.LoadInt64(&p.sendBytes) }

// RecvBytes returns the lifetime total of bytes pulled off the socket
// layer.
func (p *Profile) RecvBytes() int64 { return atomic.LoadInt64(&p.recvBytes) }

// SentBandwidth returns bytes/sec sent since the previous call, sampling a
// new interval each time it's called. The byte delta is measured against
// the previous sample's byte total, and the interval against the previous
// sample's timestamp — diffing a byte count against a clock value would
// not be a rate by any unit.
func (p *Profile) SentBandwidth() uint64 {
	now := time.Now()
	total := atomic.LoadInt64(&p.sendBytes)
	delta := total - p.lastSendBytes
	interval := now.Sub(p.lastSendTick)
	if interval <= 0 {
		interval = time.Second
	}
	p.lastSendBytes = total
	p.lastSendTick = now
	return uint64(float64(delta) / interval.Seconds())
}

// RecvBandwidth mirrors SentBandwidth for the receive side.
func (p *Profile) RecvBandwidth() uint64 {
	now := time.Now()
	total := atomic.LoadInt64(&p.recvBytes)
	delta := total - p.lastRecvBytes
	interval := now.Sub(p.lastRecvTick)
	if interval <= 0 {
		interval = time.Second
	}
	p.lastRecvBytes = total
	p.lastRecvTick = now
	return uint64(float64(delta) / interval.Seconds())
}

// Dump writes a human-readable snapshot to w.
func (p *Profile) Dump(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"Established channel: %d\n"+
			"Active channel:      %d\n"+
			"Close channel:       %d\n"+
			"Received bytes:      %d\n"+
			"Sent bytes:          %d\n",
		p.EstablishedChannelCount(),
		p.ActiveChannelCount(),
		p.CloseChannelCount(),
		p.RecvBytes(),
		p.SentBytes(),
	)
	return err
}
