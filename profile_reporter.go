package knet

import (
	"context"
	"fmt"
	"time"

	"github.com/pterm/pterm"
)

var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

func formatBytes(b float64) string {
	unitIdx := 0
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}
	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// StartReporter launches a goroutine that logs this Profile's bandwidth
// and channel counts to the console every interval, the Go-native
// equivalent of Profile.Dump run on a timer. It stops when ctx is
// cancelled.
func (p *Profile) StartReporter(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sent := p.SentBandwidth()
				recv := p.RecvBandwidth()
				pterm.DefaultLogger.Info(fmt.Sprintf(
					"In: %s/s | Out: %s/s | established: %d active: %d closed: %d",
					formatBytes(float64(recv)),
					formatBytes(float64(sent)),
					p.EstablishedChannelCount(),
					p.ActiveChannelCount(),
					p.CloseChannelCount(),
				))
			case <-ctx.Done():
				return
			}
		}
	}()
}
