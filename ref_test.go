package knet_test

import (
	"testing"
	"time"

	knet "github.com/zaza89/knet-go"
)

func TestShareLeaveRefCount(t *testing.T) {
	loop, err := knet.NewLoop(knet.LoopOptions{Name: "test"})
	if err != nil {
		t.Fatalf("NewLoop() error = %v", err)
	}
	loop.Start()
	defer loop.Stop()

	ref, err := loop.Accept("127.0.0.1", 0, 16, 128, 4096, nil)
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	defer ref.Close()

	if got := ref.RefCount(); got != 1 {
		t.Fatalf("RefCount() = %d, want 1", got)
	}

	shared := ref.Share()
	if got := ref.RefCount(); got != 2 {
		t.Fatalf("RefCount() after Share() = %d, want 2", got)
	}
	if !ref.Equal(shared) {
		t.Fatalf("Equal() = false, want true for a Share()d handle")
	}

	shared.Leave()
	if got := ref.RefCount(); got != 1 {
		t.Fatalf("RefCount() after Leave() = %d, want 1", got)
	}
}

func TestDestroyRefusesWhileSharesOutstanding(t *testing.T) {
	loop, err := knet.NewLoop(knet.LoopOptions{Name: "test"})
	if err != nil {
		t.Fatalf("NewLoop() error = %v", err)
	}
	loop.Start()
	defer loop.Stop()

	ref, err := loop.Accept("127.0.0.1", 0, 16, 128, 4096, nil)
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	clone := ref.Share()
	if err := ref.Destroy(); err != knet.ErrRefNonZero {
		t.Fatalf("Destroy() with a clone outstanding = %v, want ErrRefNonZero", err)
	}
	if ref.State() == knet.StateClose {
		t.Fatalf("Destroy() closed the channel while RefCount() > 1")
	}

	clone.Leave()
	if err := ref.Destroy(); err != nil {
		t.Fatalf("Destroy() after last clone left = %v, want nil", err)
	}
	// Called from the test goroutine, Destroy's Close is posted to the
	// loop, so the state change is observed once the loop has run it.
	deadline := time.Now().Add(2 * time.Second)
	for ref.State() != knet.StateClose && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if ref.State() != knet.StateClose {
		t.Fatalf("State() after Destroy() = %v, want StateClose", ref.State())
	}
}

func TestAutoReconnectReincarnatesAfterPeerCloses(t *testing.T) {
	loop, err := knet.NewLoop(knet.LoopOptions{Name: "test"})
	if err != nil {
		t.Fatalf("NewLoop() error = %v", err)
	}
	loop.Start()
	defer loop.Stop()

	acceptedCh := make(chan *knet.Reference, 4)
	serverCb := func(ref *knet.Reference, event knet.CallbackEvent) {
		if event == knet.EventOnAccept {
			acceptedCh <- ref
		}
	}
	acceptor, err := loop.Accept("127.0.0.1", 0, 16, 128, 4096, serverCb)
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	defer acceptor.Close()
	addr, _ := acceptor.LocalAddr()

	connectCh := make(chan struct{}, 4)
	clientCb := func(ref *knet.Reference, event knet.CallbackEvent) {
		if event == knet.EventOnConnect {
			connectCh <- struct{}{}
		}
	}
	client, err := loop.Connect(addr.IP, addr.Port, 0, 128, 4096, clientCb)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.SetAutoReconnect(true)
	defer client.Close()

	var firstServer *knet.Reference
	select {
	case firstServer = <-acceptedCh:
	case <-time.After(2 * time.Second):
		t.Fatalf("server never observed the first EventOnAccept")
	}
	select {
	case <-connectCh:
	case <-time.After(2 * time.Second):
		t.Fatalf("client never observed the first EventOnConnect")
	}

	// Closing the peer's side forces the client's next recv to fail, which
	// drives closeCheckReconnect into reincarnate() since auto-reconnect is
	// enabled: a fresh Reference dials the same address again.
	firstServer.Close()

	select {
	case <-acceptedCh:
	case <-time.After(2 * time.Second):
		t.Fatalf("server never observed the reincarnated connection's EventOnAccept")
	}
	select {
	case <-connectCh:
	case <-time.After(2 * time.Second):
		t.Fatalf("client never observed the reincarnated connection's EventOnConnect")
	}
}
