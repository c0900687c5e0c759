package knet_test

import (
	"testing"
	"time"

	knet "github.com/zaza89/knet-go"
)

func TestAcceptConnectEchoRoundTrip(t *testing.T) {
	loop, err := knet.NewLoop(knet.LoopOptions{Name: "test"})
	if err != nil {
		t.Fatalf("NewLoop() error = %v", err)
	}
	loop.Start()
	defer loop.Stop()

	type accepted struct{ ref *knet.Reference }
	acceptedCh := make(chan accepted, 1)
	recvCh := make(chan string, 1)

	serverCb := func(ref *knet.Reference, event knet.CallbackEvent) {
		switch event {
		case knet.EventOnAccept:
			acceptedCh <- accepted{ref}
		case knet.EventOnRecv:
			buf := make([]byte, ref.Stream().Available())
			n := ref.Stream().Read(buf)
			recvCh <- string(buf[:n])
		}
	}

	acceptor, err := loop.Accept("127.0.0.1", 0, 16, 128, 4096, serverCb)
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	defer acceptor.Close()

	addr, err := acceptor.LocalAddr()
	if err != nil {
		t.Fatalf("LocalAddr() error = %v", err)
	}

	connectedCh := make(chan struct{}, 1)
	clientCb := func(ref *knet.Reference, event knet.CallbackEvent) {
		if event == knet.EventOnConnect {
			connectedCh <- struct{}{}
		}
	}

	client, err := loop.Connect(addr.IP, addr.Port, 2*time.Second, 128, 4096, clientCb)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	select {
	case <-connectedCh:
	case <-time.After(2 * time.Second):
		t.Fatalf("client never observed EventOnConnect")
	}

	var server *knet.Reference
	select {
	case a := <-acceptedCh:
		server = a.ref
	case <-time.After(2 * time.Second):
		t.Fatalf("server never observed EventOnAccept")
	}
	defer server.Close()

	if err := client.Write([]byte("hello")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	select {
	case got := <-recvCh:
		if got != "hello" {
			t.Fatalf("server received %q, want %q", got, "hello")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server never observed EventOnRecv")
	}
}

func TestIdleTimeoutFires(t *testing.T) {
	loop, err := knet.NewLoop(knet.LoopOptions{Name: "test", TimerFreqMs: 20, TimerSlots: 1})
	if err != nil {
		t.Fatalf("NewLoop() error = %v", err)
	}
	loop.Start()
	defer loop.Stop()

	acceptedCh := make(chan *knet.Reference, 1)
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

	timeoutCh := make(chan struct{}, 1)
	clientCb := func(ref *knet.Reference, event knet.CallbackEvent) {
		if event == knet.EventOnTimeout {
			select {
			case timeoutCh <- struct{}{}:
			default:
			}
		}
	}
	client, err := loop.Connect(addr.IP, addr.Port, time.Second, 128, 4096, clientCb)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	select {
	case <-acceptedCh:
	case <-time.After(2 * time.Second):
		t.Fatalf("server never observed EventOnAccept")
	}

	client.SetIdleTimeout(40 * time.Millisecond)

	select {
	case <-timeoutCh:
	case <-time.After(2 * time.Second):
		t.Fatalf("client never observed EventOnTimeout")
	}
}
