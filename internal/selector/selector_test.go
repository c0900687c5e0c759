package selector_test

import (
	"os"
	"testing"
	"time"

	"github.com/zaza89/knet-go/internal/selector"
)

func TestWakeReturnsPromptly(t *testing.T) {
	sel, err := selector.New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer sel.Close()

	done := make(chan struct{})
	go func() {
		sel.Wake()
		close(done)
	}()

	start := time.Now()
	if _, err := sel.Wait(5 * time.Second); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Wait() took %v, want it to return promptly after Wake()", elapsed)
	}
	<-done
}

func TestAddReportsReadable(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	defer r.Close()
	defer w.Close()

	sel, err := selector.New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer sel.Close()

	if err := sel.Add(int(r.Fd()), selector.Readable); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if _, err := w.Write([]byte("x")); err != nil {
		t.Fatalf("pipe write error = %v", err)
	}

	events, err := sel.Wait(2 * time.Second)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	found := false
	for _, ev := range events {
		if ev.Fd == int(r.Fd()) && ev.Mask.Has(selector.Readable) {
			found = true
		}
	}
	if !found {
		t.Fatalf("Wait() = %v, want a readable event for the pipe's read end", events)
	}
}
