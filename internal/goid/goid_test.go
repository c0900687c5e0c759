package goid_test

import (
	"sync"
	"testing"

	"github.com/zaza89/knet-go/internal/goid"
)

func TestGetStableWithinSameGoroutine(t *testing.T) {
	a := goid.Get()
	b := goid.Get()
	if a != b {
		t.Fatalf("Get() returned %d then %d within the same goroutine", a, b)
	}
	if a == 0 {
		t.Fatalf("Get() returned 0, want a real goroutine id")
	}
}

func TestGetDiffersAcrossGoroutines(t *testing.T) {
	main := goid.Get()

	var wg sync.WaitGroup
	var other uint64
	wg.Add(1)
	go func() {
		defer wg.Done()
		other = goid.Get()
	}()
	wg.Wait()

	if other == main {
		t.Fatalf("Get() returned the same id (%d) for two different goroutines", main)
	}
}
