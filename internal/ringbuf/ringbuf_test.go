package ringbuf

import "testing"

func TestWriteReadRoundTrip(t *testing.T) {
	b := New(8)
	n, err := b.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Write() = %d, %v, want 5, nil", n, err)
	}
	if b.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", b.Len())
	}

	out := make([]byte, 5)
	if n := b.Read(out); n != 5 || string(out) != "hello" {
		t.Fatalf("Read() = %d, %q, want 5, \"hello\"", n, out)
	}
	if b.Len() != 0 {
		t.Fatalf("Len() after drain = %d, want 0", b.Len())
	}
}

func TestWriteWrapsAroundHeadTail(t *testing.T) {
	b := New(4)
	b.Write([]byte("ab"))
	out := make([]byte, 1)
	b.Read(out) // consume "a", head advances past the start

	b.Write([]byte("cde")) // wraps tail around the end of the backing array
	if b.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", b.Len())
	}
	got := make([]byte, 4)
	b.Read(got)
	if string(got) != "bcde" {
		t.Fatalf("Read() = %q, want %q", got, "bcde")
	}
}

func TestWriteReturnsErrFullOnOverflow(t *testing.T) {
	b := New(4)
	n, err := b.Write([]byte("abcdef"))
	if n != 4 || err != ErrFull {
		t.Fatalf("Write() = %d, %v, want 4, ErrFull", n, err)
	}
	if b.Free() != 0 {
		t.Fatalf("Free() = %d, want 0", b.Free())
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	b := New(8)
	b.Write([]byte("xyz"))
	peeked := make([]byte, 3)
	if n := b.Peek(peeked); n != 3 || string(peeked) != "xyz" {
		t.Fatalf("Peek() = %d, %q", n, peeked)
	}
	if b.Len() != 3 {
		t.Fatalf("Len() after Peek = %d, want 3 (unchanged)", b.Len())
	}
}

func TestDiscard(t *testing.T) {
	b := New(8)
	b.Write([]byte("abcdef"))
	if n := b.Discard(3); n != 3 {
		t.Fatalf("Discard() = %d, want 3", n)
	}
	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}
	rest := make([]byte, 3)
	b.Read(rest)
	if string(rest) != "def" {
		t.Fatalf("Read() after Discard = %q, want %q", rest, "def")
	}
}

func TestNewDefaultsNonPositiveCapacity(t *testing.T) {
	b := New(0)
	if b.Cap() != 16*1024 {
		t.Fatalf("Cap() = %d, want default 16KiB", b.Cap())
	}
}
