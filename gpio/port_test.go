package gpio

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// assembler mirrors the device's pairing of nibbles.
type assembler struct {
	mu    sync.Mutex
	port  *Port
	high  bool
	cur   byte
	bytes []byte
}

func (a *assembler) irq() {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.port.ReadHalfByte()
	if !a.high {
		a.cur = n << 4
		a.high = true
		return
	}
	a.cur |= n
	a.high = false
	a.bytes = append(a.bytes, a.cur)
}

func (a *assembler) got() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]byte(nil), a.bytes...)
}

func TestBurstDeliversTwoNibblesPerByte(t *testing.T) {
	p := NewPort()
	a := &assembler{port: p}
	p.WriteMessage([]byte{0xA5, 0x3C})

	if n := p.Burst(a.irq); n != 6 {
		t.Fatalf("raised %d interrupts, want 6", n)
	}
	if got := a.got(); !bytes.Equal(got, []byte{0xA5, 0x3C, 0x00}) {
		t.Fatalf("assembled %x", got)
	}
	if p.Pending() != 0 {
		t.Fatalf("pending %d", p.Pending())
	}
}

func TestReadEmptyCountsMiss(t *testing.T) {
	p := NewPort()
	if v := p.ReadHalfByte(); v != 0 {
		t.Fatalf("empty read = %d", v)
	}
	if p.Stats()["misses"] != 1 {
		t.Fatalf("stats %v", p.Stats())
	}
}

func TestRunPumpsUntilCancelled(t *testing.T) {
	p := NewPort(WithInterval(50 * time.Microsecond))
	a := &assembler{port: p}
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx, a.irq) }()

	msg := []byte("hello")
	p.Write(msg)
	deadline := time.Now().Add(2 * time.Second)
	for len(a.got()) < len(msg) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := a.got(); !bytes.Equal(got, msg) {
		t.Fatalf("assembled %q", got)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestBurstStopsWhenHandlerIgnoresNibble(t *testing.T) {
	p := NewPort()
	p.Write([]byte("x"))
	done := make(chan int, 1)
	go func() { done <- p.Burst(func() {}) }()
	select {
	case n := <-done:
		if n != 1 || p.Pending() != 2 {
			t.Fatalf("raised %d, pending %d", n, p.Pending())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Burst did not return")
	}
}

func TestRunParksWhenHandlerIgnoresNibble(t *testing.T) {
	p := NewPort()
	var mu sync.Mutex
	calls := 0
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Run(ctx, func() {
			mu.Lock()
			calls++
			mu.Unlock()
		})
	}()
	p.Write([]byte("x"))
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	n := calls
	mu.Unlock()
	if n != 1 {
		t.Fatalf("handler raised %d times for one latched nibble", n)
	}
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v", err)
	}
}

func TestWriteCompactsConsumedNibbles(t *testing.T) {
	p := NewPort()
	p.Write([]byte{0x12})
	p.ReadHalfByte()

	// the pump keeps up but never fully drains: one nibble always lags
	want := []uint8{0x2}
	var got []uint8
	for i := 0; i < 1000; i++ {
		b := byte(i)
		p.Write([]byte{b, ^b})
		want = append(want, b>>4, b&0x0f, ^b>>4, ^b&0x0f)
		for j := 0; j < 4; j++ {
			got = append(got, p.ReadHalfByte())
		}
	}
	got = append(got, p.ReadHalfByte())

	if p.Pending() != 0 {
		t.Fatalf("pending %d", p.Pending())
	}
	p.mu.Lock()
	size := cap(p.nibbles)
	p.mu.Unlock()
	if size > 64 {
		t.Fatalf("nibble buffer grew to %d with at most 5 pending", size)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("nibbles reordered by compaction")
	}
}
