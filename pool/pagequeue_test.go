// File: pool/pagequeue_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"bytes"
	"errors"
	"testing"

	"github.com/momentics/nibblepipe/api"
)

// failingAllocator fails every allocation after the first ok ones.
type failingAllocator struct {
	ok    int
	calls int
	freed int
}

func (f *failingAllocator) Alloc(size int) ([]byte, error) {
	f.calls++
	if f.calls > f.ok {
		return nil, errors.New("out of pages")
	}
	return make([]byte, size), nil
}

func (f *failingAllocator) Free([]byte) error {
	f.freed++
	return nil
}

// source returns a Fill callback that feeds data and reports what it moved.
func source(data []byte) (func(p []byte) int, *int) {
	moved := 0
	return func(p []byte) int {
		n := copy(p, data[moved:])
		moved += n
		return n
	}, &moved
}

func mustCheck(t *testing.T, q *PageQueue) {
	t.Helper()
	if err := q.Check(); err != nil {
		t.Fatalf("invariant: %v", err)
	}
}

func TestGrowAllocatesOnlyWhatIsNeeded(t *testing.T) {
	q := NewPageQueue(NewArena(16, HeapAllocator{}))
	added, err := q.Grow(33)
	if err != nil {
		t.Fatalf("Grow: %v", err)
	}
	if added != 3 || q.Blocks() != 3 {
		t.Fatalf("added %d blocks (%d held), want 3", added, q.Blocks())
	}
	if added, _ = q.Grow(48); added != 0 {
		t.Fatalf("second Grow added %d blocks, want 0", added)
	}
	mustCheck(t, q)
}

func TestGrowFailureIsAllOrNothing(t *testing.T) {
	alloc := &failingAllocator{ok: 2}
	q := NewPageQueue(NewArena(8, alloc))
	before := q.Cursors()

	_, err := q.Grow(40) // needs 5 blocks, only 2 succeed
	if !errors.Is(err, api.ErrResourceExhausted) {
		t.Fatalf("err = %v, want ErrResourceExhausted", err)
	}
	if q.Blocks() != 0 || q.DataSize() != 0 || q.Cursors() != before {
		t.Fatalf("failed grow mutated queue: blocks=%d size=%d cursors=%+v", q.Blocks(), q.DataSize(), q.Cursors())
	}
	if alloc.freed != 2 {
		t.Fatalf("partially allocated blocks freed = %d, want 2", alloc.freed)
	}
	mustCheck(t, q)
}

func TestFillConservesBytes(t *testing.T) {
	q := NewPageQueue(NewArena(10, HeapAllocator{}))
	data := []byte("abcdefghijklmnopqrstuvw") // 23 bytes
	if _, err := q.Grow(len(data)); err != nil {
		t.Fatal(err)
	}
	src, moved := source(data)
	n := q.Fill(len(data), src)
	if n != len(data) || *moved != len(data) {
		t.Fatalf("filled %d, source moved %d, want %d", n, *moved, len(data))
	}
	c := q.Cursors()
	if c.TailIndex != 2 || c.TailOffset != 3 {
		t.Fatalf("tail = %d/%d, want 2/3", c.TailIndex, c.TailOffset)
	}
	if q.DataSize() != 23 {
		t.Fatalf("data size %d", q.DataSize())
	}
	mustCheck(t, q)
}

func TestFillStopsAtAllocatedCapacity(t *testing.T) {
	q := NewPageQueue(NewArena(4, HeapAllocator{}))
	if _, err := q.Grow(4); err != nil {
		t.Fatal(err)
	}
	src, moved := source([]byte("123456"))
	if n := q.Fill(6, src); n != 4 || *moved != 4 {
		t.Fatalf("filled %d/%d, want 4", n, *moved)
	}
	mustCheck(t, q)
}

func TestExactBlockFillAdvancesTail(t *testing.T) {
	q := NewPageQueue(NewArena(8, HeapAllocator{}))
	q.Grow(8)
	src, _ := source([]byte("12345678"))
	q.Fill(8, src)
	if c := q.Cursors(); c.TailIndex != 1 || c.TailOffset != 0 {
		t.Fatalf("tail = %d/%d, want 1/0", c.TailIndex, c.TailOffset)
	}
	mustCheck(t, q)

	// Consume 7 bytes: block must survive.
	chunk := q.HeadChunk(7)
	if string(chunk) != "1234567" {
		t.Fatalf("chunk %q", chunk)
	}
	freed, err := q.Advance(7)
	if err != nil || freed {
		t.Fatalf("freed=%v err=%v after partial consume", freed, err)
	}
	if q.Blocks() != 1 {
		t.Fatalf("block freed early: %d held", q.Blocks())
	}
	// Last byte: block is fully consumed and released.
	freed, err = q.Advance(1)
	if err != nil || !freed {
		t.Fatalf("freed=%v err=%v after full consume", freed, err)
	}
	if q.Blocks() != 0 || !q.Empty() || q.DataSize() != 0 {
		t.Fatalf("blocks=%d empty=%v size=%d", q.Blocks(), q.Empty(), q.DataSize())
	}
	mustCheck(t, q)
}

func TestReadAcrossBlocks(t *testing.T) {
	q := NewPageQueue(NewArena(4, HeapAllocator{}))
	data := []byte("0123456789")
	q.Grow(len(data))
	src, _ := source(data)
	q.Fill(len(data), src)

	var out bytes.Buffer
	freedBlocks := 0
	for q.Unread() > 0 {
		chunk := q.HeadChunk(q.Unread())
		out.Write(chunk)
		freed, err := q.Advance(len(chunk))
		if err != nil {
			t.Fatal(err)
		}
		if freed {
			freedBlocks++
		}
		mustCheck(t, q)
	}
	if out.String() != string(data) {
		t.Fatalf("read %q", out.String())
	}
	if freedBlocks != 2 || q.Blocks() != 1 {
		t.Fatalf("freed %d, held %d; want 2 freed, 1 held", freedBlocks, q.Blocks())
	}
	if q.Position() != uint64(len(data)) {
		t.Fatalf("position %d", q.Position())
	}
}

func TestAdvancePastTailRejected(t *testing.T) {
	q := NewPageQueue(NewArena(8, HeapAllocator{}))
	q.Grow(3)
	src, _ := source([]byte("abc"))
	q.Fill(3, src)
	if _, err := q.Advance(4); err == nil {
		t.Fatal("advance beyond tail accepted")
	}
}

func TestResetFreesEverything(t *testing.T) {
	arena := NewArena(8, HeapAllocator{})
	q := NewPageQueue(arena)
	q.Grow(20)
	src, _ := source(bytes.Repeat([]byte{'x'}, 20))
	q.Fill(20, src)
	q.Advance(5)

	if err := q.Reset(); err != nil {
		t.Fatal(err)
	}
	if q.Blocks() != 0 || arena.Live() != 0 || !q.Empty() {
		t.Fatalf("blocks=%d live=%d empty=%v", q.Blocks(), arena.Live(), q.Empty())
	}
	if q.Position() != 20 {
		t.Fatalf("position %d, want 20", q.Position())
	}
	mustCheck(t, q)
}
