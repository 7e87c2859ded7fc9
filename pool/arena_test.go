// File: pool/arena_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"errors"
	"testing"

	"github.com/momentics/nibblepipe/api"
)

func TestArenaRecyclesIDs(t *testing.T) {
	ar := NewArena(32, HeapAllocator{})
	a, _ := ar.Alloc()
	b, _ := ar.Alloc()
	if a == b {
		t.Fatal("duplicate ids")
	}
	if err := ar.Release(a); err != nil {
		t.Fatal(err)
	}
	c, _ := ar.Alloc()
	if c != a {
		t.Fatalf("released id %d not recycled (got %d)", a, c)
	}
	st := ar.Stats()
	if st.Live != 2 || st.TotalAlloc != 3 || st.TotalFree != 1 {
		t.Fatalf("stats %+v", st)
	}
}

func TestArenaBlockAfterReleasePanics(t *testing.T) {
	ar := NewArena(8, HeapAllocator{})
	id, _ := ar.Alloc()
	ar.Release(id)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	ar.Block(id)
}

func TestArenaDoubleRelease(t *testing.T) {
	ar := NewArena(8, HeapAllocator{})
	id, _ := ar.Alloc()
	if err := ar.Release(id); err != nil {
		t.Fatal(err)
	}
	if err := ar.Release(id); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("double release err = %v", err)
	}
}

func TestPlatformAllocator(t *testing.T) {
	size := PageSize()
	if size <= 0 {
		t.Fatalf("page size %d", size)
	}
	ar := NewArena(size, NewAllocator())
	id, err := ar.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	blk := ar.Block(id)
	if len(blk) != size {
		t.Fatalf("block len %d", len(blk))
	}
	for i := range blk {
		if blk[i] != 0 {
			t.Fatalf("block not zeroed at %d", i)
		}
	}
	blk[0], blk[size-1] = 0xAB, 0xCD
	if err := ar.Release(id); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestLimitAllocator(t *testing.T) {
	a := Limit(HeapAllocator{}, 2)
	b1, err1 := a.Alloc(4)
	_, err2 := a.Alloc(4)
	_, err3 := a.Alloc(4)
	if err1 != nil || err2 != nil {
		t.Fatalf("alloc within limit failed: %v %v", err1, err2)
	}
	if !errors.Is(err3, api.ErrResourceExhausted) {
		t.Fatalf("third alloc err = %v", err3)
	}
	a.Free(b1)
	if _, err := a.Alloc(4); err != nil {
		t.Fatalf("alloc after free: %v", err)
	}
	if Limit(HeapAllocator{}, 0) != (HeapAllocator{}) {
		t.Fatal("zero limit should return the allocator unchanged")
	}
}
