// File: pool/arena.go
// Package pool implements an index-addressed arena of fixed-size blocks.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/momentics/nibblepipe/api"
)

// BlockID addresses a block inside an Arena.
type BlockID int

// Arena owns fixed-size blocks and refers to them by BlockID, so a freed
// block can never be reached through a stale pointer: its slot is nil until
// the id is handed out again for a fresh allocation.
type Arena struct {
	mu        sync.Mutex
	blockSize int
	alloc     Allocator
	slots     [][]byte
	free      []BlockID

	totalAlloc atomic.Uint64
	totalFree  atomic.Uint64
}

// ArenaStats aggregates block allocation stats.
type ArenaStats struct {
	BlockSize  int
	Live       int
	TotalAlloc uint64
	TotalFree  uint64
}

// NewArena creates an arena of blockSize blocks backed by a.
func NewArena(blockSize int, a Allocator) *Arena {
	if blockSize <= 0 {
		panic("block size must be positive")
	}
	if a == nil {
		a = NewAllocator()
	}
	return &Arena{blockSize: blockSize, alloc: a}
}

// BlockSize returns the size of every block.
func (ar *Arena) BlockSize() int { return ar.blockSize }

// Alloc obtains a new zeroed block.
func (ar *Arena) Alloc() (BlockID, error) {
	mem, err := ar.alloc.Alloc(ar.blockSize)
	if err != nil {
		return -1, api.NewError(api.ErrCodeResourceExhausted, "block allocation failed").
			WithContext("block_size", ar.blockSize).
			WithCause(err)
	}
	if len(mem) < ar.blockSize {
		_ = ar.alloc.Free(mem)
		return -1, fmt.Errorf("allocator returned %d of %d bytes: %w", len(mem), ar.blockSize, api.ErrResourceExhausted)
	}
	mem = mem[:ar.blockSize]

	ar.mu.Lock()
	defer ar.mu.Unlock()
	var id BlockID
	if n := len(ar.free); n > 0 {
		id = ar.free[n-1]
		ar.free = ar.free[:n-1]
		ar.slots[id] = mem
	} else {
		id = BlockID(len(ar.slots))
		ar.slots = append(ar.slots, mem)
	}
	ar.totalAlloc.Add(1)
	return id, nil
}

// Block returns the memory of a live block. It panics on a freed id.
func (ar *Arena) Block(id BlockID) []byte {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	b := ar.slots[id]
	if b == nil {
		panic(fmt.Sprintf("pool: block %d used after release", id))
	}
	return b
}

// Release returns a block's memory to the allocator.
func (ar *Arena) Release(id BlockID) error {
	ar.mu.Lock()
	if int(id) < 0 || int(id) >= len(ar.slots) || ar.slots[id] == nil {
		ar.mu.Unlock()
		return fmt.Errorf("release block %d: %w", id, api.ErrInvalidArgument)
	}
	mem := ar.slots[id]
	ar.slots[id] = nil
	ar.free = append(ar.free, id)
	ar.mu.Unlock()

	ar.totalFree.Add(1)
	return ar.alloc.Free(mem)
}

// Live returns the number of blocks currently allocated.
func (ar *Arena) Live() int {
	return int(ar.totalAlloc.Load() - ar.totalFree.Load())
}

// Stats returns a snapshot of the arena counters.
func (ar *Arena) Stats() ArenaStats {
	alloc, free := ar.totalAlloc.Load(), ar.totalFree.Load()
	return ArenaStats{
		BlockSize:  ar.blockSize,
		Live:       int(alloc - free),
		TotalAlloc: alloc,
		TotalFree:  free,
	}
}
