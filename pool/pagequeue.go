// File: pool/pagequeue.go
// Package pool implements the growable page-backed byte queue.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// PageQueue is not safe for concurrent use; the owner serialises drain and
// read passes with one mutex.

package pool

import (
	"errors"
	"fmt"

	"github.com/eapache/queue"
)

// Cursors is the head/tail position pair of a PageQueue. Indices are
// ordinal positions of blocks in the queue, offsets are byte offsets
// within those blocks.
type Cursors struct {
	HeadIndex  int
	TailIndex  int
	HeadOffset int
	TailOffset int
}

// PageQueue is a FIFO of arena blocks holding a byte stream. Blocks are
// appended at the tail by Grow and freed from the head once fully read.
//
// DataSize counts bytes from the start of the head block to the tail
// cursor, so already-consumed bytes of the head block are included until
// that block is freed.
type PageQueue struct {
	arena  *Arena
	blocks *queue.Queue // BlockID, front is the head block

	headIdx, tailIdx int
	headOff, tailOff int
	dataSize         int

	consumed uint64 // absolute stream position of the head cursor
}

// NewPageQueue creates an empty queue over arena.
func NewPageQueue(arena *Arena) *PageQueue {
	return &PageQueue{arena: arena, blocks: queue.New()}
}

// BlockSize returns the size of one block.
func (q *PageQueue) BlockSize() int { return q.arena.BlockSize() }

// Blocks returns the number of allocated blocks held by the queue.
func (q *PageQueue) Blocks() int { return q.blocks.Length() }

// DataSize returns the buffered byte count (see PageQueue).
func (q *PageQueue) DataSize() int { return q.dataSize }

// Unread returns the number of bytes between the head and tail cursors.
func (q *PageQueue) Unread() int { return q.dataSize - q.headOff }

// Empty reports whether head and tail cursors coincide.
func (q *PageQueue) Empty() bool {
	return q.headIdx == q.tailIdx && q.headOff == q.tailOff
}

// Position returns the absolute stream offset of the head cursor.
func (q *PageQueue) Position() uint64 { return q.consumed }

// Cursors returns the current cursor pair.
func (q *PageQueue) Cursors() Cursors {
	return Cursors{
		HeadIndex:  q.headIdx,
		TailIndex:  q.tailIdx,
		HeadOffset: q.headOff,
		TailOffset: q.tailOff,
	}
}

func (q *PageQueue) block(i int) []byte {
	return q.arena.Block(q.blocks.Get(i).(BlockID))
}

// Grow appends blocks until the queue can hold DataSize()+count bytes.
// Either every needed block is appended or, on allocation failure, none
// is and the error is returned. It returns the number of blocks added.
func (q *PageQueue) Grow(count int) (int, error) {
	bs := q.arena.BlockSize()
	need := q.dataSize + count
	var fresh []BlockID
	for (q.blocks.Length()+len(fresh))*bs < need {
		id, err := q.arena.Alloc()
		if err != nil {
			for _, f := range fresh {
				_ = q.arena.Release(f)
			}
			return 0, err
		}
		fresh = append(fresh, id)
	}
	for _, id := range fresh {
		q.blocks.Add(id)
	}
	return len(fresh), nil
}

// Fill copies up to count bytes from src into the queue starting at the
// tail cursor. src is called with a slice bounded by the space left in the
// current tail block and returns how many bytes it wrote. Fill stops early
// when src returns 0 or the allocated blocks are full, and returns the
// number of bytes appended.
func (q *PageQueue) Fill(count int, src func(p []byte) int) int {
	bs := q.arena.BlockSize()
	written := 0
	for count > 0 && q.tailIdx < q.blocks.Length() {
		blk := q.block(q.tailIdx)
		n := src(blk[q.tailOff : q.tailOff+min(count, bs-q.tailOff)])
		if n <= 0 {
			break
		}
		written += n
		count -= n
		q.tailOff = (q.tailOff + n) % bs
		if q.tailOff == 0 {
			q.tailIdx++
		}
	}
	q.dataSize += written
	return written
}

// HeadChunk returns the readable bytes of the head block starting at the
// head cursor, at most limit of them. The slice aliases block memory and is
// valid until the next Advance.
func (q *PageQueue) HeadChunk(limit int) []byte {
	if q.Empty() || limit <= 0 {
		return nil
	}
	bs := q.arena.BlockSize()
	end := bs
	if q.headIdx == q.tailIdx {
		end = q.tailOff
	}
	n := min(limit, end-q.headOff)
	blk := q.block(q.headIdx)
	return blk[q.headOff : q.headOff+n]
}

// Advance moves the head cursor forward by n bytes within the head block.
// When the head offset wraps to 0 the fully consumed block is freed,
// removed from the queue, both block indices are decremented to stay
// queue-relative and DataSize shrinks by one block. It reports whether a
// block was freed.
func (q *PageQueue) Advance(n int) (bool, error) {
	bs := q.arena.BlockSize()
	if n < 0 || q.headOff+n > bs || n > q.Unread() {
		return false, fmt.Errorf("advance %d past tail (head %d/%d, unread %d)", n, q.headIdx, q.headOff, q.Unread())
	}
	q.headOff = (q.headOff + n) % bs
	q.consumed += uint64(n)
	if n == 0 || q.headOff != 0 {
		return false, nil
	}
	// head moved on to block headIdx+1, which becomes headIdx once the
	// front block is gone; only the tail index actually changes.
	id := q.blocks.Remove().(BlockID)
	q.tailIdx--
	q.dataSize -= bs
	return true, q.arena.Release(id)
}

// Reset frees every block and rewinds the cursors. The absolute position
// keeps counting so stale stream offsets never match again.
func (q *PageQueue) Reset() error {
	var errs []error
	for q.blocks.Length() > 0 {
		if err := q.arena.Release(q.blocks.Remove().(BlockID)); err != nil {
			errs = append(errs, err)
		}
	}
	q.consumed += uint64(q.Unread())
	q.headIdx, q.tailIdx, q.headOff, q.tailOff = 0, 0, 0, 0
	q.dataSize = 0
	return errors.Join(errs...)
}

// Check verifies the cursor invariants against DataSize.
func (q *PageQueue) Check() error {
	bs := q.arena.BlockSize()
	switch {
	case q.headOff < 0 || q.headOff >= bs || q.tailOff < 0 || q.tailOff >= bs:
		return fmt.Errorf("offset out of range: head %d tail %d block %d", q.headOff, q.tailOff, bs)
	case q.tailIdx < q.headIdx:
		return fmt.Errorf("tail index %d behind head index %d", q.tailIdx, q.headIdx)
	case q.tailIdx > q.blocks.Length():
		return fmt.Errorf("tail index %d beyond %d blocks", q.tailIdx, q.blocks.Length())
	case q.dataSize != (q.tailIdx-q.headIdx)*bs+q.tailOff:
		return fmt.Errorf("data size %d disagrees with cursors %+v", q.dataSize, q.Cursors())
	case q.dataSize > q.blocks.Length()*bs:
		return fmt.Errorf("data size %d exceeds %d blocks", q.dataSize, q.blocks.Length())
	}
	return nil
}
