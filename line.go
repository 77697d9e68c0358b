package memacs

// Line store: §4.A. Grounded on the teacher's index-based arena
// (arena.go's Node/Frame: a flat slab plus int16 handles instead of raw
// pointers) generalized per Design Notes §9 — lines live in a slab, a
// LineID is a stable, non-dangling handle, and the arena owns the
// doubly-linked ring. Handles survive reallocation of the slab backing
// array; only structural joins/splits still require a fix-up walk.

// LineID is a stable handle into an Arena's line slab. It never dangles:
// once issued it remains valid until the line is explicitly freed, even
// across slab growth.
type LineID int32

// NoLine is the distinguished invalid handle.
const NoLine LineID = -1

const lineGrowBlock = 32

// lineRec is the arena's internal representation of one Line (§3): a
// mutable byte sequence of length used within capacity cap(data), linked
// into its buffer's ring via prev/next.
type lineRec struct {
	data       []byte
	prev, next LineID
	live       bool
}

// Arena owns every Line for every Buffer in the editor. It is the sole
// allocator; freeing returns a slot to an internal free list rather than
// shrinking the slab, so outstanding LineIDs for *other* lines never move.
type Arena struct {
	lines    []lineRec
	freeHead LineID
}

// NewArena creates an empty line arena.
func NewArena() *Arena {
	return &Arena{freeHead: NoLine}
}

// Alloc returns a new Line with length used and undefined content,
// rounded up to a block multiple of capacity per the growth policy.
// Out-of-memory from the underlying allocator is fatal (§4.A); Go's
// allocator panics on true OOM, which is the only place this call is
// permitted to panic. Nothing in this package recovers that panic.
func (a *Arena) Alloc(used int) LineID {
	capNeeded := roundBlock(used)
	rec := lineRec{data: make([]byte, used, capNeeded), prev: NoLine, next: NoLine, live: true}
	if a.freeHead != NoLine {
		id := a.freeHead
		a.freeHead = a.lines[id].next
		a.lines[id] = rec
		return id
	}
	a.lines = append(a.lines, rec)
	return LineID(len(a.lines) - 1)
}

func roundBlock(used int) int {
	if used <= 0 {
		return lineGrowBlock
	}
	return ((used + lineGrowBlock - 1) / lineGrowBlock) * lineGrowBlock
}

// Free releases id's slot to the free list. It does not unlink id from its
// ring; the caller must do that first. The header line of a live buffer must never be
// passed here (§3 invariant).
func (a *Arena) Free(id LineID) {
	rec := &a.lines[id]
	rec.data = nil
	rec.live = false
	rec.next = a.freeHead
	rec.prev = NoLine
	a.freeHead = id
}

// Used returns the current content length of a line.
func (a *Arena) Used(id LineID) int { return len(a.lines[id].data) }

// Bytes returns the live byte slice of a line. Callers must not retain it
// across a mutating call, which may reallocate the backing array.
func (a *Arena) Bytes(id LineID) []byte { return a.lines[id].data }

// Next and Prev walk the ring.
func (a *Arena) Next(id LineID) LineID { return a.lines[id].next }
func (a *Arena) Prev(id LineID) LineID { return a.lines[id].prev }

// link splices id between before and after (before.next = id = after.prev... wait, exact order matters).
func (a *Arena) link(before, id, after LineID) {
	a.lines[id].prev = before
	a.lines[id].next = after
	if before != NoLine {
		a.lines[before].next = id
	}
	if after != NoLine {
		a.lines[after].prev = id
	}
}

// InsertAfter links a freshly allocated line immediately after 'at' in the
// ring and returns it.
func (a *Arena) InsertAfter(at LineID, used int) LineID {
	id := a.Alloc(used)
	after := a.lines[at].next
	a.link(at, id, after)
	return id
}

// Unlink removes id from its ring without freeing it (used transiently
// during narrow/widen list surgery, §4.B).
func (a *Arena) Unlink(id LineID) {
	rec := &a.lines[id]
	if rec.prev != NoLine {
		a.lines[rec.prev].next = rec.next
	}
	if rec.next != NoLine {
		a.lines[rec.next].prev = rec.prev
	}
	rec.prev, rec.next = NoLine, NoLine
}

// growTo ensures the line has room for 'needed' bytes, reallocating per
// the growth policy (round up, never shrink on delete) if necessary.
func (a *Arena) growTo(id LineID, needed int) {
	rec := &a.lines[id]
	if cap(rec.data) >= needed {
		return
	}
	newCap := roundBlock(needed)
	nd := make([]byte, len(rec.data), newCap)
	copy(nd, rec.data)
	rec.data = nd
}

// setUsed resizes the live length of a line, growing the backing array
// first if necessary. It never shrinks the allocation on delete.
func (a *Arena) setUsed(id LineID, used int) {
	a.growTo(id, used)
	rec := &a.lines[id]
	if used <= cap(rec.data) {
		rec.data = rec.data[:used]
	}
}

// Point is an anchor into a buffer's line ring: (line, offset) with
// 0 <= offset <= line.used. offset == used denotes the position
// immediately before the following newline.
type Point struct {
	Line   LineID
	Offset int
}

// fixupTarget is anything holding a (LineID, offset) pair that must be
// retargeted when the line store mutates out from under it: a Point, a
// Mark, or a window/buffer Face. The fix-up protocol operates uniformly
// over pointers to the embedded Point so callers don't need bespoke code
// per owner type.
type fixupTarget = *Point

// fixupOnSplit implements §4.A's line-split fix-up rule: L1 is truncated
// at offset k, L2 holds the first k bytes (i.e. content before k moves to
// L2, the tail stays on L1 — see edit.go's InsertNewline for the exact
// split direction used by this engine, which keeps the tail on L1 and
// puts the *new* first half on L2).
func fixupOnSplit(targets []fixupTarget, l1, l2 LineID, k int) {
	for _, t := range targets {
		if t == nil || t.Line != l1 {
			continue
		}
		if t.Offset < k {
			t.Line = l2
		} else {
			t.Offset -= k
		}
	}
}

// fixupOnJoin implements §4.A's line-join fix-up rule: L1+L2 -> L3.
func fixupOnJoin(targets []fixupTarget, l1, l2, l3 LineID, l1Used int) {
	for _, t := range targets {
		if t == nil {
			continue
		}
		switch t.Line {
		case l1:
			t.Line = l3
		case l2:
			t.Line = l3
			t.Offset += l1Used
		}
	}
}

// fixupOnInsert implements the in-line insert rule: targets strictly past
// k shift right by n.
func fixupOnInsert(targets []fixupTarget, line LineID, k, n int) {
	for _, t := range targets {
		if t == nil || t.Line != line {
			continue
		}
		if t.Offset > k {
			t.Offset += n
		}
	}
}

// fixupOnDelete implements the in-line delete rule for a chunk [k, k+n).
func fixupOnDelete(targets []fixupTarget, line LineID, k, n int) {
	for _, t := range targets {
		if t == nil || t.Line != line {
			continue
		}
		switch {
		case t.Offset > k+n:
			t.Offset -= n
		case t.Offset > k:
			t.Offset = k
		}
	}
}
