package memacs

// Rings: §4.H. Grounded on src/kill.c (kill_prep's same-command-family
// lookback, yank/yank_cycle revert-then-reinsert) for the exact semantics,
// and on the teacher's pool.go (bounded reuse rather than unbounded
// growth) for why a ring overwrites its oldest slot in place instead of
// reallocating.

// RingKind names one of the five rings the editor maintains.
type RingKind int

const (
	RingSearch RingKind = iota
	RingReplace
	RingKill
	RingDelete
	RingMacro
)

// ringEntry is one doubly-linked node in a ring's circular list.
type ringEntry struct {
	value      []byte
	prev, next *ringEntry
}

// Ring is a bounded, doubly-linked circular store (§4.H).
type Ring struct {
	kind    RingKind
	current *ringEntry
	size    int
	maxSize int
}

// NewRing creates an empty ring with the given bound.
func NewRing(kind RingKind, maxSize int) *Ring {
	return &Ring{kind: kind, maxSize: maxSize}
}

// Size returns the current entry count.
func (r *Ring) Size() int { return r.size }

// invariant helper used by tests: forward traversal from current returns
// to current after exactly size steps, and 0 <= size <= maxSize.
func (r *Ring) checkInvariant() bool {
	if r.size < 0 || r.size > r.maxSize {
		return false
	}
	if r.size == 0 {
		return r.current == nil
	}
	if r.current == nil {
		return false
	}
	e := r.current.next
	for i := 1; i < r.size; i++ {
		if e == r.current {
			return false
		}
		e = e.next
	}
	return e == r.current
}

// Push implements §4.H push(value, force): if force is false and value
// already equals an existing entry, that entry moves to the top instead
// of duplicating. When full, the oldest entry is overwritten in place by
// cycling forward.
func (r *Ring) Push(value []byte, force bool) {
	if !force {
		if e := r.find(value); e != nil {
			if e != r.current {
				// Relink e just after current, so it becomes the newest.
				e.prev.next = e.next
				e.next.prev = e.prev
				e.next = r.current.next
				e.prev = r.current
				r.current.next.prev = e
				r.current.next = e
			}
			r.current = e
			return
		}
	}
	if r.maxSize == 0 {
		return
	}
	if r.size < r.maxSize {
		e := &ringEntry{value: append([]byte(nil), value...)}
		if r.current == nil {
			e.prev, e.next = e, e
			r.current = e
		} else {
			e.next = r.current.next
			e.prev = r.current
			r.current.next.prev = e
			r.current.next = e
			r.current = e
		}
		r.size++
		return
	}
	// Full: overwrite the oldest entry (the one after current, since
	// current is the newest) in place and make it current.
	oldest := r.current.next
	oldest.value = append([]byte(nil), value...)
	r.current = oldest
}

func (r *Ring) find(value []byte) *ringEntry {
	if r.current == nil {
		return nil
	}
	e := r.current
	for i := 0; i < r.size; i++ {
		if bytesEqual(e.value, value) {
			return e
		}
		e = e.next
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Append appends to the current entry's forward edge (used by kill/delete
// append direction when continuing the same command family).
func (r *Ring) Append(chunk []byte) {
	if r.current == nil {
		r.Push(chunk, true)
		return
	}
	r.current.value = append(r.current.value, chunk...)
}

// Prepend prepends to the current entry (backward kill direction).
func (r *Ring) Prepend(chunk []byte) {
	if r.current == nil {
		r.Push(chunk, true)
		return
	}
	r.current.value = append(append([]byte(nil), chunk...), r.current.value...)
}

// Cycle implements §4.H cycle(n): moves the current pointer |n| steps in
// the direction of sign(n).
func (r *Ring) Cycle(n int) {
	if r.current == nil || n == 0 {
		return
	}
	steps := n
	forward := steps > 0
	if !forward {
		steps = -steps
	}
	for i := 0; i < steps; i++ {
		if forward {
			r.current = r.current.next
		} else {
			r.current = r.current.prev
		}
	}
}

// Get implements §4.H get(n): n <= 0; n == 0 returns current, n == -1
// returns one older, etc. Fails with a range diagnostic if |n| >= size.
func (r *Ring) Get(n int) ([]byte, Status) {
	if n > 0 {
		return nil, Fail("ring index must be <= 0")
	}
	if r.size == 0 || -n >= r.size {
		return nil, Fail("ring index %d out of range (size %d)", n, r.size)
	}
	e := r.current
	for i := 0; i > n; i-- {
		e = e.prev
	}
	return e.value, Ok
}

// Delete implements §4.H delete(n): remove the current entry, or trim n
// entries from the top; n == 0 clears the ring.
func (r *Ring) Delete(n int) {
	if n == 0 {
		r.current = nil
		r.size = 0
		return
	}
	count := n
	if count < 0 {
		count = -count
	}
	for i := 0; i < count && r.size > 0; i++ {
		r.removeCurrent()
	}
}

func (r *Ring) removeCurrent() {
	if r.current == nil {
		return
	}
	if r.size == 1 {
		r.current = nil
		r.size = 0
		return
	}
	e := r.current
	e.prev.next = e.next
	e.next.prev = e.prev
	r.current = e.prev
	r.size--
}

// SetSize implements §4.H set_size(m): refuses if m < size.
func (r *Ring) SetSize(m int) Status {
	if m < r.size {
		return Fail("Cannot shrink ring below current size %d", r.size)
	}
	r.maxSize = m
	return Ok
}

// --- Kill/delete command-family tracking (§4.H, SPEC_FULL.md §4 item 3) ---

// CommandFlag marks what kind of command just ran, for kill_prep's
// same-family lookback.
type CommandFlag uint32

const (
	CmdKill CommandFlag = 1 << iota
	CmdYank
)

// KillPrep implements §4.H's kill_prep: if the *previous* command (not
// just any prior kill) wasn't in the same kill family, push a new empty
// entry so the upcoming kill starts its own ring slot; otherwise leave
// the current entry alone so subsequent kills append/prepend to it.
//
// Grounded on src/kill.c: the check is specifically against the flag set
// by the immediately preceding command, reproduced here as the
// lastCommand parameter rather than a hidden global.
func (r *Ring) KillPrep(lastCommand CommandFlag) {
	if lastCommand&CmdKill == 0 {
		r.Push(nil, true)
	}
}

// RingSet bundles the five named rings an Editor maintains (§4.H).
type RingSet struct {
	Search, Replace, Kill, Delete, Macro *Ring
}

// NewRingSet creates the standard five rings with the given per-ring
// bounds.
func NewRingSet(searchMax, replaceMax, killMax, deleteMax, macroMax int) *RingSet {
	return &RingSet{
		Search:  NewRing(RingSearch, searchMax),
		Replace: NewRing(RingReplace, replaceMax),
		Kill:    NewRing(RingKill, killMax),
		Delete:  NewRing(RingDelete, deleteMax),
		Macro:   NewRing(RingMacro, macroMax),
	}
}

// Yank implements §4.H yank(n): inserts ring entry n at point, marking
// the inserted range with the region mark.
func Yank(b *Buffer, windows []*Window, r *Ring, n int) (int, Status) {
	value, st := r.Get(n)
	if !st.OK() {
		return 0, st
	}
	start := b.Point
	last := b.arena.Prev(b.header)
	if ist := InsertString(b, windows, string(value)); !ist.OK() {
		return 0, ist
	}
	if start.Line == b.header {
		// Yanked at end-of-buffer: the text starts on the line appended
		// after the previous last line.
		start = Point{Line: b.arena.Next(last), Offset: 0}
	}
	rm, _ := b.FindOrCreateMark(RegionMarkID, MarkCreate)
	rm.Point = start
	rm.active = true
	return len(value), Ok
}

// YankCycle implements §4.H yank_cycle(n): if the previous command was a
// yank, delete the previously inserted text, cycle the ring by n, and
// re-insert.
func YankCycle(b *Buffer, windows []*Window, r *Ring, n int, lastCommand CommandFlag, lastYankSize int) (int, Status) {
	if lastCommand&CmdYank != 0 && lastYankSize > 0 {
		if st := DeleteChars(b, windows, nil, -lastYankSize, DeleteOnly); !st.OK() && st.Code != NotFound {
			return 0, st
		}
	}
	r.Cycle(n)
	return Yank(b, windows, r, 0)
}
