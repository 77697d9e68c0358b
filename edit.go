package memacs

import "unicode"

// Edit primitives: §4.E. Grounded on memacs-9.0.2/src/edit.c (linsert,
// ldelete, lover, instab/deltab) and misc.c (case conversion). Every
// primitive here invokes the Line Store fix-up protocol (line.go) so that
// every mark and window TopLine in the editing buffer stays valid.

// DeleteMode selects the destination ring and append direction for
// delete_chars (§4.E).
type DeleteMode int

const (
	DeleteOnly DeleteMode = iota // no ring
	DeleteKill                   // kill ring, append/prepend per direction
	DeleteUndelete                // undelete ring
)

// fixupAfterSplit applies the split fix-up rule (§4.A) to everything this
// buffer owns, plus TopLine on every window currently showing it.
func fixupAfterSplit(b *Buffer, windows []*Window, l1, l2 LineID, k int) {
	fixupOnSplit(b.allFixupTargets(), l1, l2, k)
	b.fixupTopLineSplit(l1, l2)
	for _, w := range windows {
		if w.Buffer == b {
			w.fixupTopLineSplit(l1, l2)
		}
	}
}

func fixupAfterJoin(b *Buffer, windows []*Window, l1, l2, l3 LineID, l1Used int) {
	fixupOnJoin(b.allFixupTargets(), l1, l2, l3, l1Used)
	b.fixupTopLineJoin(l1, l2, l3)
	for _, w := range windows {
		if w.Buffer == b {
			w.fixupTopLineJoin(l1, l2, l3)
		}
	}
}

func (w *Window) fixupTopLineSplit(l1, l2 LineID) {
	if w.Face.TopLine == l1 {
		w.Face.TopLine = l2
	}
}
func (w *Window) fixupTopLineJoin(l1, l2, l3 LineID) {
	if w.Face.TopLine == l1 || w.Face.TopLine == l2 {
		w.Face.TopLine = l3
	}
}

func fixupAfterInsert(b *Buffer, line LineID, k, n int) {
	fixupOnInsert(b.allFixupTargets(), line, k, n)
}

func fixupAfterDelete(b *Buffer, line LineID, k, n int) {
	fixupOnDelete(b.allFixupTargets(), line, k, n)
}

// InsertChars implements §4.E insert_chars(n, c): inserts n copies of
// byte c at point. Newline bytes are inserted literally (not split)
// unless routed through InsertNewline.
func InsertChars(b *Buffer, windows []*Window, n int, c byte) Status {
	if n <= 0 {
		return Ok
	}
	line := b.Point.Line
	if line == b.header {
		// At end-of-buffer the bytes go on a new last line; the header line
		// itself stays empty.
		line = b.arena.InsertAfter(b.arena.Prev(b.header), 0)
		b.Point = Point{Line: line, Offset: 0}
		b.fixupTopLineSplit(b.header, line)
		for _, w := range windows {
			if w.Buffer == b {
				w.fixupTopLineSplit(b.header, line)
			}
		}
	}
	k := b.Point.Offset
	arena := b.arena
	used := arena.Used(line)
	newUsed := used + n
	arena.growTo(line, newUsed)
	data := arena.lines[line].data[:newUsed]
	copy(data[k+n:], data[k:used])
	for i := 0; i < n; i++ {
		data[k+i] = c
	}
	arena.lines[line].data = data

	fixupAfterInsert(b, line, k, n)
	b.Point.Offset = k + n
	b.MarkChanged()
	return Ok
}

// InsertString is a convenience wrapper inserting a whole string, routing
// embedded newlines through InsertNewline.
func InsertString(b *Buffer, windows []*Window, s string) Status {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if st := InsertNewline(b, windows); !st.OK() {
				return st
			}
			continue
		}
		if st := InsertChars(b, windows, 1, s[i]); !st.OK() {
			return st
		}
	}
	return Ok
}

// InsertNewline implements §4.E insert_newline(): splits the current
// line at point. The tail (bytes from point onward) stays on the
// original line id; the head (bytes before point) moves to a freshly
// allocated predecessor line — matching the fix-up rule in §4.A, where
// "L2" is the new first-half line and "L1" is the truncated original.
func InsertNewline(b *Buffer, windows []*Window) Status {
	l1 := b.Point.Line
	k := b.Point.Offset
	arena := b.arena

	head := append([]byte(nil), arena.Bytes(l1)[:k]...)
	tail := arena.Bytes(l1)[k:]
	tailCopy := append([]byte(nil), tail...)

	l2 := arena.Alloc(len(head))
	copy(arena.lines[l2].data, head)

	// Splice l2 in before l1.
	prev := arena.Prev(l1)
	arena.link(prev, l2, l1)

	arena.setUsed(l1, len(tailCopy))
	copy(arena.lines[l1].data, tailCopy)

	fixupAfterSplit(b, windows, l1, l2, k)

	b.Point = Point{Line: l1, Offset: 0}
	b.MarkChanged()
	return Ok
}

// joinLines merges l1 and l2 (l1's successor) into l1, freeing l2 and
// applying the join fix-up rule (which uses l1's pre-join length). Returns
// the merged line id (always l1 here).
func joinLines(b *Buffer, windows []*Window, l1 LineID) (LineID, Status) {
	arena := b.arena
	l2 := arena.Next(l1)
	if l2 == b.header {
		return l1, NotFoundStatus("end of buffer")
	}
	l1Used := arena.Used(l1)
	merged := append(append([]byte(nil), arena.Bytes(l1)...), arena.Bytes(l2)...)
	arena.setUsed(l1, len(merged))
	copy(arena.lines[l1].data, merged)

	after := arena.Next(l2)
	arena.lines[l1].next = after
	arena.lines[after].prev = l1

	fixupAfterJoin(b, windows, l1, l2, l1, l1Used)
	arena.Free(l2)
	return l1, Ok
}

// DeleteChars implements §4.E delete_chars(count, mode): count signed;
// spans newlines. Returns NotFound (non-error) on hitting a buffer
// boundary without completing the requested count.
func DeleteChars(b *Buffer, windows []*Window, r *Ring, count int, mode DeleteMode) Status {
	if count == 0 {
		return Ok
	}
	forward := count > 0
	remaining := count
	if !forward {
		remaining = -count
	}

	var collected []byte
	for remaining > 0 {
		line := b.Point.Line
		if forward {
			avail := b.arena.Used(line) - b.Point.Offset
			if avail == 0 {
				// At end of line: join with next, or stop at EOB.
				if line == b.header || b.arena.Next(line) == b.header {
					applyDeleteToRing(r, mode, collected, forward)
					return NotFoundStatus("end of buffer")
				}
				collected = append(collected, '\n')
				if _, st := joinLines(b, windows, line); !st.OK() {
					applyDeleteToRing(r, mode, collected, forward)
					return st
				}
				remaining--
				continue
			}
			take := remaining
			if take > avail {
				take = avail
			}
			k := b.Point.Offset
			collected = append(collected, b.arena.Bytes(line)[k:k+take]...)
			removeBytes(b, windows, line, k, take)
			remaining -= take
		} else {
			if b.Point.Offset == 0 {
				if b.arena.Prev(line) == b.header {
					applyDeleteToRing(r, mode, collected, forward)
					return NotFoundStatus("start of buffer")
				}
				prev := b.arena.Prev(line)
				collected = append([]byte{'\n'}, collected...)
				b.Point = Point{Line: prev, Offset: b.arena.Used(prev)}
				if _, st := joinLines(b, windows, prev); !st.OK() {
					applyDeleteToRing(r, mode, collected, forward)
					return st
				}
				remaining--
				continue
			}
			take := remaining
			if take > b.Point.Offset {
				take = b.Point.Offset
			}
			k := b.Point.Offset - take
			collected = append(append([]byte(nil), b.arena.Bytes(line)[k:k+take]...), collected...)
			removeBytes(b, windows, line, k, take)
			b.Point.Offset = k
			remaining -= take
		}
	}
	applyDeleteToRing(r, mode, collected, forward)
	b.MarkChanged()
	return Ok
}

// removeBytes deletes the chunk [k, k+n) from line, applying the in-line
// delete fix-up rule. Point offset is left to the caller.
func removeBytes(b *Buffer, windows []*Window, line LineID, k, n int) {
	arena := b.arena
	data := arena.Bytes(line)
	copy(data[k:], data[k+n:])
	arena.lines[line].data = data[:len(data)-n]
	fixupAfterDelete(b, line, k, n)
}

func applyDeleteToRing(r *Ring, mode DeleteMode, collected []byte, forward bool) {
	if r == nil || mode == DeleteOnly || len(collected) == 0 {
		return
	}
	if forward {
		r.Append(collected)
	} else {
		r.Prepend(collected)
	}
}

// OverwriteChars implements §4.E overwrite_chars: delete-then-insert
// semantics respecting hard-tab stops (don't split a tab if point is not
// at its start).
func OverwriteChars(b *Buffer, windows []*Window, n int, c byte, hardTabSize int) Status {
	for i := 0; i < n; i++ {
		line := b.Point.Line
		k := b.Point.Offset
		data := b.arena.Bytes(line)
		if k < len(data) {
			if data[k] == '\t' && hardTabSize > 0 && k%hardTabSize != 0 {
				// Don't split a tab point isn't at the start of: insert instead.
			} else {
				removeBytes(b, windows, line, k, 1)
			}
		}
		if st := InsertChars(b, windows, 1, c); !st.OK() {
			return st
		}
	}
	return Ok
}

// OverwriteString overwrites with a whole string (delete-then-insert per
// byte). The r and mode parameters are not used: overwritten bytes are not
// saved to any ring.
func OverwriteString(b *Buffer, windows []*Window, r *Ring, s string, mode DeleteMode, hardTabSize int) Status {
	for i := 0; i < len(s); i++ {
		if st := OverwriteChars(b, windows, 1, s[i], hardTabSize); !st.OK() {
			return st
		}
	}
	return Ok
}

// nextTabStop returns the next column that is a multiple of tabSize.
func nextTabStop(col, tabSize int) int {
	return ((col / tabSize) + 1) * tabSize
}

// InsertTab implements §4.E tab handling: soft tabs (softTabSize > 0)
// insert spaces to the next stop; hard tabs insert a literal '\t'.
func InsertTab(b *Buffer, windows []*Window, col, softTabSize, hardTabSize int) Status {
	if softTabSize > 0 {
		n := nextTabStop(col, softTabSize) - col
		return InsertChars(b, windows, n, ' ')
	}
	return InsertChars(b, windows, 1, '\t')
}

// DeleteTab implements §4.E delete_tab(n, force): deletes backward such
// that the next non-space character lands on the previous tab stop.
// force=true falls back to a single-character delete when no tab-sized
// run of spaces is present (the backspace command's behavior).
func DeleteTab(b *Buffer, windows []*Window, r *Ring, n, tabSize int, force bool) Status {
	line := b.Point.Line
	data := b.arena.Bytes(line)
	k := b.Point.Offset
	// Bytes back from point to the n-th previous tab stop.
	dist := 0
	if k > 0 && tabSize > 0 && n > 0 {
		dist = (k-1)%tabSize + 1 + (n-1)*tabSize
	}
	run := 0
	for run < k && data[k-1-run] == ' ' && run < dist {
		run++
	}
	if run == 0 || run < dist {
		if force {
			return DeleteChars(b, windows, r, -1, DeleteOnly)
		}
		return NotFoundStatus("no tab stop to delete")
	}
	return DeleteChars(b, windows, r, -run, DeleteOnly)
}

// CaseScope selects what case_convert operates over (§4.E).
type CaseScope int

const (
	CaseWords CaseScope = iota
	CaseLines
	CaseRegion
)

// CaseMode selects the conversion applied.
type CaseMode int

const (
	CaseUpper CaseMode = iota
	CaseLower
	CaseTitle
)

func convertByte(c byte, mode CaseMode, atWordStart *bool) byte {
	r := rune(c)
	switch mode {
	case CaseUpper:
		return byte(unicode.ToUpper(r))
	case CaseLower:
		return byte(unicode.ToLower(r))
	default: // CaseTitle
		isLetter := unicode.IsLetter(r)
		var out byte
		if isLetter && *atWordStart {
			out = byte(unicode.ToUpper(r))
		} else if isLetter {
			out = byte(unicode.ToLower(r))
		} else {
			out = c
		}
		*atWordStart = !isLetter
		return out
	}
}

// CaseConvert implements §4.E case_convert(scope, mode). Word scope stops
// at the first word-break after consuming |n| words; line scope operates
// on whole-line blocks; region leaves point at the opposite end of the
// region on completion.
func CaseConvert(b *Buffer, windows []*Window, scope CaseScope, mode CaseMode, n int) Status {
	switch scope {
	case CaseRegion:
		reg, st := b.GetRegion(true)
		if !st.OK() {
			return st
		}
		start := b.Point
		b.Point = reg.Start
		atWordStart := true
		convertSpan(b, windows, reg.Size, mode, &atWordStart)
		b.Point = oppositeEnd(b, start, reg)
		return Ok
	case CaseLines:
		reg, st := b.GetLineRegion(n)
		if !st.OK() {
			return st
		}
		b.Point = reg.Start
		atWordStart := true
		convertSpan(b, windows, reg.Size, mode, &atWordStart)
		return Ok
	default: // CaseWords
		count := n
		if count == 0 {
			count = 1
		}
		neg := count < 0
		if neg {
			count = -count
		}
		atWordStart := true
		for i := 0; i < count; i++ {
			convertOneWord(b, windows, mode, neg, &atWordStart)
		}
		return Ok
	}
}

// oppositeEnd returns the end of reg that is not start: if point began at
// reg.Start it returns the far end (reg.Start advanced reg.Size bytes
// forward, walking line by line like GetLineRegion's own remaining-walk);
// otherwise it returns reg.Start.
func oppositeEnd(b *Buffer, start Point, reg Region) Point {
	far := reg.Start
	remaining := reg.Size
	for remaining > 0 {
		used := b.arena.Used(far.Line) - far.Offset
		if remaining <= used {
			far.Offset += remaining
			remaining = 0
		} else {
			remaining -= used + 1
			far = Point{Line: b.arena.Next(far.Line), Offset: 0}
		}
	}
	if start == reg.Start {
		return far
	}
	return reg.Start
}

func convertSpan(b *Buffer, windows []*Window, size int, mode CaseMode, atWordStart *bool) {
	for size > 0 {
		line := b.Point.Line
		data := b.arena.Bytes(line)
		avail := len(data) - b.Point.Offset
		if avail == 0 {
			if b.arena.Next(line) == b.header {
				return
			}
			b.Point = Point{Line: b.arena.Next(line), Offset: 0}
			size--
			*atWordStart = true
			continue
		}
		take := size
		if take > avail {
			take = avail
		}
		for i := 0; i < take; i++ {
			data[b.Point.Offset+i] = convertByte(data[b.Point.Offset+i], mode, atWordStart)
		}
		b.Point.Offset += take
		size -= take
	}
}

func isWordByte(c byte) bool {
	return unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}

func convertOneWord(b *Buffer, windows []*Window, mode CaseMode, backward bool, atWordStart *bool) {
	step := func() bool {
		if backward {
			return movePointBackward(b)
		}
		return movePointForward(b)
	}
	// Skip to the start of the next word.
	for !atCurrentWordByte(b) {
		if !step() {
			return
		}
	}
	*atWordStart = true
	for atCurrentWordByte(b) {
		line := b.Point.Line
		data := b.arena.Bytes(line)
		off := b.Point.Offset
		if !backward {
			data[off] = convertByte(data[off], mode, atWordStart)
		} else if off > 0 {
			data[off-1] = convertByte(data[off-1], mode, atWordStart)
		}
		if !step() {
			return
		}
	}
}

func atCurrentWordByte(b *Buffer) bool {
	line := b.Point.Line
	data := b.arena.Bytes(line)
	off := b.Point.Offset
	if off < 0 || off >= len(data) {
		return false
	}
	return isWordByte(data[off])
}

func movePointForward(b *Buffer) bool {
	line := b.Point.Line
	if b.Point.Offset < b.arena.Used(line) {
		b.Point.Offset++
		return true
	}
	if b.arena.Next(line) == b.header {
		return false
	}
	b.Point = Point{Line: b.arena.Next(line), Offset: 0}
	return true
}

func movePointBackward(b *Buffer) bool {
	if b.Point.Offset > 0 {
		b.Point.Offset--
		return true
	}
	if b.arena.Prev(b.Point.Line) == b.header {
		return false
	}
	prev := b.arena.Prev(b.Point.Line)
	b.Point = Point{Line: prev, Offset: b.arena.Used(prev)}
	return true
}
