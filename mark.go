package memacs

// Mark & Region: §4.C. Grounded on memacs-8.1.0/src/region.c (getregion,
// getlinerange) for the forward/backward simultaneous walk and the
// force_begin rewrite rule.

// RegionMarkID and WorkMarkID are the two reserved mark identifiers (§3):
// 'R' defines the other end of the current region; 'W' is the "previous
// position after a large motion" mark.
const (
	RegionMarkID = 'R'
	WorkMarkID   = 'W'
)

// firstWindowMarkID is the first id in the opaque, above-printable range
// used for window-attached marks (§4.C find_or_create WINDOW_ID option).
const firstWindowMarkID = 256

// Mark is a named position that survives edits (§3). id is either a
// printable byte (user mark) or an id >= firstWindowMarkID (window-
// attached mark, unique across all windows on all screens).
type Mark struct {
	ID     int
	Point  Point
	Reframe int // reframe_row saved with window-attached marks

	// active is false when the mark's line currently lives in a narrowed
	// fragment; in that state Point.Offset holds -(offset+1) and must not
	// be read directly — check Active() first.
	active bool
}

// NewMark creates an active mark at the given point.
func NewMark(id int, p Point) *Mark {
	return &Mark{ID: id, Point: p, active: true}
}

// Active reports whether the mark's position is currently visible (not
// hidden by narrowing).
func (m *Mark) Active() bool { return m.active }

// Deactivate hides the mark by negating its stored offset, per the
// narrowing invariant in §3.
func (m *Mark) Deactivate() {
	if m.active {
		m.Point.Offset = -(m.Point.Offset + 1)
		m.active = false
	}
}

// Reactivate restores a deactivated mark's offset.
func (m *Mark) Reactivate() {
	if !m.active {
		m.Point.Offset = -(m.Point.Offset + 1)
		m.active = true
	}
}

// MarkOpts are the find_or_create option flags (§4.C).
type MarkOpts int

const (
	MarkQuery MarkOpts = 1 << iota
	MarkCreate
	MarkWindowID
)

// Region is a derived object: a start point plus a signed byte size (§3).
// Size may be negative to express direction without re-normalising the
// point/mark pair it was derived from.
type Region struct {
	Start Point
	Size  int
}

// GetRegion implements §4.C get_region: starting from point, walk forward
// and backward simultaneously looking for the region mark 'R'. Returns
// point and a signed size (positive if the mark follows point, negative
// if it precedes it). If forceBegin is true a negative result is
// rewritten: the returned point is the earlier end (the mark) and the
// size is made positive.
//
// Fails if mark 'R' is not set in this buffer.
func (b *Buffer) GetRegion(forceBegin bool) (Region, Status) {
	rm := b.FindMark(RegionMarkID)
	if rm == nil || !rm.Active() {
		return Region{}, Fail("No mark '%c' in this buffer", RegionMarkID)
	}
	point := b.Point
	mark := rm.Point

	size, err := b.offsetBetween(point, mark)
	if err != Success {
		return Region{}, Status{Code: err}
	}
	if size >= 0 || !forceBegin {
		return Region{Start: point, Size: size}, Ok
	}
	// Mark precedes point: start is the mark, size positive.
	return Region{Start: mark, Size: -size}, Ok
}

// offsetBetween walks forward from a to b (or backward) counting bytes,
// returning a positive count if b follows a, negative if b precedes a.
// It performs the "simultaneous" search described in §4.C by trying both
// directions from 'from' up to a safety bound of the whole buffer.
func (b *Buffer) offsetBetween(from, to Point) (int, Code) {
	if from.Line == to.Line {
		return to.Offset - from.Offset, Success
	}
	// Walk forward from 'from' looking for to.Line.
	count := b.arena.Used(from.Line) - from.Offset + 1 // +1 for the newline
	for l := b.arena.Next(from.Line); l != b.header; l = b.arena.Next(l) {
		if l == to.Line {
			return count + to.Offset, Success
		}
		count += b.arena.Used(l) + 1
	}
	// Not found forward; walk backward.
	count = -(from.Offset)
	for l := b.arena.Prev(from.Line); l != b.header; l = b.arena.Prev(l) {
		count -= b.arena.Used(l) + 1
		if l == to.Line {
			return count + to.Offset - from.Offset + from.Offset, Success
		}
	}
	return 0, Failure
}

// LineRegionMode selects how GetLineRegion bounds a block of lines.
type LineRegionMode int

const (
	// LinesFromRegion means "all lines intersecting the current region".
	LinesFromRegion LineRegionMode = iota
	LinesForward
	LinesBackward
)

// GetLineRegion implements §4.C get_line_region(n): n == 0 bounds all
// lines intersecting the current region; n > 0 bounds n lines starting at
// point's line; n < 0 bounds n lines ending at point's line. The result
// always starts at column 0 of the first line and includes the final
// newline unless the block ends at end-of-buffer.
func (b *Buffer) GetLineRegion(n int) (Region, Status) {
	switch {
	case n == 0:
		reg, st := b.GetRegion(true)
		if !st.OK() {
			return Region{}, st
		}
		startLine := reg.Start.Line
		endPoint := Point{Line: reg.Start.Line, Offset: reg.Start.Offset}
		remaining := reg.Size
		for remaining > 0 {
			used := b.arena.Used(endPoint.Line)
			avail := used - endPoint.Offset
			if remaining <= avail {
				endPoint.Offset += remaining
				remaining = 0
			} else {
				remaining -= avail + 1
				endPoint = Point{Line: b.arena.Next(endPoint.Line), Offset: 0}
			}
		}
		return b.lineBlockRegion(startLine, endPoint.Line)
	case n > 0:
		start := b.Point.Line
		end := start
		for i := 1; i < n && b.arena.Next(end) != b.header; i++ {
			end = b.arena.Next(end)
		}
		return b.lineBlockRegion(start, end)
	default:
		end := b.Point.Line
		start := end
		for i := 1; i < -n && b.arena.Prev(start) != b.header; i++ {
			start = b.arena.Prev(start)
		}
		return b.lineBlockRegion(start, end)
	}
}

// lineBlockRegion builds a Region spanning whole lines from start through
// end inclusive, starting at column 0 and including end's trailing
// newline unless end is the last real line (i.e. its successor is the
// header, meaning end-of-buffer).
func (b *Buffer) lineBlockRegion(start, end LineID) (Region, Status) {
	size := 0
	l := start
	for {
		size += b.arena.Used(l)
		if l == end {
			if b.arena.Next(l) != b.header {
				size++ // trailing newline, unless block ends at EOB
			}
			break
		}
		size++
		l = b.arena.Next(l)
	}
	return Region{Start: Point{Line: start, Offset: 0}, Size: size}, Ok
}
