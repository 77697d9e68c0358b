package memacs

// Window & Screen tiling: §4.D. Grounded on memacs-8.1.0/src/screen.c
// (onlyWind/splitWind/nextWind/vscreen renumbering) for the split/delete/
// resize/reframe rules; the teacher's own Screen type (screen.go) names a
// different concept — a terminal's double-buffered render target — so
// that name is reserved for the display differ (display.go) and this
// file's Screen is the spec's independent window tree instead.

// WindowFlag marks a window dirty for some reason; multiple bits can be
// set at once (§3 Window "dirty flag set").
type WindowFlag uint32

const (
	WinEdit WindowFlag = 1 << iota
	WinMove
	WinHard
	WinMode
	WinForce
	WinReframe
)

var nextWindowID = firstWindowMarkID

func allocWindowID() int {
	id := nextWindowID
	nextWindowID++
	return id
}

// Window is a tiled view into a buffer (§3).
type Window struct {
	next  *Window // next window in this screen's chain
	Buffer *Buffer

	Face Face // window-specific framing: TopLine/FirstColumn (see Decision D-2)

	TopRow     int
	Rows       int
	ReframeRow int // reframe target row; negative counts from bottom

	Flags WindowFlag
	ID    int
}

// NewWindow creates a window attached to buf.
func NewWindow(buf *Buffer, topRow, rows int) *Window {
	w := &Window{
		Buffer: buf,
		Face:   Face{TopLine: buf.TopLine},
		TopRow: topRow,
		Rows:   rows,
		ID:     allocWindowID(),
		Flags:  WinHard,
	}
	buf.nwind++
	return w
}

// AttachBuffer switches the window to a new buffer, saving the outgoing
// buffer's face and loading the incoming buffer's face (§3, §4.D).
func (w *Window) AttachBuffer(newBuf *Buffer) {
	old := w.Buffer
	if old != nil {
		old.TopLine = w.Face.TopLine
		old.nwind--
	}
	w.Buffer = newBuf
	w.Face = Face{TopLine: newBuf.TopLine}
	newBuf.nwind++
	w.Flags |= WinHard
}

// Screen is an independent tiling of windows (§3): one of possibly
// several virtual screens the editor hosts, each with its own window
// chain and current window.
type Screen struct {
	Number  int
	Current *Window
	head    *Window // window chain head

	Rows, Cols int
	WorkDir    string

	hscrollFirstCol int // cached first-column for horizontal scroll
}

// windowList returns every window on the screen, in chain order.
func (s *Screen) windowList() []*Window {
	var out []*Window
	for w := s.head; w != nil; w = w.next {
		out = append(out, w)
	}
	return out
}

// NewScreen creates a screen of the given size showing buf in a single
// full-height window (minus the message-line row).
func NewScreen(number int, buf *Buffer, rows, cols int) *Screen {
	w := NewWindow(buf, 0, rows-1)
	s := &Screen{Number: number, Current: w, head: w, Rows: rows, Cols: cols}
	return s
}

// Split implements §4.D split(n): splits the current window.
//
// Requires >= 3 rows. Default (n == 0) splits evenly; n < 0 trims abs(n)
// rows from the upper share; n > 0 sets the upper window to n rows.
// Returns the *other* (newly created) window.
func (s *Screen) Split(n int) (*Window, Status) {
	cur := s.Current
	if cur.Rows < 3 {
		return nil, Fail("Cannot split a %d-row window", cur.Rows)
	}
	total := cur.Rows
	var upper int
	switch {
	case n == 0:
		upper = total / 2
	case n < 0:
		upper = total/2 - (-n)
	default:
		upper = n
	}
	if upper < 1 {
		upper = 1
	}
	if upper > total-1 {
		upper = total - 1
	}
	lower := total - upper

	pointInUpper := s.pointRowWithin(cur) < upper

	other := NewWindow(cur.Buffer, cur.TopRow+upper, lower)
	other.next = cur.next
	cur.next = other
	cur.Rows = upper
	cur.Flags |= WinHard
	other.Flags |= WinHard

	// If point was in the upper half, the new (lower) window's point is
	// placed mid-way or at buffer end; otherwise symmetric (placed at the
	// midpoint of the remaining half, clamped to buffer end).
	if pointInUpper {
		other.Face.Point = midwayPoint(cur.Buffer)
	} else {
		cur.Face.Point = midwayPoint(cur.Buffer)
	}

	return other, Ok
}

// pointRowWithin estimates which on-screen row the buffer's point
// currently falls in relative to the window's top line, by counting
// lines from TopLine to Point.Line (used only to decide split placement).
func (s *Screen) pointRowWithin(w *Window) int {
	row := 0
	b := w.Buffer
	for l := w.Face.TopLine; l != b.Point.Line && l != b.Header(); l = b.Arena().Next(l) {
		row++
	}
	return row
}

// midwayPoint returns a point roughly halfway through the buffer, or at
// end-of-buffer if the buffer is short.
func midwayPoint(b *Buffer) Point {
	total := b.LineCount()
	if total == 0 {
		return Point{Line: b.Header(), Offset: 0}
	}
	half := total / 2
	l := b.Arena().Next(b.Header())
	for i := 0; i < half && b.Arena().Next(l) != b.Header(); i++ {
		l = b.Arena().Next(l)
	}
	return Point{Line: l, Offset: 0}
}

// Delete implements §4.D delete(n): merges the current window's rows into
// its predecessor (default), successor (n > 0), or wraps to the opposite
// end of the screen (|n| >= 2). n == -1 also deletes the buffer if its
// window-count reaches zero.
func (s *Screen) Delete(n int, mgr *Manager, confirm ConfirmFunc) Status {
	windows := s.windowList()
	if len(windows) < 2 {
		return Fail("Cannot delete the only window")
	}
	cur := s.Current
	idx := indexOfWindow(windows, cur)

	var target *Window
	switch {
	case n > 0:
		target = windows[(idx+1)%len(windows)]
	case n <= -2:
		target = windows[(idx-1+len(windows))%len(windows)]
		if n <= -2 {
			target = windows[((idx-(-n))%len(windows)+len(windows))%len(windows)]
		}
	default:
		target = windows[(idx-1+len(windows))%len(windows)]
	}

	target.Rows += cur.Rows
	target.Flags |= WinHard
	s.unlinkWindow(cur)
	s.recomputeRows()
	cur.Buffer.nwind--

	if s.Current == cur {
		s.Current = target
	}

	if n == -1 && cur.Buffer.nwind == 0 {
		mgr.Delete(cur.Buffer, false, confirm)
	}
	return Ok
}

func indexOfWindow(ws []*Window, w *Window) int {
	for i, x := range ws {
		if x == w {
			return i
		}
	}
	return -1
}

func (s *Screen) unlinkWindow(w *Window) {
	if s.head == w {
		s.head = w.next
		return
	}
	for p := s.head; p != nil; p = p.next {
		if p.next == w {
			p.next = w.next
			return
		}
	}
}

// Resize implements §4.D resize(n): n == 0 equalises all windows; else
// sets the current window to n rows, stealing from or giving to an
// adjacent window.
func (s *Screen) Resize(n int) Status {
	windows := s.windowList()
	if n == 0 {
		total := 0
		for _, w := range windows {
			total += w.Rows
		}
		each := total / len(windows)
		remainder := total - each*len(windows)
		row := windows[0].TopRow
		for i, w := range windows {
			w.Rows = each
			if i == len(windows)-1 {
				w.Rows += remainder
			}
			w.TopRow = row
			row += w.Rows
			w.Flags |= WinHard
		}
		return Ok
	}

	idx := indexOfWindow(windows, s.Current)
	if idx < 0 {
		return Fail("current window not found")
	}
	var neighbor *Window
	if idx+1 < len(windows) {
		neighbor = windows[idx+1]
	} else if idx > 0 {
		neighbor = windows[idx-1]
	} else {
		return Fail("no adjacent window to resize against")
	}
	delta := n - s.Current.Rows
	if neighbor.Rows-delta < 1 {
		return Fail("not enough rows to resize")
	}
	s.Current.Rows = n
	neighbor.Rows -= delta
	s.recomputeRows()
	s.Current.Flags |= WinHard
	neighbor.Flags |= WinHard
	return Ok
}

func (s *Screen) recomputeRows() {
	row := 0
	for w := s.head; w != nil; w = w.next {
		w.TopRow = row
		row += w.Rows
	}
}

// Scroll implements §4.D scroll(n, forward): shifts the top line by n; if
// point leaves the window, recenters point.
func (s *Screen) Scroll(w *Window, n int, forward bool) {
	b := w.Buffer
	steps := n
	if !forward {
		steps = -n
	}
	line := w.Face.TopLine
	if steps >= 0 {
		for i := 0; i < steps && b.Arena().Next(line) != b.Header(); i++ {
			line = b.Arena().Next(line)
		}
	} else {
		for i := 0; i < -steps; i++ {
			p := b.Arena().Prev(line)
			if p == b.Header() {
				break
			}
			line = p
		}
	}
	w.Face.TopLine = line
	w.Flags |= WinReframe

	if !w.pointVisible(w.Rows) {
		// Point left the window: move it to the window's middle line.
		b.Point = Point{Line: lineAtOffsetFrom(b, line, w.Rows/2), Offset: 0}
	}
}

// pointVisible reports whether b.Point.Line is within the first 'rows'
// lines starting at w.Face.TopLine.
func (w *Window) pointVisible(rows int) bool {
	b := w.Buffer
	l := w.Face.TopLine
	for i := 0; i < rows; i++ {
		if l == b.Point.Line {
			return true
		}
		if l == b.Header() {
			return false
		}
		l = b.Arena().Next(l)
	}
	return false
}

// VJumpFractionCenter is the vertical-jump recenter fraction (default: center,
// i.e. 0.5), used by Reframe.
const VJumpFractionCenter = 0.5

// Reframe implements §4.D reframe(window): if FORCE is flagged, places
// the point-line at ReframeRow (negative counts from bottom); else if
// point left the window, recenters using vjump; otherwise leaves framing
// alone.
func (w *Window) Reframe(vjump float64) {
	b := w.Buffer
	switch {
	case w.Flags&WinForce != 0:
		row := w.ReframeRow
		if row < 0 {
			row = w.Rows + row
		}
		w.Face.TopLine = lineAtOffsetFrom(b, b.Point.Line, -row)
		w.Flags &^= WinForce
	case !w.pointVisible(w.Rows):
		offset := int(float64(w.Rows) * vjump)
		w.Face.TopLine = lineAtOffsetFrom(b, b.Point.Line, -offset)
	default:
		return
	}
	w.Flags |= WinReframe
}

// lineAtOffsetFrom walks 'delta' lines forward (positive) or backward
// (negative) from 'from', clamping at buffer boundaries.
func lineAtOffsetFrom(b *Buffer, from LineID, delta int) LineID {
	l := from
	if delta > 0 {
		for i := 0; i < delta && b.Arena().Next(l) != b.Header(); i++ {
			l = b.Arena().Next(l)
		}
	} else {
		for i := 0; i < -delta; i++ {
			p := b.Arena().Prev(l)
			if p == b.Header() {
				break
			}
			l = p
		}
	}
	return l
}

// ScreenList holds every screen the editor hosts, numbered 1..N (§4.D).
type ScreenList struct {
	screens []*Screen
	current *Screen
}

// NewScreenList creates a screen list with one initial screen.
func NewScreenList(first *Screen) *ScreenList {
	first.Number = 1
	return &ScreenList{screens: []*Screen{first}, current: first}
}

// Current returns the current screen.
func (sl *ScreenList) Current() *Screen { return sl.current }

// Add appends a new screen and renumbers 1..N.
func (sl *ScreenList) Add(s *Screen) {
	sl.screens = append(sl.screens, s)
	sl.renumber()
}

// Delete removes a screen; the last screen cannot be deleted.
func (sl *ScreenList) Delete(s *Screen) Status {
	if len(sl.screens) <= 1 {
		return Fail("Cannot delete the only screen")
	}
	for i, x := range sl.screens {
		if x == s {
			sl.screens = append(sl.screens[:i], sl.screens[i+1:]...)
			break
		}
	}
	if sl.current == s {
		sl.current = sl.screens[0]
	}
	sl.renumber()
	return Ok
}

func (sl *ScreenList) renumber() {
	for i, s := range sl.screens {
		s.Number = i + 1
	}
}

// SwitchTo makes s the current screen: saves the outgoing window's face
// into its buffer, swaps current-window/current-buffer pointers, and
// flags a full redraw.
func (sl *ScreenList) SwitchTo(s *Screen, mgr *Manager) {
	if sl.current != nil && sl.current.Current != nil {
		out := sl.current.Current
		out.Buffer.TopLine = out.Face.TopLine
	}
	sl.current = s
	if s.Current != nil {
		mgr.SetCurrent(s.Current.Buffer)
		s.Current.Flags |= WinHard
	}
}
