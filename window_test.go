package memacs

import "testing"

func newTestScreen(t *testing.T, rows, cols int) (*Screen, *Buffer) {
	t.Helper()
	b := newTestBuffer(t, "one\ntwo\nthree\nfour\nfive")
	s := NewScreen(1, b, rows, cols)
	return s, b
}

func TestNewWindowTracksBufferCount(t *testing.T) {
	b := newTestBuffer(t, "x")
	w := NewWindow(b, 0, 10)
	if b.nwind != 1 {
		t.Errorf("nwind = %d, want 1", b.nwind)
	}
	if w.Face.TopLine != b.TopLine {
		t.Errorf("new window should inherit the buffer's TopLine")
	}
}

func TestAttachBufferSwapsFaceAndCounts(t *testing.T) {
	b1 := newTestBuffer(t, "a")
	b2 := newTestBuffer(t, "b")
	w := NewWindow(b1, 0, 10)
	w.AttachBuffer(b2)
	if b1.nwind != 0 {
		t.Errorf("old buffer nwind = %d, want 0", b1.nwind)
	}
	if b2.nwind != 1 {
		t.Errorf("new buffer nwind = %d, want 1", b2.nwind)
	}
	if w.Buffer != b2 {
		t.Error("window should now show the new buffer")
	}
}

func TestScreenSplitEven(t *testing.T) {
	s, _ := newTestScreen(t, 21, 80)
	other, st := s.Split(0)
	if !st.OK() {
		t.Fatalf("Split: %v", st)
	}
	if s.Current.Rows+other.Rows != 20 {
		t.Errorf("row totals = %d + %d, want 20", s.Current.Rows, other.Rows)
	}
	if other.TopRow != s.Current.Rows {
		t.Errorf("other.TopRow = %d, want %d", other.TopRow, s.Current.Rows)
	}
}

func TestScreenSplitRefusesTooFewRows(t *testing.T) {
	s, _ := newTestScreen(t, 2, 80)
	if _, st := s.Split(0); st.OK() {
		t.Error("Split should refuse a window with fewer than 3 rows")
	}
}

func TestScreenSplitExplicitUpperSize(t *testing.T) {
	s, _ := newTestScreen(t, 21, 80)
	other, st := s.Split(5)
	if !st.OK() {
		t.Fatalf("Split: %v", st)
	}
	if s.Current.Rows != 5 {
		t.Errorf("upper window rows = %d, want 5", s.Current.Rows)
	}
	if other.Rows != 15 {
		t.Errorf("lower window rows = %d, want 15", other.Rows)
	}
}

func TestScreenDeleteRefusesOnlyWindow(t *testing.T) {
	s, _ := newTestScreen(t, 21, 80)
	mgr := NewManager(NewArena())
	if st := s.Delete(0, mgr, nil); st.OK() {
		t.Error("Delete should refuse the only window")
	}
}

func TestScreenDeleteMergesIntoPredecessor(t *testing.T) {
	s, _ := newTestScreen(t, 21, 80)
	mgr := NewManager(NewArena())
	other, _ := s.Split(10)
	s.Current = other
	if st := s.Delete(0, mgr, nil); !st.OK() {
		t.Fatalf("Delete: %v", st)
	}
	if len(s.windowList()) != 1 {
		t.Fatalf("windowList() len = %d, want 1", len(s.windowList()))
	}
	if s.windowList()[0].Rows != 20 {
		t.Errorf("merged window rows = %d, want 20", s.windowList()[0].Rows)
	}
}

func TestScreenResizeEqualizes(t *testing.T) {
	s, _ := newTestScreen(t, 21, 80)
	s.Split(5)
	if st := s.Resize(0); !st.OK() {
		t.Fatalf("Resize(0): %v", st)
	}
	ws := s.windowList()
	if ws[0].Rows != ws[1].Rows {
		t.Errorf("windows should be equal after Resize(0): %d vs %d", ws[0].Rows, ws[1].Rows)
	}
}

func TestScreenResizeRefusesInsufficientRows(t *testing.T) {
	s, _ := newTestScreen(t, 6, 80)
	s.Split(3)
	if st := s.Resize(100); st.OK() {
		t.Error("Resize should refuse a size that would starve the neighbor")
	}
}

func TestScreenScrollForwardAndBackward(t *testing.T) {
	s, b := newTestScreen(t, 21, 80)
	w := s.Current
	start := w.Face.TopLine
	s.Scroll(w, 2, true)
	if w.Face.TopLine == start {
		t.Error("forward scroll should move TopLine")
	}
	s.Scroll(w, 2, false)
	if w.Face.TopLine != start {
		t.Errorf("scroll back should return to start: got line %v, want %v", w.Face.TopLine, start)
	}
	_ = b
}

func TestWindowReframeForceUsesReframeRow(t *testing.T) {
	s, b := newTestScreen(t, 5, 80)
	w := s.Current
	w.ReframeRow = 0
	w.Flags |= WinForce
	b.Point = Point{Line: b.arena.Next(b.arena.Next(b.arena.Next(b.header))), Offset: 0}
	w.Reframe(VJumpFractionCenter)
	if w.Flags&WinForce != 0 {
		t.Error("WinForce should be cleared after Reframe")
	}
	if w.Face.TopLine != b.Point.Line {
		t.Errorf("TopLine = %v, want the point's line (ReframeRow 0)", w.Face.TopLine)
	}
}

func TestScreenListAddDeleteRenumbers(t *testing.T) {
	s1, _ := newTestScreen(t, 21, 80)
	sl := NewScreenList(s1)
	s2, _ := newTestScreen(t, 21, 80)
	sl.Add(s2)
	if s2.Number != 2 {
		t.Errorf("s2.Number = %d, want 2", s2.Number)
	}
	if st := sl.Delete(s1); !st.OK() {
		t.Fatalf("Delete: %v", st)
	}
	if s2.Number != 1 {
		t.Errorf("s2.Number after delete = %d, want 1", s2.Number)
	}
}

func TestScreenListDeleteRefusesLast(t *testing.T) {
	s1, _ := newTestScreen(t, 21, 80)
	sl := NewScreenList(s1)
	if st := sl.Delete(s1); st.OK() {
		t.Error("Delete should refuse the only remaining screen")
	}
}

func TestScreenListSwitchTo(t *testing.T) {
	s1, _ := newTestScreen(t, 21, 80)
	sl := NewScreenList(s1)
	s2, b2 := newTestScreen(t, 21, 80)
	sl.Add(s2)
	mgr := NewManager(b2.arena)
	sl.SwitchTo(s2, mgr)
	if sl.Current() != s2 {
		t.Error("Current() should be s2 after SwitchTo")
	}
	if mgr.current != b2 {
		t.Error("SwitchTo should make s2's buffer the manager's current buffer")
	}
}
