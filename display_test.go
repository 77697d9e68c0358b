package memacs

import (
	"strings"
	"testing"
)

func TestNewDisplayReservesMessageRow(t *testing.T) {
	d := NewDisplay(80, 24)
	if d.height != 23 {
		t.Errorf("content height = %d, want 23 (24 minus message line)", d.height)
	}
	if len(d.msgLine) != 80 {
		t.Errorf("msgLine width = %d, want 80", len(d.msgLine))
	}
}

func TestVtExpandControlAndHighBit(t *testing.T) {
	if got := string(vtExpand(0x01, 0, 8)); got != "^A" {
		t.Errorf("control byte = %q, want ^A", got)
	}
	if got := string(vtExpand(0x7F, 0, 8)); got != "^?" {
		t.Errorf("DEL = %q, want ^?", got)
	}
	if got := string(vtExpand(0xFF, 0, 8)); got != "<FF>" {
		t.Errorf("high-bit byte = %q, want <FF>", got)
	}
	if got := string(vtExpand('a', 0, 8)); got != "a" {
		t.Errorf("plain byte = %q, want a", got)
	}
}

func TestVtExpandTab(t *testing.T) {
	got := vtExpand('\t', 3, 8)
	if len(got) != 5 {
		t.Errorf("tab at col 3 with size 8 should expand to 5 columns, got %d", len(got))
	}
}

func TestRenderWindowEmptyBufferShowsTilde(t *testing.T) {
	b := newTestBuffer(t, "")
	w := NewWindow(b, 0, 5)
	d := NewDisplay(20, 6)
	d.RenderWindow(w, 8)
	if d.virtual.get(0, 0).Ch != '~' {
		t.Errorf("empty buffer's first content row should show ~, got %q", d.virtual.get(0, 0).Ch)
	}
}

func TestRenderWindowTruncatesAtRightEdge(t *testing.T) {
	b := newTestBuffer(t, strings.Repeat("x", 30))
	w := NewWindow(b, 0, 5)
	d := NewDisplay(10, 6)
	d.RenderWindow(w, 8)
	if d.virtual.get(9, 0).Ch != rightEdgeGlyph {
		t.Errorf("overlong line should truncate with rightEdgeGlyph, got %q", d.virtual.get(9, 0).Ch)
	}
}

func TestRenderModeLineReverseVideo(t *testing.T) {
	b := newTestBuffer(t, "x")
	b.MarkChanged()
	w := NewWindow(b, 0, 5)
	d := NewDisplay(20, 6)
	d.RenderModeLine(w, 1)
	y := w.TopRow + w.Rows - 1
	if d.virtual.get(0, y).Flags&CellReverse == 0 {
		t.Error("mode line cells should carry CellReverse")
	}
}

func TestSetMessageTruncates(t *testing.T) {
	d := NewDisplay(5, 6)
	d.SetMessage("hello world")
	if len(d.msgLine) != 5 {
		t.Fatalf("msgLine len = %d, want 5", len(d.msgLine))
	}
	if d.msgLine[0].Ch != 'h' || d.msgLine[4].Ch != 'o' {
		t.Errorf("msgLine = %+v, want truncated to \"hello\"", d.msgLine)
	}
}

func TestSetMessageAttrTogglesReverse(t *testing.T) {
	d := NewDisplay(10, 6)
	d.SetMessageAttr("a~b~c")
	if d.msgLine[0].Flags&CellReverse != 0 {
		t.Error("'a' should not be reversed")
	}
	if d.msgLine[1].Flags&CellReverse == 0 {
		t.Error("'b' should be reversed between tildes")
	}
	if d.msgLine[2].Flags&CellReverse != 0 {
		t.Error("'c' should not be reversed after the closing tilde")
	}
}

func TestSetMessageAttrLiteralTilde(t *testing.T) {
	d := NewDisplay(10, 6)
	d.SetMessageAttr("a~~b")
	if d.msgLine[1].Ch != '~' {
		t.Errorf("msgLine[1] = %q, want a literal ~", d.msgLine[1].Ch)
	}
	if d.msgLine[2].Ch != 'b' {
		t.Errorf("msgLine[2] = %q, want b", d.msgLine[2].Ch)
	}
}

func TestFlushOnlyWritesChangedCells(t *testing.T) {
	d := NewDisplay(10, 6)
	d.virtual.set(0, 0, Cell{Ch: 'x'})
	out := d.Flush()
	if len(out) == 0 {
		t.Fatal("Flush should emit output for a dirty cell")
	}
	if !strings.Contains(string(out), "x") {
		t.Errorf("Flush output = %q, want it to contain the changed cell", out)
	}
	// A second flush with nothing changed should write nothing for the grid.
	out2 := d.Flush()
	if strings.Contains(string(out2), "x") {
		t.Errorf("second Flush with no changes should not re-emit the cell: %q", out2)
	}
}

func TestFlushFullAlwaysRedraws(t *testing.T) {
	d := NewDisplay(10, 6)
	d.virtual.set(0, 0, Cell{Ch: 'x'})
	d.Flush() // clear dirty state
	out := d.FlushFull()
	if !strings.Contains(string(out), "x") {
		t.Error("FlushFull should redraw every cell regardless of dirty state")
	}
	if !strings.HasPrefix(string(out), "\x1b[2J\x1b[H") {
		t.Error("FlushFull should begin with a clear-screen escape")
	}
}

func TestResizeForcesFullRedraw(t *testing.T) {
	d := NewDisplay(10, 6)
	d.virtual.set(0, 0, Cell{Ch: 'x'})
	d.Flush()
	d.Resize(20, 10)
	if d.width != 20 || d.height != 9 {
		t.Errorf("after Resize: width=%d height=%d, want 20,9", d.width, d.height)
	}
	if d.virtual.dirty[0] != rowNew {
		t.Error("a fresh grid after Resize should start with rowNew dirty state")
	}
}
