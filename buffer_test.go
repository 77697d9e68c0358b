package memacs

import "testing"

func newTestBuffer(t *testing.T, text string) *Buffer {
	t.Helper()
	arena := NewArena()
	b := NewBuffer(arena, "test")
	if text != "" {
		if st := InsertString(b, nil, text); !st.OK() {
			t.Fatalf("InsertString: %v", st)
		}
		b.Point = Point{Line: arena.Next(b.Header()), Offset: 0}
	}
	return b
}

func TestManagerFindCreate(t *testing.T) {
	mgr := NewManager(NewArena())
	b, st := mgr.Find("foo", FindCreate, '@')
	if !st.OK() {
		t.Fatalf("Find: %v", st)
	}
	if b.Name != "foo" {
		t.Errorf("Name = %q, want foo", b.Name)
	}
	again, st := mgr.Find("foo", 0, '@')
	if !st.OK() || again != b {
		t.Errorf("second Find should return the same buffer")
	}
	if _, st := mgr.Find("bar", 0, '@'); st.Code != NotFound {
		t.Errorf("Find on missing buffer without FindCreate should be NotFound, got %v", st)
	}
}

func TestManagerFindUniquify(t *testing.T) {
	mgr := NewManager(NewArena())
	mgr.Find("log", FindCreate, '@')
	b2, _ := mgr.Find("log", FindCreate|FindUniquify, '@')
	if b2.Name != "log2" {
		t.Errorf("uniquified name = %q, want log2", b2.Name)
	}
}

func TestBufferFileBaseName(t *testing.T) {
	tests := []struct{ path, want string }{
		{"/home/user/notes.txt", "notes.txt"},
		{"/tmp/ main", "_main"},
		{"@macro", "_macro"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := bufferFileBaseName(tt.path, '@'); got != tt.want {
			t.Errorf("bufferFileBaseName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestBufferClear(t *testing.T) {
	b := newTestBuffer(t, "hello\nworld")
	b.MarkChanged()
	mgr := NewManager(b.arena)
	if st := mgr.Clear(b, ClearIgnoreChanged, nil); !st.OK() {
		t.Fatalf("Clear: %v", st)
	}
	if !b.Empty() {
		t.Error("buffer should be empty after Clear")
	}
	if b.Changed() {
		t.Error("changed flag should be cleared")
	}
}

func TestBufferNarrowWiden(t *testing.T) {
	b := newTestBuffer(t, "one\ntwo\nthree\nfour")
	b.Point = Point{Line: b.arena.Next(b.header), Offset: 0} // "one"

	if st := b.Narrow(2, nil); !st.OK() {
		t.Fatalf("Narrow: %v", st)
	}
	if got := b.LineCount(); got != 2 {
		t.Errorf("LineCount after narrow = %d, want 2", got)
	}
	if st := b.Widen(nil); !st.OK() {
		t.Fatalf("Widen: %v", st)
	}
	if got := b.LineCount(); got != 4 {
		t.Errorf("LineCount after widen = %d, want 4", got)
	}
}

func TestBufferNarrowTwiceFails(t *testing.T) {
	b := newTestBuffer(t, "a\nb\nc")
	b.Point = Point{Line: b.arena.Next(b.header), Offset: 0}
	if st := b.Narrow(1, nil); !st.OK() {
		t.Fatalf("first Narrow: %v", st)
	}
	if st := b.Narrow(1, nil); st.OK() {
		t.Error("second Narrow should fail while already narrowed")
	}
}

func TestFindOrCreateMark(t *testing.T) {
	b := newTestBuffer(t, "abc")
	if _, st := b.FindOrCreateMark('x', MarkQuery); st.Code != NotFound {
		t.Errorf("query-only on missing mark should be NotFound, got %v", st)
	}
	m, st := b.FindOrCreateMark('x', MarkCreate)
	if !st.OK() {
		t.Fatalf("FindOrCreateMark: %v", st)
	}
	again, st := b.FindOrCreateMark('x', MarkQuery)
	if !st.OK() || again != m {
		t.Error("second find should return the same mark")
	}
}

func TestManagerDeleteRefusesDisplayed(t *testing.T) {
	arena := NewArena()
	mgr := NewManager(arena)
	b, _ := mgr.Find("shown", FindCreate, '@')
	NewWindow(b, 0, 10)
	if st := mgr.Delete(b, false, nil); st.OK() {
		t.Error("Delete should refuse a buffer with nwind > 0")
	}
}
