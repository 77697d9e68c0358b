package memacs

import "testing"

// fakeFileIO is an in-memory FileIO for tests that need an Editor without
// touching the real filesystem.
type fakeFileIO struct {
	files map[string][][]byte
}

func newFakeFileIO() *fakeFileIO { return &fakeFileIO{files: make(map[string][][]byte)} }

func (f *fakeFileIO) ReadFile(path string) ([][]byte, string, error) {
	lines, ok := f.files[path]
	if !ok {
		return nil, "", Fail("no such file: %s", path)
	}
	return lines, "\n", nil
}

func (f *fakeFileIO) WriteFile(path string, lines [][]byte, delim string) error {
	f.files[path] = lines
	return nil
}

func (f *fakeFileIO) Exists(path string) bool {
	_, ok := f.files[path]
	return ok
}

func newTestEditor(t *testing.T) *Editor {
	t.Helper()
	e, st := NewEditor(DefaultConfig(), newFakeTerminal(80, 24), newFakeFileIO())
	if !st.OK() {
		t.Fatalf("NewEditor: %v", st)
	}
	return e
}

func TestNewEditorWiresScratchBuffer(t *testing.T) {
	e := newTestEditor(t)
	if e.Buffers.Current() == nil {
		t.Fatal("NewEditor should set a current buffer")
	}
	if e.Buffers.Current().Name != "scratch" {
		t.Errorf("current buffer name = %q, want scratch", e.Buffers.Current().Name)
	}
	if len(e.Screens.screens) != 1 {
		t.Errorf("screen count = %d, want 1", len(e.Screens.screens))
	}
}

func TestEditorReportQuietStatusLeavesMessage(t *testing.T) {
	e := newTestEditor(t)
	e.SetMessage("previous")
	e.Report(Ok)
	if e.message != "previous" {
		t.Errorf("Report(Ok) should leave the message line untouched, got %q", e.message)
	}
}

func TestEditorReportNotFoundShowsMessage(t *testing.T) {
	e := newTestEditor(t)
	e.Report(NotFoundStatus("nothing here"))
	if e.message != "nothing here" {
		t.Errorf("message = %q, want \"nothing here\"", e.message)
	}
}

func TestEditorReportFailureShowsError(t *testing.T) {
	e := newTestEditor(t)
	e.Report(Fail("boom"))
	if e.message != "failure: boom" {
		t.Errorf("message = %q, want \"failure: boom\"", e.message)
	}
}

func TestEditorResizeUpdatesDisplayAndScreens(t *testing.T) {
	e := newTestEditor(t)
	e.Resize(Size{Cols: 100, Rows: 40})
	if e.Display.width != 100 {
		t.Errorf("Display.width = %d, want 100", e.Display.width)
	}
	s := e.Screens.Current()
	if s.Cols != 100 || s.Rows != 40 {
		t.Errorf("screen size = %dx%d, want 100x40", s.Cols, s.Rows)
	}
}

func TestEditorRunDispatchesUntilQuit(t *testing.T) {
	e := newTestEditor(t)
	calls := 0
	dispatch := func(ed *Editor) (bool, Status) {
		calls++
		if calls >= 3 {
			return true, Ok
		}
		return false, Ok
	}
	if err := e.Run(dispatch); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 3 {
		t.Errorf("dispatch called %d times, want 3", calls)
	}
	ft := e.Terminal.(*fakeTerminal)
	if ft.raw {
		t.Error("Run should exit raw mode on the way out")
	}
}

func TestEditorRunAppliesResize(t *testing.T) {
	e := newTestEditor(t)
	ft := e.Terminal.(*fakeTerminal)
	ft.resizeCh <- Size{Cols: 120, Rows: 50}
	calls := 0
	dispatch := func(ed *Editor) (bool, Status) {
		calls++
		return true, Ok
	}
	if err := e.Run(dispatch); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if e.Display.width != 120 {
		t.Errorf("Display.width after resize = %d, want 120", e.Display.width)
	}
}
