package memacs

import "testing"

// fakeTerminal is an in-memory Terminal used by tests that need an
// Editor without a real controlling tty.
type fakeTerminal struct {
	size      Size
	resizeCh  chan Size
	written   []byte
	raw       bool
	enterErr  error
}

func newFakeTerminal(cols, rows int) *fakeTerminal {
	return &fakeTerminal{size: Size{Cols: cols, Rows: rows}, resizeCh: make(chan Size, 1)}
}

func (f *fakeTerminal) EnterRaw() error {
	if f.enterErr != nil {
		return f.enterErr
	}
	f.raw = true
	return nil
}
func (f *fakeTerminal) ExitRaw() error             { f.raw = false; return nil }
func (f *fakeTerminal) Size() (Size, error)         { return f.size, nil }
func (f *fakeTerminal) ResizeChan() <-chan Size     { return f.resizeCh }
func (f *fakeTerminal) Read(p []byte) (int, error)  { return 0, nil }
func (f *fakeTerminal) Write(p []byte) (int, error) {
	f.written = append(f.written, p...)
	return len(p), nil
}

func TestFakeTerminalSatisfiesInterface(t *testing.T) {
	var _ Terminal = newFakeTerminal(80, 24)
}

func TestFakeTerminalEnterExitRaw(t *testing.T) {
	term := newFakeTerminal(80, 24)
	if err := term.EnterRaw(); err != nil {
		t.Fatalf("EnterRaw: %v", err)
	}
	if !term.raw {
		t.Error("EnterRaw should mark the terminal raw")
	}
	if err := term.ExitRaw(); err != nil {
		t.Fatalf("ExitRaw: %v", err)
	}
	if term.raw {
		t.Error("ExitRaw should clear the raw flag")
	}
}

func TestFakeTerminalSizeAndResizeChan(t *testing.T) {
	term := newFakeTerminal(100, 40)
	sz, err := term.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if sz.Cols != 100 || sz.Rows != 40 {
		t.Errorf("Size() = %+v, want 100x40", sz)
	}
	term.resizeCh <- Size{Cols: 120, Rows: 50}
	select {
	case got := <-term.ResizeChan():
		if got.Cols != 120 || got.Rows != 50 {
			t.Errorf("resize notification = %+v, want 120x50", got)
		}
	default:
		t.Fatal("expected a pending resize notification")
	}
}

func TestNewTerminalImplementsInterface(t *testing.T) {
	var _ Terminal = NewTerminal()
}
