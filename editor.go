package memacs

import "fmt"

// Editor: the aggregate value threaded through the main loop (Design
// Notes §9). Grounded on the teacher's app.go App struct — the one place
// that owns every subsystem and drives Run() — generalized from a TUI
// widget-tree owner to an owner of the buffer/window/ring/display stack
// this spec defines, and on its run()/render() shape for EnterRaw/
// render/Flush/ExitRaw sequencing.

// Config holds the tunable knobs §4 and §6 call out by name.
type Config struct {
	HardTabSize   int
	SoftTabSize   int // 0 disables soft tabs
	WrapColumn    int // 0 disables auto-wrap
	MaxLoop       int // runaway-loop guard for the macro interpreter
	MaxRecursion  int
	CommentChar   byte
	MacroPrefix   byte
	SearchRingMax int
	ReplRingMax   int
	KillRingMax   int
	DeleteRingMax int
	MacroRingMax  int
}

// DefaultConfig mirrors the original's shipped defaults.
func DefaultConfig() Config {
	return Config{
		HardTabSize:   8,
		SoftTabSize:   0,
		WrapColumn:    0,
		MaxLoop:       2500,
		MaxRecursion:  100,
		CommentChar:   '#',
		MacroPrefix:   '@',
		SearchRingMax: 30,
		ReplRingMax:   30,
		KillRingMax:   30,
		DeleteRingMax: 30,
		MacroRingMax:  20,
	}
}

// Editor bundles every subsystem an interactive session needs: the
// buffer manager, the screen/window tiling, the five rings, the
// terminal and file-system capability seams, and the display differ for
// the currently active screen.
type Editor struct {
	Config Config

	Arena    *Arena
	Buffers  *Manager
	Screens  *ScreenList
	Rings    *RingSet
	Terminal Terminal
	Files    FileIO
	Display  *Display

	lastCommand  CommandFlag
	lastYankSize int
	running      bool
	message      string
}

// NewEditor wires up an Editor with an initial scratch buffer and a
// single full-size screen, against the given Terminal and FileIO (tests
// substitute fakes for both; NewEditor(cfg, nil, nil) uses the real terminal
// and filesystem).
func NewEditor(cfg Config, term Terminal, files FileIO) (*Editor, Status) {
	if term == nil {
		term = NewTerminal()
	}
	if files == nil {
		files = NewFileIO()
	}
	arena := NewArena()
	mgr := NewManager(arena)
	scratch, st := mgr.Find("scratch", FindCreate, cfg.MacroPrefix)
	if !st.OK() {
		return nil, st
	}
	mgr.SetCurrent(scratch)

	size, err := term.Size()
	if err != nil {
		size = Size{Cols: 80, Rows: 24}
	}
	screen := NewScreen(1, scratch, size.Rows, size.Cols)
	screens := NewScreenList(screen)

	rings := NewRingSet(cfg.SearchRingMax, cfg.ReplRingMax, cfg.KillRingMax, cfg.DeleteRingMax, cfg.MacroRingMax)

	return &Editor{
		Config:   cfg,
		Arena:    arena,
		Buffers:  mgr,
		Screens:  screens,
		Rings:    rings,
		Terminal: term,
		Files:    files,
		Display:  NewDisplay(size.Cols, size.Rows),
	}, Ok
}

// windows returns every window on every screen (the flattened list most
// edit primitives want, so a mutation on one screen can fix up TopLine on
// windows belonging to others too — §4.A's fix-up protocol is buffer-
// scoped, not screen-scoped).
func (e *Editor) windows() []*Window {
	var out []*Window
	for _, s := range e.Screens.screens {
		out = append(out, s.windowList()...)
	}
	return out
}

// SetMessage posts to the message line (§4.F ml_puts).
func (e *Editor) SetMessage(format string, args ...any) {
	e.message = fmt.Sprintf(format, args...)
	e.Display.SetMessage(e.message)
}

// Report posts the outcome of a command per §7: quiet statuses (Success,
// NotFound) leave the message line as it is, except that a NotFound with a
// message shows that message; anything else is shown as st.Error().
func (e *Editor) Report(st Status) {
	if st.Quiet() {
		if st.Code == NotFound && st.Msg != "" {
			e.SetMessage("%s", st.Msg)
		}
		return
	}
	e.SetMessage("%s", st.Error())
}

// Render paints every window on the current screen plus its mode line
// into the display grid (§4.F), ready for Flush.
func (e *Editor) Render() {
	screen := e.Screens.Current()
	for _, w := range screen.windowList() {
		e.Display.RenderWindow(w, e.Config.HardTabSize)
		e.Display.RenderModeLine(w, len(e.Screens.screens))
	}
}

// Flush diffs the display grid against the terminal's last known state
// and writes the minimal update (§4.F), following the teacher's
// Flush()-then-write-buffer split so callers can batch multiple frames'
// worth of cursor movement before a single Write.
func (e *Editor) Flush() error {
	_, err := e.Terminal.Write(e.Display.Flush())
	return err
}

// FlushFull forces a complete, non-diffed redraw (after a resize, or
// when the terminal's physical state is otherwise unknown).
func (e *Editor) FlushFull() error {
	_, err := e.Terminal.Write(e.Display.FlushFull())
	return err
}

// Resize reacts to a terminal size change: every screen is resized to
// match (§4.D), the display grid is reallocated, and a full redraw is
// scheduled.
func (e *Editor) Resize(sz Size) {
	for _, s := range e.Screens.screens {
		s.Rows, s.Cols = sz.Rows, sz.Cols
		if ws := s.windowList(); len(ws) > 0 {
			// The last window takes up the change in height (the message
			// line keeps one row), then the windows are equalised.
			total := 0
			for _, w := range ws {
				total += w.Rows
			}
			ws[len(ws)-1].Rows += sz.Rows - 1 - total
			s.Resize(0)
		}
	}
	e.Display.Resize(sz.Cols, sz.Rows)
}

// Dispatcher runs one input-driven iteration: decode a key (or whatever
// higher-level event the caller's binding layer produces) and apply it.
// The binding/command table itself is intentionally not specified here —
// §5's command set is a large, open-ended surface orthogonal to this
// core engine — so Dispatcher is supplied by the caller.
type Dispatcher func(e *Editor) (quit bool, st Status)

// Run implements the main loop shape (grounded on app.go's run()):
// enter raw mode, install a resize watcher, loop calling dispatch and
// re-rendering after each iteration, and always restore the terminal on
// the way out.
func (e *Editor) Run(dispatch Dispatcher) error {
	if err := e.Terminal.EnterRaw(); err != nil {
		return err
	}
	defer e.Terminal.ExitRaw()

	e.running = true
	e.Render()
	if err := e.FlushFull(); err != nil {
		return err
	}

	resizeCh := e.Terminal.ResizeChan()
	for e.running {
		select {
		case sz := <-resizeCh:
			e.Resize(sz)
			e.Render()
			if err := e.FlushFull(); err != nil {
				return err
			}
			continue
		default:
		}

		quit, st := dispatch(e)
		e.Report(st)
		if quit {
			e.running = false
			break
		}
		e.Render()
		if err := e.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Stop requests the main loop exit after the current iteration.
func (e *Editor) Stop() { e.running = false }
