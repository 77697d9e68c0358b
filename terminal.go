package memacs

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Terminal capability: §6. Grounded on the teacher's screen.go
// EnterRawMode/ExitRawMode/getTerminalSize (ioctl-based termios twiddling
// and TIOCGWINSZ size query) and on golang.org/x/term for the portable
// raw-mode save/restore pair used where the teacher's manual termios
// fiddling isn't needed.

// Size is a terminal's column/row extent.
type Size struct {
	Cols, Rows int
}

// Terminal is the capability surface the editor needs from the
// controlling tty (§6): raw-mode enter/exit, size query, resize
// notification, and raw byte I/O. A default implementation is provided
// for real terminals; tests substitute a fake.
type Terminal interface {
	EnterRaw() error
	ExitRaw() error
	Size() (Size, error)
	ResizeChan() <-chan Size
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// unixTerminal is the default Terminal backed by the process's stdin/stdout
// and golang.org/x/sys/unix ioctls, mirroring the teacher's raw-mode flag
// twiddling (disable ICANON/ECHO/ISIG/IEXTEN, input/output post-processing,
// 8-bit chars, VMIN=1/VTIME=0).
type unixTerminal struct {
	in, out  *os.File
	fd       int
	orig     *unix.Termios
	inRaw    bool
	resizeCh chan Size
	sigCh    chan os.Signal
}

// NewTerminal creates a Terminal over the process's stdin/stdout.
func NewTerminal() Terminal {
	return &unixTerminal{
		in:       os.Stdin,
		out:      os.Stdout,
		fd:       int(os.Stdin.Fd()),
		resizeCh: make(chan Size, 1),
	}
}

func (t *unixTerminal) EnterRaw() error {
	if t.inRaw {
		return nil
	}
	termios, err := unix.IoctlGetTermios(t.fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}
	t.orig = termios

	raw := *termios
	raw.Iflag &^= unix.BRKINT | unix.ICRNL | unix.INPCK | unix.ISTRIP | unix.IXON
	raw.Oflag &^= unix.OPOST
	raw.Cflag |= unix.CS8
	raw.Lflag &^= unix.ECHO | unix.ICANON | unix.ISIG | unix.IEXTEN
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(t.fd, unix.TCSETS, &raw); err != nil {
		return fmt.Errorf("set raw termios: %w", err)
	}
	t.inRaw = true
	t.startResizeWatch()
	return nil
}

func (t *unixTerminal) ExitRaw() error {
	if !t.inRaw {
		return nil
	}
	t.stopResizeWatch()
	if t.orig != nil {
		if err := unix.IoctlSetTermios(t.fd, unix.TCSETS, t.orig); err != nil {
			return fmt.Errorf("restore termios: %w", err)
		}
	}
	t.inRaw = false
	return nil
}

func (t *unixTerminal) Size() (Size, error) {
	ws, err := unix.IoctlGetWinsize(t.fd, unix.TIOCGWINSZ)
	if err != nil {
		return Size{}, err
	}
	return Size{Cols: int(ws.Col), Rows: int(ws.Row)}, nil
}

func (t *unixTerminal) ResizeChan() <-chan Size { return t.resizeCh }

func (t *unixTerminal) Read(p []byte) (int, error)  { return t.in.Read(p) }
func (t *unixTerminal) Write(p []byte) (int, error) { return t.out.Write(p) }

// startResizeWatch begins forwarding SIGWINCH as Size updates on
// resizeCh, grounded on the teacher's handleSignals goroutine.
func (t *unixTerminal) startResizeWatch() {
	t.sigCh = make(chan os.Signal, 1)
	signal.Notify(t.sigCh, syscall.SIGWINCH)
	go func() {
		for range t.sigCh {
			sz, err := t.Size()
			if err != nil {
				continue
			}
			select {
			case t.resizeCh <- sz:
			default:
			}
		}
	}()
}

func (t *unixTerminal) stopResizeWatch() {
	if t.sigCh != nil {
		signal.Stop(t.sigCh)
		close(t.sigCh)
		t.sigCh = nil
	}
}

// termSizeHelper asks golang.org/x/term for the size, a one-shot query
// that doesn't need the unix-specific ioctl constant or raw mode. Nothing
// in this package calls it; Size uses the ioctl path.
func termSizeHelper(fd int) (Size, error) {
	cols, rows, err := term.GetSize(fd)
	if err != nil {
		return Size{}, err
	}
	return Size{Cols: cols, Rows: rows}, nil
}
