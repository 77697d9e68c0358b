package memacs

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// File I/O capability: §6. Grounded on memacs-9.0.2/src/file.c (readin's
// line-delimiter auto-detection by scanning the first block for a bare
// LF, a CRLF pair, or a bare CR) and on the teacher's bufio-based reading
// idiom elsewhere in the pack (no teacher file in kungfusheep-glyph itself
// reads editable text files, so this is enriched from scratch following
// the original's delimiter-detection algorithm).

// FileIO is the capability surface the editor needs for reading and
// writing buffer content (§6): a thin seam so tests can substitute an
// in-memory filesystem.
type FileIO interface {
	ReadFile(path string) (lines [][]byte, delim string, err error)
	WriteFile(path string, lines [][]byte, delim string) error
	Exists(path string) bool
}

// osFileIO is the default FileIO backed by the real filesystem.
type osFileIO struct{}

// NewFileIO creates the default filesystem-backed FileIO.
func NewFileIO() FileIO { return osFileIO{} }

func (osFileIO) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// detectDelim implements §4's line-delimiter auto-detection: scan for the
// first line terminator found among "\r\n", "\n", "\r", in that order of
// discovery (whichever appears first in the byte stream wins); defaults to
// "\n" for an empty or terminator-free file.
func detectDelim(data []byte) string {
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\n':
			return "\n"
		case '\r':
			if i+1 < len(data) && data[i+1] == '\n' {
				return "\r\n"
			}
			return "\r"
		}
	}
	return "\n"
}

// ReadFile implements §6 ReadFile: loads path, splits it into lines on the
// detected delimiter, and returns the delimiter found so the caller (the
// buffer's InputDelim, §3) can reproduce it on save.
func (osFileIO) ReadFile(path string) ([][]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(bufio.NewReader(f))
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "\n", nil
	}
	delim := detectDelim(data)
	parts := strings.Split(string(data), delim)
	// A trailing delimiter produces one spurious empty trailing part;
	// drop it so a file ending in a single newline round-trips to the
	// same line count it would have in the editor (§3 Line invariant:
	// the final newline is implicit, not a line of its own).
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	lines := make([][]byte, len(parts))
	for i, p := range parts {
		lines[i] = []byte(p)
	}
	return lines, delim, nil
}

// WriteFile implements §6 WriteFile: joins lines with delim and appends a
// final delim, truncating any pre-existing content.
func (osFileIO) WriteFile(path string, lines [][]byte, delim string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.Write(line); err != nil {
			return err
		}
		if _, err := w.WriteString(delim); err != nil {
			return err
		}
	}
	return w.Flush()
}
