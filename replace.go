package memacs

import "strings"

// Replace: §4.G replacement-array compiler and the interactive
// query-replace loop. Grounded on memacs-9.0.2/src/replace.c: the
// replacement meta-array compiler (literal runs plus \0-\9 group
// backreferences and "&" for the whole match) and the query-replace key
// dispatch (y/space/n/Y/!/u/q/ESC/./?/Ctrl-G).

// ReplPieceKind tags one element of a compiled replacement (§4.G).
type ReplPieceKind int

const (
	ReplLiteral ReplPieceKind = iota
	ReplWholeMatch                 // "&"
	ReplGroup                      // "\0".."\9"
)

// ReplPiece is one compiled replacement element.
type ReplPiece struct {
	Kind  ReplPieceKind
	Text  string // for ReplLiteral
	Group int    // for ReplGroup
}

// CompileReplacement compiles a replacement string into a meta-array
// (§4.G): "&" is replaced by the whole match, "\N" (N in 0-9) by capture
// group N, "\&" and "\\" are literal, everything else is literal text.
func CompileReplacement(src string) ([]ReplPiece, Status) {
	var pieces []ReplPiece
	var lit []byte
	flush := func() {
		if len(lit) > 0 {
			pieces = append(pieces, ReplPiece{Kind: ReplLiteral, Text: string(lit)})
			lit = nil
		}
	}
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '&':
			flush()
			pieces = append(pieces, ReplPiece{Kind: ReplWholeMatch})
		case c == '\\' && i+1 < len(src) && src[i+1] >= '0' && src[i+1] <= '9':
			flush()
			pieces = append(pieces, ReplPiece{Kind: ReplGroup, Group: int(src[i+1] - '0')})
			i++
		case c == '\\' && i+1 < len(src) && (src[i+1] == '&' || src[i+1] == '\\'):
			lit = append(lit, src[i+1])
			i++
		default:
			lit = append(lit, c)
		}
	}
	flush()
	return pieces, Ok
}

// Expand builds the replacement text for a match, substituting group
// references from groups (index 0 is the whole match).
func Expand(pieces []ReplPiece, b *Buffer, groups [][2]Point) (string, Status) {
	out := make([]byte, 0, 32)
	for _, p := range pieces {
		switch p.Kind {
		case ReplLiteral:
			out = append(out, p.Text...)
		case ReplWholeMatch:
			text, st := textBetween(b, groups[0][0], groups[0][1])
			if !st.OK() {
				return "", st
			}
			out = append(out, text...)
		case ReplGroup:
			if p.Group >= len(groups) {
				return "", Fail("replacement references group %d but pattern has %d", p.Group, len(groups)-1)
			}
			text, st := textBetween(b, groups[p.Group][0], groups[p.Group][1])
			if !st.OK() {
				return "", st
			}
			out = append(out, text...)
		}
	}
	return string(out), Ok
}

// textBetween extracts the literal bytes of the buffer between two points
// on possibly different lines, reinserting '\n' at line boundaries.
func textBetween(b *Buffer, start, end Point) ([]byte, Status) {
	if start.Line == end.Line {
		data := b.Arena().Bytes(start.Line)
		if start.Offset > end.Offset || end.Offset > len(data) {
			return nil, Fail("invalid match span")
		}
		return append([]byte(nil), data[start.Offset:end.Offset]...), Ok
	}
	var out []byte
	data := b.Arena().Bytes(start.Line)
	out = append(out, data[start.Offset:]...)
	out = append(out, '\n')
	l := b.Arena().Next(start.Line)
	for l != end.Line {
		if l == b.Header() {
			return nil, Fail("invalid match span")
		}
		out = append(out, b.Arena().Bytes(l)...)
		out = append(out, '\n')
		l = b.Arena().Next(l)
	}
	out = append(out, b.Arena().Bytes(end.Line)[:end.Offset]...)
	return out, Ok
}

// QueryAction is one answer to a query-replace prompt (§4.G).
type QueryAction int

const (
	QueryReplaceMatch  QueryAction = iota // y, space
	QuerySkip                             // n
	QueryReplaceAndStop                   // Y: replace this one, then stop
	QueryReplaceRest                       // !: replace every remaining match unprompted
	QueryUndo                             // u
	QueryQuit                             // q, ESC
	QueryBackref                           // .  (go back to previous match)
	QueryHelp                              // ?
	QueryAbort                             // Ctrl-G
)

// ParseQueryKey maps a key byte to the action it requests, per §4.G's key
// table.
func ParseQueryKey(key byte) (QueryAction, bool) {
	switch key {
	case 'y', ' ':
		return QueryReplaceMatch, true
	case 'n':
		return QuerySkip, true
	case 'Y':
		return QueryReplaceAndStop, true
	case '!':
		return QueryReplaceRest, true
	case 'u':
		return QueryUndo, true
	case 'q', 0x1B:
		return QueryQuit, true
	case '.':
		return QueryBackref, true
	case '?':
		return QueryHelp, true
	case 0x07:
		return QueryAbort, true
	default:
		return 0, false
	}
}

// QueryPrompter asks the user for the next query-replace key and reports
// its decoded action; a real UI reads one raw key, maps unknown keys to
// QueryHelp-like re-prompting.
type QueryPrompter func(matchedText string) (QueryAction, byte)

// undoRecord lets QueryReplace revert the single most recent substitution
// when the user presses "u" (§4.G "u: undo the last replacement").
type undoRecord struct {
	start, newEnd Point
	original      []byte
}

// QueryReplaceResult summarizes a completed query-replace pass.
type QueryReplaceResult struct {
	Replaced int
	Quit     bool
}

// QueryReplace implements §4.G's interactive loop: scan for pat, prompt
// for each match via ask, replace/skip/replace-all/undo/quit per the
// decoded action, with a safety guard against looping forever on an
// empty-width pattern match, and D-1's lasthiteob handling (when a match
// ends at end-of-buffer and its replacement text ends in "\n", the one
// trailing newline left by the insertion is deleted again).
func QueryReplace(b *Buffer, windows []*Window, pat *BMPattern, repl []ReplPiece, global bool, ask QueryPrompter) (QueryReplaceResult, Status) {
	result := QueryReplaceResult{}
	var lastUndo *undoRecord
	replaceAll := false

	for {
		m, st := Scan(b, pat, Forward)
		if st.Code == NotFound {
			// No further match: the last replacement can still be undone.
			if lastUndo == nil || replaceAll || ask == nil {
				break
			}
			if action, _ := ask(""); action != QueryUndo {
				break
			}
			if ust := revertUndo(b, windows, lastUndo); !ust.OK() {
				return result, ust
			}
			b.Point = lastUndo.start
			lastUndo = nil
			result.Replaced--
			continue
		}
		if !st.OK() {
			return result, st
		}

		matchedText, tst := textBetween(b, m.Start, m.End)
		if !tst.OK() {
			return result, tst
		}

		action := QueryReplaceRest
		if !replaceAll {
			if ask == nil {
				return result, Fail("query-replace requires an interactive prompter")
			}
			action, _ = ask(string(matchedText))
		}

		switch action {
		case QueryQuit, QueryAbort:
			result.Quit = true
			return result, Ok
		case QuerySkip:
			b.Point = m.End
			if m.Start == m.End {
				// Guard against an infinite loop on a zero-width match.
				if !movePointForward(b) {
					return result, Ok
				}
			}
			continue
		case QueryUndo:
			if lastUndo == nil {
				continue
			}
			if st := revertUndo(b, windows, lastUndo); !st.OK() {
				return result, st
			}
			b.Point = lastUndo.start
			lastUndo = nil
			result.Replaced--
			continue
		case QueryBackref:
			continue
		case QueryHelp:
			// Re-prompt for the same match: a scan from its start finds it again.
			b.Point = m.Start
			continue
		case QueryReplaceRest:
			replaceAll = true
			fallthrough
		case QueryReplaceAndStop, QueryReplaceMatch:
			groups := m.Groups
			expanded, est := Expand(repl, b, groups)
			if !est.OK() {
				return result, est
			}
			b.Point = m.Start
			if dst := DeleteChars(b, windows, nil, len(matchedText), DeleteOnly); !dst.OK() && dst.Code != NotFound {
				return result, dst
			}
			if ist := InsertString(b, windows, expanded); !ist.OK() {
				return result, ist
			}
			// D-1: a match that hit end-of-buffer with no trailing newline
			// on the final line, replaced by text ending in "\n", leaves
			// one spurious trailing newline that the original deletes
			// (replace.c/edit.c's lasthiteob special case).
			if m.LastHitEOB && strings.HasSuffix(expanded, "\n") {
				if dst := DeleteChars(b, windows, nil, -1, DeleteOnly); !dst.OK() && dst.Code != NotFound {
					return result, dst
				}
			}
			lastUndo = &undoRecord{start: m.Start, newEnd: b.Point, original: matchedText}
			result.Replaced++
			if action == QueryReplaceAndStop {
				return result, Ok
			}
			if m.Start == b.Point {
				if !movePointForward(b) {
					return result, Ok
				}
			}
		}
		if !global {
			break
		}
	}
	return result, Ok
}

func revertUndo(b *Buffer, windows []*Window, u *undoRecord) Status {
	b.Point = u.start
	replacedLen, st := b.offsetBetween(u.start, u.newEnd)
	if st != Success {
		return Fatal("cannot compute replaced span length")
	}
	if dst := DeleteChars(b, windows, nil, replacedLen, DeleteOnly); !dst.OK() && dst.Code != NotFound {
		return dst
	}
	b.Point = u.start
	return InsertString(b, windows, string(u.original))
}

// helpText returns the §4.G key-help text shown on "?".
func helpText() string {
	return "y/space replace, n skip, Y replace and stop, ! replace rest, u undo, q/ESC quit, . back, ? help"
}
