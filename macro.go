package memacs

import (
	"fmt"
	"strconv"
	"strings"
)

// Macro preprocessor and interpreter: §4.I. Grounded on
// memacs-8.2.0/src/exec.c: ppbuf's two-pass loop-block scan (an open-block
// stack closed by "endloop", where a single endloop pops every break/next
// record pushed since the innermost still-open while/until/loop, plus
// exactly one loop record) and execbuf's level-stack execution (if/elsif/
// else/endif nesting, loopcount against max_loop, break/next jump
// targets). Reproduced as two explicit passes rather than the C code's
// line-pointer records, since a LineID-keyed map is the natural Go
// equivalent of the original's in-place Line annotations.

// Directive is one of the macro-language's structural keywords (§4.I).
type Directive int

const (
	DirNone Directive = iota
	DirMacro
	DirEndMacro
	DirIf
	DirElsif
	DirElse
	DirEndif
	DirWhile
	DirUntil
	DirLoop
	DirBreak
	DirNext
	DirEndLoop
	DirReturn
	DirForce
)

var directiveKeywords = map[string]Directive{
	"macro":    DirMacro,
	"endmacro": DirEndMacro,
	"if":       DirIf,
	"elsif":    DirElsif,
	"else":     DirElse,
	"endif":    DirEndif,
	"while":    DirWhile,
	"until":    DirUntil,
	"loop":     DirLoop,
	"break":    DirBreak,
	"next":     DirNext,
	"endloop":  DirEndLoop,
	"return":   DirReturn,
	"force":    DirForce,
}

// MacroLine is one preprocessed source line (§4.I).
type MacroLine struct {
	Text      string
	Directive Directive
	Arg       string // text following the directive keyword, leading space trimmed
}

// dfind implements exec.c's directive lookup: the first whitespace-
// delimited word of a non-blank line, if it names a keyword.
func dfind(line string) (Directive, string) {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return DirNone, ""
	}
	i := 0
	for i < len(trimmed) && trimmed[i] != ' ' && trimmed[i] != '\t' {
		i++
	}
	word := trimmed[:i]
	d, ok := directiveKeywords[word]
	if !ok {
		return DirNone, ""
	}
	return d, strings.TrimLeft(trimmed[i:], " \t")
}

// loopBlock links a while/until/loop line to the endloop line that closes
// it, and to the mark line of its immediately enclosing loop (for
// multi-level "break N"), per ppbuf's lb_break chain.
type loopBlock struct {
	Mark, Jump int
	ParentMark int // -1 if no enclosing loop
}

// macroJumpTable is the compiled result of preprocessing one macro
// buffer's source (§4.I). Buffer has a macroTable field for it (BFPREPROC
// in the original), but Preprocess returns the table without storing it
// on any buffer, so each call preprocesses the source again.
type macroJumpTable struct {
	lines           []MacroLine
	blocks          map[int]*loopBlock // keyed by mark line
	breakNextOwner  map[int]int        // break/next line -> owning loop's mark line
}

type openEntry struct {
	isLoop        bool
	mark          int
	breakNextLine int
}

// Preprocess implements §4.I's two-pass scan (ppbuf): splits source into
// lines, classifies directives, and resolves every loop/break/next/endloop
// jump target. Returns a ScriptError naming the offending line on a
// structural mismatch (unmatched macro/endmacro, orphan break/next/
// endloop, or an unterminated loop block).
func Preprocess(source string) (*macroJumpTable, Status) {
	rawLines := strings.Split(source, "\n")
	table := &macroJumpTable{
		lines:          make([]MacroLine, len(rawLines)),
		blocks:         make(map[int]*loopBlock),
		breakNextOwner: make(map[int]int),
	}
	var open []openEntry
	macroDepth := 0

	for i, raw := range rawLines {
		d, arg := dfind(raw)
		table.lines[i] = MacroLine{Text: raw, Directive: d, Arg: arg}
		switch d {
		case DirMacro:
			macroDepth++
		case DirEndMacro:
			macroDepth--
			if macroDepth < 0 {
				return nil, ScriptFail(i+1, "Unmatched 'endmacro' directive")
			}
		case DirWhile, DirUntil, DirLoop:
			open = append(open, openEntry{isLoop: true, mark: i})
		case DirBreak, DirNext:
			if len(open) == 0 {
				return nil, ScriptFail(i+1, "'break' or 'next' outside of any loop block")
			}
			open = append(open, openEntry{isLoop: false, breakNextLine: i})
		case DirEndLoop:
			if len(open) == 0 {
				return nil, ScriptFail(i+1, "Unmatched 'endloop' directive")
			}
			var pending []int
			for {
				if len(open) == 0 {
					return nil, ScriptFail(i+1, "Unmatched 'endloop' directive")
				}
				top := open[len(open)-1]
				open = open[:len(open)-1]
				if !top.isLoop {
					pending = append(pending, top.breakNextLine)
					continue
				}
				blk := &loopBlock{Mark: top.mark, Jump: i, ParentMark: -1}
				for j := len(open) - 1; j >= 0; j-- {
					if open[j].isLoop {
						blk.ParentMark = open[j].mark
						break
					}
				}
				table.blocks[top.mark] = blk
				for _, ln := range pending {
					table.breakNextOwner[ln] = top.mark
				}
				break
			}
		}
	}
	if len(open) != 0 {
		return nil, ScriptFail(len(rawLines), "Unmatched 'loop' directive")
	}
	if macroDepth != 0 {
		return nil, ScriptFail(len(rawLines), "Unmatched 'macro' directive")
	}
	return table, Ok
}

// Value is a macro expression's result (§4.I "return [expr]": "set macro
// result to eval(expr) or nil"). Nil is a first-class result distinct
// from the empty string, matching a bare "return" with no expression.
type Value struct {
	Nil  bool
	Text string
}

// NilValue is the result of a bare "return" with no expression.
func NilValue() Value { return Value{Nil: true} }

// Env is the minimal expression-evaluation seam the interpreter needs
// (§4.I "expression-statement dispatch"): the expression/statement
// evaluator itself is a separate collaborator (e.g. a variable-and-
// function evaluator) that this package only calls through, never
// implements.
type Env interface {
	// EvalCondition evaluates a boolean expression from an if/elsif/
	// while/until/loop-count argument string.
	EvalCondition(expr string) (bool, Status)
	// EvalLoopCount evaluates a "loop" directive's repeat-count argument;
	// an empty argument means "loop forever until broken".
	EvalLoopCount(expr string) (count int, infinite bool, st Status)
	// EvalExpr evaluates a general expression, as used by "return expr".
	EvalExpr(expr string) (Value, Status)
	// ExecStatement runs one non-directive source line (an expression
	// statement or a command invocation).
	ExecStatement(line string) Status
}

// ifLevel is one entry of the if/elsif/else level stack (§4.I).
type ifLevel struct {
	taken    bool // some branch at this level has already run
	skipping bool // currently skipping (condition false, or already-taken)
}

// loopState tracks a loop's remaining iteration count (for "loop N") and
// its runaway-guard counter (against maxLoop).
type loopState struct {
	iterations int
	infinite   bool
	remaining  int
}

// Execute implements §4.I's execbuf: runs a preprocessed macro buffer's
// lines against env, honoring if/elsif/else/endif nesting, while/until/
// loop iteration with a max_loop runaway guard, break N / next jump
// targets, and 'force' (a statement prefix that discards its own
// failure). Returns the macro's result value (nil unless an explicit
// 'return expr' ran) paired with the status of the first failing
// statement, or Ok if the script ran to completion.
func Execute(table *macroJumpTable, env Env, maxLoop int) (Value, Status) {
	var ifLevels []ifLevel
	loops := make(map[int]*loopState)
	pc := 0
	force := false

	skipping := func() bool {
		for _, l := range ifLevels {
			if l.skipping {
				return true
			}
		}
		return false
	}

	for pc < len(table.lines) {
		line := table.lines[pc]
		switch line.Directive {
		case DirMacro:
			// A nested macro definition's body is skipped by the
			// enclosing execution: nothing from 'macro' through its
			// matching 'endmacro' runs. The body is not captured into a
			// buffer either.
			depth := 0
			for pc < len(table.lines) {
				switch table.lines[pc].Directive {
				case DirMacro:
					depth++
				case DirEndMacro:
					depth--
				}
				pc++
				if depth == 0 {
					break
				}
			}
			continue
		case DirEndMacro:
			pc++
			continue
		case DirIf:
			if skipping() {
				ifLevels = append(ifLevels, ifLevel{skipping: true})
				pc++
				continue
			}
			ok, st := env.EvalCondition(line.Arg)
			if !st.OK() {
				return Value{}, st
			}
			ifLevels = append(ifLevels, ifLevel{taken: ok, skipping: !ok})
			pc++
			continue
		case DirElsif:
			if len(ifLevels) == 0 {
				return Value{}, ScriptFail(pc+1, "'elsif' without matching 'if'")
			}
			top := &ifLevels[len(ifLevels)-1]
			if top.taken {
				top.skipping = true
				pc++
				continue
			}
			if parentSkipping(ifLevels[:len(ifLevels)-1]) {
				top.skipping = true
				pc++
				continue
			}
			ok, st := env.EvalCondition(line.Arg)
			if !st.OK() {
				return Value{}, st
			}
			top.taken = ok
			top.skipping = !ok
			pc++
			continue
		case DirElse:
			if len(ifLevels) == 0 {
				return Value{}, ScriptFail(pc+1, "'else' without matching 'if'")
			}
			top := &ifLevels[len(ifLevels)-1]
			if top.taken || parentSkipping(ifLevels[:len(ifLevels)-1]) {
				top.skipping = true
			} else {
				top.taken = true
				top.skipping = false
			}
			pc++
			continue
		case DirEndif:
			if len(ifLevels) == 0 {
				return Value{}, ScriptFail(pc+1, "'endif' without matching 'if'")
			}
			ifLevels = ifLevels[:len(ifLevels)-1]
			pc++
			continue
		case DirWhile, DirUntil, DirLoop:
			if skipping() {
				pc = table.blocks[pc].Jump + 1
				continue
			}
			st, ok := loops[pc]
			if !ok {
				st = &loopState{}
				loops[pc] = st
				if line.Directive == DirLoop {
					count, infinite, cst := env.EvalLoopCount(line.Arg)
					if !cst.OK() {
						return Value{}, cst
					}
					st.infinite, st.remaining = infinite, count
				}
			}
			cont, cerr := loopShouldContinue(line.Directive, line.Arg, st, env)
			if cerr != nil && !cerr.OK() {
				return Value{}, *cerr
			}
			if !cont {
				delete(loops, pc)
				pc = table.blocks[pc].Jump + 1
				continue
			}
			st.iterations++
			if maxLoop > 0 && st.iterations > maxLoop {
				return Value{}, Fatal("loop at line %d exceeded max_loop (%d)", pc+1, maxLoop)
			}
			pc++
			continue
		case DirBreak, DirNext:
			if skipping() {
				pc++
				continue
			}
			mark, ok := table.breakNextOwner[pc]
			if !ok {
				return Value{}, Fatal("break/next at line %d has no owning loop", pc+1)
			}
			if line.Directive == DirNext {
				pc = mark
				continue
			}
			level := 1
			if n, err := strconv.Atoi(strings.TrimSpace(line.Arg)); err == nil && n > 0 {
				level = n
			}
			blk := table.blocks[mark]
			for i := 1; i < level; i++ {
				if blk.ParentMark < 0 {
					return Value{}, ScriptFail(pc+1, "'break %d' exceeds loop nesting depth", level)
				}
				blk = table.blocks[blk.ParentMark]
			}
			delete(loops, blk.Mark)
			pc = blk.Jump + 1
			continue
		case DirEndLoop:
			mark := endloopMarkFor(table, pc)
			if mark < 0 {
				return Value{}, Fatal("endloop at line %d has no owning loop", pc+1)
			}
			if skipping() {
				pc++
				continue
			}
			pc = mark
			continue
		case DirReturn:
			if skipping() {
				pc++
				continue
			}
			if strings.TrimSpace(line.Arg) == "" {
				return NilValue(), Ok
			}
			val, st := env.EvalExpr(line.Arg)
			if !st.OK() {
				return Value{}, st
			}
			return val, Ok
		case DirForce:
			if strings.TrimSpace(line.Arg) == "" {
				// A bare 'force' applies to the next statement.
				force = true
			} else if !skipping() {
				// 'force stmt' runs stmt and discards its failure.
				env.ExecStatement(line.Arg)
			}
			pc++
			continue
		default:
			if skipping() {
				pc++
				continue
			}
			if strings.TrimSpace(line.Text) != "" {
				st := env.ExecStatement(line.Text)
				if !st.OK() && !force {
					return Value{}, st
				}
			}
			force = false
			pc++
			continue
		}
	}
	return NilValue(), Ok
}

func parentSkipping(levels []ifLevel) bool {
	for _, l := range levels {
		if l.skipping {
			return true
		}
	}
	return false
}

// loopShouldContinue evaluates whether a while/until/loop header should
// enter its body again.
func loopShouldContinue(d Directive, arg string, st *loopState, env Env) (bool, *Status) {
	switch d {
	case DirWhile:
		ok, cst := env.EvalCondition(arg)
		if !cst.OK() {
			return false, &cst
		}
		return ok, nil
	case DirUntil:
		ok, cst := env.EvalCondition(arg)
		if !cst.OK() {
			return false, &cst
		}
		return !ok, nil
	default: // DirLoop
		if st.infinite {
			return true, nil
		}
		if st.remaining <= 0 {
			return false, nil
		}
		st.remaining--
		return true, nil
	}
}

// endloopMarkFor finds the mark line of the loop this endloop line
// closes by reverse lookup over the block table.
func endloopMarkFor(table *macroJumpTable, endloopLine int) int {
	for mark, blk := range table.blocks {
		if blk.Jump == endloopLine {
			return mark
		}
	}
	return -1
}

// --- Macro-buffer header serialisation (§4.I, SPEC_FULL.md §4 item 5) ---

// MacroHeader is a macro buffer's first-line declaration: name, argument
// count (-1 for variadic), and the comment/prefix characters used to
// write it.
type MacroHeader struct {
	Name        string
	ArgCount    int // -1 == variadic
	CommentChar byte
	PrefixChar  byte
}

// macroSerialize renders a MacroHeader as the first line of a macro
// buffer: "<comment-char><macro-prefix-char><name>[,argct]".
func macroSerialize(h MacroHeader) string {
	var b strings.Builder
	b.WriteByte(h.CommentChar)
	b.WriteByte(h.PrefixChar)
	b.WriteString(h.Name)
	if h.ArgCount >= 0 {
		fmt.Fprintf(&b, ",%d", h.ArgCount)
	}
	return b.String()
}

// macroParseHeader parses a macro buffer's first line back into a
// MacroHeader, given the comment and prefix characters in force.
func macroParseHeader(line string, commentChar, prefixChar byte) (MacroHeader, Status) {
	if len(line) < 2 || line[0] != commentChar || line[1] != prefixChar {
		return MacroHeader{}, Fail("not a macro header line")
	}
	rest := line[2:]
	name, argPart, hasArg := strings.Cut(rest, ",")
	h := MacroHeader{Name: name, CommentChar: commentChar, PrefixChar: prefixChar, ArgCount: -1}
	if hasArg {
		n, err := strconv.Atoi(strings.TrimSpace(argPart))
		if err != nil {
			return MacroHeader{}, Fail("invalid argument count in macro header: %q", argPart)
		}
		h.ArgCount = n
	}
	return h, Ok
}
