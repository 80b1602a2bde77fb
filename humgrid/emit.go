package humgrid

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Writer serializes the export direction: a semantic exporter streams
// per-row (kind, target layout, tokens) triples and the Writer derives
// the manipulator rows between layout changes, emits the header, and
// closes every spine with *- on Finish.
//
// The Writer self-validates every row against the current layout
// before emitting and refuses to emit an inconsistent one: export-side
// violations are always fatal.
//
// Per-session export state (which tracks have declared their type, row
// counts) lives in a side table owned by the Writer and discarded at
// Finish; shared domain objects are never mutated.
type Writer struct {
	buf      bytes.Buffer
	layout   Layout
	registry *Registry
	state    map[int]*trackExportState
	id       string
	rowCount int
	started  bool
	finished bool
}

// trackExportState is the per-track entry of the export side table.
type trackExportState struct {
	declared bool
	dataRows int
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriterRegistry sets the cell-codec registry used by WriteCells
// to reassemble subtokens. Defaults to a passthrough-only registry.
func WithWriterRegistry(r *Registry) WriterOption {
	return func(w *Writer) { w.registry = r }
}

// NewWriter creates a Writer for one export session.
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{
		registry: NewRegistry(),
		state:    make(map[int]*trackExportState),
		id:       uuid.NewString(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SessionID returns the export session identifier.
func (w *Writer) SessionID() string { return w.id }

// RowCount returns the number of rows emitted so far, manipulator
// rows included.
func (w *Writer) RowCount() int { return w.rowCount }

// DataRows returns how many data rows have carried the given track in
// this session. Valid until Finish discards the session state.
func (w *Writer) DataRows(track int) int {
	if st := w.state[track]; st != nil {
		return st.dataRows
	}
	return 0
}

// WriteComment emits a global comment line. Legal at any point,
// including before the header and after Finish-pending terminators.
func (w *Writer) WriteComment(text string) error {
	if w.finished {
		return &ExportError{Message: "write after Finish"}
	}
	if !strings.HasPrefix(text, "!!") {
		return &ExportError{Row: w.rowCount + 1, Message: "global comment must start with !!"}
	}
	w.writeLine(text)
	return nil
}

// WriteReference emits a reference record from a metadata triple.
func (w *Writer) WriteReference(ref Reference) error {
	if w.finished {
		return &ExportError{Message: "write after Finish"}
	}
	if ref.Code == "" || strings.ContainsAny(ref.Code, " \t:") {
		return &ExportError{Row: w.rowCount + 1, Message: fmt.Sprintf("invalid reference code %q", ref.Code)}
	}
	code := ref.Code
	if ref.Lang != "" {
		if ref.Primary {
			code += "@@" + ref.Lang
		} else {
			code += "@" + ref.Lang
		}
	}
	w.writeLine("!!!" + code + ": " + ref.Value)
	return nil
}

// WriteRow emits one spined row. When target differs from the current
// layout, the minimal manipulator rows are derived and emitted first.
// tokens must align one-to-one with target.
func (w *Writer) WriteRow(kind RowKind, target Layout, tokens []string) error {
	if err := w.reconcile(target); err != nil {
		return err
	}
	if len(tokens) != len(w.layout) {
		return &ExportError{
			Row:     w.rowCount + 1,
			Message: fmt.Sprintf("%d tokens for %d spines", len(tokens), len(w.layout)),
		}
	}
	if err := w.checkRow(kind, tokens); err != nil {
		return err
	}
	if kind == RowData {
		for _, m := range w.layout {
			w.state[m.Track].dataRows++
		}
	}
	w.writeLine(strings.Join(tokens, "\t"))
	return nil
}

// WriteCells emits one data row from per-spine subtoken lists,
// reassembled through each spine type's cell codec.
func (w *Writer) WriteCells(target Layout, cells [][]string) error {
	if err := w.reconcile(target); err != nil {
		return err
	}
	if len(cells) != len(w.layout) {
		return &ExportError{
			Row:     w.rowCount + 1,
			Message: fmt.Sprintf("%d cells for %d spines", len(cells), len(w.layout)),
		}
	}
	tokens := make([]string, len(cells))
	for i, subs := range cells {
		if len(subs) == 0 {
			tokens[i] = NullToken
			continue
		}
		codec := w.registry.Resolve(w.layout[i].Type)
		text, err := codec.Emit(subs)
		if err != nil {
			return &ExportError{
				Row:     w.rowCount + 1,
				Message: fmt.Sprintf("field %d (**%s): %v", i+1, w.layout[i].Type, err),
			}
		}
		if text == "" {
			text = NullToken
		}
		tokens[i] = text
	}
	return w.WriteRow(RowData, w.layout, tokens)
}

// Finish terminates all open spines and returns the document text.
func (w *Writer) Finish() (string, error) {
	if w.finished {
		return w.buf.String(), nil
	}
	if w.started && len(w.layout) > 0 {
		w.writeLine(strings.Join(terminatorRow(len(w.layout)), "\t"))
		w.layout = nil
	}
	w.finished = true
	w.state = nil // side table dies with the session
	return w.buf.String(), nil
}

// reconcile emits the header and any manipulator rows needed to move
// the current layout to target.
func (w *Writer) reconcile(target Layout) error {
	if w.finished {
		return &ExportError{Message: "write after Finish"}
	}
	if len(target) == 0 {
		return &ExportError{Row: w.rowCount + 1, Message: "empty target layout"}
	}
	for i, m := range target {
		if m.Type == "" {
			return &ExportError{
				Row:     w.rowCount + 1,
				Message: fmt.Sprintf("spine %d has no exclusive interpretation", i+1),
			}
		}
	}

	goal := normalizeSubtracks(target)
	if !w.started {
		// The header declares each track exactly once; a first layout
		// that already carries split siblings gets them from *^ rows
		// below, so re-importing the document reassembles the same
		// track partition instead of one track per spine.
		base := make(Layout, 0, len(goal))
		seen := make(map[int]bool, len(goal))
		for _, m := range goal {
			if seen[m.Track] {
				continue
			}
			seen[m.Track] = true
			base = append(base, SpineMeta{Track: m.Track, Type: m.Type})
		}
		header := make([]string, len(base))
		for i, m := range base {
			header[i] = "**" + m.Type
		}
		w.writeLine(strings.Join(header, "\t"))
		w.layout = normalizeSubtracks(base)
		w.started = true
		w.markDeclared(base)
	}
	if w.layout.Equal(goal) {
		return nil
	}

	rows, err := DiffLayouts(w.layout, goal)
	if err != nil {
		if ee, ok := err.(*ExportError); ok && ee.Row == 0 {
			ee.Row = w.rowCount + 1
		}
		return err
	}
	for _, row := range rows {
		w.writeLine(manipulatorRowText(row))
	}
	w.layout = goal
	w.markDeclared(goal)
	return nil
}

func (w *Writer) markDeclared(l Layout) {
	for _, m := range l {
		if w.state[m.Track] == nil {
			w.state[m.Track] = &trackExportState{}
		}
		w.state[m.Track].declared = true
	}
}

// checkRow enforces the per-kind token grammar before emission.
func (w *Writer) checkRow(kind RowKind, tokens []string) error {
	fail := func(i int, msg string) error {
		return &ExportError{Row: w.rowCount + 1, Message: fmt.Sprintf("field %d: %s", i+1, msg)}
	}
	switch kind {
	case RowData:
		for i, tok := range tokens {
			if tok == "" {
				return fail(i, "empty data token")
			}
			if strings.ContainsAny(tok, "\t\n") {
				return fail(i, "token contains separator")
			}
		}
	case RowBarline:
		for i, tok := range tokens {
			if !strings.HasPrefix(tok, "=") && !(strings.HasPrefix(tok, "!") && !strings.HasPrefix(tok, "!!")) {
				return fail(i, fmt.Sprintf("non-barline token %q", tok))
			}
		}
	case RowLocalComment:
		for i, tok := range tokens {
			if tok != NullToken && !(strings.HasPrefix(tok, "!") && !strings.HasPrefix(tok, "!!")) {
				return fail(i, fmt.Sprintf("non-comment token %q", tok))
			}
		}
	case RowManipulator:
		// Only tandem interpretations may be written directly; the
		// Writer owns all structural manipulators.
		for i, tok := range tokens {
			if !strings.HasPrefix(tok, "*") {
				return fail(i, fmt.Sprintf("non-interpretation token %q", tok))
			}
			if isStructuralToken(tok) {
				return fail(i, fmt.Sprintf("structural manipulator %q not allowed; change the target layout instead", tok))
			}
		}
	default:
		return &ExportError{
			Row:     w.rowCount + 1,
			Message: "unspined kind " + kind.String() + " passed to WriteRow",
		}
	}
	return nil
}

func (w *Writer) writeLine(text string) {
	w.buf.WriteString(text)
	w.buf.WriteByte('\n')
	w.rowCount++
}

// SerializeGrid re-emits a parsed Grid as text. Spined rows are
// rebuilt from their tokens (so permissive-mode repairs are reflected)
// and unspined rows re-emit their original text. The row stream is
// replayed through a fresh topology tracker before emission; any
// inconsistency is an ExportError and nothing is returned.
func SerializeGrid(g *Grid) (string, error) {
	var buf bytes.Buffer
	// Permissive replay: a repaired Grid re-emits its repaired rows.
	// Slot-count violations still refuse to emit.
	replay := newTracker(NewResolver(), true, newResult())
	seenHeader := false
	done := false

	for i, row := range g.Rows() {
		if !row.Kind.Spined() {
			buf.WriteString(row.Text)
			buf.WriteByte('\n')
			continue
		}

		tokens := make([]string, len(row.Tokens))
		for j, tok := range row.Tokens {
			tokens[j] = tok.Text
		}
		text := strings.Join(tokens, "\t")

		if done {
			if row.Kind == RowManipulator && allExclusive(tokens) {
				// Next document in a multi-document grid stream.
				replay = newTracker(NewResolver(), true, newResult())
				seenHeader = false
				done = false
			} else {
				return "", &ExportError{Row: i + 1, Message: "spined row after all spines terminated"}
			}
		}

		if !seenHeader {
			if err := replay.start(tokens, row.Number, i); err != nil {
				return "", &ExportError{Row: i + 1, Message: err.Error()}
			}
			seenHeader = true
			buf.WriteString(text)
			buf.WriteByte('\n')
			continue
		}

		if len(tokens) != replay.count() {
			return "", &ExportError{
				Row:     i + 1,
				Message: fmt.Sprintf("%d fields for %d active spines", len(tokens), replay.count()),
			}
		}
		if row.Kind == RowManipulator {
			if err := replay.apply(tokens, row.Number, i); err != nil {
				return "", &ExportError{Row: i + 1, Message: err.Error()}
			}
			if replay.count() == 0 {
				done = true
			}
		}
		buf.WriteString(text)
		buf.WriteByte('\n')
	}

	if seenHeader && !done {
		return "", &ExportError{Message: "grid ends with unterminated spines"}
	}
	return buf.String(), nil
}
