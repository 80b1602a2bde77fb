package humgrid

import (
	"fmt"
	"sort"
	"strings"
)

// RowKind classifies a line of input.
type RowKind uint8

const (
	RowData RowKind = iota
	RowManipulator
	RowGlobalComment
	RowReference
	RowLocalComment
	RowBarline
)

// String returns the kind name.
func (k RowKind) String() string {
	switch k {
	case RowData:
		return "data"
	case RowManipulator:
		return "manipulator"
	case RowGlobalComment:
		return "global-comment"
	case RowReference:
		return "reference"
	case RowLocalComment:
		return "local-comment"
	case RowBarline:
		return "barline"
	default:
		return "unknown"
	}
}

// Spined reports whether rows of this kind carry one slot per active
// spine. Global comments and reference records span the whole line.
func (k RowKind) Spined() bool {
	switch k {
	case RowGlobalComment, RowReference:
		return false
	default:
		return true
	}
}

// NullToken is the reserved placeholder meaning "no new event this row
// for this spine". It is preserved verbatim and never resolved here.
const NullToken = "."

// Token is one raw field of a row. For data rows the parser also
// records the subtoken decomposition produced by the spine's cell
// codec (embedded spaces separate co-occurring events, e.g. chord
// members).
type Token struct {
	Text string
	subs []string
}

// IsNull reports whether this is the null placeholder token.
func (t Token) IsNull() bool {
	return t.Text == NullToken
}

// IsLocalComment reports whether the token is a local comment
// (single leading "!").
func (t Token) IsLocalComment() bool {
	return strings.HasPrefix(t.Text, "!") && !strings.HasPrefix(t.Text, "!!")
}

// Subtokens returns the ordered subtoken decomposition of a data
// token, or nil for null tokens and non-data rows.
func (t Token) Subtokens() []string {
	return t.subs
}

func (t Token) String() string {
	return t.Text
}

// SpineState is the lifecycle state of a spine.
type SpineState uint8

const (
	// SpinePending means the spine exists but has not yet declared
	// its exclusive interpretation.
	SpinePending SpineState = iota
	SpineActive
	SpineTerminated
)

// String returns the state name.
func (s SpineState) String() string {
	switch s {
	case SpinePending:
		return "pending"
	case SpineActive:
		return "active"
	case SpineTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Spine is one logical column of the grid. Track is stable for the
// spine's entire lineage across splits and merges; Subtrack
// distinguishes siblings created by a split (0 when the track has a
// single spine, 1..n otherwise) and is recomputed at every
// split/merge boundary.
type Spine struct {
	Track    int
	Subtrack int
	lineage  string // e.g. "(1)a"; debugging label only
	typ      string
	state    SpineState
}

// Type returns the spine's exclusive interpretation, or "" while the
// spine is pending.
func (s *Spine) Type() string { return s.typ }

// State returns the spine's lifecycle state.
func (s *Spine) State() SpineState { return s.state }

// Lineage returns the split/merge lineage label (e.g. "((1)a)b").
func (s *Spine) Lineage() string { return s.lineage }

func (s *Spine) String() string {
	if s.Subtrack == 0 {
		return fmt.Sprintf("%d", s.Track)
	}
	return fmt.Sprintf("%d.%d", s.Track, s.Subtrack)
}

// meta snapshots a spine's identity for a Row layout.
func (s *Spine) meta() SpineMeta {
	return SpineMeta{Track: s.Track, Subtrack: s.Subtrack, Type: s.typ}
}

// SpineMeta is an immutable snapshot of a spine's identity and type,
// used in Row layouts and by the export-side topology diff.
type SpineMeta struct {
	Track    int
	Subtrack int
	Type     string
}

func (m SpineMeta) String() string {
	if m.Subtrack == 0 {
		return fmt.Sprintf("%d:%s", m.Track, m.Type)
	}
	return fmt.Sprintf("%d.%d:%s", m.Track, m.Subtrack, m.Type)
}

// Layout is the ordered active-spine list at one row.
type Layout []SpineMeta

// Equal reports whether two layouts have identical spines in
// identical order.
func (l Layout) Equal(o Layout) bool {
	if len(l) != len(o) {
		return false
	}
	for i := range l {
		if l[i] != o[i] {
			return false
		}
	}
	return true
}

// Tracks returns the distinct track numbers in layout order.
func (l Layout) Tracks() []int {
	var out []int
	seen := make(map[int]bool)
	for _, m := range l {
		if !seen[m.Track] {
			seen[m.Track] = true
			out = append(out, m.Track)
		}
	}
	return out
}

// Cell pairs a token with the spine it belongs to on one row.
type Cell struct {
	Spine SpineMeta
	Token Token
}

// Row is one classified line of the document. For spined kinds,
// Tokens and Layout are parallel: Tokens[i] sits on spine Layout[i],
// aligned to the spine list active when the line was read. Text is
// the original line, kept so unspined rows re-emit byte-exactly.
type Row struct {
	Number int // 1-based line number
	Kind   RowKind
	Text   string
	Tokens []Token
	Layout Layout
}

// Cells returns (spine, token) pairs for a spined row, or nil for
// global comments and reference records.
func (r *Row) Cells() []Cell {
	if !r.Kind.Spined() || len(r.Layout) != len(r.Tokens) {
		return nil
	}
	cells := make([]Cell, len(r.Tokens))
	for i := range r.Tokens {
		cells[i] = Cell{Spine: r.Layout[i], Token: r.Tokens[i]}
	}
	return cells
}

// Lifespan is the half-open row range [Start, End) during which a
// track had at least one live spine, together with the track's
// exclusive interpretation. End is len(grid rows) relative, using
// 0-based row indexes.
type Lifespan struct {
	Track int
	Type  string
	Start int
	End   int
}

// Grid is the canonical two-dimensional representation of one
// document. A Grid is built by a single parse session, owns its rows
// and spines, and is discarded after conversion.
type Grid struct {
	rows  []*Row
	refs  []Reference
	spans map[int]*Lifespan
}

// RowCount returns the number of rows.
func (g *Grid) RowCount() int { return len(g.rows) }

// Row returns the i-th row (0-based).
func (g *Grid) Row(i int) *Row { return g.rows[i] }

// Rows returns all rows in order.
func (g *Grid) Rows() []*Row { return g.rows }

// DataRowCount returns the number of data rows.
func (g *Grid) DataRowCount() int {
	n := 0
	for _, r := range g.rows {
		if r.Kind == RowData {
			n++
		}
	}
	return n
}

// References returns all reference-record triples in document order.
func (g *Grid) References() []Reference { return g.refs }

// ReferencesByCode returns the reference records with the given code.
func (g *Grid) ReferencesByCode(code string) []Reference {
	var out []Reference
	for _, ref := range g.refs {
		if ref.Code == code {
			out = append(out, ref)
		}
	}
	return out
}

// Lifespan returns the row range during which the given track was
// live, and whether the track exists.
func (g *Grid) Lifespan(track int) (Lifespan, bool) {
	span, ok := g.spans[track]
	if !ok {
		return Lifespan{}, false
	}
	return *span, true
}

// Tracks returns all track numbers in ascending order.
func (g *Grid) Tracks() []int {
	out := make([]int, 0, len(g.spans))
	for track := range g.spans {
		out = append(out, track)
	}
	sort.Ints(out)
	return out
}

func (g *Grid) addRow(r *Row) {
	g.rows = append(g.rows, r)
}
