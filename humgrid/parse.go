package humgrid

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Parser builds Grids from a line stream. A Parser is stateless
// between calls and may be reused; each call is one session with its
// own Result. Line acquisition is delegated to the supplied reader:
// the core never blocks on anything else.
type Parser struct {
	permissive bool
	registry   *Registry
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithPermissiveMode enables auto-repair of the recoverable error
// classes (lone/mismatched/oversize merges, short data rows). Each
// repair is recorded as a Diagnostic; unrecoverable classes stay
// fatal.
func WithPermissiveMode() ParserOption {
	return func(p *Parser) { p.permissive = true }
}

// WithRegistry sets the cell-codec registry used to decompose data
// tokens into subtokens. Defaults to a passthrough-only registry.
func WithRegistry(r *Registry) ParserOption {
	return func(p *Parser) { p.registry = r }
}

// NewParser creates a parser.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{registry: NewRegistry()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads exactly one document. On fatal errors the partial Grid
// is discarded and the returned Result carries the error context;
// the Result's diagnostics list is empty on clean input.
func (p *Parser) Parse(r io.Reader) (*Grid, *Result, error) {
	sc := newLineScanner(r)
	grid, result, more, err := p.parseDocument(sc)
	if err != nil {
		return nil, result, err
	}
	if more {
		line, n := sc.peek()
		err := result.fatal(&StructuralError{
			Line:    n,
			Message: "unexpected content after document termination: " + strings.SplitN(line, "\t", 2)[0],
		})
		return nil, result, err
	}
	return grid, result, nil
}

// ParseString parses a document held in a string.
func (p *Parser) ParseString(s string) (*Grid, *Result, error) {
	return p.Parse(strings.NewReader(s))
}

// ParseAll reads consecutive documents from one stream: a fresh
// document may begin (with its own exclusive interpretations) after
// the previous one terminates all spines. Results align with Grids;
// on a fatal error the grids parsed so far are returned along with
// the failing document's Result.
func (p *Parser) ParseAll(r io.Reader) ([]*Grid, []*Result, error) {
	sc := newLineScanner(r)
	var grids []*Grid
	var results []*Result
	for {
		grid, result, more, err := p.parseDocument(sc)
		if err != nil {
			return grids, append(results, result), err
		}
		if grid != nil && (grid.RowCount() > 0 || len(grids) == 0) {
			grids = append(grids, grid)
			results = append(results, result)
		}
		if !more {
			return grids, results, nil
		}
	}
}

// parseDocument consumes lines until the document's spines all
// terminate or input ends. It stops before the header of a following
// document; more is true when one is pending.
func (p *Parser) parseDocument(sc *lineScanner) (grid *Grid, result *Result, more bool, err error) {
	result = newResult()
	grid = &Grid{spans: make(map[int]*Lifespan)}
	resolver := NewResolver()
	track := newTracker(resolver, p.permissive, result)
	codecs := make(map[int]CellCodec)

	seenHeader := false
	done := false // all spines terminated
	lastLine := 0

	for sc.scan() {
		line, lineNo := sc.text(), sc.lineNumber()
		lastLine = lineNo
		rowIndex := grid.RowCount()
		kind := Classify(line)

		// Unspined rows are legal anywhere, including before the
		// header and after termination.
		if !kind.Spined() {
			row := &Row{Number: lineNo, Kind: kind, Text: line}
			if kind == RowReference {
				if ref, ok := parseReference(line, lineNo); ok {
					grid.refs = append(grid.refs, ref)
				}
			}
			grid.addRow(row)
			continue
		}

		tokens := splitFields(line)

		if done {
			if kind == RowManipulator && allExclusive(tokens) {
				// Header of the next document in the stream.
				sc.unread()
				grid.spans = track.spans
				return grid, result, true, nil
			}
			return nil, result, false, result.fatal(&StructuralError{
				Line:    lineNo,
				Message: "spined content after all spines terminated",
			})
		}

		if !seenHeader {
			if kind != RowManipulator {
				if kind == RowData {
					return nil, result, false, result.fatal(&UnresolvedSpineError{Line: lineNo})
				}
				return nil, result, false, result.fatal(&StructuralError{
					Line:    lineNo,
					Message: kind.String() + " row before exclusive interpretations",
				})
			}
			if err := track.start(tokens, lineNo, rowIndex); err != nil {
				return nil, result, false, result.fatal(err)
			}
			seenHeader = true
			grid.addRow(&Row{
				Number: lineNo,
				Kind:   RowManipulator,
				Text:   line,
				Tokens: rawTokens(tokens),
				Layout: track.layout(),
			})
			continue
		}

		// Invariant 1: slot count equals active spine count.
		if len(tokens) != track.count() {
			if p.permissive && kind == RowData && len(tokens) < track.count() {
				result.diag(Diagnostic{
					Code: DiagShortRow, Line: lineNo,
					Message: fmt.Sprintf("row padded from %d to %d fields", len(tokens), track.count()),
				})
				for len(tokens) < track.count() {
					tokens = append(tokens, NullToken)
				}
			} else {
				return nil, result, false, result.fatal(&GridConsistencyError{
					Line: lineNo, Want: track.count(), Got: len(tokens),
				})
			}
		}

		layout := track.layout()
		row := &Row{Number: lineNo, Kind: kind, Text: line, Layout: layout}

		switch kind {
		case RowManipulator:
			if err := checkAllStar(tokens, lineNo); err != nil {
				return nil, result, false, result.fatal(err)
			}
			row.Tokens = rawTokens(tokens)
			grid.addRow(row)
			if err := track.apply(tokens, lineNo, rowIndex); err != nil {
				return nil, result, false, result.fatal(err)
			}
			if track.count() == 0 {
				done = true
			}
			continue

		case RowBarline:
			if err := checkBarline(tokens, lineNo); err != nil {
				return nil, result, false, result.fatal(err)
			}
			row.Tokens = rawTokens(tokens)

		case RowLocalComment:
			if err := checkLocalComment(tokens, lineNo); err != nil {
				return nil, result, false, result.fatal(err)
			}
			row.Tokens = rawTokens(tokens)

		case RowData:
			toks, err := p.dataTokens(tokens, layout, resolver, codecs, lineNo)
			if err != nil {
				return nil, result, false, result.fatal(err)
			}
			row.Tokens = toks
		}

		grid.addRow(row)
		track.touch(rowIndex)
	}

	if err := sc.err(); err != nil {
		return nil, result, false, result.fatal(fmt.Errorf("read line %d: %w", lastLine+1, err))
	}

	if seenHeader && !done {
		return nil, result, false, result.fatal(&TerminationError{
			Line:   lastLine,
			Tracks: track.unterminated(),
		})
	}

	grid.spans = track.spans
	return grid, result, false, nil
}

// dataTokens pairs data fields with the active layout, resolving each
// spine's type and cell codec, and decomposing subtokens. Null tokens
// are preserved verbatim with no decomposition.
func (p *Parser) dataTokens(
	tokens []string,
	layout Layout,
	resolver *Resolver,
	codecs map[int]CellCodec,
	lineNo int,
) ([]Token, error) {
	out := make([]Token, len(tokens))
	for i, text := range tokens {
		meta := layout[i]
		if !resolver.Resolved(meta.Track) {
			return nil, &UnresolvedSpineError{Line: lineNo, Track: meta.Track, Subtrack: meta.Subtrack}
		}
		tok := Token{Text: text}
		if text != NullToken && !tok.IsLocalComment() {
			codec, ok := codecs[meta.Track]
			if !ok {
				codec = p.registry.Resolve(meta.Type)
				codecs[meta.Track] = codec
			}
			subs, err := codec.Parse(text)
			if err != nil {
				return nil, &StructuralError{
					Line:    lineNo,
					Message: fmt.Sprintf("field %d (**%s): %v", i+1, meta.Type, err),
				}
			}
			tok.subs = subs
		}
		out[i] = tok
	}
	return out, nil
}

func rawTokens(fields []string) []Token {
	out := make([]Token, len(fields))
	for i, f := range fields {
		out[i] = Token{Text: f}
	}
	return out
}

func allExclusive(tokens []string) bool {
	for _, tok := range tokens {
		if !isExclusiveToken(tok) {
			return false
		}
	}
	return len(tokens) > 0
}

func checkAllStar(tokens []string, lineNo int) error {
	for i, tok := range tokens {
		if !strings.HasPrefix(tok, "*") {
			return &StructuralError{
				Line:    lineNo,
				Message: fmt.Sprintf("manipulator row with non-interpretation field %d: %q", i+1, tok),
			}
		}
	}
	return nil
}

func checkBarline(tokens []string, lineNo int) error {
	for i, tok := range tokens {
		if strings.HasPrefix(tok, "=") {
			continue
		}
		if strings.HasPrefix(tok, "!") && !strings.HasPrefix(tok, "!!") {
			continue
		}
		return &StructuralError{
			Line:    lineNo,
			Message: fmt.Sprintf("barline row with non-barline field %d: %q", i+1, tok),
		}
	}
	return nil
}

func checkLocalComment(tokens []string, lineNo int) error {
	for i, tok := range tokens {
		if tok == NullToken {
			continue
		}
		if strings.HasPrefix(tok, "!") && !strings.HasPrefix(tok, "!!") {
			continue
		}
		return &StructuralError{
			Line:    lineNo,
			Message: fmt.Sprintf("local comment row with non-comment field %d: %q", i+1, tok),
		}
	}
	return nil
}

// lineScanner wraps bufio.Scanner with 1-based line numbers and a
// one-line pushback used at document boundaries.
type lineScanner struct {
	sc     *bufio.Scanner
	n      int
	cur    string
	pushed bool
}

func newLineScanner(r io.Reader) *lineScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &lineScanner{sc: sc}
}

func (s *lineScanner) scan() bool {
	if s.pushed {
		s.pushed = false
		return true
	}
	if !s.sc.Scan() {
		return false
	}
	s.n++
	s.cur = s.sc.Text()
	return true
}

func (s *lineScanner) text() string    { return s.cur }
func (s *lineScanner) lineNumber() int { return s.n }
func (s *lineScanner) err() error      { return s.sc.Err() }

// unread makes the current line available to the next scan call.
func (s *lineScanner) unread() { s.pushed = true }

// peek returns the pushed-back line without consuming it.
func (s *lineScanner) peek() (string, int) { return s.cur, s.n }
