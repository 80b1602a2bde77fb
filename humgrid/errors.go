package humgrid

import (
	"fmt"
	"strings"
)

// All surfaced errors carry a 1-based line number and, where one is
// implicated, the track/subtrack of the offending spine. Subtrack 0
// means "the sole spine of the track" (or track-level context).

// StructuralError reports a malformed line shape: a slot count or
// token form that cannot be aligned with any spine interpretation.
type StructuralError struct {
	Line    int
	Message string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// SpineConsistencyError reports an illegal manipulator: a mismatched
// or odd merge group, a lone exchange marker, a re-declared type, or
// a declaration on a spine that was not prepared with *+.
type SpineConsistencyError struct {
	Line     int
	Track    int
	Subtrack int
	Message  string
}

func (e *SpineConsistencyError) Error() string {
	return fmt.Sprintf("line %d: spine %s: %s", e.Line, spineRef(e.Track, e.Subtrack), e.Message)
}

// UnresolvedSpineError reports a data row referencing a spine whose
// exclusive interpretation has not been declared yet.
type UnresolvedSpineError struct {
	Line     int
	Track    int
	Subtrack int
}

func (e *UnresolvedSpineError) Error() string {
	return fmt.Sprintf("line %d: spine %s: data before exclusive interpretation",
		e.Line, spineRef(e.Track, e.Subtrack))
}

// GridConsistencyError reports a row whose slot count does not match
// the active spine count.
type GridConsistencyError struct {
	Line int
	Want int // active spine count
	Got  int // slot count on the row
}

func (e *GridConsistencyError) Error() string {
	return fmt.Sprintf("line %d: expected %d fields, found %d", e.Line, e.Want, e.Got)
}

// TerminationError reports spines that reach end of input without a
// *- terminator, or (Premature) a terminator on a spine that never
// became active.
type TerminationError struct {
	Line      int
	Tracks    []int
	Premature bool
}

func (e *TerminationError) Error() string {
	refs := make([]string, len(e.Tracks))
	for i, t := range e.Tracks {
		refs[i] = fmt.Sprintf("%d", t)
	}
	if e.Premature {
		return fmt.Sprintf("line %d: terminator on pending spine track(s) %s",
			e.Line, strings.Join(refs, ", "))
	}
	return fmt.Sprintf("line %d: unterminated spine track(s) %s", e.Line, strings.Join(refs, ", "))
}

// ExportError reports an export-side invariant violation. These are
// always fatal: the serializer never emits an inconsistent document.
type ExportError struct {
	Row     int // 1-based output row, 0 if not row-specific
	Message string
}

func (e *ExportError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("export row %d: %s", e.Row, e.Message)
	}
	return "export: " + e.Message
}

func spineRef(track, subtrack int) string {
	if subtrack == 0 {
		return fmt.Sprintf("%d", track)
	}
	return fmt.Sprintf("%d.%d", track, subtrack)
}
