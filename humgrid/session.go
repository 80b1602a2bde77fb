package humgrid

import (
	"fmt"

	"github.com/google/uuid"
)

// Status summarizes the outcome of one parse or export session.
type Status uint8

const (
	// StatusClean means no repair was needed.
	StatusClean Status = iota
	// StatusRepaired means recoverable problems were repaired; see
	// Result.Diagnostics for what happened.
	StatusRepaired
	// StatusFatal means the session aborted and the partial Grid
	// was discarded.
	StatusFatal
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusClean:
		return "clean"
	case StatusRepaired:
		return "repaired"
	case StatusFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// DiagCode identifies a class of repaired input.
type DiagCode string

const (
	// DiagLoneMerge: a single *v with no adjacent partner, passed
	// through as a no-op placeholder.
	DiagLoneMerge DiagCode = "lone_merge"
	// DiagMergeTypeMismatch: an adjacent *v pair whose spines carry
	// different exclusive types or tracks, passed through unmerged.
	DiagMergeTypeMismatch DiagCode = "merge_type_mismatch"
	// DiagOversizeMerge: a *v run longer than two, merged pairwise
	// left to right.
	DiagOversizeMerge DiagCode = "oversize_merge"
	// DiagShortRow: a data row with fewer fields than active spines,
	// padded with null tokens.
	DiagShortRow DiagCode = "short_row"
)

// Diagnostic records one repair made in permissive mode.
type Diagnostic struct {
	Code     DiagCode
	Line     int
	Track    int
	Subtrack int
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: [%s] %s", d.Line, d.Code, d.Message)
}

// Result is the per-session outcome returned to the caller alongside
// the Grid. Diagnostics is empty on clean input. Err holds the fatal
// error when Status is StatusFatal.
type Result struct {
	ID          string
	Status      Status
	Diagnostics []Diagnostic
	Err         error
}

func newResult() *Result {
	return &Result{ID: uuid.NewString(), Status: StatusClean}
}

func (r *Result) diag(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
	if r.Status == StatusClean {
		r.Status = StatusRepaired
	}
}

func (r *Result) fatal(err error) error {
	r.Status = StatusFatal
	r.Err = err
	return err
}
