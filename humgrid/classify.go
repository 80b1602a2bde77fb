package humgrid

import "strings"

// Classify tags a line by kind. It is a pure one-pass function with
// no state: the topology-dependent checks (slot counts, all-star
// manipulator rows, barline mirroring) belong to the parser.
func Classify(line string) RowKind {
	switch {
	case line == "":
		// Blank lines carry no spines; treat like global comments
		// so they survive round-tripping.
		return RowGlobalComment
	case strings.HasPrefix(line, "!!!"):
		if isReferenceLine(line) {
			return RowReference
		}
		return RowGlobalComment
	case strings.HasPrefix(line, "!!"):
		return RowGlobalComment
	case strings.HasPrefix(line, "!"):
		return RowLocalComment
	case strings.HasPrefix(line, "="):
		return RowBarline
	case strings.HasPrefix(line, "*"):
		return RowManipulator
	default:
		return RowData
	}
}

// splitFields splits a line into its tab-separated slots.
func splitFields(line string) []string {
	return strings.Split(line, "\t")
}

// Structural manipulator tokens.
const (
	tokSplit     = "*^"
	tokMerge     = "*v"
	tokTerminate = "*-"
	tokAdd       = "*+"
	tokExchange  = "*x"
	tokNoop      = "*"
)

func isExclusiveToken(tok string) bool {
	return strings.HasPrefix(tok, "**") && len(tok) > 2
}

// isStructuralToken reports whether the token changes spine topology.
// Everything else on a manipulator row (bare * and tandem
// interpretations like *M4/4) passes spines through unchanged.
func isStructuralToken(tok string) bool {
	switch tok {
	case tokSplit, tokMerge, tokTerminate, tokAdd, tokExchange:
		return true
	}
	return isExclusiveToken(tok)
}

// exclusiveName returns the type name of a ** declaration token.
func exclusiveName(tok string) string {
	return strings.TrimPrefix(tok, "**")
}
