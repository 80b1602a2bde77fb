package humgrid

import "strconv"

// tracker is the spine topology state machine. It owns the ordered
// active-spine list and advances it one manipulator row at a time,
// scanning tokens left to right the same way the import and export
// sides both must so that their topology decisions agree.
type tracker struct {
	active     []*Spine
	nextTrack  int
	resolver   *Resolver
	permissive bool
	result     *Result
	spans      map[int]*Lifespan
}

func newTracker(resolver *Resolver, permissive bool, result *Result) *tracker {
	return &tracker{
		nextTrack:  1,
		resolver:   resolver,
		permissive: permissive,
		result:     result,
		spans:      make(map[int]*Lifespan),
	}
}

func (t *tracker) count() int { return len(t.active) }

func (t *tracker) layout() Layout {
	out := make(Layout, len(t.active))
	for i, sp := range t.active {
		out[i] = sp.meta()
	}
	return out
}

// start processes the document's first spined row, which must consist
// entirely of exclusive interpretations.
func (t *tracker) start(tokens []string, line, rowIndex int) error {
	for i, tok := range tokens {
		if !isExclusiveToken(tok) {
			return &StructuralError{
				Line:    line,
				Message: "expected exclusive interpretation in field " + strconv.Itoa(i+1) + ", found " + strconv.Quote(tok),
			}
		}
	}
	for i, tok := range tokens {
		track := i + 1
		sp := &Spine{
			Track:   track,
			lineage: strconv.Itoa(track),
			typ:     exclusiveName(tok),
			state:   SpineActive,
		}
		if err := t.resolver.Declare(track, 0, sp.typ, line); err != nil {
			return err
		}
		t.active = append(t.active, sp)
		t.spans[track] = &Lifespan{Track: track, Type: sp.typ, Start: rowIndex, End: rowIndex + 1}
	}
	t.nextTrack = len(tokens) + 1
	t.recomputeSubtracks()
	return nil
}

// apply processes one manipulator row against the current active
// list. Tokens align positionally with active spines; the caller has
// already verified the counts match.
func (t *tracker) apply(tokens []string, line, rowIndex int) error {
	newActive := make([]*Spine, 0, len(t.active))
	mergeCount := 0
	skipOne := false

	for i, tok := range tokens {
		if skipOne {
			skipOne = false
			continue
		}

		if mergeCount > 0 && tok == tokMerge {
			mergeCount++
			if i != len(tokens)-1 {
				continue
			}
			// Group runs to end of line; fall through to close it.
		}

		if mergeCount > 0 && (tok != tokMerge || i == len(tokens)-1) {
			start := i - mergeCount
			if tok == tokMerge {
				start++
			}
			if err := t.closeMergeGroup(&newActive, start, mergeCount, line); err != nil {
				return err
			}
			mergeCount = 0
			if tok == tokMerge {
				continue
			}
		}

		sp := t.active[i]
		switch {
		case tok == tokMerge:
			mergeCount = 1

		case tok == tokSplit:
			a := &Spine{Track: sp.Track, lineage: "(" + sp.lineage + ")a", typ: sp.typ, state: sp.state}
			b := &Spine{Track: sp.Track, lineage: "(" + sp.lineage + ")b", typ: sp.typ, state: sp.state}
			newActive = append(newActive, a, b)

		case tok == tokTerminate:
			if sp.state == SpinePending {
				return &TerminationError{Line: line, Tracks: []int{sp.Track}, Premature: true}
			}
			sp.state = SpineTerminated
			if span := t.spans[sp.Track]; span != nil && span.End < rowIndex+1 {
				span.End = rowIndex + 1
			}

		case tok == tokAdd:
			newActive = append(newActive, sp)
			track := t.nextTrack
			t.nextTrack++
			added := &Spine{Track: track, lineage: strconv.Itoa(track), state: SpinePending}
			newActive = append(newActive, added)
			t.spans[track] = &Lifespan{Track: track, Start: rowIndex + 1, End: rowIndex + 1}

		case tok == tokExchange:
			if i+1 >= len(tokens) || tokens[i+1] != tokExchange {
				return &SpineConsistencyError{
					Line: line, Track: sp.Track, Subtrack: sp.Subtrack,
					Message: "single spine exchange indicator *x",
				}
			}
			newActive = append(newActive, t.active[i+1], sp)
			skipOne = true

		case isExclusiveToken(tok):
			if sp.state != SpinePending {
				return &SpineConsistencyError{
					Line: line, Track: sp.Track, Subtrack: sp.Subtrack,
					Message: "exclusive interpretation with no preparation",
				}
			}
			sp.typ = exclusiveName(tok)
			if err := t.resolver.Declare(sp.Track, sp.Subtrack, sp.typ, line); err != nil {
				return err
			}
			sp.state = SpineActive
			if span := t.spans[sp.Track]; span != nil {
				span.Type = sp.typ
			}
			newActive = append(newActive, sp)

		default:
			// Bare * placeholder or tandem interpretation: the spine
			// passes through unchanged.
			newActive = append(newActive, sp)
		}
	}

	if mergeCount > 0 {
		// A *v opened the group at the very last token.
		if err := t.closeMergeGroup(&newActive, len(tokens)-mergeCount, mergeCount, line); err != nil {
			return err
		}
	}

	t.active = newActive
	t.recomputeSubtracks()
	t.extendSpans(rowIndex)
	return nil
}

// closeMergeGroup resolves an adjacent run of *v tokens covering
// active[start : start+count]. A legal merge is exactly two adjacent
// spines of the same track and type; permissive mode repairs lone,
// mismatched, and oversize groups with diagnostics.
func (t *tracker) closeMergeGroup(newActive *[]*Spine, start, count, line int) error {
	group := t.active[start : start+count]

	if count == 1 {
		sp := group[0]
		if !t.permissive {
			return &SpineConsistencyError{
				Line: line, Track: sp.Track, Subtrack: sp.Subtrack,
				Message: "single spine merge indicator *v",
			}
		}
		t.result.diag(Diagnostic{
			Code: DiagLoneMerge, Line: line, Track: sp.Track, Subtrack: sp.Subtrack,
			Message: "lone *v treated as placeholder",
		})
		*newActive = append(*newActive, sp)
		return nil
	}

	if count > 2 {
		if !t.permissive {
			sp := group[0]
			return &SpineConsistencyError{
				Line: line, Track: sp.Track, Subtrack: sp.Subtrack,
				Message: "merge group of " + strconv.Itoa(count) + " spines",
			}
		}
		t.result.diag(Diagnostic{
			Code: DiagOversizeMerge, Line: line, Track: group[0].Track, Subtrack: group[0].Subtrack,
			Message: "merge group of " + strconv.Itoa(count) + " spines merged pairwise",
		})
	}

	for i := 0; i < count; i += 2 {
		if i+1 >= count {
			// Odd leftover spine in a repaired oversize group.
			*newActive = append(*newActive, group[i])
			break
		}
		left, right := group[i], group[i+1]
		if left.Track != right.Track || left.typ != right.typ {
			if !t.permissive {
				return &SpineConsistencyError{
					Line: line, Track: right.Track, Subtrack: right.Subtrack,
					Message: "cannot merge **" + left.typ + " with **" + right.typ,
				}
			}
			t.result.diag(Diagnostic{
				Code: DiagMergeTypeMismatch, Line: line, Track: right.Track, Subtrack: right.Subtrack,
				Message: "mismatched merge pair passed through",
			})
			*newActive = append(*newActive, left, right)
			continue
		}
		*newActive = append(*newActive, &Spine{
			Track:   left.Track,
			lineage: mergedLineage(left.lineage, right.lineage),
			typ:     left.typ,
			state:   SpineActive,
		})
	}
	return nil
}

// mergedLineage simplifies "(X)a" + "(X)b" back to X, mirroring the
// split that produced the pair. Unrelated lineages concatenate.
func mergedLineage(a, b string) string {
	if len(a) > 3 && len(b) > 3 && a[:len(a)-1] == b[:len(b)-1] {
		return a[1 : len(a)-2]
	}
	return a + " " + b
}

// recomputeSubtracks renumbers subtracks after a topology change:
// 0 for a track's sole spine, 1..n for siblings in layout order.
func (t *tracker) recomputeSubtracks() {
	total := make(map[int]int)
	for _, sp := range t.active {
		total[sp.Track]++
	}
	seen := make(map[int]int)
	for _, sp := range t.active {
		if total[sp.Track] == 1 {
			sp.Subtrack = 0
			continue
		}
		seen[sp.Track]++
		sp.Subtrack = seen[sp.Track]
	}
}

// extendSpans advances the end row of every live track past rowIndex.
func (t *tracker) extendSpans(rowIndex int) {
	for _, sp := range t.active {
		if span := t.spans[sp.Track]; span != nil && span.End < rowIndex+1 {
			span.End = rowIndex + 1
		}
	}
}

// touch records that the current row still belongs to all live tracks.
func (t *tracker) touch(rowIndex int) {
	t.extendSpans(rowIndex)
}

// unterminated returns the tracks still alive, in layout order.
func (t *tracker) unterminated() []int {
	var tracks []int
	seen := make(map[int]bool)
	for _, sp := range t.active {
		if !seen[sp.Track] {
			seen[sp.Track] = true
			tracks = append(tracks, sp.Track)
		}
	}
	return tracks
}
