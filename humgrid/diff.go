package humgrid

import "fmt"

// DiffLayouts derives the manipulator rows that transform current
// into target: exchange rows first when a shrinking track's spines
// are separated by other tracks (pairwise merges only reach adjacent
// pairs), then terminations and count changes (in as few combined
// rows as the pairwise split/merge rules allow), then *+ additions
// with their ** declaration row, then splits for added tracks whose
// target wants sibling structure, then *x exchange rows to fix
// ordering. Tie-breaks are leftmost-first, then lowest-track-first,
// matching the import side's left-to-right scan so a re-imported
// document makes the same topology decisions.
//
// Returns nil when the layouts already agree.
func DiffLayouts(current, target Layout) ([][]string, error) {
	work := normalizeSubtracks(current)
	goal := normalizeSubtracks(target)
	if work.Equal(goal) {
		return nil, nil
	}

	var rows [][]string
	bound := len(current) + len(target) + 2
	tgtCount := trackCounts(goal)

	// Phase 1: gather separated members of shrinking tracks so the
	// merge rows below have adjacent pairs to consume.
	if needsRegroup(work, tgtCount) {
		exRows, next, err := exchangeRows(work, groupedLayout(work))
		if err != nil {
			return nil, err
		}
		rows = append(rows, exRows...)
		work = next
	}

	// Phase 2: terminations, shrinks, grows.
	phase, work, err := countsPhase(work, tgtCount, bound)
	if err != nil {
		return nil, err
	}
	rows = append(rows, phase...)

	// Phase 3: additions and their declarations.
	addRows, next, err := additionRows(work, goal)
	if err != nil {
		return nil, err
	}
	rows = append(rows, addRows...)
	work = next

	// Phase 4: an added track enters with one spine; split it up to
	// the sibling count the target asks for.
	phase, work, err = countsPhase(work, tgtCount, bound)
	if err != nil {
		return nil, err
	}
	rows = append(rows, phase...)

	// Phase 5: exchange rows to match target order.
	exRows, next, err := exchangeRows(work, goal)
	if err != nil {
		return nil, err
	}
	rows = append(rows, exRows...)
	work = next

	if !layoutsEquivalent(work, goal) {
		return nil, &ExportError{
			Message: fmt.Sprintf("derived manipulators yield %v, want %v", work, goal),
		}
	}
	return rows, nil
}

// countsPhase loops countsRow until per-track spine counts stop
// changing. Loops because a single row can only halve or double a
// track group.
func countsPhase(work Layout, tgtCount map[int]int, bound int) ([][]string, Layout, error) {
	var rows [][]string
	for pass := 0; ; pass++ {
		if pass > bound {
			return nil, nil, &ExportError{Message: "layout diff did not converge"}
		}
		row, next, changed, err := countsRow(work, trackCounts(work), tgtCount)
		if err != nil {
			return nil, nil, err
		}
		if !changed {
			return rows, work, nil
		}
		rows = append(rows, row)
		work = next
	}
}

// needsRegroup reports whether a track that must shrink has spines
// separated by other tracks.
func needsRegroup(work Layout, tgt map[int]int) bool {
	cur := trackCounts(work)
	for track, c := range cur {
		if n, ok := tgt[track]; ok && n < c && !contiguousTrack(work, track) {
			return true
		}
	}
	return false
}

// contiguousTrack reports whether all spines of track form one
// unbroken run.
func contiguousTrack(l Layout, track int) bool {
	first, last, n := -1, -1, 0
	for i, m := range l {
		if m.Track == track {
			if first < 0 {
				first = i
			}
			last = i
			n++
		}
	}
	return last-first+1 == n
}

// groupedLayout reorders l so each track's spines are contiguous,
// keeping tracks in first-occurrence order.
func groupedLayout(l Layout) Layout {
	var order []int
	byTrack := make(map[int][]SpineMeta)
	for _, m := range l {
		if len(byTrack[m.Track]) == 0 {
			order = append(order, m.Track)
		}
		byTrack[m.Track] = append(byTrack[m.Track], m)
	}
	out := make(Layout, 0, len(l))
	for _, track := range order {
		out = append(out, byTrack[track]...)
	}
	return out
}

// countsRow builds one combined manipulator row of *-, *v, *^ and *
// tokens moving per-track spine counts toward the target. changed is
// false when counts already match.
func countsRow(work Layout, cur, tgt map[int]int) ([]string, Layout, bool, error) {
	row := make([]string, 0, len(work))
	var next Layout
	changed := false

	// Per-track split/merge budget for this row, consumed leftmost.
	grow := make(map[int]int)
	shrink := make(map[int]int)
	for track, c := range cur {
		n, ok := tgt[track]
		if !ok {
			continue // terminated below
		}
		if n > c {
			grow[track] = n - c
		} else if n < c {
			shrink[track] = c - n
		}
	}

	for i := 0; i < len(work); i++ {
		m := work[i]
		if _, keep := tgt[m.Track]; !keep {
			row = append(row, tokTerminate)
			changed = true
			continue
		}
		if shrink[m.Track] > 0 && i+1 < len(work) && work[i+1].Track == m.Track {
			row = append(row, tokMerge, tokMerge)
			next = append(next, SpineMeta{Track: m.Track, Type: m.Type})
			shrink[m.Track]--
			i++ // pair consumed
			changed = true
			continue
		}
		if g := grow[m.Track]; g > 0 {
			row = append(row, tokSplit)
			next = append(next,
				SpineMeta{Track: m.Track, Type: m.Type},
				SpineMeta{Track: m.Track, Type: m.Type})
			grow[m.Track]--
			changed = true
			continue
		}
		row = append(row, tokNoop)
		next = append(next, m)
	}

	// A remaining shrink with no adjacent same-track pair left cannot
	// be expressed with pairwise merges.
	for track, s := range shrink {
		if s > 0 && !hasAdjacentPair(next, track) {
			return nil, nil, false, &ExportError{
				Message: fmt.Sprintf("track %d: no adjacent pair available for merge", track),
			}
		}
	}

	if !changed {
		return nil, work, false, nil
	}
	return row, normalizeSubtracks(next), true, nil
}

// additionRows emits one *+ row per track present in the target but
// absent from work, then one declaration row giving every new spine
// its exclusive interpretation. Each *+ row is sized to the layout
// before it, so the rows replay cleanly through the import side. New
// tracks are inserted after the spine preceding their target position.
func additionRows(work, goal Layout) ([][]string, Layout, error) {
	missing := missingTracks(work, goal)
	if len(missing) == 0 {
		return nil, work, nil
	}
	if len(work) == 0 {
		return nil, nil, &ExportError{Message: "cannot add spines to an empty layout"}
	}

	var rows [][]string
	for _, add := range missing {
		pos := anchorPosition(work, goal, add.Track)
		row := make([]string, len(work))
		var next Layout
		for i, m := range work {
			row[i] = tokNoop
			next = append(next, m)
			if i == pos {
				next = append(next, add)
			}
		}
		row[pos] = tokAdd
		rows = append(rows, row)
		work = next
	}

	added := make(map[int]bool, len(missing))
	for _, add := range missing {
		added[add.Track] = true
	}
	declRow := make([]string, len(work))
	for i, m := range work {
		declRow[i] = tokNoop
		if added[m.Track] {
			declRow[i] = "**" + m.Type
		}
	}
	return append(rows, declRow), normalizeSubtracks(work), nil
}

// anchorPosition picks the work index after which a new track slots
// in: the last spine of the track preceding it in the target, or
// position 0 when the new track leads the target layout.
func anchorPosition(work, goal Layout, newTrack int) int {
	prevTrack := -1
	for _, m := range goal {
		if m.Track == newTrack {
			break
		}
		prevTrack = m.Track
	}
	if prevTrack == -1 {
		return 0
	}
	pos := 0
	for i, m := range work {
		if m.Track == prevTrack {
			pos = i
		}
	}
	return pos
}

// exchangeRows reorders work into the target's track sequence with
// rows of disjoint adjacent *x swaps, greedily left to right.
func exchangeRows(work, goal Layout) ([][]string, Layout, error) {
	var rows [][]string
	for pass := 0; !sameTrackSequence(work, goal); pass++ {
		if pass > len(work)*len(work)+1 {
			return nil, nil, &ExportError{Message: "exchange reordering did not converge"}
		}
		row := make([]string, len(work))
		next := append(Layout(nil), work...)
		swapped := false
		for i := 0; i < len(next); i++ {
			row[i] = tokNoop
		}
		for i := 0; i+1 < len(next); i++ {
			if row[i] != tokNoop {
				continue
			}
			if next[i].Track != goal[i].Track && next[i+1].Track == goal[i].Track {
				row[i], row[i+1] = tokExchange, tokExchange
				next[i], next[i+1] = next[i+1], next[i]
				swapped = true
				i++
			}
		}
		if !swapped {
			// Fall back to bubbling the leftmost misplaced spine.
			i := firstMismatch(next, goal)
			j := findTrackAfter(next, goal[i].Track, i)
			if j < 0 {
				return nil, nil, &ExportError{
					Message: fmt.Sprintf("track %d absent while reordering", goal[i].Track),
				}
			}
			row[j-1], row[j] = tokExchange, tokExchange
			next[j-1], next[j] = next[j], next[j-1]
		}
		rows = append(rows, row)
		work = next
	}
	return rows, normalizeSubtracks(work), nil
}

func firstMismatch(a, b Layout) int {
	for i := range a {
		if a[i].Track != b[i].Track {
			return i
		}
	}
	return -1
}

func findTrackAfter(l Layout, track, from int) int {
	for i := from + 1; i < len(l); i++ {
		if l[i].Track == track {
			return i
		}
	}
	return -1
}

func hasAdjacentPair(l Layout, track int) bool {
	for i := 0; i+1 < len(l); i++ {
		if l[i].Track == track && l[i+1].Track == track {
			return true
		}
	}
	return false
}

func trackCounts(l Layout) map[int]int {
	out := make(map[int]int)
	for _, m := range l {
		out[m.Track]++
	}
	return out
}

func missingTracks(work, goal Layout) []SpineMeta {
	have := trackCounts(work)
	var out []SpineMeta
	seen := make(map[int]bool)
	for _, m := range goal {
		if have[m.Track] == 0 && !seen[m.Track] {
			seen[m.Track] = true
			out = append(out, SpineMeta{Track: m.Track, Type: m.Type})
		}
	}
	return out
}

func sameTrackSequence(a, b Layout) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Track != b[i].Track {
			return false
		}
	}
	return true
}

// normalizeSubtracks recomputes subtrack numbering the same way the
// import tracker does: 0 for a sole spine, 1..n for siblings.
func normalizeSubtracks(l Layout) Layout {
	total := make(map[int]int)
	for _, m := range l {
		total[m.Track]++
	}
	out := make(Layout, len(l))
	seen := make(map[int]int)
	for i, m := range l {
		out[i] = m
		if total[m.Track] == 1 {
			out[i].Subtrack = 0
			continue
		}
		seen[m.Track]++
		out[i].Subtrack = seen[m.Track]
	}
	return out
}

// layoutsEquivalent compares two layouts by type sequence and track
// partition, allowing a consistent renumbering of tracks (an added
// track's number is assigned by the importer, not the exporter).
func layoutsEquivalent(a, b Layout) bool {
	if len(a) != len(b) {
		return false
	}
	fwd := make(map[int]int)
	rev := make(map[int]int)
	for i := range a {
		if a[i].Type != b[i].Type {
			return false
		}
		at, bt := a[i].Track, b[i].Track
		if mapped, ok := fwd[at]; ok && mapped != bt {
			return false
		}
		if mapped, ok := rev[bt]; ok && mapped != at {
			return false
		}
		fwd[at] = bt
		rev[bt] = at
	}
	return true
}

// manipulatorRowText joins a manipulator row's tokens for emission.
func manipulatorRowText(tokens []string) string {
	out := ""
	for i, tok := range tokens {
		if i > 0 {
			out += "\t"
		}
		out += tok
	}
	return out
}

// terminatorRow builds the closing *- row for n spines.
func terminatorRow(n int) []string {
	row := make([]string, n)
	for i := range row {
		row[i] = tokTerminate
	}
	return row
}
