package humgrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func meta(track, subtrack int, typ string) SpineMeta {
	return SpineMeta{Track: track, Subtrack: subtrack, Type: typ}
}

func TestDiffLayoutsIdentity(t *testing.T) {
	l := Layout{meta(1, 0, "kern"), meta(2, 0, "dynam")}
	rows, err := DiffLayouts(l, l)
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestDiffLayoutsSubtrackNormalization(t *testing.T) {
	// Same topology with stale subtrack numbers still diffs to nothing.
	a := Layout{meta(1, 5, "kern")}
	b := Layout{meta(1, 0, "kern")}
	rows, err := DiffLayouts(a, b)
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestDiffLayoutsSplit(t *testing.T) {
	cur := Layout{meta(1, 0, "kern"), meta(2, 0, "dynam")}
	tgt := Layout{meta(1, 1, "kern"), meta(1, 2, "kern"), meta(2, 0, "dynam")}
	rows, err := DiffLayouts(cur, tgt)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"*^", "*"}}, rows)
}

func TestDiffLayoutsMerge(t *testing.T) {
	cur := Layout{meta(1, 1, "kern"), meta(1, 2, "kern"), meta(2, 0, "dynam")}
	tgt := Layout{meta(1, 0, "kern"), meta(2, 0, "dynam")}
	rows, err := DiffLayouts(cur, tgt)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"*v", "*v", "*"}}, rows)
}

func TestDiffLayoutsMergeSeparatedSiblings(t *testing.T) {
	// The siblings of track 1 sit on either side of track 2, so an
	// exchange row gathers them before the merge row consumes the pair.
	cur := Layout{meta(1, 1, "kern"), meta(2, 0, "dynam"), meta(1, 2, "kern")}
	tgt := Layout{meta(1, 0, "kern"), meta(2, 0, "dynam")}
	rows, err := DiffLayouts(cur, tgt)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"*", "*x", "*x"},
		{"*v", "*v", "*"},
	}, rows)
}

func TestDiffLayoutsAddTrackWithSiblings(t *testing.T) {
	// An added track enters with a single spine; the target's sibling
	// structure comes from a follow-up split row.
	cur := Layout{meta(1, 0, "kern")}
	tgt := Layout{meta(1, 0, "kern"), meta(2, 1, "text"), meta(2, 2, "text")}
	rows, err := DiffLayouts(cur, tgt)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"*+"},
		{"*", "**text"},
		{"*", "*^"},
	}, rows)
}

func TestDiffLayoutsQuadrupleSplit(t *testing.T) {
	// One row can only double a track, so 1 -> 4 spines takes two rows.
	cur := Layout{meta(1, 0, "kern")}
	tgt := Layout{
		meta(1, 1, "kern"), meta(1, 2, "kern"),
		meta(1, 3, "kern"), meta(1, 4, "kern"),
	}
	rows, err := DiffLayouts(cur, tgt)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"*^"}, {"*^", "*^"}}, rows)
}

func TestDiffLayoutsTerminate(t *testing.T) {
	cur := Layout{meta(1, 0, "kern"), meta(2, 0, "dynam")}
	tgt := Layout{meta(1, 0, "kern")}
	rows, err := DiffLayouts(cur, tgt)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"*", "*-"}}, rows)
}

func TestDiffLayoutsAddTrack(t *testing.T) {
	cur := Layout{meta(1, 0, "kern"), meta(2, 0, "dynam")}
	tgt := Layout{meta(1, 0, "kern"), meta(2, 0, "dynam"), meta(3, 0, "text")}
	rows, err := DiffLayouts(cur, tgt)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"*", "*+"},
		{"*", "*", "**text"},
	}, rows)
}

func TestDiffLayoutsAddIntoEmpty(t *testing.T) {
	_, err := DiffLayouts(Layout{}, Layout{meta(1, 0, "kern")})
	var xerr *ExportError
	require.ErrorAs(t, err, &xerr)
}

func TestDiffLayoutsExchange(t *testing.T) {
	cur := Layout{meta(1, 0, "kern"), meta(2, 0, "dynam")}
	tgt := Layout{meta(2, 0, "dynam"), meta(1, 0, "kern")}
	rows, err := DiffLayouts(cur, tgt)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"*x", "*x"}}, rows)
}

func TestDiffLayoutsLeftmostFirst(t *testing.T) {
	// Two tracks grow; each row splits the leftmost eligible spine of
	// each track, matching the import side's left-to-right scan.
	cur := Layout{meta(1, 0, "kern"), meta(2, 0, "kern")}
	tgt := Layout{
		meta(1, 1, "kern"), meta(1, 2, "kern"),
		meta(2, 1, "kern"), meta(2, 2, "kern"),
	}
	rows, err := DiffLayouts(cur, tgt)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"*^", "*^"}}, rows)
}

func TestDiffLayoutsReplaysThroughImport(t *testing.T) {
	// Every derived manipulator row must be accepted by the import
	// topology tracker and land on the target topology.
	cur := Layout{meta(1, 0, "kern"), meta(2, 0, "dynam")}
	tgt := Layout{
		meta(2, 0, "dynam"),
		meta(1, 1, "kern"), meta(1, 2, "kern"),
	}
	rows, err := DiffLayouts(cur, tgt)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	tr, _ := newTestTracker(t, false, "**kern", "**dynam")
	for i, row := range rows {
		require.NoError(t, tr.apply(row, i+2, i+1), "row %v", row)
	}
	got := tr.layout()
	require.Len(t, got, len(tgt))
	for i := range got {
		assert.Equal(t, tgt[i].Track, got[i].Track, "position %d", i)
		assert.Equal(t, tgt[i].Type, got[i].Type, "position %d", i)
	}
}
