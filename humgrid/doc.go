// Package humgrid implements the structural layer of the Humdrum
// tab-delimited notation format: a two-dimensional grid whose logical
// columns ("spines") can split, merge, terminate, be added, or be
// exchanged from one line to the next.
//
// The package manages textual and topological fidelity only. It parses
// a line stream into a Grid, tracks spine topology and exclusive
// interpretations, and serializes a Grid (or a stream of per-row spine
// layouts from a semantic exporter) back to text. Mapping cell contents
// to musical objects is the job of an external collaborator; see
// Registry for the per-type cell hooks it plugs into.
//
// # Format
//
//	**kern	**kern        exclusive interpretations (one per spine)
//	4c	4e            data row (tab-separated, "." = null token)
//	*^	*             manipulator row: split spine 1
//	*-	*-	*-    every spine ends with a terminator
//
// Manipulators: *^ split, *v merge (adjacent pair), *- terminate,
// *+ add, *x exchange (paired), bare * no-op. Rows starting with !!
// are global comments, !!!KEY: reference records, ! local comments,
// = barlines.
//
// # Round-tripping
//
// For any cleanly parsed Grid, SerializeGrid(Parse(text)) is textually
// equivalent to text: identical tokens and topology. The Writer type
// covers the export direction, deriving minimal manipulator rows from
// the layout changes the exporter requests.
package humgrid
