package humgrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReference(t *testing.T) {
	cases := []struct {
		line string
		want Reference
	}{
		{"!!!COM: J.S. Bach", Reference{Code: "COM", Value: "J.S. Bach"}},
		{"!!!OTL@@DE: Die Kunst der Fuge", Reference{Code: "OTL", Lang: "DE", Primary: true, Value: "Die Kunst der Fuge"}},
		{"!!!OTL@FR: L'art de la fugue", Reference{Code: "OTL", Lang: "FR", Value: "L'art de la fugue"}},
		{"!!!ONB:", Reference{Code: "ONB", Value: ""}},
	}
	for _, tc := range cases {
		got, ok := parseReference(tc.line, 7)
		require.True(t, ok, "line %q", tc.line)
		tc.want.Line = 7
		assert.Equal(t, tc.want, got, "line %q", tc.line)
	}
}

func TestParseReferenceMalformed(t *testing.T) {
	for _, line := range []string{
		"!! not a reference",
		"!!!no colon",
		"!!!: value with empty key",
		"4c\t4e",
	} {
		_, ok := parseReference(line, 1)
		assert.False(t, ok, "line %q", line)
	}
}
