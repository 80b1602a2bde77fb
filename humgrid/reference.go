package humgrid

import "strings"

// Reference is one metadata record, surfaced to the metadata
// collaborator as a (code, language-tag-or-none, value) triple. The
// record's semantics (what "COM" means) are not interpreted here.
//
// A code may carry a language suffix: !!!OTL@@DE: marks the primary
// language of the title, !!!OTL@FR: a translation.
type Reference struct {
	Code    string
	Lang    string // "" when no language tag
	Primary bool   // true for @@LANG (primary-language form)
	Value   string
	Line    int // 1-based source line
}

// isReferenceLine reports whether a !!! line is a reference record:
// a non-empty key followed by a colon.
func isReferenceLine(line string) bool {
	rest := strings.TrimPrefix(line, "!!!")
	colon := strings.IndexByte(rest, ':')
	if colon <= 0 {
		return false
	}
	key := strings.TrimSpace(rest[:colon])
	return key != "" && !strings.ContainsAny(key, " \t")
}

// parseReference decomposes a reference-record line. The boolean is
// false when the line is not a well-formed record.
func parseReference(line string, lineNo int) (Reference, bool) {
	if !strings.HasPrefix(line, "!!!") {
		return Reference{}, false
	}
	rest := strings.TrimPrefix(line, "!!!")
	colon := strings.IndexByte(rest, ':')
	if colon <= 0 {
		return Reference{}, false
	}

	ref := Reference{
		Code:  strings.TrimSpace(rest[:colon]),
		Value: strings.TrimSpace(rest[colon+1:]),
		Line:  lineNo,
	}
	if ref.Code == "" {
		return Reference{}, false
	}

	if at := strings.Index(ref.Code, "@@"); at >= 0 {
		ref.Lang = ref.Code[at+2:]
		ref.Code = ref.Code[:at]
		ref.Primary = true
	} else if at := strings.IndexByte(ref.Code, '@'); at >= 0 {
		ref.Lang = ref.Code[at+1:]
		ref.Code = ref.Code[:at]
	}
	return ref, true
}
