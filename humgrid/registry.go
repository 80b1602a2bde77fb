package humgrid

import "strings"

// CellCodec is the per-type capability pair the grid core delegates
// cell handling to. Parse decomposes a data token into ordered
// subtokens; Emit reassembles them. The grid never interprets musical
// meaning: a semantic collaborator registers real codecs (e.g. for
// **kern) and the core falls back to a whitespace passthrough.
type CellCodec struct {
	Parse func(text string) ([]string, error)
	Emit  func(subtokens []string) (string, error)
}

// PassthroughCodec splits subtokens on embedded single spaces and
// joins them back, preserving null tokens whole.
func PassthroughCodec() CellCodec {
	return CellCodec{
		Parse: func(text string) ([]string, error) {
			if text == NullToken {
				return []string{NullToken}, nil
			}
			return strings.Split(text, " "), nil
		},
		Emit: func(subtokens []string) (string, error) {
			return strings.Join(subtokens, " "), nil
		},
	}
}

// Registry maps exclusive-interpretation names (without the **
// prefix) to cell codecs. The parser resolves a codec once per spine
// at declaration time, so new types plug in without touching the
// grid core.
type Registry struct {
	codecs   map[string]CellCodec
	fallback CellCodec
}

// NewRegistry returns a registry with only the passthrough fallback.
func NewRegistry() *Registry {
	return &Registry{
		codecs:   make(map[string]CellCodec),
		fallback: PassthroughCodec(),
	}
}

// Register installs a codec for a type name, replacing any previous
// registration.
func (r *Registry) Register(name string, codec CellCodec) {
	r.codecs[name] = codec
}

// Resolve returns the codec for a type name, falling back to the
// passthrough codec for unregistered types.
func (r *Registry) Resolve(name string) CellCodec {
	if codec, ok := r.codecs[name]; ok {
		return codec
	}
	return r.fallback
}

// Registered reports whether a non-fallback codec exists for name.
func (r *Registry) Registered(name string) bool {
	_, ok := r.codecs[name]
	return ok
}
