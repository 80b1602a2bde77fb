package humgrid

// Resolver tracks each track's exclusive interpretation. A type is
// set once, at the spine's ** declaration, and never changes until
// the track terminates. Children of a split and the survivor of a
// merge share their lineage's track, so resolution is per track.
type Resolver struct {
	types map[int]string
}

// NewResolver returns an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{types: make(map[int]string)}
}

// Declare sets the type for a track. Declaring a track twice is an
// error regardless of the new value: the exclusive interpretation is
// immutable once set.
func (r *Resolver) Declare(track, subtrack int, typ string, line int) error {
	if prev, ok := r.types[track]; ok {
		return &SpineConsistencyError{
			Line:     line,
			Track:    track,
			Subtrack: subtrack,
			Message:  "exclusive interpretation already declared as **" + prev,
		}
	}
	r.types[track] = typ
	return nil
}

// TypeOf returns the declared type for a track.
func (r *Resolver) TypeOf(track int) (string, bool) {
	typ, ok := r.types[track]
	return typ, ok
}

// Resolved reports whether the track has a declared type.
func (r *Resolver) Resolved(track int) bool {
	_, ok := r.types[track]
	return ok
}
