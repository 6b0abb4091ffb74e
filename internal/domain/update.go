package domain

// UpdateSource identifies the subsystem that produced a field update. It is
// carried for observability only and never influences the written value.
type UpdateSource string

const (
	// SourceRepository marks updates derived from source-hosting metadata.
	SourceRepository UpdateSource = "repository"

	// SourcePublication marks updates derived from publication registries.
	SourcePublication UpdateSource = "publication"
)

// FieldUpdate is a single pending change to one record field.
type FieldUpdate struct {
	Field  string
	Value  any
	Source UpdateSource
}

// FieldUpdateSet is an ordered collection of pending field changes for one
// record, the unit of a single write-back operation. Setting a field that is
// already present replaces its value in place, so iteration order stays
// stable and duplicates are last-write-wins.
//
// The zero FieldUpdateSet is empty and ready to use.
type FieldUpdateSet struct {
	updates []FieldUpdate
}

// Set records a pending change for field. An existing entry for the same
// field is replaced.
func (s *FieldUpdateSet) Set(field string, value any, source UpdateSource) {
	for i := range s.updates {
		if s.updates[i].Field == field {
			s.updates[i].Value = value
			s.updates[i].Source = source
			return
		}
	}
	s.updates = append(s.updates, FieldUpdate{Field: field, Value: value, Source: source})
}

// Merge folds every update from other into s, replacing overlapping fields.
func (s *FieldUpdateSet) Merge(other FieldUpdateSet) {
	for _, u := range other.updates {
		s.Set(u.Field, u.Value, u.Source)
	}
}

// Len returns the number of pending field changes.
func (s FieldUpdateSet) Len() int {
	return len(s.updates)
}

// Get returns the pending value for field and whether one is present.
func (s FieldUpdateSet) Get(field string) (any, bool) {
	for _, u := range s.updates {
		if u.Field == field {
			return u.Value, true
		}
	}
	return nil, false
}

// Updates returns the pending changes in insertion order.
func (s FieldUpdateSet) Updates() []FieldUpdate {
	out := make([]FieldUpdate, len(s.updates))
	copy(out, s.updates)
	return out
}

// Fields returns the pending field names in insertion order.
func (s FieldUpdateSet) Fields() []string {
	out := make([]string, len(s.updates))
	for i, u := range s.updates {
		out[i] = u.Field
	}
	return out
}
