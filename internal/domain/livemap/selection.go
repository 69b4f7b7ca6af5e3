package livemap

// Selection is the single optional focused identity. Writes are not
// validated; consumers resolve it against the current snapshot.
type Selection struct {
	id string
}

// Set stores id and reports whether it differs from the previous value.
func (s *Selection) Set(id string) bool {
	if s.id == id {
		return false
	}
	s.id = id
	return true
}

// Get returns the selected identity, or "" when nothing is selected.
func (s *Selection) Get() string { return s.id }
