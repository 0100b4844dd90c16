// Package identity derives student identifiers and initial passwords.
// Derivation is deterministic: the same name, sequence and date always
// produce the same identity.
package identity

// Identity holds one generated student login.
type Identity struct {
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

// UsedSet tracks identifiers and usernames already allocated.
type UsedSet map[string]struct{}

// NewUsedSet returns a set seeded with values. Empty strings are ignored.
func NewUsedSet(values ...string) UsedSet {
	s := make(UsedSet, len(values))
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Has reports whether v has been allocated.
func (s UsedSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Add marks v as allocated.
func (s UsedSet) Add(v string) {
	if v == "" {
		return
	}
	s[v] = struct{}{}
}

// Len returns the number of allocated values.
func (s UsedSet) Len() int {
	return len(s)
}
