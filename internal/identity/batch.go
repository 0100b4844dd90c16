package identity

import "time"

// Generator allocates identity batches against a reference date.
type Generator struct {
	now func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the clock used by Today.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New creates a generator.
func New(opts ...Option) *Generator {
	g := &Generator{now: time.Now}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Today returns the current calendar date at midnight, in the clock's location.
func (g *Generator) Today() time.Time {
	t := g.now()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Batch allocates identities for names on date. existing holds identifiers
// and usernames already known to the backend; they seed both the start
// sequence (computed once) and the collision set.
func (g *Generator) Batch(names []string, date time.Time, existing []string) ([]Identity, error) {
	used := NewUsedSet(existing...)
	start := NextSequence(existing, date)
	return Allocate(names, start, date, used)
}
