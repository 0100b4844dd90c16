package identity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	dateLayout = "20060102"

	// passwordNameLen is the number of name runes used in an initial password.
	passwordNameLen = 7

	// MaxAttempts bounds collision retries for a single name.
	MaxAttempts = 1000
)

// ErrExhausted is returned when no free sequence number was found for a name
// within MaxAttempts.
var ErrExhausted = errors.New("identity allocation exhausted")

// Derive builds the identity for name at sequence seq on date.
// The identifier is YYYYMMDD followed by seq padded to three digits and
// doubles as the username. The password is the first seven runes of the
// lower-cased name with whitespace removed, followed by the padded seq.
func Derive(name string, seq int, date time.Time) Identity {
	id := DatePrefix(date) + pad(seq)
	return Identity{
		Name:       strings.TrimSpace(name),
		Identifier: id,
		Username:   id,
		Password:   passwordStem(name) + pad(seq),
	}
}

// DatePrefix returns the 8-digit YYYYMMDD encoding of date.
func DatePrefix(date time.Time) string {
	return date.Format(dateLayout)
}

// NextSequence returns one past the highest numeric suffix among existing
// values that start with the date prefix, or 1 when none match.
func NextSequence(existing []string, date time.Time) int {
	prefix := DatePrefix(date)
	highest := 0

	for _, v := range existing {
		if !strings.HasPrefix(v, prefix) {
			continue
		}
		n, err := strconv.Atoi(v[len(prefix):])
		if err != nil || n < 0 {
			continue
		}
		if n > highest {
			highest = n
		}
	}

	return highest + 1
}

// Allocate derives one identity per non-blank name, in order, starting at
// sequence start. A candidate whose identifier or username is already in used
// is skipped by bumping the sequence. Each accepted identity is added to used
// before the next name is processed.
//
// If a name cannot be placed within MaxAttempts, Allocate returns the
// identities allocated so far together with an error wrapping ErrExhausted.
func Allocate(names []string, start int, date time.Time, used UsedSet) ([]Identity, error) {
	if start < 1 {
		start = 1
	}
	if used == nil {
		used = NewUsedSet()
	}

	var out []Identity
	seq := start

	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}

		placed := false
		for attempt := 0; attempt < MaxAttempts; attempt++ {
			id := Derive(name, seq, date)
			if used.Has(id.Identifier) || used.Has(id.Username) {
				seq++
				continue
			}

			used.Add(id.Identifier)
			used.Add(id.Username)
			out = append(out, id)
			seq++
			placed = true
			break
		}

		if !placed {
			return out, fmt.Errorf("allocate %q: %w", strings.TrimSpace(name), ErrExhausted)
		}
	}

	return out, nil
}

// passwordStem lower-cases name, strips whitespace and keeps at most
// passwordNameLen runes.
func passwordStem(name string) string {
	var b strings.Builder
	n := 0
	for _, r := range name {
		if unicode.IsSpace(r) {
			continue
		}
		if n == passwordNameLen {
			break
		}
		b.WriteRune(unicode.ToLower(r))
		n++
	}
	return b.String()
}

func pad(seq int) string {
	return fmt.Sprintf("%03d", seq)
}
