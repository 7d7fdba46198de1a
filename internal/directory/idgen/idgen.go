// Package idgen derives sequential employee identifiers of the form EMP0001.
//
// Next is a pure function of the last issued identifier. It does not
// coordinate concurrent callers; the repository derives the next identifier
// under a lock on its persisted sequence row.
package idgen

import (
	"fmt"
	"strconv"
	"strings"

	e "github.com/gartstein/directory/internal/directory/errors"
)

const (
	// Prefix is prepended to every employee identifier.
	Prefix = "EMP"
	// Width is the zero-padded width of the numeric part.
	Width = 4
	// MaxSequence is the largest number representable in Width digits.
	MaxSequence = 9999
)

// ErrSpaceExhausted is returned once MaxSequence identifiers have been issued.
var ErrSpaceExhausted = fmt.Errorf("%w: employee identifier space exhausted", e.ErrConfiguration)

// First is the identifier issued to the first employee.
const First = "EMP0001"

// Next returns the identifier following currentMax. An empty currentMax means
// no employee exists yet.
func Next(currentMax string) (string, error) {
	if currentMax == "" {
		return First, nil
	}
	n, err := Parse(currentMax)
	if err != nil {
		return "", err
	}
	return Format(n + 1)
}

// Parse extracts the numeric part of id.
func Parse(id string) (int, error) {
	if !strings.HasPrefix(id, Prefix) || len(id) != len(Prefix)+Width {
		return 0, fmt.Errorf("%w: malformed employee id %q", e.ErrConfiguration, id)
	}
	digits := id[len(Prefix):]
	if strings.TrimLeft(digits, "0123456789") != "" {
		return 0, fmt.Errorf("%w: malformed employee id %q", e.ErrConfiguration, id)
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed employee id %q", e.ErrConfiguration, id)
	}
	return n, nil
}

// Format renders n as a prefixed, zero-padded identifier.
func Format(n int) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("%w: employee sequence must be positive, got %d", e.ErrConfiguration, n)
	}
	if n > MaxSequence {
		return "", ErrSpaceExhausted
	}
	return fmt.Sprintf("%s%0*d", Prefix, Width, n), nil
}

// Valid reports whether id is a well-formed employee identifier.
func Valid(id string) bool {
	n, err := Parse(id)
	return err == nil && n >= 1
}
