// Package snapname renders and parses the canonical remote snapshot names.
// Retention recovers timestamps from listing results with nothing but these
// names, so the round trip has to be exact to one second and parsing strict.
package snapname

import (
	"errors"
	"fmt"
	"time"
)

const layout = "20060102T150405Z"

// ErrMalformedName is returned for anything that is not a snapshot name.
var ErrMalformedName = errors.New("not a snapshot name")

// Format renders a UTC instant as YYYYMMDDThhmmssZ.
func Format(t time.Time) string {
	return t.UTC().Format(layout)
}

// Parse accepts only the fixed 16 character pattern: 8 digits, literal T,
// 6 digits, literal Z, forming a valid calendar instant. Everything else is
// rejected, never coerced.
func Parse(name string) (time.Time, error) {
	if len(name) != len(layout) || name[8] != 'T' || name[15] != 'Z' {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedName, name)
	}
	for i := 0; i < len(name); i++ {
		if i == 8 || i == 15 {
			continue
		}
		if name[i] < '0' || name[i] > '9' {
			return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedName, name)
		}
	}
	t, err := time.ParseInLocation(layout, name, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedName, name)
	}
	return t, nil
}
