package utils

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrInvalidID = errors.New("invalid id")

// StringToUint parses a positive decimal id. Zero is rejected since no row
// ever carries it.
func StringToUint(s string) (uint, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidID)
	}

	val, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	if val == 0 {
		return 0, fmt.Errorf("%w: zero", ErrInvalidID)
	}

	return uint(val), nil
}

// QueryUint parses an optional query value, falling back to def when it is
// absent or malformed.
func QueryUint(s string, def uint) uint {
	if s == "" {
		return def
	}
	val, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return def
	}
	return uint(val)
}
