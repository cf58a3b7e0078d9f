package rlz

import "fmt"

// IsGoodChar reports whether c may appear in a stored RLZ value: ASCII
// letters, digits and _-!@$*();.<> (no URL meta characters).
func IsGoodChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '_', '-', '!', '@', '$', '*', '(', ')', ';', '.', '<', '>':
		return true
	}
	return false
}

// Normalize copies at most MaxRlzLength bytes of raw, replacing every
// disallowed byte with '.'. Longer input is truncated, never rejected. A NUL
// byte ends the value.
func Normalize(raw string) string {
	return normalizeTo(raw, MaxRlzLength)
}

func normalizeTo(raw string, limit int) string {
	n := len(raw)
	if n > limit {
		n = limit
	}
	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		c := raw[i]
		if c == 0 {
			break
		}
		if !IsGoodChar(c) {
			c = '.'
		}
		out = append(out, c)
	}
	return string(out)
}

// Validate reports whether value can be stored as-is.
func Validate(value string) bool {
	if len(value) > MaxRlzLength {
		return false
	}
	for i := 0; i < len(value); i++ {
		if !IsGoodChar(value[i]) {
			return false
		}
	}
	return true
}

// PrepareValue checks the length bound and normalizes value for storage.
// Setting a value longer than MaxRlzLength is an error, not a truncation.
func PrepareValue(value string) (string, error) {
	return prepare(value, MaxRlzLength)
}

// PrepareDealCode is PrepareValue for the machine deal code.
func PrepareDealCode(value string) (string, error) {
	return prepare(value, MaxDccLength)
}

func prepare(value string, limit int) (string, error) {
	if len(value) > limit {
		return "", fmt.Errorf("%w: %d > %d", ErrTooLong, len(value), limit)
	}
	return normalizeTo(value, limit), nil
}
