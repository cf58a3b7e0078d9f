package checksum

import (
	"encoding/hex"
	"strings"
)

// ParseHex parses text as a hexadecimal number the way ping trailers are
// read: leading spaces and tabs are skipped, an optional 0x/0X prefix is
// accepted and digits are case-insensitive.
//
// Parsing stops at the first non-hex character and returns what was
// accumulated so far. clean reports whether everything after that point was
// spaces only; callers decide whether trailing garbage matters.
func ParseHex(text string) (value uint32, clean bool) {
	i := 0
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	if i+1 < len(text) && text[i] == '0' && (text[i+1] == 'x' || text[i+1] == 'X') {
		i += 2
	}

	for ; i < len(text); i++ {
		d, ok := hexDigit(text[i])
		if !ok {
			for ; i < len(text); i++ {
				if text[i] != ' ' {
					return value, false
				}
			}
			return value, true
		}
		value = value<<4 | uint32(d)
	}
	return value, true
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// BytesToString encodes data as upper-case hex.
func BytesToString(data []byte) string {
	return strings.ToUpper(hex.EncodeToString(data))
}
