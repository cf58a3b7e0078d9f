// Package checksum computes the CRC32 used to protect ping responses and
// provides the small hex helpers the protocol relies on.
package checksum

import (
	"hash/crc32"
	"strings"
)

// Bytes returns the CRC32 (IEEE/zlib polynomial) of data. An empty slice
// yields 0.
func Bytes(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// String returns the CRC32 of s treated as a C string: only the bytes
// before the first NUL are covered.
func String(s string) uint32 {
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return crc32.ChecksumIEEE([]byte(s))
}
