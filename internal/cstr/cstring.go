// Package cstr converts between Go strings and the NUL-terminated strings of guest programs.
package cstr

import "bytes"

// Terminate returns s as a NUL-terminated byte slice.
func Terminate(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

// Read returns the string at the start of b up to the first NUL byte. ok is false if b contains no NUL byte, in
// which case the whole slice is returned.
func Read(b []byte) (s string, ok bool) {
	i := bytes.IndexByte(b, 0x00)
	if i == -1 {
		return string(b), false
	}

	return string(b[:i]), true
}

// Trim cuts a fixed size C string field at its first NUL byte.
func Trim(b []byte) string {
	s, _ := Read(b)
	return s
}
