package reportclient

import "unicode/utf8"

// completePrefix returns the length of the longest prefix of b that does not
// end inside a multi-byte sequence. Invalid bytes count as complete.
func completePrefix(b []byte) int {
	// A UTF-8 sequence is at most 4 bytes, so only the tail needs checking.
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return len(b)
		}
		return i
	}
	return len(b)
}
