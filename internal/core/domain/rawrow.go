package domain

// RawRow is one decoded spreadsheet row, keyed by spreadsheet column letter
// ("A".."Z", "AA", ...). Every row produced for one file carries the same key
// set: letters 0..maxColumns-1, where maxColumns is the widest row observed
// in that file. Missing cells hold "".
type RawRow map[string]string

// ColumnLetter converts a zero-based column index to its spreadsheet letter
// using bijective base-26: 0 -> "A", 25 -> "Z", 26 -> "AA" (not "BA").
func ColumnLetter(index int) string {
	if index < 0 {
		return ""
	}
	n := index + 1
	var buf [8]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('A' + (n-1)%26)
		n = (n - 1) / 26
	}
	return string(buf[pos:])
}

// ColumnIndex is the inverse of ColumnLetter. Returns -1 for anything that is
// not a run of uppercase A-Z.
func ColumnIndex(letter string) int {
	if letter == "" {
		return -1
	}
	n := 0
	for i := 0; i < len(letter); i++ {
		c := letter[i]
		if c < 'A' || c > 'Z' {
			return -1
		}
		n = n*26 + int(c-'A') + 1
	}
	return n - 1
}
