package models

import "strings"

// RawRow is one logical row as read from a statement table: an ordered list of cell
// strings with no names attached. Cells may be empty.
type RawRow []string

// Cell returns the trimmed cell at i, or "" when the row is too short.
func (r RawRow) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[i])
}

