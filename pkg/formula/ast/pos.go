package ast

import "fmt"

// Pos is a zero-based byte offset into the source expression.
type Pos int

// NoPos is used when an error or node has no meaningful source position.
const NoPos Pos = -1

// IsValid reports whether the position points into the source.
func (p Pos) IsValid() bool {
	return p >= 0
}

// Column returns the 1-based column used in human-readable messages.
func (p Pos) Column() int {
	return int(p) + 1
}

// String returns a human-readable representation of the position.
// Format: "column N"
func (p Pos) String() string {
	if !p.IsValid() {
		return "<unknown>"
	}
	return fmt.Sprintf("column %d", p.Column())
}
