// Package tile implements the double-six domino piece model: unordered pip
// pairs, orientation-insensitive equality, and the full 28-tile set.
package tile

import "fmt"

// Tile is an unordered pair of pip counts in 0..6. Equality is
// orientation-independent when tiles are built with New: New(3, 5) ==
// New(5, 3).
type Tile struct {
	A byte `json:"a"`
	B byte `json:"b"`
}

// New returns a Tile in canonical (min, max) form, so two Tiles built from
// the same unordered pair always compare equal and hash equal.
func New(a, b byte) Tile {
	if a > b {
		a, b = b, a
	}
	return Tile{A: a, B: b}
}

// Equal reports orientation-insensitive equality. Both operands are already
// canonical (min, max) by construction, so this is a plain field compare.
func (t Tile) Equal(o Tile) bool {
	return t.A == o.A && t.B == o.B
}

// IsDouble reports whether both pips match.
func (t Tile) IsDouble() bool {
	return t.A == t.B
}

// Total is the tile's pip sum.
func (t Tile) Total() int {
	return int(t.A) + int(t.B)
}

// Has reports whether the tile carries the given pip value on either end.
func (t Tile) Has(pip byte) bool {
	return t.A == pip || t.B == pip
}

// Other returns the pip on the far side from the given end, assuming the
// tile has that end. Used when laying a tile against a matched end.
func (t Tile) Other(pip byte) byte {
	if t.A == pip {
		return t.B
	}
	return t.A
}

func (t Tile) String() string {
	return fmt.Sprintf("[%d|%d]", t.A, t.B)
}

// Placed is a tile fixed in its board orientation, at a monotonic position
// in the played sequence. Orientation lives here, not on Tile, so the same
// Tile identity can be laid either way without disturbing equality/hashing.
type Placed struct {
	Left     byte `json:"left"`
	Right    byte `json:"right"`
	Position int  `json:"position"`
}

// Tile recovers the unordered identity of a placed tile.
func (p Placed) Tile() Tile {
	return New(p.Left, p.Right)
}

// Ends holds the two outer pip values of the board chain. Both are nil iff
// the board is empty.
type Ends struct {
	L *byte
	R *byte
}

func (e Ends) Empty() bool {
	return e.L == nil && e.R == nil
}

func pip(v byte) *byte {
	return &v
}
