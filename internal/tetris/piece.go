// Package tetris implements the rules engine of a falling-block puzzle:
// the piece catalog, the board, the piece spawner, the scoring policy and
// the game state machine. The package is UI-agnostic, deterministic for a
// given random source, and never logs; callers learn what happened from the
// Report each command returns.
package tetris

import (
	"fmt"

	"github.com/vovakirdan/blockfall/internal/core"
)

// Kind identifies one of the seven tetromino shapes.
// KindNone is the zero value and marks an empty cell.
type Kind uint8

const (
	KindNone Kind = iota
	KindI
	KindO
	KindT
	KindS
	KindZ
	KindJ
	KindL
)

// KindCount is the number of playable kinds.
const KindCount = 7

// Kinds lists the playable kinds in catalog order.
var Kinds = [KindCount]Kind{KindI, KindO, KindT, KindS, KindZ, KindJ, KindL}

// String returns the single-letter name of the kind.
func (k Kind) String() string {
	switch k {
	case KindI:
		return "I"
	case KindO:
		return "O"
	case KindT:
		return "T"
	case KindS:
		return "S"
	case KindZ:
		return "Z"
	case KindJ:
		return "J"
	case KindL:
		return "L"
	default:
		return "-"
	}
}

// Valid reports whether k is one of the seven playable kinds.
func (k Kind) Valid() bool {
	return k >= KindI && k <= KindL
}

// Color returns the guideline color tag for the kind.
func (k Kind) Color() core.Color {
	switch k {
	case KindI:
		return core.ColorCyan
	case KindO:
		return core.ColorYellow
	case KindT:
		return core.ColorMagenta
	case KindS:
		return core.ColorGreen
	case KindZ:
		return core.ColorRed
	case KindJ:
		return core.ColorBlue
	case KindL:
		return core.ColorOrange
	default:
		return core.ColorDefault
	}
}

// ParseKind converts a single-letter name to a Kind.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, true
		}
	}
	return KindNone, false
}

// Shape is the four cell offsets of one rotation state, relative to the
// top-left corner of the piece's 4x4 bounding box.
type Shape [4]core.Point

// Definition is the immutable template of a kind: its distinct rotation
// states, each a 90 degree clockwise turn of the previous one.
type Definition struct {
	Kind      Kind
	Rotations []Shape
}

// Shape returns the offsets for a rotation index, wrapping modulo the number
// of distinct states.
func (d Definition) Shape(rotation int) Shape {
	n := len(d.Rotations)
	return d.Rotations[((rotation%n)+n)%n]
}

// catalog holds every kind's rotation states, indexed by Kind.
// I, T, J and L have four distinct states, S and Z two, O one.
var catalog = [KindCount + 1]Definition{
	KindI: {Kind: KindI, Rotations: []Shape{
		{core.Pt(0, 1), core.Pt(1, 1), core.Pt(2, 1), core.Pt(3, 1)},
		{core.Pt(2, 0), core.Pt(2, 1), core.Pt(2, 2), core.Pt(2, 3)},
		{core.Pt(0, 2), core.Pt(1, 2), core.Pt(2, 2), core.Pt(3, 2)},
		{core.Pt(1, 0), core.Pt(1, 1), core.Pt(1, 2), core.Pt(1, 3)},
	}},
	KindO: {Kind: KindO, Rotations: []Shape{
		{core.Pt(1, 0), core.Pt(2, 0), core.Pt(1, 1), core.Pt(2, 1)},
	}},
	KindT: {Kind: KindT, Rotations: []Shape{
		{core.Pt(1, 0), core.Pt(0, 1), core.Pt(1, 1), core.Pt(2, 1)},
		{core.Pt(1, 0), core.Pt(1, 1), core.Pt(2, 1), core.Pt(1, 2)},
		{core.Pt(0, 1), core.Pt(1, 1), core.Pt(2, 1), core.Pt(1, 2)},
		{core.Pt(1, 0), core.Pt(0, 1), core.Pt(1, 1), core.Pt(1, 2)},
	}},
	KindS: {Kind: KindS, Rotations: []Shape{
		{core.Pt(1, 0), core.Pt(2, 0), core.Pt(0, 1), core.Pt(1, 1)},
		{core.Pt(1, 0), core.Pt(1, 1), core.Pt(2, 1), core.Pt(2, 2)},
	}},
	KindZ: {Kind: KindZ, Rotations: []Shape{
		{core.Pt(0, 0), core.Pt(1, 0), core.Pt(1, 1), core.Pt(2, 1)},
		{core.Pt(2, 0), core.Pt(1, 1), core.Pt(2, 1), core.Pt(1, 2)},
	}},
	KindJ: {Kind: KindJ, Rotations: []Shape{
		{core.Pt(0, 0), core.Pt(0, 1), core.Pt(1, 1), core.Pt(2, 1)},
		{core.Pt(1, 0), core.Pt(2, 0), core.Pt(1, 1), core.Pt(1, 2)},
		{core.Pt(0, 1), core.Pt(1, 1), core.Pt(2, 1), core.Pt(2, 2)},
		{core.Pt(1, 0), core.Pt(1, 1), core.Pt(0, 2), core.Pt(1, 2)},
	}},
	KindL: {Kind: KindL, Rotations: []Shape{
		{core.Pt(2, 0), core.Pt(0, 1), core.Pt(1, 1), core.Pt(2, 1)},
		{core.Pt(1, 0), core.Pt(1, 1), core.Pt(1, 2), core.Pt(2, 2)},
		{core.Pt(0, 1), core.Pt(1, 1), core.Pt(2, 1), core.Pt(0, 2)},
		{core.Pt(0, 0), core.Pt(1, 0), core.Pt(1, 1), core.Pt(1, 2)},
	}},
}

// DefinitionFor returns the template of a playable kind.
// Passing KindNone or an out-of-range value is a programming error.
func DefinitionFor(k Kind) Definition {
	if !k.Valid() {
		panic(fmt.Sprintf("tetris: no definition for kind %d", k))
	}
	return catalog[k]
}

// RotationCount returns the number of distinct rotation states of a kind.
func RotationCount(k Kind) int {
	return len(DefinitionFor(k).Rotations)
}

// Piece is an active piece instance: a kind, a rotation index and the
// board position of its bounding box's top-left corner.
type Piece struct {
	Kind     Kind
	Rotation int
	Pos      core.Point
}

// Cells returns the absolute board coordinates the piece occupies.
func (p Piece) Cells() []core.Point {
	shape := DefinitionFor(p.Kind).Shape(p.Rotation)
	cells := make([]core.Point, len(shape))
	for i, off := range shape {
		cells[i] = p.Pos.Add(off)
	}
	return cells
}

// Moved returns a copy of the piece shifted by (dx, dy).
func (p Piece) Moved(dx, dy int) Piece {
	p.Pos = p.Pos.Add(core.Pt(dx, dy))
	return p
}

// Rotated returns a copy of the piece in its next clockwise rotation state.
func (p Piece) Rotated() Piece {
	p.Rotation = (p.Rotation + 1) % RotationCount(p.Kind)
	return p
}
