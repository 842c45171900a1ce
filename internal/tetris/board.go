package tetris

import (
	"fmt"
	"strings"

	"github.com/vovakirdan/blockfall/internal/core"
)

// Board is the fixed-size grid of locked cells. Row 0 is the top row.
// Each cell is either empty (KindNone) or tagged with the kind of the piece
// that was locked into it.
type Board struct {
	width  int
	height int
	cells  []Kind
}

// NewBoard creates an empty board. Both dimensions must be positive.
func NewBoard(width, height int) (*Board, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: board size %dx%d", ErrInvalidConfig, width, height)
	}
	return &Board{
		width:  width,
		height: height,
		cells:  make([]Kind, width*height),
	}, nil
}

// Width returns the number of columns.
func (b *Board) Width() int { return b.width }

// Height returns the number of rows.
func (b *Board) Height() int { return b.height }

// InBounds reports whether (x, y) lies inside the grid.
func (b *Board) InBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

// At returns the tag of a cell, or KindNone for empty or out-of-bounds cells.
func (b *Board) At(x, y int) Kind {
	if !b.InBounds(x, y) {
		return KindNone
	}
	return b.cells[y*b.width+x]
}

// IsOccupied reports whether a cell is filled. Cells outside the grid count
// as occupied so walls and floor need no special casing.
func (b *Board) IsOccupied(x, y int) bool {
	if !b.InBounds(x, y) {
		return true
	}
	return b.cells[y*b.width+x] != KindNone
}

// CanPlace reports whether every cell is in bounds and empty.
func (b *Board) CanPlace(cells []core.Point) bool {
	for _, c := range cells {
		if b.IsOccupied(c.X, c.Y) {
			return false
		}
	}
	return true
}

// Lock writes tag into every given cell. Callers must check CanPlace first;
// locking onto an occupied or out-of-bounds cell panics.
func (b *Board) Lock(cells []core.Point, tag Kind) {
	if !tag.Valid() {
		panic(fmt.Sprintf("tetris: lock with invalid tag %d", tag))
	}
	if !b.CanPlace(cells) {
		panic(fmt.Sprintf("tetris: lock on non-placeable cells %v", cells))
	}
	for _, c := range cells {
		b.cells[c.Y*b.width+c.X] = tag
	}
}

// IsRowFull reports whether every cell of row y is occupied.
func (b *Board) IsRowFull(y int) bool {
	if y < 0 || y >= b.height {
		return false
	}
	for _, k := range b.row(y) {
		if k == KindNone {
			return false
		}
	}
	return true
}

// IsRowEmpty reports whether row y has no occupied cells.
func (b *Board) IsRowEmpty(y int) bool {
	if y < 0 || y >= b.height {
		return true
	}
	for _, k := range b.row(y) {
		if k != KindNone {
			return false
		}
	}
	return true
}

// FullRows returns the indices of all full rows, top to bottom.
func (b *Board) FullRows() []int {
	var rows []int
	for y := 0; y < b.height; y++ {
		if b.IsRowFull(y) {
			rows = append(rows, y)
		}
	}
	return rows
}

// ClearRows removes the given rows simultaneously. Surviving rows keep their
// relative order and settle toward the bottom; the same number of empty rows
// appears at the top. Duplicate and out-of-range indices are ignored.
// It returns the number of rows removed.
func (b *Board) ClearRows(rows []int) int {
	remove := make(map[int]bool, len(rows))
	for _, y := range rows {
		if y >= 0 && y < b.height {
			remove[y] = true
		}
	}
	if len(remove) == 0 {
		return 0
	}

	write := b.height - 1
	for y := b.height - 1; y >= 0; y-- {
		if remove[y] {
			continue
		}
		if write != y {
			copy(b.row(write), b.row(y))
		}
		write--
	}
	for y := write; y >= 0; y-- {
		clear(b.row(y))
	}
	return len(remove)
}

// TopFilledRow returns the index of the highest row holding any occupied
// cell, or -1 when the board is empty.
func (b *Board) TopFilledRow() int {
	for y := 0; y < b.height; y++ {
		if !b.IsRowEmpty(y) {
			return y
		}
	}
	return -1
}

// FilledCount returns the number of occupied cells.
func (b *Board) FilledCount() int {
	n := 0
	for _, k := range b.cells {
		if k != KindNone {
			n++
		}
	}
	return n
}

// ColumnHeights returns, per column, the distance from the floor to the
// highest occupied cell (0 for an empty column).
func (b *Board) ColumnHeights() []int {
	heights := make([]int, b.width)
	for x := 0; x < b.width; x++ {
		for y := 0; y < b.height; y++ {
			if b.cells[y*b.width+x] != KindNone {
				heights[x] = b.height - y
				break
			}
		}
	}
	return heights
}

// Holes counts empty cells that have an occupied cell somewhere above them
// in the same column.
func (b *Board) Holes() int {
	holes := 0
	for x := 0; x < b.width; x++ {
		covered := false
		for y := 0; y < b.height; y++ {
			switch {
			case b.cells[y*b.width+x] != KindNone:
				covered = true
			case covered:
				holes++
			}
		}
	}
	return holes
}

// Reset empties every cell.
func (b *Board) Reset() {
	clear(b.cells)
}

// Clone returns an independent copy of the board.
func (b *Board) Clone() *Board {
	cells := make([]Kind, len(b.cells))
	copy(cells, b.cells)
	return &Board{width: b.width, height: b.height, cells: cells}
}

// Cells returns a row-major copy of the grid.
func (b *Board) Cells() []Kind {
	cells := make([]Kind, len(b.cells))
	copy(cells, b.cells)
	return cells
}

// Equal reports whether two boards have the same size and contents.
func (b *Board) Equal(o *Board) bool {
	if b.width != o.width || b.height != o.height {
		return false
	}
	for i := range b.cells {
		if b.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// String renders the grid with '#' for occupied cells and '.' for empty ones,
// one line per row.
func (b *Board) String() string {
	var sb strings.Builder
	sb.Grow((b.width + 1) * b.height)
	for y := 0; y < b.height; y++ {
		for _, k := range b.row(y) {
			if k == KindNone {
				sb.WriteByte('.')
			} else {
				sb.WriteByte('#')
			}
		}
		if y < b.height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func (b *Board) row(y int) []Kind {
	return b.cells[y*b.width : (y+1)*b.width]
}
