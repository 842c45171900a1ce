// Package core provides the small shared vocabulary of the engine: actions,
// points, color tags and a character screen buffer. It has no external
// dependencies so the engine stays pure and testable.
package core

// Point is a cell coordinate. X grows to the right, Y grows downward;
// (0, 0) is the top-left cell of a board.
type Point struct {
	X, Y int
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// Add returns the component-wise sum of two points.
func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}
