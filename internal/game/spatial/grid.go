// Package spatial holds the arena's cell plane and the local pathfinder.
//
// The grid keeps three row-major planes of the same size: the tile plane,
// the cached passability plane and the occupant plane. Passability is not a
// pure function of the tile; it is cleared whenever an occupant or a placed
// structure claims a cell and restored when they leave.
package spatial

import "fmt"

// Point is an integer cell coordinate.
type Point struct {
	X, Y int
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

// IsZero reports whether p is the origin, which the pathfinder uses as its
// "no move" answer.
func (p Point) IsZero() bool {
	return p.X == 0 && p.Y == 0
}

// Manhattan returns |ax-bx| + |ay-by|.
func Manhattan(a, b Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Grid is a fixed-size cell plane owning at most one occupant per cell.
// The type parameter lets the simulation store its own enemy type without
// this package knowing about it.
type Grid[E any] struct {
	width, height int
	tiles         []Tile
	passable      []bool
	occupants     []*E
}

// NewGrid allocates an empty, fully passable grid.
func NewGrid[E any](width, height int) *Grid[E] {
	if width < 3 || height < 3 {
		panic(fmt.Sprintf("spatial: grid %dx%d is too small for a border ring", width, height))
	}
	size := width * height
	g := &Grid[E]{
		width:     width,
		height:    height,
		tiles:     make([]Tile, size),
		passable:  make([]bool, size),
		occupants: make([]*E, size),
	}
	for i := range g.passable {
		g.passable[i] = true
	}
	return g
}

// Width returns the number of columns.
func (g *Grid[E]) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid[E]) Height() int { return g.height }

// Center returns the middle cell.
func (g *Grid[E]) Center() Point {
	return Point{g.width / 2, g.height / 2}
}

// InBounds reports whether (x, y) addresses a cell.
func (g *Grid[E]) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

// Interior reports whether (x, y) lies inside the border ring.
func (g *Grid[E]) Interior(x, y int) bool {
	return x > 0 && y > 0 && x < g.width-1 && y < g.height-1
}

// index panics on out-of-range coordinates: every caller is expected to
// have clamped already.
func (g *Grid[E]) index(x, y int) int {
	if !g.InBounds(x, y) {
		panic(fmt.Sprintf("spatial: cell (%d,%d) outside %dx%d grid", x, y, g.width, g.height))
	}
	return y*g.width + x
}

// Tile returns the tile at (x, y).
func (g *Grid[E]) Tile(x, y int) Tile {
	return g.tiles[g.index(x, y)]
}

// SetTile replaces the tile at (x, y). Passability is left untouched.
func (g *Grid[E]) SetTile(x, y int, t Tile) {
	g.tiles[g.index(x, y)] = t
}

// Passable reports whether an occupant may enter (x, y).
func (g *Grid[E]) Passable(x, y int) bool {
	return g.passable[g.index(x, y)]
}

// SetPassable overrides the cached passability of (x, y).
func (g *Grid[E]) SetPassable(x, y int, pass bool) {
	g.passable[g.index(x, y)] = pass
}

// Occupant returns the occupant at (x, y) or nil.
func (g *Grid[E]) Occupant(x, y int) *E {
	return g.occupants[g.index(x, y)]
}

// Place puts e at (x, y) and blocks the cell.
func (g *Grid[E]) Place(x, y int, e *E) {
	i := g.index(x, y)
	g.occupants[i] = e
	g.passable[i] = false
}

// Take removes and returns the occupant at (x, y). The cell is marked
// passable again when its tile is empty.
func (g *Grid[E]) Take(x, y int) *E {
	i := g.index(x, y)
	e := g.occupants[i]
	g.occupants[i] = nil
	g.passable[i] = g.tiles[i].Kind == TileEmpty
	return e
}

// MoveOccupant transfers ownership of the occupant at from to to.
func (g *Grid[E]) MoveOccupant(from, to Point) {
	e := g.Take(from.X, from.Y)
	g.Place(to.X, to.Y, e)
}

// DerivePassability recomputes the passability plane from tiles and
// occupants. Structures that block without occupying must be re-applied by
// the caller afterwards.
func (g *Grid[E]) DerivePassability() {
	for i := range g.tiles {
		g.passable[i] = g.tiles[i].Kind == TileEmpty && g.occupants[i] == nil
	}
}

// ForEachOccupant visits every occupied cell in row-major order.
func (g *Grid[E]) ForEachOccupant(fn func(p Point, e *E)) {
	for i, e := range g.occupants {
		if e != nil {
			fn(Point{i % g.width, i / g.width}, e)
		}
	}
}
