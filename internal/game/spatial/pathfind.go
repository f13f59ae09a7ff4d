package spatial

const (
	// PathWindow is the side of the square search window centred on the
	// target.
	PathWindow = 30

	// PathIterations bounds the number of expansion rounds.
	PathIterations = PathWindow * 4
)

const (
	cellUnseen uint8 = iota
	cellVisited
	cellFrontier
)

// Passability is the read-only view the pathfinder needs.
type Passability interface {
	InBounds(x, y int) bool
	Passable(x, y int) bool
}

// pathSearch is the scratch state of one FindStep call, indexed
// x + y*PathWindow in window coordinates.
type pathSearch struct {
	state    [PathWindow * PathWindow]uint8
	frontier []Point
	grid     Passability
	target   Point
}

func (s *pathSearch) open(x, y int) bool {
	ax := x - PathWindow/2 + s.target.X
	ay := y - PathWindow/2 + s.target.Y
	return s.grid.InBounds(ax, ay) && s.grid.Passable(ax, ay)
}

// mark closes window cell (x, y) and opens its passable, not yet visited
// orthogonal neighbours.
func (s *pathSearch) mark(x, y int) {
	if x > 0 && s.state[(x-1)+y*PathWindow] != cellVisited && s.open(x-1, y) {
		s.state[(x-1)+y*PathWindow] = cellFrontier
	}
	if x < PathWindow-1 && s.state[(x+1)+y*PathWindow] != cellVisited && s.open(x+1, y) {
		s.state[(x+1)+y*PathWindow] = cellFrontier
	}
	if y > 0 && s.state[x+(y-1)*PathWindow] != cellVisited && s.open(x, y-1) {
		s.state[x+(y-1)*PathWindow] = cellFrontier
	}
	if y < PathWindow-1 && s.state[x+(y+1)*PathWindow] != cellVisited && s.open(x, y+1) {
		s.state[x+(y+1)*PathWindow] = cellFrontier
	}
	s.state[x+y*PathWindow] = cellVisited
}

// FindStep grows a greedy wavefront outward from the target to and returns
// the absolute cell the mover at from should step onto. The zero Point
// means no step was found inside the window or the iteration budget.
//
// This is deliberately not a shortest-path search: each round only the
// closest frontier cell seen so far is expanded.
func FindStep(grid Passability, from, to Point) Point {
	s := pathSearch{
		frontier: make([]Point, 0, PathWindow*4),
		grid:     grid,
		target:   to,
	}
	mover := Point{PathWindow/2 + from.X - to.X, PathWindow/2 + from.Y - to.Y}

	s.mark(PathWindow/2, PathWindow/2)

	for round := 0; round < PathIterations; round++ {
		s.frontier = s.frontier[:0]
		for x := 0; x < PathWindow; x++ {
			for y := 0; y < PathWindow; y++ {
				if s.state[x+y*PathWindow] == cellFrontier {
					s.frontier = append(s.frontier, Point{x, y})
				}
			}
		}
		if len(s.frontier) == 0 {
			return Point{}
		}

		best, bestDist := 0, 1024
		for k, cell := range s.frontier {
			d := Manhattan(mover, cell)
			if d <= 1 {
				return Point{cell.X - PathWindow/2 + to.X, cell.Y - PathWindow/2 + to.Y}
			}
			if d < bestDist {
				best, bestDist = k, d
			}
			// the running best is expanded after every candidate
			s.mark(s.frontier[best].X, s.frontier[best].Y)
		}
	}

	return Point{}
}
