package spatial

import "testing"

// openArena returns a grid with only a border ring of walls.
func openArena(w, h int) *Grid[marker] {
	g := NewGrid[marker](w, h)
	for x := 0; x < w; x++ {
		g.SetTile(x, 0, Wall(0))
		g.SetTile(x, h-1, Wall(0))
	}
	for y := 0; y < h; y++ {
		g.SetTile(0, y, Wall(0))
		g.SetTile(w-1, y, Wall(0))
	}
	g.DerivePassability()
	return g
}

// TestFindStepStraightLine verifies a mover two cells away steps next to the target
func TestFindStepStraightLine(t *testing.T) {
	tests := []struct {
		name  string
		mover Point
		want  Point
	}{
		{"from east", Point{22, 20}, Point{21, 20}},
		{"from west", Point{18, 20}, Point{19, 20}},
		{"from south", Point{20, 22}, Point{20, 21}},
		{"from north", Point{20, 18}, Point{20, 19}},
	}

	target := Point{20, 20}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := openArena(40, 40)
			g.Place(tt.mover.X, tt.mover.Y, &marker{})

			got := FindStep(g, tt.mover, target)
			if got != tt.want {
				t.Errorf("Expected step %v, got %v", tt.want, got)
			}
			if Manhattan(got, target) >= Manhattan(tt.mover, target) {
				t.Errorf("Step %v does not approach target", got)
			}
		})
	}
}

// TestFindStepAdjacentToMover verifies any returned step is a passable cell
// within one step of the mover
func TestFindStepAdjacentToMover(t *testing.T) {
	g := openArena(60, 60)
	target := Point{30, 30}

	for _, mover := range []Point{{35, 33}, {25, 27}, {30, 40}, {41, 30}} {
		g.Place(mover.X, mover.Y, &marker{})
		step := FindStep(g, mover, target)
		g.Take(mover.X, mover.Y)

		if step.IsZero() {
			t.Errorf("Expected a step from %v in an open arena", mover)
			continue
		}
		if Manhattan(step, mover) > 1 {
			t.Errorf("Step %v is not next to mover %v", step, mover)
		}
		if !g.Passable(step.X, step.Y) {
			t.Errorf("Step %v is not passable", step)
		}
	}
}

// TestFindStepEnclosedTarget verifies the search gives up when the target is walled in
func TestFindStepEnclosedTarget(t *testing.T) {
	g := openArena(40, 40)
	target := Point{20, 20}
	for _, d := range []Point{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		c := target.Add(d)
		g.SetTile(c.X, c.Y, Wall(0))
		g.SetPassable(c.X, c.Y, false)
	}

	if got := FindStep(g, Point{25, 20}, target); !got.IsZero() {
		t.Errorf("Expected no step, got %v", got)
	}
}

// TestFindStepOutsideWindow verifies a mover beyond the window never gets a step
func TestFindStepOutsideWindow(t *testing.T) {
	g := openArena(100, 100)
	got := FindStep(g, Point{80, 80}, Point{20, 20})
	if !got.IsZero() {
		t.Errorf("Expected no step for a far mover, got %v", got)
	}
}

// TestFindStepDeterministic verifies identical inputs give identical answers
func TestFindStepDeterministic(t *testing.T) {
	g := openArena(50, 50)
	for i := 10; i < 30; i += 3 {
		g.SetTile(i, 22, Wall(0))
		g.SetPassable(i, 22, false)
	}
	from, to := Point{18, 30}, Point{20, 15}
	g.Place(from.X, from.Y, &marker{})

	first := FindStep(g, from, to)
	for i := 0; i < 5; i++ {
		if got := FindStep(g, from, to); got != first {
			t.Fatalf("Expected %v on repeat, got %v", first, got)
		}
	}
}
