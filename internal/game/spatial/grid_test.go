package spatial

import "testing"

type marker struct{ id int }

// TestNewGrid verifies a fresh grid is empty and passable
func TestNewGrid(t *testing.T) {
	g := NewGrid[marker](8, 6)

	if g.Width() != 8 || g.Height() != 6 {
		t.Fatalf("Expected 8x6, got %dx%d", g.Width(), g.Height())
	}
	if c := g.Center(); c != (Point{4, 3}) {
		t.Errorf("Expected center (4,3), got %v", c)
	}
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			if !g.Passable(x, y) {
				t.Errorf("Expected (%d,%d) passable", x, y)
			}
			if g.Tile(x, y).Kind != TileEmpty {
				t.Errorf("Expected (%d,%d) empty", x, y)
			}
		}
	}
}

// TestGridOccupancy verifies place/take/move keep passability in sync
func TestGridOccupancy(t *testing.T) {
	g := NewGrid[marker](5, 5)
	m := &marker{id: 7}

	g.Place(2, 2, m)
	if g.Passable(2, 2) {
		t.Error("Occupied cell should be impassable")
	}
	if g.Occupant(2, 2) != m {
		t.Error("Occupant should be the placed marker")
	}

	g.MoveOccupant(Point{2, 2}, Point{3, 2})
	if g.Occupant(2, 2) != nil || !g.Passable(2, 2) {
		t.Error("Vacated cell should be empty and passable")
	}
	if g.Occupant(3, 2) != m || g.Passable(3, 2) {
		t.Error("Destination should own the marker and be impassable")
	}

	if got := g.Take(3, 2); got != m {
		t.Errorf("Expected Take to return marker, got %v", got)
	}
	if !g.Passable(3, 2) {
		t.Error("Cell should be passable after Take")
	}
}

// TestGridTakeKeepsChestBlocked verifies an occupant leaving a chest cell
// does not make the chest walkable for others
func TestGridTakeKeepsChestBlocked(t *testing.T) {
	g := NewGrid[marker](5, 5)
	g.SetTile(1, 1, ChestTile(Chest{Kind: ChestFood}))
	g.Place(1, 1, &marker{})
	g.Take(1, 1)

	if g.Passable(1, 1) {
		t.Error("Chest cell should stay impassable")
	}
}

// TestDerivePassability verifies the passability invariant after derivation
func TestDerivePassability(t *testing.T) {
	g := NewGrid[marker](6, 6)
	g.SetTile(1, 1, Wall(0))
	g.SetTile(2, 1, MovableWall(3))
	g.SetTile(3, 1, ChestTile(Chest{Kind: ChestAmmo}))
	g.occupants[g.index(4, 4)] = &marker{}

	g.DerivePassability()

	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			if g.Passable(x, y) && (g.Tile(x, y).Kind != TileEmpty || g.Occupant(x, y) != nil) {
				t.Errorf("Cell (%d,%d) passable but not empty", x, y)
			}
		}
	}
	if !g.Passable(0, 0) {
		t.Error("Empty cell should be passable")
	}
}

// TestGridOutOfBoundsPanics verifies out-of-range access is fatal
func TestGridOutOfBoundsPanics(t *testing.T) {
	tests := []struct {
		name string
		x, y int
	}{
		{"negative x", -1, 0},
		{"negative y", 0, -1},
		{"x past width", 4, 0},
		{"y past height", 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGrid[marker](4, 4)
			defer func() {
				if recover() == nil {
					t.Errorf("Expected panic for (%d,%d)", tt.x, tt.y)
				}
			}()
			g.Tile(tt.x, tt.y)
		})
	}
}

// TestManhattan tests the grid distance metric
func TestManhattan(t *testing.T) {
	tests := []struct {
		a, b Point
		want int
	}{
		{Point{0, 0}, Point{0, 0}, 0},
		{Point{1, 2}, Point{4, 6}, 7},
		{Point{5, 5}, Point{2, 9}, 7},
	}

	for _, tt := range tests {
		if got := Manhattan(tt.a, tt.b); got != tt.want {
			t.Errorf("Manhattan(%v,%v): expected %d, got %d", tt.a, tt.b, tt.want, got)
		}
	}
}

// TestTileSolid tests wall classification
func TestTileSolid(t *testing.T) {
	tests := []struct {
		tile Tile
		want bool
	}{
		{Tile{}, false},
		{Wall(0), true},
		{MovableWall(2), true},
		{ChestTile(Chest{Kind: ChestRainbow}), false},
	}

	for _, tt := range tests {
		if got := tt.tile.Solid(); got != tt.want {
			t.Errorf("%s: expected solid=%v, got %v", tt.tile.Kind, tt.want, got)
		}
	}
}
