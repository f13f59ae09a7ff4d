package game

import (
	"fmt"
	"math/rand"

	"that-night/internal/game/spatial"
)

// MapConfig drives procedural generation.
type MapConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// SafeRadius keeps the centre free of structure.
	SafeRadius int `yaml:"safe_radius"`

	Enemies int `yaml:"enemies"`
	// EnemySafeRadius keeps the initial horde away from the spawn point.
	EnemySafeRadius int `yaml:"enemy_safe_radius"`

	Chests int `yaml:"chests"`

	// MaxAttempts bounds rejection sampling per placed entity.
	MaxAttempts int `yaml:"max_attempts"`
}

// DefaultMapConfig is the stock 400x400 arena.
func DefaultMapConfig() MapConfig {
	return MapConfig{
		Width:           400,
		Height:          400,
		SafeRadius:      10,
		Enemies:         1024,
		EnemySafeRadius: 20,
		Chests:          480,
		MaxAttempts:     10_000,
	}
}

// Percent chances used by the structure pass.
const (
	structureChance    = 35
	solidWallChance    = 70
	isolatedWallChance = 3

	initialEnemyCooldown = 19
	initialEnemyStagger  = 120
)

// Generate builds a bordered arena with walls, the initial horde and the
// initial chests. It fails with ErrPlacementExhausted when the map cannot
// hold the requested entities.
func Generate(cfg MapConfig, rng *rand.Rand) (*World, error) {
	grid := spatial.NewGrid[Enemy](cfg.Width, cfg.Height)
	buildStructure(grid, cfg, rng)
	grid.DerivePassability()

	w := NewWorld(grid)
	center := grid.Center()

	if err := scatter(cfg.Enemies, cfg.MaxAttempts, rng, grid, func(p spatial.Point) bool {
		if spatial.Manhattan(p, center) <= cfg.EnemySafeRadius {
			return false
		}
		w.spawnEnemy(p, Enemy{
			HP:       1,
			MaxHP:    1,
			Last:     rng.Intn(initialEnemyStagger + 1),
			Cooldown: initialEnemyCooldown,
		})
		return true
	}); err != nil {
		return nil, fmt.Errorf("placing enemies: %w", err)
	}

	if err := scatter(cfg.Chests, cfg.MaxAttempts, rng, grid, func(p spatial.Point) bool {
		if p == center {
			return false
		}
		w.placeChest(p, spatial.ChestKind(rng.Intn(spatial.RegularChestKinds)), 0)
		return true
	}); err != nil {
		return nil, fmt.Errorf("placing chests: %w", err)
	}

	return w, nil
}

// buildStructure lays the border ring, then one cellular pass over the
// interior, then turns fully enclosed cells into movable walls.
func buildStructure(g *spatial.Grid[Enemy], cfg MapConfig, rng *rand.Rand) {
	w, h := g.Width(), g.Height()
	for x := 0; x < w; x++ {
		g.SetTile(x, 0, spatial.Wall(0))
		g.SetTile(x, h-1, spatial.Wall(0))
	}
	for y := 0; y < h; y++ {
		g.SetTile(0, y, spatial.Wall(0))
		g.SetTile(w-1, y, spatial.Wall(0))
	}

	isWall := func(x, y int) bool { return g.Tile(x, y).Kind == spatial.TileWall }
	center := g.Center()

	for x := 1; x < w-1; x++ {
		for y := 1; y < h-1; y++ {
			if spatial.Manhattan(center, spatial.Point{X: x, Y: y}) < cfg.SafeRadius {
				continue
			}
			// never close a 2x2 block of solid wall
			if isWall(x-1, y-1) && isWall(x-1, y) && isWall(x, y-1) {
				continue
			}

			walls := 0
			for dx := -1; dx <= 1; dx++ {
				for dy := -1; dy <= 1; dy++ {
					if isWall(x+dx, y+dy) {
						walls++
					}
				}
			}

			if walls > 0 && rng.Intn(100) < structureChance {
				if rng.Intn(100) < solidWallChance {
					g.SetTile(x, y, spatial.Wall(0))
				} else {
					g.SetTile(x, y, spatial.MovableWall(0))
				}
			} else if rng.Intn(100) < isolatedWallChance {
				g.SetTile(x, y, spatial.Wall(0))
			}
		}
	}

	solid := func(x, y int) bool { return g.Tile(x, y).Solid() }
	for x := 1; x < w-1; x++ {
		for y := 1; y < h-1; y++ {
			if solid(x-1, y) && solid(x+1, y) && solid(x, y-1) && solid(x, y+1) {
				g.SetTile(x, y, spatial.MovableWall(0))
			}
		}
	}
}

// scatter rolls random passable cells and hands them to place until n
// placements succeed. Each placement gets maxAttempts rolls.
func scatter(n, maxAttempts int, rng *rand.Rand, g *spatial.Grid[Enemy], place func(spatial.Point) bool) error {
	for placed := 0; placed < n; placed++ {
		ok := false
		for attempt := 0; attempt < maxAttempts; attempt++ {
			p := spatial.Point{X: rng.Intn(g.Width()), Y: rng.Intn(g.Height())}
			if !g.Passable(p.X, p.Y) {
				continue
			}
			if place(p) {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: placed %d of %d", ErrPlacementExhausted, placed, n)
		}
	}
	return nil
}
