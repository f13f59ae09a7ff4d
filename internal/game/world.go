package game

import "that-night/internal/game/spatial"

// EnemyKind distinguishes plain zombies from the boss.
type EnemyKind uint8

const (
	EnemyZombie EnemyKind = iota
	EnemyBoss
)

// String returns the enemy kind name
func (k EnemyKind) String() string {
	if k == EnemyBoss {
		return "boss"
	}
	return "zombie"
}

// Enemy is owned by the grid cell it stands on.
type Enemy struct {
	UID   int
	HP    int
	MaxHP int

	Last     int // tick of the last move
	Cooldown int // ticks between moves

	SlowedUntil int
	Immobilized bool

	Kind EnemyKind

	// Summoning state, used by the boss only.
	LastSummon     int
	SummonCooldown int
}

// Slowed reports whether the enemy is slowed at tick.
func (e *Enemy) Slowed(tick int) bool {
	return e.SlowedUntil > tick
}

// Bullet travels one cell per Cooldown ticks along Dir.
type Bullet struct {
	Pos      spatial.Point
	Dir      spatial.Point
	Damage   int
	Pierce   int
	Fork     int
	Last     int
	Cooldown int
	Start    int

	// Hit is the uid of the enemy last damaged, or noHit.
	Hit int

	// Source is the weapon a kill is credited to. Every bullet kill scores
	// the ammo bonus.
	Source Weapon
}

const noHit = -1

// Bomb goes off Duration ticks after Start.
type Bomb struct {
	Pos      spatial.Point
	Radius   int
	Damage   int
	Start    int
	Duration int
}

// End returns the tick the bomb is removed.
func (b *Bomb) End() int {
	return b.Start + b.Duration
}

// Armed reports whether the bomb can still be triggered early at tick.
func (b *Bomb) Armed(tick int) bool {
	return tick < b.End()-bombFuseWindow
}

// Turret fires along a fixed direction until it expires.
type Turret struct {
	Pos       spatial.Point
	Damage    int
	Direction int // index into directions
	Start     int
	Duration  int
	Cooldown  int
	Last      int
}

// Emp is kept only for its visual lifetime; its effect is applied on cast.
type Emp struct {
	Pos        spatial.Point
	Start      int
	Duration   int
	Slow       int
	Radius     int
	Damage     int
	Immobilize bool
}

// BossTracker mirrors the live boss, if any.
type BossTracker struct {
	Nth       int // bosses spawned so far
	LastSpawn int
	Alive     bool
	Pos       spatial.Point
}

// directions is indexed by turret direction and shrapnel rolls.
var directions = [4]spatial.Point{{X: -1, Y: 0}, {X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}}

// World owns the grid and every entity collection.
type World struct {
	Grid    *spatial.Grid[Enemy]
	Bullets []Bullet
	Bombs   []Bomb
	Turrets []Turret
	Emps    []Emp
	Chests  ChestQueue
	Boss    BossTracker

	spawned int // next enemy uid
	live    int
}

// NewWorld wraps an already built grid.
func NewWorld(grid *spatial.Grid[Enemy]) *World {
	return &World{Grid: grid}
}

// Width returns the grid width.
func (w *World) Width() int { return w.Grid.Width() }

// Height returns the grid height.
func (w *World) Height() int { return w.Grid.Height() }

// Spawned returns how many enemies have ever been created.
func (w *World) Spawned() int { return w.spawned }

// spawnEnemy places a fresh enemy at p and returns it.
func (w *World) spawnEnemy(p spatial.Point, e Enemy) *Enemy {
	e.UID = w.spawned
	w.spawned++
	w.live++
	ptr := &e
	w.Grid.Place(p.X, p.Y, ptr)
	return ptr
}

func (w *World) bombAt(p spatial.Point) int {
	for i := range w.Bombs {
		if w.Bombs[i].Pos == p {
			return i
		}
	}
	return -1
}

func (w *World) turretAt(p spatial.Point) int {
	for i := range w.Turrets {
		if w.Turrets[i].Pos == p {
			return i
		}
	}
	return -1
}

// refreshPass recomputes passability of a single cell, honouring turrets
// that block without occupying.
func (w *World) refreshPass(p spatial.Point) {
	pass := w.Grid.Tile(p.X, p.Y).Kind == spatial.TileEmpty &&
		w.Grid.Occupant(p.X, p.Y) == nil &&
		w.turretAt(p) < 0
	w.Grid.SetPassable(p.X, p.Y, pass)
}

// CheckPassability returns the first cell that is passable while holding a
// tile or an occupant. ok is true when the grid is consistent.
func (w *World) CheckPassability() (bad spatial.Point, ok bool) {
	for y := 0; y < w.Height(); y++ {
		for x := 0; x < w.Width(); x++ {
			if !w.Grid.Passable(x, y) {
				continue
			}
			if w.Grid.Tile(x, y).Kind != spatial.TileEmpty || w.Grid.Occupant(x, y) != nil {
				return spatial.Point{X: x, Y: y}, false
			}
		}
	}
	return spatial.Point{}, true
}

// removeEnemy frees the enemy cell at p.
func (w *World) removeEnemy(p spatial.Point) {
	w.Grid.Take(p.X, p.Y)
	w.live--
}

// EnemyCount returns the number of live enemies.
func (w *World) EnemyCount() int { return w.live }
