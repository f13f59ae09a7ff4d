package game

import (
	"sync/atomic"
	"time"

	"that-night/internal/game/spatial"
)

// Camera half-extents in cells
const (
	ViewHalfWidth  = 24
	ViewHalfHeight = 12
)

// ResourceLimits caps what a snapshot copies out of the world
type ResourceLimits struct {
	MaxEnemies int // Per frame enemies inside the view
	MaxBullets int
	MaxBombs   int
	MaxTurrets int
	MaxEmps    int
	MaxEffects int // Per frame effect events
}

// DefaultLimits are generous enough that a normal run never hits them
var DefaultLimits = ResourceLimits{
	MaxEnemies: 1225, // every cell of the view
	MaxBullets: 512,
	MaxBombs:   64,
	MaxTurrets: 64,
	MaxEmps:    32,
	MaxEffects: 128,
}

// TileSnapshot is one visible cell
type TileSnapshot struct {
	Kind  spatial.TileKind  `json:"kind"`
	Chest spatial.ChestKind `json:"chest,omitempty"`
	Hits  int               `json:"hits,omitempty"`
}

// EnemySnapshot is an immutable enemy for rendering
type EnemySnapshot struct {
	X       int     `json:"x"`
	Y       int     `json:"y"`
	HPRatio float64 `json:"hpRatio"`
	Boss    bool    `json:"boss,omitempty"`
	Slowed  bool    `json:"slowed,omitempty"`
}

// BulletSnapshot is an immutable bullet
type BulletSnapshot struct {
	X   int `json:"x"`
	Y   int `json:"y"`
	Age int `json:"age"`
}

// BombSnapshot is an immutable bomb
type BombSnapshot struct {
	X         int `json:"x"`
	Y         int `json:"y"`
	Radius    int `json:"radius"`
	Remaining int `json:"remaining"` // ticks until removal
}

// TurretSnapshot is an immutable turret
type TurretSnapshot struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Direction int     `json:"direction"`
	Charge    float64 `json:"charge"` // 0..1 towards the next shot
}

// EmpSnapshot is an immutable EMP visual
type EmpSnapshot struct {
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Radius   int     `json:"radius"`
	Progress float64 `json:"progress"`
}

// PlayerSnapshot is an immutable copy of player state for rendering
type PlayerSnapshot struct {
	X         int              `json:"x"`
	Y         int              `json:"y"`
	Character string           `json:"character"`
	Stats     Stats            `json:"stats"`
	Killed    int              `json:"killed"`
	Used      [WeaponCount]int `json:"used"`
	Dead      bool             `json:"dead"`
	Paused    bool             `json:"paused"`
	Running   bool             `json:"running"`
}

// BossSnapshot points from the player towards the live boss
type BossSnapshot struct {
	Alive bool    `json:"alive"`
	DX    int     `json:"dx"`
	DY    int     `json:"dy"`
	Angle float64 `json:"angle"` // radians, screen up is positive
}

// UpgradeSnapshot mirrors an open upgrade session
type UpgradeSnapshot struct {
	Open    bool     `json:"open"`
	Choices []string `json:"choices"`
	Cursor  int      `json:"cursor"`
}

// GameSnapshot is a complete immutable view for rendering.
// All slices are pre-allocated and capped.
type GameSnapshot struct {
	Sequence   uint64    `json:"sequence"`
	Timestamp  time.Time `json:"timestamp"`
	TickNumber uint64    `json:"tick"`
	RNGSeed    int64     `json:"rngSeed"`
	RunID      string    `json:"runId"`

	MapWidth  int `json:"mapWidth"`
	MapHeight int `json:"mapHeight"`

	// View origin and size; Tiles is row-major over the view
	ViewX      int            `json:"viewX"`
	ViewY      int            `json:"viewY"`
	ViewWidth  int            `json:"viewWidth"`
	ViewHeight int            `json:"viewHeight"`
	Tiles      []TileSnapshot `json:"tiles"`

	Enemies []EnemySnapshot  `json:"enemies"`
	Bullets []BulletSnapshot `json:"bullets"`
	Bombs   []BombSnapshot   `json:"bombs"`
	Turrets []TurretSnapshot `json:"turrets"`
	Emps    []EmpSnapshot    `json:"emps"`
	Effects []Effect         `json:"effects"`

	Player  PlayerSnapshot  `json:"player"`
	Boss    BossSnapshot    `json:"boss"`
	Upgrade UpgradeSnapshot `json:"upgrade"`

	// Aggregate stats
	EnemyCount int `json:"enemyCount"`
	ChestCount int `json:"chestCount"`
	BossesSeen int `json:"bossesSeen"`
}

// TileAt returns the visible tile at absolute (x, y).
func (s *GameSnapshot) TileAt(x, y int) (TileSnapshot, bool) {
	vx, vy := x-s.ViewX, y-s.ViewY
	if vx < 0 || vy < 0 || vx >= s.ViewWidth || vy >= s.ViewHeight {
		return TileSnapshot{}, false
	}
	return s.Tiles[vy*s.ViewWidth+vx], true
}

// SnapshotPool publishes one immutable snapshot per tick. A published
// snapshot is never written again, so readers may keep it as long as they
// like; the next tick builds a fresh one sized from the last.
type SnapshotPool struct {
	latest   atomic.Pointer[GameSnapshot]
	pending  *GameSnapshot // producer only
	limits   ResourceLimits
	sequence atomic.Uint64
}

// NewSnapshotPool creates a pool whose first read is an empty snapshot.
func NewSnapshotPool(limits ResourceLimits) *SnapshotPool {
	pool := &SnapshotPool{limits: limits}
	pool.latest.Store(&GameSnapshot{Timestamp: time.Now()})
	return pool
}

// AcquireWrite starts the next snapshot (producer only, called from the tick).
func (p *SnapshotPool) AcquireWrite() *GameSnapshot {
	prev := p.latest.Load()
	viewCells := (2*ViewHalfWidth + 1) * (2*ViewHalfHeight + 1)

	p.pending = &GameSnapshot{
		Tiles:     make([]TileSnapshot, 0, viewCells),
		Enemies:   make([]EnemySnapshot, 0, min(len(prev.Enemies)+8, p.limits.MaxEnemies)),
		Bullets:   make([]BulletSnapshot, 0, min(len(prev.Bullets)+8, p.limits.MaxBullets)),
		Bombs:     make([]BombSnapshot, 0, len(prev.Bombs)),
		Turrets:   make([]TurretSnapshot, 0, len(prev.Turrets)),
		Emps:      make([]EmpSnapshot, 0, len(prev.Emps)),
		Effects:   make([]Effect, 0, len(prev.Effects)),
		Sequence:  p.sequence.Add(1),
		Timestamp: time.Now(),
	}
	return p.pending
}

// PublishWrite makes the snapshot from AcquireWrite the latest.
func (p *SnapshotPool) PublishWrite() {
	if p.pending == nil {
		return
	}
	p.latest.Store(p.pending)
	p.pending = nil
}

// AcquireRead returns the latest published snapshot. It is never nil.
func (p *SnapshotPool) AcquireRead() *GameSnapshot {
	return p.latest.Load()
}

// GetLimits returns the resource limits
func (p *SnapshotPool) GetLimits() ResourceLimits {
	return p.limits
}
