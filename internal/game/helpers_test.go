package game

import (
	"math/rand"
	"testing"

	"that-night/internal/game/spatial"
)

// memLedger keeps the record in memory and counts saves
type memLedger struct {
	rec   Record
	saves int
	err   error
}

func (m *memLedger) Load() (Record, error) { return m.rec, nil }

func (m *memLedger) Save(r Record) error {
	m.saves++
	m.rec = r
	return m.err
}

// effectRecorder collects every effect handed to it
type effectRecorder struct {
	fx []Effect
}

func (r *effectRecorder) HandleEffects(fx []Effect) {
	r.fx = append(r.fx, fx...)
}

func (r *effectRecorder) count(s Sound) int {
	n := 0
	for _, f := range r.fx {
		if f.Kind == EffectSound && f.Sound == s {
			n++
		}
	}
	return n
}

// newTestEngine builds an engine around an empty bordered w×h arena with the
// player in the middle and no enemies or chests.
func newTestEngine(t *testing.T, w, h int) *Engine {
	t.Helper()

	g := spatial.NewGrid[Enemy](w, h)
	for x := 0; x < w; x++ {
		g.SetTile(x, 0, spatial.Wall(0))
		g.SetTile(x, h-1, spatial.Wall(0))
	}
	for y := 0; y < h; y++ {
		g.SetTile(0, y, spatial.Wall(0))
		g.SetTile(w-1, y, spatial.Wall(0))
	}
	g.DerivePassability()

	cfg := DefaultEngineConfig()
	cfg.Seed = 1
	cfg.SpawnAttempts = 200

	e := &Engine{
		cfg:          cfg,
		world:        NewWorld(g),
		rng:          rand.New(rand.NewSource(cfg.Seed)),
		rngSeed:      cfg.Seed,
		record:       NewRecord(),
		runID:        "test-run",
		snapshotPool: NewSnapshotPool(cfg.Limits),
		eventLog:     NewEventLog(),
		intents:      NewIntentQueue(intentQueueSize),
		stopChan:     make(chan struct{}),
	}
	e.player = NewPlayer(CharacterJoshua, g.Center())
	return e
}

// placeIdle puts an enemy that never moves on its own at (x, y).
func placeIdle(e *Engine, x, y, hp int) *Enemy {
	return e.world.spawnEnemy(spatial.Point{X: x, Y: y}, Enemy{
		HP:       hp,
		MaxHP:    hp,
		Last:     1 << 30,
		Cooldown: zombieCooldown,
	})
}

// runBullets advances and resolves bullets for ticks from..to inclusive.
func runBullets(e *Engine, from, to int) {
	for tick := from; tick <= to; tick++ {
		e.tick = tick
		e.advanceBullets()
		e.resolveBullets()
	}
}

// testBullet is a plain rifle bullet at p heading along dir.
func testBullet(p, dir spatial.Point) Bullet {
	return Bullet{
		Pos:      p,
		Dir:      dir,
		Damage:   1,
		Cooldown: bulletCooldown,
		Hit:      noHit,
		Source:   WeaponAmmo,
	}
}
