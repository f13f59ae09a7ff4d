package game

import (
	"github.com/sirupsen/logrus"

	"that-night/internal/game/spatial"
	"that-night/internal/logger"
)

const (
	// enemyWindow is the half-size of the square around the player in which
	// enemies act.
	enemyWindow = 30

	zombieCooldown = 19
	bossCooldown   = 47

	summonCooldown = 6 * 60
	summonTries    = 4

	pathfindChance = 70

	zombieSpawnInterval = 60
	zombieSpawnDistance = 28

	bossSpawnDistance = 24
	bossBaseScore     = 200
	bossScoreStep     = 400
	bossBaseHP        = 3
)

type actor struct {
	pos   spatial.Point
	enemy *Enemy
}

// updateEnemies runs one decision for every enemy near the player, in
// ascending x then y order. Positions are collected up front so an enemy
// that moves further along the scan is not visited twice.
func (e *Engine) updateEnemies() {
	w := e.world
	pp := e.player.Pos

	e.actors = e.actors[:0]
	for x := max(0, pp.X-enemyWindow); x < min(pp.X+enemyWindow, w.Width()); x++ {
		for y := max(0, pp.Y-enemyWindow); y < min(pp.Y+enemyWindow, w.Height()); y++ {
			if enemy := w.Grid.Occupant(x, y); enemy != nil {
				e.actors = append(e.actors, actor{spatial.Point{X: x, Y: y}, enemy})
			}
		}
	}

	for _, a := range e.actors {
		e.actEnemy(a.pos, a.enemy)
	}
}

func (e *Engine) actEnemy(p spatial.Point, en *Enemy) {
	w := e.world
	tick := e.tick

	if en.Kind == EnemyBoss && tick >= en.LastSummon+en.SummonCooldown && (!en.Immobilized || en.SlowedUntil <= tick) {
		en.LastSummon = tick
		e.summon(p)
	}

	cd := en.Cooldown
	if en.Slowed(tick) {
		cd *= 3
	}
	if (en.Immobilized && en.Slowed(tick)) || en.Last+cd > tick {
		return
	}
	en.Last = tick

	var next spatial.Point
	if e.rng.Intn(100) < pathfindChance {
		next = spatial.FindStep(w.Grid, p, e.player.Pos)
	} else {
		dx := e.rng.Intn(3) - 1
		dy := 0
		if dx == 0 {
			dy = e.rng.Intn(3) - 1
		}
		next = p.Add(spatial.Point{X: dx, Y: dy})
	}

	// a zero coordinate is the pathfinder's "no move"
	if next.X == 0 || next.Y == 0 || !w.Grid.Passable(next.X, next.Y) {
		return
	}
	w.Grid.MoveOccupant(p, next)
	e.play(SoundWalking, 0.5*fadeNear(e.player.Pos, p))
	if en.Kind == EnemyBoss {
		w.Boss.Pos = next
	}
}

// summon tries a few random neighbouring cells for a fresh minion.
func (e *Engine) summon(p spatial.Point) {
	w := e.world
	for i := 0; i < summonTries; i++ {
		c := p.Add(spatial.Point{X: e.rng.Intn(3) - 1, Y: e.rng.Intn(3) - 1})
		if w.Grid.Passable(c.X, c.Y) {
			w.spawnEnemy(c, Enemy{HP: 1, MaxHP: 1, Last: e.tick, Cooldown: zombieCooldown})
			return
		}
	}
}

// spawnZombie adds one zombie far from the player, scaled to the score.
func (e *Engine) spawnZombie() {
	pp := e.player.Pos
	p, ok := e.randomFreeCell(0, func(p spatial.Point) bool {
		return spatial.Manhattan(p, pp) >= zombieSpawnDistance
	})
	if !ok {
		e.logPlacementMiss("zombie")
		return
	}
	hp := e.enemyHP()
	e.world.spawnEnemy(p, Enemy{HP: hp, MaxHP: hp, Cooldown: zombieCooldown})
}

// enemyHP is the max HP for the current score.
func (e *Engine) enemyHP() int {
	return 1 + e.player.Stats[StatScore]/1000
}

// bossDue reports whether the score has reached the next boss threshold
// with no boss alive.
func (e *Engine) bossDue() bool {
	b := &e.world.Boss
	return !b.Alive && e.player.Stats[StatScore] >= bossBaseScore+bossScoreStep*b.Nth
}

// spawnBoss places the next boss. A failed placement is retried next tick.
func (e *Engine) spawnBoss() {
	w := e.world
	pp := e.player.Pos
	p, ok := e.randomFreeCell(1, func(p spatial.Point) bool {
		return spatial.Manhattan(p, pp) > bossSpawnDistance
	})
	if !ok {
		e.logPlacementMiss("boss")
		return
	}

	e.play(SoundBossAppear, 0.5)
	hp := bossBaseHP + w.Boss.Nth
	w.spawnEnemy(p, Enemy{
		HP:             hp,
		MaxHP:          hp,
		Cooldown:       bossCooldown,
		Kind:           EnemyBoss,
		LastSummon:     e.tick,
		SummonCooldown: summonCooldown,
	})
	w.Boss.Nth++
	w.Boss.Alive = true
	w.Boss.Pos = p
	w.Boss.LastSpawn = e.tick

	e.emit(EventTypeBossSpawn, BossSpawnPayload{Nth: w.Boss.Nth, HP: hp, X: p.X, Y: p.Y})
	logger.Log.WithFields(logrus.Fields{
		"run":  e.runID,
		"tick": e.tick,
		"nth":  w.Boss.Nth,
		"hp":   hp,
	}).Info("boss spawned")
}

// rescaleEnemies resets every enemy's max HP after a 1000-point crossing.
// Current HP is left alone.
func (e *Engine) rescaleEnemies() {
	mhp := e.enemyHP()
	e.world.Grid.ForEachOccupant(func(_ spatial.Point, en *Enemy) {
		en.MaxHP = mhp
	})
}

// caughtByEnemy reports whether an enemy stands orthogonally next to the
// player.
func (e *Engine) caughtByEnemy() bool {
	g := e.world.Grid
	for _, d := range directions {
		c := e.player.Pos.Add(d)
		if g.InBounds(c.X, c.Y) && g.Occupant(c.X, c.Y) != nil {
			return true
		}
	}
	return false
}

func (e *Engine) logPlacementMiss(what string) {
	logger.Log.WithFields(logrus.Fields{
		"run":      e.runID,
		"tick":     e.tick,
		"entity":   what,
		"attempts": e.cfg.SpawnAttempts,
	}).Warn("random placement gave up")
}
