package game

import "that-night/internal/game/spatial"

const bulletCooldown = 3

// advanceBullets moves every bullet whose cooldown has elapsed. A bullet
// entering the cell of an armed bomb sets it off and is consumed.
func (e *Engine) advanceBullets() {
	w := e.world
	for i := 0; i < len(w.Bullets); {
		b := &w.Bullets[i]
		if e.tick < b.Last+b.Cooldown {
			i++
			continue
		}
		b.Last = e.tick
		b.Pos = b.Pos.Add(b.Dir)

		if j := w.bombAt(b.Pos); j >= 0 && w.Bombs[j].Armed(e.tick) {
			w.Bombs[j].triggerAt(e.tick)
			w.Bullets = swapRemove(w.Bullets, i)
			continue
		}
		i++
	}
}

// resolveBullets applies bullet hits against enemies and walls.
func (e *Engine) resolveBullets() {
	w := e.world
	for i := 0; i < len(w.Bullets); {
		b := &w.Bullets[i]
		p := b.Pos

		if enemy := w.Grid.Occupant(p.X, p.Y); enemy != nil && b.Hit != enemy.UID {
			b.Hit = enemy.UID
			b.Pierce--
			b.Fork--

			dmg, src := b.Damage, b.Source
			if b.Fork >= 0 {
				e.forkBullet(*b)
			}
			// forking may have grown the slice; index again
			if w.Bullets[i].Pierce < 0 {
				w.Bullets = swapRemove(w.Bullets, i)
			}
			// any bullet kill scores as ammo, shrapnel and turret shots too
			e.damageEnemy(p, enemy, dmg, src, StatScoreAmmo)
			// the slot now holds either this bullet with its hit tag set or
			// a different bullet; look at it again
			continue
		}

		if tile := w.Grid.Tile(p.X, p.Y); tile.Solid() {
			tile.Hits++
			w.Grid.SetTile(p.X, p.Y, tile)
			w.Bullets = swapRemove(w.Bullets, i)
			continue
		}
		i++
	}
}

// forkBullet spawns the two perpendicular children of b, which already
// carries the decremented fork count.
func (e *Engine) forkBullet(b Bullet) {
	axis := spatial.Point{X: 0, Y: 1}
	if b.Dir.X == 0 {
		axis = spatial.Point{X: 1, Y: 0}
	}
	for _, k := range [2]int{-1, 1} {
		dir := spatial.Point{X: axis.X * k, Y: axis.Y * k}
		e.world.Bullets = append(e.world.Bullets, Bullet{
			Pos:      b.Pos.Add(dir),
			Dir:      dir,
			Damage:   b.Damage,
			Pierce:   0,
			Fork:     b.Fork,
			Last:     e.tick,
			Cooldown: bulletCooldown,
			Start:    e.tick,
			Hit:      noHit,
			Source:   b.Source,
		})
	}
}
