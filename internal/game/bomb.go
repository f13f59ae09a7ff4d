package game

import "that-night/internal/game/spatial"

const (
	// bombFuseWindow is the tail of the fuse during which a bomb can no
	// longer be set off early.
	bombFuseWindow = 20

	// bombBlastOffset is when, before removal, the blast resolves.
	bombBlastOffset = 10

	bombTickPeriod = 60
)

var (
	plusOffsets     = [4]spatial.Point{{X: -1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: -1}}
	diagonalOffsets = [4]spatial.Point{{X: -1, Y: -1}, {X: -1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: -1}}
)

// triggerAt shortens the fuse so the bomb enters its final window at tick.
func (b *Bomb) triggerAt(tick int) {
	b.Start = tick + bombFuseWindow - b.Duration
}

// fireBomb drops a bomb on the player's cell.
func (e *Engine) fireBomb() {
	pl := e.player
	w := e.world
	if !pl.ready(WeaponBomb, e.tick) || w.bombAt(pl.Pos) >= 0 || w.turretAt(pl.Pos) >= 0 {
		return
	}

	w.Bombs = append(w.Bombs, Bomb{
		Pos:      pl.Pos,
		Radius:   pl.Stats[StatRadBomb],
		Damage:   pl.Stats[StatDmgBomb],
		Start:    e.tick,
		Duration: pl.Stats[StatFuseTimeBomb],
	})
	pl.spend(WeaponBomb, e.tick, true)
	e.weaponUsed(WeaponBomb)
}

// updateBombs plays fuse cues, resolves blasts and drops spent bombs.
func (e *Engine) updateBombs() {
	w := e.world
	for i := range w.Bombs {
		b := w.Bombs[i]
		end := b.End()
		if e.tick >= end {
			continue
		}

		if (e.tick-b.Start+bombTickPeriod/2)%bombTickPeriod == 0 {
			e.play(SoundBombTick, 0.75*fadeFar(e.player.Pos, b.Pos))
		}
		if e.tick == end-bombFuseWindow {
			e.play(SoundBombExplosion, 0.8*fadeFar(e.player.Pos, b.Pos))
		}
		if e.tick == end-bombBlastOffset {
			e.detonate(i)
		}
	}

	kept := w.Bombs[:0]
	for _, b := range w.Bombs {
		if e.tick < b.End() {
			kept = append(kept, b)
		}
	}
	w.Bombs = kept
}

// detonate resolves the blast of bomb i.
func (e *Engine) detonate(i int) {
	w := e.world
	pl := e.player
	b := w.Bombs[i]

	// the plus sign is cleared; bullets stuck in walls fly out as shrapnel
	for _, d := range plusOffsets {
		c := b.Pos.Add(d)
		if !w.Grid.Interior(c.X, c.Y) {
			continue
		}
		tile := w.Grid.Tile(c.X, c.Y)
		switch {
		case tile.Solid():
			for k := 0; k < tile.Hits; k++ {
				dir := directions[e.rng.Intn(len(directions))]
				w.Bullets = append(w.Bullets, Bullet{
					Pos:      c,
					Dir:      dir,
					Damage:   pl.Stats[StatDmgBomb],
					Cooldown: 2 + e.rng.Intn(3),
					Start:    e.tick,
					Hit:      noHit,
					Source:   WeaponBomb,
				})
			}
		case tile.Kind == spatial.TileChest:
			invariant(w.Chests.Remove(c), "blasted chest at %v missing from queue", c)
		}
		w.Grid.SetTile(c.X, c.Y, spatial.Tile{})
		w.refreshPass(c)
	}

	// diagonal walls crack into movable walls
	for _, d := range diagonalOffsets {
		c := b.Pos.Add(d)
		if !w.Grid.Interior(c.X, c.Y) {
			continue
		}
		if tile := w.Grid.Tile(c.X, c.Y); tile.Kind == spatial.TileWall {
			w.Grid.SetTile(c.X, c.Y, spatial.MovableWall(tile.Hits))
		}
	}

	// damage every enemy in the diamond, clamped inside the border ring
	for x := max(1, b.Pos.X-b.Radius); x <= min(w.Width()-2, b.Pos.X+b.Radius); x++ {
		reach := b.Radius - abs(b.Pos.X-x)
		for y := max(1, b.Pos.Y-reach); y <= min(w.Height()-2, b.Pos.Y+reach); y++ {
			if enemy := w.Grid.Occupant(x, y); enemy != nil {
				e.damageEnemy(spatial.Point{X: x, Y: y}, enemy, b.Damage, WeaponBomb, StatScoreBomb)
			}
		}
	}

	if spatial.Manhattan(b.Pos, pl.Pos) <= b.Radius {
		e.kill(deathBlast)
	}

	// chain: armed bombs in range go off in step with this one
	for j := range w.Bombs {
		other := &w.Bombs[j]
		if j != i && spatial.Manhattan(b.Pos, other.Pos) <= b.Radius && e.tick <= other.End()-bombFuseWindow {
			other.triggerAt(e.tick)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
