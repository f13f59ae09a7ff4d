package game

// turretDirection maps an aim action to an index into directions.
func turretDirection(a Action) int {
	switch a {
	case ActionUp:
		return 1
	case ActionRight:
		return 2
	case ActionDown:
		return 3
	default:
		return 0
	}
}

// fireTurret places a turret on the player's cell facing the aim direction,
// or a random one when no direction is held.
func (e *Engine) fireTurret() {
	pl := e.player
	w := e.world
	if !pl.ready(WeaponTurret, e.tick) || w.turretAt(pl.Pos) >= 0 || w.bombAt(pl.Pos) >= 0 {
		return
	}

	var dir int
	if aim, ok := e.controls.Aim(); ok {
		dir = turretDirection(aim)
	} else {
		dir = e.rng.Intn(len(directions))
	}

	w.Turrets = append(w.Turrets, Turret{
		Pos:       pl.Pos,
		Damage:    pl.Stats[StatDmgTurret],
		Direction: dir,
		Start:     e.tick,
		Duration:  pl.Stats[StatDurTurret],
		Cooldown:  pl.Stats[StatCdTurretShot],
		Last:      e.tick - pl.Stats[StatCdTurretShot],
	})
	pl.spend(WeaponTurret, e.tick, true)
	w.Grid.SetPassable(pl.Pos.X, pl.Pos.Y, false)
	e.weaponUsed(WeaponTurret)
}

// updateTurrets fires ready turrets and removes expired ones.
func (e *Engine) updateTurrets() {
	w := e.world
	for i := 0; i < len(w.Turrets); {
		t := &w.Turrets[i]

		if e.tick >= t.Last+t.Cooldown {
			t.Last = e.tick
			e.play(SoundTurretShoot, 0.3*fadeFar(e.player.Pos, t.Pos))
			w.Bullets = append(w.Bullets, Bullet{
				Pos:      t.Pos,
				Dir:      directions[t.Direction],
				Damage:   t.Damage,
				Cooldown: bulletCooldown,
				Start:    e.tick,
				Hit:      noHit,
				Source:   WeaponTurret,
			})
		}

		if e.tick >= t.Start+t.Duration {
			pos := t.Pos
			w.Turrets = swapRemove(w.Turrets, i)
			w.refreshPass(pos)
			continue
		}
		i++
	}
}
