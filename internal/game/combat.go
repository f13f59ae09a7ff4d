package game

import "that-night/internal/game/spatial"

const (
	bossKillScore = 100

	// Base chance in percent that a zombie drops a chest; luck adds to it.
	dropChance = 65
)

// damageEnemy applies dmg to the enemy at p and resolves the kill. src is
// the weapon the kill is credited to; a zombie kill scores the bonus stat.
// It reports whether the enemy died.
func (e *Engine) damageEnemy(p spatial.Point, enemy *Enemy, dmg int, src Weapon, bonus Stat) bool {
	enemy.HP -= dmg
	if enemy.HP > 0 {
		if dmg > 0 {
			e.play(SoundZombieHit, 0.3*fadeFar(e.player.Pos, p))
		}
		return false
	}
	e.killEnemy(p, enemy, src, bonus)
	return true
}

// killEnemy is the single kill path shared by every weapon: the cell is
// freed, score is awarded, and loot drops.
func (e *Engine) killEnemy(p spatial.Point, enemy *Enemy, src Weapon, bonus Stat) {
	pl := e.player
	w := e.world

	pl.Progress.Killed++
	w.removeEnemy(p)
	e.play(SoundZombieDeath, 0.3*fadeFar(pl.Pos, p))

	switch enemy.Kind {
	case EnemyZombie:
		pl.Stats[StatScore] += pl.Stats[bonus]
		if e.rng.Intn(100) < dropChance+pl.Stats[StatLuck] {
			w.placeChest(p, spatial.ChestKind(e.rng.Intn(spatial.RegularChestKinds)), e.tick)
		}
	case EnemyBoss:
		w.Boss.Alive = false
		pl.Stats[StatScore] += bossKillScore
		e.openUpgrade()
		w.placeChest(p, spatial.ChestRainbow, e.tick)
	}

	e.emit(EventTypeKill, KillPayload{
		EnemyUID: enemy.UID,
		Kind:     enemy.Kind.String(),
		Weapon:   src.String(),
		X:        p.X,
		Y:        p.Y,
		Score:    pl.Stats[StatScore],
	})
	if e.observer != nil {
		e.observer.ObserveKill(enemy.Kind, src)
	}
}

// openUpgrade pauses the run and rolls a level-up choice.
func (e *Engine) openUpgrade() {
	pl := e.player
	pl.Paused = true
	pl.Upgrading = newUpgradeSession(pl, e.rng)
	e.play(SoundUpgrade, 1.0)
}

// chooseUpgrade applies the selected upgrade and resumes the run.
func (e *Engine) chooseUpgrade() {
	pl := e.player
	u := pl.Upgrading.Selected()
	u.Apply(pl)
	pl.Upgrading = nil
	pl.Paused = false
	e.emit(EventTypeUpgrade, UpgradePayload{Upgrade: u.String(), Tally: pl.Upgrades[u]})
}

func swapRemove[T any](s []T, i int) []T {
	last := len(s) - 1
	s[i] = s[last]
	var zero T
	s[last] = zero
	return s[:last]
}
