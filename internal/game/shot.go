package game

// fireShot fires one bullet along the aim direction. Nothing happens on
// cooldown, without ammo or without a held direction.
func (e *Engine) fireShot() {
	pl := e.player
	if !pl.ready(WeaponAmmo, e.tick) {
		return
	}
	aim, ok := e.controls.Aim()
	if !ok {
		return
	}
	dir, _ := aim.Direction()

	// NotConsumeAmmo is the chance to keep the round
	consume := e.rng.Intn(100) >= pl.Stats[StatNotConsumeAmmo]
	pl.spend(WeaponAmmo, e.tick, consume)

	e.world.Bullets = append(e.world.Bullets, Bullet{
		Pos:      pl.Pos,
		Dir:      dir,
		Damage:   pl.Stats[StatDmgAmmo],
		Pierce:   pl.Stats[StatPierceAmmo],
		Fork:     pl.Stats[StatForkAmmo],
		Cooldown: bulletCooldown,
		Start:    e.tick,
		Hit:      noHit,
		Source:   WeaponAmmo,
	})
	e.weaponUsed(WeaponAmmo)
}

// weaponUsed plays the use cue of w and logs the use.
func (e *Engine) weaponUsed(w Weapon) {
	spec := &weaponSpecs[w]
	e.play(spec.UseCue, spec.UseGain)
	e.emit(EventTypeWeaponUse, WeaponUsePayload{
		Weapon: w.String(),
		X:      e.player.Pos.X,
		Y:      e.player.Pos.Y,
	})
}
