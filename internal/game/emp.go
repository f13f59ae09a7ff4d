package game

import "that-night/internal/game/spatial"

// fireEmp hits every enemy within the radius at once. The Emp record that
// remains only drives the visual.
func (e *Engine) fireEmp() {
	pl := e.player
	w := e.world
	if !pl.ready(WeaponEmp, e.tick) {
		return
	}

	emp := Emp{
		Pos:        pl.Pos,
		Start:      e.tick,
		Duration:   pl.Stats[StatDurEmp],
		Slow:       pl.Stats[StatSlowEmp],
		Radius:     pl.Stats[StatRadEmp],
		Damage:     pl.Stats[StatDmgEmp],
		Immobilize: pl.Stats[StatStunEmp] == 1,
	}

	slow := emp.Slow
	if emp.Immobilize {
		slow /= 2
	}

	for x := max(0, emp.Pos.X-emp.Radius); x <= min(w.Width()-1, emp.Pos.X+emp.Radius); x++ {
		for y := max(0, emp.Pos.Y-emp.Radius); y <= min(w.Height()-1, emp.Pos.Y+emp.Radius); y++ {
			p := spatial.Point{X: x, Y: y}
			if spatial.Manhattan(emp.Pos, p) > emp.Radius {
				continue
			}
			enemy := w.Grid.Occupant(x, y)
			if enemy == nil {
				continue
			}
			// slows stack: a fresh slow starts now, a running one is extended
			if enemy.SlowedUntil < e.tick {
				enemy.SlowedUntil = e.tick
			}
			enemy.SlowedUntil += slow
			enemy.Immobilized = emp.Immobilize
			e.damageEnemy(p, enemy, emp.Damage, WeaponEmp, StatScoreEmp)
		}
	}

	pl.spend(WeaponEmp, e.tick, true)
	w.Emps = append(w.Emps, emp)
	e.weaponUsed(WeaponEmp)
}

// expireEmps drops EMP visuals past their duration.
func (e *Engine) expireEmps() {
	kept := e.world.Emps[:0]
	for _, emp := range e.world.Emps {
		if e.tick < emp.Start+emp.Duration {
			kept = append(kept, emp)
		}
	}
	e.world.Emps = kept
}
