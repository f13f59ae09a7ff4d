package game

import (
	"testing"

	"that-night/internal/game/spatial"
)

// TestBulletPierceThroughLine tests that pierce 2 kills a line of three
func TestBulletPierceThroughLine(t *testing.T) {
	e := newTestEngine(t, 21, 21)
	for _, x := range []int{12, 13, 14} {
		placeIdle(e, x, 10, 1)
	}

	b := testBullet(spatial.Point{X: 10, Y: 10}, spatial.Point{X: 1, Y: 0})
	b.Pierce = 2
	e.world.Bullets = append(e.world.Bullets, b)

	runBullets(e, 0, 15)

	if e.player.Progress.Killed != 3 {
		t.Errorf("Expected 3 kills, got %d", e.player.Progress.Killed)
	}
	if e.world.EnemyCount() != 0 {
		t.Errorf("Expected no enemies left, got %d", e.world.EnemyCount())
	}
	if len(e.world.Bullets) != 0 {
		t.Errorf("Expected bullet to be spent after third hit, got %d bullets", len(e.world.Bullets))
	}
	if got := e.player.Stats[StatScore]; got != 9 {
		t.Errorf("Expected score 9 from three rifle kills, got %d", got)
	}
}

// TestBulletKillsScoreAsAmmo tests that shrapnel and turret shots score the
// ammo bonus while the kill stays credited to their weapon
func TestBulletKillsScoreAsAmmo(t *testing.T) {
	tests := []struct {
		name   string
		source Weapon
	}{
		{"rifle", WeaponAmmo},
		{"shrapnel", WeaponBomb},
		{"turret", WeaponTurret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, 21, 21)
			e.player.Stats[StatScoreAmmo] = 3
			e.player.Stats[StatScoreBomb] = 20
			e.player.Stats[StatScoreTurret] = 30
			kills := &killRecorder{}
			e.observer = kills
			placeIdle(e, 12, 10, 1)

			b := testBullet(spatial.Point{X: 10, Y: 10}, spatial.Point{X: 1, Y: 0})
			b.Source = tt.source
			e.world.Bullets = append(e.world.Bullets, b)
			runBullets(e, 0, 15)

			if e.player.Progress.Killed != 1 {
				t.Fatalf("Expected 1 kill, got %d", e.player.Progress.Killed)
			}
			if got := e.player.Stats[StatScore]; got != 3 {
				t.Errorf("Expected score 3, got %d", got)
			}
			if len(kills.weapons) != 1 || kills.weapons[0] != tt.source {
				t.Errorf("Expected kill credited to %s, got %v", tt.source, kills.weapons)
			}
		})
	}
}

// TestBulletStopsWithoutPierce tests that a plain bullet only kills the first
// enemy in line
func TestBulletStopsWithoutPierce(t *testing.T) {
	e := newTestEngine(t, 21, 21)
	placeIdle(e, 12, 10, 1)
	second := placeIdle(e, 13, 10, 1)

	e.world.Bullets = append(e.world.Bullets, testBullet(spatial.Point{X: 10, Y: 10}, spatial.Point{X: 1, Y: 0}))
	runBullets(e, 0, 20)

	if e.world.Grid.Occupant(13, 10) != second {
		t.Error("Expected second enemy to survive")
	}
	if len(e.world.Bullets) != 0 {
		t.Errorf("Expected bullet removed, got %d", len(e.world.Bullets))
	}
}

// TestBulletForks tests that a forking bullet spawns perpendicular children
func TestBulletForks(t *testing.T) {
	e := newTestEngine(t, 21, 21)
	placeIdle(e, 12, 10, 1)
	placeIdle(e, 12, 8, 1)

	b := testBullet(spatial.Point{X: 10, Y: 10}, spatial.Point{X: 1, Y: 0})
	b.Fork = 1
	e.world.Bullets = append(e.world.Bullets, b)

	runBullets(e, 0, 6)
	if len(e.world.Bullets) != 2 {
		t.Fatalf("Expected 2 fork children after first hit, got %d", len(e.world.Bullets))
	}
	for _, c := range e.world.Bullets {
		if c.Dir.X != 0 {
			t.Errorf("Expected vertical child, got dir %v", c.Dir)
		}
		if c.Fork != 0 || c.Pierce != 0 {
			t.Errorf("Expected child fork 0 pierce 0, got fork %d pierce %d", c.Fork, c.Pierce)
		}
		if c.Last != 6 {
			t.Errorf("Expected child last move 6, got %d", c.Last)
		}
	}

	runBullets(e, 7, 60)
	if e.world.Grid.Occupant(12, 8) != nil {
		t.Error("Expected upward child to kill the enemy above")
	}
	if e.player.Progress.Killed != 2 {
		t.Errorf("Expected 2 kills, got %d", e.player.Progress.Killed)
	}
	if len(e.world.Bullets) != 0 {
		t.Errorf("Expected all bullets gone, got %d", len(e.world.Bullets))
	}
	if hits := e.world.Grid.Tile(12, 20).Hits; hits != 1 {
		t.Errorf("Expected downward child to mark the border wall once, got %d", hits)
	}
}

// TestBulletMarksWall tests that a bullet hitting a wall is removed and
// leaves a hit on the wall
func TestBulletMarksWall(t *testing.T) {
	e := newTestEngine(t, 21, 21)
	e.world.Grid.SetTile(12, 10, spatial.MovableWall(0))
	e.world.Grid.SetPassable(12, 10, false)

	e.world.Bullets = append(e.world.Bullets, testBullet(spatial.Point{X: 10, Y: 10}, spatial.Point{X: 1, Y: 0}))
	runBullets(e, 0, 10)

	if len(e.world.Bullets) != 0 {
		t.Errorf("Expected bullet removed, got %d", len(e.world.Bullets))
	}
	tile := e.world.Grid.Tile(12, 10)
	if tile.Kind != spatial.TileMovableWall || tile.Hits != 1 {
		t.Errorf("Expected movable wall with 1 hit, got %s with %d", tile.Kind, tile.Hits)
	}
}

// TestBulletTriggersArmedBomb tests that a bullet entering an armed bomb
// forces it into its final window
func TestBulletTriggersArmedBomb(t *testing.T) {
	e := newTestEngine(t, 21, 21)
	e.world.Bombs = append(e.world.Bombs, Bomb{Pos: spatial.Point{X: 12, Y: 10}, Radius: 2, Damage: 1, Start: 0, Duration: 200})
	e.world.Bullets = append(e.world.Bullets, testBullet(spatial.Point{X: 11, Y: 10}, spatial.Point{X: 1, Y: 0}))

	runBullets(e, 0, 3)

	if len(e.world.Bullets) != 0 {
		t.Errorf("Expected bullet consumed by bomb, got %d", len(e.world.Bullets))
	}
	if end := e.world.Bombs[0].End(); end != 3+bombFuseWindow {
		t.Errorf("Expected bomb end %d, got %d", 3+bombFuseWindow, end)
	}
}

// TestFireShot tests cooldown, aim and ammo rules of the rifle
func TestFireShot(t *testing.T) {
	tests := []struct {
		name       string
		aim        bool
		ammo       int
		tick       int
		wantBullet bool
	}{
		{"fires with aim and ammo", true, 5, 100, true},
		{"needs a direction", false, 5, 100, false},
		{"needs ammo", true, 0, 100, false},
		{"respects cooldown", true, 5, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, 21, 21)
			e.tick = tt.tick
			e.player.Stats[StatAmmo] = tt.ammo
			if tt.aim {
				e.controls.press(ActionUp)
			}

			e.fireShot()

			got := len(e.world.Bullets) == 1
			if got != tt.wantBullet {
				t.Fatalf("Expected bullet %v, got %v", tt.wantBullet, got)
			}
			if !got {
				return
			}
			if e.player.Stats[StatAmmo] != tt.ammo-1 {
				t.Errorf("Expected ammo %d, got %d", tt.ammo-1, e.player.Stats[StatAmmo])
			}
			if dir := e.world.Bullets[0].Dir; dir != (spatial.Point{X: 0, Y: -1}) {
				t.Errorf("Expected bullet heading up, got %v", dir)
			}
			if e.player.Progress.Used[WeaponAmmo] != 1 {
				t.Errorf("Expected one rifle use, got %d", e.player.Progress.Used[WeaponAmmo])
			}
		})
	}
}

// TestFireShotNeverConsumesAtHundred tests the keep-the-round roll
func TestFireShotNeverConsumesAtHundred(t *testing.T) {
	e := newTestEngine(t, 21, 21)
	e.player.Stats[StatNotConsumeAmmo] = 100
	e.player.Stats[StatCdShot] = 0
	e.controls.press(ActionRight)

	for tick := 1; tick <= 20; tick++ {
		e.tick = tick
		e.fireShot()
	}

	if e.player.Stats[StatAmmo] != 10 {
		t.Errorf("Expected ammo untouched at 10, got %d", e.player.Stats[StatAmmo])
	}
	if len(e.world.Bullets) != 20 {
		t.Errorf("Expected 20 bullets, got %d", len(e.world.Bullets))
	}
}

type killRecorder struct {
	weapons []Weapon
}

func (r *killRecorder) ObserveTick(TickStats) {}
func (r *killRecorder) ObserveKill(_ EnemyKind, w Weapon) { r.weapons = append(r.weapons, w) }
func (r *killRecorder) ObserveDeath(string, int) {}
