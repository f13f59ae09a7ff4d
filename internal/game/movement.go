package game

import "that-night/internal/game/spatial"

// runFoodCost is the extra food a running step burns.
const runFoodCost = 2000

// movePlayer steps the player along the active direction once the move
// cooldown allows. Pushing a movable wall takes twice as long; running
// halves the wait.
func (e *Engine) movePlayer() {
	aim, ok := e.controls.Aim()
	if !ok {
		return
	}
	d, _ := aim.Direction()

	p := e.player
	g := e.world.Grid
	next := p.Pos.Add(d)
	tile := g.Tile(next.X, next.Y)

	wait := p.Stats[StatCdMove]
	if tile.Kind == spatial.TileMovableWall {
		wait *= 2
	}
	if p.Running {
		wait /= 2
	}
	if e.tick < p.Stats[StatLastMove]+wait {
		return
	}

	moved := false
	switch tile.Kind {
	case spatial.TileEmpty:
		moved = g.Passable(next.X, next.Y)
	case spatial.TileMovableWall:
		beyond := next.Add(d)
		if g.Passable(beyond.X, beyond.Y) {
			g.SetTile(next.X, next.Y, spatial.Tile{})
			g.SetTile(beyond.X, beyond.Y, tile)
			g.SetPassable(next.X, next.Y, true)
			g.SetPassable(beyond.X, beyond.Y, false)
			moved = true
		}
	case spatial.TileChest:
		e.play(SoundPickChest, 0.25)
		p.applyLoot(tile.Chest.Kind)
		e.world.clearChest(next)
		moved = true
	}

	p.Stats[StatLastMove] = e.tick
	if !moved {
		return
	}
	p.Pos = next
	if p.Running {
		p.Stats[StatFood] -= runFoodCost
		e.play(SoundRunning, 0.4)
	} else {
		e.play(SoundWalking, 0.4)
	}
}
