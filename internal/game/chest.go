package game

import "that-night/internal/game/spatial"

const (
	// ChestDuration is how long a chest stays on the map: four minutes.
	ChestDuration = 60 * 60 * 4

	chestSpawnInterval = 30
	chestSpawnDistance = 16
)

// ChestQueue holds chest cells in spawn order. Every chest lives for
// ChestDuration, so the head is always the next one to expire.
type ChestQueue struct {
	cells []spatial.Point
}

// Push appends p.
func (q *ChestQueue) Push(p spatial.Point) {
	q.cells = append(q.cells, p)
}

// Head returns the oldest chest cell.
func (q *ChestQueue) Head() (spatial.Point, bool) {
	if len(q.cells) == 0 {
		return spatial.Point{}, false
	}
	return q.cells[0], true
}

// Pop drops the head.
func (q *ChestQueue) Pop() {
	if len(q.cells) > 0 {
		q.cells = q.cells[1:]
	}
}

// Remove drops p wherever it sits. It reports whether p was queued.
func (q *ChestQueue) Remove(p spatial.Point) bool {
	for i, c := range q.cells {
		if c == p {
			q.cells = append(q.cells[:i:i], q.cells[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of queued chests.
func (q *ChestQueue) Len() int {
	return len(q.cells)
}

// Cells returns a copy of the queue in spawn order.
func (q *ChestQueue) Cells() []spatial.Point {
	out := make([]spatial.Point, len(q.cells))
	copy(out, q.cells)
	return out
}

// placeChest turns p into a chest cell and queues it.
func (w *World) placeChest(p spatial.Point, kind spatial.ChestKind, tick int) {
	w.Grid.SetTile(p.X, p.Y, spatial.ChestTile(spatial.Chest{
		Kind:     kind,
		Start:    tick,
		Duration: ChestDuration,
	}))
	w.Grid.SetPassable(p.X, p.Y, false)
	w.Chests.Push(p)
}

// clearChest empties a chest cell and drops it from the queue.
func (w *World) clearChest(p spatial.Point) {
	invariant(w.Chests.Remove(p), "chest at %v missing from queue", p)
	w.Grid.SetTile(p.X, p.Y, spatial.Tile{})
	w.refreshPass(p)
}

// expireChests removes every chest at the head of the queue that has run
// out.
func (e *Engine) expireChests() {
	for {
		p, ok := e.world.Chests.Head()
		if !ok {
			return
		}
		tile := e.world.Grid.Tile(p.X, p.Y)
		if tile.Kind != spatial.TileChest {
			invariant(false, "queued chest at %v is a %s tile", p, tile.Kind)
			e.world.Chests.Pop()
			continue
		}
		if !tile.Chest.Expired(e.tick) {
			return
		}
		e.world.Chests.Pop()
		e.world.Grid.SetTile(p.X, p.Y, spatial.Tile{})
		e.world.refreshPass(p)
	}
}

// spawnRandomChest drops a regular chest on a free cell away from the
// player.
func (e *Engine) spawnRandomChest() {
	p, ok := e.randomFreeCell(0, func(p spatial.Point) bool {
		return spatial.Manhattan(p, e.player.Pos) >= chestSpawnDistance
	})
	if !ok {
		e.logPlacementMiss("chest")
		return
	}
	kind := spatial.ChestKind(e.rng.Intn(spatial.RegularChestKinds))
	e.world.placeChest(p, kind, e.tick)
}

// randomFreeCell rolls cells at least inset away from the map edge until
// one is passable and accepted, giving up after the configured number of
// attempts.
func (e *Engine) randomFreeCell(inset int, accept func(spatial.Point) bool) (spatial.Point, bool) {
	w, h := e.world.Width()-2*inset, e.world.Height()-2*inset
	for i := 0; i < e.cfg.SpawnAttempts; i++ {
		p := spatial.Point{X: inset + e.rng.Intn(w), Y: inset + e.rng.Intn(h)}
		if !e.world.Grid.Passable(p.X, p.Y) {
			continue
		}
		if accept(p) {
			return p, true
		}
	}
	return spatial.Point{}, false
}
