package spatial

// TileKind tags the variant stored in a grid cell.
type TileKind uint8

const (
	TileEmpty TileKind = iota
	TileWall
	TileMovableWall
	TileChest
)

// String returns the tile kind name
func (k TileKind) String() string {
	switch k {
	case TileEmpty:
		return "empty"
	case TileWall:
		return "wall"
	case TileMovableWall:
		return "movable_wall"
	case TileChest:
		return "chest"
	default:
		return "unknown"
	}
}

// ChestKind is the loot carried by a chest.
type ChestKind uint8

const (
	ChestAmmo ChestKind = iota
	ChestBomb
	ChestTurret
	ChestEmp
	ChestFood
	ChestRainbow
)

// RegularChestKinds is the number of kinds a random drop can roll.
// Rainbow is only ever granted explicitly.
const RegularChestKinds = 5

// String returns the chest kind name
func (k ChestKind) String() string {
	switch k {
	case ChestAmmo:
		return "ammo"
	case ChestBomb:
		return "bomb"
	case ChestTurret:
		return "turret"
	case ChestEmp:
		return "emp"
	case ChestFood:
		return "food"
	case ChestRainbow:
		return "rainbow"
	default:
		return "unknown"
	}
}

// Chest is the payload of a TileChest cell.
type Chest struct {
	Kind     ChestKind
	Start    int // tick the chest appeared
	Duration int // ticks until it expires
}

// Expired reports whether the chest has run out at tick.
func (c Chest) Expired(tick int) bool {
	return tick >= c.Start+c.Duration
}

// Tile is a single grid cell. Hits counts bullets absorbed by a wall and is
// only meaningful for the two wall kinds; Chest only for TileChest.
type Tile struct {
	Kind  TileKind
	Hits  int
	Chest Chest
}

// Wall returns a solid wall that has absorbed hits bullets.
func Wall(hits int) Tile {
	return Tile{Kind: TileWall, Hits: hits}
}

// MovableWall returns a pushable wall that has absorbed hits bullets.
func MovableWall(hits int) Tile {
	return Tile{Kind: TileMovableWall, Hits: hits}
}

// ChestTile wraps c in a tile.
func ChestTile(c Chest) Tile {
	return Tile{Kind: TileChest, Chest: c}
}

// Solid reports whether the tile is either kind of wall.
func (t Tile) Solid() bool {
	return t.Kind == TileWall || t.Kind == TileMovableWall
}
