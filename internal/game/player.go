package game

import (
	"that-night/internal/game/spatial"
)

// Stat indexes the player's stat vector.
type Stat uint8

const (
	StatScore Stat = iota
	StatScoreAmmo
	StatScoreBomb
	StatScoreTurret
	StatScoreEmp

	StatFood
	StatAmmo
	StatBomb
	StatTurret
	StatEmp

	StatMaxFood
	StatMaxAmmo
	StatMaxBomb
	StatMaxTurret
	StatMaxEmp

	StatLastShot
	StatCdShot
	StatDmgAmmo
	StatNotConsumeAmmo
	StatPierceAmmo
	StatForkAmmo

	StatLastBomb
	StatCdBomb
	StatRadBomb
	StatDmgBomb
	StatFuseTimeBomb

	StatLastTurret
	StatCdTurret
	StatCdTurretShot
	StatDmgTurret
	StatDurTurret

	StatLastEmp
	StatCdEmp
	StatRadEmp
	StatDmgEmp
	StatDurEmp
	StatStunEmp
	StatSlowEmp

	StatLastMove
	StatCdMove
	StatLuck
	StatCharacter

	statNamed // number of named stats
)

// StatSlots is the fixed length of the stat vector. Slots past the named
// stats are reserved.
const StatSlots = 64

var statNames = [statNamed]string{
	"score", "score_ammo", "score_bomb", "score_turret", "score_emp",
	"food", "ammo", "bomb", "turret", "emp",
	"max_food", "max_ammo", "max_bomb", "max_turret", "max_emp",
	"last_shot", "cd_shot", "dmg_ammo", "not_consume_ammo", "pierce_ammo", "fork_ammo",
	"last_bomb", "cd_bomb", "rad_bomb", "dmg_bomb", "fuse_time_bomb",
	"last_turret", "cd_turret", "cd_turret_shot", "dmg_turret", "dur_turret",
	"last_emp", "cd_emp", "rad_emp", "dmg_emp", "dur_emp", "stun_emp", "slow_emp",
	"last_move", "cd_move", "luck", "character",
}

// String returns the stat's snake_case name
func (s Stat) String() string {
	if s < statNamed {
		return statNames[s]
	}
	return "reserved"
}

// Stats is the player's stat vector.
type Stats [StatSlots]int

// Named returns the named stats keyed by name, for JSON output.
func (s *Stats) Named() map[string]int {
	out := make(map[string]int, statNamed)
	for i := Stat(0); i < statNamed; i++ {
		out[i.String()] = s[i]
	}
	return out
}

// Character is a playable survivor. Each one tweaks the starting stats.
type Character uint8

const (
	CharacterJoshua Character = iota
	CharacterAnne
	CharacterAndrew
	CharacterMatthew
	CharacterMegan
	CharacterLiShen

	CharacterCount
)

// String returns the character name
func (c Character) String() string {
	switch c {
	case CharacterJoshua:
		return "Joshua"
	case CharacterAnne:
		return "Anne"
	case CharacterAndrew:
		return "Andrew"
	case CharacterMatthew:
		return "Matthew"
	case CharacterMegan:
		return "Megan"
	case CharacterLiShen:
		return "LiShen"
	default:
		return "Unknown"
	}
}

// ParseCharacter resolves a character by case-sensitive name.
func ParseCharacter(name string) (Character, bool) {
	for c := Character(0); c < CharacterCount; c++ {
		if c.String() == name {
			return c, true
		}
	}
	return 0, false
}

// Progress tracks what the player did during a run.
type Progress struct {
	Killed int              `json:"killed"`
	Used   [WeaponCount]int `json:"used"`
}

// OnlyUsed reports whether w is the single weapon type used during the run.
func (p Progress) OnlyUsed(w Weapon) bool {
	for i, n := range p.Used {
		if Weapon(i) == w {
			if n == 0 {
				return false
			}
		} else if n != 0 {
			return false
		}
	}
	return true
}

// Player is the survivor controlled by input intents.
type Player struct {
	Pos       spatial.Point
	Stats     Stats
	Progress  Progress
	Upgrades  [UpgradeCount]int
	Character Character

	Dead    bool
	Paused  bool
	Running bool

	// Upgrading is non-nil while an upgrade choice is pending.
	Upgrading *UpgradeSession
}

// NewPlayer creates a player at pos with the base stats adjusted for c.
func NewPlayer(c Character, pos spatial.Point) *Player {
	p := &Player{Pos: pos, Character: c}
	s := &p.Stats

	s[StatScoreAmmo] = 3
	s[StatScoreBomb] = 3
	s[StatScoreTurret] = 3
	s[StatScoreEmp] = 3

	s[StatFood] = 1_000_000
	s[StatMaxFood] = 1_000_000

	s[StatAmmo] = 10
	s[StatMaxAmmo] = 10
	s[StatDmgAmmo] = 1
	s[StatCdShot] = 10

	s[StatCdBomb] = 60
	s[StatBomb] = 3
	s[StatMaxBomb] = 3
	s[StatRadBomb] = 5
	s[StatDmgBomb] = 3
	s[StatFuseTimeBomb] = 200

	s[StatTurret] = 3
	s[StatMaxTurret] = 3
	s[StatCdTurret] = 60
	s[StatCdTurretShot] = 300
	s[StatDmgTurret] = 1
	s[StatDurTurret] = 900

	s[StatCdEmp] = 60
	s[StatEmp] = 3
	s[StatMaxEmp] = 3
	s[StatRadEmp] = 8
	s[StatDurEmp] = 60
	s[StatSlowEmp] = 300

	s[StatCdMove] = 9
	s[StatCharacter] = int(c)

	switch c {
	case CharacterJoshua:
		s[StatCdMove]--
	case CharacterAnne:
		s[StatAmmo] = 1
		s[StatMaxAmmo] = 1
		s[StatBomb] += 3
		s[StatMaxBomb] += 3
		s[StatRadBomb]++
		s[StatFuseTimeBomb] -= 60
	case CharacterAndrew:
		s[StatDmgAmmo]++
		s[StatNotConsumeAmmo] += 20
	case CharacterMatthew:
		s[StatDurTurret] *= 2
	case CharacterMegan:
		s[StatRadEmp] += 3
		s[StatStunEmp] = 1
	case CharacterLiShen:
		s[StatFood] += 500_000
		s[StatMaxFood] += 500_000
		s[StatLuck] += 5
	}

	return p
}

// Stat returns a single stat value.
func (p *Player) Stat(s Stat) int {
	return p.Stats[s]
}

// refill adds amount to a counter without exceeding its maximum.
func (p *Player) refill(counter, max Stat, amount int) {
	p.Stats[counter] = min(p.Stats[max], p.Stats[counter]+amount)
}

// applyLoot grants the contents of a chest.
func (p *Player) applyLoot(kind spatial.ChestKind) {
	switch kind {
	case spatial.ChestAmmo:
		p.refill(StatAmmo, StatMaxAmmo, 3)
	case spatial.ChestBomb:
		p.refill(StatBomb, StatMaxBomb, 1)
	case spatial.ChestTurret:
		p.refill(StatTurret, StatMaxTurret, 1)
	case spatial.ChestEmp:
		p.refill(StatEmp, StatMaxEmp, 1)
	case spatial.ChestFood:
		p.refill(StatFood, StatMaxFood, 500_000)
	case spatial.ChestRainbow:
		p.refill(StatAmmo, StatMaxAmmo, 3)
		p.refill(StatBomb, StatMaxBomb, 1)
		p.refill(StatTurret, StatMaxTurret, 1)
		p.refill(StatEmp, StatMaxEmp, 1)
		p.refill(StatFood, StatMaxFood, 500_000)
	}
}
