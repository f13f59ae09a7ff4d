package game

import "math/rand"

// Upgrade is one of the fixed stat improvements offered on level up.
type Upgrade uint8

const (
	UpgradeMaxAmmo Upgrade = iota
	UpgradeMaxBomb
	UpgradeMaxTurret
	UpgradeMaxEmp

	UpgradeNotConsumeAmmo
	UpgradePierceAmmo
	UpgradeForkAmmo
	UpgradeSniper

	UpgradeDmgBomb
	UpgradeRadAndFuseBomb
	UpgradeScoreBomb

	UpgradeCdTurret
	UpgradeDmgTurret

	UpgradeMovSpd

	UpgradeDurEmp

	UpgradeCount
)

const (
	// UpgradeChoices is how many upgrades a session offers.
	UpgradeChoices = 5

	// UpgradeCap is the tally at which capped upgrades stop being offered.
	UpgradeCap = 3
)

type upgradeInfo struct {
	id     string
	text   string
	capped bool
	apply  func(s *Stats)
}

var upgradeTable = [UpgradeCount]upgradeInfo{
	UpgradeMaxAmmo:   {"max_ammo", "+3 max ammo", false, func(s *Stats) { s[StatMaxAmmo] += 3 }},
	UpgradeMaxBomb:   {"max_bomb", "+1 max bomb", false, func(s *Stats) { s[StatMaxBomb]++ }},
	UpgradeMaxTurret: {"max_turret", "+1 max turret", false, func(s *Stats) { s[StatMaxTurret]++ }},
	UpgradeMaxEmp:    {"max_emp", "+1 max EMP", false, func(s *Stats) { s[StatMaxEmp]++ }},

	UpgradeNotConsumeAmmo: {"not_consume_ammo", "+20% chance to not consume ammo", true, func(s *Stats) { s[StatNotConsumeAmmo] += 20 }},
	UpgradePierceAmmo:     {"pierce_ammo", "+1 bullet pierce", false, func(s *Stats) { s[StatPierceAmmo]++ }},
	UpgradeForkAmmo:       {"fork_ammo", "+1 bullet fork", false, func(s *Stats) { s[StatForkAmmo]++ }},
	UpgradeSniper: {"sniper", "slower reload and +1 bullet damage", false, func(s *Stats) {
		s[StatCdShot] += 10
		s[StatDmgAmmo]++
	}},

	UpgradeDmgBomb: {"dmg_bomb", "+1 bomb damage", false, func(s *Stats) { s[StatDmgBomb]++ }},
	UpgradeRadAndFuseBomb: {"rad_and_fuse_bomb", "+1 bomb radius, slightly longer fuse", false, func(s *Stats) {
		s[StatRadBomb]++
		s[StatFuseTimeBomb]++
	}},
	UpgradeScoreBomb: {"score_bomb", "+3 score on kill with bomb", false, func(s *Stats) { s[StatScoreBomb] += 3 }},

	UpgradeCdTurret:  {"cd_turret", "faster reload for turrets", true, func(s *Stats) { s[StatCdTurretShot] -= 75 }},
	UpgradeDmgTurret: {"dmg_turret", "+1 turret damage", true, func(s *Stats) { s[StatDmgTurret]++ }},

	UpgradeMovSpd: {"mov_spd", "increased movement speed", true, func(s *Stats) { s[StatCdMove]-- }},

	UpgradeDurEmp: {"dur_emp", "+5s EMP slow duration", false, func(s *Stats) { s[StatSlowEmp] += 5 * 60 }},
}

// String returns the upgrade id
func (u Upgrade) String() string {
	if u < UpgradeCount {
		return upgradeTable[u].id
	}
	return "unknown"
}

// Text returns the line shown to the player.
func (u Upgrade) Text() string {
	if u < UpgradeCount {
		return upgradeTable[u].text
	}
	return ""
}

// Capped reports whether the upgrade stops being offered at UpgradeCap.
func (u Upgrade) Capped() bool {
	return upgradeTable[u].capped
}

// Apply mutates the player's stats and bumps the tally for u.
func (u Upgrade) Apply(p *Player) {
	upgradeTable[u].apply(&p.Stats)
	p.Upgrades[u]++
}

// RollUpgrades samples UpgradeChoices distinct upgrades from the pool,
// skipping capped kinds the player has already taken UpgradeCap times.
func RollUpgrades(p *Player, rng *rand.Rand) []Upgrade {
	pool := make([]Upgrade, 0, UpgradeCount)
	for u := Upgrade(0); u < UpgradeCount; u++ {
		pool = append(pool, u)
	}

	out := make([]Upgrade, 0, UpgradeChoices)
	for len(out) < UpgradeChoices && len(pool) > 0 {
		i := rng.Intn(len(pool))
		u := pool[i]
		pool = append(pool[:i], pool[i+1:]...)

		if u.Capped() && p.Upgrades[u] >= UpgradeCap {
			continue
		}
		out = append(out, u)
	}
	return out
}

// UpgradeSession is an open level-up choice.
type UpgradeSession struct {
	Choices []Upgrade
	Cursor  int
}

// newUpgradeSession rolls the choices with the cursor on the middle entry.
func newUpgradeSession(p *Player, rng *rand.Rand) *UpgradeSession {
	return &UpgradeSession{
		Choices: RollUpgrades(p, rng),
		Cursor:  2,
	}
}

// Up moves the cursor one entry up. It reports whether the cursor moved.
func (s *UpgradeSession) Up() bool {
	if s.Cursor > 0 {
		s.Cursor--
		return true
	}
	return false
}

// Down moves the cursor one entry down. It reports whether the cursor moved.
func (s *UpgradeSession) Down() bool {
	if s.Cursor < len(s.Choices)-1 {
		s.Cursor++
		return true
	}
	return false
}

// Selected returns the upgrade under the cursor.
func (s *UpgradeSession) Selected() Upgrade {
	return s.Choices[s.Cursor]
}
