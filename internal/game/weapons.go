package game

// Weapon identifies one of the four weapon systems. It also indexes the
// per-weapon usage counters in Progress.
type Weapon uint8

const (
	WeaponAmmo Weapon = iota
	WeaponBomb
	WeaponTurret
	WeaponEmp

	WeaponCount
)

// String returns the weapon id
func (w Weapon) String() string {
	if w < WeaponCount {
		return weaponSpecs[w].ID
	}
	return "unknown"
}

// WeaponSpec describes which stats drive a weapon.
type WeaponSpec struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Charges  Stat    `json:"-"`
	MaxStat  Stat    `json:"-"`
	Cooldown Stat    `json:"-"`
	LastUse  Stat    `json:"-"`
	UseCue   Sound   `json:"-"`
	UseGain  float64 `json:"-"`
	Color    string  `json:"color"`
}

var weaponSpecs = [WeaponCount]WeaponSpec{
	WeaponAmmo: {
		ID:       "ammo",
		Name:     "Rifle",
		Charges:  StatAmmo,
		MaxStat:  StatMaxAmmo,
		Cooldown: StatCdShot,
		LastUse:  StatLastShot,
		UseCue:   SoundUseAmmo,
		UseGain:  0.25,
		Color:    "#ffa500",
	},
	WeaponBomb: {
		ID:       "bomb",
		Name:     "Bomb",
		Charges:  StatBomb,
		MaxStat:  StatMaxBomb,
		Cooldown: StatCdBomb,
		LastUse:  StatLastBomb,
		UseCue:   SoundUseBomb,
		UseGain:  0.5,
		Color:    "#ff0000",
	},
	WeaponTurret: {
		ID:       "turret",
		Name:     "Turret",
		Charges:  StatTurret,
		MaxStat:  StatMaxTurret,
		Cooldown: StatCdTurret,
		LastUse:  StatLastTurret,
		UseCue:   SoundUseTurret,
		UseGain:  0.3,
		Color:    "#0000ff",
	},
	WeaponEmp: {
		ID:       "emp",
		Name:     "EMP",
		Charges:  StatEmp,
		MaxStat:  StatMaxEmp,
		Cooldown: StatCdEmp,
		LastUse:  StatLastEmp,
		UseCue:   SoundUseEmp,
		UseGain:  1.0,
		Color:    "#800080",
	},
}

// GetWeaponSpec returns the spec for w.
func GetWeaponSpec(w Weapon) WeaponSpec {
	return weaponSpecs[w]
}

// GetAllWeaponSpecs returns every weapon spec in weapon order.
func GetAllWeaponSpecs() []WeaponSpec {
	out := make([]WeaponSpec, WeaponCount)
	copy(out, weaponSpecs[:])
	return out
}

// ready reports whether the player may use w at tick: it has charges left
// and its cooldown has elapsed since the last use.
func (p *Player) ready(w Weapon, tick int) bool {
	spec := &weaponSpecs[w]
	return p.Stats[spec.Charges] > 0 && tick-p.Stats[spec.Cooldown] >= p.Stats[spec.LastUse]
}

// spend records a use of w at tick and consumes a charge when consume is set.
func (p *Player) spend(w Weapon, tick int, consume bool) {
	spec := &weaponSpecs[w]
	p.Stats[spec.LastUse] = tick
	if consume {
		p.Stats[spec.Charges]--
	}
	p.Progress.Used[w]++
}
