package game

import "that-night/internal/game/spatial"

// Sound names an audio cue. Playback is up to whoever consumes the effects.
type Sound uint8

const (
	SoundIntro Sound = iota
	SoundAmbient
	SoundUiSwitch
	SoundLowFood
	SoundUseAmmo
	SoundUseBomb
	SoundUseTurret
	SoundUseEmp
	SoundPickChest
	SoundBombExplosion
	SoundBombTick
	SoundTurretShoot
	SoundZombieHit
	SoundZombieDeath
	SoundBossAppear
	SoundUpgrade
	SoundDefeat
	SoundWalking
	SoundRunning

	SoundCount
)

var soundNames = [SoundCount]string{
	"intro", "ambient", "ui_switch", "low_food",
	"use_ammo", "use_bomb", "use_turret", "use_emp",
	"pick_chest", "bomb_explosion", "bomb_tick", "turret_shoot",
	"zombie_hit", "zombie_death", "boss_appear", "upgrade",
	"defeat", "walking", "running",
}

// String returns the cue name
func (s Sound) String() string {
	if s < SoundCount {
		return soundNames[s]
	}
	return "unknown"
}

// EffectKind tags an Effect.
type EffectKind uint8

const (
	EffectSound EffectKind = iota
	EffectAchievement
)

// Effect is a fire-and-forget notification produced by the simulation.
type Effect struct {
	Kind        EffectKind  `json:"kind" msgpack:"kind"`
	Sound       Sound       `json:"sound,omitempty" msgpack:"sound,omitempty"`
	Gain        float64     `json:"gain,omitempty" msgpack:"gain,omitempty"`
	Achievement Achievement `json:"achievement,omitempty" msgpack:"achievement,omitempty"`
}

// fadeFar is the falloff used for loud cues: 100/(100+d²).
func fadeFar(a, b spatial.Point) float64 {
	d := float64(spatial.Manhattan(a, b))
	return 100 / (100 + d*d)
}

// fadeNear is the falloff used for footsteps: 10/(10+d²).
func fadeNear(a, b spatial.Point) float64 {
	d := float64(spatial.Manhattan(a, b))
	return 10 / (10 + d*d)
}

// play queues a sound cue for this tick.
func (e *Engine) play(s Sound, gain float64) {
	e.pending = append(e.pending, Effect{Kind: EffectSound, Sound: s, Gain: gain})
}
