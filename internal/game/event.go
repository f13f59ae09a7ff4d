package game

import (
	"encoding/json"
	"fmt"
)

// EventType classifies a logged event. It is written by name.
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeTick              // tick boundary with its rng seed
	EventTypeRunStart
	EventTypeWeaponUse
	EventTypeKill
	EventTypeBossSpawn
	EventTypeUpgrade
	EventTypeAchievement
	EventTypeDeath

	eventTypeCount
)

var eventTypeNames = [eventTypeCount]string{
	"unknown", "tick", "run_start", "weapon_use", "kill", "boss_spawn", "upgrade", "achievement", "death",
}

// String returns the event type name
func (t EventType) String() string {
	if t < eventTypeCount {
		return eventTypeNames[t]
	}
	return "unknown"
}

// MarshalText writes the type by name.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText resolves a type name. Unknown names are an error.
func (t *EventType) UnmarshalText(b []byte) error {
	for i, name := range eventTypeNames {
		if name == string(b) {
			*t = EventType(i)
			return nil
		}
	}
	return fmt.Errorf("%w: event type %q", ErrBadEventLog, b)
}

// EventVersion is bumped when a payload changes shape.
const EventVersion uint8 = 1

// Event is one line of the event log.
type Event struct {
	Version  uint8           `json:"v"`
	Sequence uint64          `json:"seq"`
	Type     EventType       `json:"type"`
	Tick     int             `json:"tick"`
	RunID    string          `json:"run"`
	Time     int64           `json:"ts"` // unix nano
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// TickPayload carries the seed the tick ran with, which is enough to replay
// it given the same inputs.
type TickPayload struct {
	RNGSeed int64 `json:"rngSeed"`
	Enemies int   `json:"enemies"`
	Bullets int   `json:"bullets"`
}

// RunStartPayload describes a fresh run
type RunStartPayload struct {
	Seed      int64  `json:"seed"`
	Character string `json:"character"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type WeaponUsePayload struct {
	Weapon string `json:"weapon"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

type KillPayload struct {
	EnemyUID int    `json:"enemyUid"`
	Kind     string `json:"kind"`
	Weapon   string `json:"weapon"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Score    int    `json:"score"`
}

type BossSpawnPayload struct {
	Nth int `json:"nth"`
	HP  int `json:"hp"`
	X   int `json:"x"`
	Y   int `json:"y"`
}

type UpgradePayload struct {
	Upgrade string `json:"upgrade"`
	Tally   int    `json:"tally"`
}

type AchievementPayload struct {
	Achievement string `json:"achievement"`
}

// DeathPayload closes a run
type DeathPayload struct {
	Cause  string `json:"cause"`
	Score  int    `json:"score"`
	Killed int    `json:"killed"`
	Ticks  int    `json:"ticks"`
}
