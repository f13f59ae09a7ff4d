package game

import "errors"

var (
	// ErrPlacementExhausted is returned when random placement runs out of
	// attempts, usually because the map is too small for the entity count.
	ErrPlacementExhausted = errors.New("placement attempts exhausted")

	// ErrNoLedger is returned when persistence is requested without a ledger.
	ErrNoLedger = errors.New("no ledger configured")

	// ErrCharacterLocked is returned when a run is started with a character
	// whose achievement has not been earned.
	ErrCharacterLocked = errors.New("character locked")

	ErrUnknownAction = errors.New("unknown action")
	ErrUnknownKey    = errors.New("unknown key")

	// ErrBadEventLog is returned for an event log line that does not decode.
	ErrBadEventLog = errors.New("malformed event log")
	ErrRunNotFound = errors.New("run not in event log")

	// ErrTickGap is returned when a run's tick events are not consecutive,
	// which happens when the log queue overflowed.
	ErrTickGap = errors.New("event log is missing ticks")
)
