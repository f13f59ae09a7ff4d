package game

// Achievement is a persisted unlock flag.
type Achievement string

const (
	AchievementTutorial      Achievement = "tutorial"
	AchievementUnlockAnne    Achievement = "unlock_anne"
	AchievementUnlockAndrew  Achievement = "unlock_andrew"
	AchievementUnlockMatthew Achievement = "unlock_matthew"
	AchievementUnlockMegan   Achievement = "unlock_megan"
	AchievementUnlockLiShen  Achievement = "unlock_lishen"
)

// AllAchievements lists every achievement in display order.
var AllAchievements = []Achievement{
	AchievementTutorial,
	AchievementUnlockAnne,
	AchievementUnlockAndrew,
	AchievementUnlockMatthew,
	AchievementUnlockMegan,
	AchievementUnlockLiShen,
}

// Unlocks returns the character an achievement unlocks, if any.
func (a Achievement) Unlocks() (Character, bool) {
	switch a {
	case AchievementUnlockAnne:
		return CharacterAnne, true
	case AchievementUnlockAndrew:
		return CharacterAndrew, true
	case AchievementUnlockMatthew:
		return CharacterMatthew, true
	case AchievementUnlockMegan:
		return CharacterMegan, true
	case AchievementUnlockLiShen:
		return CharacterLiShen, true
	}
	return 0, false
}

// Record is the persisted configuration the simulation reads at session
// start and writes back when a run ends.
type Record struct {
	Highscore    int                  `json:"highscore"`
	Hotkeys      Hotkeys              `json:"hotkeys"`
	Achievements map[Achievement]bool `json:"achievements"`
}

// NewRecord returns an empty record with the default bindings.
func NewRecord() Record {
	r := Record{
		Hotkeys:      DefaultHotkeys(),
		Achievements: make(map[Achievement]bool, len(AllAchievements)),
	}
	for _, a := range AllAchievements {
		r.Achievements[a] = false
	}
	return r
}

// Unlocked reports whether c may be picked.
func (r *Record) Unlocked(c Character) bool {
	if c == CharacterJoshua {
		return true
	}
	for a, ok := range r.Achievements {
		if got, has := a.Unlocks(); has && got == c {
			return ok
		}
	}
	return false
}

// Grant sets a, returning false when it was already set.
func (r *Record) Grant(a Achievement) bool {
	if r.Achievements == nil {
		r.Achievements = make(map[Achievement]bool)
	}
	if r.Achievements[a] {
		return false
	}
	r.Achievements[a] = true
	return true
}

// Ledger persists the record. Storage format is up to the implementation.
type Ledger interface {
	Load() (Record, error)
	Save(Record) error
}

// RunOutcome summarises a finished run.
type RunOutcome struct {
	Score    int
	Progress Progress
}

// EvaluateRun applies the end-of-run rules to r and returns what changed.
// A second call with the same outcome changes nothing.
func EvaluateRun(r *Record, out RunOutcome) (newHighscore bool, granted []Achievement) {
	if out.Score > r.Highscore {
		r.Highscore = out.Score
		newHighscore = true
	}

	killed := out.Progress.Killed
	rules := []struct {
		a  Achievement
		ok bool
	}{
		{AchievementUnlockAnne, out.Score >= 1000 && out.Progress.OnlyUsed(WeaponBomb)},
		{AchievementUnlockAndrew, killed >= 150},
		{AchievementUnlockMatthew, killed >= 50 && out.Progress.OnlyUsed(WeaponTurret)},
		{AchievementUnlockMegan, out.Score >= 3000},
		{AchievementUnlockLiShen, out.Score >= 1000 && killed == 0},
	}
	for _, rule := range rules {
		if rule.ok && r.Grant(rule.a) {
			granted = append(granted, rule.a)
		}
	}
	return newHighscore, granted
}
