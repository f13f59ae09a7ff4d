package session

import (
	"testing"

	"that-night/internal/game"
)

type memLedger struct {
	rec   game.Record
	saves int
}

func (m *memLedger) Load() (game.Record, error) { return m.rec, nil }
func (m *memLedger) Save(r game.Record) error {
	m.saves++
	m.rec = r
	return nil
}

type cueRecorder struct{ fx []game.Effect }

func (r *cueRecorder) HandleEffects(fx []game.Effect) { r.fx = append(r.fx, fx...) }

func newTestSession(t *testing.T, rec game.Record) (*Session, *memLedger, *cueRecorder) {
	t.Helper()
	led := &memLedger{rec: rec}
	cfg := game.DefaultEngineConfig()
	cfg.Seed = 3
	cfg.Map = game.MapConfig{Width: 41, Height: 41, SafeRadius: 4, Enemies: 3, EnemySafeRadius: 12, Chests: 3, MaxAttempts: 500}
	cfg.Ledger = led

	e, err := game.NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	cues := &cueRecorder{}
	return New(e, cues), led, cues
}

// atMenu skips the loading screen.
func atMenu(s *Session) {
	for i := 0; i <= loadingFrames; i++ {
		s.Update()
	}
}

// TestLoadingToMenu tests the loading bar duration
func TestLoadingToMenu(t *testing.T) {
	s, _, cues := newTestSession(t, game.NewRecord())

	for i := 0; i < loadingFrames; i++ {
		s.Update()
	}
	if s.Screen() != ScreenLoading {
		t.Fatalf("Expected loading after %d frames, got %s", loadingFrames, s.Screen())
	}
	s.Update()
	if s.Screen() != ScreenMenu {
		t.Errorf("Expected menu, got %s", s.Screen())
	}
	if len(cues.fx) != 1 || cues.fx[0].Sound != game.SoundIntro {
		t.Errorf("Expected intro cue, got %v", cues.fx)
	}
}

// TestMenuLockedCharacter tests that locked characters cannot start
func TestMenuLockedCharacter(t *testing.T) {
	s, _, _ := newTestSession(t, game.NewRecord())
	atMenu(s)

	s.Pressed(KeyDown)
	s.Pressed(KeyConfirm)
	if s.Screen() != ScreenMenu {
		t.Errorf("Expected to stay on the menu, got %s", s.Screen())
	}

	v := s.View()
	if v.Cursor != 1 || v.Characters[1].Unlocked || !v.Characters[0].Unlocked {
		t.Errorf("Unexpected menu view %+v", v)
	}
}

// TestMenuCursorBounds tests cursor clamping
func TestMenuCursorBounds(t *testing.T) {
	s, _, _ := newTestSession(t, game.NewRecord())
	atMenu(s)

	s.Pressed(KeyUp)
	if s.View().Cursor != 0 {
		t.Errorf("Expected cursor 0, got %d", s.View().Cursor)
	}
	for i := 0; i < 10; i++ {
		s.Pressed(KeyDown)
	}
	if got := s.View().Cursor; got != int(game.CharacterCount)-1 {
		t.Errorf("Expected cursor %d, got %d", game.CharacterCount-1, got)
	}
}

// TestTutorialOnce tests that the tutorial shows until it is confirmed
func TestTutorialOnce(t *testing.T) {
	s, led, _ := newTestSession(t, game.NewRecord())
	atMenu(s)

	s.Pressed(KeyConfirm)
	if s.Screen() != ScreenTutorial {
		t.Fatalf("Expected tutorial, got %s", s.Screen())
	}
	s.Pressed(KeyConfirm)
	if s.Screen() != ScreenPlaying {
		t.Fatalf("Expected playing, got %s", s.Screen())
	}
	if !led.rec.Achievements[game.AchievementTutorial] {
		t.Error("Expected tutorial achievement saved")
	}

	s.Pressed(KeyBack)
	if s.Screen() != ScreenMenu {
		t.Fatalf("Expected menu after escape, got %s", s.Screen())
	}
	s.Pressed(KeyConfirm)
	if s.Screen() != ScreenPlaying {
		t.Errorf("Expected to skip the tutorial, got %s", s.Screen())
	}
}

// TestPlayingToDefeat tests that a dead run ends on the defeat screen
func TestPlayingToDefeat(t *testing.T) {
	rec := game.NewRecord()
	rec.Grant(game.AchievementTutorial)
	s, _, _ := newTestSession(t, rec)
	atMenu(s)
	s.Pressed(KeyConfirm)

	s.engine.WithState(func(_ *game.World, p *game.Player) {
		p.Stats[game.StatFood] = 1
	})
	s.Update()
	if s.Screen() != ScreenDefeat {
		t.Fatalf("Expected defeat, got %s", s.Screen())
	}

	s.Pressed(KeyConfirm)
	if s.Screen() != ScreenMenu {
		t.Errorf("Expected menu, got %s", s.Screen())
	}
}

func running(s *Session) bool {
	var on bool
	s.engine.WithState(func(_ *game.World, p *game.Player) { on = p.Running })
	return on
}

// TestPlayingForwardsHotkeys tests that bound keys reach the engine
func TestPlayingForwardsHotkeys(t *testing.T) {
	rec := game.NewRecord()
	rec.Grant(game.AchievementTutorial)
	s, _, _ := newTestSession(t, rec)
	atMenu(s)
	s.Pressed(KeyConfirm)

	run := game.DefaultHotkeys()[game.ActionRun]
	s.Pressed(run)
	if !running(s) {
		t.Error("Expected running after the run key")
	}
	s.Released(run)
	if running(s) {
		t.Error("Expected running to stop on release")
	}
}

// TestSettingsRebind tests binding a key and swapping a conflict
func TestSettingsRebind(t *testing.T) {
	s, led, _ := newTestSession(t, game.NewRecord())
	atMenu(s)

	s.Pressed(KeySettings)
	if s.Screen() != ScreenSettings {
		t.Fatalf("Expected settings, got %s", s.Screen())
	}

	// row 4 is shoot; bind it to the bomb key
	for i := 0; i < int(game.ActionShoot); i++ {
		s.Pressed(KeyDown)
	}
	s.Pressed(KeyConfirm)
	if !s.View().Choosing {
		t.Fatal("Expected to be choosing a key")
	}
	s.Pressed("q")

	h := led.rec.Hotkeys
	if h[game.ActionShoot] != "q" {
		t.Errorf("Expected shoot on q, got %q", h[game.ActionShoot])
	}
	if h[game.ActionBomb] != "ctrl" {
		t.Errorf("Expected bomb swapped to ctrl, got %q", h[game.ActionBomb])
	}

	s.Pressed(KeyBack)
	if s.Screen() != ScreenMenu {
		t.Errorf("Expected menu, got %s", s.Screen())
	}
}

// TestMenuQuit tests escape on the menu
func TestMenuQuit(t *testing.T) {
	s, _, _ := newTestSession(t, game.NewRecord())
	atMenu(s)
	s.Pressed(KeyBack)
	if !s.Done() {
		t.Error("Expected the session to be done")
	}
}
