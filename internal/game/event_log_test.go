package game

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// TestEventLogRecordsSeeds tests that every tick seed of a run can be read
// back from the file
func TestEventLogRecordsSeeds(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Seed = 5
	cfg.Map = smallMap()
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	path := filepath.Join(t.TempDir(), "events.ndjson")
	if err := e.StartEventLog(path); err != nil {
		t.Fatalf("StartEventLog: %v", err)
	}
	if err := e.Reset(CharacterJoshua); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	var seeds []int64
	for i := 0; i < 30; i++ {
		sig := e.Step()
		seeds = append(seeds, e.rngSeed)
		if sig == SignalTerminate {
			break
		}
	}
	e.StopEventLog()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open log: %v", err)
	}
	defer f.Close()

	run, err := ReadRun(f, e.RunID())
	if err != nil {
		t.Fatalf("ReadRun: %v", err)
	}
	if !slices.Equal(run.Seeds, seeds) {
		t.Errorf("Expected seeds %v, got %v", seeds, run.Seeds)
	}
	if run.Start.Character != "Joshua" || run.Start.Width != 61 {
		t.Errorf("Expected Joshua on a 61 wide map, got %+v", run.Start)
	}
	if e.eventLog.Dropped() != 0 {
		t.Errorf("Expected nothing dropped, got %d", e.eventLog.Dropped())
	}
}

// TestReadRun tests run filtering and log validation
func TestReadRun(t *testing.T) {
	const (
		startA = `{"v":1,"seq":1,"type":"run_start","tick":0,"run":"a","ts":0,"payload":{"seed":9,"character":"Anne","width":40,"height":30}}`
		tickA0 = `{"v":1,"seq":2,"type":"tick","tick":0,"run":"a","ts":0,"payload":{"rngSeed":11}}`
		tickB0 = `{"v":1,"seq":3,"type":"tick","tick":0,"run":"b","ts":0,"payload":{"rngSeed":99}}`
		tickA1 = `{"v":1,"seq":4,"type":"tick","tick":1,"run":"a","ts":0,"payload":{"rngSeed":12}}`
		killA  = `{"v":1,"seq":5,"type":"kill","tick":1,"run":"a","ts":0,"payload":{"kind":"zombie"}}`
		tickA2 = `{"v":1,"seq":7,"type":"tick","tick":2,"run":"a","ts":0,"payload":{"rngSeed":13}}`
		deathA = `{"v":1,"seq":6,"type":"death","tick":1,"run":"a","ts":0,"payload":{"cause":"starved","score":7,"killed":1,"ticks":2}}`
	)

	t.Run("whole run", func(t *testing.T) {
		log := strings.Join([]string{startA, tickA0, tickB0, "", tickA1, killA, deathA}, "\n")
		run, err := ReadRun(strings.NewReader(log), "a")
		if err != nil {
			t.Fatalf("ReadRun: %v", err)
		}
		if !slices.Equal(run.Seeds, []int64{11, 12}) {
			t.Errorf("Expected seeds [11 12], got %v", run.Seeds)
		}
		if run.FirstTick != 0 {
			t.Errorf("Expected first tick 0, got %d", run.FirstTick)
		}
		if run.Start.Character != "Anne" || run.Start.Seed != 9 {
			t.Errorf("Expected Anne with seed 9, got %+v", run.Start)
		}
		if run.Kills != 1 || run.Events != 5 {
			t.Errorf("Expected 1 kill in 5 events, got %d in %d", run.Kills, run.Events)
		}
		if run.Death == nil || run.Death.Cause != "starved" {
			t.Errorf("Expected starvation, got %+v", run.Death)
		}
	})

	t.Run("started mid-run", func(t *testing.T) {
		run, err := ReadRun(strings.NewReader(tickA1+"\n"+tickA2), "a")
		if err != nil {
			t.Fatalf("ReadRun: %v", err)
		}
		if run.FirstTick != 1 || !slices.Equal(run.Seeds, []int64{12, 13}) {
			t.Errorf("Expected seeds [12 13] from tick 1, got %v from %d", run.Seeds, run.FirstTick)
		}
	})

	tests := []struct {
		name    string
		log     string
		run     string
		wantErr error
	}{
		{"unknown run", tickA0, "zzz", ErrRunNotFound},
		{"malformed line", tickA0 + "\n{nope", "a", ErrBadEventLog},
		{"unknown type", `{"v":1,"type":"teleport","tick":0,"run":"a"}`, "a", ErrBadEventLog},
		{"tick out of order", tickA1 + "\n" + tickA0, "a", ErrBadEventLog},
		{"missing tick", tickA0 + "\n" + tickA2, "a", ErrTickGap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRun(strings.NewReader(tt.log), tt.run)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestEventLogStopped tests that a log that never started accepts nothing
func TestEventLogStopped(t *testing.T) {
	el := NewEventLog()
	if el.Append(EventTypeTick, 0, "a", TickPayload{RNGSeed: 1}) {
		t.Error("Expected append to a stopped log to fail")
	}
	el.Stop()

	if got := el.GetStats()["running"]; got != false {
		t.Errorf("Expected stopped log, got running=%v", got)
	}
}
