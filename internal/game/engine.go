package game

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"that-night/internal/game/spatial"
	"that-night/internal/logger"
)

// Signal tells the caller what the run needs after a step.
type Signal uint8

const (
	SignalContinue Signal = iota
	SignalPaused
	SignalTerminate
)

// String returns the signal name
func (s Signal) String() string {
	switch s {
	case SignalContinue:
		return "continue"
	case SignalPaused:
		return "paused"
	case SignalTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// foodDrain is burnt every tick, running or not.
const foodDrain = 85

const intentQueueSize = 256

// Death causes
const (
	deathStarved = "starved"
	deathBlast   = "blast"
	deathCaught  = "caught"
)

// EffectSink receives the effects produced by one tick, in order.
type EffectSink interface {
	HandleEffects(fx []Effect)
}

// TickStats is what an Observer gets after every step.
type TickStats struct {
	Duration time.Duration
	Enemies  int
	Bullets  int
	Bombs    int
	Turrets  int
	Emps     int
	Chests   int
	Dropped  uint64 // events dropped by the event log
}

// Observer is notified of engine activity, for metrics.
type Observer interface {
	ObserveTick(TickStats)
	ObserveKill(kind EnemyKind, src Weapon)
	ObserveDeath(cause string, score int)
}

// RunSummary describes a finished run.
type RunSummary struct {
	ID           string           `json:"id"`
	Character    string           `json:"character"`
	Score        int              `json:"score"`
	Killed       int              `json:"killed"`
	Used         [WeaponCount]int `json:"used"`
	Ticks        int              `json:"ticks"`
	Cause        string           `json:"cause"`
	EndedAt      time.Time        `json:"endedAt"`
	NewHighscore bool             `json:"newHighscore"`
	Granted      []Achievement    `json:"granted,omitempty"`
}

// EngineConfig configures a simulation.
type EngineConfig struct {
	// Seed for the random stream. Zero picks one from the clock.
	Seed     int64
	TickRate int

	Map       MapConfig
	Character Character
	Limits    ResourceLimits

	// SpawnAttempts bounds random placement of in-run spawns.
	SpawnAttempts int

	// Ledger persists highscore, achievements and hotkeys. Optional.
	Ledger Ledger

	// RestartAfter makes the ticker loop start a new run this many ticks
	// after a death. Zero leaves the run ended.
	RestartAfter int
}

// DefaultEngineConfig returns the stock 60 TPS arena.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TickRate:      60,
		Map:           DefaultMapConfig(),
		Character:     CharacterJoshua,
		Limits:        DefaultLimits,
		SpawnAttempts: 1000,
	}
}

// Engine owns the world and the player and advances them one tick at a
// time, either through Step or through its own ticker.
type Engine struct {
	mu sync.RWMutex

	cfg    EngineConfig
	world  *World
	player *Player

	controls Controls
	tick     int

	// Deterministic RNG, reseeded every tick for replay
	rng     *rand.Rand
	rngSeed int64

	record Record
	runID  string
	ended  bool
	cause  string

	// Effects produced during the current tick
	pending []Effect
	sinks   []EffectSink
	actors  []actor

	observer Observer

	// Remote input, drained at the start of every step
	intents *IntentQueue

	// Snapshot system for lock-free render separation
	snapshotPool *SnapshotPool

	// Event sourcing for replay and debugging
	eventLog *EventLog

	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}

	// OnRunEnd is called once per run, from inside the tick, after the
	// record has been saved.
	OnRunEnd func(RunSummary)
}

// NewEngine loads the record, generates the map and starts the first run.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 60
	}
	if cfg.SpawnAttempts <= 0 {
		cfg.SpawnAttempts = DefaultEngineConfig().SpawnAttempts
	}

	e := &Engine{
		cfg:          cfg,
		rng:          rand.New(rand.NewSource(cfg.Seed)),
		rngSeed:      cfg.Seed,
		record:       NewRecord(),
		pending:      make([]Effect, 0, cfg.Limits.MaxEffects),
		snapshotPool: NewSnapshotPool(cfg.Limits),
		eventLog:     NewEventLog(),
		intents:      NewIntentQueue(intentQueueSize),
		stopChan:     make(chan struct{}),
	}

	if cfg.Ledger != nil {
		rec, err := cfg.Ledger.Load()
		if err != nil {
			return nil, fmt.Errorf("loading record: %w", err)
		}
		if rec.Achievements == nil {
			rec.Achievements = make(map[Achievement]bool)
		}
		e.record = rec
	}

	if err := e.reset(cfg.Character); err != nil {
		return nil, err
	}
	return e, nil
}

// Reset discards the current run and starts a new one with c on a freshly
// generated map. The random stream carries on from where it was.
func (e *Engine) Reset(c Character) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reset(c)
}

func (e *Engine) reset(c Character) error {
	if !e.record.Unlocked(c) {
		return fmt.Errorf("%w: %s", ErrCharacterLocked, c)
	}

	world, err := Generate(e.cfg.Map, e.rng)
	if err != nil {
		return fmt.Errorf("generating map: %w", err)
	}

	e.world = world
	e.player = NewPlayer(c, world.Grid.Center())
	e.controls = Controls{}
	e.tick = 0
	e.runID = uuid.NewString()
	e.ended = false
	e.cause = ""
	e.pending = e.pending[:0]

	e.emit(EventTypeRunStart, RunStartPayload{
		Seed:      e.rngSeed,
		Character: c.String(),
		Width:     world.Width(),
		Height:    world.Height(),
	})
	e.play(SoundAmbient, 0.2)

	logger.Log.WithFields(logrus.Fields{
		"run":       e.runID,
		"character": c.String(),
		"enemies":   world.EnemyCount(),
		"chests":    world.Chests.Len(),
	}).Info("run started")

	e.produceSnapshot()
	return nil
}

// Start begins the game loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	e.ticker = time.NewTicker(time.Second / time.Duration(e.cfg.TickRate))

	go func() {
		dead := 0
		for {
			select {
			case <-e.ticker.C:
				if e.Step() != SignalTerminate {
					dead = 0
					continue
				}
				dead++
				if e.cfg.RestartAfter > 0 && dead >= e.cfg.RestartAfter {
					dead = 0
					e.restart()
				}
			case <-e.stopChan:
				return
			}
		}
	}()

	logger.Log.WithField("tps", e.cfg.TickRate).Info("engine started")
}

// restart begins a new run with the same character.
func (e *Engine) restart() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.reset(e.player.Character); err != nil {
		logger.Log.WithError(err).Error("restarting run failed")
	}
}

// Stop stops the game loop
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	logger.Log.Info("engine stopped")
}

// Step advances the simulation by one tick.
func (e *Engine) Step() Signal {
	e.mu.Lock()
	defer e.mu.Unlock()

	for {
		in, ok := e.intents.TryPop()
		if !ok {
			break
		}
		if in.Down {
			e.press(in.Action)
		} else {
			e.release(in.Action)
		}
	}

	pl := e.player
	if pl.Dead {
		return SignalTerminate
	}
	if pl.Paused {
		e.produceSnapshot()
		e.flushEffects()
		return SignalPaused
	}

	start := time.Now()

	// Advance RNG seed deterministically and log the one this tick uses
	e.rngSeed = e.rng.Int63()
	e.rng.Seed(e.rngSeed)
	e.emit(EventTypeTick, TickPayload{
		RNGSeed: e.rngSeed,
		Enemies: e.world.EnemyCount(),
		Bullets: len(e.world.Bullets),
	})

	e.runPipeline()

	if pl.Dead && !e.ended {
		e.endRun()
	}

	if e.observer != nil {
		w := e.world
		e.observer.ObserveTick(TickStats{
			Duration: time.Since(start),
			Enemies:  w.EnemyCount(),
			Bullets:  len(w.Bullets),
			Bombs:    len(w.Bombs),
			Turrets:  len(w.Turrets),
			Emps:     len(w.Emps),
			Chests:   w.Chests.Len(),
			Dropped:  e.eventLog.Dropped(),
		})
	}
	e.produceSnapshot()
	e.flushEffects()

	switch {
	case pl.Dead:
		return SignalTerminate
	case pl.Paused:
		return SignalPaused
	}
	return SignalContinue
}

// runPipeline is the fixed per-tick order of every system.
func (e *Engine) runPipeline() {
	pl := e.player
	scoreBefore := pl.Stats[StatScore]

	shooting := e.controls.Held(ActionShoot)
	if shooting {
		e.fireShot()
	}
	if !shooting && !e.controls.Held(ActionTurret) {
		e.movePlayer()
	}

	e.updateTurrets()
	e.advanceBullets()
	e.resolveBullets()
	e.updateBombs()

	if e.tick%chestSpawnInterval == 0 {
		e.spawnRandomChest()
	}
	if e.tick%zombieSpawnInterval == 0 {
		pl.Stats[StatScore]++
		e.spawnZombie()
	}
	if e.bossDue() {
		e.spawnBoss()
	}

	e.updateEnemies()
	e.resolveBullets()

	e.expireChests()
	e.expireEmps()

	if scoreBefore/1000 != pl.Stats[StatScore]/1000 {
		e.rescaleEnemies()
	}

	if e.caughtByEnemy() {
		e.kill(deathCaught)
	}

	e.tick++
	pl.Stats[StatFood] -= foodDrain
	if pl.Stats[StatFood] <= 0 {
		e.kill(deathStarved)
	}
}

// kill marks the player dead. The first cause of the tick is kept.
func (e *Engine) kill(cause string) {
	if e.player.Dead {
		return
	}
	e.player.Dead = true
	e.cause = cause
}

// endRun settles the record once the player has died.
func (e *Engine) endRun() {
	pl := e.player
	e.ended = true
	pl.Paused = true
	e.play(SoundDefeat, 0.5)

	score := pl.Stats[StatScore]
	newHighscore, granted := EvaluateRun(&e.record, RunOutcome{Score: score, Progress: pl.Progress})
	for _, a := range granted {
		e.pending = append(e.pending, Effect{Kind: EffectAchievement, Achievement: a})
		e.emit(EventTypeAchievement, AchievementPayload{Achievement: string(a)})
	}
	if newHighscore || len(granted) > 0 {
		e.persist()
	}

	e.emit(EventTypeDeath, DeathPayload{
		Cause:  e.cause,
		Score:  score,
		Killed: pl.Progress.Killed,
		Ticks:  e.tick,
	})
	logger.Log.WithFields(logrus.Fields{
		"run":       e.runID,
		"cause":     e.cause,
		"score":     score,
		"killed":    pl.Progress.Killed,
		"ticks":     e.tick,
		"highscore": newHighscore,
		"granted":   len(granted),
	}).Info("run ended")

	if e.observer != nil {
		e.observer.ObserveDeath(e.cause, score)
	}
	if e.OnRunEnd != nil {
		e.OnRunEnd(RunSummary{
			ID:           e.runID,
			Character:    pl.Character.String(),
			Score:        score,
			Killed:       pl.Progress.Killed,
			Used:         pl.Progress.Used,
			Ticks:        e.tick,
			Cause:        e.cause,
			EndedAt:      time.Now(),
			NewHighscore: newHighscore,
			Granted:      granted,
		})
	}
}

// persist writes the record through the ledger, if any. Failures are logged;
// the run goes on.
func (e *Engine) persist() {
	if e.cfg.Ledger == nil {
		logger.Log.WithError(ErrNoLedger).Debug("record not saved")
		return
	}
	if err := e.cfg.Ledger.Save(e.record); err != nil {
		logger.Log.WithError(err).WithField("run", e.runID).Warn("saving record failed")
	}
}

// GrantAchievement sets a outside of end-of-run evaluation, as the
// tutorial does. It reports whether a was newly granted; the record is saved
// only then.
func (e *Engine) GrantAchievement(a Achievement) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.record.Grant(a) {
		return false
	}
	e.emit(EventTypeAchievement, AchievementPayload{Achievement: string(a)})
	e.persist()
	return true
}

// SetHotkeys replaces the key bindings and saves the record.
func (e *Engine) SetHotkeys(h Hotkeys) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record.Hotkeys = h
	e.persist()
}

// Record returns a copy of the persisted record.
func (e *Engine) Record() Record {
	e.mu.RLock()
	defer e.mu.RUnlock()

	r := e.record
	r.Achievements = make(map[Achievement]bool, len(e.record.Achievements))
	for a, ok := range e.record.Achievements {
		r.Achievements[a] = ok
	}
	return r
}

// Press handles a key going down. While an upgrade choice is open, Up, Down
// and Confirm drive the choice instead.
func (e *Engine) Press(a Action) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.press(a)
}

// Submit queues a key transition for the next step. It never blocks and is
// safe from any goroutine; false means the queue is full and the intent was
// dropped.
func (e *Engine) Submit(in Intent) bool {
	if in.Action >= ActionCount {
		return false
	}
	return e.intents.TryPush(in)
}

func (e *Engine) press(a Action) {
	pl := e.player
	if s := pl.Upgrading; s != nil {
		switch a {
		case ActionUp:
			if s.Up() {
				e.play(SoundUiSwitch, 0.75)
			}
		case ActionDown:
			if s.Down() {
				e.play(SoundUiSwitch, 0.75)
			}
		case ActionConfirm:
			e.play(SoundUiSwitch, 0.75)
			e.chooseUpgrade()
		}
		return
	}

	_, isDir := a.Direction()
	if pl.Paused {
		// held buttons are still tracked so they act on resume
		if !isDir {
			e.controls.press(a)
		}
		return
	}

	fresh := e.controls.press(a)
	if isDir {
		if fresh && e.controls.Held(ActionTurret) {
			e.fireTurret()
		}
		return
	}

	switch a {
	case ActionRun:
		pl.Running = true
	case ActionBomb:
		e.fireBomb()
	case ActionEmp:
		e.fireEmp()
	}
}

// Release handles a key going up. Letting go of the turret key places a
// turret.
func (e *Engine) Release(a Action) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.release(a)
}

func (e *Engine) release(a Action) {
	e.controls.release(a)
	if e.player.Paused {
		return
	}

	switch a {
	case ActionRun:
		e.player.Running = false
	case ActionTurret:
		e.fireTurret()
	}
}

// AddSink registers a receiver for the effects of every tick.
func (e *Engine) AddSink(s EffectSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, s)
}

// SetObserver installs the metrics observer.
func (e *Engine) SetObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = o
}

func (e *Engine) flushEffects() {
	if len(e.pending) == 0 {
		return
	}
	for _, s := range e.sinks {
		s.HandleEffects(e.pending)
	}
	e.pending = e.pending[:0]
}

// emit logs an event for the current tick and run.
func (e *Engine) emit(t EventType, payload interface{}) {
	e.eventLog.Append(t, e.tick, e.runID, payload)
}

// Tick returns the current tick number.
func (e *Engine) Tick() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tick
}

// RunID returns the identifier of the current run.
func (e *Engine) RunID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.runID
}

// WithState runs fn on the live world and player under the engine lock.
// fn must not keep either pointer.
func (e *Engine) WithState(fn func(w *World, p *Player)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.world, e.player)
}

// GetSnapshot returns the latest published snapshot. It is never modified
// after publication, so it may be read from any goroutine.
func (e *Engine) GetSnapshot() *GameSnapshot {
	return e.snapshotPool.AcquireRead()
}

// produceSnapshot copies the view around the player into a new snapshot
// and publishes it. Called at the end of each tick.
func (e *Engine) produceSnapshot() {
	snap := e.snapshotPool.AcquireWrite()
	limits := e.snapshotPool.GetLimits()
	w := e.world
	g := w.Grid
	pl := e.player

	snap.TickNumber = uint64(e.tick)
	snap.RNGSeed = e.rngSeed
	snap.RunID = e.runID
	snap.MapWidth = w.Width()
	snap.MapHeight = w.Height()

	// View window, clamped to the map
	vx0 := max(0, pl.Pos.X-ViewHalfWidth)
	vy0 := max(0, pl.Pos.Y-ViewHalfHeight)
	vx1 := min(w.Width()-1, pl.Pos.X+ViewHalfWidth)
	vy1 := min(w.Height()-1, pl.Pos.Y+ViewHalfHeight)
	snap.ViewX, snap.ViewY = vx0, vy0
	snap.ViewWidth, snap.ViewHeight = vx1-vx0+1, vy1-vy0+1

	inView := func(p spatial.Point) bool {
		return p.X >= vx0 && p.X <= vx1 && p.Y >= vy0 && p.Y <= vy1
	}

	for y := vy0; y <= vy1; y++ {
		for x := vx0; x <= vx1; x++ {
			t := g.Tile(x, y)
			ts := TileSnapshot{Kind: t.Kind, Hits: t.Hits}
			if t.Kind == spatial.TileChest {
				ts.Chest = t.Chest.Kind
			}
			snap.Tiles = append(snap.Tiles, ts)

			en := g.Occupant(x, y)
			if en == nil || len(snap.Enemies) >= limits.MaxEnemies {
				continue
			}
			snap.Enemies = append(snap.Enemies, EnemySnapshot{
				X:       x,
				Y:       y,
				HPRatio: float64(en.HP) / float64(max(1, en.MaxHP)),
				Boss:    en.Kind == EnemyBoss,
				Slowed:  en.Slowed(e.tick),
			})
		}
	}

	for _, b := range w.Bullets {
		if len(snap.Bullets) >= limits.MaxBullets {
			break
		}
		if inView(b.Pos) {
			snap.Bullets = append(snap.Bullets, BulletSnapshot{X: b.Pos.X, Y: b.Pos.Y, Age: e.tick - b.Start})
		}
	}
	for _, b := range w.Bombs {
		if len(snap.Bombs) >= limits.MaxBombs {
			break
		}
		snap.Bombs = append(snap.Bombs, BombSnapshot{
			X:         b.Pos.X,
			Y:         b.Pos.Y,
			Radius:    b.Radius,
			Remaining: b.End() - e.tick,
		})
	}
	for _, t := range w.Turrets {
		if len(snap.Turrets) >= limits.MaxTurrets {
			break
		}
		charge := 1.0
		if t.Cooldown > 0 {
			charge = math.Min(1, float64(e.tick-t.Last)/float64(t.Cooldown))
		}
		snap.Turrets = append(snap.Turrets, TurretSnapshot{
			X:         t.Pos.X,
			Y:         t.Pos.Y,
			Direction: t.Direction,
			Charge:    charge,
		})
	}
	for _, m := range w.Emps {
		if len(snap.Emps) >= limits.MaxEmps {
			break
		}
		progress := 1.0
		if m.Duration > 0 {
			progress = math.Min(1, float64(e.tick-m.Start)/float64(m.Duration))
		}
		snap.Emps = append(snap.Emps, EmpSnapshot{X: m.Pos.X, Y: m.Pos.Y, Radius: m.Radius, Progress: progress})
	}

	snap.Player = PlayerSnapshot{
		X:         pl.Pos.X,
		Y:         pl.Pos.Y,
		Character: pl.Character.String(),
		Stats:     pl.Stats,
		Killed:    pl.Progress.Killed,
		Used:      pl.Progress.Used,
		Dead:      pl.Dead,
		Paused:    pl.Paused,
		Running:   pl.Running,
	}

	if w.Boss.Alive {
		dx, dy := w.Boss.Pos.X-pl.Pos.X, w.Boss.Pos.Y-pl.Pos.Y
		snap.Boss = BossSnapshot{
			Alive: true,
			DX:    dx,
			DY:    dy,
			Angle: math.Atan2(float64(-dy), float64(dx)),
		}
	}

	if s := pl.Upgrading; s != nil {
		snap.Upgrade.Open = true
		snap.Upgrade.Cursor = s.Cursor
		for _, u := range s.Choices {
			snap.Upgrade.Choices = append(snap.Upgrade.Choices, u.Text())
		}
	}

	for _, fx := range e.pending {
		if len(snap.Effects) >= limits.MaxEffects {
			break
		}
		snap.Effects = append(snap.Effects, fx)
	}

	snap.EnemyCount = w.EnemyCount()
	snap.ChestCount = w.Chests.Len()
	snap.BossesSeen = w.Boss.Nth

	e.snapshotPool.PublishWrite()
}

// StartEventLog initializes the event logging system
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog gracefully stops the event logging system
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// GetEventLogStats returns event log statistics for monitoring
func (e *Engine) GetEventLogStats() map[string]interface{} {
	return e.eventLog.GetStats()
}

// GetLimits returns the current resource limits
func (e *Engine) GetLimits() ResourceLimits {
	return e.snapshotPool.GetLimits()
}
