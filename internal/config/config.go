// Package config provides centralized configuration management.
// Every section has a DefaultX constructor and an XFromEnv variant where
// environment variables take precedence over the defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"that-night/internal/game"
)

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimConfig holds the simulation settings.
type SimConfig struct {
	Seed      int64 // 0 picks a seed from the clock
	TickRate  int   // Ticks per second
	Character string

	Width           int
	Height          int
	SafeRadius      int
	Enemies         int
	EnemySafeRadius int
	Chests          int
	MaxAttempts     int // Rejection sampling bound per generated entity

	SpawnAttempts int // Rejection sampling bound per in-run spawn
	RestartAfter  int // Ticks before a headless run restarts, 0 never

	EventLogPath string // NDJSON event log, empty to disable
}

// DefaultSim returns the stock 400x400 arena at 60 TPS.
func DefaultSim() SimConfig {
	m := game.DefaultMapConfig()
	return SimConfig{
		TickRate:        60,
		Character:       game.CharacterJoshua.String(),
		Width:           m.Width,
		Height:          m.Height,
		SafeRadius:      m.SafeRadius,
		Enemies:         m.Enemies,
		EnemySafeRadius: m.EnemySafeRadius,
		Chests:          m.Chests,
		MaxAttempts:     m.MaxAttempts,
		SpawnAttempts:   1000,
		RestartAfter:    180,
	}
}

// SimFromEnv returns simulation configuration with environment overrides.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()

	if s := getEnvInt64("SIM_SEED", 0); s != 0 {
		cfg.Seed = s
	}
	if tps := getEnvInt("SIM_TPS", 0); tps > 0 {
		cfg.TickRate = tps
	}
	if c := os.Getenv("SIM_CHARACTER"); c != "" {
		cfg.Character = c
	}
	if w := getEnvInt("MAP_WIDTH", 0); w > 0 {
		cfg.Width = w
	}
	if h := getEnvInt("MAP_HEIGHT", 0); h > 0 {
		cfg.Height = h
	}
	if n := getEnvInt("MAP_ENEMIES", -1); n >= 0 {
		cfg.Enemies = n
	}
	if n := getEnvInt("MAP_CHESTS", -1); n >= 0 {
		cfg.Chests = n
	}
	if n := getEnvInt("SIM_RESTART_TICKS", -1); n >= 0 {
		cfg.RestartAfter = n
	}
	cfg.EventLogPath = os.Getenv("EVENT_LOG_PATH")

	return cfg
}

// Map returns the generator settings.
func (s SimConfig) Map() game.MapConfig {
	return game.MapConfig{
		Width:           s.Width,
		Height:          s.Height,
		SafeRadius:      s.SafeRadius,
		Enemies:         s.Enemies,
		EnemySafeRadius: s.EnemySafeRadius,
		Chests:          s.Chests,
		MaxAttempts:     s.MaxAttempts,
	}
}

// Engine returns an engine configuration. An unknown character name falls
// back to Joshua.
func (s SimConfig) Engine(limits game.ResourceLimits, ledger game.Ledger) game.EngineConfig {
	c, ok := game.ParseCharacter(s.Character)
	if !ok {
		c = game.CharacterJoshua
	}
	return game.EngineConfig{
		Seed:          s.Seed,
		TickRate:      s.TickRate,
		Map:           s.Map(),
		Character:     c,
		Limits:        limits,
		SpawnAttempts: s.SpawnAttempts,
		Ledger:        ledger,
		RestartAfter:  s.RestartAfter,
	}
}

// =============================================================================
// SNAPSHOT LIMITS
// =============================================================================

// LimitsFromEnv returns the snapshot caps with environment overrides.
func LimitsFromEnv() game.ResourceLimits {
	l := game.DefaultLimits

	if n := getEnvInt("MAX_BULLETS", 0); n > 0 {
		l.MaxBullets = n
	}
	if n := getEnvInt("MAX_EFFECTS", 0); n > 0 {
		l.MaxEffects = n
	}

	return l
}

// =============================================================================
// AUDIO CONFIGURATION
// =============================================================================

// AudioConfig holds audio mixer settings.
type AudioConfig struct {
	SampleRate int     // Audio sample rate in Hz
	Volume     float64 // Master volume (0.0 to 1.0)
	Enabled    bool    // Whether cues are played at all
	CueDir     string  // Optional directory of <cue>.ogg / <cue>.wav samples
	BufferSize time.Duration
}

// DefaultAudio returns the default audio configuration.
func DefaultAudio() AudioConfig {
	return AudioConfig{
		SampleRate: 44100,
		Volume:     0.5,
		Enabled:    true,
		BufferSize: 50 * time.Millisecond,
	}
}

// AudioFromEnv returns audio configuration with environment variable overrides.
func AudioFromEnv() AudioConfig {
	cfg := DefaultAudio()

	if v := getEnvFloat("AUDIO_VOLUME", -1); v >= 0 {
		cfg.Volume = v
	}
	if os.Getenv("AUDIO_ENABLED") == "false" {
		cfg.Enabled = false
	}
	if d := os.Getenv("AUDIO_CUE_DIR"); d != "" {
		cfg.CueDir = d
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int
	MaxClients   int    // Websocket connections accepted at once
	AdminToken   string // Bearer token for input and control routes
	AllowOrigins []string
	RateLimit    float64 // Read requests per second per client
	RateBurst    int
	InputRate    float64 // Key transitions per second per client
	InputBurst   int
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:         3000,
		MaxClients:   100,
		AllowOrigins: []string{"*"},
		RateLimit:    20,
		RateBurst:    40,
		InputRate:    60,
		InputBurst:   120,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if mc := getEnvInt("MAX_CLIENTS", 0); mc > 0 {
		cfg.MaxClients = mc
	}
	cfg.AdminToken = os.Getenv("ADMIN_TOKEN")
	if r := getEnvFloat("RATE_LIMIT", 0); r > 0 {
		cfg.RateLimit = r
	}
	cfg.RateBurst = getEnvInt("RATE_BURST", cfg.RateBurst)
	if r := getEnvFloat("INPUT_RATE", 0); r > 0 {
		cfg.InputRate = r
		cfg.InputBurst = int(2 * r)
	}
	if o := os.Getenv("ALLOW_ORIGINS"); o != "" {
		cfg.AllowOrigins = strings.Split(o, ",")
	}

	return cfg
}

// =============================================================================
// DEBUG CONFIGURATION
// =============================================================================

// DebugConfig controls the pprof and metrics listener.
type DebugConfig struct {
	Enabled  bool
	Addr     string
	External bool   // Allow a non-loopback Addr
	User     string // Basic auth, off when empty
	Pass     string
}

// DefaultDebug listens on loopback only.
func DefaultDebug() DebugConfig {
	return DebugConfig{Enabled: true, Addr: "127.0.0.1:6060"}
}

// DebugFromEnv returns debug configuration with environment overrides.
func DebugFromEnv() DebugConfig {
	cfg := DefaultDebug()
	cfg.Enabled = os.Getenv("DISABLE_DEBUG_SERVER") != "true"
	if a := os.Getenv("DEBUG_ADDR"); a != "" {
		cfg.Addr = a
	}
	cfg.External = os.Getenv("ALLOW_DEBUG_EXTERNAL") == "true"
	cfg.User = os.Getenv("DEBUG_USER")
	cfg.Pass = os.Getenv("DEBUG_PASS")
	return cfg
}

// =============================================================================
// STORAGE CONFIGURATION
// =============================================================================

// StorageConfig locates the persisted record.
type StorageConfig struct {
	Path       string // SQLite database file
	KeymapPath string // Optional YAML keymap
}

// DefaultStorage returns the default storage configuration.
func DefaultStorage() StorageConfig {
	return StorageConfig{
		Path:       "that-night.db",
		KeymapPath: "keymap.yaml",
	}
}

// StorageFromEnv returns storage configuration with environment overrides.
func StorageFromEnv() StorageConfig {
	cfg := DefaultStorage()

	if p := os.Getenv("DB_PATH"); p != "" {
		cfg.Path = p
	}
	if p := os.Getenv("KEYMAP_PATH"); p != "" {
		cfg.KeymapPath = p
	}

	return cfg
}

// =============================================================================
// RENDER CONFIGURATION
// =============================================================================

// RenderConfig sizes the PNG minimap.
type RenderConfig struct {
	CellSize int // Pixels per cell
	HUD      bool
}

// DefaultRender returns the default render configuration.
func DefaultRender() RenderConfig {
	return RenderConfig{CellSize: 12, HUD: true}
}

// RenderFromEnv returns render configuration with environment overrides.
func RenderFromEnv() RenderConfig {
	cfg := DefaultRender()
	if c := getEnvInt("MINIMAP_CELL", 0); c > 0 {
		cfg.CellSize = c
	}
	if os.Getenv("MINIMAP_HUD") == "false" {
		cfg.HUD = false
	}
	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Sim     SimConfig
	Limits  game.ResourceLimits
	Audio   AudioConfig
	Server  ServerConfig
	Debug   DebugConfig
	Storage StorageConfig
	Render  RenderConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Sim:     SimFromEnv(),
		Limits:  LimitsFromEnv(),
		Audio:   AudioFromEnv(),
		Server:  ServerFromEnv(),
		Debug:   DebugFromEnv(),
		Storage: StorageFromEnv(),
		Render:  RenderFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
