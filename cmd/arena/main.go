package main

import (
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gopxl/beep"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"that-night/internal/audio"
	"that-night/internal/config"
	"that-night/internal/game"
	"that-night/internal/logger"
	"that-night/internal/session"
	"that-night/internal/storage"
)

func main() {
	// Load .env file from parent directory, then the current one
	if err := godotenv.Load("../.env"); err != nil {
		_ = godotenv.Load(".env")
	}
	logger.Init()
	log := logger.Log

	// The screen belongs to tcell, so log lines go to a file
	logPath := os.Getenv("ARENA_LOG")
	if logPath == "" {
		logPath = "arena.log"
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.WithError(err).Fatal("opening log file failed")
	}
	defer logFile.Close()
	logger.Redirect(logFile)

	appConfig := config.Load()
	simCfg := appConfig.Sim

	store, err := storage.Open(appConfig.Storage.Path)
	if err != nil {
		log.WithError(err).Fatal("opening storage failed")
	}
	defer store.Close()

	// The session decides when a new run starts
	engineCfg := simCfg.Engine(appConfig.Limits, store)
	engineCfg.RestartAfter = 0
	engine, err := game.NewEngine(engineCfg)
	if err != nil {
		log.WithError(err).Fatal("creating engine failed")
	}

	keymapPath := appConfig.Storage.KeymapPath
	loaded, err := config.LoadKeymap(keymapPath)
	if err != nil {
		log.WithError(err).WithField("path", keymapPath).Warn("keymap ignored")
		loaded = engine.Record().Hotkeys
	} else if loaded != game.DefaultHotkeys() {
		engine.SetHotkeys(loaded)
	}
	defer func() {
		if h := engine.Record().Hotkeys; h != loaded {
			if err := config.SaveKeymap(keymapPath, h); err != nil {
				log.WithError(err).Warn("saving keymap failed")
			}
		}
	}()

	if simCfg.EventLogPath != "" {
		if err := engine.StartEventLog(simCfg.EventLogPath); err != nil {
			log.WithError(err).Warn("event log disabled")
		}
		defer engine.StopEventLog()
	}

	audioCfg := appConfig.Audio
	bank, err := audio.NewBank(beep.SampleRate(audioCfg.SampleRate), audioCfg.CueDir)
	if err != nil {
		log.WithError(err).Fatal("building cue bank failed")
	}
	mixer := audio.NewMixer(bank, audioCfg.Volume, audioCfg.Enabled)
	if audioCfg.Enabled {
		if err := mixer.StartSpeaker(audioCfg.BufferSize); err != nil {
			log.WithError(err).Warn("no audio device, running muted")
			mixer.SetEnabled(false)
		} else {
			defer mixer.StopSpeaker()
		}
	}
	engine.AddSink(mixer)

	sess := session.New(engine, mixer)

	screen, err := tcell.NewScreen()
	if err != nil {
		log.WithError(err).Fatal("creating screen failed")
	}
	if err := screen.Init(); err != nil {
		log.WithError(err).Fatal("initializing screen failed")
	}
	defer screen.Fini()
	screen.SetStyle(tcell.StyleDefault)
	screen.HideCursor()

	log.WithFields(logrus.Fields{
		"tps":   simCfg.TickRate,
		"audio": audioCfg.Enabled,
	}).Info("arena started")

	run(screen, sess, engine, simCfg.TickRate)
	log.Info("arena closed")
}

// run drives the session at tickRate frames per second until the player
// quits or presses ctrl+c.
func run(screen tcell.Screen, sess *session.Session, engine *game.Engine, tickRate int) {
	if tickRate <= 0 {
		tickRate = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	keys := newKeyHold()
	for !sess.Done() {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyCtrlC {
					return
				}
				now := time.Now()
				// Menus react to every repeat; play only to fresh presses
				playing := sess.Screen() == session.ScreenPlaying
				for _, name := range keyNames(ev) {
					if keys.press(name, now) || !playing {
						sess.Pressed(name)
					}
				}
			case *tcell.EventResize:
				screen.Sync()
			}

		case now := <-ticker.C:
			for _, name := range keys.expire(now) {
				sess.Released(name)
			}
			sess.Update()
			draw(screen, sess.View(), engine.GetSnapshot())
		}
	}
}
