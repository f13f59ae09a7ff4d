package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"that-night/internal/api"
	"that-night/internal/config"
	"that-night/internal/game"
	"that-night/internal/logger"
	"that-night/internal/render"
	"that-night/internal/storage"
)

// leaderboardWarmup is how many stored runs seed the in-memory ranking.
const leaderboardWarmup = 1000

func main() {
	// Load .env file from parent directory, then the current one
	if err := godotenv.Load("../.env"); err != nil {
		_ = godotenv.Load(".env")
	}
	logger.Init()
	log := logger.Log

	appConfig := config.Load()
	simCfg := appConfig.Sim
	serverCfg := appConfig.Server

	store, err := storage.Open(appConfig.Storage.Path)
	if err != nil {
		log.WithError(err).Fatal("opening storage failed")
	}
	defer store.Close()

	leaderboard := game.NewLeaderboard(time.Now().UnixNano())
	if runs, err := store.TopRuns(leaderboardWarmup); err != nil {
		log.WithError(err).Warn("loading run history failed")
	} else {
		for _, r := range runs {
			leaderboard.Record(r)
		}
	}

	engine, err := game.NewEngine(simCfg.Engine(appConfig.Limits, store))
	if err != nil {
		log.WithError(err).Fatal("creating engine failed")
	}
	engine.SetObserver(api.SimMetrics{})

	// Runs end inside the tick, so history writes stay off the tick goroutine
	finished := make(chan game.RunSummary, 16)
	engine.OnRunEnd = func(run game.RunSummary) {
		select {
		case finished <- run:
		default:
			log.WithField("run", run.ID).Warn("run history backlog full, run not recorded")
		}
	}
	go func() {
		for run := range finished {
			rank := leaderboard.Record(run)
			if err := store.AppendRun(run); err != nil {
				log.WithError(err).WithField("run", run.ID).Warn("appending run failed")
			}
			log.WithFields(logrus.Fields{
				"run":   run.ID,
				"score": run.Score,
				"rank":  rank,
			}).Info("run recorded")
		}
	}()

	if simCfg.EventLogPath != "" {
		if err := engine.StartEventLog(simCfg.EventLogPath); err != nil {
			log.WithError(err).Warn("event log disabled")
		} else {
			log.WithField("path", simCfg.EventLogPath).Info("event log enabled")
		}
	}

	api.StartDebugServer(appConfig.Debug)

	limits := appConfig.Limits
	auth := api.NewTokenAuth(serverCfg.AdminToken)
	if !auth.Enabled() {
		log.Warn("ADMIN_TOKEN not set, input routes are open")
	}

	server := api.NewServer(api.ServerConfig{
		Router: api.RouterConfig{
			Engine:      engine,
			Runs:        store,
			Leaderboard: leaderboard,
			Minimap:     render.NewMinimap(appConfig.Render.CellSize, appConfig.Render.HUD),
			Limits: &api.LimitConfig{
				Read:  api.Budget{PerSecond: serverCfg.RateLimit, Burst: serverCfg.RateBurst},
				Input: api.Budget{PerSecond: serverCfg.InputRate, Burst: serverCfg.InputBurst},
			},
			CORSOrigins: serverCfg.AllowOrigins,
			Auth:        auth,
		},
		Hub: api.HubConfig{
			MaxClients: serverCfg.MaxClients,
			MaxPerIP:   api.DefaultHubConfig().MaxPerIP,
			Origins:    serverCfg.AllowOrigins,
			Auth:       auth,
		},
		BroadcastInterval: api.DefaultBroadcastInterval,
	})

	engine.Start()
	log.WithFields(logrus.Fields{
		"tps":        simCfg.TickRate,
		"width":      simCfg.Width,
		"height":     simCfg.Height,
		"character":  simCfg.Character,
		"maxBullets": limits.MaxBullets,
		"maxEffects": limits.MaxEffects,
	}).Info("simulation running")

	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		if err := server.Start(addr); err != nil {
			log.WithError(err).Fatal("api server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("api shutdown failed")
	}
	engine.Stop()
	engine.StopEventLog()
}
