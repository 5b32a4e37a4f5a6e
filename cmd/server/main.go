package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/geo/r2"
	"github.com/zeusync/sweep/internal/config"
	"github.com/zeusync/sweep/internal/core/observability/log"
	"github.com/zeusync/sweep/internal/core/simulation"
	"github.com/zeusync/sweep/internal/core/systems/physics"
	"github.com/zeusync/sweep/internal/injector"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or JSON config file")
	bots := flag.Int("bots", 4, "number of wandering characters to spawn")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error loading config:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	app, err := injector.InitializeApp(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing:", err)
		os.Exit(1)
	}
	logger := app.Logger
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Debug.Enabled {
		if _, err = app.Hub.Attach(app.Bus); err != nil {
			logger.Fatal("failed to attach debug hub", log.Error(err))
		}
		if err = app.HTTP.Start(cfg.Debug.Listen); err != nil {
			logger.Fatal("failed to start debug server", log.Error(err))
		}
	}

	ids := spawnBots(app.World, cfg, *bots, logger)
	go wander(ctx, app.World, ids)

	logger.Info("simulation running",
		log.Int("tick_rate", cfg.TickRate),
		log.Bool("parallel", cfg.Parallel),
		log.Int("bots", len(ids)),
	)
	if err = app.World.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("simulation stopped", log.Error(err))
	}

	if cfg.Debug.Enabled {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err = app.HTTP.Stop(shutdownCtx); err != nil {
			logger.Warn("debug server shutdown", log.Error(err))
		}
	}
	st := app.World.Stats()
	logger.Info("simulation stopped",
		log.Uint64("ticks", st.Ticks),
		log.Uint64("resolves", st.Resolves),
		log.Uint64("bound_aborts", st.BoundAborts),
	)
}

// spawnBots places characters on random free points inside the arena.
func spawnBots(w *simulation.World, cfg *config.Config, n int, logger log.Log) []physics.BodyID {
	halfW := cfg.Arena.Width/2 - cfg.Character.Radius
	halfH := cfg.Arena.Height/2 - cfg.Character.Radius
	if halfW <= 0 || halfH <= 0 {
		halfW, halfH = 10, 10
	}

	ids := make([]physics.BodyID, 0, n)
	for attempts := 0; len(ids) < n && attempts < n*50; attempts++ {
		pos := r2.Point{
			X: (rand.Float64()*2 - 1) * halfW,
			Y: (rand.Float64()*2 - 1) * halfH,
		}
		id, err := w.SpawnCharacter(pos)
		if errors.Is(err, simulation.ErrSpawnBlocked) {
			continue
		}
		if err != nil {
			logger.Warn("failed to spawn bot", log.Error(err))
			break
		}
		ids = append(ids, id)
	}
	return ids
}

// wander re-rolls every bot's intent twice a second and fires now and then.
func wander(ctx context.Context, w *simulation.World, ids []physics.BodyID) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range ids {
				intent := simulation.Intent{X: int8(rand.Intn(3) - 1), Y: int8(rand.Intn(3) - 1)}
				if err := w.SetIntent(id, intent); err != nil {
					continue
				}
				if rand.Intn(3) == 0 {
					_, _ = w.FireFacing(id)
				}
			}
		}
	}
}
