package injector

import (
	"fmt"

	"github.com/google/wire"
	"github.com/zeusync/sweep/internal/config"
	"github.com/zeusync/sweep/internal/core/events/bus"
	"github.com/zeusync/sweep/internal/core/observability/log"
	"github.com/zeusync/sweep/internal/core/simulation"
	"github.com/zeusync/sweep/internal/core/spatial"
	"github.com/zeusync/sweep/internal/core/systems/physics"
	"github.com/zeusync/sweep/internal/server"
)

// App is the fully wired process.
type App struct {
	Config *config.Config
	Logger *log.Logger
	Bus    bus.EventBus
	World  *simulation.World
	Hub    *server.DebugHub
	HTTP   *server.HTTPServer
}

var ProviderSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideGrid,
	ProvideResolver,
	bus.New,
	simulation.NewWorld,
	ProvideHub,
	ProvideHTTPServer,
	wire.Struct(new(App), "*"),
)

func ProvideLogger(cfg *config.Config) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return log.New(level), nil
}

func ProvideGrid(cfg *config.Config) *spatial.Grid {
	return spatial.NewGrid(
		spatial.WithCellSize(cfg.Spatial.CellSize),
		spatial.WithContactSkin(cfg.Spatial.ContactSkin),
		spatial.WithMaxCellScan(cfg.Spatial.MaxCellScan),
	)
}

func ProvideResolver(cfg *config.Config, grid *spatial.Grid, logger log.Log) *physics.Resolver {
	return physics.NewResolver(grid,
		physics.WithEpsilon(cfg.Resolver.Epsilon),
		physics.WithMaxDepth(cfg.Resolver.MaxDepth),
		physics.WithMaxIterations(cfg.Resolver.MaxIterations),
		physics.WithLogger(logger.With(log.String("system", "resolver"))),
	)
}

func ProvideHub(logger log.Log) *server.DebugHub {
	return server.NewDebugHub(server.DefaultHubConfig(), logger)
}

func ProvideHTTPServer(hub *server.DebugHub, world *simulation.World, logger log.Log) *server.HTTPServer {
	return server.NewHTTPServer(hub, func() any { return world.Stats() }, logger)
}
