package injector

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/sweep/internal/config"
)

func TestInitializeAppWiresWorld(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "error"

	app, err := InitializeApp(cfg)
	require.NoError(t, err)
	require.NotNil(t, app.World)
	assert.Same(t, cfg, app.Config)
	assert.Equal(t, len(cfg.Arena.Colliders)+4, app.World.Grid().Len())

	id, err := app.World.SpawnCharacter(r2.Point{})
	require.NoError(t, err)
	app.World.Step(cfg.FixedDelta())
	_, ok := app.World.Entity(id)
	assert.True(t, ok)
}

func TestInitializeAppRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "loud"
	_, err := InitializeApp(cfg)
	assert.Error(t, err)

	cfg = config.Default()
	cfg.TickRate = 0
	_, err = InitializeApp(cfg)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
