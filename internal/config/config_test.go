package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/sweep/internal/core/spatial"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 20*time.Millisecond, c.TickInterval())
	assert.InDelta(t, 0.02, c.FixedDelta(), 1e-15)
	assert.Equal(t, 10, c.Resolver.MaxDepth)
	assert.Equal(t, 5, c.Resolver.MaxIterations)
	assert.Equal(t, 1.0, c.Projectile.Lifetime)
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	src := `
tick_rate: 60
parallel: true
resolver:
  max_depth: 4
projectile:
  speed: 25
  response: bounce
arena:
  width: 0
  colliders:
    - kind: segment
      a: {x: 0, y: 0}
      b: {x: 5, y: 0}
`
	c, err := LoadYAML(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, 60, c.TickRate)
	assert.True(t, c.Parallel)
	assert.Equal(t, 4, c.Resolver.MaxDepth)
	assert.Equal(t, 5, c.Resolver.MaxIterations, "untouched fields keep defaults")
	assert.Equal(t, 25.0, c.Projectile.Speed)
	assert.Equal(t, 0.1, c.Projectile.Radius)
	assert.Equal(t, "bounce", c.Projectile.Response)
	require.Len(t, c.Arena.Colliders, 1)

	shapes, err := c.Arena.Shapes()
	require.NoError(t, err)
	require.Len(t, shapes, 1, "no walls without a size")
	assert.IsType(t, spatial.Segment{}, shapes[0])
}

func TestLoadJSON(t *testing.T) {
	c, err := LoadJSON(strings.NewReader(`{"tick_rate": 30, "projectile": {"lifetime": 2.5}, "log": {"level": "debug"}}`))
	require.NoError(t, err)
	assert.Equal(t, 30, c.TickRate)
	assert.Equal(t, 2.5, c.Projectile.Lifetime)
	assert.Equal(t, 10.0, c.Projectile.Speed)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := LoadYAML(strings.NewReader("tick_rat: 10\n"))
	assert.Error(t, err)
	_, err = LoadJSON(strings.NewReader(`{"tick_rat": 10}`))
	assert.Error(t, err)
}

func TestLoadEmptyYAMLGivesDefaults(t *testing.T) {
	c, err := LoadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "sim.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("tick_rate: 20\n"), 0o600))
	c, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 20, c.TickRate)

	jsonPath := filepath.Join(dir, "sim.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"tick_rate": 40}`), 0o600))
	c, err = Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 40, c.TickRate)

	tomlPath := filepath.Join(dir, "sim.toml")
	require.NoError(t, os.WriteFile(tomlPath, nil, 0o600))
	_, err = Load(tomlPath)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidateReportsEveryField(t *testing.T) {
	c := Default()
	c.TickRate = 0
	c.Resolver.Epsilon = 0
	c.Character.Response = "stick"
	c.Arena.Colliders = append(c.Arena.Colliders, ColliderConfig{Kind: "triangle"})
	c.Log.Level = "loud"

	err := c.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	for _, want := range []string{"tick_rate", "resolver.epsilon", "character.response", "arena.colliders[3]", "log.level"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestArenaShapesIncludeWalls(t *testing.T) {
	a := ArenaConfig{Width: 10, Height: 6}
	shapes, err := a.Shapes()
	require.NoError(t, err)
	require.Len(t, shapes, 4)

	grid := spatial.NewGrid()
	for _, s := range shapes {
		_, err := grid.Insert(s)
		require.NoError(t, err)
	}
	assert.Len(t, grid.Overlaps(r2Point(4.8, 2.8), 0.5), 2)
	assert.Empty(t, grid.Overlaps(r2Point(0, 0), 0.5))
}

func TestColliderShapeRejectsDegenerate(t *testing.T) {
	_, err := ColliderConfig{Kind: "circle", Radius: 0}.Shape()
	assert.ErrorIs(t, err, spatial.ErrInvalidShape)
	_, err = ColliderConfig{Kind: "BOX", Min: Point{}, Max: Point{X: 1, Y: 1}}.Shape()
	assert.NoError(t, err)
}

func r2Point(x, y float64) r2.Point { return r2.Point{X: x, Y: y} }
