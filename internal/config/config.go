package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/geo/r2"
	"github.com/zeusync/sweep/internal/core/observability/log"
	"github.com/zeusync/sweep/internal/core/spatial"
	"github.com/zeusync/sweep/internal/core/systems/physics"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidConfig     = errors.New("config: invalid")
	ErrUnsupportedFormat = errors.New("config: unsupported file format")
)

// Config describes one simulation process: the fixed tick, the resolver
// tuning, the collider index, the bodies it spawns and the arena they live in.
type Config struct {
	// TickRate is the number of fixed steps per second.
	TickRate int `json:"tick_rate" yaml:"tick_rate"`
	// Parallel resolves bodies concurrently against a collider snapshot.
	Parallel bool `json:"parallel" yaml:"parallel"`
	// Workers caps concurrent resolves; 0 means GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers"`

	Resolver   ResolverConfig   `json:"resolver" yaml:"resolver"`
	Spatial    SpatialConfig    `json:"spatial" yaml:"spatial"`
	Character  BodyConfig       `json:"character" yaml:"character"`
	Projectile ProjectileConfig `json:"projectile" yaml:"projectile"`
	Weapon     WeaponConfig     `json:"weapon" yaml:"weapon"`
	Arena      ArenaConfig      `json:"arena" yaml:"arena"`
	Debug      DebugConfig      `json:"debug" yaml:"debug"`
	Log        LogConfig        `json:"log" yaml:"log"`
}

type ResolverConfig struct {
	Epsilon       float64 `json:"epsilon" yaml:"epsilon"`
	MaxDepth      int     `json:"max_depth" yaml:"max_depth"`
	MaxIterations int     `json:"max_iterations" yaml:"max_iterations"`
}

type SpatialConfig struct {
	CellSize    float64 `json:"cell_size" yaml:"cell_size"`
	ContactSkin float64 `json:"contact_skin" yaml:"contact_skin"`
	MaxCellScan int     `json:"max_cell_scan" yaml:"max_cell_scan"`
}

type BodyConfig struct {
	Radius   float64 `json:"radius" yaml:"radius"`
	Speed    float64 `json:"speed" yaml:"speed"`
	Response string  `json:"response" yaml:"response"`
}

type ProjectileConfig struct {
	BodyConfig `yaml:",inline"`
	// Lifetime is how long a projectile lives, in simulation seconds.
	Lifetime float64 `json:"lifetime" yaml:"lifetime"`
}

type WeaponConfig struct {
	// Cooldown is the minimum time between two shots, in simulation seconds.
	Cooldown float64 `json:"cooldown" yaml:"cooldown"`
}

// ArenaConfig lays out static colliders. A positive Width and Height
// enclose the origin-centred arena with four walls.
type ArenaConfig struct {
	Width     float64          `json:"width" yaml:"width"`
	Height    float64          `json:"height" yaml:"height"`
	Colliders []ColliderConfig `json:"colliders" yaml:"colliders"`
}

type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (p Point) R2() r2.Point { return r2.Point{X: p.X, Y: p.Y} }

// ColliderConfig is one static collider. Kind selects which fields apply:
// "circle" (center, radius), "segment" (a, b) or "box" (min, max).
type ColliderConfig struct {
	Kind   string  `json:"kind" yaml:"kind"`
	Center Point   `json:"center,omitempty" yaml:"center,omitempty"`
	Radius float64 `json:"radius,omitempty" yaml:"radius,omitempty"`
	A      Point   `json:"a,omitempty" yaml:"a,omitempty"`
	B      Point   `json:"b,omitempty" yaml:"b,omitempty"`
	Min    Point   `json:"min,omitempty" yaml:"min,omitempty"`
	Max    Point   `json:"max,omitempty" yaml:"max,omitempty"`
}

type DebugConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Listen  string `json:"listen" yaml:"listen"`
	// FrameEvery broadcasts one frame per this many ticks.
	FrameEvery int `json:"frame_every" yaml:"frame_every"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// Default returns the configuration the demo arena ships with.
func Default() *Config {
	return &Config{
		TickRate: 50,
		Resolver: ResolverConfig{
			Epsilon:       physics.DefaultEpsilon,
			MaxDepth:      physics.DefaultMaxDepth,
			MaxIterations: physics.DefaultMaxIterations,
		},
		Spatial: SpatialConfig{
			CellSize:    spatial.DefaultCellSize,
			ContactSkin: spatial.DefaultContactSkin,
			MaxCellScan: spatial.DefaultMaxCellScan,
		},
		Character: BodyConfig{Radius: 0.5, Speed: 5, Response: physics.ResponseProject.String()},
		Projectile: ProjectileConfig{
			BodyConfig: BodyConfig{Radius: 0.1, Speed: 10, Response: physics.ResponseReflect.String()},
			Lifetime:   1,
		},
		Weapon: WeaponConfig{Cooldown: 0.2},
		Arena: ArenaConfig{
			Width:  40,
			Height: 24,
			Colliders: []ColliderConfig{
				{Kind: "circle", Center: Point{X: -8, Y: 3}, Radius: 2},
				{Kind: "box", Min: Point{X: 6, Y: -6}, Max: Point{X: 10, Y: -2}},
				{Kind: "segment", A: Point{X: -4, Y: -8}, B: Point{X: 4, Y: -4}},
			},
		},
		Debug: DebugConfig{Listen: ":8090", FrameEvery: 1},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads a YAML (.yaml, .yml) or JSON (.json) file on top of Default.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(f)
	case ".json":
		return LoadJSON(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// LoadYAML decodes YAML on top of Default and validates the result.
func LoadYAML(r io.Reader) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	return c, c.Validate()
}

// LoadJSON decodes JSON on top of Default and validates the result.
func LoadJSON(r io.Reader) (*Config, error) {
	c := Default()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode json: %w", err)
	}
	return c, c.Validate()
}

// FixedDelta is the simulated duration of one tick, in seconds.
func (c *Config) FixedDelta() float64 { return 1 / float64(c.TickRate) }

// TickInterval is the wall-clock period between ticks.
func (c *Config) TickInterval() time.Duration { return time.Second / time.Duration(c.TickRate) }

// Validate reports every invalid field, joined, each wrapping ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	check(c.TickRate > 0, "tick_rate must be positive, got %d", c.TickRate)
	check(c.Workers >= 0, "workers must not be negative, got %d", c.Workers)

	check(c.Resolver.Epsilon > 0, "resolver.epsilon must be positive, got %v", c.Resolver.Epsilon)
	check(c.Resolver.MaxDepth > 0, "resolver.max_depth must be positive, got %d", c.Resolver.MaxDepth)
	check(c.Resolver.MaxIterations > 0, "resolver.max_iterations must be positive, got %d", c.Resolver.MaxIterations)

	check(c.Spatial.CellSize > 0, "spatial.cell_size must be positive, got %v", c.Spatial.CellSize)
	check(c.Spatial.ContactSkin >= 0, "spatial.contact_skin must not be negative, got %v", c.Spatial.ContactSkin)
	check(c.Spatial.MaxCellScan > 0, "spatial.max_cell_scan must be positive, got %d", c.Spatial.MaxCellScan)

	bodies := []struct {
		name string
		body BodyConfig
	}{{"character", c.Character}, {"projectile", c.Projectile.BodyConfig}}
	for _, b := range bodies {
		check(b.body.Radius > 0, "%s.radius must be positive, got %v", b.name, b.body.Radius)
		check(b.body.Speed >= 0, "%s.speed must not be negative, got %v", b.name, b.body.Speed)
		_, err := physics.ParseResponse(b.body.Response)
		check(err == nil, "%s.response: %v", b.name, err)
	}
	check(c.Projectile.Lifetime > 0, "projectile.lifetime must be positive, got %v", c.Projectile.Lifetime)
	check(c.Weapon.Cooldown >= 0, "weapon.cooldown must not be negative, got %v", c.Weapon.Cooldown)

	check(c.Arena.Width >= 0 && c.Arena.Height >= 0, "arena size must not be negative, got %vx%v", c.Arena.Width, c.Arena.Height)
	for i, cc := range c.Arena.Colliders {
		_, err := cc.Shape()
		check(err == nil, "arena.colliders[%d]: %v", i, err)
	}

	check(c.Debug.FrameEvery >= 0, "debug.frame_every must not be negative, got %d", c.Debug.FrameEvery)
	check(!c.Debug.Enabled || c.Debug.Listen != "", "debug.listen is required when debug is enabled")
	_, err := log.ParseLevel(c.Log.Level)
	check(err == nil, "log.level: %v", err)

	return errors.Join(errs...)
}

// Shape converts the entry into a collider outline.
func (cc ColliderConfig) Shape() (spatial.Shape, error) {
	var s spatial.Shape
	switch strings.ToLower(cc.Kind) {
	case "circle":
		s = spatial.Circle{Center: cc.Center.R2(), Radius: cc.Radius}
	case "segment":
		s = spatial.Segment{A: cc.A.R2(), B: cc.B.R2()}
	case "box":
		s = spatial.Box{Min: cc.Min.R2(), Max: cc.Max.R2()}
	default:
		return nil, fmt.Errorf("%w: unknown collider kind %q", spatial.ErrInvalidShape, cc.Kind)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Shapes lists the arena walls, if any, followed by the configured colliders.
func (a ArenaConfig) Shapes() ([]spatial.Shape, error) {
	var out []spatial.Shape
	if a.Width > 0 && a.Height > 0 {
		hw, hh := a.Width/2, a.Height/2
		corners := [4]r2.Point{{X: -hw, Y: -hh}, {X: hw, Y: -hh}, {X: hw, Y: hh}, {X: -hw, Y: hh}}
		for i := range corners {
			out = append(out, spatial.Segment{A: corners[i], B: corners[(i+1)%4]})
		}
	}
	for i, cc := range a.Colliders {
		s, err := cc.Shape()
		if err != nil {
			return nil, fmt.Errorf("arena collider %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}
