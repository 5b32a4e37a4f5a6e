package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/golang/geo/r2"
	"github.com/zeusync/sweep/internal/config"
	"github.com/zeusync/sweep/internal/core/observability/log"
	"github.com/zeusync/sweep/internal/core/simulation"
	"github.com/zeusync/sweep/internal/core/spatial"
	"github.com/zeusync/sweep/internal/core/systems/physics"
	"github.com/zeusync/sweep/internal/injector"
)

// keyHold is how long a key counts as held after its last press. Terminals
// report no key release, only autorepeat.
const keyHold = 180 * time.Millisecond

type direction int

const (
	dirUp direction = iota
	dirDown
	dirLeft
	dirRight
)

type Game struct {
	screen tcell.Screen
	world  *simulation.World
	cfg    *config.Config
	player physics.BodyID

	// static holds only the arena colliders, for rasterising.
	static *spatial.Grid
	view   viewport
	mask   [][]bool

	pressed  [4]time.Time
	frame    simulation.Frame
	lastErr  error
	showHits bool
}

func NewGame(cfg *config.Config) (*Game, error) {
	app, err := injector.InitializeApp(cfg)
	if err != nil {
		return nil, err
	}
	// The arena is the only thing in the grid until someone spawns.
	static := app.World.Grid().Snapshot()

	player, err := app.World.SpawnCharacter(r2.Point{})
	if err != nil {
		return nil, fmt.Errorf("spawn player: %w", err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.EnableMouse()

	g := &Game{
		screen:   screen,
		world:    app.World,
		cfg:      cfg,
		player:   player,
		static:   static,
		showHits: true,
	}
	g.handleResize()
	return g, nil
}

func (g *Game) handleResize() {
	cols, rows := g.screen.Size()
	// Last row is the status line.
	g.view = newViewport(g.cfg.Arena.Width, g.cfg.Arena.Height, cols, rows-1)
	g.mask = staticMask(g.static, g.view)
	g.screen.Sync()
}

func (g *Game) held(d direction, now time.Time) bool {
	return now.Sub(g.pressed[d]) < keyHold
}

func (g *Game) intent(now time.Time) simulation.Intent {
	return simulation.IntentFromKeys(
		g.held(dirUp, now), g.held(dirDown, now),
		g.held(dirLeft, now), g.held(dirRight, now),
	)
}

func (g *Game) press(d direction) {
	now := time.Now()
	g.pressed[d] = now
	// A press of the opposite key cancels the held one.
	switch d {
	case dirUp:
		g.pressed[dirDown] = time.Time{}
	case dirDown:
		g.pressed[dirUp] = time.Time{}
	case dirLeft:
		g.pressed[dirRight] = time.Time{}
	case dirRight:
		g.pressed[dirLeft] = time.Time{}
	}
}

// handleInput returns false when the player quits.
func (g *Game) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyUp:
			g.press(dirUp)
		case tcell.KeyDown:
			g.press(dirDown)
		case tcell.KeyLeft:
			g.press(dirLeft)
		case tcell.KeyRight:
			g.press(dirRight)
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case 'w':
				g.press(dirUp)
			case 's':
				g.press(dirDown)
			case 'a':
				g.press(dirLeft)
			case 'd':
				g.press(dirRight)
			case ' ':
				_, g.lastErr = g.world.FireFacing(g.player)
			case 'c':
				g.showHits = !g.showHits
			}
		}

	case *tcell.EventMouse:
		if ev.Buttons()&tcell.Button1 == 0 {
			break
		}
		col, row := ev.Position()
		if e, ok := g.world.Entity(g.player); ok {
			_, g.lastErr = g.world.Fire(g.player, g.view.toWorld(col, row).Sub(e.Body.Position))
		}

	case *tcell.EventResize:
		g.handleResize()
	}
	return true
}

func (g *Game) update() {
	if err := g.world.SetIntent(g.player, g.intent(time.Now())); err != nil {
		g.lastErr = err
	}
	g.frame = g.world.Step(g.cfg.FixedDelta())
}

func (g *Game) draw() {
	g.screen.Clear()

	wall := tcell.StyleDefault.Foreground(tcell.ColorGray)
	for row, cells := range g.mask {
		for col, on := range cells {
			if on {
				g.screen.SetContent(col, row, '█', nil, wall)
			}
		}
	}

	var status string
	for _, b := range g.frame.Bodies {
		r, style := '*', tcell.StyleDefault.Foreground(tcell.ColorYellow)
		if b.Kind == simulation.KindCharacter.String() {
			r, style = '@', tcell.StyleDefault.Foreground(tcell.ColorGreen)
		}
		if b.ID == string(g.player) {
			style = style.Foreground(tcell.ColorAqua).Bold(true)
			status = fmt.Sprintf("pos (%.2f, %.2f)  %s", b.Position[0], b.Position[1], b.Outcome)
		}

		if g.showHits {
			for _, c := range b.Contacts {
				g.plot(r2.Point{X: c.Point[0], Y: c.Point[1]}, '+', tcell.StyleDefault.Foreground(tcell.ColorRed))
			}
		}
		g.plot(r2.Point{X: b.Position[0], Y: b.Position[1]}, r, style)
	}

	line := fmt.Sprintf(" tick %d  t %.2fs  bodies %d  %s", g.frame.Tick, g.frame.Time, len(g.frame.Bodies), status)
	if g.lastErr != nil {
		line += "  | " + g.lastErr.Error()
	}
	_, rows := g.screen.Size()
	for i, r := range line {
		g.screen.SetContent(i, rows-1, r, nil, tcell.StyleDefault.Reverse(true))
	}

	g.screen.Show()
}

func (g *Game) plot(p r2.Point, r rune, style tcell.Style) {
	if col, row, ok := g.view.toCell(p); ok {
		g.screen.SetContent(col, row, r, nil, style)
	}
}

func (g *Game) run() {
	ticker := time.NewTicker(g.cfg.TickInterval())
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := g.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !g.handleInput(ev) {
				return
			}
		case <-ticker.C:
			g.update()
			g.draw()
		}
	}
}

func (g *Game) cleanup() {
	g.screen.Fini()
}

func main() {
	configPath := flag.String("config", "", "path to a YAML or JSON config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	// Log lines would tear the screen.
	cfg.Log.Level = log.LevelFatal.String()

	game, err := NewGame(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer game.cleanup()

	game.run()
}
