// Command preview draws the published levels with their grid overlay.
//
// Keys: N/P next and previous level, G toggles the grid, C copies the
// resolved ground material to the clipboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/levelkit/config"
	"github.com/milk9111/levelkit/content"
	"github.com/milk9111/levelkit/data"
	"github.com/milk9111/levelkit/grid"
	"github.com/milk9111/levelkit/levels"
	"github.com/milk9111/levelkit/material"
	"golang.design/x/clipboard"
	"golang.org/x/image/colornames"
)

const (
	screenWidth  = 640
	screenHeight = 640
	hudHeight    = 64
)

type previewGame struct {
	store  *content.Store
	logger *slog.Logger
	dims   grid.Dimensions
	layout grid.Layout

	index     int
	showGrid  bool
	clipboard bool
	status    string
}

func newPreviewGame(store *content.Store, dims grid.Dimensions, logger *slog.Logger) (*previewGame, error) {
	layout, err := grid.NewLayout(dims, screenWidth, screenHeight-hudHeight)
	if err != nil {
		return nil, err
	}
	layout.Origin = cp.Vector{X: 0, Y: hudHeight}

	g := &previewGame{store: store, logger: logger, dims: dims, layout: layout, showGrid: true}
	if err := clipboard.Init(); err != nil {
		logger.Warn("clipboard unavailable", "err", err)
	} else {
		g.clipboard = true
	}
	return g, nil
}

func (g *previewGame) level() (*content.Snapshot, *levels.Definition) {
	snap := g.store.Current()
	if snap == nil || len(snap.Levels) == 0 {
		return snap, nil
	}
	g.index = ((g.index % len(snap.Levels)) + len(snap.Levels)) % len(snap.Levels)
	return snap, snap.Levels[g.index]
}

func (g *previewGame) Update() error {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyN):
		g.index++
		g.status = ""
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		g.index--
		g.status = ""
	case inpututil.IsKeyJustPressed(ebiten.KeyG):
		g.showGrid = !g.showGrid
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		g.copyGround()
	}
	return nil
}

func (g *previewGame) copyGround() {
	snap, def := g.level()
	if def == nil {
		return
	}
	mats, err := snap.Materials(def.Number)
	if err != nil {
		g.status = err.Error()
		return
	}
	res, ok := mats[levels.SurfaceGround]
	if !ok {
		g.status = "no ground material"
		return
	}
	out, err := material.EncodeResolved(res)
	if err != nil {
		g.status = err.Error()
		return
	}
	if !g.clipboard {
		g.status = "clipboard unavailable"
		return
	}
	clipboard.Write(clipboard.FmtText, out)
	g.status = fmt.Sprintf("copied %s", res.Source)
	g.logger.Info("copied ground material", "level", def.Number, "source", res.Source)
}

func (g *previewGame) Draw(screen *ebiten.Image) {
	snap, def := g.level()
	if def == nil {
		screen.Fill(colornames.Black)
		ebitenutil.DebugPrintAt(screen, "no content published", 8, 8)
		return
	}

	screen.Fill(background(def.Presentation))
	g.drawCells(screen, def)
	if g.showGrid {
		g.drawGrid(screen)
	}
	g.drawHUD(screen, snap, def)
}

func (g *previewGame) drawCells(screen *ebiten.Image, def *levels.Definition) {
	cw, ch := float32(g.layout.CellW), float32(g.layout.CellH)
	for row := 0; row < g.dims.Height; row++ {
		for col := 0; col < g.dims.Width; col++ {
			cell, ok := def.Cell(row, col)
			if !ok || cell == levels.Empty {
				continue
			}
			center, err := g.layout.CellCenter(row, col)
			if err != nil {
				continue
			}
			x := float32(center.X) - cw/2
			y := float32(center.Y) - ch/2
			vector.FillRect(screen, x+1, y+1, cw-2, ch-2, cellColor(cell), false)
			if cell == levels.Paddle || cell == levels.Ball {
				vector.StrokeRect(screen, x+1, y+1, cw-2, ch-2, 2, colornames.White, false)
			}
		}
	}
}

func (g *previewGame) drawGrid(screen *ebiten.Image) {
	xs, ys, err := g.layout.Lines()
	if err != nil {
		return
	}
	top, bottom := float32(ys[0]), float32(ys[len(ys)-1])
	left, right := float32(xs[0]), float32(xs[len(xs)-1])
	line := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0x30}
	for _, x := range xs {
		vector.StrokeLine(screen, float32(x), top, float32(x), bottom, 1, line, false)
	}
	for _, y := range ys {
		vector.StrokeLine(screen, left, float32(y), right, float32(y), 1, line, false)
	}
}

func (g *previewGame) drawHUD(screen *ebiten.Image, snap *content.Snapshot, def *levels.Definition) {
	lines := []string{fmt.Sprintf("level %d  (%d/%d)  generation %d", def.Number, g.index+1, len(snap.Levels), snap.Generation)}

	mats, err := snap.Materials(def.Number)
	if err != nil {
		lines = append(lines, err.Error())
	} else {
		var parts []string
		for _, s := range []levels.Surface{levels.SurfaceGround, levels.SurfaceBackground, levels.SurfaceSidewall} {
			if res, ok := mats[s]; ok {
				parts = append(parts, fmt.Sprintf("%s=%s", s, res.Source))
			}
		}
		lines = append(lines, strings.Join(parts, "  "))
	}

	mx, my := ebiten.CursorPosition()
	if row, col, err := g.layout.CellAt(cp.Vector{X: float64(mx), Y: float64(my)}); err == nil {
		cell, _ := def.Cell(row, col)
		lines = append(lines, fmt.Sprintf("cell %d,%d %s", row, col, cell))
	}
	if g.status != "" {
		lines = append(lines, g.status)
	}
	ebitenutil.DebugPrintAt(screen, strings.Join(lines, "\n"), 8, 4)
}

func (g *previewGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func background(p *levels.Presentation) color.Color {
	base := colornames.Midnightblue
	if p == nil || p.Tint == nil {
		return base
	}
	// Tint the backdrop, darkened so cells stay readable.
	f := p.Tint.Floats()
	return color.NRGBA{
		R: uint8(f[0] * 0.35 * 255),
		G: uint8(f[1] * 0.35 * 255),
		B: uint8(f[2] * 0.35 * 255),
		A: 0xff,
	}
}

func cellColor(c levels.CellType) color.Color {
	switch {
	case c == levels.Paddle:
		return colornames.Deepskyblue
	case c == levels.Ball:
		return colornames.Gold
	case c.IsMultiHit():
		shades := []color.RGBA{colornames.Lightcoral, colornames.Indianred, colornames.Firebrick, colornames.Darkred}
		return shades[int(c-levels.MultiHit1)%len(shades)]
	case c == levels.SimpleBrick, c == levels.LegacyBrick:
		return colornames.Orange
	case c == levels.ExtraLife:
		return colornames.Limegreen
	case c == levels.PaddleDestroyable:
		return colornames.Mediumpurple
	case c == levels.Indestructible:
		return colornames.Slategray
	}
	return colornames.Magenta
}

func main() {
	configPath := flag.String("config", "", "HCL config file")
	watch := flag.Bool("watch", false, "reload content from disk while running")
	start := flag.Uint("level", 0, "level number to open")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cfg.Logger(os.Stderr)

	store := content.NewStore(cfg.Validator(), logger)
	src := cfg.Source()
	if _, err := store.Reload(src); err != nil {
		logger.Error("content rejected", "err", err)
		os.Exit(1)
	}

	if *watch && data.OnDisk(cfg.ContentDir) {
		dirs := []string{cfg.ContentDir, filepath.Join(cfg.ContentDir, data.LevelsDir)}
		w, err := content.NewWatcher(dirs...)
		if err != nil {
			logger.Error("watch failed", "err", err)
			os.Exit(1)
		}
		defer w.Close()
		go func() {
			_ = store.Watch(context.Background(), src, w)
		}()
	}

	g, err := newPreviewGame(store, cfg.Grid, logger)
	if err != nil {
		logger.Error("layout failed", "err", err)
		os.Exit(1)
	}
	if *start > 0 {
		for i, n := range store.Current().Numbers() {
			if uint(n) == *start {
				g.index = i
			}
		}
	}

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("levelkit preview")
	if err := ebiten.RunGame(g); err != nil {
		logger.Error("preview exited", "err", err)
		os.Exit(1)
	}
}
