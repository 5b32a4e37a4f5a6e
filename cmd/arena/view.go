package main

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/zeusync/sweep/internal/core/spatial"
	"github.com/zeusync/sweep/pkg/concurrent"
)

// cellAspect is how much taller a terminal cell is than it is wide.
const cellAspect = 2

// viewport maps the origin-centred arena onto a cols x rows terminal area,
// world +Y pointing up the screen.
type viewport struct {
	cols, rows int
	// scale is world units per column; a row spans scale*cellAspect.
	scale  float64
	center r2.Point
}

func newViewport(width, height float64, cols, rows int) viewport {
	v := viewport{cols: cols, rows: rows, scale: 1}
	if cols <= 0 || rows <= 0 || width <= 0 || height <= 0 {
		return v
	}
	v.scale = math.Max(width/float64(cols), height/(float64(rows)*cellAspect))
	return v
}

// toCell returns the cell containing p and whether it is on screen.
func (v viewport) toCell(p r2.Point) (col, row int, ok bool) {
	col = int(math.Floor((p.X-v.center.X)/v.scale + float64(v.cols)/2))
	row = int(math.Floor(float64(v.rows)/2 - (p.Y-v.center.Y)/(v.scale*cellAspect)))
	return col, row, col >= 0 && col < v.cols && row >= 0 && row < v.rows
}

// toWorld returns the world point at the centre of a cell.
func (v viewport) toWorld(col, row int) r2.Point {
	return r2.Point{
		X: v.center.X + (float64(col)+0.5-float64(v.cols)/2)*v.scale,
		Y: v.center.Y + (float64(v.rows)/2-float64(row)-0.5)*v.scale*cellAspect,
	}
}

// halfCell is the radius of the probe that decides whether a cell shows a collider.
func (v viewport) halfCell() float64 { return v.scale / 2 }

// staticMask rasterises the colliders of g into a rows x cols grid, one
// row per worker.
func staticMask(g *spatial.Grid, v viewport) [][]bool {
	rows := make([]int, max(v.rows, 0))
	for i := range rows {
		rows[i] = i
	}
	return concurrent.ParallelMap(rows, 0, func(row int) []bool {
		line := make([]bool, max(v.cols, 0))
		for col := range line {
			line[col] = len(g.Overlaps(v.toWorld(col, row), v.halfCell())) > 0
		}
		return line
	})
}
