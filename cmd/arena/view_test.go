package main

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/sweep/internal/core/spatial"
)

func TestViewportRoundTrip(t *testing.T) {
	v := newViewport(40, 24, 80, 24)
	assert.InDelta(t, 0.5, v.scale, 1e-12)

	col, row, ok := v.toCell(r2.Point{})
	require.True(t, ok)
	assert.Equal(t, 40, col)
	assert.Equal(t, 12, row)

	for _, c := range [][2]int{{0, 0}, {79, 23}, {13, 7}} {
		p := v.toWorld(c[0], c[1])
		gotCol, gotRow, ok := v.toCell(p)
		require.True(t, ok)
		assert.Equal(t, c[0], gotCol)
		assert.Equal(t, c[1], gotRow)
	}
}

func TestViewportFlipsY(t *testing.T) {
	v := newViewport(40, 24, 80, 24)
	_, top, _ := v.toCell(r2.Point{Y: 10})
	_, bottom, _ := v.toCell(r2.Point{Y: -10})
	assert.Less(t, top, bottom)

	_, _, ok := v.toCell(r2.Point{X: 100})
	assert.False(t, ok)
}

func TestViewportFitsLimitingAxis(t *testing.T) {
	v := newViewport(40, 24, 200, 24)
	assert.InDelta(t, 0.5, v.scale, 1e-12, "height limits")

	v = newViewport(40, 24, 40, 100)
	assert.InDelta(t, 1, v.scale, 1e-12, "width limits")
}

func TestStaticMaskMarksColliders(t *testing.T) {
	g := spatial.NewGrid()
	_, err := g.Insert(spatial.Box{Min: r2.Point{X: 2, Y: -1}, Max: r2.Point{X: 4, Y: 1}})
	require.NoError(t, err)

	v := newViewport(20, 20, 20, 10)
	mask := staticMask(g, v)
	require.Len(t, mask, 10)

	col, row, ok := v.toCell(r2.Point{X: 3})
	require.True(t, ok)
	assert.True(t, mask[row][col])

	col, row, _ = v.toCell(r2.Point{X: -5, Y: -5})
	assert.False(t, mask[row][col])
}
