package visualdiff

import (
	"image"
	"math"
)

const gridSize = 10

// pixelGrid accumulates diff-pixel counts into a 10x10 grid over an
// image's bounds, implementing spec.md §4.6's layout-shift scan.
type pixelGrid struct {
	bounds    image.Rectangle
	minShift  int
	counts    [gridSize][gridSize]int
	sumX      [gridSize][gridSize]float64
	sumY      [gridSize][gridSize]float64
}

func newGrid(bounds image.Rectangle, minShift int) *pixelGrid {
	return &pixelGrid{bounds: bounds, minShift: minShift}
}

func (g *pixelGrid) record(x, y int) {
	row, col := g.cellFor(x, y)
	g.counts[row][col]++
	g.sumX[row][col] += float64(x)
	g.sumY[row][col] += float64(y)
}

func (g *pixelGrid) cellFor(x, y int) (int, int) {
	w := g.bounds.Dx()
	h := g.bounds.Dy()
	col := (x - g.bounds.Min.X) * gridSize / max1(w)
	row := (y - g.bounds.Min.Y) * gridSize / max1(h)
	if col >= gridSize {
		col = gridSize - 1
	}
	if row >= gridSize {
		row = gridSize - 1
	}
	return row, col
}

func max1(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// shifts returns one LayoutShift per cell exceeding minShift, with the
// shift magnitude computed as the cell's pixel center-of-mass distance
// from the image center (spec.md §4.6).
func (g *pixelGrid) shifts(bounds image.Rectangle) []LayoutShift {
	centerX := float64(bounds.Min.X+bounds.Max.X) / 2
	centerY := float64(bounds.Min.Y+bounds.Max.Y) / 2

	var out []LayoutShift
	for row := 0; row < gridSize; row++ {
		for col := 0; col < gridSize; col++ {
			count := g.counts[row][col]
			if count <= g.minShift {
				continue
			}
			comX := g.sumX[row][col] / float64(count)
			comY := g.sumY[row][col] / float64(count)
			magnitude := math.Hypot(comX-centerX, comY-centerY)
			out = append(out, LayoutShift{
				GridRow:        row,
				GridCol:        col,
				DiffPixels:     count,
				ShiftMagnitude: magnitude,
			})
		}
	}
	return out
}
