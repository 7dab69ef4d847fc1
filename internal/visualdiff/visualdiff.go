// Package visualdiff implements the pixel-level visual comparison stage
// of spec.md §4.6: dimension-normalized pixel diff, heatmap, layout-shift
// detection on a 10x10 grid, and severity classification.
package visualdiff

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
)

// Severity is the five-level classification of spec.md's GLOSSARY.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// LayoutShift is one region of the 10x10 grid whose difference exceeded
// the minimum-pixel threshold (spec.md §4.6).
type LayoutShift struct {
	GridRow       int     `json:"gridRow"`
	GridCol       int     `json:"gridCol"`
	DiffPixels    int     `json:"diffPixels"`
	ShiftMagnitude float64 `json:"shiftMagnitude"`
}

// PairResult is the contract output for one baseline/candidate screenshot
// pair (spec.md §4.6).
type PairResult struct {
	DiffRatio    float64       `json:"diffRatio"`
	LayoutShifts []LayoutShift `json:"layoutShifts"`
	HasLayoutShift bool        `json:"hasLayoutShift"`
	Severity     Severity      `json:"severity"`
	DiffPNG      []byte        `json:"-"`
	HeatmapPNG   []byte        `json:"-"`
}

// Options configures the diff thresholds (spec.md §4.6 defaults).
type Options struct {
	// PixelThreshold is the per-pixel tolerance, 0..1, default 0.1.
	PixelThreshold float64
	// MinShiftPixels is the diff-pixel count a grid cell must exceed to
	// count as a layout shift, default 5.
	MinShiftPixels int
}

// DefaultOptions returns spec.md's documented defaults.
func DefaultOptions() Options {
	return Options{PixelThreshold: 0.1, MinShiftPixels: 5}
}

// Compare diffs baseline against candidate, resampling candidate to
// baseline's dimensions with nearest-neighbor first if they differ.
func Compare(baseline, candidate []byte, opts Options) (PairResult, error) {
	baseImg, err := png.Decode(bytes.NewReader(baseline))
	if err != nil {
		return PairResult{}, err
	}
	candImg, err := png.Decode(bytes.NewReader(candidate))
	if err != nil {
		return PairResult{}, err
	}

	if candImg.Bounds().Dx() != baseImg.Bounds().Dx() || candImg.Bounds().Dy() != baseImg.Bounds().Dy() {
		candImg = resample(candImg, baseImg.Bounds())
	}

	bounds := baseImg.Bounds()
	diffImg := image.NewRGBA(bounds)
	heatImg := image.NewRGBA(bounds)

	diffPixelCount := 0
	totalPixels := bounds.Dx() * bounds.Dy()

	// grid counts diff pixels per cell for the 10x10 layout-shift scan; the
	// per-pixel normalized channel delta feeds the diff image and heatmap.
	grid := newGrid(bounds, opts.MinShiftPixels)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			br, bg, bb, _ := baseImg.At(x, y).RGBA()
			cr, cg, cb, _ := candImg.At(x, y).RGBA()

			delta := channelDelta(br, cr) + channelDelta(bg, cg) + channelDelta(bb, cb)
			normalized := delta / (3 * 0xffff)

			if normalized > opts.PixelThreshold {
				diffPixelCount++
				diffImg.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
				grid.record(x, y)
			} else {
				diffImg.Set(x, y, color.RGBA{})
			}

			heatImg.Set(x, y, heatColor(normalized))
		}
	}

	diffRatio := 0.0
	if totalPixels > 0 {
		diffRatio = float64(diffPixelCount) / float64(totalPixels)
	}

	shifts := grid.shifts(bounds)
	hasShift := len(shifts) > 0

	result := PairResult{
		DiffRatio:      diffRatio,
		LayoutShifts:   shifts,
		HasLayoutShift: hasShift,
		Severity:       ClassifySeverity(diffRatio, hasShift),
	}

	var diffBuf, heatBuf bytes.Buffer
	if err := png.Encode(&diffBuf, diffImg); err != nil {
		return PairResult{}, err
	}
	if err := png.Encode(&heatBuf, heatImg); err != nil {
		return PairResult{}, err
	}
	result.DiffPNG = diffBuf.Bytes()
	result.HeatmapPNG = heatBuf.Bytes()

	return result, nil
}

func channelDelta(a, b uint32) float64 {
	if a > b {
		return float64(a - b)
	}
	return float64(b - a)
}

// heatColor maps a normalized [0,1] intensity to red>yellow>green>
// transparent, per spec.md §4.6: "red for intensity > 200 [of 255],
// gradient to yellow, to green, transparent baseline passthrough at
// zero".
func heatColor(normalized float64) color.RGBA {
	intensity := normalized * 255
	switch {
	case intensity <= 0:
		return color.RGBA{}
	case intensity > 200:
		return color.RGBA{R: 255, G: 0, B: 0, A: 255}
	case intensity > 100:
		// yellow -> red gradient
		t := (intensity - 100) / 100
		return color.RGBA{R: 255, G: uint8(255 * (1 - t)), B: 0, A: 255}
	default:
		// green -> yellow gradient
		t := intensity / 100
		return color.RGBA{R: uint8(255 * t), G: 255, B: 0, A: uint8(255 * (intensity / 200))}
	}
}

// ClassifySeverity is a pure function of (diffRatio, hasLayoutShift) per
// the spec.md §4.6 table, verified by spec.md §8 testable property 7.
func ClassifySeverity(diffRatio float64, hasLayoutShift bool) Severity {
	switch {
	case diffRatio == 0 && !hasLayoutShift:
		return SeverityNone
	case hasLayoutShift && diffRatio > 0.5:
		return SeverityCritical
	case hasLayoutShift || diffRatio > 0.3:
		return SeverityHigh
	case diffRatio > 0.1:
		return SeverityMedium
	case diffRatio > 0.05:
		return SeverityLow
	default:
		return SeverityNone
	}
}

func resample(src image.Image, bounds image.Rectangle) image.Image {
	dst := image.NewRGBA(bounds)
	draw.NearestNeighbor.Scale(dst, bounds, src, src.Bounds(), draw.Over, nil)
	return dst
}

// MaxSeverity returns the higher-ranked of a and b.
func MaxSeverity(a, b Severity) Severity {
	rank := map[Severity]int{SeverityNone: 0, SeverityLow: 1, SeverityMedium: 2, SeverityHigh: 3, SeverityCritical: 4}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
