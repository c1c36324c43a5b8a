package geospatial

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	tileSize = 256.0

	// MinSpanDegrees is the smallest span used for a bound whose width or
	// height collapses to zero (single point, or points on one meridian/parallel).
	MinSpanDegrees = 0.001

	// MaxZoom is the deepest zoom level a fitted viewport may request.
	MaxZoom = 19
)

// Insets are pixel offsets reserved for overlay chrome on each side of a surface.
type Insets struct {
	Top, Left, Bottom, Right int
}

// PathBound returns the tight bounding box of points, or false when empty.
func PathBound(points []orb.Point) (orb.Bound, bool) {
	if len(points) == 0 {
		return orb.Bound{}, false
	}
	return orb.MultiPoint(points).Bound(), true
}

// EnsureMinSpan grows a bound symmetrically so neither side is narrower than minSpan.
func EnsureMinSpan(b orb.Bound, minSpan float64) orb.Bound {
	if w := b.Right() - b.Left(); w < minSpan {
		d := (minSpan - w) / 2
		b.Min[0] -= d
		b.Max[0] += d
	}
	if h := b.Top() - b.Bottom(); h < minSpan {
		d := (minSpan - h) / 2
		b.Min[1] -= d
		b.Max[1] += d
	}
	return b
}

// PadBound expands b so that, drawn on a surface of width x height pixels, the
// original box fits inside the area left free by insets. Degrees per pixel are
// derived from the inner (unpadded) area, so every side grows by at least its
// inset worth of map distance.
func PadBound(b orb.Bound, width, height int, in Insets) orb.Bound {
	innerW := width - in.Left - in.Right
	innerH := height - in.Top - in.Bottom
	if innerW < 1 {
		innerW = 1
	}
	if innerH < 1 {
		innerH = 1
	}

	lonPerPx := (b.Right() - b.Left()) / float64(innerW)
	latPerPx := (b.Top() - b.Bottom()) / float64(innerH)

	return orb.Bound{
		Min: orb.Point{b.Left() - float64(in.Left)*lonPerPx, b.Bottom() - float64(in.Bottom)*latPerPx},
		Max: orb.Point{b.Right() + float64(in.Right)*lonPerPx, b.Top() + float64(in.Top)*latPerPx},
	}
}

// FitZoom returns the deepest web-mercator zoom level at which b fits in a
// width x height pixel surface, clamped to [0, maxZoom].
func FitZoom(b orb.Bound, width, height, maxZoom int) int {
	lonFraction := (b.Right() - b.Left()) / 360
	latFraction := (mercatorLat(b.Top()) - mercatorLat(b.Bottom())) / math.Pi

	zoom := float64(maxZoom)
	if lonFraction > 0 && width > 0 {
		zoom = math.Min(zoom, math.Log2(float64(width)/tileSize/lonFraction))
	}
	if latFraction > 0 && height > 0 {
		zoom = math.Min(zoom, math.Log2(float64(height)/tileSize/latFraction))
	}
	if zoom < 0 {
		return 0
	}
	return int(math.Floor(zoom))
}

func mercatorLat(lat float64) float64 {
	sin := math.Sin(toRad(lat))
	radX2 := math.Log((1+sin)/(1-sin)) / 2
	return math.Max(math.Min(radX2, math.Pi), -math.Pi) / 2
}
