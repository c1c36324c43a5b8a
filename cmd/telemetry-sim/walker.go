package main

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/samirrijal/hikepal/internal/core/domain"
	"github.com/samirrijal/hikepal/internal/pkg/geospatial"
)

// walker moves a set of hikers along a trail. Each hiker starts a fixed
// distance behind the one before it and turns around at either end.
type walker struct {
	path   []orb.Point
	length float64
	speed  float64
	odo    []float64
	ids    []string
}

func newWalker(path domain.RoutePath, ids []string, speed, spacing float64) *walker {
	pts := make([]orb.Point, 0, path.Len())
	for _, p := range path.Points() {
		pts = append(pts, orb.Point{p.Lon, p.Lat})
	}
	w := &walker{
		path:   pts,
		length: geospatial.PathLength(pts),
		speed:  speed,
		odo:    make([]float64, len(ids)),
		ids:    ids,
	}
	for i := range ids {
		w.odo[i] = -float64(i) * spacing
	}
	return w
}

// step advances every hiker by one tick and returns their positions.
func (w *walker) step() map[string]domain.GeoPoint {
	out := make(map[string]domain.GeoPoint, len(w.ids))
	for i, id := range w.ids {
		w.odo[i] += w.speed
		p := geospatial.Along(w.path, w.fold(w.odo[i]))
		out[id] = domain.GeoPoint{Lat: p.Lat(), Lon: p.Lon()}
	}
	return out
}

// fold maps an unbounded odometer reading onto an out-and-back walk.
func (w *walker) fold(d float64) float64 {
	if w.length <= 0 || d <= 0 {
		return 0
	}
	m := math.Mod(d, 2*w.length)
	if m > w.length {
		return 2*w.length - m
	}
	return m
}
