package geospatial_test

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/samirrijal/hikepal/internal/pkg/geospatial"
)

func TestHaversine_KnownDistance(t *testing.T) {
	// One degree of latitude on the WGS 84 equatorial radius.
	d := geospatial.Haversine(22.0, 114.0, 23.0, 114.0)
	if math.Abs(d-111319) > 200 {
		t.Errorf("expected ~111319m, got %f", d)
	}
}

func TestHaversine_SamePoint(t *testing.T) {
	if d := geospatial.Haversine(22.2261, 114.2346, 22.2261, 114.2346); d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
}

func TestPathBound_Empty(t *testing.T) {
	if _, ok := geospatial.PathBound(nil); ok {
		t.Fatal("expected no bound for empty input")
	}
}

func TestPathBound_CoversPoints(t *testing.T) {
	pts := []orb.Point{{114.2346, 22.2261}, {114.2430, 22.2450}, {114.2393, 22.2315}}
	b, ok := geospatial.PathBound(pts)
	if !ok {
		t.Fatal("expected bound")
	}
	for _, p := range pts {
		if !b.Contains(p) {
			t.Errorf("bound %v does not contain %v", b, p)
		}
	}
	if b.Left() != 114.2346 || b.Top() != 22.2450 {
		t.Errorf("unexpected bound %v", b)
	}
}

func TestEnsureMinSpan(t *testing.T) {
	b := orb.Bound{Min: orb.Point{114.2, 22.2}, Max: orb.Point{114.2, 22.2}}
	got := geospatial.EnsureMinSpan(b, 0.001)
	if w := got.Right() - got.Left(); math.Abs(w-0.001) > 1e-12 {
		t.Errorf("expected width 0.001, got %v", w)
	}
	if h := got.Top() - got.Bottom(); math.Abs(h-0.001) > 1e-12 {
		t.Errorf("expected height 0.001, got %v", h)
	}
	if c := got.Center(); c != (orb.Point{114.2, 22.2}) {
		t.Errorf("expected center preserved, got %v", c)
	}
}

func TestPadBound_Asymmetric(t *testing.T) {
	b := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}
	// 100x100 surface, 10px left/right, 20px top, 30px bottom: inner 80x50.
	got := geospatial.PadBound(b, 100, 100, geospatial.Insets{Top: 20, Left: 10, Bottom: 30, Right: 10})

	const eps = 1e-9
	if math.Abs(got.Left()-(-10.0/80)) > eps || math.Abs(got.Right()-(1+10.0/80)) > eps {
		t.Errorf("unexpected lon range [%v, %v]", got.Left(), got.Right())
	}
	if math.Abs(got.Top()-(1+20.0/50)) > eps || math.Abs(got.Bottom()-(-30.0/50)) > eps {
		t.Errorf("unexpected lat range [%v, %v]", got.Bottom(), got.Top())
	}
}

func TestPadBound_InsetsLargerThanSurface(t *testing.T) {
	b := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}
	got := geospatial.PadBound(b, 10, 10, geospatial.Insets{Top: 50, Bottom: 50, Left: 50, Right: 50})
	if !got.Contains(orb.Point{0, 0}) || !got.Contains(orb.Point{1, 1}) {
		t.Errorf("padded bound %v lost original corners", got)
	}
}

func TestFitZoom_Clamped(t *testing.T) {
	tiny := orb.Bound{Min: orb.Point{114.2346, 22.2261}, Max: orb.Point{114.23461, 22.22611}}
	if z := geospatial.FitZoom(tiny, 390, 844, geospatial.MaxZoom); z != geospatial.MaxZoom {
		t.Errorf("expected zoom %d, got %d", geospatial.MaxZoom, z)
	}
	world := orb.Bound{Min: orb.Point{-180, -85}, Max: orb.Point{180, 85}}
	if z := geospatial.FitZoom(world, 256, 256, geospatial.MaxZoom); z != 0 {
		t.Errorf("expected zoom 0, got %d", z)
	}
}

func TestFitZoom_TrailScale(t *testing.T) {
	b := orb.Bound{Min: orb.Point{114.2346, 22.2261}, Max: orb.Point{114.2430, 22.2450}}
	z := geospatial.FitZoom(b, 390, 844, geospatial.MaxZoom)
	if z < 13 || z > 16 {
		t.Errorf("expected neighbourhood zoom, got %d", z)
	}
}

func TestPathLength(t *testing.T) {
	path := []orb.Point{{114.0, 22.0}, {114.0, 22.5}, {114.0, 23.0}}
	if d := geospatial.PathLength(path); math.Abs(d-111319) > 200 {
		t.Errorf("expected ~111319m, got %f", d)
	}
	if d := geospatial.PathLength(path[:1]); d != 0 {
		t.Errorf("expected 0 for single point, got %f", d)
	}
}

func TestAlong_InterpolatesAndClamps(t *testing.T) {
	path := []orb.Point{{114.0, 22.0}, {114.0, 23.0}}
	total := geospatial.PathLength(path)

	mid := geospatial.Along(path, total/2)
	if math.Abs(mid.Lat()-22.5) > 1e-6 || mid.Lon() != 114.0 {
		t.Errorf("expected midpoint 22.5,114, got %v", mid)
	}
	if p := geospatial.Along(path, -5); p != path[0] {
		t.Errorf("expected start, got %v", p)
	}
	if p := geospatial.Along(path, total*2); p != path[1] {
		t.Errorf("expected end, got %v", p)
	}
	if p := geospatial.Along(nil, 10); p != (orb.Point{}) {
		t.Errorf("expected zero point, got %v", p)
	}
}
