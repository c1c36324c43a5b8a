package usecases

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/samirrijal/hikepal/internal/core/domain"
	"github.com/samirrijal/hikepal/internal/pkg/geospatial"
)

// FallbackSpanDegrees is the side of the box shown around a fallback center.
const FallbackSpanDegrees = 0.01

// RouteStyle is how the trail polyline is stroked.
var RouteStyle = domain.PolylineStyle{Color: "#10b981", Weight: 6, Opacity: 0.9, LineJoin: "round"}

// RouteGeometry holds a trail's immutable path and POI catalog.
type RouteGeometry struct {
	trail domain.Trail
	pois  []domain.PointOfInterest
}

// NewRouteGeometry copies the trail configuration it is given.
func NewRouteGeometry(trail domain.Trail) *RouteGeometry {
	pois := make([]domain.PointOfInterest, len(trail.POIs))
	copy(pois, trail.POIs)
	trail.POIs = nil
	return &RouteGeometry{trail: trail, pois: pois}
}

// Trail returns the trail configuration.
func (g *RouteGeometry) Trail() domain.Trail {
	t := g.trail
	t.POIs = g.POIs()
	return t
}

// Path returns the immutable route path.
func (g *RouteGeometry) Path() domain.RoutePath { return g.trail.Path }

// POIs returns a copy of the point-of-interest catalog.
func (g *RouteGeometry) POIs() []domain.PointOfInterest {
	out := make([]domain.PointOfInterest, len(g.pois))
	copy(out, g.pois)
	return out
}

// Viewport computes the padded viewport for the trail path. An empty path
// falls back to the trail's default view instead of failing.
func (g *RouteGeometry) Viewport(size domain.SurfaceSize, topLeft, bottomRight domain.Padding) domain.Viewport {
	vp, err := ComputeViewport(g.trail.Path, size, topLeft, bottomRight)
	if err != nil {
		return FallbackViewport(g.trail.DefaultView, size, topLeft, bottomRight)
	}
	return vp
}

// POIMarkers places a marker on every point of interest.
func (g *RouteGeometry) POIMarkers() []domain.PlacedMarker {
	out := make([]domain.PlacedMarker, 0, len(g.pois))
	for _, poi := range g.pois {
		spec, err := MarkerFor(poi.Category)
		if err != nil {
			continue
		}
		out = append(out, domain.PlacedMarker{Spec: spec, Location: poi.Location, Title: poi.Name})
	}
	return out
}

// ComputeViewport returns the tight bounds of path and the same bounds grown
// so the path stays clear of the top-left and bottom-right overlay paddings on
// a surface of the given size. Returns ErrDegenerateGeometry for an empty path.
func ComputeViewport(path domain.RoutePath, size domain.SurfaceSize, topLeft, bottomRight domain.Padding) (domain.Viewport, error) {
	points := path.Points()
	orbPts := make([]orb.Point, len(points))
	for i, p := range points {
		orbPts[i] = orb.Point{p.Lon, p.Lat}
	}

	b, ok := geospatial.PathBound(orbPts)
	if !ok {
		return domain.Viewport{}, domain.ErrDegenerateGeometry
	}
	return fitViewport(b, size, topLeft, bottomRight, false), nil
}

// FallbackViewport centers a fixed-span box on center.
func FallbackViewport(center domain.GeoPoint, size domain.SurfaceSize, topLeft, bottomRight domain.Padding) domain.Viewport {
	half := FallbackSpanDegrees / 2
	b := orb.Bound{
		Min: orb.Point{center.Lon - half, center.Lat - half},
		Max: orb.Point{center.Lon + half, center.Lat + half},
	}
	return fitViewport(b, size, topLeft, bottomRight, true)
}

func fitViewport(tight orb.Bound, size domain.SurfaceSize, topLeft, bottomRight domain.Padding, fallback bool) domain.Viewport {
	spanned := geospatial.EnsureMinSpan(tight, geospatial.MinSpanDegrees)
	padded := geospatial.PadBound(spanned, size.Width, size.Height, geospatial.Insets{
		Top:    topLeft.Y,
		Left:   topLeft.X,
		Bottom: bottomRight.Y,
		Right:  bottomRight.X,
	})
	c := padded.Center()

	return domain.Viewport{
		Bounds:             toBounds(tight),
		Padded:             toBounds(padded),
		Center:             domain.GeoPoint{Lat: c.Lat(), Lon: c.Lon()},
		Zoom:               geospatial.FitZoom(padded, size.Width, size.Height, geospatial.MaxZoom),
		PaddingTopLeft:     topLeft,
		PaddingBottomRight: bottomRight,
		Fallback:           fallback,
	}
}

func toBounds(b orb.Bound) domain.Bounds {
	return domain.Bounds{MinLat: b.Bottom(), MinLon: b.Left(), MaxLat: b.Top(), MaxLon: b.Right()}
}

// Tailwind palette values used by the marker table.
const (
	colorGreen500  = "#22c55e"
	colorOrange500 = "#f97316"
	colorBlue500   = "#3b82f6"
	colorBlue600   = "#2563eb"
	colorGray600   = "#4b5563"
	colorWhite     = "#ffffff"
)

// MarkerFor maps a category to its display spec. It is a pure lookup.
func MarkerFor(category domain.MarkerCategory) (domain.MarkerSpec, error) {
	switch category {
	case domain.CategoryStart:
		return domain.MarkerSpec{Category: category, Color: colorGreen500, BorderColor: colorWhite, Glyph: "S", Size: 28}, nil
	case domain.CategoryPeak:
		return domain.MarkerSpec{Category: category, Color: colorOrange500, BorderColor: colorWhite, Glyph: "⛰️", Size: 28}, nil
	case domain.CategoryToilet:
		return domain.MarkerSpec{Category: category, Color: colorBlue500, BorderColor: colorWhite, Glyph: "WC", Size: 28}, nil
	case domain.CategorySmoking:
		return domain.MarkerSpec{Category: category, Color: colorGray600, BorderColor: colorWhite, Glyph: "🚬", Size: 28}, nil
	case domain.CategoryUser:
		return domain.MarkerSpec{Category: category, Color: colorBlue600, BorderColor: colorWhite, Size: 32, ZIndex: 1000}, nil
	case domain.CategoryTeammate:
		return domain.MarkerSpec{Category: category, Color: colorWhite, BorderColor: colorOrange500, Size: 32, ZIndex: 900, Label: true}, nil
	}
	return domain.MarkerSpec{}, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, category)
}
