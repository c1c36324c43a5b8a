package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Center returns the midpoint of the box.
func (b Bounds) Center() GeoPoint {
	return GeoPoint{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

// RoutePath is an ordered, start-to-end sequence of trail coordinates.
// The zero value is an empty path. A RoutePath never changes after construction.
type RoutePath struct {
	points []GeoPoint
}

// NewRoutePath copies points into a new immutable path.
func NewRoutePath(points ...GeoPoint) RoutePath {
	cp := make([]GeoPoint, len(points))
	copy(cp, points)
	return RoutePath{points: cp}
}

// Points returns a copy of the path coordinates.
func (p RoutePath) Points() []GeoPoint {
	cp := make([]GeoPoint, len(p.points))
	copy(cp, p.points)
	return cp
}

// Len returns the number of points on the path.
func (p RoutePath) Len() int { return len(p.points) }

// IsEmpty reports whether the path has no points.
func (p RoutePath) IsEmpty() bool { return len(p.points) == 0 }

// Start returns the first point of the path.
func (p RoutePath) Start() (GeoPoint, bool) {
	if len(p.points) == 0 {
		return GeoPoint{}, false
	}
	return p.points[0], true
}

// End returns the last point of the path.
func (p RoutePath) End() (GeoPoint, bool) {
	if len(p.points) == 0 {
		return GeoPoint{}, false
	}
	return p.points[len(p.points)-1], true
}

// Padding is a pixel offset kept clear of overlay chrome on a map surface.
type Padding struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// SurfaceSize is the pixel size of a map rendering surface.
type SurfaceSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Viewport is the region a map surface should display.
type Viewport struct {
	Bounds             Bounds   `json:"bounds"`        // tight box around the path
	Padded             Bounds   `json:"padded_bounds"` // Bounds grown by the overlay paddings
	Center             GeoPoint `json:"center"`
	Zoom               int      `json:"zoom"`
	PaddingTopLeft     Padding  `json:"padding_top_left"`
	PaddingBottomRight Padding  `json:"padding_bottom_right"`
	Fallback           bool     `json:"fallback,omitempty"`
}
