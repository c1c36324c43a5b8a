package geospatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	return geo.DistanceHaversine(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
}

// PathLength is the walking length of path in meters.
func PathLength(path []orb.Point) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += segment(path[i-1], path[i])
	}
	return total
}

// Along returns the point meters into path, clamped to its ends. Points are
// interpolated linearly within a segment, which is exact enough at trail scale.
func Along(path []orb.Point, meters float64) orb.Point {
	if len(path) == 0 {
		return orb.Point{}
	}
	if meters <= 0 {
		return path[0]
	}
	for i := 1; i < len(path); i++ {
		d := segment(path[i-1], path[i])
		if meters <= d {
			if d == 0 {
				return path[i]
			}
			f := meters / d
			a, b := path[i-1], path[i]
			return orb.Point{a[0] + (b[0]-a[0])*f, a[1] + (b[1]-a[1])*f}
		}
		meters -= d
	}
	return path[len(path)-1]
}

func segment(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
