package mapsurface

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/hikepal/internal/core/domain"
)

// FeatureCollection encodes a scene as GeoJSON: one LineString for the route
// followed by one Point per marker. The padded viewport becomes the bbox and the
// full viewport travels as a foreign member.
func FeatureCollection(scene domain.Scene) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	vp := scene.Viewport
	fc.BBox = geojson.NewBBox(orb.Bound{
		Min: orb.Point{vp.Padded.MinLon, vp.Padded.MinLat},
		Max: orb.Point{vp.Padded.MaxLon, vp.Padded.MaxLat},
	})
	fc.ExtraMembers = geojson.Properties{
		"session_id": scene.SessionID,
		"viewport":   vp,
	}

	if len(scene.Path) > 0 {
		line := make(orb.LineString, 0, len(scene.Path))
		for _, p := range scene.Path {
			line = append(line, toPoint(p))
		}
		route := geojson.NewFeature(line)
		route.ID = "route"
		route.Properties["kind"] = "route"
		route.Properties["color"] = scene.Style.Color
		route.Properties["weight"] = scene.Style.Weight
		route.Properties["opacity"] = scene.Style.Opacity
		route.Properties["line_join"] = scene.Style.LineJoin
		fc.Append(route)
	}

	for _, m := range scene.Markers {
		f := geojson.NewFeature(toPoint(m.Location))
		if m.RefID != "" {
			f.ID = string(m.Spec.Category) + ":" + m.RefID
		}
		f.Properties["kind"] = "marker"
		f.Properties["category"] = string(m.Spec.Category)
		f.Properties["title"] = m.Title
		f.Properties["color"] = m.Spec.Color
		f.Properties["border_color"] = m.Spec.BorderColor
		f.Properties["size"] = m.Spec.Size
		f.Properties["z_index"] = m.Spec.ZIndex
		if m.Spec.Glyph != "" {
			f.Properties["glyph"] = m.Spec.Glyph
		}
		if m.Spec.Label {
			f.Properties["label"] = true
		}
		fc.Append(f)
	}
	return fc
}

func toPoint(p domain.GeoPoint) orb.Point { return orb.Point{p.Lon, p.Lat} }
