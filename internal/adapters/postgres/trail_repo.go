package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/hikepal/internal/core/domain"
)

const trailColumns = `
	SELECT id::text, slug, name, region, start_point,
	       COALESCE(ST_AsGeoJSON(path), ''), default_lat, default_lon
	FROM trails`

// TrailRepo implements ports.TrailRepository over the PostGIS trail catalog.
type TrailRepo struct {
	db Querier
}

func NewTrailRepo(db Querier) *TrailRepo {
	return &TrailRepo{db: db}
}

func (r *TrailRepo) GetBySlug(ctx context.Context, slug string) (*domain.Trail, error) {
	t, err := scanTrail(r.db.QueryRow(ctx, trailColumns+` WHERE slug = $1`, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTrailNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("get trail %s: %w", slug, err)
	}

	if t.POIs, err = r.pois(ctx, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TrailRepo) List(ctx context.Context) ([]domain.Trail, error) {
	rows, err := r.db.Query(ctx, trailColumns+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list trails: %w", err)
	}
	defer rows.Close()

	var trails []domain.Trail
	for rows.Next() {
		t, err := scanTrail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trail: %w", err)
		}
		trails = append(trails, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range trails {
		if trails[i].POIs, err = r.pois(ctx, trails[i].ID); err != nil {
			return nil, err
		}
	}
	return trails, nil
}

func (r *TrailRepo) pois(ctx context.Context, trailID string) ([]domain.PointOfInterest, error) {
	rows, err := r.db.Query(ctx, `
		SELECT name, category, ST_Y(location::geometry), ST_X(location::geometry)
		FROM trail_pois WHERE trail_id = $1 ORDER BY position
	`, trailID)
	if err != nil {
		return nil, fmt.Errorf("list pois: %w", err)
	}
	defer rows.Close()

	var pois []domain.PointOfInterest
	for rows.Next() {
		var p domain.PointOfInterest
		var category string
		if err := rows.Scan(&p.Name, &category, &p.Location.Lat, &p.Location.Lon); err != nil {
			return nil, fmt.Errorf("scan poi: %w", err)
		}
		p.Category = domain.MarkerCategory(category)
		if !p.Category.IsPOI() {
			return nil, fmt.Errorf("poi %q: %w: %s", p.Name, domain.ErrUnknownCategory, category)
		}
		pois = append(pois, p)
	}
	return pois, rows.Err()
}

func scanTrail(row pgx.Row) (*domain.Trail, error) {
	var t domain.Trail
	var pathJSON string
	if err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.Region, &t.StartPoint,
		&pathJSON, &t.DefaultView.Lat, &t.DefaultView.Lon); err != nil {
		return nil, err
	}

	path, err := decodePath(pathJSON)
	if err != nil {
		return nil, fmt.Errorf("trail %s path: %w", t.Slug, err)
	}
	t.Path = path
	return &t, nil
}

// decodePath turns ST_AsGeoJSON output into a RoutePath. An empty string is
// an empty path.
func decodePath(raw string) (domain.RoutePath, error) {
	if raw == "" {
		return domain.NewRoutePath(), nil
	}
	g, err := geojson.UnmarshalGeometry([]byte(raw))
	if err != nil {
		return domain.RoutePath{}, err
	}
	line, ok := g.Geometry().(orb.LineString)
	if !ok {
		return domain.RoutePath{}, fmt.Errorf("expected LineString, got %s", g.Type)
	}
	points := make([]domain.GeoPoint, 0, len(line))
	for _, p := range line {
		points = append(points, domain.GeoPoint{Lat: p.Lat(), Lon: p.Lon()})
	}
	return domain.NewRoutePath(points...), nil
}
