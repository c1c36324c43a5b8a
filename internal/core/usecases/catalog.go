package usecases

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/samirrijal/hikepal/internal/core/domain"
)

// DragonsBackSlug identifies the built-in trail.
const DragonsBackSlug = "dragons-back"

// DragonsBack returns the built-in Dragon's Back trail.
func DragonsBack() domain.Trail {
	return domain.Trail{
		ID:         "1",
		Slug:       DragonsBackSlug,
		Name:       "Dragon's Back to Cape D'Aguilar",
		Region:     "Hong Kong",
		StartPoint: "To Tei Wan Bus Stop",
		Path: domain.NewRoutePath(
			domain.GeoPoint{Lat: 22.2261, Lon: 114.2346},
			domain.GeoPoint{Lat: 22.2280, Lon: 114.2370},
			domain.GeoPoint{Lat: 22.2315, Lon: 114.2393},
			domain.GeoPoint{Lat: 22.2345, Lon: 114.2385},
			domain.GeoPoint{Lat: 22.2380, Lon: 114.2370},
			domain.GeoPoint{Lat: 22.2410, Lon: 114.2390},
			domain.GeoPoint{Lat: 22.2430, Lon: 114.2410},
			domain.GeoPoint{Lat: 22.2450, Lon: 114.2430},
		),
		POIs: []domain.PointOfInterest{
			{Name: "Start: To Tei Wan", Location: domain.GeoPoint{Lat: 22.2261, Lon: 114.2346}, Category: domain.CategoryStart},
			{Name: "Shek O Peak", Location: domain.GeoPoint{Lat: 22.2345, Lon: 114.2385}, Category: domain.CategoryPeak},
			{Name: "Public Toilet (Start)", Location: domain.GeoPoint{Lat: 22.2258, Lon: 114.2348}, Category: domain.CategoryToilet},
			{Name: "Public Toilet (Big Wave Bay)", Location: domain.GeoPoint{Lat: 22.2445, Lon: 114.2435}, Category: domain.CategoryToilet},
			{Name: "Smoking Area (Bus Stop)", Location: domain.GeoPoint{Lat: 22.2263, Lon: 114.2343}, Category: domain.CategorySmoking},
		},
		DefaultView: domain.GeoPoint{Lat: 22.226, Lon: 114.234},
	}
}

// DefaultTeam returns the local hiker followed by the two demo teammates.
// Alex (u2) is the simulated responder on the team channel.
func DefaultTeam() []domain.Participant {
	loc := func(lat, lon float64) *domain.GeoPoint { return &domain.GeoPoint{Lat: lat, Lon: lon} }
	return []domain.Participant{
		{ID: "u1", Name: "Me", Status: domain.StatusHiking, Location: loc(22.23, 114.24), Local: true},
		{ID: "u2", Name: "Alex", Status: domain.StatusHiking, Location: loc(22.231, 114.241)},
		{ID: "u3", Name: "Sarah", Status: domain.StatusResting, Location: loc(22.229, 114.239)},
	}
}

// DefaultResponderID is the teammate who answers team messages.
const DefaultResponderID = "u2"

// StaticTrails is an in-memory TrailRepository.
type StaticTrails struct {
	mu     sync.RWMutex
	bySlug map[string]domain.Trail
}

// NewStaticTrails seeds the catalog with trails, or Dragon's Back when none are given.
func NewStaticTrails(trails ...domain.Trail) *StaticTrails {
	if len(trails) == 0 {
		trails = []domain.Trail{DragonsBack()}
	}
	s := &StaticTrails{bySlug: make(map[string]domain.Trail, len(trails))}
	for _, t := range trails {
		s.bySlug[t.Slug] = t
	}
	return s
}

func (s *StaticTrails) GetBySlug(_ context.Context, slug string) (*domain.Trail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.bySlug[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTrailNotFound, slug)
	}
	return &t, nil
}

func (s *StaticTrails) List(_ context.Context) ([]domain.Trail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Trail, 0, len(s.bySlug))
	for _, t := range s.bySlug {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}
