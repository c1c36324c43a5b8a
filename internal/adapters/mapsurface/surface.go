// Package mapsurface implements the exclusive per-session map surface. Each
// rendered frame is kept as GeoJSON and fanned out to subscribers.
package mapsurface

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/hikepal/internal/core/domain"
	"github.com/samirrijal/hikepal/internal/core/ports"
)

var (
	// ErrSurfaceBusy is returned when a session already holds its surface.
	ErrSurfaceBusy = errors.New("map surface already acquired")
	// ErrSurfaceReleased is returned when rendering through a released handle.
	ErrSurfaceReleased = errors.New("map surface released")
)

// ScenePublisher receives every rendered frame. ports.EventPublisher satisfies it.
type ScenePublisher interface {
	PublishScene(ctx context.Context, scene domain.Scene) error
}

// Surface hands out one handle per session at a time.
type Surface struct {
	publisher ScenePublisher

	mu     sync.Mutex
	held   map[string]*handle
	frames map[string]*geojson.FeatureCollection
}

// New creates a Surface. publisher may be nil.
func New(publisher ScenePublisher) *Surface {
	return &Surface{
		publisher: publisher,
		held:      make(map[string]*handle),
		frames:    make(map[string]*geojson.FeatureCollection),
	}
}

// Acquire reserves the surface for sessionID.
func (s *Surface) Acquire(ctx context.Context, sessionID string, size domain.SurfaceSize) (ports.SurfaceHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("%w: surface size %dx%d", domain.ErrInvalidInput, size.Width, size.Height)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.held[sessionID]; ok {
		return nil, ErrSurfaceBusy
	}
	h := &handle{surface: s, sessionID: sessionID, size: size}
	s.held[sessionID] = h
	return h, nil
}

// Held reports how many sessions currently hold a handle.
func (s *Surface) Held() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.held)
}

// Frame returns the last frame rendered for sessionID while it is held.
func (s *Surface) Frame(sessionID string) (*geojson.FeatureCollection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fc, ok := s.frames[sessionID]
	return fc, ok
}

type handle struct {
	surface   *Surface
	sessionID string
	size      domain.SurfaceSize

	mu       sync.Mutex
	released bool
}

func (h *handle) Render(ctx context.Context, scene domain.Scene) error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return ErrSurfaceReleased
	}
	fc := FeatureCollection(scene)
	h.surface.mu.Lock()
	h.surface.frames[h.sessionID] = fc
	h.surface.mu.Unlock()
	h.mu.Unlock()

	if h.surface.publisher == nil {
		return nil
	}
	if err := h.surface.publisher.PublishScene(ctx, scene); err != nil {
		slog.Warn("publish scene failed", "session_id", h.sessionID, "error", err)
	}
	return nil
}

func (h *handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	h.released = true

	h.surface.mu.Lock()
	if h.surface.held[h.sessionID] == h {
		delete(h.surface.held, h.sessionID)
	}
	delete(h.surface.frames, h.sessionID)
	h.surface.mu.Unlock()
	return nil
}
