package ports

import (
	"context"

	"github.com/samirrijal/hikepal/internal/core/domain"
)

// TrailRepository reads trail configuration (path and POI catalog).
type TrailRepository interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Trail, error)
	List(ctx context.Context) ([]domain.Trail, error)
}
