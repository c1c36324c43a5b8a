package http

import (
	"github.com/nats-io/nats.go"
	"github.com/samirrijal/hikepal/internal/adapters/postgres"
	"github.com/samirrijal/hikepal/internal/adapters/valkey"
	"github.com/samirrijal/hikepal/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Sessions *usecases.SessionService
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache

	// DocsPath locates the OpenAPI document; defaults to api/openapi.yaml.
	DocsPath string
}
