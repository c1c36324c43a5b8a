package ports

import (
	"context"
	"time"

	"github.com/samirrijal/hikepal/internal/core/domain"
)

// AdviceRequest is the input to one knowledge service call.
type AdviceRequest struct {
	Query    string
	Location domain.GeoPoint
	Trail    string
	Region   string
}

// KnowledgeService answers free-text questions about the trail and its
// surroundings. An empty answer with a nil error means "nothing found".
type KnowledgeService interface {
	Advise(ctx context.Context, req AdviceRequest) (string, error)
}

// CredentialedService is implemented by knowledge services that know up front
// whether they hold the credentials a call needs.
type CredentialedService interface {
	Configured() bool
}

// EventPublisher fans session events out to a message broker.
type EventPublisher interface {
	PublishMessage(ctx context.Context, sessionID string, msg domain.Message) error
	PublishChannelState(ctx context.Context, sessionID string, state domain.ChannelState) error
	PublishPresence(ctx context.Context, sessionID string, participants []domain.Participant) error
	PublishScene(ctx context.Context, scene domain.Scene) error
}

// InboundTeamMessage is a team chat line authored outside this process.
type InboundTeamMessage struct {
	SessionID     string
	ParticipantID string
	Text          string
}

// TelemetrySubscriber delivers the external position feed and inbound team chat
// for one session until ctx is cancelled or the returned stop func is called.
type TelemetrySubscriber interface {
	SubscribePositions(ctx context.Context, sessionID string, handler func(ctx context.Context, u domain.PositionUpdate) error) (stop func(), err error)
	SubscribeTeamInbound(ctx context.Context, sessionID string, handler func(ctx context.Context, m InboundTeamMessage) error) (stop func(), err error)
}

// AdviceCache stores knowledge service answers keyed by query and rounded location.
type AdviceCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// MapSurface is the exclusive rendering resource behind a session map.
type MapSurface interface {
	Acquire(ctx context.Context, sessionID string, size domain.SurfaceSize) (SurfaceHandle, error)
}

// SurfaceHandle is an acquired MapSurface. Release is idempotent.
type SurfaceHandle interface {
	Render(ctx context.Context, scene domain.Scene) error
	Release() error
}
