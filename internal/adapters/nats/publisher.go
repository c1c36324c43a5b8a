package natsadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/hikepal/internal/core/domain"
)

// Stream and subject roots owned by this service.
var streams = []nats.StreamConfig{
	{
		Name:      "HIKE_SESSIONS",
		Subjects:  []string{"hike.session.>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    6 * time.Hour,
		Storage:   nats.FileStorage,
	},
	{
		Name:      "HIKE_TELEMETRY",
		Subjects:  []string{"hike.telemetry.>", "hike.team.>"},
		Retention: nats.InterestPolicy,
		MaxAge:    1 * time.Hour,
		Storage:   nats.FileStorage,
	},
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := EnsureStreams(js); err != nil {
		return nil, err
	}

	return &Publisher{conn: conn, js: js}, nil
}

// EnsureStreams creates or updates the service streams.
func EnsureStreams(js nats.JetStreamContext) error {
	for _, cfg := range streams {
		cfg := cfg
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist; try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

func (p *Publisher) PublishMessage(ctx context.Context, sessionID string, msg domain.Message) error {
	return p.publish(ctx, sessionID, EventMessage, msg)
}

func (p *Publisher) PublishChannelState(ctx context.Context, sessionID string, state domain.ChannelState) error {
	return p.publish(ctx, sessionID, EventState, state)
}

func (p *Publisher) PublishPresence(ctx context.Context, sessionID string, participants []domain.Participant) error {
	return p.publish(ctx, sessionID, EventPresence, participants)
}

func (p *Publisher) PublishScene(ctx context.Context, scene domain.Scene) error {
	return p.publish(ctx, scene.SessionID, EventScene, scene)
}

func (p *Publisher) publish(ctx context.Context, sessionID, event string, v any) error {
	data, err := encodeEnvelope(event, sessionID, v)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SessionSubject(sessionID, event), data, nats.Context(ctx))
	return err
}

// Conn exposes the underlying connection for plain subscriptions.
func (p *Publisher) Conn() *nats.Conn { return p.conn }

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("hikepal"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
