package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/hikepal/internal/core/domain"
	"github.com/samirrijal/hikepal/internal/core/ports"
)

// Subscriber implements ports.TelemetrySubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewSubscriber connects to NATS and enables JetStream.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// TelemetryPayload is the wire form of one position reading.
type TelemetryPayload struct {
	ParticipantID string  `json:"participant_id"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	RecordedAt    string  `json:"recorded_at,omitempty"`
}

// TeamPayload is the wire form of one inbound teammate message.
type TeamPayload struct {
	ParticipantID string `json:"participant_id"`
	Text          string `json:"text"`
}

func (s *Subscriber) SubscribePositions(ctx context.Context, sessionID string, handler func(ctx context.Context, u domain.PositionUpdate) error) (func(), error) {
	return s.subscribe(TelemetryWildcard(sessionID), "positions-"+token(sessionID), func(msg *nats.Msg) error {
		u, err := DecodePosition(sessionID, msg.Subject, msg.Data)
		if err != nil {
			return err
		}
		return handler(ctx, u)
	})
}

func (s *Subscriber) SubscribeTeamInbound(ctx context.Context, sessionID string, handler func(ctx context.Context, m ports.InboundTeamMessage) error) (func(), error) {
	return s.subscribe(TeamInboundSubject(sessionID), "team-"+token(sessionID), func(msg *nats.Msg) error {
		var p TeamPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return err
		}
		return handler(ctx, ports.InboundTeamMessage{SessionID: sessionID, ParticipantID: p.ParticipantID, Text: p.Text})
	})
}

func (s *Subscriber) subscribe(subject, durable string, fn func(msg *nats.Msg) error) (func(), error) {
	sub, err := s.js.Subscribe(subject, func(msg *nats.Msg) {
		if err := fn(msg); err != nil {
			slog.Debug("telemetry message rejected", "subject", msg.Subject, "error", err)
			// Bad payloads and unknown participants will never succeed; drop them.
			_ = msg.Term()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durable),
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

// DecodePosition parses a telemetry message. The participant id falls back to
// the last subject token when the payload omits it.
func DecodePosition(sessionID, subject string, data []byte) (domain.PositionUpdate, error) {
	var p TelemetryPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.PositionUpdate{}, fmt.Errorf("decode position: %w", err)
	}
	if p.ParticipantID == "" {
		if i := strings.LastIndexByte(subject, '.'); i >= 0 {
			p.ParticipantID = subject[i+1:]
		}
	}
	if p.ParticipantID == "" {
		return domain.PositionUpdate{}, fmt.Errorf("%w: position without participant", domain.ErrInvalidInput)
	}
	return domain.PositionUpdate{
		SessionID:     sessionID,
		ParticipantID: p.ParticipantID,
		Location:      domain.GeoPoint{Lat: p.Lat, Lon: p.Lon},
	}, nil
}

// Close drains the connection.
func (s *Subscriber) Close() {
	_ = s.conn.Drain()
}
