package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/samirrijal/hikepal/internal/core/domain"
	"github.com/samirrijal/hikepal/internal/core/ports"
	"github.com/samirrijal/hikepal/internal/pkg/metrics"
)

// StartInput selects the trail and group for a new session. Zero values fall
// back to the default trail and the demo team.
type StartInput struct {
	Trail     string
	Local     *domain.Participant
	Teammates []domain.Participant
}

// SessionService owns the registry of live sessions.
type SessionService struct {
	trails       ports.TrailRepository
	fallback     ports.TrailRepository
	feed         ports.TelemetrySubscriber
	deps         SessionDeps
	cfg          SessionConfig
	defaultTrail string
	newID        func() string

	mu       sync.RWMutex
	sessions map[string]*liveSession
}

type liveSession struct {
	*Session
	stops []func()
}

// NewSessionService creates a SessionService. trails may be nil, in which case
// only the built-in catalog is used. feed is optional.
func NewSessionService(trails ports.TrailRepository, feed ports.TelemetrySubscriber, deps SessionDeps, cfg SessionConfig, defaultTrail string) *SessionService {
	if defaultTrail == "" {
		defaultTrail = DragonsBackSlug
	}
	return &SessionService{
		trails:       trails,
		fallback:     NewStaticTrails(),
		feed:         feed,
		deps:         deps,
		cfg:          cfg,
		defaultTrail: defaultTrail,
		newID:        uuid.NewString,
		sessions:     make(map[string]*liveSession),
	}
}

// Start opens a new session and subscribes it to the telemetry feed.
func (s *SessionService) Start(ctx context.Context, in StartInput) (*Session, error) {
	slug := strings.TrimSpace(in.Trail)
	if slug == "" {
		slug = s.defaultTrail
	}
	trail, err := s.trail(ctx, slug)
	if err != nil {
		return nil, err
	}

	team := DefaultTeam()
	if in.Local != nil {
		local := *in.Local
		local.Local = true
		team = append([]domain.Participant{local}, team[1:]...)
	}
	if in.Teammates != nil {
		team = append(team[:1:1], in.Teammates...)
		for i := 1; i < len(team); i++ {
			team[i].Local = false
		}
	}

	id := s.newID()
	sess, err := StartSession(ctx, id, *trail, team, s.deps, s.cfg)
	if err != nil {
		return nil, err
	}

	live := &liveSession{Session: sess}
	if s.feed != nil {
		live.stops = s.subscribe(sess)
	}

	s.mu.Lock()
	s.sessions[id] = live
	s.mu.Unlock()
	metrics.ActiveSessions.Inc()

	return sess, nil
}

// Get returns a live session.
func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	live, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return live.Session, nil
}

// List returns every live session.
func (s *SessionService) List() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, live := range s.sessions {
		out = append(out, live.Session)
	}
	return out
}

// Count returns the number of live sessions.
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// End closes and forgets a session.
func (s *SessionService) End(id string) error {
	s.mu.Lock()
	live, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return s.close(live)
}

// CloseAll ends every live session. Used on shutdown.
func (s *SessionService) CloseAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*liveSession)
	s.mu.Unlock()

	for id, live := range all {
		if err := s.close(live); err != nil {
			slog.Warn("close session", "session_id", id, "error", err)
		}
	}
}

// Trails lists the trail catalog.
func (s *SessionService) Trails(ctx context.Context) ([]domain.Trail, error) {
	if s.trails != nil {
		trails, err := s.trails.List(ctx)
		if err == nil && len(trails) > 0 {
			return trails, nil
		}
		if err != nil {
			slog.Warn("trail repository unavailable, using built-in catalog", "error", err)
		}
	}
	return s.fallback.List(ctx)
}

// ApplyPosition routes a telemetry reading to its session.
func (s *SessionService) ApplyPosition(ctx context.Context, u domain.PositionUpdate) error {
	sess, err := s.Get(u.SessionID)
	if err != nil {
		return err
	}
	return sess.UpdatePosition(ctx, u.ParticipantID, u.Location, SourceFeed)
}

// ApplyTeamMessage routes an inbound teammate message to its session.
func (s *SessionService) ApplyTeamMessage(_ context.Context, m ports.InboundTeamMessage) error {
	sess, err := s.Get(m.SessionID)
	if err != nil {
		return err
	}
	_, err = sess.ReceiveTeam(m.ParticipantID, m.Text)
	return err
}

func (s *SessionService) close(live *liveSession) error {
	for _, stop := range live.stops {
		stop()
	}
	metrics.ActiveSessions.Dec()
	return live.Close()
}

func (s *SessionService) trail(ctx context.Context, slug string) (*domain.Trail, error) {
	if s.trails != nil {
		t, err := s.trails.GetBySlug(ctx, slug)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, domain.ErrTrailNotFound) {
			slog.Warn("trail repository unavailable, using built-in catalog", "trail", slug, "error", err)
		}
	}
	return s.fallback.GetBySlug(ctx, slug)
}

func (s *SessionService) subscribe(sess *Session) []func() {
	var stops []func()
	logger := slog.Default().With("session_id", sess.ID())

	stop, err := s.feed.SubscribePositions(sess.ctx, sess.ID(), func(ctx context.Context, u domain.PositionUpdate) error {
		return sess.UpdatePosition(ctx, u.ParticipantID, u.Location, SourceFeed)
	})
	if err != nil {
		logger.Warn("subscribe positions", "error", err)
	} else {
		stops = append(stops, stop)
	}

	stop, err = s.feed.SubscribeTeamInbound(sess.ctx, sess.ID(), func(ctx context.Context, m ports.InboundTeamMessage) error {
		_, err := sess.ReceiveTeam(m.ParticipantID, m.Text)
		return err
	})
	if err != nil {
		logger.Warn("subscribe team inbound", "error", err)
	} else {
		stops = append(stops, stop)
	}
	return stops
}
