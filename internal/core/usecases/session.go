package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samirrijal/hikepal/internal/core/domain"
	"github.com/samirrijal/hikepal/internal/core/ports"
	"github.com/samirrijal/hikepal/internal/pkg/metrics"
)

// SessionConfig tunes every session a service starts.
type SessionConfig struct {
	Surface            domain.SurfaceSize
	PaddingTopLeft     domain.Padding
	PaddingBottomRight domain.Padding
	AdvisoryTimeout    time.Duration
	AdviceCacheTTL     time.Duration
	TeamReplyDelay     time.Duration
	ResponderID        string
}

// DefaultSessionConfig mirrors the mobile companion layout.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Surface:            domain.SurfaceSize{Width: 390, Height: 844},
		PaddingTopLeft:     domain.Padding{X: 20, Y: 100},
		PaddingBottomRight: domain.Padding{X: 20, Y: 300},
		AdvisoryTimeout:    30 * time.Second,
		AdviceCacheTTL:     5 * time.Minute,
		TeamReplyDelay:     1500 * time.Millisecond,
		ResponderID:        DefaultResponderID,
	}
}

// SessionDeps are the external collaborators of a session. Every field is optional.
type SessionDeps struct {
	Knowledge ports.KnowledgeService
	Cache     ports.AdviceCache
	Publisher ports.EventPublisher
	Surface   ports.MapSurface
}

// PositionSource labels where a position update came from.
type PositionSource string

const (
	SourceAPI  PositionSource = "api"
	SourceFeed PositionSource = "feed"
)

// SendResult is what Send appended. Pending is set for advisory sends only.
type SendResult struct {
	Message domain.Message
	Pending *PendingAdvice
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID           string                         `json:"id"`
	Trail        domain.Trail                   `json:"trail"`
	StartedAt    time.Time                      `json:"started_at"`
	Participants []domain.Participant           `json:"participants"`
	Channels     map[domain.Channel]ChannelView `json:"channels"`
	Viewport     domain.Viewport                `json:"viewport"`
}

// ChannelView is the state and scroll cursor of one channel.
type ChannelView struct {
	State    domain.ChannelState `json:"state"`
	LatestID int64               `json:"latest_id"`
	Count    int                 `json:"count"`
}

// Session is one active hike: route geometry, presence and both channels.
// It holds the map surface from StartSession until Close.
type Session struct {
	id        string
	startedAt time.Time
	cfg       SessionConfig
	geometry  *RouteGeometry
	presence  *PresenceTracker
	logs      map[domain.Channel]*MessageLog
	advisory  *AdvisoryChannel
	team      *TeamChannel
	publisher ports.EventPublisher
	events    *eventQueue
	surface   ports.SurfaceHandle
	logger    *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error
	renderMu  sync.Mutex
}

// StartSession builds a session for trail and team, acquires the map surface
// and renders the first scene. team must hold exactly one local participant.
// On any error nothing stays acquired.
func StartSession(ctx context.Context, id string, trail domain.Trail, team []domain.Participant, deps SessionDeps, cfg SessionConfig) (*Session, error) {
	presence := NewPresenceTracker()
	var teammates []domain.Participant
	for _, p := range team {
		if p.Local {
			if err := presence.RegisterLocal(p); err != nil {
				return nil, err
			}
			continue
		}
		teammates = append(teammates, p)
	}
	if _, ok := presence.Local(); !ok {
		return nil, fmt.Errorf("%w: session needs a local participant", domain.ErrInvalidInput)
	}
	for _, p := range teammates {
		if err := presence.RegisterTeammate(p); err != nil {
			return nil, err
		}
	}

	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		id:        id,
		startedAt: time.Now(),
		cfg:       cfg,
		geometry:  NewRouteGeometry(trail),
		presence:  presence,
		publisher: deps.Publisher,
		logger:    slog.Default().With("session_id", id),
		ctx:       sctx,
		cancel:    cancel,
	}
	if s.publisher == nil {
		s.publisher = noopPublisher{}
	}
	s.events = newEventQueue(s.logger)

	s.logs = map[domain.Channel]*MessageLog{
		domain.ChannelAdvisory: NewMessageLog(domain.ChannelAdvisory, s.publishMessage),
		domain.ChannelTeam:     NewMessageLog(domain.ChannelTeam, s.publishMessage),
	}
	s.advisory = NewAdvisoryChannel(sctx, s.logs[domain.ChannelAdvisory], deps.Knowledge, deps.Cache, AdvisoryConfig{
		Timeout:  cfg.AdvisoryTimeout,
		CacheTTL: cfg.AdviceCacheTTL,
		Trail:    trail.Name,
		Region:   trail.Region,
	}, s.publishState)
	s.team = NewTeamChannel(s.logs[domain.ChannelTeam], presence, TeamConfig{
		ReplyDelay:  cfg.TeamReplyDelay,
		ResponderID: cfg.ResponderID,
	})

	if deps.Surface != nil {
		h, err := deps.Surface.Acquire(ctx, id, cfg.Surface)
		if err != nil {
			cancel()
			s.events.close(0)
			return nil, fmt.Errorf("acquire map surface: %w", err)
		}
		s.surface = h
	}

	if _, err := s.logs[domain.ChannelAdvisory].Append(domain.Message{
		Sender: domain.SenderAssistant,
		Text:   WelcomeText(trail),
	}); err != nil {
		_ = s.Close()
		return nil, err
	}

	presence.ConsumeDirty()
	if err := s.render(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("render initial scene: %w", err)
	}
	s.logger.Info("session started", "trail", trail.Slug, "participants", len(team))
	return s, nil
}

// WelcomeText is the greeting that opens the advisory channel.
func WelcomeText(trail domain.Trail) string {
	start := trail.StartPoint
	if start == "" {
		start = "the trailhead"
	}
	return fmt.Sprintf("Hi! I'm your HikePal AI. We are at %s. How can I help? Need info on water, toilets, or withdrawal routes?", start)
}

func (s *Session) ID() string               { return s.id }
func (s *Session) StartedAt() time.Time     { return s.startedAt }
func (s *Session) Trail() domain.Trail      { return s.geometry.Trail() }
func (s *Session) Geometry() *RouteGeometry { return s.geometry }

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Closed reports whether Close has been called.
func (s *Session) Closed() bool { return s.closed.Load() }

// Send routes text to the advisory or team channel. Advisory queries are
// grounded on the local participant's location, or the trail's default view
// when it is unknown.
func (s *Session) Send(channel domain.Channel, text string) (SendResult, error) {
	if s.closed.Load() {
		return SendResult{}, domain.ErrSessionClosed
	}
	local, _ := s.presence.Local()

	switch channel {
	case domain.ChannelAdvisory:
		loc, ok := local.Position()
		if !ok {
			loc = s.geometry.trail.DefaultView
		}
		p, err := s.advisory.Submit(text, loc)
		if err != nil {
			return SendResult{}, err
		}
		return SendResult{Message: p.Query, Pending: p}, nil
	case domain.ChannelTeam:
		msg, err := s.team.Submit(text, local.ID)
		if err != nil {
			return SendResult{}, err
		}
		return SendResult{Message: msg}, nil
	}
	return SendResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownChannel, channel)
}

// ReceiveTeam appends an inbound message from a teammate.
func (s *Session) ReceiveTeam(participantID, text string) (domain.Message, error) {
	if s.closed.Load() {
		return domain.Message{}, domain.ErrSessionClosed
	}
	return s.team.Receive(participantID, text)
}

// Messages returns the last n messages of channel and its latest id.
func (s *Session) Messages(channel domain.Channel, n int) ([]domain.Message, int64, error) {
	l, ok := s.logs[channel]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", domain.ErrUnknownChannel, channel)
	}
	return l.Tail(n), l.LatestID(), nil
}

// ChannelState returns the request state of channel.
func (s *Session) ChannelState(channel domain.Channel) (domain.ChannelState, error) {
	switch channel {
	case domain.ChannelAdvisory:
		return s.advisory.State(), nil
	case domain.ChannelTeam:
		return s.team.State(), nil
	}
	return domain.ChannelState{}, fmt.Errorf("%w: %q", domain.ErrUnknownChannel, channel)
}

// Participants lists the local participant first, then teammates.
func (s *Session) Participants() []domain.Participant { return s.presence.ListParticipants() }

// UpdatePosition applies one location reading and re-renders the map.
func (s *Session) UpdatePosition(ctx context.Context, participantID string, loc domain.GeoPoint, source PositionSource) error {
	if s.closed.Load() {
		return domain.ErrSessionClosed
	}
	if err := s.presence.UpsertPosition(participantID, loc); err != nil {
		return err
	}
	metrics.PositionUpdates.WithLabelValues(string(source)).Inc()
	s.refresh(ctx)
	return nil
}

// SetStatus updates a participant's status.
func (s *Session) SetStatus(ctx context.Context, participantID string, status domain.ParticipantStatus) error {
	if s.closed.Load() {
		return domain.ErrSessionClosed
	}
	if err := s.presence.SetStatus(participantID, status); err != nil {
		return err
	}
	s.refresh(ctx)
	return nil
}

// Viewport returns the padded viewport for the trail.
func (s *Session) Viewport() domain.Viewport {
	return s.geometry.Viewport(s.cfg.Surface, s.cfg.PaddingTopLeft, s.cfg.PaddingBottomRight)
}

// Scene builds the full map frame: viewport, route polyline, POI and participant markers.
func (s *Session) Scene() domain.Scene {
	markers := s.geometry.POIMarkers()
	markers = append(markers, s.presence.Markers()...)
	return domain.Scene{
		SessionID: s.id,
		Viewport:  s.Viewport(),
		Path:      s.geometry.Path().Points(),
		Style:     RouteStyle,
		Markers:   markers,
	}
}

// Snapshot captures the session's current state.
func (s *Session) Snapshot() Snapshot {
	channels := make(map[domain.Channel]ChannelView, len(s.logs))
	for ch, l := range s.logs {
		st, _ := s.ChannelState(ch)
		channels[ch] = ChannelView{State: st, LatestID: l.LatestID(), Count: l.Len()}
	}
	return Snapshot{
		ID:           s.id,
		Trail:        s.Trail(),
		StartedAt:    s.startedAt,
		Participants: s.Participants(),
		Channels:     channels,
		Viewport:     s.Viewport(),
	}
}

// Close ends the session: pending team replies and any in-flight advisory
// request are cancelled, the logs stop accepting messages and the map surface
// is released. Safe to call more than once; later calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		s.team.Close()
		for _, l := range s.logs {
			l.Seal()
		}
		s.advisory.Wait()
		s.events.close(eventPublishTimeout)

		s.renderMu.Lock()
		if s.surface != nil {
			if err := s.surface.Release(); err != nil {
				s.closeErr = fmt.Errorf("release map surface: %w", err)
			}
		}
		s.renderMu.Unlock()
		s.logger.Info("session closed")
	})
	return s.closeErr
}

func (s *Session) refresh(ctx context.Context) {
	if !s.presence.ConsumeDirty() {
		return
	}
	if err := s.render(ctx); err != nil {
		s.logger.Warn("render scene failed", "error", err)
	}
	parts := s.presence.ListParticipants()
	s.publish(func(ctx context.Context) error { return s.publisher.PublishPresence(ctx, s.id, parts) })
}

func (s *Session) render(ctx context.Context) error {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	if s.surface == nil || s.closed.Load() {
		return nil
	}
	return s.surface.Render(ctx, s.Scene())
}

func (s *Session) publishMessage(msg domain.Message) {
	s.publish(func(ctx context.Context) error { return s.publisher.PublishMessage(ctx, s.id, msg) })
}

func (s *Session) publishState(state domain.ChannelState) {
	s.publish(func(ctx context.Context) error { return s.publisher.PublishChannelState(ctx, s.id, state) })
}

// publish is best effort; delivery happens off the caller's goroutine and
// failures never reach it.
func (s *Session) publish(fn func(ctx context.Context) error) {
	s.events.push(fn)
}

type noopPublisher struct{}

func (noopPublisher) PublishMessage(context.Context, string, domain.Message) error          { return nil }
func (noopPublisher) PublishChannelState(context.Context, string, domain.ChannelState) error { return nil }
func (noopPublisher) PublishPresence(context.Context, string, []domain.Participant) error    { return nil }
func (noopPublisher) PublishScene(context.Context, domain.Scene) error                       { return nil }
