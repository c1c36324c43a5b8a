package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/hikepal/internal/core/domain"
	"github.com/samirrijal/hikepal/internal/core/ports"
	"github.com/samirrijal/hikepal/internal/core/usecases"
)

// --- Mock TrailRepository ---

type mockTrailRepo struct {
	getBySlugFn func(ctx context.Context, slug string) (*domain.Trail, error)
	listFn      func(ctx context.Context) ([]domain.Trail, error)
}

func (m *mockTrailRepo) GetBySlug(ctx context.Context, slug string) (*domain.Trail, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, domain.ErrTrailNotFound
}

func (m *mockTrailRepo) List(ctx context.Context) ([]domain.Trail, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func TestSessionService_StartDefaults(t *testing.T) {
	svc := usecases.NewSessionService(nil, nil, usecases.SessionDeps{}, testConfig(), "")
	t.Cleanup(svc.CloseAll)

	s, err := svc.Start(context.Background(), usecases.StartInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ID() == "" {
		t.Error("expected generated session id")
	}
	if s.Trail().Name != "Dragon's Back to Cape D'Aguilar" {
		t.Errorf("expected default trail, got %s", s.Trail().Name)
	}
	parts := s.Participants()
	if len(parts) != 3 || parts[0].Name != "Me" || parts[1].Name != "Alex" || parts[2].Name != "Sarah" {
		t.Errorf("unexpected team %+v", parts)
	}

	got, err := svc.Get(s.ID())
	if err != nil || got != s {
		t.Errorf("expected Get to return the session, got %v, %v", got, err)
	}
	if svc.Count() != 1 {
		t.Errorf("expected 1 session, got %d", svc.Count())
	}
}

func TestSessionService_CustomGroup(t *testing.T) {
	svc := usecases.NewSessionService(nil, nil, usecases.SessionDeps{}, testConfig(), "")
	t.Cleanup(svc.CloseAll)

	s, err := svc.Start(context.Background(), usecases.StartInput{
		Local:     &domain.Participant{ID: "me", Name: "Kit"},
		Teammates: []domain.Participant{{ID: "u2", Name: "Alex"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parts := s.Participants()
	if len(parts) != 2 || parts[0].ID != "me" || !parts[0].Local || parts[1].ID != "u2" {
		t.Errorf("unexpected participants %+v", parts)
	}
}

func TestSessionService_UnknownTrail(t *testing.T) {
	svc := usecases.NewSessionService(&mockTrailRepo{}, nil, usecases.SessionDeps{}, testConfig(), "")

	_, err := svc.Start(context.Background(), usecases.StartInput{Trail: "everest"})
	if !errors.Is(err, domain.ErrTrailNotFound) {
		t.Fatalf("expected ErrTrailNotFound, got %v", err)
	}
	if svc.Count() != 0 {
		t.Errorf("expected no sessions, got %d", svc.Count())
	}
}

func TestSessionService_RepositoryTrail(t *testing.T) {
	repo := &mockTrailRepo{getBySlugFn: func(ctx context.Context, slug string) (*domain.Trail, error) {
		tr := usecases.DragonsBack()
		tr.Slug = slug
		tr.Name = "Lantau Peak"
		return &tr, nil
	}}
	svc := usecases.NewSessionService(repo, nil, usecases.SessionDeps{}, testConfig(), "")
	t.Cleanup(svc.CloseAll)

	s, err := svc.Start(context.Background(), usecases.StartInput{Trail: "lantau"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Trail().Name != "Lantau Peak" {
		t.Errorf("expected repository trail, got %s", s.Trail().Name)
	}
}

func TestSessionService_RepositoryDownFallsBack(t *testing.T) {
	repo := &mockTrailRepo{getBySlugFn: func(ctx context.Context, slug string) (*domain.Trail, error) {
		return nil, errors.New("connection refused")
	}}
	svc := usecases.NewSessionService(repo, nil, usecases.SessionDeps{}, testConfig(), "")
	t.Cleanup(svc.CloseAll)

	s, err := svc.Start(context.Background(), usecases.StartInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Trail().Slug != usecases.DragonsBackSlug {
		t.Errorf("expected built-in trail, got %s", s.Trail().Slug)
	}
}

func TestSessionService_End(t *testing.T) {
	surf := &mockSurface{}
	svc := usecases.NewSessionService(nil, nil, usecases.SessionDeps{Surface: surf}, testConfig(), "")

	s, _ := svc.Start(context.Background(), usecases.StartInput{})
	if err := svc.End(s.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Closed() {
		t.Error("expected session closed")
	}
	if surf.handle.releaseCount() != 1 {
		t.Errorf("expected surface released, got %d", surf.handle.releaseCount())
	}
	if _, err := svc.Get(s.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if err := svc.End(s.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound on second end, got %v", err)
	}
}

func TestSessionService_CloseAll(t *testing.T) {
	svc := usecases.NewSessionService(nil, nil, usecases.SessionDeps{}, testConfig(), "")

	a, _ := svc.Start(context.Background(), usecases.StartInput{})
	b, _ := svc.Start(context.Background(), usecases.StartInput{})
	if a.ID() == b.ID() {
		t.Fatal("expected distinct session ids")
	}

	svc.CloseAll()
	if !a.Closed() || !b.Closed() {
		t.Error("expected every session closed")
	}
	if svc.Count() != 0 {
		t.Errorf("expected empty registry, got %d", svc.Count())
	}
}

func TestSessionService_TelemetryFeed(t *testing.T) {
	feed := newMockFeed()
	svc := usecases.NewSessionService(nil, feed, usecases.SessionDeps{}, testConfig(), "")

	s, _ := svc.Start(context.Background(), usecases.StartInput{})

	feed.mu.Lock()
	onPos := feed.positions[s.ID()]
	onTeam := feed.inbound[s.ID()]
	feed.mu.Unlock()
	if onPos == nil || onTeam == nil {
		t.Fatal("expected session subscribed to the feed")
	}

	if err := onPos(context.Background(), domain.PositionUpdate{SessionID: s.ID(), ParticipantID: "u3", Location: domain.GeoPoint{Lat: 22.24, Lon: 114.24}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc := s.Participants()[2].Location; loc == nil || loc.Lat != 22.24 {
		t.Errorf("expected Sarah moved, got %+v", loc)
	}

	if err := onTeam(context.Background(), ports.InboundTeamMessage{SessionID: s.ID(), ParticipantID: "u3", Text: "Resting at the pavilion"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msgs, _, _ := s.Messages(domain.ChannelTeam, 5)
	if len(msgs) != 1 || msgs[0].SenderName != "Sarah" {
		t.Errorf("expected inbound team message, got %+v", msgs)
	}

	_ = svc.End(s.ID())
	feed.mu.Lock()
	stopped := feed.stopped
	feed.mu.Unlock()
	if stopped != 2 {
		t.Errorf("expected both subscriptions stopped, got %d", stopped)
	}
}

func TestSessionService_ApplyPosition(t *testing.T) {
	svc := usecases.NewSessionService(nil, nil, usecases.SessionDeps{}, testConfig(), "")
	t.Cleanup(svc.CloseAll)
	s, _ := svc.Start(context.Background(), usecases.StartInput{})

	err := svc.ApplyPosition(context.Background(), domain.PositionUpdate{SessionID: s.ID(), ParticipantID: "u1", Location: domain.GeoPoint{Lat: 22.2315, Lon: 114.2393}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Participants()[0].Location.Lat != 22.2315 {
		t.Errorf("expected local participant moved")
	}

	err = svc.ApplyPosition(context.Background(), domain.PositionUpdate{SessionID: "nope", ParticipantID: "u1"})
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if err := svc.ApplyTeamMessage(context.Background(), ports.InboundTeamMessage{SessionID: s.ID(), ParticipantID: "u2", Text: "hi"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSessionService_Trails(t *testing.T) {
	svc := usecases.NewSessionService(nil, nil, usecases.SessionDeps{}, testConfig(), "")
	trails, err := svc.Trails(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trails) != 1 || trails[0].Slug != usecases.DragonsBackSlug {
		t.Errorf("unexpected catalog %+v", trails)
	}
}

func TestSessionService_TeamReplyFromFirstTeammate(t *testing.T) {
	svc := usecases.NewSessionService(nil, nil, usecases.SessionDeps{}, testConfig(), "")
	t.Cleanup(svc.CloseAll)

	s, err := svc.Start(context.Background(), usecases.StartInput{
		Local:     &domain.Participant{ID: "me", Name: "Kit"},
		Teammates: []domain.Participant{{ID: "kim", Name: "Kim"}, {ID: "lee", Name: "Lee"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Send(domain.ChannelTeam, "On my way"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		msgs, _, _ := s.Messages(domain.ChannelTeam, 10)
		return len(msgs) == 2
	})
	msgs, _, _ := s.Messages(domain.ChannelTeam, 10)
	reply := msgs[1]
	if reply.Sender != domain.SenderTeammate || reply.SenderID != "kim" || reply.SenderName != "Kim" {
		t.Errorf("expected reply from kim, got %+v", reply)
	}
}

func TestSessionService_SoloHikerGetsNoTeamReply(t *testing.T) {
	svc := usecases.NewSessionService(nil, nil, usecases.SessionDeps{}, testConfig(), "")
	t.Cleanup(svc.CloseAll)

	s, err := svc.Start(context.Background(), usecases.StartInput{
		Local:     &domain.Participant{ID: "me", Name: "Kit"},
		Teammates: []domain.Participant{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Send(domain.ChannelTeam, "Anyone there?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(10 * testConfig().TeamReplyDelay)
	if msgs, _, _ := s.Messages(domain.ChannelTeam, 10); len(msgs) != 1 {
		t.Errorf("expected only the outbound message, got %d", len(msgs))
	}
}
