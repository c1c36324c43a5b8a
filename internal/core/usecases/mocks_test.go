package usecases_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/hikepal/internal/core/domain"
	"github.com/samirrijal/hikepal/internal/core/ports"
)

// --- Mock KnowledgeService ---

type mockKnowledge struct {
	adviseFn     func(ctx context.Context, req ports.AdviceRequest) (string, error)
	configuredFn func() bool
}

func (m *mockKnowledge) Configured() bool {
	if m.configuredFn != nil {
		return m.configuredFn()
	}
	return true
}

func (m *mockKnowledge) Advise(ctx context.Context, req ports.AdviceRequest) (string, error) {
	if m.adviseFn != nil {
		return m.adviseFn(ctx, req)
	}
	return "", nil
}

// --- Mock AdviceCache ---

type mockCache struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu       sync.Mutex
	messages []domain.Message
	states   []domain.ChannelState
	presence int
	scenes   int
}

func (m *mockPublisher) PublishMessage(_ context.Context, _ string, msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockPublisher) PublishChannelState(_ context.Context, _ string, st domain.ChannelState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, st)
	return nil
}

func (m *mockPublisher) PublishPresence(context.Context, string, []domain.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presence++
	return nil
}

func (m *mockPublisher) PublishScene(context.Context, domain.Scene) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenes++
	return nil
}

func (m *mockPublisher) presenceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.presence
}

// blockingPublisher stalls every publish until release is closed or the
// publish context ends, like a partitioned broker.
type blockingPublisher struct {
	release chan struct{}
}

func (b *blockingPublisher) wait(ctx context.Context) error {
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *blockingPublisher) PublishMessage(ctx context.Context, _ string, _ domain.Message) error {
	return b.wait(ctx)
}

func (b *blockingPublisher) PublishChannelState(ctx context.Context, _ string, _ domain.ChannelState) error {
	return b.wait(ctx)
}

func (b *blockingPublisher) PublishPresence(ctx context.Context, _ string, _ []domain.Participant) error {
	return b.wait(ctx)
}

func (b *blockingPublisher) PublishScene(ctx context.Context, _ domain.Scene) error {
	return b.wait(ctx)
}

// --- Mock MapSurface ---

type mockSurface struct {
	acquireFn func(ctx context.Context, sessionID string, size domain.SurfaceSize) (ports.SurfaceHandle, error)
	handle    *mockHandle
}

func (m *mockSurface) Acquire(ctx context.Context, sessionID string, size domain.SurfaceSize) (ports.SurfaceHandle, error) {
	if m.acquireFn != nil {
		return m.acquireFn(ctx, sessionID, size)
	}
	if m.handle == nil {
		m.handle = &mockHandle{}
	}
	return m.handle, nil
}

type mockHandle struct {
	mu       sync.Mutex
	renderFn func(ctx context.Context, scene domain.Scene) error
	renders  []domain.Scene
	releases int
}

func (h *mockHandle) Render(ctx context.Context, scene domain.Scene) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.renderFn != nil {
		if err := h.renderFn(ctx, scene); err != nil {
			return err
		}
	}
	h.renders = append(h.renders, scene)
	return nil
}

func (h *mockHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.releases++
	return nil
}

func (h *mockHandle) renderCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.renders)
}

func (h *mockHandle) releaseCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.releases
}

// --- Mock TelemetrySubscriber ---

type mockFeed struct {
	mu        sync.Mutex
	positions map[string]func(ctx context.Context, u domain.PositionUpdate) error
	inbound   map[string]func(ctx context.Context, m ports.InboundTeamMessage) error
	stopped   int
}

func newMockFeed() *mockFeed {
	return &mockFeed{
		positions: make(map[string]func(ctx context.Context, u domain.PositionUpdate) error),
		inbound:   make(map[string]func(ctx context.Context, m ports.InboundTeamMessage) error),
	}
}

func (m *mockFeed) SubscribePositions(_ context.Context, sessionID string, h func(ctx context.Context, u domain.PositionUpdate) error) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[sessionID] = h
	return m.stop, nil
}

func (m *mockFeed) SubscribeTeamInbound(_ context.Context, sessionID string, h func(ctx context.Context, msg ports.InboundTeamMessage) error) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbound[sessionID] = h
	return m.stop, nil
}

func (m *mockFeed) stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped++
}

// --- Helpers ---

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func waitAdvice(t *testing.T, p interface {
	Done() <-chan struct{}
}) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("advisory request did not resolve")
	}
}
