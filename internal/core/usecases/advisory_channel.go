package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/hikepal/internal/core/domain"
	"github.com/samirrijal/hikepal/internal/core/ports"
	"github.com/samirrijal/hikepal/internal/pkg/metrics"
	"github.com/samirrijal/hikepal/internal/pkg/telemetry"
)

// User-facing texts appended by the advisory channel.
const (
	DemoModeText = "Demo Mode: API Key missing. Please configure your API Key to use AI features."
	FailureText  = "Sorry, I'm having trouble connecting to the hiking network (API Error)."
	NotFoundText = "I couldn't find specific information for that right now."
)

// AdviceOutcome is how one advisory request ended.
type AdviceOutcome string

const (
	OutcomeSuccess   AdviceOutcome = "success"
	OutcomeEmpty     AdviceOutcome = "empty"
	OutcomeFailure   AdviceOutcome = "failure"
	OutcomeDemo      AdviceOutcome = "demo"
	OutcomeCancelled AdviceOutcome = "cancelled"
)

// Failed reports whether the outcome counts as a failed request.
func (o AdviceOutcome) Failed() bool {
	return o == OutcomeFailure || o == OutcomeDemo || o == OutcomeCancelled
}

// AdviceResult is the resolved value of a PendingAdvice.
type AdviceResult struct {
	Outcome AdviceOutcome
	Reply   domain.Message // zero when Outcome is OutcomeCancelled
	Err     error          // cause of a failed outcome
}

// PendingAdvice is an accepted advisory request whose answer is still being
// fetched. It resolves exactly once.
type PendingAdvice struct {
	Query  domain.Message
	done   chan struct{}
	result AdviceResult
}

// Done is closed once the result is available.
func (p *PendingAdvice) Done() <-chan struct{} { return p.done }

// Wait blocks until the request resolves or ctx ends.
func (p *PendingAdvice) Wait(ctx context.Context) (AdviceResult, error) {
	select {
	case <-p.done:
		return p.result, nil
	case <-ctx.Done():
		return AdviceResult{}, ctx.Err()
	}
}

// Result returns the result without blocking.
func (p *PendingAdvice) Result() (AdviceResult, bool) {
	select {
	case <-p.done:
		return p.result, true
	default:
		return AdviceResult{}, false
	}
}

// AdvisoryConfig tunes an AdvisoryChannel.
type AdvisoryConfig struct {
	Timeout  time.Duration // bound on one knowledge call; 0 means 30s
	CacheTTL time.Duration // 0 disables caching
	Trail    string
	Region   string
}

// AdvisoryChannel runs location-grounded question/answer cycles against a
// knowledge service, at most one at a time.
type AdvisoryChannel struct {
	ctx       context.Context // session scope; cancelled on close
	log       *MessageLog
	knowledge ports.KnowledgeService
	cache     ports.AdviceCache
	cfg       AdvisoryConfig
	onState   func(domain.ChannelState)
	logger    *slog.Logger

	mu    sync.Mutex
	state domain.ChannelState
	wg    sync.WaitGroup
}

// NewAdvisoryChannel creates an idle channel appending to log. A nil
// knowledge service puts the channel in demo mode; cache and onState are optional.
func NewAdvisoryChannel(
	ctx context.Context,
	log *MessageLog,
	knowledge ports.KnowledgeService,
	cache ports.AdviceCache,
	cfg AdvisoryConfig,
	onState func(domain.ChannelState),
) *AdvisoryChannel {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &AdvisoryChannel{
		ctx:       ctx,
		log:       log,
		knowledge: knowledge,
		cache:     cache,
		cfg:       cfg,
		onState:   onState,
		logger:    slog.Default().With("channel", string(domain.ChannelAdvisory)),
		state:     domain.ChannelState{Channel: domain.ChannelAdvisory, Status: domain.ChannelIdle, UpdatedAt: time.Now()},
	}
}

// State returns the current channel state.
func (a *AdvisoryChannel) State() domain.ChannelState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Submit validates query, appends it as a user message, moves the channel to
// Pending and fetches the answer in the background. It never blocks on the
// knowledge service.
func (a *AdvisoryChannel) Submit(query string, loc domain.GeoPoint) (*PendingAdvice, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		metrics.AdvisoryRequests.WithLabelValues("rejected").Inc()
		return nil, domain.ErrEmptyText
	}
	if err := a.ctx.Err(); err != nil {
		return nil, domain.ErrSessionClosed
	}

	// Claim the in-flight slot before appending so a concurrent Submit is
	// rejected; the append itself runs without the lock.
	a.mu.Lock()
	if a.state.Status == domain.ChannelPending {
		a.mu.Unlock()
		metrics.AdvisoryRequests.WithLabelValues("rejected").Inc()
		return nil, domain.ErrRequestInFlight
	}
	prev := a.state
	a.setStateLocked(domain.ChannelPending, a.state.LastOutcome)
	state := a.state
	a.wg.Add(1)
	a.mu.Unlock()

	msg, err := a.log.Append(domain.Message{Sender: domain.SenderUser, Text: query})
	if err != nil {
		a.mu.Lock()
		a.state = prev
		a.mu.Unlock()
		a.wg.Done()
		return nil, err
	}

	pending := &PendingAdvice{Query: msg, done: make(chan struct{})}
	a.notify(state)
	go a.run(pending, query, loc)

	return pending, nil
}

// Wait blocks until no request is running.
func (a *AdvisoryChannel) Wait() { a.wg.Wait() }

func (a *AdvisoryChannel) run(p *PendingAdvice, query string, loc domain.GeoPoint) {
	defer a.wg.Done()

	outcome, text, mapResult, cause := a.advise(query, loc)

	res := AdviceResult{Outcome: outcome, Err: cause}
	if outcome != OutcomeCancelled {
		reply, err := a.log.Append(domain.Message{Sender: domain.SenderAssistant, Text: text, MapResult: mapResult})
		if err != nil {
			// Log sealed between the call returning and the append.
			res = AdviceResult{Outcome: OutcomeCancelled, Err: err}
		} else {
			res.Reply = reply
		}
	}
	metrics.AdvisoryRequests.WithLabelValues(string(res.Outcome)).Inc()

	last := domain.ChannelIdle
	if res.Outcome.Failed() {
		last = domain.ChannelFailed
	}
	a.mu.Lock()
	a.setStateLocked(domain.ChannelIdle, last)
	state := a.state
	a.mu.Unlock()
	a.notify(state)

	p.result = res
	close(p.done)
}

func (a *AdvisoryChannel) advise(query string, loc domain.GeoPoint) (AdviceOutcome, string, bool, error) {
	// Missing credentials short-circuit before the cache so demo mode never
	// serves answers stored by an earlier keyed run.
	if !a.configured() {
		return OutcomeDemo, DemoModeText, false, domain.ErrCredentialsMissing
	}

	ctx, cancel := context.WithTimeout(a.ctx, a.cfg.Timeout)
	defer cancel()

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanAdvise)
	defer span.End()

	key := adviceCacheKey(a.cfg.Trail, query, loc)
	if text, ok := a.cachedAdvice(ctx, key); ok {
		span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true), attribute.String(telemetry.AttrOutcome, string(OutcomeSuccess)))
		return OutcomeSuccess, text, IsMapResult(text), nil
	}

	start := time.Now()
	text, err := a.knowledge.Advise(ctx, ports.AdviceRequest{
		Query:    query,
		Location: loc,
		Trail:    a.cfg.Trail,
		Region:   a.cfg.Region,
	})
	metrics.AdvisoryLatency.Observe(time.Since(start).Seconds())

	switch {
	case a.ctx.Err() != nil:
		span.SetAttributes(attribute.String(telemetry.AttrOutcome, string(OutcomeCancelled)))
		return OutcomeCancelled, "", false, domain.ErrSessionClosed
	case errors.Is(err, domain.ErrCredentialsMissing):
		span.SetAttributes(attribute.String(telemetry.AttrOutcome, string(OutcomeDemo)))
		return OutcomeDemo, DemoModeText, false, err
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.Warn("knowledge service failed", "error", err)
		return OutcomeFailure, FailureText, false, fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		span.SetAttributes(attribute.String(telemetry.AttrOutcome, string(OutcomeEmpty)))
		return OutcomeEmpty, NotFoundText, false, nil
	}

	a.storeAdvice(key, text)
	span.SetAttributes(attribute.String(telemetry.AttrOutcome, string(OutcomeSuccess)))
	return OutcomeSuccess, text, IsMapResult(text), nil
}

func (a *AdvisoryChannel) configured() bool {
	if a.knowledge == nil {
		return false
	}
	if c, ok := a.knowledge.(ports.CredentialedService); ok {
		return c.Configured()
	}
	return true
}

func (a *AdvisoryChannel) cachedAdvice(ctx context.Context, key string) (string, bool) {
	if a.cache == nil || a.cfg.CacheTTL <= 0 {
		return "", false
	}
	b, err := a.cache.Get(ctx, key)
	if err != nil || len(b) == 0 {
		metrics.CacheMisses.WithLabelValues("advice").Inc()
		return "", false
	}
	metrics.CacheHits.WithLabelValues("advice").Inc()
	return string(b), true
}

func (a *AdvisoryChannel) storeAdvice(key, text string) {
	if a.cache == nil || a.cfg.CacheTTL <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.cache.Set(ctx, key, []byte(text), a.cfg.CacheTTL); err != nil {
		a.logger.Debug("advice cache set failed", "error", err)
	}
}

func (a *AdvisoryChannel) setStateLocked(status, last domain.ChannelStatus) {
	a.state = domain.ChannelState{
		Channel:     domain.ChannelAdvisory,
		Status:      status,
		LastOutcome: last,
		UpdatedAt:   time.Now(),
	}
}

func (a *AdvisoryChannel) notify(state domain.ChannelState) {
	if a.onState != nil {
		a.onState(state)
	}
}

// IsMapResult flags answers that mention the map or coordinates. It is a
// best-effort, case-insensitive wording check and can misclassify.
func IsMapResult(text string) bool {
	t := strings.ToLower(text)
	return strings.Contains(t, "map") || strings.Contains(t, "coordinates")
}

// adviceCacheKey buckets locations to ~110m so nearby hikers share answers.
func adviceCacheKey(trail, query string, loc domain.GeoPoint) string {
	return fmt.Sprintf("advice:%s:%.3f:%.3f:%s", trail, loc.Lat, loc.Lon, strings.ToLower(query))
}
