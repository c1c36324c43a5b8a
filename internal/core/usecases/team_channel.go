package usecases

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samirrijal/hikepal/internal/core/domain"
	"github.com/samirrijal/hikepal/internal/pkg/metrics"
)

// DefaultTeamReply is the simulated teammate's canned answer.
const DefaultTeamReply = "Copy that! I am about 200m ahead near the peak."

// TeamConfig tunes a TeamChannel.
type TeamConfig struct {
	ReplyDelay  time.Duration
	ResponderID string // teammate who answers; the first teammate when unset or unknown
	ReplyText   string
}

// TeamChannel carries peer messages. Every outbound message schedules one
// delayed simulated reply; any number may be outstanding at once. A group
// without teammates gets no replies.
type TeamChannel struct {
	log      *MessageLog
	presence *PresenceTracker
	cfg      TeamConfig
	logger   *slog.Logger

	mu     sync.Mutex
	timers map[uint64]*time.Timer
	seq    uint64
	closed bool
}

// NewTeamChannel creates a team channel appending to log.
func NewTeamChannel(log *MessageLog, presence *PresenceTracker, cfg TeamConfig) *TeamChannel {
	if cfg.ReplyText == "" {
		cfg.ReplyText = DefaultTeamReply
	}
	return &TeamChannel{
		log:      log,
		presence: presence,
		cfg:      cfg,
		logger:   slog.Default().With("channel", string(domain.ChannelTeam)),
		timers:   make(map[uint64]*time.Timer),
	}
}

// State is always Idle: the team channel never blocks submissions.
func (t *TeamChannel) State() domain.ChannelState {
	return domain.ChannelState{Channel: domain.ChannelTeam, Status: domain.ChannelIdle, UpdatedAt: time.Now()}
}

// Submit appends text from senderID and schedules the responder's reply.
func (t *TeamChannel) Submit(text, senderID string) (domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, domain.ErrEmptyText
	}
	sender, ok := t.presence.Get(senderID)
	if !ok {
		return domain.Message{}, fmt.Errorf("%w: %s", domain.ErrUnknownParticipant, senderID)
	}

	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return domain.Message{}, domain.ErrSessionClosed
	}

	msg, err := t.log.Append(domain.Message{
		Sender:     domain.SenderUser,
		SenderID:   sender.ID,
		SenderName: sender.Name,
		Text:       text,
	})
	if err != nil {
		return domain.Message{}, err
	}

	if _, ok := t.responder(); !ok {
		return msg, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.scheduleLocked()
	}
	return msg, nil
}

// Receive appends a message authored by a teammate elsewhere.
func (t *TeamChannel) Receive(senderID, text string) (domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, domain.ErrEmptyText
	}
	sender, ok := t.presence.Get(senderID)
	if !ok {
		return domain.Message{}, fmt.Errorf("%w: %s", domain.ErrUnknownParticipant, senderID)
	}
	return t.log.Append(domain.Message{
		Sender:     domain.SenderTeammate,
		SenderID:   sender.ID,
		SenderName: sender.Name,
		Text:       text,
	})
}

// Outstanding returns the number of replies still scheduled.
func (t *TeamChannel) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

// Close cancels every scheduled reply. Later submissions fail.
func (t *TeamChannel) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for id, tm := range t.timers {
		tm.Stop()
		delete(t.timers, id)
	}
}

func (t *TeamChannel) scheduleLocked() {
	t.seq++
	id := t.seq
	t.timers[id] = time.AfterFunc(t.cfg.ReplyDelay, func() { t.reply(id) })
}

func (t *TeamChannel) reply(id uint64) {
	t.mu.Lock()
	if _, ok := t.timers[id]; !ok || t.closed {
		t.mu.Unlock()
		return
	}
	delete(t.timers, id)
	t.mu.Unlock()

	responder, ok := t.responder()
	if !ok {
		t.logger.Debug("team reply skipped, no teammate registered")
		return
	}
	if _, err := t.log.Append(domain.Message{
		Sender:     domain.SenderTeammate,
		SenderID:   responder.ID,
		SenderName: responder.Name,
		Text:       t.cfg.ReplyText,
	}); err != nil {
		t.logger.Debug("team reply dropped", "error", err)
		return
	}
	metrics.TeamReplies.Inc()
}

// responder is the configured teammate, or the first registered teammate when
// that one is not part of the group.
func (t *TeamChannel) responder() (domain.Participant, bool) {
	if p, ok := t.presence.Get(t.cfg.ResponderID); ok && !p.Local {
		return p, true
	}
	for _, p := range t.presence.ListParticipants() {
		if !p.Local {
			return p, true
		}
	}
	return domain.Participant{}, false
}
