package usecases

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samirrijal/hikepal/internal/core/domain"
)

// MessageLog is the append-only history of one channel. Ids are strictly
// increasing and timestamps never go backwards, so insertion order and
// timestamp order agree.
type MessageLog struct {
	mu       sync.RWMutex
	channel  domain.Channel
	messages []domain.Message
	nextID   int64
	last     time.Time
	sealed   bool
	onAppend func(domain.Message)
	now      func() time.Time
}

// NewMessageLog creates an empty log for channel. onAppend, if non-nil, is
// called with every appended message after the log lock is released.
func NewMessageLog(channel domain.Channel, onAppend func(domain.Message)) *MessageLog {
	return &MessageLog{channel: channel, onAppend: onAppend, now: time.Now}
}

// Channel returns the channel this log belongs to.
func (l *MessageLog) Channel() domain.Channel { return l.channel }

// Append validates msg, assigns its id (and timestamp when unset) and stores it.
// User and teammate messages must carry non-blank text; system and assistant
// messages may be blank. Teammate messages need a sender name.
func (l *MessageLog) Append(msg domain.Message) (domain.Message, error) {
	if msg.Channel != "" && msg.Channel != l.channel {
		return domain.Message{}, fmt.Errorf("%w: message for %s appended to %s log", domain.ErrUnknownChannel, msg.Channel, l.channel)
	}
	switch msg.Sender {
	case domain.SenderUser, domain.SenderTeammate:
		if strings.TrimSpace(msg.Text) == "" {
			return domain.Message{}, domain.ErrEmptyText
		}
	case domain.SenderAssistant, domain.SenderSystem:
	default:
		return domain.Message{}, fmt.Errorf("%w: sender kind %q", domain.ErrInvalidInput, msg.Sender)
	}
	if msg.Sender == domain.SenderTeammate && strings.TrimSpace(msg.SenderName) == "" {
		return domain.Message{}, fmt.Errorf("%w: teammate message without sender name", domain.ErrInvalidInput)
	}

	l.mu.Lock()
	if l.sealed {
		l.mu.Unlock()
		return domain.Message{}, domain.ErrSessionClosed
	}
	l.nextID++
	msg.ID = l.nextID
	msg.Channel = l.channel
	if msg.Timestamp.IsZero() {
		msg.Timestamp = l.now()
	}
	if msg.Timestamp.Before(l.last) {
		msg.Timestamp = l.last
	}
	l.last = msg.Timestamp
	l.messages = append(l.messages, msg)
	l.mu.Unlock()

	if l.onAppend != nil {
		l.onAppend(msg)
	}
	return msg, nil
}

// Tail returns the last n messages in insertion order.
func (l *MessageLog) Tail(n int) []domain.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 {
		return []domain.Message{}
	}
	if n > len(l.messages) {
		n = len(l.messages)
	}
	out := make([]domain.Message, n)
	copy(out, l.messages[len(l.messages)-n:])
	return out
}

// LatestID is the scroll-to-latest cursor: the id of the newest message, or 0.
func (l *MessageLog) LatestID() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.messages) == 0 {
		return 0
	}
	return l.messages[len(l.messages)-1].ID
}

// Len returns the number of stored messages.
func (l *MessageLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Seal rejects every later Append with ErrSessionClosed.
func (l *MessageLog) Seal() {
	l.mu.Lock()
	l.sealed = true
	l.mu.Unlock()
}
