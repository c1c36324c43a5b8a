package usecases_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/hikepal/internal/core/domain"
	"github.com/samirrijal/hikepal/internal/core/usecases"
)

func TestMessageLog_AppendAssignsIncreasingIDs(t *testing.T) {
	l := usecases.NewMessageLog(domain.ChannelTeam, nil)

	var last int64
	for i := 0; i < 5; i++ {
		msg, err := l.Append(domain.Message{Sender: domain.SenderUser, Text: "hello"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if msg.ID <= last {
			t.Fatalf("expected id > %d, got %d", last, msg.ID)
		}
		if msg.Channel != domain.ChannelTeam {
			t.Errorf("expected channel team, got %s", msg.Channel)
		}
		if msg.Timestamp.IsZero() {
			t.Error("expected timestamp to be set")
		}
		last = msg.ID
	}
	if l.LatestID() != last {
		t.Errorf("expected latest id %d, got %d", last, l.LatestID())
	}
}

func TestMessageLog_TailReturnsLastN(t *testing.T) {
	l := usecases.NewMessageLog(domain.ChannelAdvisory, nil)
	texts := []string{"a", "b", "c", "d", "e"}
	for _, s := range texts {
		if _, err := l.Append(domain.Message{Sender: domain.SenderUser, Text: s}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	tail := l.Tail(3)
	if len(tail) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(tail))
	}
	for i, want := range []string{"c", "d", "e"} {
		if tail[i].Text != want {
			t.Errorf("tail[%d]: expected %s, got %s", i, want, tail[i].Text)
		}
	}
	if got := l.Tail(10); len(got) != 5 {
		t.Errorf("expected all 5 messages, got %d", len(got))
	}
	if got := l.Tail(0); len(got) != 0 {
		t.Errorf("expected empty tail, got %d", len(got))
	}
}

func TestMessageLog_TailIsACopy(t *testing.T) {
	l := usecases.NewMessageLog(domain.ChannelTeam, nil)
	_, _ = l.Append(domain.Message{Sender: domain.SenderUser, Text: "original"})

	tail := l.Tail(1)
	tail[0].Text = "changed"

	if got := l.Tail(1)[0].Text; got != "original" {
		t.Errorf("expected stored message unchanged, got %s", got)
	}
}

func TestMessageLog_RejectsBlankUserText(t *testing.T) {
	l := usecases.NewMessageLog(domain.ChannelTeam, nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := l.Append(domain.Message{Sender: domain.SenderUser, Text: text})
		if !errors.Is(err, domain.ErrEmptyText) {
			t.Errorf("text %q: expected ErrEmptyText, got %v", text, err)
		}
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("text %q: expected ErrInvalidInput in chain", text)
		}
	}
	if l.Len() != 0 {
		t.Errorf("expected empty log, got %d", l.Len())
	}
}

func TestMessageLog_AllowsBlankSystemText(t *testing.T) {
	l := usecases.NewMessageLog(domain.ChannelAdvisory, nil)
	if _, err := l.Append(domain.Message{Sender: domain.SenderSystem, Text: ""}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := l.Append(domain.Message{Sender: domain.SenderAssistant, Text: " "}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMessageLog_TeammateNeedsName(t *testing.T) {
	l := usecases.NewMessageLog(domain.ChannelTeam, nil)
	_, err := l.Append(domain.Message{Sender: domain.SenderTeammate, Text: "hi"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMessageLog_WrongChannel(t *testing.T) {
	l := usecases.NewMessageLog(domain.ChannelTeam, nil)
	_, err := l.Append(domain.Message{Channel: domain.ChannelAdvisory, Sender: domain.SenderUser, Text: "hi"})
	if !errors.Is(err, domain.ErrUnknownChannel) {
		t.Fatalf("expected ErrUnknownChannel, got %v", err)
	}
}

func TestMessageLog_TimestampsNeverGoBackwards(t *testing.T) {
	l := usecases.NewMessageLog(domain.ChannelTeam, nil)
	now := time.Now()

	first, _ := l.Append(domain.Message{Sender: domain.SenderUser, Text: "a", Timestamp: now})
	second, _ := l.Append(domain.Message{Sender: domain.SenderUser, Text: "b", Timestamp: now.Add(-time.Hour)})

	if second.Timestamp.Before(first.Timestamp) {
		t.Errorf("expected monotonic timestamps, got %s before %s", second.Timestamp, first.Timestamp)
	}
}

func TestMessageLog_SealRejectsAppends(t *testing.T) {
	l := usecases.NewMessageLog(domain.ChannelTeam, nil)
	l.Seal()
	_, err := l.Append(domain.Message{Sender: domain.SenderUser, Text: "late"})
	if !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestMessageLog_OnAppendHook(t *testing.T) {
	var got []int64
	l := usecases.NewMessageLog(domain.ChannelTeam, func(m domain.Message) { got = append(got, m.ID) })

	_, _ = l.Append(domain.Message{Sender: domain.SenderUser, Text: "a"})
	_, _ = l.Append(domain.Message{Sender: domain.SenderUser, Text: " "}) // rejected
	_, _ = l.Append(domain.Message{Sender: domain.SenderUser, Text: "b"})

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("expected hook for ids [1 2], got %v", got)
	}
}

func TestMessageLog_ConcurrentAppends(t *testing.T) {
	l := usecases.NewMessageLog(domain.ChannelTeam, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Append(domain.Message{Sender: domain.SenderUser, Text: "x"})
		}()
	}
	wg.Wait()

	msgs := l.Tail(100)
	if len(msgs) != 50 {
		t.Fatalf("expected 50 messages, got %d", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].ID <= msgs[i-1].ID {
			t.Fatalf("ids not strictly increasing at %d: %d then %d", i, msgs[i-1].ID, msgs[i].ID)
		}
		if msgs[i].Timestamp.Before(msgs[i-1].Timestamp) {
			t.Fatalf("timestamps out of order at %d", i)
		}
	}
}
