//go:build !integration

package application_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"telegram-game-launcher/internal/application"
	"telegram-game-launcher/internal/domain"
	"telegram-game-launcher/internal/domain/model"
)

func newTestLoop(t *testing.T, tr *MockTransport, opts application.PollLoopOptions) *application.PollLoop {
	t.Helper()
	bot, err := application.NewBotContext(tr, newTestRegistry(t), newTestLogger(), false)
	if err != nil {
		t.Fatalf("NewBotContext failed: %v", err)
	}
	if opts.Backoff == nil {
		opts.Backoff = application.NewBackoff(time.Millisecond, 5*time.Millisecond, 2)
	}
	opts.Workers = 2
	return application.NewPollLoop(bot, opts, newTestLogger())
}

// runLoop starts l and returns a stop func that cancels and waits for Run.
func runLoop(t *testing.T, l *application.PollLoop) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			t.Fatal("poll loop did not stop")
			return nil
		}
	}
}

func batch(texts ...string) fetchResult {
	events := make([]model.InboundEvent, 0, len(texts))
	for i, text := range texts {
		ev := model.NewMessageEvent(100+int64(i), 7, text)
		ev.UpdateID = i + 1
		events = append(events, ev)
	}
	return fetchResult{events: events}
}

func TestPollLoop_Run(t *testing.T) {
	t.Run("should dispatch and deliver every event", func(t *testing.T) {
		tr := NewMockTransport(batch("/start", "hello", "/photo"))
		l := newTestLoop(t, tr, application.PollLoopOptions{})
		stop := runLoop(t, l)

		waitFor(t, "three deliveries", func() bool { return len(tr.SentMessages()) == 3 })
		if err := stop(); err != nil {
			t.Fatalf("Run returned %v", err)
		}

		byChat := map[int64]sentMessage{}
		for _, m := range tr.SentMessages() {
			byChat[m.ChatID] = m
		}
		if byChat[100].Template.Text != "menu" || byChat[100].Media {
			t.Errorf("unexpected reply to /start: %+v", byChat[100])
		}
		if byChat[101].Template.Text != "press /start" {
			t.Errorf("unexpected reply to free text: %+v", byChat[101])
		}
		if !byChat[102].Media {
			t.Errorf("media reply should go through SendMedia: %+v", byChat[102])
		}
	})

	t.Run("should retry after a fetch failure", func(t *testing.T) {
		tr := NewMockTransport(
			fetchResult{err: fmt.Errorf("%w: connection reset", domain.ErrTransport)},
			fetchResult{err: &domain.RetryAfterError{After: 2 * time.Millisecond, Err: domain.ErrTransport}},
			batch("/start"),
		)
		l := newTestLoop(t, tr, application.PollLoopOptions{})
		stop := runLoop(t, l)

		waitFor(t, "delivery after failures", func() bool { return len(tr.SentMessages()) == 1 })
		if tr.Fetches() < 3 {
			t.Errorf("expected at least 3 fetches, got %d", tr.Fetches())
		}
		waitFor(t, "polling state", func() bool { return l.State() == application.StatePolling })
		if err := stop(); err != nil {
			t.Fatalf("Run returned %v", err)
		}
	})

	t.Run("should stop while backing off", func(t *testing.T) {
		tr := NewMockTransport(fetchResult{err: domain.ErrTransport})
		l := newTestLoop(t, tr, application.PollLoopOptions{
			Backoff: application.NewBackoff(time.Hour, time.Hour, 2),
		})
		stop := runLoop(t, l)

		waitFor(t, "backoff state", func() bool { return l.State() == application.StateBackoff })
		if err := l.Ready(context.Background()); err == nil {
			t.Error("loop in backoff should not be ready")
		}
		if err := stop(); err != nil {
			t.Fatalf("Run returned %v", err)
		}
		if l.State() != application.StateStopped {
			t.Errorf("expected stopped, got %s", l.State())
		}
	})

	t.Run("delivery errors do not stop the loop", func(t *testing.T) {
		tr := NewMockTransport(batch("/start"), batch("/start"))
		tr.SendErr = errors.New("chat not found")
		l := newTestLoop(t, tr, application.PollLoopOptions{})
		stop := runLoop(t, l)

		waitFor(t, "both batches fetched", func() bool { return tr.Fetches() >= 3 })
		if err := stop(); err != nil {
			t.Fatalf("Run returned %v", err)
		}
	})

	t.Run("stop confirms the queued updates", func(t *testing.T) {
		tr := NewMockTransport(batch("/start", "hello"))
		l := newTestLoop(t, tr, application.PollLoopOptions{})
		stop := runLoop(t, l)

		waitFor(t, "two deliveries", func() bool { return len(tr.SentMessages()) == 2 })
		if err := stop(); err != nil {
			t.Fatalf("Run returned %v", err)
		}
		if got := tr.CommittedOffsets(); !reflect.DeepEqual(got, []int{3}) {
			t.Errorf("expected one commit at offset 3, got %v", got)
		}
	})

	t.Run("nothing fetched means nothing confirmed", func(t *testing.T) {
		tr := NewMockTransport()
		l := newTestLoop(t, tr, application.PollLoopOptions{})
		stop := runLoop(t, l)
		waitFor(t, "first fetch", func() bool { return tr.Fetches() >= 1 })
		if err := stop(); err != nil {
			t.Fatalf("Run returned %v", err)
		}
		if got := tr.CommittedOffsets(); len(got) != 0 {
			t.Errorf("expected no commit, got %v", got)
		}
	})

	t.Run("shutdown stops queueing the rest of a batch", func(t *testing.T) {
		texts := make([]string, 20)
		for i := range texts {
			texts[i] = "/start"
		}
		tr := NewMockTransport(batch(texts...))
		tr.SendGate = make(chan struct{})
		l := newTestLoop(t, tr, application.PollLoopOptions{})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- l.Run(ctx) }()

		waitFor(t, "both workers busy", func() bool { return tr.Waiting() == 2 })
		cancel()
		close(tr.SendGate)

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Run returned %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("poll loop did not stop")
		}
		// at most the two busy workers plus a full queue of eight were taken
		sent := len(tr.SentMessages())
		if sent < 2 || sent > 10 {
			t.Errorf("expected between 2 and 10 deliveries, got %d", sent)
		}
		if got := tr.CommittedOffsets(); !reflect.DeepEqual(got, []int{sent + 1}) {
			t.Errorf("expected a commit at %d, just past the last queued update, got %v", sent+1, got)
		}
	})

	t.Run("second run is refused", func(t *testing.T) {
		tr := NewMockTransport()
		l := newTestLoop(t, tr, application.PollLoopOptions{})
		stop := runLoop(t, l)
		waitFor(t, "polling state", func() bool { return l.State() == application.StatePolling })

		if err := l.Run(context.Background()); !errors.Is(err, application.ErrLoopStarted) {
			t.Errorf("expected ErrLoopStarted, got %v", err)
		}
		if err := l.Ready(context.Background()); err != nil {
			t.Errorf("polling loop should be ready, got %v", err)
		}
		if err := stop(); err != nil {
			t.Fatalf("Run returned %v", err)
		}
	})
}

func TestPollLoop_RateLimit(t *testing.T) {
	t.Run("refused users get the throttled reply", func(t *testing.T) {
		tr := NewMockTransport(batch("/start"))
		limiter := &MockLimiter{Allowed: false}
		l := newTestLoop(t, tr, application.PollLoopOptions{
			Limiter:        limiter,
			ThrottledReply: model.NewTextResponse("slow down", model.ParseModePlain, nil),
		})
		stop := runLoop(t, l)

		waitFor(t, "throttled reply", func() bool { return len(tr.SentMessages()) == 1 })
		_ = stop()
		if got := tr.SentMessages()[0].Template.Text; got != "slow down" {
			t.Errorf("expected throttled reply, got %q", got)
		}
		if len(limiter.Calls) != 1 || limiter.Calls[0] != "/start" {
			t.Errorf("unexpected limiter calls: %v", limiter.Calls)
		}
	})

	t.Run("limiter failure serves anyway", func(t *testing.T) {
		tr := NewMockTransport(batch("/start"))
		l := newTestLoop(t, tr, application.PollLoopOptions{
			Limiter: &MockLimiter{Err: errors.New("redis down")},
		})
		stop := runLoop(t, l)

		waitFor(t, "normal reply", func() bool { return len(tr.SentMessages()) == 1 })
		_ = stop()
		if got := tr.SentMessages()[0].Template.Text; got != "menu" {
			t.Errorf("expected the menu, got %q", got)
		}
	})
}

func TestBotContext(t *testing.T) {
	t.Run("requires a transport", func(t *testing.T) {
		_, err := application.NewBotContext(nil, newTestRegistry(t), newTestLogger(), false)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("publishes the described commands", func(t *testing.T) {
		tr := NewMockTransport()
		bot, err := application.NewBotContext(tr, newTestRegistry(t), newTestLogger(), false)
		if err != nil {
			t.Fatalf("NewBotContext failed: %v", err)
		}
		if err := bot.PublishMenu(context.Background()); err != nil {
			t.Fatalf("PublishMenu failed: %v", err)
		}
		if len(tr.Published) != 1 || tr.Published[0].Name != "start" {
			t.Errorf("unexpected menu: %+v", tr.Published)
		}
	})
}
