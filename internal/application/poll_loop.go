package application

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"telegram-game-launcher/internal/domain"
	"telegram-game-launcher/internal/domain/model"
	"telegram-game-launcher/internal/domain/ports/adapter"
	"telegram-game-launcher/internal/infra/logging"
	"telegram-game-launcher/internal/infra/metrics"
	"telegram-game-launcher/internal/infra/worker"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// LoopState is the poll loop's lifecycle state.
type LoopState int32

const (
	StateIdle LoopState = iota
	StatePolling
	StateBackoff
	StateStopped
)

func (s LoopState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateBackoff:
		return "backoff"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

var ErrLoopStarted = errors.New("poll loop already started")

type PollLoopOptions struct {
	PollTimeout time.Duration
	SendTimeout time.Duration
	Workers     int
	Backoff     *Backoff
	// Limiter is optional; without it every event is served.
	Limiter adapter.RateLimiter
	// ThrottledReply is sent instead of dispatching when Limiter refuses.
	ThrottledReply model.ResponseTemplate
}

// PollLoop drives the transport's update stream: Idle -> Polling, Polling
// <-> Backoff on transport failures, and Stopped once ctx is cancelled.
type PollLoop struct {
	bot     *BotContext
	opts    PollLoopOptions
	backoff *Backoff
	pool    *worker.Pool
	state   atomic.Int32
	log     *zerolog.Logger
}

func NewPollLoop(bot *BotContext, opts PollLoopOptions, logger *zerolog.Logger) *PollLoop {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 10 * time.Second
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 15 * time.Second
	}
	if opts.Backoff == nil {
		opts.Backoff = NewBackoff(time.Second, time.Minute, 2)
	}
	if opts.ThrottledReply.Text == "" {
		opts.ThrottledReply = model.NewTextResponse("Too many requests. Please slow down and try again shortly.", model.ParseModePlain, nil)
	}
	l := logger.With().Str("component", "PollLoop").Logger()
	return &PollLoop{
		bot:     bot,
		opts:    opts,
		backoff: opts.Backoff,
		pool:    worker.NewPool(opts.Workers, logger),
		log:     &l,
	}
}

func (l *PollLoop) State() LoopState { return LoopState(l.state.Load()) }

// Ready reports whether the loop is currently polling; it backs the
// readiness probe.
func (l *PollLoop) Ready(context.Context) error {
	if st := l.State(); st != StatePolling {
		return fmt.Errorf("poll loop is %s", st)
	}
	return nil
}

func (l *PollLoop) setState(s LoopState) {
	l.state.Store(int32(s))
	metrics.SetLoopState(s.String())
}

// Run polls until ctx is cancelled. Transport failures never end the loop.
// Events already queued are still dispatched and delivered before Run
// returns; fetched events not yet queued are left for the next start.
func (l *PollLoop) Run(ctx context.Context) error {
	if !l.state.CompareAndSwap(int32(StateIdle), int32(StatePolling)) {
		return ErrLoopStarted
	}
	l.setState(StatePolling)
	l.log.Info().Dur("poll_timeout", l.opts.PollTimeout).Msg("Starting poll loop")

	// Queued events finish even after ctx ends; nothing new is queued then.
	workCtx := context.WithoutCancel(ctx)
	l.pool.Start(workCtx)
	next := 0 // offset just past the last queued update
	defer func() {
		l.pool.Close()
		l.commit(next)
		l.setState(StateStopped)
		l.log.Info().Msg("Poll loop stopped")
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		events, err := l.bot.Transport.FetchUpdates(ctx, l.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if !l.wait(ctx, err) {
				return nil
			}
			continue
		}
		l.backoff.Reset()
		l.setState(StatePolling)

		for _, ev := range events {
			if ctx.Err() != nil {
				return nil
			}
			if err := l.pool.Submit(ctx, func(c context.Context) error {
				return l.process(c, ev)
			}); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				l.log.Error().Err(err).Int("update_id", ev.UpdateID).Msg("failed to queue update")
				continue
			}
			if ev.UpdateID >= next {
				next = ev.UpdateID + 1
			}
		}
	}
}

// commit confirms queued updates to the platform on the way out, so a
// restart neither replays answered updates nor drops unqueued ones.
func (l *PollLoop) commit(next int) {
	if next <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.opts.SendTimeout)
	defer cancel()
	if err := l.bot.Transport.Commit(ctx, next); err != nil {
		l.log.Warn().Err(err).Int("offset", next).Msg("failed to confirm updates on stop")
	}
}

// wait sleeps through one backoff step; false means ctx ended first.
func (l *PollLoop) wait(ctx context.Context, cause error) bool {
	var hint time.Duration
	var ra *domain.RetryAfterError
	if errors.As(cause, &ra) {
		hint = ra.After
	}
	delay := l.backoff.NextAtLeast(hint)
	l.setState(StateBackoff)
	metrics.IncPollFailure()
	metrics.SetBackoff(delay)
	l.log.Warn().Err(cause).Dur("delay", delay).Msg("fetch updates failed; backing off")

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		l.setState(StatePolling)
		return true
	}
}

// process is the per-event unit of work: rate limit, dispatch, deliver.
func (l *PollLoop) process(ctx context.Context, ev model.InboundEvent) error {
	ctx = logging.WithTraceID(ctx, uuid.NewString())
	ctx = logging.WithTgID(ctx, ev.SenderID)
	metrics.IncUpdate(string(ev.Kind))

	if l.opts.Limiter != nil {
		allowed, err := l.opts.Limiter.Allow(ctx, ev.SenderID, limiterAction(ev))
		if err != nil {
			logging.With(ctx, l.log).Warn().Err(err).Msg("rate limiter unavailable; serving anyway")
		} else if !allowed {
			metrics.IncRateLimitTriggered()
			return l.deliver(ctx, model.DeliveryRequest{
				ID:       ulid.Make().String(),
				ChatID:   ev.ChatID,
				SenderID: ev.SenderID,
				Command:  "throttled",
				Template: l.opts.ThrottledReply,
			})
		}
	}

	return l.deliver(ctx, l.bot.Dispatcher.Handle(ctx, ev))
}

func (l *PollLoop) deliver(ctx context.Context, req model.DeliveryRequest) error {
	sendCtx, cancel := context.WithTimeout(ctx, l.opts.SendTimeout)
	defer cancel()

	var err error
	kind := "text"
	if req.Template.HasMedia() {
		kind = "media"
		err = l.bot.Transport.SendMedia(sendCtx, req.ChatID, req.Template)
	} else {
		err = l.bot.Transport.SendMessage(sendCtx, req.ChatID, req.Template)
	}
	if err != nil {
		metrics.IncSendFailure(kind)
		return fmt.Errorf("deliver %s (%s) to chat %d: %w", req.ID, req.Command, req.ChatID, err)
	}
	logging.With(ctx, l.log).Debug().Str("delivery_id", req.ID).Str("command", req.Command).Str("kind", kind).Msg("reply delivered")
	return nil
}

func limiterAction(ev model.InboundEvent) string {
	if cmd := ev.Command(); cmd != "" {
		return "/" + cmd
	}
	return string(ev.Kind)
}
