package application

import (
	"context"
	"fmt"
	"time"

	"telegram-game-launcher/internal/domain"
	"telegram-game-launcher/internal/domain/model"
	"telegram-game-launcher/internal/infra/logging"
	"telegram-game-launcher/internal/infra/metrics"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Dispatch outcomes, used as metric labels.
const (
	OutcomeOK        = "ok"
	OutcomeFallback  = "fallback"
	OutcomeError     = "error"
	OutcomeMalformed = "malformed"
)

// Dispatcher routes an event to its handler and wraps the reply for delivery.
type Dispatcher struct {
	registry   *CommandRegistry
	errorReply model.ResponseTemplate
	log        *zerolog.Logger
	dev        bool
}

func NewDispatcher(registry *CommandRegistry, logger *zerolog.Logger, dev bool) (*Dispatcher, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: nil registry", domain.ErrInvalidArgument)
	}
	if _, ok := registry.Fallback(); !ok {
		return nil, domain.ErrNoFallback
	}
	l := logger.With().Str("component", "Dispatcher").Logger()
	return &Dispatcher{registry: registry, errorReply: model.GenericErrorTemplate(), log: &l, dev: dev}, nil
}

// SetErrorReply replaces the generic error reply, e.g. with localized copy.
// Call it before the loop starts.
func (d *Dispatcher) SetErrorReply(tpl model.ResponseTemplate) error {
	if err := tpl.Validate(); err != nil {
		return err
	}
	d.errorReply = tpl
	return nil
}

// Handle never fails: handler errors and panics are logged and replaced by
// the error reply.
func (d *Dispatcher) Handle(ctx context.Context, ev model.InboundEvent) model.DeliveryRequest {
	log := logging.With(ctx, d.log)
	defer logging.TraceDuration(log, "Dispatcher.Handle")()

	cmd, ok := d.registry.Resolve(ev)
	outcome := OutcomeOK
	if !ok {
		cmd, _ = d.registry.Fallback()
		outcome = OutcomeFallback
	}

	start := time.Now()
	tpl, err := d.invoke(cmd, ev)
	if err != nil {
		outcome = OutcomeError
	} else if err = tpl.Validate(); err != nil {
		outcome = OutcomeMalformed
	}
	if err != nil {
		log.Error().Err(err).
			Str("command", cmd.Name).
			Str("kind", string(ev.Kind)).
			Str("text", logging.Redact(ev.Text, d.dev)).
			Msg("handler failed; sending generic error reply")
		tpl = d.errorReply
	}
	metrics.ObserveDispatch(cmd.Name, outcome, time.Since(start))

	return model.DeliveryRequest{
		ID:       ulid.Make().String(),
		ChatID:   ev.ChatID,
		SenderID: ev.SenderID,
		Command:  cmd.Name,
		Template: tpl,
	}
}

func (d *Dispatcher) invoke(cmd Command, ev model.InboundEvent) (tpl model.ResponseTemplate, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %s panicked: %v", domain.ErrHandler, cmd.Name, rec)
		}
	}()
	tpl, err = cmd.Handler(ev)
	if err != nil {
		return model.ResponseTemplate{}, fmt.Errorf("%w: %s: %w", domain.ErrHandler, cmd.Name, err)
	}
	return tpl, nil
}
