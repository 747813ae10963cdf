package application

import (
	"context"
	"fmt"

	"telegram-game-launcher/internal/domain"
	"telegram-game-launcher/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

// BotContext is the process-wide wiring: one transport, one read-only
// registry and the dispatcher built over it. It is created once at startup
// and passed to whatever needs it.
type BotContext struct {
	Transport  adapter.TelegramTransport
	Registry   *CommandRegistry
	Dispatcher *Dispatcher
	Log        *zerolog.Logger
}

func NewBotContext(transport adapter.TelegramTransport, registry *CommandRegistry, logger *zerolog.Logger, dev bool) (*BotContext, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", domain.ErrInvalidArgument)
	}
	d, err := NewDispatcher(registry, logger, dev)
	if err != nil {
		return nil, err
	}
	return &BotContext{
		Transport:  transport,
		Registry:   registry,
		Dispatcher: d,
		Log:        logger,
	}, nil
}

// PublishMenu pushes the registry's command menu to the chat client. A
// failure here only degrades the client UI, so callers usually log it.
func (b *BotContext) PublishMenu(ctx context.Context) error {
	menu := b.Registry.Menu()
	if len(menu) == 0 {
		return nil
	}
	return b.Transport.PublishCommands(ctx, menu)
}
