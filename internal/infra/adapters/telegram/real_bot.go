package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"telegram-game-launcher/internal/config"
	"telegram-game-launcher/internal/domain"
	"telegram-game-launcher/internal/domain/model"
	"telegram-game-launcher/internal/domain/ports/adapter"
)

var _ adapter.TelegramTransport = (*RealTelegramBotAdapter)(nil)

var allowedUpdates = []string{"message", "callback_query"}

// RealTelegramBotAdapter talks to the Bot API with long polling. FetchUpdates
// keeps the update offset and must be called from a single goroutine; the
// send methods are safe for concurrent use.
type RealTelegramBotAdapter struct {
	bot     *tgbotapi.BotAPI
	limiter *rate.Limiter
	log     *zerolog.Logger
	offset  int
}

func NewRealTelegramBotAdapter(cfg *config.BotConfig, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: empty bot token", domain.ErrInvalidArgument)
	}

	var (
		bot *tgbotapi.BotAPI
		err error
	)
	if cfg.APIEndpoint != "" {
		bot, err = tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Token, cfg.APIEndpoint)
	} else {
		bot, err = tgbotapi.NewBotAPI(cfg.Token)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", domain.ErrTransport, err)
	}
	bot.Debug = cfg.Debug
	_ = tgbotapi.SetLogger(botLogger{logger})

	return newAdapter(bot, cfg.SendRate, logger), nil
}

func newAdapter(bot *tgbotapi.BotAPI, sendRate float64, logger *zerolog.Logger) *RealTelegramBotAdapter {
	limit := rate.Inf
	if sendRate > 0 {
		limit = rate.Limit(sendRate)
	}
	l := logger.With().Str("component", "TelegramTransport").Str("bot", bot.Self.UserName).Logger()
	return &RealTelegramBotAdapter{
		bot:     bot,
		limiter: rate.NewLimiter(limit, 1),
		log:     &l,
	}
}

// FetchUpdates long-polls for up to timeout. On ctx cancellation it returns
// at once without advancing the offset, so anything fetched in flight is
// delivered again by the next call.
func (r *RealTelegramBotAdapter) FetchUpdates(ctx context.Context, timeout time.Duration) ([]model.InboundEvent, error) {
	u := tgbotapi.NewUpdate(r.offset)
	u.Timeout = int(timeout / time.Second)
	u.AllowedUpdates = allowedUpdates

	var updates []tgbotapi.Update
	err := r.call(ctx, func() error {
		var err error
		updates, err = r.bot.GetUpdates(u)
		return err
	})
	if err != nil {
		return nil, r.wrap(ctx, "getUpdates", err)
	}

	events := make([]model.InboundEvent, 0, len(updates))
	for _, up := range updates {
		if up.UpdateID >= r.offset {
			r.offset = up.UpdateID + 1
		}
		ev, ok := toEvent(up, r.bot.Self.UserName)
		if !ok {
			continue
		}
		if ev.Kind == model.EventCallback {
			r.ackCallback(ctx, ev.CallbackID)
		}
		events = append(events, ev)
	}
	return events, nil
}

// Commit confirms updates below offset. The Bot API only learns an update
// was taken from the offset of a later getUpdates, so this issues one that
// returns at once; whatever it returns stays unconfirmed.
func (r *RealTelegramBotAdapter) Commit(ctx context.Context, offset int) error {
	if offset <= 0 {
		return nil
	}
	u := tgbotapi.UpdateConfig{Offset: offset, Limit: 1, AllowedUpdates: allowedUpdates}
	err := r.call(ctx, func() error {
		_, err := r.bot.GetUpdates(u)
		return err
	})
	if err != nil {
		return r.wrap(ctx, "getUpdates", err)
	}
	return nil
}

// toEvent maps an update to an inbound event. Updates other than messages
// and callback queries are skipped.
func toEvent(up tgbotapi.Update, botName string) (model.InboundEvent, bool) {
	switch {
	case up.Message != nil && up.Message.Chat != nil:
		msg := up.Message
		ev := model.NewMessageEvent(msg.Chat.ID, 0, msg.Text)
		if msg.IsCommand() {
			ev.Kind = model.EventCommand
		}
		if msg.From != nil {
			ev.SenderID = msg.From.ID
			ev.Username = msg.From.UserName
			ev.FirstName = msg.From.FirstName
			ev.LanguageCode = msg.From.LanguageCode
		}
		ev.UpdateID = up.UpdateID
		ev.BotUsername = botName
		return ev, true

	case up.CallbackQuery != nil && up.CallbackQuery.From != nil:
		q := up.CallbackQuery
		chatID := q.From.ID
		if q.Message != nil && q.Message.Chat != nil {
			chatID = q.Message.Chat.ID
		}
		return model.InboundEvent{
			UpdateID:     up.UpdateID,
			ChatID:       chatID,
			SenderID:     q.From.ID,
			Username:     q.From.UserName,
			FirstName:    q.From.FirstName,
			LanguageCode: q.From.LanguageCode,
			Text:         q.Data,
			Kind:         model.EventCallback,
			CallbackID:   q.ID,
			BotUsername:  botName,
		}, true
	}
	return model.InboundEvent{}, false
}

// ackCallback stops the client's loading spinner. Failures are only logged.
func (r *RealTelegramBotAdapter) ackCallback(ctx context.Context, id string) {
	err := r.call(ctx, func() error {
		_, err := r.bot.Request(tgbotapi.NewCallback(id, ""))
		return err
	})
	if err != nil {
		r.log.Debug().Err(err).Str("callback_id", id).Msg("callback ack failed")
	}
}

func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, chatID int64, tpl model.ResponseTemplate) error {
	msg := tgbotapi.NewMessage(chatID, tpl.Text)
	msg.ParseMode = string(tpl.ParseMode)
	if tpl.HasKeyboard() {
		msg.ReplyMarkup = toMarkup(tpl.Keyboard)
	}
	return r.send(ctx, "sendMessage", msg)
}

func (r *RealTelegramBotAdapter) SendMedia(ctx context.Context, chatID int64, tpl model.ResponseTemplate) error {
	if !tpl.HasMedia() {
		return fmt.Errorf("%w: template has no media", domain.ErrInvalidResponse)
	}
	var file tgbotapi.RequestFileData = tgbotapi.FileURL(tpl.Media.URL)
	if tpl.Media.FileID != "" {
		file = tgbotapi.FileID(tpl.Media.FileID)
	}
	photo := tgbotapi.NewPhoto(chatID, file)
	photo.Caption = tpl.Text
	photo.ParseMode = string(tpl.ParseMode)
	if tpl.HasKeyboard() {
		photo.ReplyMarkup = toMarkup(tpl.Keyboard)
	}
	return r.send(ctx, "sendPhoto", photo)
}

func (r *RealTelegramBotAdapter) PublishCommands(ctx context.Context, cmds []adapter.CommandInfo) error {
	botCmds := make([]tgbotapi.BotCommand, 0, len(cmds))
	for _, c := range cmds {
		botCmds = append(botCmds, tgbotapi.BotCommand{Command: c.Name, Description: c.Description})
	}
	err := r.call(ctx, func() error {
		_, err := r.bot.Request(tgbotapi.NewSetMyCommands(botCmds...))
		return err
	})
	if err != nil {
		return r.wrap(ctx, "setMyCommands", err)
	}
	return nil
}

func (r *RealTelegramBotAdapter) send(ctx context.Context, op string, c tgbotapi.Chattable) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrTransport, op, err)
	}
	err := r.call(ctx, func() error {
		_, err := r.bot.Send(c)
		return err
	})
	if err != nil {
		return r.wrap(ctx, op, err)
	}
	return nil
}

// call runs a blocking library request and gives up when ctx is done. The
// library has no context support, so an abandoned request finishes in the
// background.
func (r *RealTelegramBotAdapter) call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// wrap classifies errors: context errors pass through, API flood limits
// become RetryAfterError, everything else is ErrTransport.
func (r *RealTelegramBotAdapter) wrap(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	wrapped := fmt.Errorf("%w: %s: %w", domain.ErrTransport, op, err)
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return &domain.RetryAfterError{After: time.Duration(apiErr.RetryAfter) * time.Second, Err: wrapped}
	}
	return wrapped
}

// botLogger routes the library's debug output through zerolog.
type botLogger struct{ log *zerolog.Logger }

func (b botLogger) Println(v ...interface{}) {
	b.log.Debug().Str("component", "tgbotapi").Msg(fmt.Sprint(v...))
}

func (b botLogger) Printf(format string, v ...interface{}) {
	b.log.Debug().Str("component", "tgbotapi").Msgf(format, v...)
}
