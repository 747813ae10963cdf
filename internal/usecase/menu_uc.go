package usecase

import (
	"fmt"
	"html"

	"telegram-game-launcher/internal/config"
	"telegram-game-launcher/internal/domain/model"
)

// Translator resolves user-facing copy by key.
type Translator interface {
	T(key string, args ...interface{}) string
}

// LaunchSigner binds a game URL to the Telegram user opening it.
type LaunchSigner interface {
	Sign(baseURL string, senderID int64) (string, error)
}

// MenuUseCase holds the built-in command handlers. It is immutable after
// construction, so its handlers are safe to call from many workers.
type MenuUseCase struct {
	cfg    config.MenuConfig
	tr     Translator
	signer LaunchSigner
}

// NewMenuUseCase constructs a MenuUseCase. signer may be nil, in which case
// launch URLs are used as configured.
func NewMenuUseCase(cfg config.MenuConfig, tr Translator, signer LaunchSigner) *MenuUseCase {
	return &MenuUseCase{cfg: cfg, tr: tr, signer: signer}
}

func (uc *MenuUseCase) launchURL(raw string, senderID int64) (string, error) {
	if uc.signer == nil {
		return raw, nil
	}
	signed, err := uc.signer.Sign(raw, senderID)
	if err != nil {
		return "", fmt.Errorf("launch url: %w", err)
	}
	return signed, nil
}

// Start builds the main menu: play, invite and (when configured) stats rows.
func (uc *MenuUseCase) Start(ev model.InboundEvent) (model.ResponseTemplate, error) {
	play, err := uc.launchURL(uc.cfg.GameURL, ev.SenderID)
	if err != nil {
		return model.ResponseTemplate{}, err
	}
	share := uc.cfg.ShareQuery
	if share == "" {
		share = uc.tr.T("share_query")
	}

	rows := [][]model.ButtonSpec{
		{model.WebAppButton(uc.tr.T("button_play"), play)},
		{model.ShareButton(uc.tr.T("button_invite"), share)},
	}
	if uc.cfg.StatsURL != "" {
		rows = append(rows, []model.ButtonSpec{model.LinkButton(uc.tr.T("button_stats"), uc.cfg.StatsURL)})
	}
	kb, err := model.BuildKeyboard(rows)
	if err != nil {
		return model.ResponseTemplate{}, err
	}

	text := uc.tr.T("start_text_anonymous")
	if name := ev.DisplayName(); name != "" {
		text = uc.tr.T("start_text", html.EscapeString(name))
	}
	if uc.cfg.PhotoURL != "" {
		return model.NewMediaResponse(model.MediaRef{URL: uc.cfg.PhotoURL}, text, model.ParseModeHTML, kb), nil
	}
	return model.NewTextResponse(text, model.ParseModeHTML, kb), nil
}

func (uc *MenuUseCase) Help(model.InboundEvent) (model.ResponseTemplate, error) {
	return model.NewTextResponse(uc.tr.T("help_text"), model.ParseModePlain, nil), nil
}

// Fallback answers free text, callbacks and unknown commands.
func (uc *MenuUseCase) Fallback(model.InboundEvent) (model.ResponseTemplate, error) {
	return model.NewTextResponse(uc.tr.T("fallback_text"), model.ParseModePlain, nil), nil
}

// Throttled is the reply sent instead of dispatching when a user is rate limited.
func (uc *MenuUseCase) Throttled() model.ResponseTemplate {
	return model.NewTextResponse(uc.tr.T("throttled_text"), model.ParseModePlain, nil)
}

// ErrorReply is the localized generic error reply.
func (uc *MenuUseCase) ErrorReply() model.ResponseTemplate {
	return model.NewTextResponse(uc.tr.T("error_generic"), model.ParseModePlain, nil)
}

// Static returns a handler for a command declared in configuration. The
// keyboard is built per call, so a bad button surfaces as a handler error.
func (uc *MenuUseCase) Static(cc config.CommandConfig) func(model.InboundEvent) (model.ResponseTemplate, error) {
	return func(ev model.InboundEvent) (model.ResponseTemplate, error) {
		rows := make([][]model.ButtonSpec, 0, len(cc.Buttons))
		for _, row := range cc.Buttons {
			specs := make([]model.ButtonSpec, 0, len(row))
			for _, b := range row {
				spec := model.ButtonSpec{Label: b.Label, ShareQuery: b.Share, LinkURL: b.Link}
				if b.WebApp != "" {
					u, err := uc.launchURL(b.WebApp, ev.SenderID)
					if err != nil {
						return model.ResponseTemplate{}, err
					}
					spec.WebAppURL = u
				}
				specs = append(specs, spec)
			}
			rows = append(rows, specs)
		}
		kb, err := model.BuildKeyboard(rows)
		if err != nil {
			return model.ResponseTemplate{}, fmt.Errorf("command %q: %w", cc.Name, err)
		}

		mode := model.ParseMode(cc.ParseMode)
		if cc.Photo != "" {
			return model.NewMediaResponse(model.MediaRef{URL: cc.Photo}, cc.Text, mode, kb), nil
		}
		return model.NewTextResponse(cc.Text, mode, kb), nil
	}
}
