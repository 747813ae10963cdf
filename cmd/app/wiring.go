package main

import (
	"fmt"

	"telegram-game-launcher/internal/application"
	"telegram-game-launcher/internal/config"
	"telegram-game-launcher/internal/domain/model"
	"telegram-game-launcher/internal/infra/i18n"
	"telegram-game-launcher/internal/infra/security"
	"telegram-game-launcher/internal/usecase"
)

// buildMenu wires translations, the optional launch signer and the command
// registry. Duplicate command names fail here, before any polling starts.
func buildMenu(cfg *config.Config) (*usecase.MenuUseCase, *application.CommandRegistry, error) {
	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Bot.Language)
	if err != nil {
		return nil, nil, fmt.Errorf("translations: %w", err)
	}

	var signer usecase.LaunchSigner
	if cfg.Menu.SigningSecret != "" {
		s, err := security.NewLaunchSigner(cfg.Menu.SigningSecret, cfg.Menu.Audience)
		if err != nil {
			return nil, nil, err
		}
		signer = s
	}

	menu := usecase.NewMenuUseCase(cfg.Menu, tr, signer)
	reg, err := usecase.BuildRegistry(menu, cfg.Commands)
	if err != nil {
		return nil, nil, fmt.Errorf("command registry: %w", err)
	}
	return menu, reg, nil
}

// dryRun calls a handler once with a sample event and validates the reply.
func dryRun(c application.Command) (model.ResponseTemplate, error) {
	tpl, err := c.Handler(model.NewMessageEvent(1, 1, model.CommandPrefix+c.Name))
	if err != nil {
		return tpl, err
	}
	return tpl, tpl.Validate()
}

// checkCommands fails on the first command whose reply could never be sent.
func checkCommands(reg *application.CommandRegistry) error {
	cmds := reg.Commands()
	if fb, ok := reg.Fallback(); ok {
		cmds = append(cmds, fb)
	}
	for _, c := range cmds {
		if _, err := dryRun(c); err != nil {
			return fmt.Errorf("command %q: %w", c.Name, err)
		}
	}
	return nil
}
