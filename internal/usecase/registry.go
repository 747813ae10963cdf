package usecase

import (
	"fmt"

	"telegram-game-launcher/internal/application"
	"telegram-game-launcher/internal/config"
)

// BuildRegistry registers the built-in commands, then the configured ones,
// then the fallback. A configured command that reuses a built-in name fails
// with ErrDuplicateCommand.
func BuildRegistry(menu *MenuUseCase, commands []config.CommandConfig) (*application.CommandRegistry, error) {
	reg := application.NewCommandRegistry()

	builtins := []application.Command{
		{Name: "start", Description: menu.tr.T("cmd_start_desc"), Handler: menu.Start},
		{Name: "help", Description: menu.tr.T("cmd_help_desc"), Handler: menu.Help},
	}
	for _, cmd := range builtins {
		if err := reg.Register(cmd); err != nil {
			return nil, err
		}
	}
	for i, cc := range commands {
		cmd := application.Command{Name: cc.Name, Description: cc.Description, Handler: menu.Static(cc)}
		if err := reg.Register(cmd); err != nil {
			return nil, fmt.Errorf("commands[%d]: %w", i, err)
		}
	}
	if err := reg.SetFallback(menu.Fallback); err != nil {
		return nil, err
	}
	return reg, nil
}
