package application

import (
	"fmt"
	"strings"

	"telegram-game-launcher/internal/domain"
	"telegram-game-launcher/internal/domain/model"
	"telegram-game-launcher/internal/domain/ports/adapter"
)

// HandlerFunc turns an inbound event into a reply. Handlers must be pure:
// no shared mutable state and no transport calls.
type HandlerFunc func(ev model.InboundEvent) (model.ResponseTemplate, error)

// Command binds a command name to its handler.
type Command struct {
	Name        string
	Description string
	Handler     HandlerFunc
}

// FallbackName labels the fallback entry in logs and metrics.
const FallbackName = "fallback"

// CommandRegistry maps command names to handlers. It is filled once at
// startup and only read afterwards, so it needs no locking.
type CommandRegistry struct {
	commands map[string]Command
	order    []string
	fallback *Command
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{commands: make(map[string]Command)}
}

// Register adds a command. Names are unique and case-sensitive.
func (r *CommandRegistry) Register(cmd Command) error {
	name := strings.TrimPrefix(strings.TrimSpace(cmd.Name), model.CommandPrefix)
	if name == "" || strings.ContainsAny(name, " \t\n@") {
		return fmt.Errorf("%w: command name %q", domain.ErrInvalidArgument, cmd.Name)
	}
	if cmd.Handler == nil {
		return fmt.Errorf("%w: command %q has no handler", domain.ErrInvalidArgument, name)
	}
	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateCommand, name)
	}
	cmd.Name = name
	r.commands[name] = cmd
	r.order = append(r.order, name)
	return nil
}

// SetFallback installs the handler used for everything that is not a
// registered command.
func (r *CommandRegistry) SetFallback(h HandlerFunc) error {
	if h == nil {
		return fmt.Errorf("%w: nil fallback handler", domain.ErrInvalidArgument)
	}
	if r.fallback != nil {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateCommand, FallbackName)
	}
	r.fallback = &Command{Name: FallbackName, Handler: h}
	return nil
}

// Resolve returns the command named by a command event. Free text,
// callbacks and unknown names resolve to nothing.
func (r *CommandRegistry) Resolve(ev model.InboundEvent) (Command, bool) {
	name := ev.Command()
	if name == "" {
		return Command{}, false
	}
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Fallback returns the fallback entry, if one was set.
func (r *CommandRegistry) Fallback() (Command, bool) {
	if r.fallback == nil {
		return Command{}, false
	}
	return *r.fallback, true
}

// Commands lists registered commands in registration order.
func (r *CommandRegistry) Commands() []Command {
	out := make([]Command, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.commands[name])
	}
	return out
}

// Menu returns the commands that carry a description, for the client menu.
func (r *CommandRegistry) Menu() []adapter.CommandInfo {
	var out []adapter.CommandInfo
	for _, cmd := range r.Commands() {
		if cmd.Description == "" {
			continue
		}
		out = append(out, adapter.CommandInfo{Name: cmd.Name, Description: cmd.Description})
	}
	return out
}
