// File: internal/domain/ports/adapter/telegram.go
package adapter

import (
	"context"
	"time"

	"telegram-game-launcher/internal/domain/model"
)

// CommandInfo is one entry of the chat client's command menu.
type CommandInfo struct {
	Name        string
	Description string
}

// TelegramTransport is everything the bot core needs from the chat platform.
type TelegramTransport interface {
	// FetchUpdates blocks for at most timeout waiting for the next batch.
	FetchUpdates(ctx context.Context, timeout time.Duration) ([]model.InboundEvent, error)
	SendMessage(ctx context.Context, chatID int64, tpl model.ResponseTemplate) error
	SendMedia(ctx context.Context, chatID int64, tpl model.ResponseTemplate) error
	PublishCommands(ctx context.Context, cmds []CommandInfo) error
	// Commit confirms every update with an id below offset so the platform
	// does not deliver it again after a restart.
	Commit(ctx context.Context, offset int) error
}

// RateLimiter decides whether a sender may be served right now.
type RateLimiter interface {
	Allow(ctx context.Context, senderID int64, action string) (bool, error)
}
