package model

import "strings"

// EventKind tells the dispatcher how to interpret an inbound event.
type EventKind string

const (
	EventCommand  EventKind = "command"
	EventText     EventKind = "text"
	EventCallback EventKind = "callback"
)

// CommandPrefix marks a bot command in message text.
const CommandPrefix = "/"

// InboundEvent is one received interaction, created by the transport per
// update and consumed once by the dispatcher.
type InboundEvent struct {
	UpdateID     int
	ChatID       int64
	SenderID     int64
	Username     string
	FirstName    string
	LanguageCode string
	Text         string
	Kind         EventKind
	// CallbackID is set for callback events only.
	CallbackID string
	// BotUsername is the receiving bot's username, when the transport knows
	// it. Commands suffixed with another bot's name do not resolve.
	BotUsername string
}

// DisplayName is how the sender is greeted: first name, else username.
func (e InboundEvent) DisplayName() string {
	if e.FirstName != "" {
		return e.FirstName
	}
	return e.Username
}

// ClassifyText infers the event kind of a plain message.
func ClassifyText(text string) EventKind {
	if strings.HasPrefix(strings.TrimSpace(text), CommandPrefix) {
		return EventCommand
	}
	return EventText
}

// NewMessageEvent builds a message event from chat and sender ids, inferring the kind from text.
func NewMessageEvent(chatID, senderID int64, text string) InboundEvent {
	return InboundEvent{
		ChatID:   chatID,
		SenderID: senderID,
		Text:     text,
		Kind:     ClassifyText(text),
	}
}

// Command returns the bare command token of a command event, or "" when the
// event is not a command. "/start@my_bot payload" yields "start" unless
// BotUsername names a different bot. Matching is case-sensitive, so the
// token is returned verbatim.
func (e InboundEvent) Command() string {
	if e.Kind != EventCommand {
		return ""
	}
	text := strings.TrimSpace(e.Text)
	if !strings.HasPrefix(text, CommandPrefix) {
		return ""
	}
	token := strings.TrimPrefix(text, CommandPrefix)
	if i := strings.IndexAny(token, " \t\n"); i >= 0 {
		token = token[:i]
	}
	if at := strings.Index(token, "@"); at >= 0 {
		// usernames are case-insensitive on the platform
		if e.BotUsername != "" && !strings.EqualFold(token[at+1:], e.BotUsername) {
			return ""
		}
		token = token[:at]
	}
	return token
}
