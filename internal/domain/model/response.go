package model

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"telegram-game-launcher/internal/domain"
)

// ParseMode is the formatting mode of a reply body.
type ParseMode string

const (
	ParseModePlain      ParseMode = ""
	ParseModeHTML       ParseMode = "HTML"
	ParseModeMarkdownV2 ParseMode = "MarkdownV2"
)

// Platform limits, in UTF-16 code units as the Bot API counts them.
const (
	MaxTextLength    = 4096
	MaxCaptionLength = 1024
)

// MediaRef points at a photo either by public URL or by platform file id.
type MediaRef struct {
	URL    string
	FileID string
}

// ResponseTemplate describes one reply. When Media is set the reply is a
// photo and Text is its caption; otherwise it is a plain text message.
type ResponseTemplate struct {
	Text      string
	ParseMode ParseMode
	Media     *MediaRef
	Keyboard  KeyboardLayout
}

func NewTextResponse(text string, mode ParseMode, kb KeyboardLayout) ResponseTemplate {
	return ResponseTemplate{Text: text, ParseMode: mode, Keyboard: kb}
}

func NewMediaResponse(media MediaRef, caption string, mode ParseMode, kb KeyboardLayout) ResponseTemplate {
	m := media
	return ResponseTemplate{Text: caption, ParseMode: mode, Media: &m, Keyboard: kb}
}

func (t ResponseTemplate) HasMedia() bool    { return t.Media != nil }
func (t ResponseTemplate) HasKeyboard() bool { return t.Keyboard.Buttons() > 0 }

// Validate checks the template against platform constraints.
func (t ResponseTemplate) Validate() error {
	if t.HasMedia() {
		hasURL, hasID := t.Media.URL != "", t.Media.FileID != ""
		if hasURL == hasID {
			return fmt.Errorf("%w: media needs exactly one of url or file id", domain.ErrInvalidResponse)
		}
		if TextLength(t.Text) > MaxCaptionLength {
			return fmt.Errorf("%w: caption exceeds %d characters", domain.ErrInvalidResponse, MaxCaptionLength)
		}
	} else {
		if strings.TrimSpace(t.Text) == "" {
			return fmt.Errorf("%w: empty text", domain.ErrInvalidResponse)
		}
		if TextLength(t.Text) > MaxTextLength {
			return fmt.Errorf("%w: text exceeds %d characters", domain.ErrInvalidResponse, MaxTextLength)
		}
	}
	for i, row := range t.Keyboard {
		for j, btn := range row {
			if err := btn.Validate(); err != nil {
				return fmt.Errorf("row %d button %d: %w", i, j, err)
			}
		}
	}
	return nil
}

// TextLength measures s the way the platform applies its length limits:
// characters outside the BMP, such as most emoji, count twice.
func TextLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// GenericErrorTemplate is what a user sees when their request could not be
// served. It never carries error details.
func GenericErrorTemplate() ResponseTemplate {
	return NewTextResponse("Something went wrong on our side. Please try again in a moment.", ParseModePlain, nil)
}

// DeliveryRequest is a template addressed to the chat it answers.
type DeliveryRequest struct {
	ID       string
	ChatID   int64
	SenderID int64
	Command  string
	Template ResponseTemplate
}
