package telegram

import "telegram-game-launcher/internal/domain/model"

// The library's InlineKeyboardButton predates web apps, so the reply markup
// is serialized from these types instead.
type inlineKeyboardMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

type webAppInfo struct {
	URL string `json:"url"`
}

type inlineKeyboardButton struct {
	Text              string      `json:"text"`
	URL               string      `json:"url,omitempty"`
	WebApp            *webAppInfo `json:"web_app,omitempty"`
	SwitchInlineQuery *string     `json:"switch_inline_query,omitempty"`
}

// toMarkup converts a layout to reply markup. It returns a nil interface
// when there is nothing to render so the request carries no reply_markup.
func toMarkup(kb model.KeyboardLayout) interface{} {
	if kb.Buttons() == 0 {
		return nil
	}
	rows := make([][]inlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		if len(row) == 0 {
			continue
		}
		out := make([]inlineKeyboardButton, 0, len(row))
		for _, b := range row {
			btn := inlineKeyboardButton{Text: b.Label}
			switch {
			case b.WebAppURL != "":
				btn.WebApp = &webAppInfo{URL: b.WebAppURL}
			case b.ShareQuery != nil:
				q := *b.ShareQuery
				btn.SwitchInlineQuery = &q
			default:
				btn.URL = b.LinkURL
			}
			out = append(out, btn)
		}
		rows = append(rows, out)
	}
	return inlineKeyboardMarkup{InlineKeyboard: rows}
}
