package model

import (
	"fmt"
	"strings"

	"telegram-game-launcher/internal/domain"
)

// ButtonSpec is one inline keyboard button. Exactly one action must be set:
// WebAppURL (open the web app in the client), ShareQuery (prompt the user to
// share an inline query in another chat) or LinkURL (plain link).
type ButtonSpec struct {
	Label      string
	WebAppURL  string
	ShareQuery *string
	LinkURL    string
}

// KeyboardLayout is rows of buttons; order is the on-screen order.
type KeyboardLayout [][]ButtonSpec

func WebAppButton(label, url string) ButtonSpec {
	return ButtonSpec{Label: label, WebAppURL: url}
}

func ShareButton(label, query string) ButtonSpec {
	q := query
	return ButtonSpec{Label: label, ShareQuery: &q}
}

func LinkButton(label, url string) ButtonSpec {
	return ButtonSpec{Label: label, LinkURL: url}
}

// actions counts how many action variants are set.
func (b ButtonSpec) actions() int {
	n := 0
	if b.WebAppURL != "" {
		n++
	}
	if b.ShareQuery != nil {
		n++
	}
	if b.LinkURL != "" {
		n++
	}
	return n
}

// Validate reports ErrInvalidButtonSpec for an empty label or when the
// button does not carry exactly one action.
func (b ButtonSpec) Validate() error {
	if strings.TrimSpace(b.Label) == "" {
		return fmt.Errorf("%w: empty label", domain.ErrInvalidButtonSpec)
	}
	if n := b.actions(); n != 1 {
		return fmt.Errorf("%w: button %q has %d actions, want exactly 1", domain.ErrInvalidButtonSpec, b.Label, n)
	}
	return nil
}

// BuildKeyboard validates every button and returns a copy of rows with row
// and button order preserved exactly. Empty rows are kept as given.
func BuildKeyboard(rows [][]ButtonSpec) (KeyboardLayout, error) {
	layout := make(KeyboardLayout, len(rows))
	for i, row := range rows {
		out := make([]ButtonSpec, len(row))
		for j, btn := range row {
			if err := btn.Validate(); err != nil {
				return nil, fmt.Errorf("row %d button %d: %w", i, j, err)
			}
			if btn.ShareQuery != nil {
				q := *btn.ShareQuery
				btn.ShareQuery = &q
			}
			out[j] = btn
		}
		layout[i] = out
	}
	return layout, nil
}

// Buttons returns the total number of buttons.
func (k KeyboardLayout) Buttons() int {
	n := 0
	for _, row := range k {
		n += len(row)
	}
	return n
}
