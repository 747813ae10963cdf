//go:build !integration

package usecase_test

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"telegram-game-launcher/internal/infra/i18n"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func newTestTranslator() *i18n.Translator {
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		panic(err)
	}
	return tr
}

// MockSigner appends the sender id so tests can see the url was signed.
type MockSigner struct {
	Err error
}

func (m *MockSigner) Sign(baseURL string, senderID int64) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return fmt.Sprintf("%s?tg=%d", baseURL, senderID), nil
}
