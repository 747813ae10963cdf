//go:build !integration

package application_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-game-launcher/internal/application"
	"telegram-game-launcher/internal/domain/model"
	"telegram-game-launcher/internal/domain/ports/adapter"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type fetchResult struct {
	events []model.InboundEvent
	err    error
}

type sentMessage struct {
	ChatID   int64
	Template model.ResponseTemplate
	Media    bool
}

// MockTransport replays scripted fetch results, then blocks until ctx ends.
type MockTransport struct {
	mu        sync.Mutex
	script    []fetchResult
	fetches   int
	Sent      []sentMessage
	Published []adapter.CommandInfo
	Commits   []int
	SendErr   error
	// SendGate, when set, holds every send until it is closed.
	SendGate chan struct{}
	waiting  int
}

func NewMockTransport(script ...fetchResult) *MockTransport {
	return &MockTransport{script: script}
}

func (m *MockTransport) FetchUpdates(ctx context.Context, _ time.Duration) ([]model.InboundEvent, error) {
	m.mu.Lock()
	m.fetches++
	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		m.mu.Unlock()
		return next.events, next.err
	}
	m.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (m *MockTransport) SendMessage(_ context.Context, chatID int64, tpl model.ResponseTemplate) error {
	return m.record(chatID, tpl, false)
}

func (m *MockTransport) SendMedia(_ context.Context, chatID int64, tpl model.ResponseTemplate) error {
	return m.record(chatID, tpl, true)
}

func (m *MockTransport) record(chatID int64, tpl model.ResponseTemplate, media bool) error {
	if m.SendGate != nil {
		m.mu.Lock()
		m.waiting++
		m.mu.Unlock()
		<-m.SendGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return m.SendErr
	}
	m.Sent = append(m.Sent, sentMessage{ChatID: chatID, Template: tpl, Media: media})
	return nil
}

func (m *MockTransport) PublishCommands(_ context.Context, cmds []adapter.CommandInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, cmds...)
	return nil
}

func (m *MockTransport) Commit(_ context.Context, offset int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commits = append(m.Commits, offset)
	return nil
}

func (m *MockTransport) CommittedOffsets() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.Commits...)
}

// Waiting is the number of sends that have reached SendGate.
func (m *MockTransport) Waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waiting
}

func (m *MockTransport) SentMessages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.Sent...)
}

func (m *MockTransport) Fetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

// MockLimiter answers Allow with fixed values and counts calls.
type MockLimiter struct {
	mu      sync.Mutex
	Allowed bool
	Err     error
	Calls   []string
}

func (m *MockLimiter) Allow(_ context.Context, _ int64, action string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, action)
	return m.Allowed, m.Err
}

func textHandler(text string) application.HandlerFunc {
	return func(model.InboundEvent) (model.ResponseTemplate, error) {
		return model.NewTextResponse(text, model.ParseModePlain, nil), nil
	}
}

// newTestRegistry has "start" and "photo" commands and a fallback.
func newTestRegistry(t *testing.T) *application.CommandRegistry {
	t.Helper()
	reg := application.NewCommandRegistry()
	must := func(err error) {
		if err != nil {
			t.Fatalf("registry setup: %v", err)
		}
	}
	must(reg.Register(application.Command{Name: "start", Description: "Open the menu", Handler: textHandler("menu")}))
	must(reg.Register(application.Command{Name: "photo", Handler: func(model.InboundEvent) (model.ResponseTemplate, error) {
		return model.NewMediaResponse(model.MediaRef{URL: "https://cdn.example.com/p.png"}, "caption", model.ParseModePlain, nil), nil
	}}))
	must(reg.SetFallback(textHandler("press /start")))
	return reg
}
