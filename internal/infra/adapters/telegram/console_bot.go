package telegram

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-game-launcher/internal/domain/model"
	"telegram-game-launcher/internal/domain/ports/adapter"
)

var _ adapter.TelegramTransport = (*ConsoleBotAdapter)(nil)

// ConsoleChatID is the chat and sender id of every console event.
const ConsoleChatID int64 = 1

// ConsoleBotAdapter is a local transport: each input line is a message and
// replies are printed. It needs no bot token.
type ConsoleBotAdapter struct {
	in    io.Reader
	lines chan string
	once  sync.Once
	seq   int

	mu  sync.Mutex
	out io.Writer
	log *zerolog.Logger
}

func NewConsoleBotAdapter(in io.Reader, out io.Writer, logger *zerolog.Logger) *ConsoleBotAdapter {
	l := logger.With().Str("component", "ConsoleTransport").Logger()
	return &ConsoleBotAdapter{in: in, out: out, lines: make(chan string, 16), log: &l}
}

func (c *ConsoleBotAdapter) start() {
	c.once.Do(func() {
		lines := c.lines
		go func() {
			sc := bufio.NewScanner(c.in)
			for sc.Scan() {
				if line := strings.TrimSpace(sc.Text()); line != "" {
					lines <- line
				}
			}
			close(lines)
		}()
	})
}

// FetchUpdates waits up to timeout for the first line, then takes whatever
// else is already buffered.
func (c *ConsoleBotAdapter) FetchUpdates(ctx context.Context, timeout time.Duration) ([]model.InboundEvent, error) {
	c.start()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var events []model.InboundEvent
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case line, ok := <-c.lines:
		if !ok {
			// input exhausted; behave like an idle long poll
			c.lines = nil
			return nil, nil
		}
		events = append(events, c.event(line))
	}
	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				c.lines = nil
				return events, nil
			}
			events = append(events, c.event(line))
		default:
			return events, nil
		}
	}
}

func (c *ConsoleBotAdapter) event(line string) model.InboundEvent {
	c.seq++
	ev := model.NewMessageEvent(ConsoleChatID, ConsoleChatID, line)
	ev.UpdateID = c.seq
	ev.FirstName = "console"
	return ev
}

func (c *ConsoleBotAdapter) SendMessage(ctx context.Context, chatID int64, tpl model.ResponseTemplate) error {
	return c.print(ctx, chatID, tpl.Text, tpl.Keyboard)
}

func (c *ConsoleBotAdapter) SendMedia(ctx context.Context, chatID int64, tpl model.ResponseTemplate) error {
	ref := ""
	if tpl.Media != nil {
		ref = tpl.Media.URL + tpl.Media.FileID
	}
	return c.print(ctx, chatID, fmt.Sprintf("[photo %s]\n%s", ref, tpl.Text), tpl.Keyboard)
}

func (c *ConsoleBotAdapter) PublishCommands(_ context.Context, cmds []adapter.CommandInfo) error {
	c.log.Info().Int("count", len(cmds)).Msg("command menu published")
	return nil
}

// Commit is a no-op; console input is never replayed.
func (c *ConsoleBotAdapter) Commit(context.Context, int) error { return nil }

func (c *ConsoleBotAdapter) print(ctx context.Context, chatID int64, text string, kb model.KeyboardLayout) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "--> chat %d\n%s\n", chatID, text)
	for _, row := range kb {
		cells := make([]string, 0, len(row))
		for _, btn := range row {
			cells = append(cells, describeButton(btn))
		}
		fmt.Fprintf(&b, "  %s\n", strings.Join(cells, " | "))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.out, b.String())
	return err
}

func describeButton(btn model.ButtonSpec) string {
	switch {
	case btn.WebAppURL != "":
		return fmt.Sprintf("[%s -> app %s]", btn.Label, btn.WebAppURL)
	case btn.ShareQuery != nil:
		return fmt.Sprintf("[%s -> share %q]", btn.Label, *btn.ShareQuery)
	default:
		return fmt.Sprintf("[%s -> %s]", btn.Label, btn.LinkURL)
	}
}
