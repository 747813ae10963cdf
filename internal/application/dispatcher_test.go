//go:build !integration

package application_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"telegram-game-launcher/internal/application"
	"telegram-game-launcher/internal/domain"
	"telegram-game-launcher/internal/domain/model"
)

func TestNewDispatcher(t *testing.T) {
	t.Run("requires a fallback", func(t *testing.T) {
		reg := application.NewCommandRegistry()
		if _, err := application.NewDispatcher(reg, newTestLogger(), false); !errors.Is(err, domain.ErrNoFallback) {
			t.Errorf("expected ErrNoFallback, got %v", err)
		}
	})

	t.Run("requires a registry", func(t *testing.T) {
		if _, err := application.NewDispatcher(nil, newTestLogger(), false); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestDispatcher_Handle(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	mustRegister := func(name string, h application.HandlerFunc) {
		if err := reg.Register(application.Command{Name: name, Handler: h}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	mustRegister("fail", func(model.InboundEvent) (model.ResponseTemplate, error) {
		return model.ResponseTemplate{}, errors.New("db password is hunter2")
	})
	mustRegister("panic", func(model.InboundEvent) (model.ResponseTemplate, error) {
		panic("boom")
	})
	mustRegister("empty", func(model.InboundEvent) (model.ResponseTemplate, error) {
		return model.ResponseTemplate{}, nil
	})
	mustRegister("badbutton", func(model.InboundEvent) (model.ResponseTemplate, error) {
		_, err := model.BuildKeyboard([][]model.ButtonSpec{{{Label: "two", WebAppURL: "https://a", LinkURL: "https://b"}}})
		return model.ResponseTemplate{}, err
	})

	d, err := application.NewDispatcher(reg, newTestLogger(), false)
	if err != nil {
		t.Fatalf("NewDispatcher failed: %v", err)
	}

	t.Run("should route a registered command", func(t *testing.T) {
		req := d.Handle(ctx, model.NewMessageEvent(10, 20, "/start"))
		if req.Command != "start" || req.Template.Text != "menu" {
			t.Errorf("unexpected request: %+v", req)
		}
		if req.ChatID != 10 || req.SenderID != 20 {
			t.Errorf("request not addressed to the event's chat: %+v", req)
		}
		if req.ID == "" {
			t.Error("expected a delivery id")
		}
	})

	t.Run("unmatched events go to the fallback", func(t *testing.T) {
		for _, text := range []string{"hello", "/unknown", ""} {
			req := d.Handle(ctx, model.NewMessageEvent(1, 1, text))
			if req.Command != application.FallbackName || req.Template.Text != "press /start" {
				t.Errorf("%q: expected fallback, got %+v", text, req)
			}
		}
	})

	t.Run("commands addressed to another bot are not routed", func(t *testing.T) {
		ev := model.NewMessageEvent(1, 1, "/start@SomeOtherBot")
		ev.BotUsername = "level_devil_bot"
		if req := d.Handle(ctx, ev); req.Command != application.FallbackName {
			t.Errorf("expected fallback, got %+v", req)
		}

		ev.Text = "/start@Level_Devil_Bot"
		if req := d.Handle(ctx, ev); req.Command != "start" {
			t.Errorf("expected start, got %+v", req)
		}
	})

	t.Run("should contain handler failures", func(t *testing.T) {
		for _, cmd := range []string{"/fail", "/panic", "/empty", "/badbutton"} {
			req := d.Handle(ctx, model.NewMessageEvent(1, 1, cmd))
			if !reflect.DeepEqual(req.Template, model.GenericErrorTemplate()) {
				t.Errorf("%s: expected generic error template, got %+v", cmd, req.Template)
			}
			if strings.Contains(req.Template.Text, "hunter2") {
				t.Errorf("%s: error details leaked to the user", cmd)
			}
		}
	})

	t.Run("same event gives the same template", func(t *testing.T) {
		ev := model.NewMessageEvent(3, 3, "/start")
		a, b := d.Handle(ctx, ev), d.Handle(ctx, ev)
		if !reflect.DeepEqual(a.Template, b.Template) {
			t.Errorf("templates differ: %+v vs %+v", a.Template, b.Template)
		}
		if a.ID == b.ID {
			t.Error("delivery ids should be unique")
		}
	})
}

func TestDispatcher_SetErrorReply(t *testing.T) {
	reg := application.NewCommandRegistry()
	_ = reg.SetFallback(func(model.InboundEvent) (model.ResponseTemplate, error) {
		return model.ResponseTemplate{}, errors.New("broken")
	})
	d, err := application.NewDispatcher(reg, newTestLogger(), true)
	if err != nil {
		t.Fatalf("NewDispatcher failed: %v", err)
	}

	if err := d.SetErrorReply(model.ResponseTemplate{}); !errors.Is(err, domain.ErrInvalidResponse) {
		t.Errorf("expected invalid reply to be rejected, got %v", err)
	}

	custom := model.NewTextResponse("Xatolik yuz berdi.", model.ParseModePlain, nil)
	if err := d.SetErrorReply(custom); err != nil {
		t.Fatalf("SetErrorReply failed: %v", err)
	}
	req := d.Handle(context.Background(), model.NewMessageEvent(1, 1, "hi"))
	if req.Template.Text != custom.Text {
		t.Errorf("expected custom error reply, got %q", req.Template.Text)
	}
}
