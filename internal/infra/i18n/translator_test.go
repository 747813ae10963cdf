//go:build !integration

package i18n

import (
	"testing"
	"testing/fstest"

	"gopkg.in/yaml.v3"
)

func TestTranslator(t *testing.T) {
	contentBytes := []byte("greeting: Salom\nwelcome_user: Salom %s")

	translator, err := newTranslatorFromBytes(contentBytes)
	if err != nil {
		t.Fatalf("newTranslatorFromBytes failed: %v", err)
	}

	t.Run("should translate a simple key", func(t *testing.T) {
		if got, want := translator.T("greeting"), "Salom"; got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		if got, want := translator.T("nonexistent_key"), "nonexistent_key"; got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})

	t.Run("should format arguments correctly", func(t *testing.T) {
		if got, want := translator.T("welcome_user", "Ali"), "Salom Ali"; got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})
}

func TestNewTranslator(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en.yaml": {Data: []byte("hello: Hello\nbye: Bye")},
		"locales/uz.yaml": {Data: []byte("hello: Salom")},
	}

	t.Run("falls back to the default language", func(t *testing.T) {
		tr, err := NewTranslator(fsys, "uz")
		if err != nil {
			t.Fatalf("NewTranslator failed: %v", err)
		}
		if tr.T("hello") != "Salom" {
			t.Errorf("expected own translation, got %q", tr.T("hello"))
		}
		if tr.T("bye") != "Bye" {
			t.Errorf("expected fallback translation, got %q", tr.T("bye"))
		}
		if tr.Language() != "uz" {
			t.Errorf("expected language uz, got %q", tr.Language())
		}
	})

	t.Run("unknown language fails", func(t *testing.T) {
		if _, err := NewTranslator(fsys, "xx"); err == nil {
			t.Fatal("expected an error for a missing locale file")
		}
	})
}

func TestEmbeddedLocales(t *testing.T) {
	load := func(lang string) map[string]string {
		t.Helper()
		data, err := LocalesFS.ReadFile("locales/" + lang + ".yaml")
		if err != nil {
			t.Fatalf("read %s: %v", lang, err)
		}
		var m map[string]string
		if err := yaml.Unmarshal(data, &m); err != nil {
			t.Fatalf("parse %s: %v", lang, err)
		}
		return m
	}

	en := load("en")
	uz := load("uz")
	for key := range en {
		if _, ok := uz[key]; !ok {
			t.Errorf("uz locale is missing key %q", key)
		}
	}
	for _, key := range []string{"start_text", "button_play", "help_text", "fallback_text"} {
		if en[key] == "" {
			t.Errorf("en locale is missing key %q", key)
		}
	}
}
