//go:build !integration

package i18n

import (
	"testing"
	"testing/fstest"
)

func TestTranslator(t *testing.T) {
	translator, err := newTranslatorFromBytes([]byte("greeting: Olá\nwelcome_user: Olá %s"))
	if err != nil {
		t.Fatalf("newTranslatorFromBytes failed: %v", err)
	}

	t.Run("should translate a simple key", func(t *testing.T) {
		if got := translator.T("greeting"); got != "Olá" {
			t.Errorf("wanted 'Olá', got '%s'", got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		if got := translator.T("nonexistent_key"); got != "nonexistent_key" {
			t.Errorf("wanted 'nonexistent_key', got '%s'", got)
		}
	})

	t.Run("should format arguments correctly", func(t *testing.T) {
		if got := translator.T("welcome_user", "Ana"); got != "Olá Ana" {
			t.Errorf("wanted 'Olá Ana', got '%s'", got)
		}
	})
}

func TestCatalog_Match(t *testing.T) {
	c := MustCatalog()
	cases := map[string]string{
		"":                        "en",
		"pt-BR,pt;q=0.9,en;q=0.8": "pt-BR",
		"pt":                      "pt-BR",
		"fr-FR, en;q=0.5":         "en",
		"en;q=0.3, pt-br;q=0.9":   "pt-BR",
		"de":                      "en",
		"*":                       "en",
		";;garbage":               "en",
	}
	for header, want := range cases {
		if got := c.Match(header).Lang(); got != want {
			t.Errorf("Match(%q) = %s, want %s", header, got, want)
		}
	}
}

func TestNewCatalog_RequiresDefault(t *testing.T) {
	fsys := fstest.MapFS{"locales/pt-BR.yaml": {Data: []byte("a: b")}}
	if _, err := NewCatalog(fsys); err == nil {
		t.Fatal("catalog without default locale accepted")
	}
}
