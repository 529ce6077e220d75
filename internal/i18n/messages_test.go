package i18n_test

import (
	"strings"
	"testing"

	"swipely/internal/i18n"
)

func TestMatchFallsBackToEnglish(t *testing.T) {
	cases := map[string]string{
		"":      "en",
		"ru":    "ru",
		"ru-RU": "ru",
		"en-GB": "en",
		"de":    "en",
	}
	for input, want := range cases {
		if got := i18n.Code(input); got != want {
			t.Fatalf("Code(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTFormatsInUserLanguage(t *testing.T) {
	ru := i18n.T("ru", i18n.KeyStyleSet, "neon")
	if ru != "Стиль изменён на neon." {
		t.Fatalf("unexpected russian text %q", ru)
	}
	en := i18n.T("fr", i18n.KeySlidesSet, 7)
	if en != "New carousels will have 7 slides." {
		t.Fatalf("unexpected fallback text %q", en)
	}
}

func TestEveryKeyHasBothLanguages(t *testing.T) {
	keys := []string{
		i18n.KeyStart, i18n.KeyHelp, i18n.KeyStatus, i18n.KeyProOffer, i18n.KeyJobFailed,
		i18n.KeyDelivered, i18n.KeyStats, i18n.KeyPaymentDone,
	}
	for _, key := range keys {
		en := i18n.T("en", key)
		ru := i18n.T("ru", key)
		if en == key || ru == key || en == ru {
			t.Fatalf("key %s missing a translation: en=%q ru=%q", key, en, ru)
		}
		if strings.TrimSpace(en) == "" {
			t.Fatalf("key %s is empty", key)
		}
	}
}
