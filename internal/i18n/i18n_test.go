package i18n

import (
	"strings"
	"testing"
)

func TestT_LocaleChainFallsBackToEnglish(t *testing.T) {
	// es bundle has no entry for this key, en does
	got := T("es-ES", "verification.spigot.buttons.by_id", nil)
	if got != "By ID" {
		t.Errorf("expected English fallback, got %q", got)
	}
}

func TestT_RegionalLocaleResolvesBase(t *testing.T) {
	got := T("es-419", "verification.panel.embed.title", nil)
	if got != "Verificación de compras" {
		t.Errorf("expected Spanish title, got %q", got)
	}
}

func TestT_SubstitutesParams(t *testing.T) {
	got := T("en", "verification.spigot.not_buyer.desc", map[string]string{"username": "md_5"})
	if !strings.Contains(got, "md_5") {
		t.Errorf("expected username substituted, got %q", got)
	}
	if strings.Contains(got, "{username}") {
		t.Errorf("placeholder left in output: %q", got)
	}
}

func TestT_UnknownKeyReturnsKey(t *testing.T) {
	const key = "verification.totally.missing"
	if got := T("en", key, nil); got != key {
		t.Errorf("expected key echoed back, got %q", got)
	}
}

func TestT_MessagesBundleIsFallbackDomain(t *testing.T) {
	if got := T("en", "common.error", nil); got == "common.error" {
		t.Error("expected common.error resolved from messages bundle")
	}
}
