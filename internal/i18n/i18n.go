package i18n

import (
	"embed"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
)

//go:embed lang
var langFS embed.FS

// DefaultLocale is the final fallback for every lookup.
const DefaultLocale = "en"

var (
	mu    sync.Mutex
	cache = map[string]map[string]string{} // "<locale>/<domain>" -> bundle
)

// T resolves a message key for the given locale and substitutes {name}
// placeholders from params. The first dot segment of the key selects a
// domain bundle (lang/<locale>/<domain>.json); lang/<locale>/messages.json
// is the per-locale fallback. Unknown keys resolve to the key itself so a
// missing translation never breaks a reply.
func T(locale, key string, params map[string]string) string {
	domain := ""
	if idx := strings.IndexByte(key, '.'); idx > 0 {
		domain = key[:idx]
	}

	template := ""
	for _, loc := range localeChain(locale) {
		if v, ok := lookup(loc, domain, key); ok {
			template = v
			break
		}
	}
	if template == "" {
		return key
	}
	if len(params) == 0 {
		return template
	}

	pairs := make([]string, 0, len(params)*2)
	for name, value := range params {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// localeChain normalizes a Discord locale like "es-ES" into the lookup
// order es-ES, es, en.
func localeChain(locale string) []string {
	chain := make([]string, 0, 3)
	if locale != "" {
		loc := strings.ReplaceAll(locale, "_", "-")
		chain = append(chain, loc)
		if idx := strings.IndexByte(loc, '-'); idx > 0 {
			chain = append(chain, loc[:idx])
		}
	}
	return append(chain, DefaultLocale)
}

func lookup(locale, domain, key string) (string, bool) {
	if domain != "" {
		if v, ok := bundle(locale, domain)[key]; ok {
			return v, true
		}
	}
	v, ok := bundle(locale, "messages")[key]
	return v, ok
}

func bundle(locale, domain string) map[string]string {
	name := locale + "/" + domain
	mu.Lock()
	defer mu.Unlock()
	if b, ok := cache[name]; ok {
		return b
	}

	b := map[string]string{}
	raw, err := langFS.ReadFile("lang/" + name + ".json")
	if err == nil {
		if err := json.Unmarshal(raw, &b); err != nil {
			slog.Error("Malformed locale bundle", "bundle", name, "error", err)
		}
	}
	cache[name] = b
	return b
}
