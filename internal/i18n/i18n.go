// Package i18n holds the translated UI strings. Messages are keyed by their
// English text; English needs no catalog.
package i18n

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed locales/*.po
var locales embed.FS

// Languages lists the supported language codes.
var Languages = []string{"en", "pt_BR"}

var catalog = gotext.NewPo()

// Load switches the active catalog. It must be called before the UI starts.
// Unknown languages leave English active and return an error.
func Load(lang string) error {
	code, ok := lookup(lang)
	if !ok || code == "en" {
		catalog = gotext.NewPo()
		if !ok {
			return fmt.Errorf("unsupported language %q", lang)
		}
		return nil
	}

	data, err := locales.ReadFile("locales/" + code + ".po")
	if err != nil {
		return fmt.Errorf("read %s catalog: %w", code, err)
	}
	po := gotext.NewPo()
	po.Parse(data)
	catalog = po
	return nil
}

// T returns the translation of msgid, formatted with vars.
func T(msgid string, vars ...interface{}) string {
	return catalog.Get(msgid, vars...)
}

// Normalize maps locale names like "pt-BR" or "pt_BR.UTF-8" to a
// supported language code. Unknown languages fall back to English.
func Normalize(lang string) string {
	code, _ := lookup(lang)
	return code
}

// lookup resolves lang to a supported code. The empty string means English.
func lookup(lang string) (string, bool) {
	lang, _, _ = strings.Cut(lang, ".")
	lang = strings.ReplaceAll(lang, "-", "_")
	if lang == "" {
		return "en", true
	}
	for _, l := range Languages {
		if strings.EqualFold(l, lang) {
			return l, true
		}
	}
	// a bare language or another region of a supported one
	base, _, _ := strings.Cut(lang, "_")
	switch strings.ToLower(base) {
	case "pt":
		return "pt_BR", true
	case "en":
		return "en", true
	}
	return "en", false
}

// FromEnv picks the language from the usual locale variables.
func FromEnv() string {
	for _, key := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(key); v != "" && v != "C" && v != "POSIX" {
			first, _, _ := strings.Cut(v, ":")
			return Normalize(first)
		}
	}
	return "en"
}
