// Package localization provides the translated texts used in staff
// notifications. Message files are embedded JSON, one per language.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Localizer resolves message IDs for a language, falling back to English
// and then to the ID itself.
type Localizer struct {
	bundle *i18n.Bundle

	mu         sync.Mutex
	localizers map[string]*i18n.Localizer
}

// NewLocalizer loads every embedded message file.
func NewLocalizer() (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	files, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("failed to read localization directory: %w", err)
	}

	loaded := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+file.Name()); err != nil {
			return nil, fmt.Errorf("failed to parse localization file %s: %w", file.Name(), err)
		}
		loaded++
	}
	if loaded == 0 {
		return nil, fmt.Errorf("no localization files found")
	}

	return &Localizer{
		bundle:     bundle,
		localizers: make(map[string]*i18n.Localizer),
	}, nil
}

// Languages lists the loaded language tags.
func (l *Localizer) Languages() []string {
	tags := l.bundle.LanguageTags()
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.String())
	}
	return out
}

// GetString returns the localized string for key in lang.
func (l *Localizer) GetString(lang, key string) string {
	return l.GetStringWith(lang, key, nil)
}

// GetStringWith renders key in lang with template data.
func (l *Localizer) GetStringWith(lang, key string, data map[string]any) string {
	cfg := &i18n.LocalizeConfig{MessageID: key, TemplateData: data}

	if msg, err := l.localizerFor(lang).Localize(cfg); err == nil {
		return msg
	}
	if lang != "en" {
		if msg, err := l.localizerFor("en").Localize(cfg); err == nil {
			return msg
		}
	}
	return key
}

func (l *Localizer) localizerFor(lang string) *i18n.Localizer {
	l.mu.Lock()
	defer l.mu.Unlock()

	loc, ok := l.localizers[lang]
	if !ok {
		loc = i18n.NewLocalizer(l.bundle, lang)
		l.localizers[lang] = loc
	}
	return loc
}
