package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// DefaultLang is the bundle's source language.
const DefaultLang = "ja"

var (
	loadOnce sync.Once
	bundle   *i18n.Bundle
	loadErr  error
)

func loadBundle() (*i18n.Bundle, error) {
	loadOnce.Do(func() {
		b := i18n.NewBundle(language.Japanese)
		b.RegisterUnmarshalFunc("json", json.Unmarshal)

		entries, err := localeFS.ReadDir("locales")
		if err != nil {
			loadErr = fmt.Errorf("read locales dir: %w", err)
			return
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			data, err := localeFS.ReadFile("locales/" + e.Name())
			if err != nil {
				loadErr = fmt.Errorf("read locale file %s: %w", e.Name(), err)
				return
			}
			if _, err := b.ParseMessageFileBytes(data, e.Name()); err != nil {
				loadErr = fmt.Errorf("parse locale file %s: %w", e.Name(), err)
				return
			}
			slog.Debug("loaded locale file", "file", e.Name())
		}
		bundle = b
	})
	return bundle, loadErr
}

// Catalog localizes learner-facing messages for one language preference list.
type Catalog struct {
	loc *i18n.Localizer
}

// New creates a catalog for the given languages or Accept-Language values.
// Messages missing in every listed language fall back to Japanese.
func New(langs ...string) (*Catalog, error) {
	b, err := loadBundle()
	if err != nil {
		return nil, err
	}
	return &Catalog{loc: i18n.NewLocalizer(b, append(slices.Clone(langs), DefaultLang)...)}, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the Japanese catalog. The locale files are embedded, so a load
// failure is a build defect and panics.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := New(DefaultLang)
		if err != nil {
			panic(fmt.Sprintf("i18n: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// T translates a message by ID.
func (c *Catalog) T(msgID string) string {
	s, err := c.loc.Localize(&i18n.LocalizeConfig{MessageID: msgID})
	if err != nil {
		slog.Warn("missing translation", "id", msgID, "error", err)
		return msgID
	}
	return s
}

// Td translates a message by ID with template data.
func (c *Catalog) Td(msgID string, data map[string]any) string {
	s, err := c.loc.Localize(&i18n.LocalizeConfig{
		MessageID:    msgID,
		TemplateData: data,
	})
	if err != nil {
		slog.Warn("missing translation", "id", msgID, "error", err)
		return msgID
	}
	return s
}

type ctxKey struct{}

// WithCatalog stores a catalog in the context.
func WithCatalog(ctx context.Context, c *Catalog) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the catalog stored in ctx, or the Japanese default.
func FromContext(ctx context.Context) *Catalog {
	if c, ok := ctx.Value(ctxKey{}).(*Catalog); ok && c != nil {
		return c
	}
	return Default()
}
