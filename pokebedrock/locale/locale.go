// Package locale translates player facing messages. Bundles are JSON files of key to message, merged over the
// embedded English bundle.
package locale

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sandertv/gophertunnel/minecraft/text"
	"golang.org/x/text/language"
)

//go:embed en_US.json
var english []byte

// Preferences persists the language chosen by players.
type Preferences interface {
	PlayerLocale(ctx context.Context, id uuid.UUID) (string, error)
	SetPlayerLocale(ctx context.Context, id uuid.UUID, locale string) error
}

// Translator holds every loaded bundle and the language of each online player.
type Translator struct {
	mu      sync.RWMutex
	bundles map[language.Tag]map[string]string
	matcher language.Matcher
	tags    []language.Tag
	def     language.Tag

	prefs   Preferences
	players *xsync.MapOf[uuid.UUID, language.Tag]
}

// New loads the bundles found in dir. def is the language used for players without a preference. A missing
// dir only leaves the embedded English bundle.
func New(dir, def string, prefs Preferences) (*Translator, error) {
	base := make(map[string]string)
	if err := json.Unmarshal(english, &base); err != nil {
		return nil, fmt.Errorf("decode embedded locale: %w", err)
	}
	t := &Translator{
		bundles: map[language.Tag]map[string]string{language.AmericanEnglish: base},
		prefs:   prefs,
		players: xsync.NewMapOf[uuid.UUID, language.Tag](),
	}

	if dir != "" {
		files, err := filepath.Glob(filepath.Join(dir, "*.json"))
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if err = t.load(f); err != nil {
				return nil, err
			}
		}
	}
	t.index()

	tag, ok := t.Match(def)
	if !ok {
		tag = language.AmericanEnglish
	}
	t.def = tag
	return t, nil
}

// load ...
func (t *Translator) load(path string) error {
	code := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tag, err := language.Parse(code)
	if err != nil {
		return fmt.Errorf("locale file %s: %w", path, err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	data := make(map[string]string)
	if err = json.Unmarshal(b, &data); err != nil {
		return fmt.Errorf("decode locale file %s: %w", path, err)
	}

	bundle, ok := t.bundles[tag]
	if !ok {
		bundle = make(map[string]string, len(data))
		t.bundles[tag] = bundle
	}
	maps.Copy(bundle, data)
	return nil
}

// index rebuilds the matcher over the loaded bundles. English comes first so that it wins ties.
func (t *Translator) index() {
	t.tags = []language.Tag{language.AmericanEnglish}
	for tag := range t.bundles {
		if tag != language.AmericanEnglish {
			t.tags = append(t.tags, tag)
		}
	}
	t.matcher = language.NewMatcher(t.tags)
}

// Match returns the loaded language closest to code.
func (t *Translator) Match(code string) (language.Tag, bool) {
	tag, err := language.Parse(code)
	if err != nil {
		return language.Und, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, i, conf := t.matcher.Match(tag)
	if conf == language.No {
		return language.Und, false
	}
	return t.tags[i], true
}

// Default returns the language of players without a preference.
func (t *Translator) Default() language.Tag {
	return t.def
}

// Of returns the language of a player.
func (t *Translator) Of(id uuid.UUID) language.Tag {
	if tag, ok := t.players.Load(id); ok {
		return tag
	}
	return t.def
}

// Load loads the stored preference of a player that joined.
func (t *Translator) Load(ctx context.Context, id uuid.UUID) error {
	code, err := t.prefs.PlayerLocale(ctx, id)
	if err != nil || code == "" {
		return err
	}
	if tag, ok := t.Match(code); ok {
		t.players.Store(id, tag)
	}
	return nil
}

// Set stores the preference of a player.
func (t *Translator) Set(ctx context.Context, id uuid.UUID, code string) (language.Tag, error) {
	tag, ok := t.Match(code)
	if !ok {
		return language.Und, ErrUnknownLocale
	}
	if err := t.prefs.SetPlayerLocale(ctx, id, tag.String()); err != nil {
		return language.Und, err
	}
	t.players.Store(id, tag)
	return tag, nil
}

// Forget drops the language of a player that left.
func (t *Translator) Forget(id uuid.UUID) {
	t.players.Delete(id)
}

// ErrUnknownLocale is returned when no bundle matches a requested language.
var ErrUnknownLocale = errors.New("unknown locale")

// Translate translates key for a player.
func (t *Translator) Translate(id uuid.UUID, key string, args ...any) string {
	return t.TranslateL(t.Of(id), key, args...)
}

// TranslateL translates key to lang, falling back to the default language and then English. Placeholders %1
// to %n are replaced by args.
func (t *Translator) TranslateL(lang language.Tag, key string, args ...any) string {
	translation, ok := t.lookup(key, lang, t.def, language.AmericanEnglish)
	if !ok {
		return fmt.Sprintf("missing translation for '%s'", key)
	}
	for i := len(args); i > 0; i-- {
		translation = strings.ReplaceAll(translation, fmt.Sprintf("%%%d", i), fmt.Sprintf("%%[%d]v", i))
	}
	return text.Colourf(translation, args...)
}

// lookup ...
func (t *Translator) lookup(key string, tags ...language.Tag) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, tag := range tags {
		if s, ok := t.bundles[tag][key]; ok {
			return s, true
		}
	}
	return "", false
}
