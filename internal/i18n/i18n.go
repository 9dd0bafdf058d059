package i18n

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Language is the closed set of UI languages.
type Language string

const (
	Indonesian Language = "id"
	English    Language = "en"
)

// Default is used when nothing valid was persisted or negotiated.
const Default = Indonesian

// Supported lists every Language in display order.
var Supported = []Language{Indonesian, English}

// ErrUnsupportedLanguage is returned when a code outside the closed set is supplied.
var ErrUnsupportedLanguage = errors.New("i18n: unsupported language")

// ParseLanguage maps a code such as "en" or "id-ID" onto a Language.
func ParseLanguage(code string) (Language, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if dash := strings.IndexAny(code, "-_"); dash != -1 {
		code = code[:dash]
	}
	switch Language(code) {
	case Indonesian:
		return Indonesian, true
	case English:
		return English, true
	default:
		return "", false
	}
}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	switch l {
	case Indonesian, English:
		return true
	default:
		return false
	}
}

// Other returns the complement language.
func (l Language) Other() Language {
	switch l {
	case Indonesian:
		return English
	case English:
		return Indonesian
	default:
		return Default
	}
}

// Tag returns the BCP 47 tag for l.
func (l Language) Tag() language.Tag {
	switch l {
	case English:
		return language.English
	case Indonesian:
		return language.Indonesian
	default:
		return language.Indonesian
	}
}

func (l Language) String() string { return string(l) }

// Bundle holds the immutable translation tables.
type Bundle struct {
	dict     map[Language]map[string]string
	fallback Language
	matcher  language.Matcher
}

// Load reads <dir>/<lang>.json for every supported language. Only the fallback file is mandatory.
func Load(dir string, fallback Language) (*Bundle, error) {
	if !fallback.Valid() {
		return nil, fmt.Errorf("%w: fallback %q", ErrUnsupportedLanguage, fallback)
	}
	tables := map[Language]map[string]string{}
	for _, l := range Supported {
		path := filepath.Join(dir, string(l)+".json")
		raw, err := os.ReadFile(path)
		if err != nil {
			// allow missing file for non-default locales
			if l == fallback {
				return nil, fmt.Errorf("load locale %s: %w", l, err)
			}
			continue
		}
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", l, err)
		}
		tables[l] = m
	}
	return NewBundle(tables, fallback)
}

// NewBundle builds a Bundle from in-memory tables. The tables are copied.
func NewBundle(tables map[Language]map[string]string, fallback Language) (*Bundle, error) {
	if _, ok := tables[fallback]; !ok {
		return nil, fmt.Errorf("fallback locale %s not loaded", fallback)
	}
	b := &Bundle{dict: map[Language]map[string]string{}, fallback: fallback}
	for l, m := range tables {
		if !l.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, l)
		}
		cp := make(map[string]string, len(m))
		for k, v := range m {
			cp[k] = v
		}
		b.dict[l] = cp
	}
	tags := []language.Tag{fallback.Tag()}
	for _, l := range Supported {
		if l != fallback {
			tags = append(tags, l.Tag())
		}
	}
	b.matcher = language.NewMatcher(tags)
	return b, nil
}

// Fallback returns the configured fallback language.
func (b *Bundle) Fallback() Language { return b.fallback }

// MissingKey is shown in place of an empty translation key.
const MissingKey = "[missing key]"

// T returns translation for key in lang, falling back to the fallback language and finally the key.
// The result is never empty.
func (b *Bundle) T(lang Language, key string) string {
	if strings.TrimSpace(key) == "" {
		return MissingKey
	}
	if m, ok := b.dict[lang]; ok {
		if v, ok := m[key]; ok && v != "" {
			return v
		}
	}
	if m, ok := b.dict[b.fallback]; ok {
		if v, ok := m[key]; ok && v != "" {
			return v
		}
	}
	return key
}

// Tf formats the translation of key with args using locale-aware number formatting.
func (b *Bundle) Tf(lang Language, key string, args ...any) string {
	format := b.T(lang, key)
	if len(args) == 0 {
		return format
	}
	return message.NewPrinter(lang.Tag()).Sprintf(format, args...)
}

// Keys returns the sorted union of keys across all tables.
func (b *Bundle) Keys() []string {
	seen := map[string]struct{}{}
	for _, m := range b.dict {
		for k := range m {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Resolve chooses the best language from an Accept-Language header.
func (b *Bundle) Resolve(acceptLang string) Language {
	tags, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(tags) == 0 {
		return b.fallback
	}
	tag, _, conf := b.matcher.Match(tags...)
	if conf == language.No {
		return b.fallback
	}
	base, _ := tag.Base()
	if l, ok := ParseLanguage(base.String()); ok {
		return l
	}
	return b.fallback
}
