package i18n

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"kabaranime.id/portal/internal/signal"
	"kabaranime.id/portal/internal/storage"
)

// Provider is a visitor's language state: the active language, persisted under
// storage.KeyLanguage, plus lookups against the shared Bundle.
type Provider struct {
	bundle    *Bundle
	store     storage.Store
	namespace string
	logger    *zap.Logger

	mu      sync.RWMutex
	current Language
	changes signal.Broadcaster[Language]
}

// NewProvider reads the persisted language for namespace. Missing or invalid
// values fall back to the bundle's fallback language.
func NewProvider(ctx context.Context, bundle *Bundle, store storage.Store, namespace string, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Provider{
		bundle:    bundle,
		store:     store,
		namespace: namespace,
		logger:    logger,
		current:   bundle.Fallback(),
	}
	if l, ok := p.readPersisted(ctx); ok {
		p.current = l
	}
	return p
}

// NewProviderWith creates a provider whose initial language is negotiated (e.g. from
// Accept-Language) when storage holds no valid value. The negotiated value is not persisted.
func NewProviderWith(ctx context.Context, bundle *Bundle, store storage.Store, namespace string, negotiated Language, logger *zap.Logger) *Provider {
	p := NewProvider(ctx, bundle, store, namespace, logger)
	if _, ok := p.readPersisted(ctx); !ok && negotiated.Valid() {
		p.current = negotiated
	}
	return p
}

func (p *Provider) readPersisted(ctx context.Context) (Language, bool) {
	if p.store == nil {
		return "", false
	}
	raw, ok, err := p.store.Get(ctx, p.namespace, storage.KeyLanguage)
	if err != nil {
		p.logger.Warn("read persisted language", zap.String("visitor", p.namespace), zap.Error(err))
		return "", false
	}
	if !ok {
		return "", false
	}
	l := Language(raw)
	if !l.Valid() {
		p.logger.Warn("ignoring invalid persisted language", zap.String("visitor", p.namespace), zap.String("value", raw))
		return "", false
	}
	return l, true
}

// Language returns the active language.
func (p *Provider) Language() Language {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Bundle exposes the shared translation tables.
func (p *Provider) Bundle() *Bundle { return p.bundle }

// SetLanguage switches the active language and persists it. Unsupported values
// return ErrUnsupportedLanguage and leave the state untouched.
func (p *Provider) SetLanguage(ctx context.Context, lang Language) error {
	if !lang.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	p.mu.Lock()
	changed := p.current != lang
	p.current = lang
	p.mu.Unlock()

	var err error
	if p.store != nil {
		if err = p.store.Set(ctx, p.namespace, storage.KeyLanguage, string(lang)); err != nil {
			err = fmt.Errorf("persist language: %w", err)
		}
	}
	if changed {
		p.changes.Publish(lang)
	}
	return err
}

// Toggle switches to the other supported language.
func (p *Provider) Toggle(ctx context.Context) (Language, error) {
	next := p.Language().Other()
	return next, p.SetLanguage(ctx, next)
}

// T translates key in the active language. Unknown keys come back unchanged.
func (p *Provider) T(key string) string {
	return p.bundle.T(p.Language(), key)
}

// Tf translates and formats key in the active language.
func (p *Provider) Tf(key string, args ...any) string {
	return p.bundle.Tf(p.Language(), key, args...)
}

// Refresh re-reads the persisted value, e.g. after another context wrote it.
// It reports whether the active language changed.
func (p *Provider) Refresh(ctx context.Context) bool {
	l, ok := p.readPersisted(ctx)
	if !ok {
		return false
	}
	p.mu.Lock()
	changed := p.current != l
	p.current = l
	p.mu.Unlock()
	if changed {
		p.changes.Publish(l)
	}
	return changed
}

// Subscribe returns a channel receiving the language after each change.
func (p *Provider) Subscribe() (<-chan Language, func()) { return p.changes.Subscribe() }

// Close releases subscribers.
func (p *Provider) Close() { p.changes.Close() }
