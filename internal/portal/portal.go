// Package portal holds the per-visitor application state. Handlers receive a
// *State explicitly; nothing is looked up from ambient globals.
package portal

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"kabaranime.id/portal/internal/i18n"
	"kabaranime.id/portal/internal/inbox"
	"kabaranime.id/portal/internal/notify"
	"kabaranime.id/portal/internal/prefs"
	"kabaranime.id/portal/internal/router"
	"kabaranime.id/portal/internal/storage"
)

// DefaultIdleTTL is how long an inactive visitor's state is kept in memory.
const DefaultIdleTTL = 30 * time.Minute

// State is everything one visitor's pages read and mutate.
type State struct {
	Visitor       string
	Language      *i18n.Provider
	Notifications *notify.Center
	Navigator     *router.Navigator
	Theme         *prefs.Theme
	History       *prefs.History
	Inbox         *inbox.Inbox

	mu       sync.Mutex
	lastSeen time.Time
	offered  bool
}

// OfferNewsletter reports true exactly once per visitor state, the first time
// the newsletter popup may be shown.
func (s *State) OfferNewsletter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offered {
		return false
	}
	s.offered = true
	return true
}

// LastSeen is the time of the visitor's latest request.
func (s *State) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *State) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *State) close() {
	s.Notifications.Close()
	s.Language.Close()
	s.Navigator.Close()
}

// Config wires a Registry to the shared services.
type Config struct {
	Bundle    *i18n.Bundle
	Store     storage.Store
	Routes    *router.Table
	Feed      *inbox.Feed
	Scheduler notify.Scheduler
	Logger    *zap.Logger
	Now       func() time.Time
	IdleTTL   time.Duration
	// ToastDuration is the lifetime of helper toasts; zero keeps the default.
	ToastDuration time.Duration
	// OnToast observes every toast shown to any visitor.
	OnToast func(notify.Kind)
}

// Registry creates visitor states on first use and evicts idle ones.
type Registry struct {
	cfg Config

	mu     sync.Mutex
	states map[string]*State
}

// NewRegistry applies defaults to cfg.
func NewRegistry(cfg Config) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = notify.TimerScheduler{}
	}
	if cfg.Routes == nil {
		cfg.Routes = router.Default
	}
	return &Registry{cfg: cfg, states: map[string]*State{}}
}

// Get returns the visitor's state, creating it when absent. negotiated seeds
// the language when nothing is persisted; initialPath seeds the navigator.
func (r *Registry) Get(ctx context.Context, visitor string, negotiated i18n.Language, initialPath string) *State {
	now := r.cfg.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.states[visitor]; ok {
		st.touch(now)
		return st
	}
	st := r.newState(ctx, visitor, negotiated, initialPath)
	st.touch(now)
	r.states[visitor] = st
	r.cfg.Logger.Debug("visitor state created", zap.String("visitor", visitor), zap.String("lang", st.Language.Language().String()))
	return st
}

func (r *Registry) newState(ctx context.Context, visitor string, negotiated i18n.Language, initialPath string) *State {
	logger := r.cfg.Logger.With(zap.String("visitor", visitor))
	lang := i18n.NewProviderWith(ctx, r.cfg.Bundle, r.cfg.Store, visitor, negotiated, logger)
	opts := []notify.Option{
		notify.WithScheduler(r.cfg.Scheduler),
		notify.WithClock(r.cfg.Now),
		notify.WithLogger(logger),
		notify.WithTranslator(lang),
		notify.WithToastDuration(r.cfg.ToastDuration),
	}
	if r.cfg.OnToast != nil {
		opts = append(opts, notify.WithToastObserver(r.cfg.OnToast))
	}
	return &State{
		Visitor:       visitor,
		Language:      lang,
		Notifications: notify.NewCenter(opts...),
		Navigator:     router.NewNavigator(r.cfg.Routes, initialPath),
		Theme:         prefs.NewTheme(r.cfg.Store, visitor, logger),
		History:       prefs.NewHistory(r.cfg.Store, visitor, logger, r.cfg.Now),
		Inbox:         inbox.New(r.cfg.Feed),
	}
}

// Lookup returns an existing state without creating one.
func (r *Registry) Lookup(visitor string) (*State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[visitor]
	return st, ok
}

// Len is the number of live visitor states.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// Sweep evicts states idle for longer than the TTL, cancelling their toast
// timers, and returns how many were removed.
func (r *Registry) Sweep() int {
	cutoff := r.cfg.Now().Add(-r.cfg.IdleTTL)
	var evicted []*State
	r.mu.Lock()
	for id, st := range r.states {
		if st.LastSeen().Before(cutoff) {
			evicted = append(evicted, st)
			delete(r.states, id)
		}
	}
	r.mu.Unlock()
	for _, st := range evicted {
		st.close()
	}
	if len(evicted) > 0 {
		r.cfg.Logger.Debug("evicted idle visitors", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

// Refresh applies a storage change to the matching live visitor. Language
// changes written by another tab or process are picked up here.
func (r *Registry) Refresh(ctx context.Context, c storage.Change) bool {
	if c.Key != storage.KeyLanguage {
		return false
	}
	st, ok := r.Lookup(c.Namespace)
	if !ok {
		return false
	}
	return st.Language.Refresh(ctx)
}

// Run watches the storage change feed and sweeps idle visitors every
// interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	changes, stop := r.cfg.Store.Watch()
	defer stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			r.Refresh(ctx, c)
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close releases every state.
func (r *Registry) Close() {
	r.mu.Lock()
	states := r.states
	r.states = map[string]*State{}
	r.mu.Unlock()
	for _, st := range states {
		st.close()
	}
}
