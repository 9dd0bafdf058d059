// Package notify is the per-visitor notification center: transient toasts plus the
// singleton newsletter popup and alert dialog.
package notify

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"kabaranime.id/portal/internal/signal"
)

// Kind classifies a toast or alert.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// DefaultToastDuration is the helper toast lifetime unless WithToastDuration overrides it.
const DefaultToastDuration = 5 * time.Second

// ParseKind maps a string onto a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindSuccess, KindError, KindWarning, KindInfo:
		return Kind(s), true
	default:
		return "", false
	}
}

// TitleKey is the translation key for the kind's default title.
func (k Kind) TitleKey() string {
	switch k {
	case KindSuccess:
		return "toast.success"
	case KindError:
		return "toast.error"
	case KindWarning:
		return "toast.warning"
	default:
		return "toast.info"
	}
}

// Toast is a transient notification.
type Toast struct {
	ID        string
	Kind      Kind
	Title     string
	Message   string
	Duration  time.Duration
	CreatedAt time.Time
}

// Action is a labelled callback attached to a popup. Running it does not close the popup.
type Action struct {
	Label string
	Run   func()
}

// Popup is the newsletter or alert singleton. Newsletter popups carry no Kind.
type Popup struct {
	ID      string
	Kind    Kind
	Title   string
	Message string
	Action  *Action
	ShownAt time.Time
}

// HasAction reports whether the popup renders an action button.
func (p *Popup) HasAction() bool { return p != nil && p.Action != nil && p.Action.Label != "" }

// State is a consistent copy of every channel.
type State struct {
	Version    uint64
	Toasts     []Toast
	Newsletter *Popup
	Alert      *Popup
}

// Translator supplies localized default titles.
type Translator interface {
	T(key string) string
}

// Option configures a Center.
type Option func(*Center)

// WithScheduler overrides the timer implementation.
func WithScheduler(s Scheduler) Option { return func(c *Center) { c.scheduler = s } }

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option { return func(c *Center) { c.now = now } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(c *Center) { c.logger = l } }

// WithTranslator sets the translator used for default titles.
func WithTranslator(t Translator) Option { return func(c *Center) { c.translator = t } }

// WithToastDuration sets the lifetime of toasts shown by the convenience helpers.
func WithToastDuration(d time.Duration) Option {
	return func(c *Center) {
		if d > 0 {
			c.duration = d
		}
	}
}

// WithToastObserver registers fn to be called with the kind of every shown toast.
func WithToastObserver(fn func(Kind)) Option { return func(c *Center) { c.observe = fn } }

// Center owns the notification state of one visitor. All mutations go through it.
type Center struct {
	scheduler  Scheduler
	now        func() time.Time
	logger     *zap.Logger
	translator Translator
	observe    func(Kind)
	duration   time.Duration

	mu         sync.Mutex
	toasts     []Toast
	timers     map[string]Task
	newsletter *Popup
	alert      *Popup
	version    uint64
	closed     bool

	changes signal.Broadcaster[State]
}

// NewCenter constructs an empty Center.
func NewCenter(opts ...Option) *Center {
	c := &Center{
		scheduler: TimerScheduler{},
		now:       time.Now,
		logger:    zap.NewNop(),
		timers:    map[string]Task{},
		duration:  DefaultToastDuration,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newID() string { return ulid.Make().String() }

// ShowToast appends a toast. A positive duration schedules its removal; zero or
// negative keeps it until RemoveToast.
func (c *Center) ShowToast(kind Kind, title, message string, duration time.Duration) Toast {
	if _, ok := ParseKind(string(kind)); !ok {
		c.logger.DPanic("unknown toast kind", zap.String("kind", string(kind)))
		kind = KindInfo
	}
	t := Toast{
		ID:        newID(),
		Kind:      kind,
		Title:     title,
		Message:   message,
		Duration:  duration,
		CreatedAt: c.now(),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Toast{}
	}
	c.toasts = append(c.toasts, t)
	if duration > 0 {
		id := t.ID
		c.timers[id] = c.scheduler.Schedule(duration, func() { c.RemoveToast(id) })
	}
	st := c.bumpLocked()
	c.mu.Unlock()

	c.changes.Publish(st)
	if c.observe != nil {
		c.observe(kind)
	}
	return t
}

// RemoveToast removes the toast with id and cancels its timer. Absent ids are a no-op,
// so a manual dismiss racing the expiry timer removes the toast exactly once.
func (c *Center) RemoveToast(id string) bool {
	c.mu.Lock()
	if task, ok := c.timers[id]; ok {
		task.Cancel()
		delete(c.timers, id)
	}
	idx := -1
	for i := range c.toasts {
		if c.toasts[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		c.mu.Unlock()
		return false
	}
	c.toasts = append(c.toasts[:idx], c.toasts[idx+1:]...)
	st := c.bumpLocked()
	c.mu.Unlock()

	c.changes.Publish(st)
	return true
}

func (c *Center) defaultTitle(kind Kind) string {
	if c.translator == nil {
		return kind.TitleKey()
	}
	return c.translator.T(kind.TitleKey())
}

// Success shows a success toast with the localized default title.
func (c *Center) Success(message string) Toast {
	return c.ShowToast(KindSuccess, c.defaultTitle(KindSuccess), message, c.duration)
}

// Error shows an error toast with the localized default title.
func (c *Center) Error(message string) Toast {
	return c.ShowToast(KindError, c.defaultTitle(KindError), message, c.duration)
}

// Warning shows a warning toast with the localized default title.
func (c *Center) Warning(message string) Toast {
	return c.ShowToast(KindWarning, c.defaultTitle(KindWarning), message, c.duration)
}

// Info shows an info toast with the localized default title.
func (c *Center) Info(message string) Toast {
	return c.ShowToast(KindInfo, c.defaultTitle(KindInfo), message, c.duration)
}

// ShowNewsletter replaces any active newsletter popup.
func (c *Center) ShowNewsletter(title, message string, action *Action) Popup {
	p := Popup{ID: newID(), Title: title, Message: message, Action: action, ShownAt: c.now()}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Popup{}
	}
	c.newsletter = &p
	st := c.bumpLocked()
	c.mu.Unlock()
	c.changes.Publish(st)
	return p
}

// CloseNewsletter clears the newsletter popup. Idempotent.
func (c *Center) CloseNewsletter() {
	c.mu.Lock()
	if c.newsletter == nil {
		c.mu.Unlock()
		return
	}
	c.newsletter = nil
	st := c.bumpLocked()
	c.mu.Unlock()
	c.changes.Publish(st)
}

// TriggerNewsletterAction runs the active newsletter action, leaving the popup open.
func (c *Center) TriggerNewsletterAction() bool {
	c.mu.Lock()
	p := c.newsletter
	c.mu.Unlock()
	return runAction(p)
}

// ShowAlert replaces any active alert.
func (c *Center) ShowAlert(kind Kind, title, message string, action *Action) Popup {
	if _, ok := ParseKind(string(kind)); !ok {
		c.logger.DPanic("unknown alert kind", zap.String("kind", string(kind)))
		kind = KindInfo
	}
	p := Popup{ID: newID(), Kind: kind, Title: title, Message: message, Action: action, ShownAt: c.now()}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Popup{}
	}
	c.alert = &p
	st := c.bumpLocked()
	c.mu.Unlock()
	c.changes.Publish(st)
	return p
}

// CloseAlert clears the alert. Idempotent.
func (c *Center) CloseAlert() {
	c.mu.Lock()
	if c.alert == nil {
		c.mu.Unlock()
		return
	}
	c.alert = nil
	st := c.bumpLocked()
	c.mu.Unlock()
	c.changes.Publish(st)
}

// TriggerAlertAction runs the active alert action, leaving the alert open.
func (c *Center) TriggerAlertAction() bool {
	c.mu.Lock()
	p := c.alert
	c.mu.Unlock()
	return runAction(p)
}

func runAction(p *Popup) bool {
	if p == nil || p.Action == nil || p.Action.Run == nil {
		return false
	}
	p.Action.Run()
	return true
}

// Snapshot returns a copy of the current state.
func (c *Center) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe receives a snapshot after every change.
func (c *Center) Subscribe() (<-chan State, func()) { return c.changes.Subscribe() }

// PendingTimers reports how many toast expiries are scheduled.
func (c *Center) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Close cancels every pending timer and releases subscribers. Later calls to
// Show* are ignored.
func (c *Center) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for id, task := range c.timers {
		task.Cancel()
		delete(c.timers, id)
	}
	c.mu.Unlock()
	c.changes.Close()
}

func (c *Center) bumpLocked() State {
	c.version++
	return c.snapshotLocked()
}

func (c *Center) snapshotLocked() State {
	st := State{Version: c.version}
	if len(c.toasts) > 0 {
		st.Toasts = append([]Toast(nil), c.toasts...)
	}
	if c.newsletter != nil {
		p := *c.newsletter
		st.Newsletter = &p
	}
	if c.alert != nil {
		p := *c.alert
		st.Alert = &p
	}
	return st
}
