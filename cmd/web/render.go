package main

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"kabaranime.id/portal/internal/format"
	handlersPkg "kabaranime.id/portal/internal/handlers"
	"kabaranime.id/portal/internal/i18n"
	mw "kabaranime.id/portal/internal/middleware"
	"kabaranime.id/portal/internal/portal"
)

// reloadDebounce coalesces bursts of editor writes into one reparse.
const reloadDebounce = 150 * time.Millisecond

// views holds one template set per page. Every set shares the layout and
// partials, so each page can define its own "content" block.
type views struct {
	dir    string
	funcs  template.FuncMap
	logger *zap.Logger

	mu     sync.RWMutex
	pages  map[string]*template.Template
	shared *template.Template
}

func newViews(dir string, bundle *i18n.Bundle, logger *zap.Logger) (*views, error) {
	v := &views{dir: dir, funcs: templateFuncs(bundle), logger: logger}
	if err := v.load(); err != nil {
		return nil, err
	}
	return v, nil
}

func templateFuncs(bundle *i18n.Bundle) template.FuncMap {
	return template.FuncMap{
		"t": func(lang i18n.Language, key string) string { return bundle.T(lang, key) },
		"tf": func(lang i18n.Language, key string, args ...any) string {
			return bundle.Tf(lang, key, args...)
		},
		"date":    format.FmtDate,
		"number":  format.FmtNumber,
		"compact": format.FmtCompact,
		"iso":     format.ISODate,
		"ms":      func(d time.Duration) int64 { return d.Milliseconds() },
		"jsonld":  func(s string) template.JS { return template.JS(s) },
		"add":     func(a, b int) int { return a + b },
		"langs":   func() []i18n.Language { return i18n.Supported },
		"now":     time.Now,
		"dict":    dict,
	}
}

// dict builds a map from alternating keys and values for sub-template calls.
func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}

// load parses layouts, partials and pages from disk.
func (v *views) load() error {
	shared := template.New("_root").Funcs(v.funcs)
	for _, sub := range []string{"layouts", "partials"} {
		files, err := filepath.Glob(filepath.Join(v.dir, sub, "*.tmpl"))
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no templates found under %s", filepath.Join(v.dir, sub))
		}
		if shared, err = shared.ParseFiles(files...); err != nil {
			return fmt.Errorf("parse %s: %w", sub, err)
		}
	}
	pageFiles, err := filepath.Glob(filepath.Join(v.dir, "pages", "*.tmpl"))
	if err != nil {
		return err
	}
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, f := range pageFiles {
		clone, err := shared.Clone()
		if err != nil {
			return err
		}
		if _, err := clone.ParseFiles(f); err != nil {
			return fmt.Errorf("parse page %s: %w", filepath.Base(f), err)
		}
		pages[strings.TrimSuffix(filepath.Base(f), ".tmpl")] = clone
	}

	v.mu.Lock()
	v.shared = shared
	v.pages = pages
	v.mu.Unlock()
	return nil
}

func (v *views) page(name string) (*template.Template, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	t, ok := v.pages[name]
	return t, ok
}

func (v *views) fragments() *template.Template {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.shared
}

// Watch reparses templates whenever a file under dir changes, until ctx ends.
// A failed reparse keeps the previous templates.
func (v *views) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("template watcher: %w", err)
	}
	defer w.Close()
	for _, sub := range []string{"layouts", "partials", "pages"} {
		dir := filepath.Join(v.dir, sub)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".tmpl") || ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(reloadDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			v.logger.Warn("template watcher", zap.Error(err))
		case <-pending:
			pending = nil
			if err := v.load(); err != nil {
				v.logger.Error("reload templates", zap.Error(err))
				continue
			}
			v.logger.Info("templates reloaded")
		}
	}
}

// renderPage executes the base layout for page name. The notification
// snapshot is taken last so toasts raised by the handler are included.
func (a *app) renderPage(w http.ResponseWriter, r *http.Request, st *portal.State, status int, name string, vm handlersPkg.PageData) {
	t, ok := a.views.page(name)
	if !ok {
		a.serverError(w, r, fmt.Errorf("unknown page template %q", name))
		return
	}
	vm.Notifications = st.Notifications.Snapshot()
	vm.CanGoBack = st.Navigator.CanGoBack()
	vm.CanGoForward = st.Navigator.CanGoForward()
	vm.Unread = st.Inbox.Unread()

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", vm); err != nil {
		a.serverError(w, r, fmt.Errorf("execute page %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderTemplate executes a named fragment. Extra fragments (usually out of
// band swaps) are appended in order.
func (a *app) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any, extra ...fragment) {
	var buf bytes.Buffer
	t := a.views.fragments()
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		a.serverError(w, r, fmt.Errorf("execute fragment %s: %w", name, err))
		return
	}
	for _, f := range extra {
		if err := t.ExecuteTemplate(&buf, f.name, f.data); err != nil {
			a.serverError(w, r, fmt.Errorf("execute fragment %s: %w", f.name, err))
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

type fragment struct {
	name string
	data any
}

// notificationsFragment is the notification region of st, out of band when oob is set.
func notificationsFragment(st *portal.State, oob bool) fragment {
	return fragment{name: "frag_notifications", data: handlersPkg.NotificationsView{
		Lang:          st.Language.Language(),
		Notifications: st.Notifications.Snapshot(),
		OOB:           oob,
	}}
}

func (a *app) serverError(w http.ResponseWriter, r *http.Request, err error) {
	mw.LoggerFrom(r.Context()).Error("render failed", zap.Error(err), zap.String("path", r.URL.Path))
	mw.WriteError(w, r, http.StatusInternalServerError, "internal error")
}
