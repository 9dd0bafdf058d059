package router

import (
	"sync"

	"kabaranime.id/portal/internal/signal"
)

// maxHistory bounds the per-visitor history stack; the oldest entries drop first.
const maxHistory = 50

// Navigator is a visitor's navigation state machine: the active page plus a
// browser-like history stack. Every transition is synchronous.
type Navigator struct {
	table *Table

	mu      sync.Mutex
	entries []Match
	index   int
	changes signal.Broadcaster[Match]
}

// NewNavigator starts at the resolved initial path.
func NewNavigator(table *Table, initialPath string) *Navigator {
	if table == nil {
		table = Default
	}
	return &Navigator{
		table:   table,
		entries: []Match{table.Resolve(initialPath)},
	}
}

// Current returns the active match.
func (n *Navigator) Current() Match {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.entries[n.index]
}

// Navigate resolves p and makes it active. With replace the current history entry is
// overwritten; otherwise a new entry is pushed and forward entries are discarded.
// Navigating to the already active URL with push is a no-op on the stack.
func (n *Navigator) Navigate(p string, replace bool) Match {
	m := n.table.Resolve(p)
	n.mu.Lock()
	switch {
	case replace:
		n.entries[n.index] = m
	case n.entries[n.index].URL() == m.URL():
		n.entries[n.index] = m
	default:
		n.entries = append(n.entries[:n.index+1], m)
		if len(n.entries) > maxHistory {
			drop := len(n.entries) - maxHistory
			n.entries = append([]Match(nil), n.entries[drop:]...)
		}
		n.index = len(n.entries) - 1
	}
	n.mu.Unlock()
	n.changes.Publish(m)
	return m
}

// Back moves to the previous entry. It reports false at the start of history.
func (n *Navigator) Back() (Match, bool) {
	n.mu.Lock()
	if n.index == 0 {
		m := n.entries[n.index]
		n.mu.Unlock()
		return m, false
	}
	n.index--
	m := n.entries[n.index]
	n.mu.Unlock()
	n.changes.Publish(m)
	return m, true
}

// Forward moves to the next entry. It reports false at the end of history.
func (n *Navigator) Forward() (Match, bool) {
	n.mu.Lock()
	if n.index >= len(n.entries)-1 {
		m := n.entries[n.index]
		n.mu.Unlock()
		return m, false
	}
	n.index++
	m := n.entries[n.index]
	n.mu.Unlock()
	n.changes.Publish(m)
	return m, true
}

// Sync handles an external history event (browser back/forward): the path the client
// now shows is re-resolved. A neighbouring entry with the same URL becomes active;
// anything else is treated as a push.
func (n *Navigator) Sync(p string) Match {
	m := n.table.Resolve(p)
	n.mu.Lock()
	switch {
	case n.entries[n.index].URL() == m.URL():
		n.mu.Unlock()
		return m
	case n.index > 0 && n.entries[n.index-1].URL() == m.URL():
		n.index--
	case n.index < len(n.entries)-1 && n.entries[n.index+1].URL() == m.URL():
		n.index++
	default:
		n.mu.Unlock()
		return n.Navigate(p, false)
	}
	m = n.entries[n.index]
	n.mu.Unlock()
	n.changes.Publish(m)
	return m
}

// CanGoBack reports whether Back would move.
func (n *Navigator) CanGoBack() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.index > 0
}

// CanGoForward reports whether Forward would move.
func (n *Navigator) CanGoForward() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.index < len(n.entries)-1
}

// Len returns the number of history entries.
func (n *Navigator) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.entries)
}

// Subscribe receives the active match after every transition.
func (n *Navigator) Subscribe() (<-chan Match, func()) { return n.changes.Subscribe() }

// Close releases subscribers.
func (n *Navigator) Close() { n.changes.Close() }
