package catalog

import (
	"sync"
	"sync/atomic"
)

// Holder keeps the catalog currently in force. Readers never block; a reload
// swaps the pointer and notifies subscribers.
type Holder struct {
	current atomic.Pointer[Catalog]

	mu        sync.Mutex
	listeners []func(*Catalog)
}

// NewHolder returns a Holder serving c.
func NewHolder(c *Catalog) *Holder {
	h := &Holder{}
	h.current.Store(c)
	return h
}

// Load returns the current catalog.
func (h *Holder) Load() *Catalog {
	return h.current.Load()
}

// Store replaces the current catalog and runs the reload listeners when the
// version changed. Nil is ignored.
func (h *Holder) Store(c *Catalog) {
	if c == nil {
		return
	}
	old := h.current.Swap(c)
	if old != nil && old.Version() == c.Version() {
		return
	}
	h.mu.Lock()
	listeners := append([]func(*Catalog){}, h.listeners...)
	h.mu.Unlock()
	for _, fn := range listeners {
		fn(c)
	}
}

// OnReload registers fn to run after every catalog change.
func (h *Holder) OnReload(fn func(*Catalog)) {
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}
