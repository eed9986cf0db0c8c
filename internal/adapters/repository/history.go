package repository

import "sync"

const defaultHistorySize = 50

// History keeps the most recent items by ID, evicting the oldest once full.
type History[T any] struct {
	mu    sync.RWMutex
	size  int
	order []string
	items map[string]T
}

// NewHistory creates a history holding at most size items. size <= 0 uses the default.
func NewHistory[T any](size int) *History[T] {
	if size <= 0 {
		size = defaultHistorySize
	}
	return &History[T]{size: size, items: make(map[string]T, size)}
}

// Put inserts or replaces the item for id. Replacing keeps its position.
func (h *History[T]) Put(id string, v T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.items[id]; !ok {
		if len(h.order) >= h.size {
			oldest := h.order[0]
			h.order = h.order[1:]
			delete(h.items, oldest)
		}
		h.order = append(h.order, id)
	}
	h.items[id] = v
}

// Get returns the item for id.
func (h *History[T]) Get(id string) (T, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.items[id]
	return v, ok
}

// Recent returns up to n items, newest first. n <= 0 returns all.
func (h *History[T]) Recent(n int) []T {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || n > len(h.order) {
		n = len(h.order)
	}
	out := make([]T, 0, n)
	for i := len(h.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.items[h.order[i]])
	}
	return out
}

// Len returns the number of items held.
func (h *History[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.order)
}

// Delete removes the item for id.
func (h *History[T]) Delete(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.items[id]; !ok {
		return
	}
	delete(h.items, id)
	for i, v := range h.order {
		if v == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}
