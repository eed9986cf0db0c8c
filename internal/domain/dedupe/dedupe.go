// Package dedupe maps idempotency keys to the evaluation run they started.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

const defaultMaxSize = 1024

// Deduper remembers which run an idempotency key triggered.
type Deduper interface {
	// SeenOrRecord returns the run recorded for key and true, or records runID
	// under key and returns it with false. The check and the insert are atomic.
	SeenOrRecord(ctx context.Context, key, runID string) (string, bool)

	// Forget removes key so a retry can start a new run. Used when the trigger
	// recorded a key but the run could not be started.
	Forget(ctx context.Context, key string)

	Size() int
}

type entry struct {
	key   string
	runID string
}

// inMemoryDeduper evicts the oldest key once maxSize is reached. maxSize <= 0
// keeps every key.
type inMemoryDeduper struct {
	mu      sync.Mutex
	keys    map[string]*list.Element
	order   *list.List
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.keys = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenOrRecord(_ context.Context, key, runID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.keys[key]; ok {
		return el.Value.(entry).runID, true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.keys, oldest.Value.(entry).key)
	}
	d.keys[key] = d.order.PushBack(entry{key: key, runID: runID})
	return runID, false
}

func (d *inMemoryDeduper) Forget(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.keys[key]; ok {
		d.order.Remove(el)
		delete(d.keys, key)
	}
}

func (d *inMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}
