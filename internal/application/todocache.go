// Package application contains use-case orchestration services.
package application

import (
	"sync"
	"time"

	"github.com/ericfisherdev/todopanel/internal/domain/model"
)

// cacheEntry tracks one todo. visible is what readers see; confirmed is the
// newest value the server returned. gen counts optimistic predictions so that
// only the newest one may change visible; confirmedGen is the generation that
// produced confirmed, so a late older response cannot overwrite a newer one.
type cacheEntry struct {
	visible      model.Todo
	confirmed    model.Todo
	gen          uint64
	confirmedGen uint64
	inflight     int
}

func (e *cacheEntry) settle() {
	if e.inflight > 0 {
		e.inflight--
	}
}

// reconfirm takes a server value that is at least as fresh as every resolved
// prediction. With nothing in flight it also becomes visible.
func (e *cacheEntry) reconfirm(t model.Todo) {
	e.confirmed = t
	e.confirmedGen = e.gen
	if e.inflight == 0 {
		e.visible = t
	}
}

// TodoCache is the local copy of the user's todos, addressed by ID. All
// methods are safe for concurrent use.
type TodoCache struct {
	mu       sync.Mutex
	entries  map[int64]*cacheEntry
	order    []int64
	loadedAt time.Time
}

// NewTodoCache creates an empty cache.
func NewTodoCache() *TodoCache {
	return &TodoCache{entries: make(map[int64]*cacheEntry)}
}

// Load replaces the cache with a server listing, preserving the given order.
// Entries with a mutation in flight keep their visible prediction and take
// the loaded value as their confirmed value.
func (c *TodoCache) Load(todos []model.Todo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make(map[int64]*cacheEntry, len(todos))
	order := make([]int64, 0, len(todos))
	for _, t := range todos {
		if _, dup := entries[t.ID]; dup {
			continue
		}
		order = append(order, t.ID)

		if prev, ok := c.entries[t.ID]; ok && prev.inflight > 0 {
			prev.reconfirm(t)
			entries[t.ID] = prev
			continue
		}
		entries[t.ID] = &cacheEntry{visible: t, confirmed: t}
	}

	c.entries = entries
	c.order = order
	c.loadedAt = time.Now()
}

// Get returns the visible value for id.
func (c *TodoCache) Get(id int64) (model.Todo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return model.Todo{}, false
	}
	return e.visible, true
}

// List returns the visible values in display order.
func (c *TodoCache) List() []model.Todo {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Todo, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id].visible)
	}
	return out
}

// Len returns the number of cached todos.
func (c *TodoCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// LoadedAt returns when Load last ran. Zero if never loaded.
func (c *TodoCache) LoadedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadedAt
}

// Insert adds a server-confirmed todo at the front. An existing entry with the
// same ID is updated in place; a prediction in flight on it stays visible.
func (c *TodoCache) Insert(t model.Todo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[t.ID]; ok {
		e.reconfirm(t)
		return
	}
	c.entries[t.ID] = &cacheEntry{visible: t, confirmed: t}
	c.order = append([]int64{t.ID}, c.order...)
}

// Remove drops id from the cache. In-flight mutations on it resolve as no-ops.
func (c *TodoCache) Remove(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[id]; !ok {
		return
	}
	delete(c.entries, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// predict makes value visible for id and returns the snapshot it replaced.
// Returns false when id is not cached.
func (c *TodoCache) predict(id int64, value model.Todo) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return Snapshot{ID: id}, false
	}

	e.gen++
	e.inflight++
	snap := Snapshot{ID: id, Value: e.visible, Gen: e.gen, entry: e}
	e.visible = value
	return snap, true
}

// entryFor returns the entry snap was taken from, or nil if that entry has
// since been removed, even when the ID was cached again afterwards.
func (c *TodoCache) entryFor(snap Snapshot) *cacheEntry {
	e, ok := c.entries[snap.ID]
	if !ok || e != snap.entry {
		return nil
	}
	return e
}

// commit records the server's value for a resolved prediction. confirmed only
// moves forward in generation order; visible shows the result when this was
// the newest prediction or the last one to resolve.
func (c *TodoCache) commit(snap Snapshot, server model.Todo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryFor(snap)
	if e == nil {
		return
	}
	e.settle()
	if snap.Gen >= e.confirmedGen {
		e.confirmed = server
		e.confirmedGen = snap.Gen
	}
	if e.gen == snap.Gen || e.inflight == 0 {
		e.visible = e.confirmed
	}
}

// rollback undoes a failed prediction. The newest prediction, or the last one
// to resolve, restores the confirmed value; an older one still superseded by
// a pending prediction leaves visible alone.
func (c *TodoCache) rollback(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryFor(snap)
	if e == nil {
		return
	}
	e.settle()
	if e.gen == snap.Gen || e.inflight == 0 {
		e.visible = e.confirmed
	}
}
