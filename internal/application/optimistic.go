package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ericfisherdev/todopanel/internal/domain/model"
)

var errEmptyResult = errors.New("server returned no record")

// Snapshot is the value a todo had before a prediction was applied over it.
type Snapshot struct {
	ID    int64
	Value model.Todo
	Gen   uint64

	entry *cacheEntry
}

// SendFunc performs the server call for a mutation and returns the
// authoritative record.
type SendFunc func(ctx context.Context) (*model.Todo, error)

// Pending is an in-flight optimistic mutation.
type Pending struct {
	snapshot Snapshot
	cached   bool
	done     chan struct{}
	result   *model.Todo
	err      error
}

// Done is closed once the mutation has been committed or rolled back.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the mutation resolves and returns the server record or
// the error that caused the rollback.
func (p *Pending) Wait() (*model.Todo, error) {
	<-p.done
	return p.result, p.err
}

// Snapshot returns the pre-mutation value. Cached is false when the todo was
// not in the cache and no prediction was shown.
func (p *Pending) Snapshot() (snap Snapshot, cached bool) {
	return p.snapshot, p.cached
}

// Mutator applies predicted todo values before the server confirms them.
type Mutator struct {
	cache  *TodoCache
	logger *slog.Logger
}

// NewMutator creates a Mutator over cache.
func NewMutator(cache *TodoCache, logger *slog.Logger) *Mutator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mutator{cache: cache, logger: logger}
}

// Apply makes predicted visible for id before returning, then runs send in the
// background. On success the server record replaces the prediction; on
// failure the confirmed value is restored and the error is reported through
// Pending.Wait. Only id is ever touched.
func (m *Mutator) Apply(ctx context.Context, id int64, predicted model.Todo, send SendFunc) *Pending {
	snap, cached := m.cache.predict(id, predicted)
	p := &Pending{snapshot: snap, cached: cached, done: make(chan struct{})}

	go func() {
		defer close(p.done)

		result, err := send(ctx)
		if err == nil && result == nil {
			err = errEmptyResult
		}
		if err != nil {
			if cached {
				m.cache.rollback(snap)
			}
			m.logger.Debug("optimistic mutation rolled back", "todo_id", id, "error", err)
			p.err = err
			return
		}

		if cached {
			m.cache.commit(snap, *result)
		}
		p.result = result
	}()

	return p
}
