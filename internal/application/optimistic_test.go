package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/todopanel/internal/application"
	"github.com/ericfisherdev/todopanel/internal/domain/model"
	"github.com/ericfisherdev/todopanel/internal/domain/port/driven"
)

// gatedSend returns a SendFunc that blocks until gate is closed and then
// returns result or err.
func gatedSend(gate <-chan struct{}, result *model.Todo, err error) application.SendFunc {
	return func(ctx context.Context) (*model.Todo, error) {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return result, err
	}
}

func waitResolved(t *testing.T, p *application.Pending) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("mutation did not resolve")
	}
}

func newMutatorFixture() (*application.TodoCache, *application.Mutator) {
	cache := application.NewTodoCache()
	cache.Load([]model.Todo{todo(1, "a"), todo(2, "b")})
	return cache, application.NewMutator(cache, nil)
}

func TestMutator_PredictionVisibleBeforeReturn(t *testing.T) {
	cache, mutator := newMutatorFixture()
	gate := make(chan struct{})

	server := todo(1, "a-server")
	p := mutator.Apply(context.Background(), 1, todo(1, "a-predicted"), gatedSend(gate, &server, nil))

	got, _ := cache.Get(1)
	assert.Equal(t, "a-predicted", got.Title, "prediction is visible synchronously")

	snap, cached := p.Snapshot()
	assert.True(t, cached)
	assert.Equal(t, "a", snap.Value.Title)

	close(gate)
	result, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, "a-server", result.Title)

	got, _ = cache.Get(1)
	assert.Equal(t, "a-server", got.Title, "server record replaces the prediction")
}

func TestMutator_FailureRestoresSnapshot(t *testing.T) {
	cache, mutator := newMutatorFixture()
	gate := make(chan struct{})

	p := mutator.Apply(context.Background(), 1, todo(1, "a-predicted"), gatedSend(gate, nil, errBoom))
	close(gate)

	_, err := p.Wait()
	require.ErrorIs(t, err, driven.ErrServer)

	got, _ := cache.Get(1)
	assert.Equal(t, todo(1, "a"), got)
}

func TestMutator_OnlyTargetRecordTouched(t *testing.T) {
	cache, mutator := newMutatorFixture()
	gate := make(chan struct{})

	p := mutator.Apply(context.Background(), 1, todo(1, "a-predicted"), gatedSend(gate, nil, errBoom))
	other, _ := cache.Get(2)
	assert.Equal(t, todo(2, "b"), other)

	close(gate)
	waitResolved(t, p)

	other, _ = cache.Get(2)
	assert.Equal(t, todo(2, "b"), other)
}

func TestMutator_OlderSuccessDoesNotOverrideNewerPrediction(t *testing.T) {
	cache, mutator := newMutatorFixture()
	gate1, gate2 := make(chan struct{}), make(chan struct{})

	s1, s2 := todo(1, "first-server"), todo(1, "second-server")
	p1 := mutator.Apply(context.Background(), 1, todo(1, "first"), gatedSend(gate1, &s1, nil))
	p2 := mutator.Apply(context.Background(), 1, todo(1, "second"), gatedSend(gate2, &s2, nil))

	close(gate1)
	waitResolved(t, p1)
	got, _ := cache.Get(1)
	assert.Equal(t, "second", got.Title, "newest prediction stays visible")

	close(gate2)
	waitResolved(t, p2)
	got, _ = cache.Get(1)
	assert.Equal(t, "second-server", got.Title)
}

func TestMutator_NewerFailureRestoresConfirmedValue(t *testing.T) {
	cache, mutator := newMutatorFixture()
	gate1, gate2 := make(chan struct{}), make(chan struct{})

	s1 := todo(1, "first-server")
	p1 := mutator.Apply(context.Background(), 1, todo(1, "first"), gatedSend(gate1, &s1, nil))
	p2 := mutator.Apply(context.Background(), 1, todo(1, "second"), gatedSend(gate2, nil, errBoom))

	close(gate1)
	waitResolved(t, p1)
	close(gate2)
	waitResolved(t, p2)

	got, _ := cache.Get(1)
	assert.Equal(t, "first-server", got.Title, "rollback lands on the last confirmed value, not the stale snapshot")
}

func TestMutator_LateOlderSuccessKeepsNewerConfirmedValue(t *testing.T) {
	cache, mutator := newMutatorFixture()
	gate1, gate2 := make(chan struct{}), make(chan struct{})

	s1, s2 := todo(1, "first-server"), todo(1, "second-server")
	p1 := mutator.Apply(context.Background(), 1, todo(1, "first"), gatedSend(gate1, &s1, nil))
	p2 := mutator.Apply(context.Background(), 1, todo(1, "second"), gatedSend(gate2, &s2, nil))

	// Responses arrive newest first.
	close(gate2)
	waitResolved(t, p2)
	close(gate1)
	waitResolved(t, p1)

	got, _ := cache.Get(1)
	assert.Equal(t, "second-server", got.Title, "a late older response does not replace the newer one")

	p3 := mutator.Apply(context.Background(), 1, todo(1, "third"), gatedSend(closedGate(), nil, errBoom))
	snap, _ := p3.Snapshot()
	assert.Equal(t, "second-server", snap.Value.Title)

	_, err := p3.Wait()
	require.Error(t, err)

	got, _ = cache.Get(1)
	assert.Equal(t, snap.Value, got, "rollback lands on the pre-mutation value")
}

func TestMutator_NewerFailureThenOlderSuccessShowsServerValue(t *testing.T) {
	cache, mutator := newMutatorFixture()
	gate1, gate2 := make(chan struct{}), make(chan struct{})

	s1 := todo(1, "first-server")
	p1 := mutator.Apply(context.Background(), 1, todo(1, "first"), gatedSend(gate1, &s1, nil))
	p2 := mutator.Apply(context.Background(), 1, todo(1, "second"), gatedSend(gate2, nil, errBoom))

	close(gate2)
	waitResolved(t, p2)
	got, _ := cache.Get(1)
	assert.Equal(t, "a", got.Title, "nothing confirmed yet")

	close(gate1)
	waitResolved(t, p1)
	got, _ = cache.Get(1)
	assert.Equal(t, "first-server", got.Title, "the last resolution shows the server's state")
}

func TestMutator_StaleSnapshotAfterRemoveAndReinsert(t *testing.T) {
	cache, mutator := newMutatorFixture()
	staleGate, freshGate := make(chan struct{}), make(chan struct{})

	stale := todo(1, "stale-server")
	p1 := mutator.Apply(context.Background(), 1, todo(1, "before-remove"), gatedSend(staleGate, &stale, nil))

	cache.Remove(1)
	cache.Insert(todo(1, "reinserted"))

	p2 := mutator.Apply(context.Background(), 1, todo(1, "fresh-prediction"), gatedSend(freshGate, nil, errBoom))

	close(staleGate)
	waitResolved(t, p1)
	got, _ := cache.Get(1)
	assert.Equal(t, "fresh-prediction", got.Title, "a resolution from the removed entry is ignored")

	close(freshGate)
	waitResolved(t, p2)
	got, _ = cache.Get(1)
	assert.Equal(t, "reinserted", got.Title)
}

func TestTodoCache_InsertDuringMutationKeepsPrediction(t *testing.T) {
	cache, mutator := newMutatorFixture()
	gate := make(chan struct{})

	p := mutator.Apply(context.Background(), 1, todo(1, "predicted"), gatedSend(gate, nil, errBoom))
	cache.Insert(todo(1, "fetched"))

	got, _ := cache.Get(1)
	assert.Equal(t, "predicted", got.Title, "insert does not clobber an in-flight prediction")

	close(gate)
	waitResolved(t, p)

	got, _ = cache.Get(1)
	assert.Equal(t, "fetched", got.Title, "rollback restores the inserted server value")
}

func closedGate() chan struct{} {
	gate := make(chan struct{})
	close(gate)
	return gate
}

func TestMutator_OlderFailureKeepsNewerPrediction(t *testing.T) {
	cache, mutator := newMutatorFixture()
	gate1, gate2 := make(chan struct{}), make(chan struct{})

	s2 := todo(1, "second-server")
	p1 := mutator.Apply(context.Background(), 1, todo(1, "first"), gatedSend(gate1, nil, errBoom))
	p2 := mutator.Apply(context.Background(), 1, todo(1, "second"), gatedSend(gate2, &s2, nil))

	close(gate1)
	waitResolved(t, p1)
	got, _ := cache.Get(1)
	assert.Equal(t, "second", got.Title)

	close(gate2)
	waitResolved(t, p2)
	got, _ = cache.Get(1)
	assert.Equal(t, "second-server", got.Title)
}

func TestMutator_RemovedWhileInFlightIsNoOp(t *testing.T) {
	cache, mutator := newMutatorFixture()
	gate := make(chan struct{})

	server := todo(1, "a-server")
	p := mutator.Apply(context.Background(), 1, todo(1, "a-predicted"), gatedSend(gate, &server, nil))
	cache.Remove(1)

	close(gate)
	_, err := p.Wait()
	require.NoError(t, err)

	_, ok := cache.Get(1)
	assert.False(t, ok, "resolution must not resurrect a removed record")
}

func TestMutator_UncachedRecordStillSends(t *testing.T) {
	cache, mutator := newMutatorFixture()

	server := todo(9, "remote")
	p := mutator.Apply(context.Background(), 9, todo(9, "ignored"), func(context.Context) (*model.Todo, error) {
		return &server, nil
	})

	_, cached := p.Snapshot()
	assert.False(t, cached)

	result, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, "remote", result.Title)
	_, ok := cache.Get(9)
	assert.False(t, ok)
}

func TestMutator_CommitIsIdempotent(t *testing.T) {
	cache, mutator := newMutatorFixture()
	server := todo(1, "a-server")
	send := func(context.Context) (*model.Todo, error) { return &server, nil }

	_, err := mutator.Apply(context.Background(), 1, todo(1, "p1"), send).Wait()
	require.NoError(t, err)
	first, _ := cache.Get(1)

	_, err = mutator.Apply(context.Background(), 1, server, send).Wait()
	require.NoError(t, err)
	second, _ := cache.Get(1)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"a-server", "b"}, titles(cache.List()))
}

func TestMutator_NilResultIsFailure(t *testing.T) {
	cache, mutator := newMutatorFixture()

	_, err := mutator.Apply(context.Background(), 1, todo(1, "p"), func(context.Context) (*model.Todo, error) {
		return nil, nil
	}).Wait()
	require.Error(t, err)

	got, _ := cache.Get(1)
	assert.Equal(t, "a", got.Title)
}

func TestMutator_CanceledSendRollsBack(t *testing.T) {
	cache, mutator := newMutatorFixture()
	ctx, cancel := context.WithCancel(context.Background())

	p := mutator.Apply(ctx, 1, todo(1, "p"), gatedSend(make(chan struct{}), nil, nil))
	cancel()

	_, err := p.Wait()
	require.True(t, errors.Is(err, context.Canceled))

	got, _ := cache.Get(1)
	assert.Equal(t, "a", got.Title)
}

func TestTodoCache_LoadDuringMutationKeepsPrediction(t *testing.T) {
	cache, mutator := newMutatorFixture()
	gate := make(chan struct{})

	p := mutator.Apply(context.Background(), 1, todo(1, "predicted"), gatedSend(gate, nil, errBoom))
	cache.Load([]model.Todo{todo(1, "reloaded"), todo(2, "b")})

	got, _ := cache.Get(1)
	assert.Equal(t, "predicted", got.Title, "reload does not clobber an in-flight prediction")

	close(gate)
	waitResolved(t, p)

	got, _ = cache.Get(1)
	assert.Equal(t, "reloaded", got.Title, "rollback restores the freshest confirmed value")
}
