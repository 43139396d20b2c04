package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onrampd/onramp/pkg/adapters/memory"
	"github.com/onrampd/onramp/pkg/domain"
	"github.com/onrampd/onramp/pkg/ports"
)

// slowStore wraps a store with an artificial delay and detects overlapping
// round trips for the same subject.
type slowStore struct {
	ports.StateStore
	delay    time.Duration
	inFlight int32
	overlap  int32
}

func (s *slowStore) Save(ctx context.Context, subjectID string, state *domain.ExecutionState) error {
	if atomic.AddInt32(&s.inFlight, 1) > 1 {
		atomic.StoreInt32(&s.overlap, 1)
	}
	time.Sleep(s.delay)
	atomic.AddInt32(&s.inFlight, -1)
	return s.StateStore.Save(ctx, subjectID, state)
}

func (s *slowStore) Load(ctx context.Context, subjectID string) (*domain.ExecutionState, error) {
	if atomic.AddInt32(&s.inFlight, 1) > 1 {
		atomic.StoreInt32(&s.overlap, 1)
	}
	time.Sleep(s.delay)
	atomic.AddInt32(&s.inFlight, -1)
	return s.StateStore.Load(ctx, subjectID)
}

func TestInitializeCreatesSession(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(memory.NewStore())

	state, err := manager.Initialize(ctx, "subj-1", "kyc", "intake")
	require.NoError(t, err)
	assert.Equal(t, "subj-1", state.SubjectID)
	assert.Equal(t, "kyc", state.ProcessID)
	assert.Equal(t, "intake", state.CurrentStepID)
	assert.NotNil(t, state.Inputs)
	assert.NotNil(t, state.CompletedSteps)
}

func TestInitializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(memory.NewStore())

	_, err := manager.Initialize(ctx, "subj-1", "kyc", "intake")
	require.NoError(t, err)

	// Advance the session and collect an input.
	_, err = manager.Update(ctx, "subj-1", func(state *domain.ExecutionState) error {
		state.Inputs["full_name"] = domain.String("Ada Lovelace")
		state.CurrentStepID = "review"
		return nil
	})
	require.NoError(t, err)

	// A second Initialize must return the existing record untouched.
	state, err := manager.Initialize(ctx, "subj-1", "kyc", "intake")
	require.NoError(t, err)
	assert.Equal(t, "review", state.CurrentStepID)
	assert.True(t, state.Inputs["full_name"].Equal(domain.String("Ada Lovelace")))
}

func TestUpdateRequiresExistingSession(t *testing.T) {
	manager := NewManager(memory.NewStore())

	_, err := manager.Update(context.Background(), "ghost", func(state *domain.ExecutionState) error {
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestUpdateMutateErrorAbortsSave(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(memory.NewStore())

	_, err := manager.Initialize(ctx, "subj-1", "kyc", "intake")
	require.NoError(t, err)

	boom := errors.New("mutate failed")
	_, err = manager.Update(ctx, "subj-1", func(state *domain.ExecutionState) error {
		state.CurrentStepID = "should-not-persist"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	state, err := manager.Load(ctx, "subj-1")
	require.NoError(t, err)
	assert.Equal(t, "intake", state.CurrentStepID)
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	store := &slowStore{StateStore: memory.NewStore(), delay: 5 * time.Millisecond}
	manager := NewManager(store)

	_, err := manager.Initialize(ctx, "subj-1", "kyc", "intake")
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Update(ctx, "subj-1", func(state *domain.ExecutionState) error {
				state.MarkCompleted("step-" + state.UpdatedAt.String())
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&store.overlap),
		"store round trips for one subject must never interleave")
}

func TestConcurrentUpdatesLoseNoWrites(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(memory.NewStore())

	_, err := manager.Initialize(ctx, "subj-1", "kyc", "intake")
	require.NoError(t, err)

	const writers = 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := manager.Update(ctx, "subj-1", func(state *domain.ExecutionState) error {
				state.MarkCompleted(stepName(n))
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	state, err := manager.Load(ctx, "subj-1")
	require.NoError(t, err)
	assert.Len(t, state.CompletedSteps, writers, "every load-mutate-save cycle must land")
}

func stepName(n int) string {
	return "step-" + string(rune('a'+n/10)) + string(rune('0'+n%10))
}

// recordingLocker counts distributed lock round trips.
type recordingLocker struct {
	mu       sync.Mutex
	acquired int
	released int
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	l.acquired++
	l.mu.Unlock()
	return func(ctx context.Context) error {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
		return nil
	}, nil
}

func TestWithLockerAcquiresAndReleases(t *testing.T) {
	ctx := context.Background()
	locker := &recordingLocker{}
	manager := NewManager(memory.NewStore(), WithLocker(locker))

	_, err := manager.Initialize(ctx, "subj-1", "kyc", "intake")
	require.NoError(t, err)
	_, err = manager.Load(ctx, "subj-1")
	require.NoError(t, err)

	locker.mu.Lock()
	defer locker.mu.Unlock()
	assert.Equal(t, 2, locker.acquired)
	assert.Equal(t, 2, locker.released)
}

func TestDeleteRemovesSession(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(memory.NewStore())

	_, err := manager.Initialize(ctx, "subj-1", "kyc", "intake")
	require.NoError(t, err)
	require.NoError(t, manager.Delete(ctx, "subj-1"))

	_, err = manager.Load(ctx, "subj-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
