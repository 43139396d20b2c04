package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onrampd/onramp/pkg/domain"
)

// RunStateStoreContract verifies that a StateStore implementation adheres
// to the interface contract. Every adapter's test file runs this suite.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	subjectID := "contract-subject-" + time.Now().Format("20060102150405")

	t.Run("save and load round trip", func(t *testing.T) {
		state := domain.NewExecutionState(subjectID, "kyc-individual", "collect_basics")
		state.Inputs["full_name"] = domain.String("Ada Lovelace")
		state.Inputs["risk"] = domain.Number(42)
		state.Inputs["accepted_terms"] = domain.Bool(true)
		state.Inputs["countries"] = domain.List(domain.String("GB"), domain.String("DE"))

		require.NoError(t, store.Save(ctx, subjectID, state))

		loaded, err := store.Load(ctx, subjectID)
		require.NoError(t, err)
		assert.Equal(t, state.SubjectID, loaded.SubjectID)
		assert.Equal(t, state.ProcessID, loaded.ProcessID)
		assert.Equal(t, state.CurrentStepID, loaded.CurrentStepID)
		assert.Equal(t, state.Inputs, loaded.Inputs)
		// Empty-but-present collections survive the round trip.
		require.NotNil(t, loaded.CompletedSteps)
		assert.Empty(t, loaded.CompletedSteps)
	})

	t.Run("load non-existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+subjectID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("save overwrites fully", func(t *testing.T) {
		first := domain.NewExecutionState(subjectID, "kyc-individual", "collect_basics")
		first.Inputs["stale"] = domain.String("value")
		require.NoError(t, store.Save(ctx, subjectID, first))

		second := domain.NewExecutionState(subjectID, "kyc-individual", "review")
		require.NoError(t, store.Save(ctx, subjectID, second))

		loaded, err := store.Load(ctx, subjectID)
		require.NoError(t, err)
		assert.Equal(t, "review", loaded.CurrentStepID)
		assert.NotContains(t, loaded.Inputs, "stale")
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, subjectID, domain.NewExecutionState(subjectID, "kyc-individual", "collect_basics")))
		require.NoError(t, store.Delete(ctx, subjectID))

		_, err := store.Load(ctx, subjectID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		// Deleting again is not an error.
		assert.NoError(t, store.Delete(ctx, subjectID))
	})

	t.Run("list", func(t *testing.T) {
		id1 := subjectID + "-1"
		id2 := subjectID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewExecutionState(id1, "kyc-individual", "collect_basics")))
		require.NoError(t, store.Save(ctx, id2, domain.NewExecutionState(id2, "kyc-individual", "collect_basics")))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		subjects, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, subjects, id1)
		assert.Contains(t, subjects, id2)
	})
}
