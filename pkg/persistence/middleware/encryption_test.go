package middleware

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onrampd/onramp/pkg/adapters/memory"
	"github.com/onrampd/onramp/pkg/domain"
	"github.com/onrampd/onramp/pkg/ports"
)

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func TestEncryptionContract(t *testing.T) {
	store := Chain(memory.NewStore(), NewEncryptionMiddleware(EncryptionConfig{
		ActiveKey: testKey(1),
	}))
	ports.RunStateStoreContract(t, store)
}

func TestEncryptionHidesInputsAtRest(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewStore()
	store := Chain(inner, NewEncryptionMiddleware(EncryptionConfig{ActiveKey: testKey(1)}))

	state := domain.NewExecutionState("subj-1", "kyc", "intake")
	state.Inputs["full_name"] = domain.String("Ada Lovelace")
	require.NoError(t, store.Save(ctx, "subj-1", state))

	// The inner store sees only the envelope.
	raw, err := inner.Load(ctx, "subj-1")
	require.NoError(t, err)
	assert.Equal(t, "subj-1", raw.SubjectID)
	assert.Equal(t, "kyc", raw.ProcessID)
	assert.Empty(t, raw.CurrentStepID)
	assert.NotContains(t, raw.Inputs, "full_name")
	assert.Contains(t, raw.Inputs, "__encrypted__")

	// The wrapped store round-trips the real record.
	loaded, err := store.Load(ctx, "subj-1")
	require.NoError(t, err)
	assert.Equal(t, "intake", loaded.CurrentStepID)
	assert.True(t, loaded.Inputs["full_name"].Equal(domain.String("Ada Lovelace")))
}

func TestEncryptionKeyRotation(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewStore()

	oldStore := Chain(inner, NewEncryptionMiddleware(EncryptionConfig{ActiveKey: testKey(1)}))
	require.NoError(t, oldStore.Save(ctx, "subj-1", domain.NewExecutionState("subj-1", "kyc", "intake")))

	// New active key with the old one as fallback still reads old records.
	rotated := Chain(inner, NewEncryptionMiddleware(EncryptionConfig{
		ActiveKey:    testKey(2),
		FallbackKeys: [][]byte{testKey(1)},
	}))
	loaded, err := rotated.Load(ctx, "subj-1")
	require.NoError(t, err)
	assert.Equal(t, "intake", loaded.CurrentStepID)

	// Without the fallback the record is unreadable.
	wrongKey := Chain(inner, NewEncryptionMiddleware(EncryptionConfig{ActiveKey: testKey(3)}))
	_, err = wrongKey.Load(ctx, "subj-1")
	assert.Error(t, err)
}

func TestEncryptionRejectsPlaintextRecords(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewStore()
	require.NoError(t, inner.Save(ctx, "subj-1", domain.NewExecutionState("subj-1", "kyc", "intake")))

	store := Chain(inner, NewEncryptionMiddleware(EncryptionConfig{ActiveKey: testKey(1)}))
	_, err := store.Load(ctx, "subj-1")
	assert.Error(t, err)
}

func TestEncryptionBadKeyLengthPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewEncryptionMiddleware(EncryptionConfig{ActiveKey: []byte("short")})
	})
}
