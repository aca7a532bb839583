package session

import (
	"context"
	"testing"
	"time"

	"github.com/bizintake/onboarding-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConv(id string) *entity.ConversationContext {
	return &entity.ConversationContext{
		SessionID:     id,
		ExtractedInfo: map[string]string{},
		Business:      entity.NewBusinessInfo(),
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	store := NewMemoryStore(time.Minute, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newConv("s1")))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SessionID)

	err = store.Create(ctx, newConv("s1"))
	assert.ErrorIs(t, err, entity.ErrInvalidParameter)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore(time.Minute, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newConv("s1")))

	first, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	first.ExtractedInfo["company_name"] = "Acme"

	second, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, second.ExtractedInfo)
}

func TestMemoryStoreAcquireRelease(t *testing.T) {
	store := NewMemoryStore(time.Minute, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newConv("s1")))

	conv, err := store.Acquire(ctx, "s1")
	require.NoError(t, err)

	_, err = store.Acquire(ctx, "s1")
	assert.ErrorIs(t, err, entity.ErrSessionBusy)

	conv.CurrentQuestionIndex = 2
	require.NoError(t, store.Release(ctx, "s1", conv))

	reacquired, err := store.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, reacquired.CurrentQuestionIndex)
	require.NoError(t, store.Release(ctx, "s1", reacquired))
}

func TestMemoryStoreReleaseWithoutAcquire(t *testing.T) {
	store := NewMemoryStore(time.Minute, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newConv("s1")))

	err := store.Release(ctx, "s1", newConv("s1"))
	assert.ErrorIs(t, err, entity.ErrInvalidParameter)
}

func TestMemoryStoreAcquireUnknownSession(t *testing.T) {
	store := NewMemoryStore(time.Minute, time.Minute)

	_, err := store.Acquire(context.Background(), "missing")
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(20*time.Millisecond, time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newConv("s1")))

	assert.Eventually(t, func() bool {
		_, err := store.Get(ctx, "s1")
		return err != nil
	}, time.Second, 10*time.Millisecond)
}
