package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staycal/internal/app/middleware"
	appoutbox "staycal/internal/app/outbox"
	"staycal/internal/app/uow"
)

func TestUnitStagesOutboxUntilCommit(t *testing.T) {
	var published []string
	box := NewOutbox(appoutbox.PublisherFunc(func(ctx context.Context, rec appoutbox.EventRecord) error {
		published = append(published, rec.ID)
		return nil
	}))
	factory := Factory{ListingsRepo: NewListingRepository(), CalendarStore: NewCalendarStore(), Outbox: box}
	ctx := context.Background()

	rolledBack, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, rolledBack.Outbox().Add(ctx, appoutbox.EventRecord{ID: "a"}))
	require.NoError(t, rolledBack.Rollback(ctx))

	committed, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, committed.Outbox().Add(ctx, appoutbox.EventRecord{ID: "b"}))
	assert.Empty(t, box.Pending())
	require.NoError(t, committed.Commit(ctx))
	assert.Len(t, box.Pending(), 1)

	require.NoError(t, committed.Outbox().Flush(ctx))
	assert.Equal(t, []string{"b"}, published)
	assert.Empty(t, box.Pending())

	readOnly, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	assert.Nil(t, readOnly.Outbox())
}

func TestFactoryRequiresRepositories(t *testing.T) {
	_, err := Factory{}.Begin(context.Background(), uow.TxOptions{})
	assert.ErrorIs(t, err, ErrFactoryMisconfigured)
}

func TestOutboxKeepsFailedRecords(t *testing.T) {
	fail := errors.New("broker down")
	calls := 0
	box := NewOutbox(appoutbox.PublisherFunc(func(ctx context.Context, rec appoutbox.EventRecord) error {
		calls++
		if rec.ID == "2" && calls < 3 {
			return fail
		}
		return nil
	}))
	ctx := context.Background()
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: id}))
	}

	assert.ErrorIs(t, box.Flush(ctx), fail)
	pending := box.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "2", pending[0].ID)

	require.NoError(t, box.Flush(ctx))
	assert.Empty(t, box.Pending())
}

func TestIdempotencyStoreKeepsFirstRecord(t *testing.T) {
	store := NewIdempotencyStore()
	ctx := context.Background()
	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Save(ctx, middleware.IdempotencyRecord{Key: "k", Payload: []byte("1")}))
	require.NoError(t, store.Save(ctx, middleware.IdempotencyRecord{Key: "k", Payload: []byte("2")}))
	rec, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("1"), rec.Payload)
}
