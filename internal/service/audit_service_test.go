package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-shop-api/internal/event"
	"go-shop-api/internal/model"
)

func TestAuditService_RecordsBusEvents(t *testing.T) {
	store := &fakeAuditStore{}
	svc := NewAuditService(store)
	bus := event.NewBus()
	events, unsub := bus.Subscribe()

	done := make(chan struct{})
	go func() {
		svc.Run(context.Background(), events)
		close(done)
	}()

	bus.Publish(event.New(event.TypeOrderPlaced, 7, "order:1", map[string]any{"total_amount": "99.97"}))
	bus.Publish(event.Failure(event.TypeLoginFailed, 0, "", map[string]any{"reason": "unknown email"}))

	require.Eventually(t, func() bool { return len(store.snapshot()) == 2 }, time.Second, 10*time.Millisecond)
	unsub()
	<-done

	entries := store.snapshot()
	assert.Equal(t, "order.placed", entries[0].Action)
	assert.Equal(t, "success", entries[0].Status)
	require.NotNil(t, entries[0].UserID)
	assert.Equal(t, int64(7), *entries[0].UserID)

	assert.Equal(t, "failure", entries[1].Status)
	assert.Nil(t, entries[1].UserID)
}

func TestAuditService_QueryNormalizesPaging(t *testing.T) {
	store := &fakeAuditStore{}
	svc := NewAuditService(store)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, event.New(event.TypeUserLoggedIn, 7, "user:7", nil)))
	require.NoError(t, svc.Record(ctx, event.New(event.TypeUserLoggedIn, 8, "user:8", nil)))

	list, err := svc.Query(ctx, model.AuditQuery{UserID: 7, Page: 0, Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Pagination.Page)
	assert.Equal(t, 20, list.Pagination.Limit)
	require.Len(t, list.Entries, 1)
	assert.Equal(t, "user:7", list.Entries[0].Resource)
}
