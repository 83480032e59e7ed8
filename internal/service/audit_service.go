package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go-shop-api/internal/event"
	"go-shop-api/internal/model"
)

type AuditStore interface {
	Log(ctx context.Context, entry model.AuditEntry) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, int, error)
}

// AuditService persists security and order events taken off the bus.
type AuditService struct {
	store        AuditStore
	writeTimeout time.Duration
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store, writeTimeout: 5 * time.Second}
}

// Run blocks until events is closed or ctx is cancelled.
func (s *AuditService) Run(ctx context.Context, events <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := s.Record(ctx, e); err != nil {
				slog.Error("failed to persist audit entry", "event_type", e.Type, "event_id", e.ID, "error", err)
			}
		}
	}
}

func (s *AuditService) Record(ctx context.Context, e event.Event) error {
	entry := model.AuditEntry{
		ID:         e.ID,
		Action:     string(e.Type),
		OccurredAt: e.Timestamp,
		Status:     "success",
		Resource:   e.Resource,
		Details:    e.Payload,
	}
	if e.Failed {
		entry.Status = "failure"
	}
	if e.ActorID > 0 {
		actor := e.ActorID
		entry.UserID = &actor
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()

	return s.store.Log(writeCtx, entry)
}

func (s *AuditService) Query(ctx context.Context, query model.AuditQuery) (model.AuditList, error) {
	query.Page, query.Limit = normalizePage(query.Page, query.Limit)

	entries, total, err := s.store.Query(ctx, query)
	if err != nil {
		return model.AuditList{}, fmt.Errorf("query audit entries: %w", err)
	}

	return model.AuditList{Entries: entries, Pagination: model.NewPagination(query.Page, query.Limit, total)}, nil
}
