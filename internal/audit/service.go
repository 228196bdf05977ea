// Package audit keeps the append-only log of PIN authorization attempts.
// Writes are best-effort observability: callers log a failed insert and move
// on, they never roll back the mutation the attempt protected.
package audit

import (
	"context"
	"fmt"
	"log/slog"
)

// Store abstracts persistence so services can run against the in-memory
// implementation in tests.
type Store interface {
	Insert(ctx context.Context, e Entry) error
	Window(ctx context.Context, f Filters, limit, offset int) ([]Entry, error)
}

// Service coordinates audit log reads and writes.
type Service struct {
	store   Store
	logger  *slog.Logger
	counter func(status string)
}

// NewService constructs the audit service.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// WithCounter installs a per-status metrics hook, called once per recorded
// entry.
func (s *Service) WithCounter(fn func(status string)) *Service {
	s.counter = fn
	return s
}

// Record appends an entry. Errors are swallowed after logging; the audit log
// is not a consistency boundary.
func (s *Service) Record(ctx context.Context, e Entry) {
	if s == nil || s.store == nil {
		return
	}
	if s.counter != nil {
		s.counter(string(e.Status))
	}
	if err := s.store.Insert(ctx, e); err != nil && s.logger != nil {
		s.logger.Error("audit insert failed",
			slog.String("action", e.Action),
			slog.String("status", string(e.Status)),
			slog.Any("error", err))
	}
}

// Timeline fetches matching entries with paging, newest first.
func (s *Service) Timeline(ctx context.Context, f Filters) (Result, error) {
	if s == nil || s.store == nil {
		return Result{}, fmt.Errorf("audit: store not configured")
	}
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	// one probe row past the page tells us whether a next page exists
	rows, err := s.store.Window(ctx, f, pageSize+1, offset)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}
