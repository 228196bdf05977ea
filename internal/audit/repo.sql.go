package audit

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for pin_action_logs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one audit row.
func (r *Repository) Insert(ctx context.Context, e Entry) error {
	if r == nil || r.pool == nil {
		return errors.New("audit: repository not initialised")
	}
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO pin_action_logs (outlet_id, actor_id, action, status, target, detail, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, e.OutletID, e.ActorID, e.Action, string(e.Status), e.Target, e.Detail, at)
	return err
}

// Window returns up to limit rows matching the filters, newest first.
// Zero-valued filters are ignored inside the query.
func (r *Repository) Window(ctx context.Context, f Filters, limit, offset int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, outlet_id, actor_id, action, status, target, detail, occurred_at
FROM pin_action_logs
WHERE ($1 = 0 OR outlet_id = $1)
  AND ($2 = '' OR action = $2)
  AND ($3 = '' OR status = $3)
  AND ($4::timestamptz IS NULL OR occurred_at >= $4)
  AND ($5::timestamptz IS NULL OR occurred_at <= $5)
ORDER BY occurred_at DESC, id DESC
LIMIT $6 OFFSET $7`,
		f.OutletID, f.Action, string(f.Status), nullTime(f.From), nullTime(f.To), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var status string
		if err := rows.Scan(&e.ID, &e.OutletID, &e.ActorID, &e.Action, &status, &e.Target, &e.Detail, &e.At); err != nil {
			return nil, err
		}
		e.Status = Status(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
