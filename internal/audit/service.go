package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TimelineFilters narrows the activity listing.
type TimelineFilters struct {
	ActorID int64
	Entity  string
	From    time.Time
	To      time.Time
	Page    int
	PerPage int
}

// Service reads the activity timeline for the dashboard.
type Service struct {
	pool *pgxpool.Pool
}

// NewService builds Service instance.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// Timeline returns matching entries, newest first, plus the total count.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) ([]Entry, int, error) {
	if filters.PerPage <= 0 || filters.PerPage > maxPageSize {
		filters.PerPage = defaultPageSize
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}

	where := `WHERE ($1 = 0 OR actor_id = $1)
		AND ($2 = '' OR entity = $2)
		AND ($3::timestamptz IS NULL OR occurred_at >= $3)
		AND ($4::timestamptz IS NULL OR occurred_at <= $4)`
	args := []any{filters.ActorID, filters.Entity, nullableTime(filters.From), nullableTime(filters.To)}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (filters.Page - 1) * filters.PerPage
	rows, err := s.pool.Query(ctx,
		`SELECT actor_id, action, entity, entity_id, meta, occurred_at FROM audit_logs `+where+
			` ORDER BY occurred_at DESC LIMIT $5 OFFSET $6`,
		append(args, filters.PerPage, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var metaJSON []byte
		if err := rows.Scan(&entry.ActorID, &entry.Action, &entry.Entity, &entry.EntityID, &metaJSON, &entry.At); err != nil {
			return nil, 0, err
		}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &entry.Meta)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Trim deletes entries older than the retention window and reports how many.
func (s *Service) Trim(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	tag, err := s.pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
