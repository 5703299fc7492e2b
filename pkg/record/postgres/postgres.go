// Package postgres provides a PostgreSQL-backed [record.Store].
//
// The schema is managed with goose migrations embedded from migrations/*.sql.
// Migrations run through a database/sql handle opened on top of the same
// pgx pool that serves queries, so a Store holds a single set of
// connections.
//
//	store, err := postgres.New(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/MrWong99/intervox/pkg/record"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is a PostgreSQL-backed [record.Store]. It is safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to dsn, verifies the connection and applies all pending
// migrations.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("record postgres: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("record postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("record postgres: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Migrate applies the embedded goose migrations using pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("record postgres: migrations fs: %w", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("record postgres: goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("record postgres: migrate: %w", err)
	}
	return nil
}

// Ping checks connectivity. It backs the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const upsertRecord = `
INSERT INTO interview_records (
    interview_id, interview_type, role_title, company, duration_minutes,
    total_exchanges, conversation, final_feedback, config, recorded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (interview_id) DO UPDATE SET
    interview_type   = EXCLUDED.interview_type,
    role_title       = EXCLUDED.role_title,
    company          = EXCLUDED.company,
    duration_minutes = EXCLUDED.duration_minutes,
    total_exchanges  = EXCLUDED.total_exchanges,
    conversation     = EXCLUDED.conversation,
    final_feedback   = EXCLUDED.final_feedback,
    config           = EXCLUDED.config,
    recorded_at      = EXCLUDED.recorded_at`

// Save upserts r.
func (s *Store) Save(ctx context.Context, r *record.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	conv := r.Conversation
	if conv == nil {
		conv = []record.Exchange{}
	}
	convJSON, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("record postgres: marshal conversation: %w", err)
	}
	var cfg []byte
	if len(r.Config) > 0 {
		cfg = []byte(r.Config)
	}

	_, err = s.pool.Exec(ctx, upsertRecord,
		r.InterviewID, r.InterviewType, r.RoleTitle, r.Company, r.DurationMinutes,
		r.TotalExchanges, convJSON, r.FinalFeedback, cfg, r.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("record postgres: save %s: %w", r.InterviewID, err)
	}
	return nil
}

// Get returns the record for id or [record.ErrNotFound].
func (s *Store) Get(ctx context.Context, id string) (*record.Record, error) {
	const q = `
SELECT interview_id, interview_type, role_title, company, duration_minutes,
       total_exchanges, conversation, final_feedback, config, recorded_at
FROM interview_records WHERE interview_id = $1`

	var (
		r        record.Record
		convJSON []byte
		cfg      []byte
	)
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&r.InterviewID, &r.InterviewType, &r.RoleTitle, &r.Company, &r.DurationMinutes,
		&r.TotalExchanges, &convJSON, &r.FinalFeedback, &cfg, &r.Timestamp,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, record.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("record postgres: get %s: %w", id, err)
	}
	if err := json.Unmarshal(convJSON, &r.Conversation); err != nil {
		return nil, fmt.Errorf("record postgres: decode conversation: %w", err)
	}
	if len(cfg) > 0 {
		r.Config = json.RawMessage(cfg)
	}
	return &r, nil
}

// List returns summaries newest first.
func (s *Store) List(ctx context.Context, limit int) ([]record.Summary, error) {
	q := `
SELECT interview_id, interview_type, role_title, duration_minutes, total_exchanges, recorded_at
FROM interview_records ORDER BY recorded_at DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("record postgres: list: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (record.Summary, error) {
		var sum record.Summary
		err := row.Scan(&sum.InterviewID, &sum.InterviewType, &sum.RoleTitle,
			&sum.DurationMinutes, &sum.TotalExchanges, &sum.Timestamp)
		return sum, err
	})
	if err != nil {
		return nil, fmt.Errorf("record postgres: list: %w", err)
	}
	return out, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

var _ record.Store = (*Store)(nil)
