package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// DBPool abstracts pgxpool.Pool so the store can be mocked in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// Store persists rows into Postgres. The natural key is (unit, date_iso,
// process_id); re-running a cell updates the descriptive fields in place and
// never multiplies rows.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

const createHearingsTable = `
	CREATE TABLE IF NOT EXISTS hearings (
		unit          TEXT NOT NULL,
		date_iso      DATE NOT NULL,
		process_id    TEXT NOT NULL,
		session_label TEXT NOT NULL DEFAULT '',
		judge         TEXT NOT NULL DEFAULT '',
		claimant      TEXT NOT NULL DEFAULT '',
		respondent    TEXT NOT NULL DEFAULT '',
		generated_at  TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (unit, date_iso, process_id)
	);
`

const upsertHearing = `
	INSERT INTO hearings (unit, date_iso, process_id, session_label, judge, claimant, respondent, generated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (unit, date_iso, process_id) DO UPDATE SET
		session_label = EXCLUDED.session_label,
		judge         = EXCLUDED.judge,
		claimant      = EXCLUDED.claimant,
		respondent    = EXCLUDED.respondent,
		generated_at  = EXCLUDED.generated_at;
`

// NewStore verifies the connection and ensures the schema exists.
func NewStore(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		pool: pool,
		log:  logger.Named("store"),
	}
	if _, err := pool.Exec(ctx, createHearingsTable); err != nil {
		return nil, fmt.Errorf("failed to ensure hearings table: %w", err)
	}
	return s, nil
}

// UpsertRows writes all rows in one transaction. The key columns are never
// updated on conflict, only the descriptive fields and the generation
// timestamp.
func (s *Store) UpsertRows(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	for _, row := range rows {
		_, err := tx.Exec(ctx, upsertHearing,
			row.Unit, row.DateISO, row.ProcessID,
			row.SessionLabel, row.Judge, row.Claimant, row.Respondent,
			row.GeneratedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert hearing %s/%s/%s: %w", row.Unit, row.DateISO, row.ProcessID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.Info("Rows persisted.", zap.Int("rows", len(rows)))
	return nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}
