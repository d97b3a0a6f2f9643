package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/locator-cli/internal/model"
	"github.com/sells-group/locator-cli/internal/resilience"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool. The initial
// ping is retried because shared databases routinely drop the first
// connection attempt after idling.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}

	err = resilience.Do(ctx, resilience.DefaultRetryConfig(), "postgres ping",
		func(ctx context.Context) error {
			if pingErr := pool.Ping(ctx); pingErr != nil {
				return resilience.NewTransientError(pingErr, 0)
			}
			return nil
		})
	if err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scans (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	retailer    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	result      JSONB,
	error       TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_scans_retailer ON scans(retailer);
CREATE INDEX IF NOT EXISTS idx_scans_status ON scans(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateScan(ctx context.Context, retailer string) (*model.ScanRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO scans (id, retailer, status, created_at) VALUES ($1, $2, $3, $4)`,
		id, retailer, string(model.ScanStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert scan for %s", retailer)
	}

	return &model.ScanRun{
		ID:        id,
		Retailer:  retailer,
		Status:    model.ScanStatusRunning,
		CreatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteScan(ctx context.Context, scanID string, result *model.ScanResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal scan result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE scans SET status = $1, result = $2, finished_at = $3 WHERE id = $4`,
		string(model.ScanStatusComplete), resultJSON, time.Now().UTC(), scanID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete scan %s", scanID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("scan not found: %s", scanID)
	}
	return nil
}

func (s *PostgresStore) FailScan(ctx context.Context, scanID string, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scans SET status = $1, error = $2, finished_at = $3 WHERE id = $4`,
		string(model.ScanStatusFailed), reason, time.Now().UTC(), scanID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail scan %s", scanID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("scan not found: %s", scanID)
	}
	return nil
}

func (s *PostgresStore) GetScan(ctx context.Context, scanID string) (*model.ScanRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, retailer, status, result, error, created_at, finished_at FROM scans WHERE id = $1`,
		scanID,
	)
	r, err := scanPostgresRow(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get scan %s", scanID)
	}
	return r, nil
}

func (s *PostgresStore) ListScans(ctx context.Context, filter ScanFilter) ([]model.ScanRun, error) {
	query := `SELECT id, retailer, status, result, error, created_at, finished_at FROM scans WHERE 1=1`
	var args []any

	if filter.Retailer != "" {
		args = append(args, filter.Retailer)
		query += ` AND retailer = $1`
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scans")
	}
	defer rows.Close()

	var runs []model.ScanRun
	for rows.Next() {
		r, err := scanPostgresRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list scans scan row")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list scans iterate")
}

func scanPostgresRow(row pgx.Row) (*model.ScanRun, error) {
	var r model.ScanRun
	var resultJSON []byte
	var errMsg *string
	var finishedAt *time.Time

	err := row.Scan(&r.ID, &r.Retailer, &r.Status, &resultJSON, &errMsg, &r.CreatedAt, &finishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.New("scan not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan row")
	}

	if len(resultJSON) > 0 {
		r.Result = &model.ScanResult{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "unmarshal scan result")
		}
	}
	if errMsg != nil {
		r.Error = *errMsg
	}
	r.FinishedAt = finishedAt
	return &r, nil
}
