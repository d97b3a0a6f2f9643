package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/locator-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scans (
	id          TEXT PRIMARY KEY,
	retailer    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	result      TEXT,
	error       TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_scans_retailer ON scans(retailer);
CREATE INDEX IF NOT EXISTS idx_scans_status ON scans(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateScan(ctx context.Context, retailer string) (*model.ScanRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (id, retailer, status, created_at) VALUES (?, ?, ?, ?)`,
		id, retailer, string(model.ScanStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert scan for %s", retailer)
	}

	return &model.ScanRun{
		ID:        id,
		Retailer:  retailer,
		Status:    model.ScanStatusRunning,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteScan(ctx context.Context, scanID string, result *model.ScanResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal scan result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET status = ?, result = ?, finished_at = ? WHERE id = ?`,
		string(model.ScanStatusComplete), string(resultJSON), time.Now().UTC(), scanID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete scan %s", scanID)
	}
	return checkRowsAffected(res, scanID)
}

func (s *SQLiteStore) FailScan(ctx context.Context, scanID string, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(model.ScanStatusFailed), reason, time.Now().UTC(), scanID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail scan %s", scanID)
	}
	return checkRowsAffected(res, scanID)
}

func (s *SQLiteStore) GetScan(ctx context.Context, scanID string) (*model.ScanRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, retailer, status, result, error, created_at, finished_at FROM scans WHERE id = ?`,
		scanID,
	)
	return scanScanRow(row)
}

func (s *SQLiteStore) ListScans(ctx context.Context, filter ScanFilter) ([]model.ScanRun, error) {
	query := `SELECT id, retailer, status, result, error, created_at, finished_at FROM scans WHERE 1=1`
	var args []any

	if filter.Retailer != "" {
		query += ` AND retailer = ?`
		args = append(args, filter.Retailer)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scans")
	}
	defer rows.Close()

	var runs []model.ScanRun
	for rows.Next() {
		r, err := scanScanRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list scans iterate")
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("scan not found: %s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanScanRow(row scannable) (*model.ScanRun, error) {
	var r model.ScanRun
	var resultJSON, errMsg sql.NullString
	var finishedAt sql.NullTime

	err := row.Scan(&r.ID, &r.Retailer, &r.Status, &resultJSON, &errMsg, &r.CreatedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("scan not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan row")
	}

	if resultJSON.Valid {
		r.Result = &model.ScanResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal scan result")
		}
	}
	if errMsg.Valid {
		r.Error = errMsg.String
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		r.FinishedAt = &t
	}
	return &r, nil
}
