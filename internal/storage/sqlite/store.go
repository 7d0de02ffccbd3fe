// Package sqlite persists collected service records so metering runs can
// be replayed and audited without re-querying the remote store.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/stackmeter/stackmeter/internal/transform"
	"github.com/stackmeter/stackmeter/internal/window"
)

// Store is a SQLite-backed archive of collected service records.
type Store struct {
	db *sqlx.DB
}

// CollectedRecord is one archived collection run for one resource type.
type CollectedRecord struct {
	ID        string     `db:"id"`
	Resource  string     `db:"resource"`
	ProjectID string     `db:"project_id"`
	StartedAt time.Time  `db:"started_at"`
	EndedAt   *time.Time `db:"ended_at"`
	Payload   []byte     `db:"payload"`
	CreatedAt time.Time  `db:"created_at"`
}

// ServiceRecord decodes the archived payload.
func (r *CollectedRecord) ServiceRecord() (transform.ServiceRecord, error) {
	var rec transform.ServiceRecord
	if err := json.Unmarshal(r.Payload, &rec); err != nil {
		return transform.ServiceRecord{}, fmt.Errorf("decode payload of record %s: %w", r.ID, err)
	}
	return rec, nil
}

// Open creates or opens the archive at path.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS service_records (
			id TEXT PRIMARY KEY,
			resource TEXT NOT NULL,
			project_id TEXT,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP,
			payload TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_service_records_resource ON service_records(resource)`,
		`CREATE INDEX IF NOT EXISTS idx_service_records_started ON service_records(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

// Save archives one collected service record and returns its identifier.
func (s *Store) Save(ctx context.Context, rec transform.ServiceRecord, w window.TimeWindow, projectID string) (string, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal service record: %w", err)
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO service_records (id, resource, project_id, started_at, ended_at, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, rec.Service, projectID, w.Start, w.End, payload, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert service record: %w", err)
	}
	return id, nil
}

// ListByResource returns the most recent archived records for a resource
// type, newest first.
func (s *Store) ListByResource(ctx context.Context, resource string, limit int) ([]CollectedRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []CollectedRecord
	err := s.db.SelectContext(ctx, &records,
		`SELECT id, resource, project_id, started_at, ended_at, payload, created_at
		 FROM service_records WHERE resource = ? ORDER BY created_at DESC LIMIT ?`,
		resource, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list service records: %w", err)
	}
	return records, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
