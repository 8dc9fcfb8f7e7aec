// Gatekeeper - Zero Trust Access Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatekeeper

package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver
	"github.com/goccy/go-json"

	"github.com/tomtom215/gatekeeper/internal/logging"
	"github.com/tomtom215/gatekeeper/internal/models"
)

// DuckDBStore persists entries in a DuckDB table keyed by attempt ID.
// The summary columns serve filtering; the full entry is kept as JSON.
type DuckDBStore struct {
	db     *sql.DB
	ownsDB bool
}

// OpenDuckDBStore opens the database file at path and ensures the schema.
func OpenDuckDBStore(ctx context.Context, path string) (*DuckDBStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb audit store: %w", err)
	}
	store := &DuckDBStore{db: db, ownsDB: true}
	if err := store.CreateTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewDuckDBStore wraps an open connection. Call CreateTable before use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// CreateTable creates the audit table and its indexes if missing.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS audit_entries (
			attempt_id TEXT PRIMARY KEY,
			principal TEXT NOT NULL,
			outcome TEXT NOT NULL,
			risk_score INTEGER NOT NULL,
			reason TEXT NOT NULL,
			source_ip TEXT,
			device_fingerprint TEXT,
			city TEXT,
			country TEXT,
			attempted_at TIMESTAMPTZ NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL,
			entry TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_audit_entries_principal ON audit_entries(principal);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_recorded_at ON audit_entries(recorded_at);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_outcome ON audit_entries(outcome)
	`

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute audit schema statement: %w", err)
		}
	}

	logging.Debug().Msg("Audit entries table created/verified")
	return nil
}

func (s *DuckDBStore) Save(ctx context.Context, entry *models.AuditEntry) (bool, error) {
	if entry == nil {
		return false, errors.New("audit entry cannot be nil")
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return false, fmt.Errorf("marshal audit entry: %w", err)
	}

	var city, country string
	if entry.Attempt.Location != nil {
		city = entry.Attempt.Location.City
		country = entry.Attempt.Location.Country
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (
			attempt_id, principal, outcome, risk_score, reason, source_ip,
			device_fingerprint, city, country, attempted_at, recorded_at, entry
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (attempt_id) DO NOTHING`,
		entry.AttemptID,
		strings.ToLower(strings.TrimSpace(entry.Principal)),
		string(entry.Decision.Outcome),
		entry.Decision.RiskScore,
		entry.Decision.Reason,
		entry.Attempt.IP,
		entry.Attempt.DeviceFingerprint,
		city,
		country,
		entry.Attempt.Timestamp.UTC(),
		entry.RecordedAt.UTC(),
		string(payload),
	)
	if err != nil {
		return false, fmt.Errorf("failed to save audit entry: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		// The insert succeeded; only the row count is unknown.
		return true, nil
	}
	return affected > 0, nil
}

func (s *DuckDBStore) Get(ctx context.Context, attemptID string) (*models.AuditEntry, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT entry FROM audit_entries WHERE attempt_id = ?", attemptID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit entry: %w", err)
	}
	return decodeEntry(payload)
}

func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) ([]models.AuditEntry, error) {
	filter = filter.normalized()

	where, args := buildWhere(filter)
	query := "SELECT entry FROM audit_entries" + where +
		fmt.Sprintf(" ORDER BY recorded_at DESC, attempt_id DESC LIMIT %d OFFSET %d", filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]models.AuditEntry, 0, filter.Limit)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry, err := decodeEntry(payload)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, nil
}

func (s *DuckDBStore) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	where, args := buildWhere(filter)
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_entries"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}

// Close closes the connection if this store opened it.
func (s *DuckDBStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

func buildWhere(filter QueryFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Principal != "" {
		conditions = append(conditions, "principal = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(filter.Principal)))
	}
	if filter.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "recorded_at >= ?")
		args = append(args, filter.Since.UTC())
	}
	if !filter.Until.IsZero() {
		conditions = append(conditions, "recorded_at <= ?")
		args = append(args, filter.Until.UTC())
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func decodeEntry(payload string) (*models.AuditEntry, error) {
	var entry models.AuditEntry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return nil, fmt.Errorf("failed to decode audit entry: %w", err)
	}
	return &entry, nil
}

var (
	_ Store = (*DuckDBStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
