package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Manifest operations

// InsertManifest stores a batch manifest and its plugin rows in one
// transaction. An existing manifest with the same batch id is replaced.
func (s *Store) InsertManifest(m *BatchManifest) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	manifestQuery := `
		INSERT OR REPLACE INTO batch_manifests
		(batch_id, user_id, created_at, expires_at, total, installed, updated, failed, incompatible, rolled_back)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.Exec(manifestQuery,
		m.BatchID,
		m.UserID,
		m.CreatedAt.Format(time.RFC3339),
		m.ExpiresAt.Format(time.RFC3339),
		m.Summary.Total,
		m.Summary.Installed,
		m.Summary.Updated,
		m.Summary.Failed,
		m.Summary.Incompatible,
		m.Summary.RolledBack,
	)
	if err != nil {
		return fmt.Errorf("failed to insert manifest %s: %w", m.BatchID, err)
	}

	// Replace any rows left over from an earlier manifest with this id.
	if _, err := tx.Exec(`DELETE FROM manifest_plugins WHERE batch_id = ?`, m.BatchID); err != nil {
		return fmt.Errorf("failed to clear plugin rows for %s: %w", m.BatchID, err)
	}

	rowQuery := `
		INSERT INTO manifest_plugins
		(batch_id, position, slug, action, previous_version, new_version, backup_path, status, descriptor, activated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for i, row := range m.Plugins {
		_, err := tx.Exec(rowQuery,
			m.BatchID,
			i,
			row.Slug,
			row.Action,
			row.PreviousVersion,
			row.NewVersion,
			row.BackupPath,
			row.Status,
			row.Descriptor,
			row.Activated,
		)
		if err != nil {
			return fmt.Errorf("failed to insert plugin row %s for %s: %w", row.Slug, m.BatchID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit manifest %s: %w", m.BatchID, err)
	}

	return nil
}

// GetManifest retrieves a manifest with its plugin rows in recorded order.
// A missing batch id returns (nil, nil); expiry is the caller's concern.
func (s *Store) GetManifest(batchID string) (*BatchManifest, error) {
	query := `
		SELECT batch_id, user_id, created_at, expires_at, total, installed, updated, failed, incompatible, rolled_back
		FROM batch_manifests
		WHERE batch_id = ?
	`

	var m BatchManifest
	var createdAt, expiresAt string

	err := s.db.QueryRow(query, batchID).Scan(
		&m.BatchID,
		&m.UserID,
		&createdAt,
		&expiresAt,
		&m.Summary.Total,
		&m.Summary.Installed,
		&m.Summary.Updated,
		&m.Summary.Failed,
		&m.Summary.Incompatible,
		&m.Summary.RolledBack,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get manifest %s: %w", batchID, err)
	}

	m.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at for %s: %w", batchID, err)
	}
	m.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expires_at for %s: %w", batchID, err)
	}

	rowQuery := `
		SELECT slug, action, previous_version, new_version, backup_path, status, descriptor, activated
		FROM manifest_plugins
		WHERE batch_id = ?
		ORDER BY position
	`

	rows, err := s.db.Query(rowQuery, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get plugin rows for %s: %w", batchID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var row PluginRecord
		err := rows.Scan(
			&row.Slug,
			&row.Action,
			&row.PreviousVersion,
			&row.NewVersion,
			&row.BackupPath,
			&row.Status,
			&row.Descriptor,
			&row.Activated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plugin row: %w", err)
		}
		m.Plugins = append(m.Plugins, &row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plugin rows: %w", err)
	}

	return &m, nil
}

// DeleteManifest removes a manifest and, via cascade, its plugin rows.
// Deleting an absent manifest is not an error.
func (s *Store) DeleteManifest(batchID string) error {
	_, err := s.db.Exec(`DELETE FROM batch_manifests WHERE batch_id = ?`, batchID)
	if err != nil {
		return fmt.Errorf("failed to delete manifest %s: %w", batchID, err)
	}
	return nil
}

// Active batch registry operations

// AddActiveBatch registers a batch id as rollback-eligible. Idempotent:
// adding an already-present id is a no-op, never a duplicate.
func (s *Store) AddActiveBatch(batchID string) error {
	query := `
		INSERT OR IGNORE INTO active_batches (batch_id, added_at)
		VALUES (?, ?)
	`

	_, err := s.db.Exec(query, batchID, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to register batch %s: %w", batchID, err)
	}

	return nil
}

// RemoveActiveBatch drops a batch id from the registry. Removing an absent
// id is not an error.
func (s *Store) RemoveActiveBatch(batchID string) error {
	_, err := s.db.Exec(`DELETE FROM active_batches WHERE batch_id = ?`, batchID)
	if err != nil {
		return fmt.Errorf("failed to deregister batch %s: %w", batchID, err)
	}
	return nil
}

// ListActiveBatches returns all registered batch ids, oldest first.
func (s *Store) ListActiveBatches() ([]string, error) {
	rows, err := s.db.Query(`SELECT batch_id FROM active_batches ORDER BY added_at, batch_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active batches: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan batch id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating active batches: %w", err)
	}

	return ids, nil
}

// Update log operations

// AppendLogEntry appends one record to the update log.
func (s *Store) AppendLogEntry(e *LogEntry) error {
	query := `
		INSERT INTO update_log
		(action, batch_id, slug, name, from_version, to_version, status, message, is_dry_run, user_id, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		e.Action,
		e.BatchID,
		e.Slug,
		e.Name,
		e.FromVersion,
		e.ToVersion,
		e.Status,
		e.Message,
		e.IsDryRun,
		e.UserID,
		e.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}

	return nil
}

// ListLogEntries returns update-log records newest first, with limit/offset
// paging for the log command.
func (s *Store) ListLogEntries(limit, offset int) ([]*LogEntry, error) {
	query := `
		SELECT id, action, batch_id, slug, name, from_version, to_version, status, message, is_dry_run, user_id, timestamp
		FROM update_log
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list log entries: %w", err)
	}
	defer rows.Close()

	var entries []*LogEntry
	for rows.Next() {
		var e LogEntry
		var timestamp string

		err := rows.Scan(
			&e.ID,
			&e.Action,
			&e.BatchID,
			&e.Slug,
			&e.Name,
			&e.FromVersion,
			&e.ToVersion,
			&e.Status,
			&e.Message,
			&e.IsDryRun,
			&e.UserID,
			&timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}

		e.Timestamp, err = time.Parse(time.RFC3339, timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse log timestamp: %w", err)
		}

		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating log entries: %w", err)
	}

	return entries, nil
}
