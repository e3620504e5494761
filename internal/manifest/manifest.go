// Package manifest persists the outcome of completed batches and drives
// time-limited whole-batch rollback: restoring pre-update backups and
// removing installed plugins, row by row, with partial-failure tolerance.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blackwell-systems/wpbatch/internal/backup"
	"github.com/blackwell-systems/wpbatch/internal/batch"
	"github.com/blackwell-systems/wpbatch/internal/config"
	"github.com/blackwell-systems/wpbatch/internal/store"
)

// Manager records batch manifests, resolves them while they are still
// within their retention window, and replays them in reverse on rollback.
type Manager struct {
	store   *store.Store
	backups *backup.Store
	cfg     *config.Config

	// now is swappable for expiry tests.
	now func() time.Time
}

// New creates a manifest Manager.
func New(st *store.Store, backups *backup.Store, cfg *config.Config) *Manager {
	return &Manager{
		store:   st,
		backups: backups,
		cfg:     cfg,
		now:     time.Now,
	}
}

// RollbackOutcome reports a whole-batch rollback. Success is true only when
// every eligible row rolled back cleanly.
type RollbackOutcome struct {
	BatchID  string
	Success  bool
	Results  []RollbackRow
	Failures []string
}

// RollbackRow is the outcome of rolling back one manifest row.
type RollbackRow struct {
	Slug    string
	Action  string // restore, remove, or the original action for skipped rows
	Status  string
	Message string
}

// RecordBatch persists the manifest of a completed non-dry-run batch and
// registers its id as rollback-eligible. The expiry is the configured
// retention from now; non-positive retention defaults to 24 hours.
func (m *Manager) RecordBatch(batchID string, results []batch.ProcessResult, userID string) (*store.BatchManifest, error) {
	if batchID == "" {
		return nil, fmt.Errorf("batch id is required")
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("batch %s has no results to record", batchID)
	}

	summary := batch.Summarize(results)
	created := m.now()

	manifest := &store.BatchManifest{
		BatchID:   batchID,
		UserID:    userID,
		CreatedAt: created,
		ExpiresAt: created.Add(time.Duration(m.cfg.RetentionHours()) * time.Hour),
		Summary: store.BatchTotals{
			Total:        summary.Total,
			Installed:    summary.Installed,
			Updated:      summary.Updated,
			Failed:       summary.Failed,
			Incompatible: summary.Incompatible,
			RolledBack:   summary.RolledBack,
		},
	}

	for _, r := range results {
		manifest.Plugins = append(manifest.Plugins, &store.PluginRecord{
			Slug:            r.Slug,
			Action:          string(r.Action),
			PreviousVersion: r.FromVersion,
			NewVersion:      r.ToVersion,
			BackupPath:      r.BackupPath,
			Status:          string(r.Status),
			Descriptor:      r.Descriptor,
			Activated:       r.Activated,
		})
	}

	if err := m.store.InsertManifest(manifest); err != nil {
		return nil, err
	}
	if err := m.store.AddActiveBatch(batchID); err != nil {
		return nil, err
	}

	return manifest, nil
}

// GetBatchManifest returns the manifest for batchID, or nil when it is
// absent or past its expiry.
func (m *Manager) GetBatchManifest(batchID string) (*store.BatchManifest, error) {
	manifest, err := m.store.GetManifest(batchID)
	if err != nil {
		return nil, err
	}
	if manifest == nil || manifest.ExpiresAt.Before(m.now()) {
		return nil, nil
	}
	return manifest, nil
}

// RollbackBatch undoes a recorded batch row by row: successful updates get
// their backups restored, successful installs get their directories
// removed, everything else is skipped. One row's failure never stops the
// remaining rows. The manifest and registry entry are removed regardless of
// the outcome, and a batch_rollback record is logged.
func (m *Manager) RollbackBatch(batchID string) (*RollbackOutcome, error) {
	out := &RollbackOutcome{BatchID: batchID}

	manifest, err := m.GetBatchManifest(batchID)
	if err != nil {
		return nil, err
	}
	if manifest == nil {
		out.Failures = append(out.Failures,
			fmt.Sprintf("batch %s not found or expired; nothing to roll back", batchID))
		return out, nil
	}

	for _, row := range manifest.Plugins {
		out.Results = append(out.Results, m.rollbackRow(row, out))
	}

	out.Success = len(out.Failures) == 0

	if err := m.store.DeleteManifest(batchID); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to delete manifest %s: %v\n", batchID, err)
	}
	if err := m.store.RemoveActiveBatch(batchID); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to deregister batch %s: %v\n", batchID, err)
	}

	m.logRollback(manifest, out)

	return out, nil
}

// rollbackRow undoes one manifest row, accumulating failures on out.
func (m *Manager) rollbackRow(row *store.PluginRecord, out *RollbackOutcome) RollbackRow {
	// Rows that never succeeded have nothing to undo.
	if row.Status != string(batch.StatusSuccess) {
		return RollbackRow{
			Slug:    row.Slug,
			Action:  row.Action,
			Status:  string(batch.StatusSkipped),
			Message: fmt.Sprintf("item finished as %s; nothing to roll back", row.Status),
		}
	}

	if row.Action == string(batch.ActionUpdate) {
		// A successful update row without a backup path is a manifest
		// inconsistency and a reportable failure, not a silent skip.
		if row.BackupPath == "" {
			msg := fmt.Sprintf("%s: no backup recorded for updated plugin", row.Slug)
			out.Failures = append(out.Failures, msg)
			return RollbackRow{
				Slug:    row.Slug,
				Action:  "restore",
				Status:  string(batch.StatusFailed),
				Message: msg,
			}
		}

		installDir := m.installDir(row.Slug)
		if err := m.backups.RestoreBackup(row.BackupPath, installDir); err != nil {
			msg := fmt.Sprintf("%s: restore failed: %v", row.Slug, err)
			out.Failures = append(out.Failures, msg)
			return RollbackRow{
				Slug:    row.Slug,
				Action:  "restore",
				Status:  string(batch.StatusFailed),
				Message: msg,
			}
		}

		m.backups.CleanupBackup(row.BackupPath)
		return RollbackRow{
			Slug:    row.Slug,
			Action:  "restore",
			Status:  string(batch.StatusSuccess),
			Message: fmt.Sprintf("restored %s %s", row.Slug, row.PreviousVersion),
		}
	}

	// Fresh installs are undone by removing the installed directory;
	// best-effort, there is no prior state to miss.
	m.backups.RemovePartialInstall(m.installDir(row.Slug))
	return RollbackRow{
		Slug:    row.Slug,
		Action:  "remove",
		Status:  string(batch.StatusSuccess),
		Message: fmt.Sprintf("removed %s", row.Slug),
	}
}

// GetActiveBatches resolves the registry to manifests, silently dropping
// ids whose manifest has expired or vanished. Expiry is expected, not
// exceptional; pruning stale ids is left to CleanupExpired so the sweep
// stays the single place backups are reaped.
func (m *Manager) GetActiveBatches() ([]*store.BatchManifest, error) {
	ids, err := m.store.ListActiveBatches()
	if err != nil {
		return nil, err
	}

	var manifests []*store.BatchManifest
	for _, id := range ids {
		manifest, err := m.GetBatchManifest(id)
		if err != nil {
			return nil, err
		}
		if manifest != nil {
			manifests = append(manifests, manifest)
		}
	}

	return manifests, nil
}

// CleanupExpired sweeps the registry: batches whose manifest is gone or
// past its expiry get every recorded backup deleted and their id dropped.
// Valid batches are untouched. Returns the ids that were swept.
func (m *Manager) CleanupExpired() ([]string, error) {
	ids, err := m.store.ListActiveBatches()
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, id := range ids {
		manifest, err := m.store.GetManifest(id)
		if err != nil {
			return removed, err
		}

		if manifest != nil && !manifest.ExpiresAt.Before(m.now()) {
			continue
		}

		if manifest != nil {
			for _, row := range manifest.Plugins {
				if row.BackupPath != "" {
					m.backups.CleanupBackup(row.BackupPath)
				}
			}
			if err := m.store.DeleteManifest(id); err != nil {
				return removed, err
			}
		}

		if err := m.store.RemoveActiveBatch(id); err != nil {
			return removed, err
		}
		removed = append(removed, id)
	}

	return removed, nil
}

// logRollback appends the batch_rollback record. Non-fatal on failure.
func (m *Manager) logRollback(manifest *store.BatchManifest, out *RollbackOutcome) {
	status := string(batch.StatusSuccess)
	if !out.Success {
		status = string(batch.StatusFailed)
	}

	entry := &store.LogEntry{
		Action:    "batch_rollback",
		BatchID:   manifest.BatchID,
		Status:    status,
		Message:   fmt.Sprintf("rolled back %d rows, %d failures", len(out.Results), len(out.Failures)),
		UserID:    manifest.UserID,
		Timestamp: m.now(),
	}

	if err := m.store.AppendLogEntry(entry); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to log rollback of %s: %v\n", manifest.BatchID, err)
	}
}

// installDir is the plugin's installed directory under the plugins root.
func (m *Manager) installDir(slug string) string {
	return filepath.Join(m.cfg.PluginDir, slug)
}
