package store

import "time"

// BatchManifest is the persisted record of a completed batch, used to
// support later whole-batch rollback until it expires.
type BatchManifest struct {
	BatchID   string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	Summary   BatchTotals
	Plugins   []*PluginRecord
}

// BatchTotals holds the aggregate counts of one batch run.
type BatchTotals struct {
	Total        int
	Installed    int
	Updated      int
	Failed       int
	Incompatible int
	RolledBack   int
}

// PluginRecord is one per-item row of a batch manifest, in input order.
type PluginRecord struct {
	Slug            string
	Action          string
	PreviousVersion string
	NewVersion      string
	BackupPath      string
	Status          string
	Descriptor      string
	Activated       bool
}

// LogEntry is one append-only record of the update log.
type LogEntry struct {
	ID          int64
	Action      string
	BatchID     string
	Slug        string
	Name        string
	FromVersion string
	ToVersion   string
	Status      string
	Message     string
	IsDryRun    bool
	UserID      string
	Timestamp   time.Time
}
