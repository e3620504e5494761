// Package batch applies install/update operations to a list of plugin
// items, one at a time, with backup-before-mutate safety around updates
// and per-item status tracking.
package batch

// Action is the operation requested for one plugin item.
type Action string

const (
	ActionInstall Action = "install"
	ActionUpdate  Action = "update"
)

// Status is the outcome of processing one item.
type Status string

const (
	StatusSuccess      Status = "success"
	StatusFailed       Status = "failed"
	StatusIncompatible Status = "incompatible"
	StatusSkipped      Status = "skipped"
)

// PackageItem is one plugin operation supplied by the caller.
type PackageItem struct {
	Slug             string
	Action           Action
	Name             string
	TargetVersion    string
	InstalledVersion string // only meaningful for updates
	SourcePath       string // staged archive or extracted directory
	Descriptor       string // installer-addressable handle, e.g. "akismet/akismet.php"
	Activate         *bool  // nil defers to the auto_activate config
	NetworkWide      bool
	RequiresWP       string
	RequiresPHP      string

	// CompatibilityIssues is produced by the compatibility checker before
	// processing; a non-empty list short-circuits the item to incompatible.
	CompatibilityIssues []string
}

// ShouldActivate resolves the tri-state activation request: an explicit
// item setting wins, otherwise the global auto-activate default applies.
func (it *PackageItem) ShouldActivate(autoActivate bool) bool {
	if it.Activate != nil {
		return *it.Activate
	}
	return autoActivate
}

// ProcessResult is the immutable outcome of processing one item.
type ProcessResult struct {
	Slug        string
	Action      Action
	Name        string
	FromVersion string
	ToVersion   string
	Status      Status
	Activated   bool
	RolledBack  bool
	DryRun      bool
	BackupPath  string
	Descriptor  string
	Messages    []string
}

// BatchSummary aggregates counts over a batch's results. Each result's
// status maps to exactly one of the four status buckets; RolledBack counts
// overlap Failed.
type BatchSummary struct {
	Total        int
	Installed    int
	Updated      int
	Failed       int
	Incompatible int
	RolledBack   int
}

// Summarize folds results into a BatchSummary.
func Summarize(results []ProcessResult) BatchSummary {
	var s BatchSummary
	s.Total = len(results)

	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			if r.Action == ActionInstall {
				s.Installed++
			} else {
				s.Updated++
			}
		case StatusFailed:
			s.Failed++
		case StatusIncompatible:
			s.Incompatible++
		}
		if r.RolledBack {
			s.RolledBack++
		}
	}

	return s
}

// ExitCode classifies a result list for non-interactive callers:
// 0 all-success, 2 all-failure (zero successes, at least one attempted),
// 1 mixed. An empty batch is a caller error and classifies as all-failure.
func ExitCode(results []ProcessResult) int {
	if len(results) == 0 {
		return 2
	}

	successes := 0
	for _, r := range results {
		if r.Status == StatusSuccess {
			successes++
		}
	}

	switch successes {
	case len(results):
		return 0
	case 0:
		return 2
	default:
		return 1
	}
}
