package batch

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/blackwell-systems/wpbatch/internal/store"
)

// LogSink receives one structured record per processed item. The SQLite
// store implements it; tests substitute an in-memory capture.
type LogSink interface {
	AppendLogEntry(e *store.LogEntry) error
}

// Processor runs a list of items through the ItemProcessor strictly in
// input order, one at a time. A failure in one item never blocks the next;
// partial failure is reported through the per-item results.
type Processor struct {
	items *ItemProcessor
	logs  LogSink

	// OnItem, when set, is called after each item finishes, before the
	// next one starts. Used to drive per-item progress display.
	OnItem func(ProcessResult)
}

// NewProcessor creates a batch Processor.
func NewProcessor(items *ItemProcessor, logs LogSink) *Processor {
	return &Processor{items: items, logs: logs}
}

// ProcessBatch applies all items sequentially and returns the per-item
// results in input order plus the aggregate summary. batchID and userID are
// carried into the update log only.
func (p *Processor) ProcessBatch(batchID string, items []PackageItem, dryRun bool, userID string) ([]ProcessResult, BatchSummary) {
	results := make([]ProcessResult, 0, len(items))

	for i := range items {
		res := p.items.Process(&items[i], dryRun)
		results = append(results, res)
		p.logResult(batchID, userID, &res)
		if p.OnItem != nil {
			p.OnItem(res)
		}
	}

	return results, Summarize(results)
}

// logResult appends one update-log record. Logging failures are non-fatal:
// the batch outcome must not depend on the log sink.
func (p *Processor) logResult(batchID, userID string, res *ProcessResult) {
	if p.logs == nil {
		return
	}

	entry := &store.LogEntry{
		Action:      string(res.Action),
		BatchID:     batchID,
		Slug:        res.Slug,
		Name:        res.Name,
		FromVersion: res.FromVersion,
		ToVersion:   res.ToVersion,
		Status:      string(res.Status),
		Message:     strings.Join(res.Messages, "; "),
		IsDryRun:    res.DryRun,
		UserID:      userID,
		Timestamp:   time.Now(),
	}

	if err := p.logs.AppendLogEntry(entry); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to log result for %s: %v\n", res.Slug, err)
	}
}
