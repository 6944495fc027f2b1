package models

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/welddesk/reports_backend/config"
)

// bulkDeleteConcurrency caps the number of in-flight store deletes.
const bulkDeleteConcurrency = 8

// DeleteSelected deletes every given report from the store. Deletes run
// concurrently and independently: one rejected delete never blocks the
// siblings. The returned deleted ids are safe to remove from local state;
// failed maps the ids the store rejected to their errors so the caller can
// surface them (they stay visible in the journal).
//
// Admin-gated like every destructive journal operation.
func DeleteSelected(ctx context.Context, store ReportStore, policy AuthorizationPolicy, selected []Report) (deleted []string, failed map[string]error, err error) {
	if err := requireAdmin(ctx, policy); err != nil {
		return nil, nil, err
	}

	logger := config.GetLogger()
	failed = map[string]error{}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkDeleteConcurrency)
	for _, report := range selected {
		report := report
		g.Go(func() error {
			if delErr := store.DeleteReport(gctx, report.Id); delErr != nil {
				config.LogError(logger, "selection.go", "DeleteSelected", "store.DeleteReport", map[string]any{
					"report_id": report.Id,
				}, delErr)
				mu.Lock()
				failed[report.Id] = delErr
				mu.Unlock()
				// Per-item failures are collected, not propagated: returning
				// the error would cancel the sibling deletes.
				return nil
			}
			mu.Lock()
			deleted = append(deleted, report.Id)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return deleted, failed, nil
}

// OpenSelected resolves the detail view target: the first selected report's
// id, or false when nothing is selected.
func OpenSelected(selected []Report) (string, bool) {
	if len(selected) == 0 {
		return "", false
	}
	return selected[0].Id, true
}
