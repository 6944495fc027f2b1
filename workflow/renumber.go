package workflow

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bsm/redislock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/welddesk/reports_backend/config"
	"github.com/welddesk/reports_backend/models"
)

var tracer = otel.Tracer("reports-backend/workflow")

const (
	renumberLockKey = "journal:renumber"
	renumberLockTTL = 30 * time.Second
	// DisplayNumberBase offsets the persisted report number from its rank.
	DisplayNumberBase   = 1000
	renumberConcurrency = 8
)

// RenumberReports reconciles the journal's sequence fields: every report
// passing the customer filter gets n = its 1-based position in snapshot
// order and number = position + DisplayNumberBase. Writes go out
// concurrently and only for documents whose stored values drifted, so a
// renumber-induced snapshot re-delivery converges instead of looping.
// Per-document failures are logged and do not roll back the others.
//
// Returns the number of documents updated.
func RenumberReports(ctx context.Context, store models.ReportStore, customerFilter string) (int, error) {
	ctx, span := tracer.Start(ctx, "RenumberReports")
	defer span.End()

	logger := config.GetLogger()

	// Serialize across instances; a concurrent holder is already doing this
	// exact work, so losing the lock is a no-op, not an error.
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, renumberLockKey, renumberLockTTL, nil)
		if err != nil {
			if errors.Is(err, redislock.ErrNotObtained) {
				return 0, nil
			}
			config.LogError(logger, "renumber.go", "RenumberReports", "locker.Obtain", nil, err)
		} else {
			defer lock.Release(context.WithoutCancel(ctx))
		}
	}

	snapshot, err := store.ListReports(ctx)
	if err != nil {
		return 0, err
	}

	var updated atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(renumberConcurrency)

	position := 0
	for _, report := range snapshot {
		if customerFilter != "" && !strings.Contains(report.Customer, customerFilter) {
			continue
		}
		position++

		n := int64(position)
		number := strconv.Itoa(position + DisplayNumberBase)
		if report.N == n && report.Number == number {
			continue
		}

		report := report
		g.Go(func() error {
			err := store.UpdateReportFields(gctx, report.Id, map[string]any{
				"n":      n,
				"number": number,
			})
			if err != nil {
				config.LogError(logger, "renumber.go", "RenumberReports", "store.UpdateReportFields", map[string]any{
					"report_id": report.Id,
					"n":         n,
				}, err)
				// Best-effort: the next pass repairs what this one missed.
				return nil
			}
			updated.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttributes(
		attribute.Int("journal.reports", position),
		attribute.Int64("journal.renumbered", updated.Load()),
	)
	return int(updated.Load()), nil
}
