package workflow

import (
	"context"
	"strings"

	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/welddesk/reports_backend/config"
	"github.com/welddesk/reports_backend/models"
)

// SnapshotWatcher wraps the live query against the report collection. On
// every server-side change it delivers the complete current set of matching
// reports, tagged with their ids, over Snapshots(). Delivery order within a
// snapshot is store-defined; consumers must not assume stable order across
// snapshots except as re-established by renumbering.
type SnapshotWatcher struct {
	customerFilter string

	snapshots chan []models.Report
	errs      chan string
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewSnapshotWatcher builds a watcher for one customer filter. The filter is
// a substring match applied client-side: the legacy documents carry
// free-text customer names the store cannot match on.
func NewSnapshotWatcher(customerFilter string) *SnapshotWatcher {
	return &SnapshotWatcher{
		customerFilter: customerFilter,
		snapshots:      make(chan []models.Report, 1),
		errs:           make(chan string, 1),
		done:           make(chan struct{}),
	}
}

// Snapshots is the sole source of journal state updates.
func (w *SnapshotWatcher) Snapshots() <-chan []models.Report {
	return w.snapshots
}

// Errors surfaces subscription failures as messages; the last good snapshot
// stays in place downstream.
func (w *SnapshotWatcher) Errors() <-chan string {
	return w.errs
}

// Start launches the listener goroutine. Stop must be called on teardown or
// the underlying listener leaks.
func (w *SnapshotWatcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx)
}

// Stop releases the underlying listener and waits for the goroutine to exit.
// A watcher that was never started stops immediately.
func (w *SnapshotWatcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

func (w *SnapshotWatcher) run(ctx context.Context) {
	defer close(w.done)

	logger := config.GetLogger()
	client := config.GetFirestore()
	if client == nil {
		w.reportError("firestore client is not connected")
		return
	}

	it := client.Collection(config.ReportsCollection).Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if status.Code(err) == codes.Canceled || ctx.Err() != nil {
				return
			}
			config.LogError(logger, "snapshotWatcher.go", "run", "it.Next", nil, err)
			w.reportError(err.Error())
			return
		}

		var reports []models.Report
		docs := snap.Documents
		for {
			doc, err := docs.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				config.LogError(logger, "snapshotWatcher.go", "run", "docs.Next", nil, err)
				break
			}
			report := models.DecodeReport(doc.Ref.ID, doc.Data())
			if w.customerFilter == "" || strings.Contains(report.Customer, w.customerFilter) {
				reports = append(reports, report)
			}
		}

		w.deliver(ctx, reports)
	}
}

// deliver drops the stale pending snapshot, if any, so the consumer always
// sees the newest complete set.
func (w *SnapshotWatcher) deliver(ctx context.Context, reports []models.Report) {
	for {
		select {
		case <-ctx.Done():
			return
		case w.snapshots <- reports:
			return
		default:
		}
		select {
		case <-w.snapshots:
		default:
		}
	}
}

func (w *SnapshotWatcher) reportError(msg string) {
	select {
	case w.errs <- msg:
	default:
	}
}
