package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/welddesk/reports_backend/config"
	"github.com/welddesk/reports_backend/models"
)

// JournalHub owns the journal view state for the service. All transitions go
// through the hub's mutex, the Go rendition of the original single-threaded
// event loop: user actions and snapshot deliveries are applied one at a time
// as whole-state replacements.
type JournalHub struct {
	mu    sync.Mutex
	state models.JournalState

	store          models.ReportStore
	policy         models.AuthorizationPolicy
	session        *models.EditSession
	customerFilter string
}

func NewJournalHub(store models.ReportStore, policy models.AuthorizationPolicy, customerFilter string) *JournalHub {
	h := &JournalHub{
		state:          models.NewJournalState(),
		store:          store,
		policy:         policy,
		session:        models.NewEditSession(policy),
		customerFilter: customerFilter,
	}
	return h
}

// Session exposes the single edit session tied to this journal view.
func (h *JournalHub) Session() *models.EditSession {
	return h.session
}

func (h *JournalHub) Store() models.ReportStore {
	return h.store
}

func (h *JournalHub) Policy() models.AuthorizationPolicy {
	return h.policy
}

func (h *JournalHub) CustomerFilter() string {
	return h.customerFilter
}

// State returns the current immutable view state value.
func (h *JournalHub) State() models.JournalState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Reduce applies one state transition.
func (h *JournalHub) Reduce(fn func(models.JournalState) models.JournalState) models.JournalState {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = fn(h.state)
	return h.state
}

// Consume is the hub's event loop: it applies watcher snapshots and errors
// until ctx is done. When renumber-on-snapshot is enabled, each applied
// snapshot also queues the reconciliation job (best-effort).
func (h *JournalHub) Consume(ctx context.Context, watcher *SnapshotWatcher) {
	logger := config.GetLogger()
	preserve := !config.ResetSelectionOnSnapshot()

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot := <-watcher.Snapshots():
			h.Reduce(func(s models.JournalState) models.JournalState {
				return s.ApplySnapshot(snapshot, preserve)
			})
			if config.RenumberOnSnapshot() {
				msg := config.RenumberMessage{
					CustomerFilter: h.customerFilter,
					RequestedAt:    time.Now().UTC(),
					CorrelationId:  uuid.NewString(),
				}
				if err := config.PublishRenumber(ctx, msg); err != nil {
					config.LogError(logger, "journalHub.go", "Consume", "config.PublishRenumber", msg, err)
				}
			}
		case msg := <-watcher.Errors():
			h.Reduce(func(s models.JournalState) models.JournalState {
				return s.SetError(msg)
			})
		}
	}
}

// DeleteSelected runs the bulk delete against the currently selected reports
// and removes the successfully deleted ones from local state. Ids the store
// rejected stay in the journal and are returned for surfacing.
func (h *JournalHub) DeleteSelected(ctx context.Context) (deleted []string, failed map[string]error, err error) {
	selected := h.State().SelectedReports()
	deleted, failed, err = models.DeleteSelected(ctx, h.store, h.policy, selected)
	if err != nil {
		return nil, nil, err
	}
	if len(deleted) > 0 {
		h.Reduce(func(s models.JournalState) models.JournalState {
			return s.RemoveReports(deleted)
		})
	}
	return deleted, failed, nil
}
