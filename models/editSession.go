package models

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/welddesk/reports_backend/utils"
)

// ErrEditInProgress is returned by BeginEdit while another report is already
// in edit mode. At most one report is editable at a time.
var ErrEditInProgress = errors.New("another report is already being edited")

// EditSession is the journal's single-report edit state machine.
//
// States: Idle (no report edited) and Editing(reportId). Field changes are
// buffered against the editing report id and touch neither the displayed
// data nor the store until Save, which writes only the changed fields.
type EditSession struct {
	mu     sync.Mutex
	policy AuthorizationPolicy

	editingId string
	// Buffered patches keyed by report id. Only the editing id ever holds a
	// live patch; the map shape mirrors the persisted-later contract.
	buffer map[string]map[string]any
}

func NewEditSession(policy AuthorizationPolicy) *EditSession {
	return &EditSession{
		policy: policy,
		buffer: map[string]map[string]any{},
	}
}

// EditingId reports the current state: ("", false) is Idle.
func (s *EditSession) EditingId() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editingId, s.editingId != ""
}

// BeginEdit transitions Idle -> Editing(reportId). Only the admin identity
// may edit; any other caller leaves the session Idle. While a different
// report is being edited the transition is rejected.
func (s *EditSession) BeginEdit(ctx context.Context, reportId string) error {
	if err := requireAdmin(ctx, s.policy); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editingId != "" && s.editingId != reportId {
		return ErrEditInProgress
	}
	s.editingId = reportId
	if s.buffer[reportId] == nil {
		s.buffer[reportId] = map[string]any{}
	}
	return nil
}

// FieldChanged buffers one field edit for the report in edit mode. Later
// values win for repeated fields.
func (s *EditSession) FieldChanged(field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editingId == "" {
		return errors.New("no report is in edit mode")
	}
	if !IsEditableField(field) {
		return fmt.Errorf("field %q is not editable", field)
	}
	s.buffer[s.editingId][field] = value
	return nil
}

// PendingFields returns a copy of the buffered patch for inspection.
func (s *EditSession) PendingFields() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]any{}
	if s.editingId == "" {
		return out
	}
	for k, v := range s.buffer[s.editingId] {
		out[k] = v
	}
	return out
}

// Save transitions Editing -> Idle, issuing a partial update containing only
// the buffered fields so concurrent changes to other fields are never
// clobbered. The buffer is cleared whether or not the write succeeds.
func (s *EditSession) Save(ctx context.Context, store ReportStore) error {
	s.mu.Lock()
	reportId := s.editingId
	fields := s.buffer[reportId]
	s.editingId = ""
	delete(s.buffer, reportId)
	s.mu.Unlock()

	if reportId == "" {
		return errors.New("no report is in edit mode")
	}
	if len(fields) == 0 {
		return nil
	}
	if err := store.UpdateReportFields(ctx, reportId, fields); err != nil {
		// Keep not-found intact so the boundary reports the report as gone
		// rather than as a failed write.
		if errors.Is(err, utils.ErrReportNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", utils.ErrWriteFailure, err)
	}
	return nil
}

// Cancel transitions Editing -> Idle, discarding the buffer without writing.
func (s *EditSession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editingId == "" {
		return
	}
	delete(s.buffer, s.editingId)
	s.editingId = ""
}
