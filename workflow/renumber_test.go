package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/welddesk/reports_backend/models"
	"github.com/welddesk/reports_backend/utils"
	"github.com/welddesk/reports_backend/workflow"
)

// seqStore is a minimal in-memory ReportStore for renumber tests. It stores
// decoded reports directly and keeps snapshot order stable.
type seqStore struct {
	mu      sync.Mutex
	order   []string
	reports map[string]*models.Report

	failUpdate map[string]error
	failDelete map[string]error
	updates    int
}

func newSeqStore() *seqStore {
	return &seqStore{
		reports:    map[string]*models.Report{},
		failUpdate: map[string]error{},
		failDelete: map[string]error{},
	}
}

func (s *seqStore) add(id, customer string, n int64, number string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, id)
	s.reports[id] = &models.Report{Id: id, Customer: customer, N: n, Number: number}
}

func (s *seqStore) ListReports(ctx context.Context) ([]models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Report, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.reports[id])
	}
	return out, nil
}

func (s *seqStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, utils.ErrReportNotFound
	}
	copied := *r
	return &copied, nil
}

func (s *seqStore) UpdateReportFields(ctx context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failUpdate[id]; err != nil {
		return err
	}
	r, ok := s.reports[id]
	if !ok {
		return utils.ErrReportNotFound
	}
	if v, ok := fields["n"].(int64); ok {
		r.N = v
	}
	if v, ok := fields["number"].(string); ok {
		r.Number = v
	}
	s.updates++
	return nil
}

func (s *seqStore) DeleteReport(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failDelete[id]; err != nil {
		return err
	}
	if _, ok := s.reports[id]; !ok {
		return utils.ErrReportNotFound
	}
	delete(s.reports, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func TestRenumberReportsAssignsSequence(t *testing.T) {
	store := newSeqStore()
	for i := 1; i <= 3; i++ {
		store.add(fmt.Sprintf("r%d", i), "Газпром", 0, "")
	}

	updated, err := workflow.RenumberReports(context.Background(), store, "")
	if err != nil {
		t.Fatalf("RenumberReports: %v", err)
	}
	if updated != 3 {
		t.Fatalf("updated = %d, want 3", updated)
	}

	for i := 1; i <= 3; i++ {
		r, _ := store.GetReport(context.Background(), fmt.Sprintf("r%d", i))
		if r.N != int64(i) {
			t.Fatalf("r%d: n = %d, want %d", i, r.N, i)
		}
		want := strconv.Itoa(i + workflow.DisplayNumberBase)
		if r.Number != want {
			t.Fatalf("r%d: number = %q, want %q", i, r.Number, want)
		}
	}
}

func TestRenumberReportsIdempotent(t *testing.T) {
	store := newSeqStore()
	for i := 1; i <= 3; i++ {
		store.add(fmt.Sprintf("r%d", i), "Газпром", 0, "")
	}

	if _, err := workflow.RenumberReports(context.Background(), store, ""); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	firstPassWrites := store.updates

	// A stable snapshot must produce zero writes, otherwise a
	// renumber-triggered snapshot re-delivery would loop forever.
	updated, err := workflow.RenumberReports(context.Background(), store, "")
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if updated != 0 {
		t.Fatalf("second pass updated %d, want 0", updated)
	}
	if store.updates != firstPassWrites {
		t.Fatalf("second pass issued writes: %d -> %d", firstPassWrites, store.updates)
	}
}

func TestRenumberReportsCustomerFilter(t *testing.T) {
	store := newSeqStore()
	store.add("r1", "Газпром", 0, "")
	store.add("r2", "Транснефть", 0, "")
	store.add("r3", "Газпром нефть", 0, "")

	updated, err := workflow.RenumberReports(context.Background(), store, "Газпром")
	if err != nil {
		t.Fatalf("RenumberReports: %v", err)
	}
	if updated != 2 {
		t.Fatalf("updated = %d, want 2", updated)
	}

	// Positions are assigned within the filtered subset.
	r3, _ := store.GetReport(context.Background(), "r3")
	if r3.N != 2 || r3.Number != "1002" {
		t.Fatalf("r3: n=%d number=%q", r3.N, r3.Number)
	}
	r2, _ := store.GetReport(context.Background(), "r2")
	if r2.N != 0 || r2.Number != "" {
		t.Fatal("non-matching report must stay untouched")
	}
}

func TestRenumberReportsPerDocumentFailure(t *testing.T) {
	store := newSeqStore()
	for i := 1; i <= 3; i++ {
		store.add(fmt.Sprintf("r%d", i), "Газпром", 0, "")
	}
	store.failUpdate["r2"] = errors.New("deadline exceeded")

	updated, err := workflow.RenumberReports(context.Background(), store, "")
	if err != nil {
		t.Fatalf("RenumberReports: %v", err)
	}
	if updated != 2 {
		t.Fatalf("updated = %d, want 2", updated)
	}

	r3, _ := store.GetReport(context.Background(), "r3")
	if r3.N != 3 {
		t.Fatalf("sibling write must land despite the failure, n=%d", r3.N)
	}
	r2, _ := store.GetReport(context.Background(), "r2")
	if r2.N != 0 {
		t.Fatal("failed document must keep its old value")
	}
}
