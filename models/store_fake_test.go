package models_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/welddesk/reports_backend/models"
	"github.com/welddesk/reports_backend/utils"
)

const adminEmail = "admin@gmail.com"

func adminCtx() context.Context {
	return utils.SetUserEmailInContext(context.Background(), adminEmail)
}

func userCtx(email string) context.Context {
	return utils.SetUserEmailInContext(context.Background(), email)
}

func adminPolicy() models.AuthorizationPolicy {
	return models.NewAdminEmailPolicy(adminEmail)
}

// fakeReportStore keeps raw documents in insertion order, mirroring the
// snapshot-order contract of the real store, and can reject writes per id.
type fakeReportStore struct {
	mu    sync.Mutex
	order []string
	docs  map[string]map[string]any

	failUpdate map[string]error
	failDelete map[string]error

	// updateCalls records every UpdateReportFields invocation for
	// partial-patch assertions.
	updateCalls []map[string]any
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{
		docs:       map[string]map[string]any{},
		failUpdate: map[string]error{},
		failDelete: map[string]error{},
	}
}

func (s *fakeReportStore) put(id string, doc map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		s.order = append(s.order, id)
	}
	s.docs[id] = doc
}

func (s *fakeReportStore) ListReports(ctx context.Context) ([]models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Report, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, models.DecodeReport(id, s.docs[id]))
	}
	return out, nil
}

func (s *fakeReportStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, utils.ErrReportNotFound
	}
	r := models.DecodeReport(id, doc)
	return &r, nil
}

func (s *fakeReportStore) UpdateReportFields(ctx context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failUpdate[id]; err != nil {
		return err
	}
	doc, ok := s.docs[id]
	if !ok {
		return utils.ErrReportNotFound
	}
	call := map[string]any{"id": id}
	for k, v := range fields {
		doc[k] = v
		call[k] = v
	}
	s.updateCalls = append(s.updateCalls, call)
	return nil
}

func (s *fakeReportStore) DeleteReport(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failDelete[id]; err != nil {
		return err
	}
	if _, ok := s.docs[id]; !ok {
		return utils.ErrReportNotFound
	}
	delete(s.docs, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func testReportDoc(customer string) map[string]any {
	return map[string]any{
		"customer":  customer,
		"division":  "СМУ-1",
		"work":      "Сварка трубопровода",
		"nameTY":    "ТУ 14-3Р-55",
		"regTY":     "Р-101",
		"zavTY":     "З-202",
		"result":    "годен",
		"login":     "inspector1",
		"createdAt": time.Date(2024, time.March, 5, 14, 5, 0, 0, time.UTC),
	}
}

func testReports(n int, customer string) []models.Report {
	out := make([]models.Report, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.DecodeReport(fmt.Sprintf("r%d", i+1), testReportDoc(customer)))
	}
	return out
}
