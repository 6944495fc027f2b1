package models_test

import (
	"errors"
	"testing"
	"time"

	"github.com/welddesk/reports_backend/models"
	"github.com/welddesk/reports_backend/utils"
)

func TestDecodeReportLegacyShapes(t *testing.T) {
	created := time.Date(2024, time.January, 10, 9, 30, 0, 0, time.UTC)
	defect := "непровар"
	r := models.DecodeReport("doc1", map[string]any{
		"field":        true,
		"n":            "42",
		"serialNumber": float64(7),
		"customer":     "Газпром",
		"number":       "1043",
		"defect":       defect,
		"createdAt":    created,
	})

	if r.Id != "doc1" {
		t.Fatalf("Id = %q", r.Id)
	}
	if !r.Field {
		t.Fatal("field flag lost")
	}
	if r.N != 42 {
		t.Fatalf("n = %d, want 42 (stored as string)", r.N)
	}
	if r.SerialNumber != 7 {
		t.Fatalf("serialNumber = %d, want 7 (stored as float)", r.SerialNumber)
	}
	if r.Defect == nil || *r.Defect != defect {
		t.Fatalf("defect = %v", r.Defect)
	}
	if !r.CreatedAt.Equal(created) {
		t.Fatalf("createdAt = %v", r.CreatedAt)
	}
	if r.Selected {
		t.Fatal("decoded reports must never come back selected")
	}
}

func TestColumnValueDefect(t *testing.T) {
	withDefect := models.DecodeReport("a", map[string]any{"defect": "трещина"})
	if v, ok := withDefect.ColumnValue("defect"); !ok || v != "трещина" {
		t.Fatalf("defect column = %q, %v", v, ok)
	}

	withoutDefect := models.DecodeReport("b", map[string]any{"customer": "Газпром"})
	if _, ok := withoutDefect.ColumnValue("defect"); ok {
		t.Fatal("absent defect must resolve false")
	}
}

func TestEditReportRequiresAdmin(t *testing.T) {
	store := newFakeReportStore()
	store.put("r1", testReportDoc("Газпром"))
	customer := "Транснефть"
	patch := models.ReportPatch{Customer: &customer}

	if err := models.EditReport(userCtx("user@gmail.com"), store, adminPolicy(), "r1", patch); !errors.Is(err, utils.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if err := models.EditReport(userCtx(""), store, adminPolicy(), "r1", patch); !errors.Is(err, utils.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	if len(store.updateCalls) != 0 {
		t.Fatal("rejected edit must not reach the store")
	}
}

func TestEditReportPartialUpdate(t *testing.T) {
	store := newFakeReportStore()
	store.put("r1", testReportDoc("Газпром"))
	customer := "Транснефть"
	result := "не годен"

	err := models.EditReport(adminCtx(), store, adminPolicy(), "r1", models.ReportPatch{
		Customer: &customer,
		Result:   &result,
	})
	if err != nil {
		t.Fatalf("EditReport: %v", err)
	}

	if len(store.updateCalls) != 1 {
		t.Fatalf("expected one update call, got %d", len(store.updateCalls))
	}
	call := store.updateCalls[0]
	if call["customer"] != "Транснефть" || call["result"] != "не годен" {
		t.Fatalf("unexpected patch: %v", call)
	}
	// id plus exactly the two patched fields.
	if len(call) != 3 {
		t.Fatalf("patch must carry only changed fields, got %v", call)
	}

	r, err := store.GetReport(adminCtx(), "r1")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if r.Division != "СМУ-1" {
		t.Fatal("unpatched field clobbered")
	}
}

func TestEditReportUnknownId(t *testing.T) {
	store := newFakeReportStore()
	customer := "Газпром"

	err := models.EditReport(adminCtx(), store, adminPolicy(), "missing", models.ReportPatch{Customer: &customer})
	if !errors.Is(err, utils.ErrReportNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteReportById(t *testing.T) {
	store := newFakeReportStore()
	store.put("r1", testReportDoc("Газпром"))

	if err := models.DeleteReportById(userCtx("user@gmail.com"), store, adminPolicy(), "r1"); !errors.Is(err, utils.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if err := models.DeleteReportById(adminCtx(), store, adminPolicy(), "r1"); err != nil {
		t.Fatalf("DeleteReportById: %v", err)
	}
	if _, err := store.GetReport(adminCtx(), "r1"); !errors.Is(err, utils.ErrReportNotFound) {
		t.Fatal("report must be gone")
	}
}
