package models_test

import (
	"testing"

	"github.com/welddesk/reports_backend/models"
)

func TestApplySnapshotPreservesSelectionById(t *testing.T) {
	state := models.NewJournalState().
		ApplySnapshot(testReports(3, "Газпром"), true).
		ToggleSelected("r2")

	// r2 survives the refresh, r3 is gone, r4 is new.
	refreshed := append(testReports(2, "Газпром"), models.DecodeReport("r4", testReportDoc("Газпром")))
	state = state.ApplySnapshot(refreshed, true)

	selected := state.SelectedReports()
	if len(selected) != 1 || selected[0].Id != "r2" {
		t.Fatalf("expected r2 to stay selected, got %+v", selected)
	}
}

func TestApplySnapshotResetsSelection(t *testing.T) {
	state := models.NewJournalState().
		ApplySnapshot(testReports(3, "Газпром"), true).
		ToggleSelected("r2")

	state = state.ApplySnapshot(testReports(3, "Газпром"), false)
	if state.HasSelection() {
		t.Fatal("selection must be cleared when not preserving")
	}
}

func TestApplySnapshotClearsErrorAndClampsPage(t *testing.T) {
	state := models.NewJournalState().
		ApplySnapshot(testReports(12, "Газпром"), true).
		LastPage().
		SetError("rpc error")

	if state.Page != 2 || state.LastError == "" {
		t.Fatalf("setup failed: page=%d err=%q", state.Page, state.LastError)
	}

	state = state.ApplySnapshot(testReports(4, "Газпром"), true)
	if state.LastError != "" {
		t.Fatal("fresh snapshot must clear the error")
	}
	if state.Page != 0 {
		t.Fatalf("page must clamp to 0 after shrink, got %d", state.Page)
	}
}

func TestApplySnapshotDoesNotAliasInput(t *testing.T) {
	snapshot := testReports(2, "Газпром")
	state := models.NewJournalState().ApplySnapshot(snapshot, true)

	snapshot[0].Customer = "changed"
	if state.Reports[0].Customer == "changed" {
		t.Fatal("state must copy the snapshot slice")
	}
}

func TestToggleSelectedIndependentOfPagination(t *testing.T) {
	state := models.NewJournalState().ApplySnapshot(testReports(7, "Газпром"), true)

	// Select a report on the second page, then navigate back.
	state = state.LastPage().ToggleSelected("r7").FirstPage()

	selected := state.SelectedReports()
	if len(selected) != 1 || selected[0].Id != "r7" {
		t.Fatalf("selection must survive pagination, got %+v", selected)
	}

	state = state.ToggleSelected("r7")
	if state.HasSelection() {
		t.Fatal("second toggle must deselect")
	}
}

func TestSetFilterResetsPage(t *testing.T) {
	state := models.NewJournalState().
		ApplySnapshot(testReports(12, "Газпром"), true).
		NextPage()
	if state.Page != 1 {
		t.Fatalf("setup failed: page=%d", state.Page)
	}

	state = state.SetFilter("customer", "Газ")
	if state.Page != 0 {
		t.Fatalf("page must reset on filter change, got %d", state.Page)
	}

	state = state.NextPage().ClearFilter("customer")
	if state.Page != 0 {
		t.Fatalf("page must reset on filter clear, got %d", state.Page)
	}
}

func TestJumpToReportNumber(t *testing.T) {
	state := models.NewJournalState().ApplySnapshot(testReports(7, "Газпром"), true)

	state = state.JumpToReportNumber(6)
	if state.Page != 1 {
		t.Fatalf("number 6 must land on page 1, got %d", state.Page)
	}

	// Out of range is a no-op.
	state = state.JumpToReportNumber(25)
	if state.Page != 1 {
		t.Fatalf("out-of-range jump must not move, got %d", state.Page)
	}
	state = state.JumpToReportNumber(0)
	if state.Page != 1 {
		t.Fatalf("zero jump must not move, got %d", state.Page)
	}
}

func TestRemoveReportsReclampsPage(t *testing.T) {
	state := models.NewJournalState().
		ApplySnapshot(testReports(6, "Газпром"), true).
		LastPage()
	if state.Page != 1 {
		t.Fatalf("setup failed: page=%d", state.Page)
	}

	state = state.RemoveReports([]string{"r6"})
	if len(state.Reports) != 5 {
		t.Fatalf("expected 5 reports, got %d", len(state.Reports))
	}
	if state.Page != 0 {
		t.Fatalf("page must clamp after removal, got %d", state.Page)
	}
}
