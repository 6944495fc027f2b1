package models_test

import (
	"testing"

	"github.com/welddesk/reports_backend/models"
)

func TestDataPointDecodedFromArrays(t *testing.T) {
	r := models.DecodeReport("a", map[string]any{
		"VIK": map[string]any{
			"a": []any{"10", "11"},
			"b": []any{"годен"},
		},
	})

	dp := r.DataPoint(models.MethodVIK)
	if dp == nil {
		t.Fatal("expected VIK sub-record")
	}
	if !dp.Performed() {
		t.Fatal("expected VIK to be performed")
	}
	if dp.CheckValue() != models.CheckYes {
		t.Fatalf("CheckValue = %q, want %q", dp.CheckValue(), models.CheckYes)
	}
	if got := dp.RowCount(); got != 2 {
		t.Fatalf("RowCount = %d, want 2", got)
	}
	row := dp.Row(0)
	if row[0] != "10" || row[1] != "годен" || row[2] != "" {
		t.Fatalf("unexpected row 0: %v", row)
	}
}

func TestDataPointDecodedFromDelimitedString(t *testing.T) {
	r := models.DecodeReport("a", map[string]any{
		"YZT": map[string]any{"a": "7,5, 8,  9"},
	})

	dp := r.DataPoint(models.MethodYZT)
	if dp == nil {
		t.Fatal("expected YZT sub-record")
	}
	// The delimited legacy shape splits on every comma; decimal commas are a
	// known casualty and the detail view copes via ThicknessRange.
	if len(dp.A) != 4 || dp.A[0] != "7" || dp.A[3] != "9" {
		t.Fatalf("unexpected column: %v", dp.A)
	}
}

func TestDataPointEmptyColumnsStillPerformed(t *testing.T) {
	// A sub-record whose columns decode empty is still a recorded method:
	// the check columns key off the record's presence, not its cell count.
	for name, doc := range map[string]map[string]any{
		"empty array":     {"VIK": map[string]any{"a": []any{}}},
		"empty delimited": {"VIK": map[string]any{"a": ""}},
	} {
		r := models.DecodeReport("a", doc)
		dp := r.DataPoint(models.MethodVIK)
		if dp == nil || !dp.Performed() {
			t.Fatalf("%s: expected performed", name)
		}
		if dp.CheckValue() != models.CheckYes {
			t.Fatalf("%s: CheckValue = %q, want %q", name, dp.CheckValue(), models.CheckYes)
		}
		if dp.RowCount() != 0 {
			t.Fatalf("%s: RowCount = %d, want 0", name, dp.RowCount())
		}
	}

	// A keyless record decodes to nothing.
	r := models.DecodeReport("a", map[string]any{"VIK": map[string]any{}})
	if r.DataPoint(models.MethodVIK).Performed() {
		t.Fatal("keyless record must not be performed")
	}
}

func TestDataPointAbsentIsNotPerformed(t *testing.T) {
	r := models.DecodeReport("a", map[string]any{"customer": "Газпром"})

	dp := r.DataPoint(models.MethodRK)
	if dp.Performed() {
		t.Fatal("missing method must not be performed")
	}
	if dp.CheckValue() != models.CheckNo {
		t.Fatalf("CheckValue = %q, want %q", dp.CheckValue(), models.CheckNo)
	}
	if dp.RowCount() != 0 {
		t.Fatalf("RowCount = %d, want 0", dp.RowCount())
	}
}

func TestDataPointSetCellGrowsColumn(t *testing.T) {
	dp := &models.DataPoint{}
	dp.SetCell("a", 2, "12.5")
	if len(dp.A) != 3 || dp.A[2] != "12.5" {
		t.Fatalf("unexpected column after SetCell: %v", dp.A)
	}
	dp.SetCell("a", 0, "11")
	if dp.A[0] != "11" {
		t.Fatalf("SetCell must overwrite, got %v", dp.A)
	}
	dp.SetCell("x", 0, "nope")
	if dp.RowCount() != 3 {
		t.Fatal("unknown column must be ignored")
	}
}

func TestThicknessRange(t *testing.T) {
	dp := &models.DataPoint{A: []string{"7,5", "8.2", "oops", " 6,9 "}}

	min, max, ok := dp.ThicknessRange()
	if !ok {
		t.Fatal("expected a range")
	}
	if min.String() != "6.9" {
		t.Fatalf("min = %s, want 6.9", min)
	}
	if max.String() != "8.2" {
		t.Fatalf("max = %s, want 8.2", max)
	}

	if _, _, ok := (&models.DataPoint{A: []string{"н/д"}}).ThicknessRange(); ok {
		t.Fatal("unparseable column must not yield a range")
	}
	if _, _, ok := (*models.DataPoint)(nil).ThicknessRange(); ok {
		t.Fatal("nil sub-record must not yield a range")
	}
}
