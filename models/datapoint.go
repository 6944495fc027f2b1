package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Inspection method keys. Each report carries up to one DataPoint per method.
const (
	MethodYZT = "YZT" // УЗТ — ultrasonic thickness
	MethodVIK = "VIK" // ВИК — visual inspection
	MethodCD  = "CD"  // ЦД — dye penetrant
	MethodYZK = "YZK" // УЗК — ultrasonic flaw detection
	MethodTV  = "TV"  // ТВ — hardness
	MethodRK  = "RK"  // РК — radiography
)

// MethodKeys in journal column order.
var MethodKeys = []string{MethodYZT, MethodVIK, MethodCD, MethodYZK, MethodTV, MethodRK}

// Check-column display values.
const (
	CheckYes = "Да"
	CheckNo  = "-"
)

// DataPoint is one inspection method's tabular sub-record: up to four
// parallel columns of measurement rows. The canonical in-memory shape is an
// ordered sequence of strings per column; legacy documents that stored a
// column as a single delimited string are normalized at the store boundary
// (see decodeColumn).
type DataPoint struct {
	A []string `firestore:"a,omitempty" json:"a,omitempty"`
	B []string `firestore:"b,omitempty" json:"b,omitempty"`
	C []string `firestore:"c,omitempty" json:"c,omitempty"`
	D []string `firestore:"d,omitempty" json:"d,omitempty"`
}

// Performed reports whether the method was carried out at all: the document
// carried the method's sub-record with at least one column key. Empty columns
// still count; decodeDataPoint returns nil for absent or keyless records, so
// presence of the decoded value is the flag.
func (d *DataPoint) Performed() bool {
	return d != nil
}

// CheckValue renders the method as the journal's check column.
func (d *DataPoint) CheckValue() string {
	if d.Performed() {
		return CheckYes
	}
	return CheckNo
}

// RowCount is the maximum column length. Columns of one DataPoint should be
// the same logical row count; when they drift, rendering uses the max and
// treats missing entries as empty.
func (d *DataPoint) RowCount() int {
	if d == nil {
		return 0
	}
	n := len(d.A)
	if len(d.B) > n {
		n = len(d.B)
	}
	if len(d.C) > n {
		n = len(d.C)
	}
	if len(d.D) > n {
		n = len(d.D)
	}
	return n
}

// Row returns the i-th row across all four columns, empty strings for
// missing cells.
func (d *DataPoint) Row(i int) [4]string {
	var row [4]string
	if d == nil || i < 0 {
		return row
	}
	cols := [4][]string{d.A, d.B, d.C, d.D}
	for c, col := range cols {
		if i < len(col) {
			row[c] = col[i]
		}
	}
	return row
}

// SetCell grows the column as needed and writes one cell.
func (d *DataPoint) SetCell(column string, i int, value string) {
	if d == nil || i < 0 {
		return
	}
	var col *[]string
	switch column {
	case "a":
		col = &d.A
	case "b":
		col = &d.B
	case "c":
		col = &d.C
	case "d":
		col = &d.D
	default:
		return
	}
	for len(*col) <= i {
		*col = append(*col, "")
	}
	(*col)[i] = value
}

// ThicknessRange computes min/max over the first column parsed as decimal
// measurements. Used by the report detail view for УЗТ wall-thickness data.
// ok is false when no cell parses.
func (d *DataPoint) ThicknessRange() (min, max decimal.Decimal, ok bool) {
	if d == nil {
		return
	}
	for _, raw := range d.A {
		v, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."))
		if err != nil {
			continue
		}
		if !ok {
			min, max, ok = v, v, true
			continue
		}
		if v.LessThan(min) {
			min = v
		}
		if v.GreaterThan(max) {
			max = v
		}
	}
	return
}

// decodeColumn normalizes the two legacy on-disk shapes of a DataPoint
// column: an array of strings, or a single comma-delimited string.
func decodeColumn(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return val
	case string:
		if strings.TrimSpace(val) == "" {
			return nil
		}
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return out
	}
	return nil
}

func decodeDataPoint(v any) *DataPoint {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	dp := &DataPoint{
		A: decodeColumn(m["a"]),
		B: decodeColumn(m["b"]),
		C: decodeColumn(m["c"]),
		D: decodeColumn(m["d"]),
	}
	return dp
}
