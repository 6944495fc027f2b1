package models

import (
	"sort"
	"strconv"
	"strings"
)

// ReportsPerPage is the fixed journal page size.
const ReportsPerPage = 5

// ColumnFilter maps a journal column name to a single filter value. Absence
// of a key means no filter on that column.
type ColumnFilter map[string]string

// JournalColumn describes one filterable column of the journal table.
type JournalColumn struct {
	Name    string
	Label   string
	IsCheck bool
}

// JournalColumns in table order.
var JournalColumns = []JournalColumn{
	{Name: "customer", Label: "Заказчик"},
	{Name: "division", Label: "Подразделение"},
	{Name: "work", Label: "Вид работ"},
	{Name: "nameTY", Label: "Наименование ТУ"},
	{Name: "regTY", Label: "рег №ТУ"},
	{Name: "zavTY", Label: "зав №ТУ"},
	{Name: MethodYZT, Label: "УЗТ", IsCheck: true},
	{Name: MethodVIK, Label: "ВИК", IsCheck: true},
	{Name: MethodCD, Label: "ЦД", IsCheck: true},
	{Name: MethodYZK, Label: "УЗК", IsCheck: true},
	{Name: MethodTV, Label: "ТВ", IsCheck: true},
	{Name: MethodRK, Label: "РК", IsCheck: true},
	{Name: "result", Label: "Результат"},
	{Name: "defect", Label: "Дефект"},
	{Name: "login", Label: "Логин создателя"},
}

func IsCheckColumn(name string) bool {
	switch name {
	case MethodYZT, MethodVIK, MethodCD, MethodYZK, MethodTV, MethodRK:
		return true
	}
	return false
}

// ApplyFilters keeps reports whose value for every filtered column
// case-insensitively contains the filter value. Check columns are compared
// against their "Да"/"-" rendering; reports missing a filtered text column
// are excluded.
func ApplyFilters(reports []Report, filters ColumnFilter) []Report {
	if len(filters) == 0 {
		return reports
	}
	out := make([]Report, 0, len(reports))
	for _, r := range reports {
		if matchesFilters(r, filters) {
			out = append(out, r)
		}
	}
	return out
}

func matchesFilters(r Report, filters ColumnFilter) bool {
	for column, filterValue := range filters {
		if filterValue == "" {
			continue
		}
		value, ok := r.ColumnValue(column)
		if !ok {
			return false
		}
		if !strings.Contains(strings.ToLower(value), strings.ToLower(filterValue)) {
			return false
		}
	}
	return true
}

// applySearch keeps reports whose 1-based position, offset by the currently
// displayed page window, contains the search term. This is the positional
// search the journal has always had: it matches display ranks, not report
// content, so it only ever matches rows whose rank falls near the visible
// page. Jump-to-number (PageForReportNumber) is the global navigation path.
func applySearch(filtered []Report, searchTerm string, pageIndex, pageSize int) []Report {
	if searchTerm == "" {
		return filtered
	}
	out := make([]Report, 0, len(filtered))
	for i, r := range filtered {
		rank := pageIndex*pageSize + i + 1
		if strings.Contains(strconv.Itoa(rank), searchTerm) {
			out = append(out, r)
		}
	}
	return out
}

// TotalPages is ceil(count/pageSize); zero for an empty journal.
func TotalPages(count, pageSize int) int {
	if count <= 0 || pageSize <= 0 {
		return 0
	}
	return (count + pageSize - 1) / pageSize
}

// Project derives the visible page from the raw snapshot and the view state.
// It is a pure function of its inputs and safe to recompute on every
// keystroke: it never mutates the snapshot, selection or edit state.
func Project(reports []Report, filters ColumnFilter, searchTerm string, pageIndex, pageSize int) ([]Report, int) {
	filtered := applySearch(ApplyFilters(reports, filters), searchTerm, pageIndex, pageSize)

	totalPages := TotalPages(len(filtered), pageSize)

	start := pageIndex * pageSize
	if start < 0 || start >= len(filtered) {
		return nil, totalPages
	}
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	page := make([]Report, end-start)
	copy(page, filtered[start:end])
	return page, totalPages
}

// NextPage and PrevPage clamp into [0, totalPages-1].
func NextPage(current, totalPages int) int {
	next := current + 1
	if next > totalPages-1 {
		next = totalPages - 1
	}
	if next < 0 {
		next = 0
	}
	return next
}

func PrevPage(current int) int {
	prev := current - 1
	if prev < 0 {
		prev = 0
	}
	return prev
}

func LastPage(totalPages int) int {
	if totalPages <= 0 {
		return 0
	}
	return totalPages - 1
}

// PageForReportNumber resolves a typed display rank to its page index.
// Returns false (no-op for the caller) when the rank falls outside the
// journal.
func PageForReportNumber(number, pageSize, totalPages int) (int, bool) {
	if number < 1 || pageSize <= 0 {
		return 0, false
	}
	pageIndex := (number - 1) / pageSize
	if pageIndex < 0 || pageIndex >= totalPages {
		return 0, false
	}
	return pageIndex, true
}

// UniqueColumnValues lists the distinct values of one column across the
// snapshot, sorted, for the filter dropdowns. Check columns offer exactly
// the two check states.
func UniqueColumnValues(reports []Report, column string) []string {
	if IsCheckColumn(column) {
		return []string{CheckYes, CheckNo}
	}
	seen := map[string]bool{}
	for _, r := range reports {
		if v, ok := r.ColumnValue(column); ok {
			seen[v] = true
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
