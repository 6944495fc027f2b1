package models

// JournalState is the immutable view state of the reports journal. Reducer
// methods return a new value; the reports slice is replaced wholesale on
// every change so derived projections never observe partial mutation.
type JournalState struct {
	Reports    []Report
	Filters    ColumnFilter
	SearchTerm string
	Page       int
	LastError  string
}

func NewJournalState() JournalState {
	return JournalState{Filters: ColumnFilter{}}
}

func (s JournalState) cloneReports() []Report {
	out := make([]Report, len(s.Reports))
	copy(out, s.Reports)
	return out
}

func (s JournalState) cloneFilters() ColumnFilter {
	out := make(ColumnFilter, len(s.Filters))
	for k, v := range s.Filters {
		out[k] = v
	}
	return out
}

// ApplySnapshot replaces the raw snapshot. Snapshot documents always arrive
// unselected (the flag is never persisted); when preserveSelection is set the
// previous selection is re-applied by report id, so ids that survived the
// refresh stay selected and deleted ids drop out.
func (s JournalState) ApplySnapshot(snapshot []Report, preserveSelection bool) JournalState {
	next := s
	reports := make([]Report, len(snapshot))
	copy(reports, snapshot)

	if preserveSelection {
		selected := map[string]bool{}
		for _, r := range s.Reports {
			if r.Selected {
				selected[r.Id] = true
			}
		}
		for i := range reports {
			reports[i].Selected = selected[reports[i].Id]
		}
	} else {
		for i := range reports {
			reports[i].Selected = false
		}
	}

	next.Reports = reports
	next.LastError = ""
	next.Page = clampPage(next)
	return next
}

// SetError records a subscription failure; the last good snapshot stays in
// place.
func (s JournalState) SetError(msg string) JournalState {
	next := s
	next.LastError = msg
	return next
}

// ToggleSelected flips one report's selection flag. Selection is tracked by
// id against the full snapshot, independent of edit mode and pagination.
func (s JournalState) ToggleSelected(reportId string) JournalState {
	next := s
	reports := s.cloneReports()
	for i := range reports {
		if reports[i].Id == reportId {
			reports[i].Selected = !reports[i].Selected
		}
	}
	next.Reports = reports
	return next
}

// SetFilter sets one column filter and resets to the first page.
func (s JournalState) SetFilter(column, value string) JournalState {
	next := s
	filters := s.cloneFilters()
	filters[column] = value
	next.Filters = filters
	next.Page = 0
	return next
}

// ClearFilter removes one column filter and resets to the first page.
func (s JournalState) ClearFilter(column string) JournalState {
	next := s
	filters := s.cloneFilters()
	delete(filters, column)
	next.Filters = filters
	next.Page = 0
	return next
}

func (s JournalState) SetSearch(term string) JournalState {
	next := s
	next.SearchTerm = term
	return next
}

// Projection derives the visible page and total page count.
func (s JournalState) Projection() ([]Report, int) {
	return Project(s.Reports, s.Filters, s.SearchTerm, s.Page, ReportsPerPage)
}

func (s JournalState) totalPages() int {
	_, total := s.Projection()
	return total
}

func clampPage(s JournalState) int {
	total := s.totalPages()
	if total == 0 {
		return 0
	}
	if s.Page > total-1 {
		return total - 1
	}
	if s.Page < 0 {
		return 0
	}
	return s.Page
}

func (s JournalState) FirstPage() JournalState {
	next := s
	next.Page = 0
	return next
}

func (s JournalState) LastPage() JournalState {
	next := s
	next.Page = LastPage(s.totalPages())
	return next
}

func (s JournalState) NextPage() JournalState {
	next := s
	next.Page = NextPage(s.Page, s.totalPages())
	return next
}

func (s JournalState) PrevPage() JournalState {
	next := s
	next.Page = PrevPage(s.Page)
	return next
}

// JumpToReportNumber navigates to the page holding the typed display rank;
// out-of-range ranks are a no-op.
func (s JournalState) JumpToReportNumber(number int) JournalState {
	pageIndex, ok := PageForReportNumber(number, ReportsPerPage, s.totalPages())
	if !ok {
		return s
	}
	next := s
	next.Page = pageIndex
	return next
}

// SelectedReports returns the selected subset of the full snapshot, in
// snapshot order.
func (s JournalState) SelectedReports() []Report {
	out := []Report{}
	for _, r := range s.Reports {
		if r.Selected {
			out = append(out, r)
		}
	}
	return out
}

func (s JournalState) HasSelection() bool {
	for _, r := range s.Reports {
		if r.Selected {
			return true
		}
	}
	return false
}

// RemoveReports drops the given ids from local state (after a successful
// delete) and re-clamps the page.
func (s JournalState) RemoveReports(ids []string) JournalState {
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	next := s
	reports := make([]Report, 0, len(s.Reports))
	for _, r := range s.Reports {
		if !drop[r.Id] {
			reports = append(reports, r)
		}
	}
	next.Reports = reports
	next.Page = clampPage(next)
	return next
}
