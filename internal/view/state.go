package view

import "github.com/threatdesk/threatdesk/internal/finding"

// DefaultPageSize is used when a session has not chosen one.
const DefaultPageSize = 25

// State is the filter, sort and pagination configuration of one viewing
// session. It is never persisted.
type State struct {
	Filter   Filter `json:"filter"`
	Sort     Sort   `json:"sort"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// NewState returns the state a fresh session starts with.
func NewState(pageSize int) State {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return State{Sort: DefaultSort(), Page: 1, PageSize: pageSize}
}

// WithFilter replaces the filter and resets to the first page when it changed.
func (s State) WithFilter(f Filter) State {
	f = f.Normalized()
	if f != s.Filter {
		s.Filter = f
		s.Page = 1
	}
	return s
}

// ToggleSort selects a sort key and resets to the first page.
func (s State) ToggleSort(key SortKey) State {
	s.Sort = s.Sort.Toggle(key)
	s.Page = 1
	return s
}

// WithSort sets an explicit ordering and resets to the first page.
func (s State) WithSort(order Sort) State {
	if order != s.Sort {
		s.Sort = order
		s.Page = 1
	}
	return s
}

func (s State) WithPage(page int) State {
	if page < 1 {
		page = 1
	}
	s.Page = page
	return s
}

// WithPageSize changes the page size and resets to the first page. Sizes below
// one are ignored.
func (s State) WithPageSize(size int) State {
	if size < 1 || size == s.PageSize {
		return s
	}
	s.PageSize = size
	s.Page = 1
	return s
}

// Apply renders the page this state selects.
func (s State) Apply(findings []finding.Finding) (Page, error) {
	return Apply(findings, s.Filter, s.Sort, s.Page, s.PageSize)
}
