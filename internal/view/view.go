// Package view turns the aggregated findings into the page an operator is
// looking at.
package view

import (
	"errors"

	"github.com/threatdesk/threatdesk/internal/finding"
)

// ErrInvalidPageSize is returned for a page size below one.
var ErrInvalidPageSize = errors.New("page size must be positive")

// Page is one slice of the filtered and sorted findings.
type Page struct {
	Items       []finding.Finding `json:"items"`
	Total       int               `json:"total"`
	Filtered    int               `json:"filtered"`
	Page        int               `json:"page"`
	PageSize    int               `json:"page_size"`
	TotalPages  int               `json:"total_pages"`
	ShowingFrom int               `json:"showing_from"`
	ShowingTo   int               `json:"showing_to"`
}

// Apply filters, sorts and paginates findings without modifying the input.
// Pages are 1-based; a page outside [1, TotalPages] is clamped into range.
func Apply(findings []finding.Finding, filter Filter, order Sort, page, pageSize int) (Page, error) {
	if pageSize < 1 {
		return Page{}, ErrInvalidPageSize
	}

	matched := make([]finding.Finding, 0, len(findings))
	for _, f := range findings {
		if filter.Match(f) {
			matched = append(matched, f)
		}
	}
	order.Apply(matched)

	page, totalPages, offset := paginate(len(matched), page, pageSize)
	end := min(offset+pageSize, len(matched))
	items := matched[offset:end]
	from, to := showingRange(len(matched), offset, len(items))

	return Page{
		Items:       items,
		Total:       len(findings),
		Filtered:    len(matched),
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  totalPages,
		ShowingFrom: from,
		ShowingTo:   to,
	}, nil
}

// paginate returns the clamped page, ceil(total/perPage) and the slice offset.
// TotalPages is zero for an empty result; the page is still reported as 1.
func paginate(total, page, perPage int) (int, int, int) {
	totalPages := (total + perPage - 1) / perPage
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = max(totalPages, 1)
	}
	offset := (page - 1) * perPage
	if offset > total {
		offset = total
	}
	return page, totalPages, offset
}

func showingRange(total, offset, showing int) (int, int) {
	if total <= 0 || showing <= 0 {
		return 0, 0
	}
	return offset + 1, min(offset+showing, total)
}
