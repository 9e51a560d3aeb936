package spreadsheet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/threatdesk/threatdesk/internal/connectors/registry"
	"github.com/threatdesk/threatdesk/internal/finding"
	"github.com/threatdesk/threatdesk/internal/store"
)

// ImportStore is the persisted import cache.
type ImportStore interface {
	ListImports(ctx context.Context) ([]store.ImportRow, error)
	AppendImports(ctx context.Context, rows []store.ImportRow) error
	UpdateImportStatus(ctx context.Context, id string, status finding.Status) error
	ClearImports(ctx context.Context) (int64, error)
}

// Source serves cached import rows through the same path as the HTTP feeds.
type Source struct {
	store ImportStore
}

var _ registry.Source = (*Source)(nil)

func NewSource(s ImportStore) *Source {
	return &Source{store: s}
}

func (s *Source) Kind() finding.Source { return finding.SourceImport }
func (s *Source) DisplayName() string  { return "Spreadsheet Imports" }

// Fetch returns the cached rows as a JSON array.
func (s *Source) Fetch(ctx context.Context) ([]byte, error) {
	rows, err := s.store.ListImports(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.Record)
	}
	return json.Marshal(records)
}

func (s *Source) UpdateStatus(ctx context.Context, originalID string, status finding.Status) error {
	return s.store.UpdateImportStatus(ctx, originalID, status)
}

// Import parses a workbook and appends its rows to the cache. It returns the
// number of rows stored.
func Import(ctx context.Context, dst ImportStore, r io.Reader, kind finding.ImportKind) (int, error) {
	rows, err := ParseWorkbook(r, kind, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if err := dst.AppendImports(ctx, rows); err != nil {
		return 0, fmt.Errorf("store imported rows: %w", err)
	}
	return len(rows), nil
}
