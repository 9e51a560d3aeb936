package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/threatdesk/threatdesk/internal/finding"
)

// ErrImportNotFound is returned when an imported row does not exist.
var ErrImportNotFound = errors.New("imported record not found")

// ImportRow is one record converted from an operator spreadsheet. Record holds
// the canonical feed fields as a JSON object.
type ImportRow struct {
	ID         string
	Kind       finding.ImportKind
	Record     json.RawMessage
	ImportedAt time.Time
}

// Imports is the Postgres-backed spreadsheet import cache.
type Imports struct {
	db DBTX
}

func NewImports(db DBTX) *Imports {
	return &Imports{db: db}
}

func (s *Imports) ListImports(ctx context.Context) ([]ImportRow, error) {
	rows, err := s.db.Query(ctx, `SELECT id, import_kind, record, imported_at FROM spreadsheet_imports ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ImportRow, error) {
		var (
			r    ImportRow
			kind string
		)
		if err := row.Scan(&r.ID, &kind, &r.Record, &r.ImportedAt); err != nil {
			return ImportRow{}, err
		}
		r.Kind = finding.ImportKind(kind)
		return r, nil
	})
}

const upsertImport = `
INSERT INTO spreadsheet_imports (id, import_kind, record, imported_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
    import_kind = EXCLUDED.import_kind,
    record = EXCLUDED.record,
    imported_at = EXCLUDED.imported_at`

// AppendImports stores rows. Re-importing a row id replaces its record.
func (s *Imports) AppendImports(ctx context.Context, rows []ImportRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(upsertImport, r.ID, string(r.Kind), []byte(r.Record), r.ImportedAt)
	}
	if err := s.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert imports: %w", err)
	}
	return nil
}

func (s *Imports) UpdateImportStatus(ctx context.Context, id string, status finding.Status) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE spreadsheet_imports SET record = jsonb_set(record, '{status}', to_jsonb($2::text)) WHERE id = $1`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("update import status %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrImportNotFound, id)
	}
	return nil
}

func (s *Imports) ClearImports(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM spreadsheet_imports`)
	if err != nil {
		return 0, fmt.Errorf("delete imports: %w", err)
	}
	return tag.RowsAffected(), nil
}
