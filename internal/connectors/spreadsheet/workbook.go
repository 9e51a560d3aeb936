// Package spreadsheet turns operator-supplied vulnerability workbooks into
// cached import rows and serves those rows as a finding source.
package spreadsheet

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/threatdesk/threatdesk/internal/finding"
	"github.com/threatdesk/threatdesk/internal/normalize"
	"github.com/threatdesk/threatdesk/internal/store"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrEmptyWorkbook is returned when a workbook has no data rows.
	ErrEmptyWorkbook = errors.New("workbook has no data rows")
	// ErrInvalidWorkbook is returned for uploads that are not .xlsx files.
	ErrInvalidWorkbook = errors.New("file is not a readable .xlsx workbook")
)

// OriginImport is the reporter name recorded on imported rows.
const OriginImport = "excel_import"

const (
	colGISID = iota
	colAIT
	colTitle
	colRemediation
	colStatus
	columnCount
)

var headerAliases = map[string]int{
	"gis id":            colGISID,
	"gis_id":            colGISID,
	"ait #":             colAIT,
	"ait":               colAIT,
	"title":             colTitle,
	"remediation steps": colRemediation,
	"remediation":       colRemediation,
	"status":            colStatus,
}

// record is the canonical feed shape persisted for each imported row.
type record struct {
	ID                string `json:"id"`
	GISID             string `json:"gis_id,omitempty"`
	AITTag            string `json:"ait_tag,omitempty"`
	Title             string `json:"title,omitempty"`
	RemediationAction string `json:"remediation_action,omitempty"`
	Status            string `json:"status"`
	ImportKind        string `json:"import_kind"`
	Source            string `json:"source"`
}

// ParseWorkbook reads the first sheet of an .xlsx workbook. The first row is a
// header; rows without any value are skipped.
func ParseWorkbook(r io.Reader, kind finding.ImportKind, now time.Time) ([]store.ImportRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, ErrEmptyWorkbook
	}

	sum := sha256.Sum256(data)
	scope := hex.EncodeToString(sum[:])[:12]
	columns := columnIndexes(rows[0])

	out := make([]store.ImportRow, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		rec := record{
			GISID:             cell(cells, columns[colGISID]),
			AITTag:            cell(cells, columns[colAIT]),
			Title:             cell(cells, columns[colTitle]),
			RemediationAction: cell(cells, columns[colRemediation]),
			Status:            string(finding.StatusActive),
			ImportKind:        string(kind),
			Source:            OriginImport,
		}
		if status, err := finding.ParseStatus(cell(cells, columns[colStatus])); err == nil {
			rec.Status = string(status)
		}
		// Spreadsheet rows are 1-based and the header occupies row 1.
		rec.ID = normalize.FirstNonEmpty(rec.GISID, fmt.Sprintf("%s-row-%d", scope, i+2))

		raw, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, store.ImportRow{
			ID:         rec.ID,
			Kind:       kind,
			Record:     raw,
			ImportedAt: now,
		})
	}
	if len(out) == 0 {
		return nil, ErrEmptyWorkbook
	}
	return out, nil
}

// columnIndexes maps known header names to their positions. Columns whose
// header is not recognized keep their positional default.
func columnIndexes(header []string) [columnCount]int {
	var idx [columnCount]int
	for i := range idx {
		idx[i] = i
	}
	seen := map[int]bool{}
	for pos, name := range header {
		col, ok := headerAliases[normalize.Lower(name)]
		if !ok || seen[col] {
			continue
		}
		seen[col] = true
		idx[col] = pos
	}
	return idx
}

func cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
