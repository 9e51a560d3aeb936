package spreadsheet

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/threatdesk/threatdesk/internal/finding"
	"github.com/threatdesk/threatdesk/internal/normalize"
	"github.com/threatdesk/threatdesk/internal/store"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName error: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cellRef, &row); err != nil {
			t.Fatalf("SetSheetRow error: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer error: %v", err)
	}
	return buf.Bytes()
}

var header = []any{"GIS Id", "AIT #", "TITLE", "Remediation Steps", "Status"}

func TestParseWorkbook(t *testing.T) {
	data := buildWorkbook(t,
		header,
		[]any{"GIS-100", "AIT-7", "Outdated TLS", "Upgrade OpenSSL", "Resolved"},
		[]any{" ", " ", " ", " ", " "},
		[]any{"", "AIT-8", "Weak cipher", "", ""},
	)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	rows, err := ParseWorkbook(bytes.NewReader(data), finding.ImportInfrastructure, now)
	if err != nil {
		t.Fatalf("ParseWorkbook error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].ID != "GIS-100" {
		t.Fatalf("rows[0].ID = %q, want GIS-100", rows[0].ID)
	}
	if !strings.HasSuffix(rows[1].ID, "-row-4") {
		t.Fatalf("rows[1].ID = %q, want row-4 suffix", rows[1].ID)
	}
	if rows[0].Kind != finding.ImportInfrastructure || !rows[0].ImportedAt.Equal(now) {
		t.Fatalf("rows[0] = %+v", rows[0])
	}
	if !strings.Contains(string(rows[0].Record), `"status":"NEUTRALIZED"`) {
		t.Fatalf("rows[0].Record = %s, want neutralized status", rows[0].Record)
	}
	if !strings.Contains(string(rows[1].Record), `"status":"ACTIVE"`) {
		t.Fatalf("rows[1].Record = %s, want default active status", rows[1].Record)
	}
}

func TestParseWorkbookIDsAreDeterministic(t *testing.T) {
	data := buildWorkbook(t, header, []any{"", "AIT-1", "No id", "", ""})

	first, err := ParseWorkbook(bytes.NewReader(data), finding.ImportApplication, time.Now())
	if err != nil {
		t.Fatalf("ParseWorkbook error: %v", err)
	}
	second, err := ParseWorkbook(bytes.NewReader(data), finding.ImportApplication, time.Now())
	if err != nil {
		t.Fatalf("ParseWorkbook error: %v", err)
	}
	if first[0].ID != second[0].ID {
		t.Fatalf("ids differ across imports: %q vs %q", first[0].ID, second[0].ID)
	}

	other := buildWorkbook(t, header, []any{"", "AIT-2", "Another", "", ""})
	third, err := ParseWorkbook(bytes.NewReader(other), finding.ImportApplication, time.Now())
	if err != nil {
		t.Fatalf("ParseWorkbook error: %v", err)
	}
	if third[0].ID == first[0].ID {
		t.Fatalf("different workbooks share row id %q", first[0].ID)
	}
}

func TestParseWorkbookHeaderOrder(t *testing.T) {
	data := buildWorkbook(t,
		[]any{"Status", "TITLE", "GIS Id"},
		[]any{"closed", "Reordered", "GIS-5"},
	)
	rows, err := ParseWorkbook(bytes.NewReader(data), finding.ImportApplication, time.Now())
	if err != nil {
		t.Fatalf("ParseWorkbook error: %v", err)
	}
	if rows[0].ID != "GIS-5" {
		t.Fatalf("ID = %q, want GIS-5", rows[0].ID)
	}
	if !strings.Contains(string(rows[0].Record), `"title":"Reordered"`) {
		t.Fatalf("Record = %s", rows[0].Record)
	}
}

func TestParseWorkbookRejectsEmptyAndInvalid(t *testing.T) {
	data := buildWorkbook(t, header)
	if _, err := ParseWorkbook(bytes.NewReader(data), finding.ImportApplication, time.Now()); !errors.Is(err, ErrEmptyWorkbook) {
		t.Fatalf("ParseWorkbook error = %v, want ErrEmptyWorkbook", err)
	}
	if _, err := ParseWorkbook(strings.NewReader("not a workbook"), finding.ImportApplication, time.Now()); !errors.Is(err, ErrInvalidWorkbook) {
		t.Fatalf("ParseWorkbook error = %v, want ErrInvalidWorkbook", err)
	}
}

func TestSourceServesImportsThroughNormalizer(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	data := buildWorkbook(t,
		header,
		[]any{"GIS-1", "AIT-3", "Old library", "Bump dependency", "Open"},
	)
	n, err := Import(ctx, mem, bytes.NewReader(data), finding.ImportApplication)
	if err != nil {
		t.Fatalf("Import error: %v", err)
	}
	if n != 1 {
		t.Fatalf("Import = %d, want 1", n)
	}

	src := NewSource(mem)
	payload, err := src.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	res := normalize.Payload(finding.SourceImport, payload)
	if len(res.Findings) != 1 || res.Dropped != 0 {
		t.Fatalf("Payload = %+v", res)
	}
	f := res.Findings[0]
	if f.ID != finding.NewID(finding.SourceImport, "GIS-1") {
		t.Fatalf("ID = %v", f.ID)
	}
	if f.Severity != finding.SeverityMedium || f.Status != finding.StatusActive {
		t.Fatalf("severity/status = %s/%s, want MEDIUM/ACTIVE", f.Severity, f.Status)
	}
	if f.OwnerTag != "AIT-3" || f.RemediationAction != "Bump dependency" || f.Origin != OriginImport {
		t.Fatalf("finding = %+v", f)
	}

	if err := src.UpdateStatus(ctx, "GIS-1", finding.StatusNeutralized); err != nil {
		t.Fatalf("UpdateStatus error: %v", err)
	}
	payload, err = src.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	res = normalize.Payload(finding.SourceImport, payload)
	if got := res.Findings[0].Status; got != finding.StatusNeutralized {
		t.Fatalf("Status after update = %s, want NEUTRALIZED", got)
	}
}

func TestSourceFetchEmptyCache(t *testing.T) {
	payload, err := NewSource(store.NewMemory()).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if string(payload) != "[]" {
		t.Fatalf("payload = %s, want []", payload)
	}
}
