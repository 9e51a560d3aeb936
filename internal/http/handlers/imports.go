package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/threatdesk/threatdesk/internal/connectors/spreadsheet"
	"github.com/threatdesk/threatdesk/internal/finding"
	"github.com/threatdesk/threatdesk/internal/sync"
)

const maxWorkbookSize = 32 << 20 // 32 MiB

type refreshResponse struct {
	Seq          uint64                    `json:"seq,omitempty"`
	Findings     int                       `json:"findings"`
	Counts       map[finding.Source]int    `json:"counts,omitempty"`
	SourceErrors map[finding.Source]string `json:"source_errors,omitempty"`
	Status       string                    `json:"status"`
}

// runRefresh refreshes inline and describes the outcome. Refresh outcomes that
// still leave a consistent snapshot are not errors here.
func (h *Handlers) runRefresh(ctx context.Context) (refreshResponse, error) {
	err := h.Syncer.RunOnce(ctx)
	resp := refreshResponse{Status: "ok"}
	switch {
	case err == nil:
	case errors.Is(err, sync.ErrRefreshQueued):
		resp.Status = "queued"
		return resp, nil
	case errors.Is(err, sync.ErrStaleRefresh):
		resp.Status = "superseded"
	case errors.Is(err, sync.ErrNoData):
		resp.Status = "no_data"
	default:
		return resp, err
	}
	if snap := h.snapshot(); snap != nil {
		resp.Seq = snap.Seq
		resp.Findings = len(snap.Findings)
		resp.Counts = snap.Counts
		if len(snap.SourceErrors) > 0 {
			resp.SourceErrors = make(map[finding.Source]string, len(snap.SourceErrors))
			for src := range snap.SourceErrors {
				resp.SourceErrors[src] = "source unavailable"
			}
		}
	}
	return resp, nil
}

// HandleRefresh triggers a manual refresh.
func (h *Handlers) HandleRefresh(c *echo.Context) error {
	if h.Syncer == nil {
		return RenderProblem(c, http.StatusForbidden, "manual refresh is disabled")
	}
	resp, err := h.runRefresh(c.Request().Context())
	if err != nil {
		return h.renderDomainError(c, err)
	}
	if resp.Status == "queued" {
		return c.JSON(http.StatusAccepted, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// refreshAfterChange refreshes after the import cache changed. A failure is
// logged; the change itself already succeeded.
func (h *Handlers) refreshAfterChange(c *echo.Context) {
	if h.Syncer == nil {
		return
	}
	if _, err := h.runRefresh(c.Request().Context()); err != nil {
		c.Logger().Warn("refresh after import change failed", "request_id", requestID(c), "error", err)
	}
}

// workbookReader returns the uploaded workbook: the "file" part of a
// multipart form, or the raw request body otherwise.
func workbookReader(c *echo.Context) (io.ReadCloser, error) {
	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxWorkbookSize)
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get(echo.HeaderContentType))
	if strings.HasPrefix(mediaType, "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, err
		}
		return fh.Open()
	}
	return req.Body, nil
}

// HandleImport stores the rows of an uploaded workbook and refreshes.
func (h *Handlers) HandleImport(c *echo.Context) error {
	if h.Imports == nil {
		return RenderProblem(c, http.StatusServiceUnavailable, "imports are not configured")
	}
	kind, err := finding.ParseImportKind(c.QueryParam("kind"))
	if err != nil {
		return RenderProblem(c, http.StatusBadRequest, err.Error())
	}
	body, err := workbookReader(c)
	if err != nil {
		return RenderProblem(c, http.StatusBadRequest, "workbook upload is missing")
	}
	defer body.Close()

	n, err := spreadsheet.Import(c.Request().Context(), h.Imports, body, kind)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return RenderProblem(c, http.StatusRequestEntityTooLarge, "workbook is too large")
		}
		return h.renderDomainError(c, err)
	}
	slog.InfoContext(c.Request().Context(), "spreadsheet imported", "kind", kind, "rows", n)

	h.refreshAfterChange(c)
	return c.JSON(http.StatusOK, map[string]any{"imported": n, "kind": kind})
}

// HandleClearImports drops every imported row and refreshes.
func (h *Handlers) HandleClearImports(c *echo.Context) error {
	if h.Imports == nil {
		return RenderProblem(c, http.StatusServiceUnavailable, "imports are not configured")
	}
	n, err := h.Imports.ClearImports(c.Request().Context())
	if err != nil {
		return h.RenderError(c, err)
	}
	h.refreshAfterChange(c)
	return c.JSON(http.StatusOK, map[string]int64{"cleared": n})
}

// HandleCatalog lists the ownership catalog, or the options for one owner
// when ait is given.
func (h *Handlers) HandleCatalog(c *echo.Context) error {
	if h.Catalog == nil {
		return RenderNotFound(c)
	}
	if ait := strings.TrimSpace(c.QueryParam("ait")); ait != "" {
		return c.JSON(http.StatusOK, map[string]any{"ait": ait, "options": h.Catalog.Options(ait)})
	}
	return c.JSON(http.StatusOK, h.Catalog)
}

// HandleSources reports how each source fared in the last refresh.
func (h *Handlers) HandleSources(c *echo.Context) error {
	if h.Sources == nil {
		return RenderNotFound(c)
	}
	var (
		counts map[finding.Source]int
		failed map[finding.Source]error
	)
	if snap := h.snapshot(); snap != nil {
		counts, failed = snap.Counts, snap.SourceErrors
	}
	return c.JSON(http.StatusOK, h.Sources.States(counts, failed))
}
