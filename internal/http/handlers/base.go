// Package handlers contains HTTP handler logic split by domain.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/labstack/echo/v5"
	"github.com/threatdesk/threatdesk/internal/catalog"
	"github.com/threatdesk/threatdesk/internal/connectors/registry"
	"github.com/threatdesk/threatdesk/internal/connectors/spreadsheet"
	"github.com/threatdesk/threatdesk/internal/finding"
	"github.com/threatdesk/threatdesk/internal/remediation"
	"github.com/threatdesk/threatdesk/internal/sync"
)

const (
	// ContextKeyRequestID stores the request id (X-Request-ID) for logging and client error references.
	ContextKeyRequestID = "request_id"

	// InternalErrorCode is a stable error code safe to return to clients.
	InternalErrorCode = "INTERNAL_ERROR"
)

// RefreshRunner is the interface for triggering manual refreshes.
type RefreshRunner interface {
	RunOnce(context.Context) error
}

// SnapshotReader exposes the latest published findings.
type SnapshotReader interface {
	Snapshot() *sync.Snapshot
	Lookup(id finding.ID) (finding.Finding, bool)
}

// StatusToggler writes status changes back to the owning source.
type StatusToggler interface {
	Toggle(ctx context.Context, id finding.ID) (finding.Finding, error)
}

// Handlers groups all HTTP handlers and shared dependencies.
type Handlers struct {
	Snapshots   SnapshotReader
	Syncer      RefreshRunner
	Status      StatusToggler
	Remediation *remediation.Engine
	Imports     spreadsheet.ImportStore
	Catalog     *catalog.Catalog
	Sources     *registry.Registry
	Sessions    *scs.SessionManager

	DefaultPageSize int
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func requestID(c *echo.Context) string {
	id, _ := c.Get(ContextKeyRequestID).(string)
	return id
}

// RenderError logs err and returns a generic 500 response carrying only the
// request reference.
func (h *Handlers) RenderError(c *echo.Context, err error) error {
	requestID := requestID(c)
	path := ""
	if req := c.Request(); req != nil && req.URL != nil {
		path = req.URL.Path
	}
	method := ""
	if req := c.Request(); req != nil {
		method = req.Method
	}
	c.Logger().Error("http error",
		"request_id", requestID,
		"method", method,
		"path", path,
		"ip", c.RealIP(),
		"error", err,
	)

	msg := "Internal server error."
	if requestID != "" {
		msg = fmt.Sprintf("%s Reference: %s.", msg, requestID)
	}
	return c.JSON(http.StatusInternalServerError, errorBody{
		Error:     msg,
		Code:      InternalErrorCode,
		RequestID: requestID,
	})
}

// RenderProblem returns a client error with a message safe to show.
func RenderProblem(c *echo.Context, status int, message string) error {
	return c.JSON(status, errorBody{Error: message, RequestID: requestID(c)})
}

// RenderNotFound returns a 404 response.
func RenderNotFound(c *echo.Context) error {
	return RenderProblem(c, http.StatusNotFound, "404 page not found")
}

// ParseBoolForm parses a form value as a boolean.
func ParseBoolForm(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// findingID reads the :source/:id path pair.
func findingID(c *echo.Context) (finding.ID, error) {
	source, err := finding.ParseSource(c.Param("source"))
	if err != nil {
		return finding.ID{}, err
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return finding.ID{}, fmt.Errorf("finding id is required")
	}
	return finding.NewID(source, id), nil
}

func (h *Handlers) snapshot() *sync.Snapshot {
	if h.Snapshots == nil {
		return nil
	}
	return h.Snapshots.Snapshot()
}

func (h *Handlers) lookup(id finding.ID) (finding.Finding, bool) {
	if h.Snapshots == nil {
		return finding.Finding{}, false
	}
	return h.Snapshots.Lookup(id)
}

func (h *Handlers) HandleHealthz(c *echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
