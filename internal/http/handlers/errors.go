package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/threatdesk/threatdesk/internal/catalog"
	"github.com/threatdesk/threatdesk/internal/connectors/spreadsheet"
	"github.com/threatdesk/threatdesk/internal/remediation"
	"github.com/threatdesk/threatdesk/internal/statussync"
	"github.com/threatdesk/threatdesk/internal/store"
	"github.com/threatdesk/threatdesk/internal/sync"
	"github.com/threatdesk/threatdesk/internal/view"
)

var clientErrors = []struct {
	err    error
	status int
}{
	{statussync.ErrNotFound, http.StatusNotFound},
	{statussync.ErrUnknownSource, http.StatusNotFound},
	{remediation.ErrArtifactNotFound, http.StatusNotFound},
	{store.ErrImportNotFound, http.StatusNotFound},
	{remediation.ErrInProgress, http.StatusConflict},
	{remediation.ErrUnsupportedAction, http.StatusBadRequest},
	{catalog.ErrIncompleteSelection, http.StatusUnprocessableEntity},
	{catalog.ErrUnknownProduct, http.StatusUnprocessableEntity},
	{catalog.ErrUnknownRepository, http.StatusUnprocessableEntity},
	{view.ErrInvalidPageSize, http.StatusBadRequest},
	{spreadsheet.ErrEmptyWorkbook, http.StatusUnprocessableEntity},
	{spreadsheet.ErrInvalidWorkbook, http.StatusUnprocessableEntity},
	{remediation.ErrCreationRejected, http.StatusBadGateway},
	{sync.ErrNoEnabledSources, http.StatusServiceUnavailable},
}

// statusForError maps domain errors to client-facing statuses. Unknown errors
// report false and are rendered as internal errors.
func statusForError(err error) (int, bool) {
	for _, ce := range clientErrors {
		if errors.Is(err, ce.err) {
			return ce.status, true
		}
	}
	return 0, false
}

// renderDomainError renders known domain errors with their message and
// everything else through RenderError.
func (h *Handlers) renderDomainError(c *echo.Context, err error) error {
	if status, ok := statusForError(err); ok {
		return RenderProblem(c, status, err.Error())
	}
	return h.RenderError(c, err)
}
