package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/threatdesk/threatdesk/internal/catalog"
	"github.com/threatdesk/threatdesk/internal/finding"
	"github.com/threatdesk/threatdesk/internal/remediation"
	"github.com/threatdesk/threatdesk/internal/view"
)

type findingsResponse struct {
	view.Page
	State        view.State                `json:"state"`
	Seq          uint64                    `json:"seq"`
	RefreshedAt  time.Time                 `json:"refreshed_at,omitzero"`
	SourceErrors map[finding.Source]string `json:"source_errors,omitempty"`
}

// HandleFindings renders the session's current page of findings after
// applying any view changes carried by the query string.
func (h *Handlers) HandleFindings(c *echo.Context) error {
	ctx := c.Request().Context()
	st, err := h.applyViewParams(h.loadViewState(ctx), c.Request().URL.Query())
	if err != nil {
		return RenderProblem(c, http.StatusBadRequest, err.Error())
	}

	resp := findingsResponse{State: st}
	var findings []finding.Finding
	if snap := h.snapshot(); snap != nil {
		findings = snap.Findings
		resp.Seq = snap.Seq
		resp.RefreshedAt = snap.RefreshedAt
		if len(snap.SourceErrors) > 0 {
			resp.SourceErrors = make(map[finding.Source]string, len(snap.SourceErrors))
			for src := range snap.SourceErrors {
				resp.SourceErrors[src] = "source unavailable"
			}
		}
	}

	page, err := st.Apply(findings)
	if err != nil {
		return h.renderDomainError(c, err)
	}
	// Keep the clamped page so the session does not point past the end.
	st.Page = page.Page
	resp.State = st
	resp.Page = page
	h.saveViewState(ctx, st)
	return c.JSON(http.StatusOK, resp)
}

func (h *Handlers) HandleFindingFacets(c *echo.Context) error {
	var findings []finding.Finding
	if snap := h.snapshot(); snap != nil {
		findings = snap.Findings
	}
	return c.JSON(http.StatusOK, view.BuildFacets(findings))
}

type findingDetail struct {
	Finding     finding.Finding      `json:"finding"`
	Category    finding.Category     `json:"category"`
	Action      remediation.Action   `json:"action"`
	Remediation remediation.Progress `json:"remediation"`
	Options     []catalog.Product    `json:"options,omitempty"`
}

func (h *Handlers) HandleFindingShow(c *echo.Context) error {
	id, err := findingID(c)
	if err != nil {
		return RenderProblem(c, http.StatusBadRequest, err.Error())
	}
	f, ok := h.lookup(id)
	if !ok {
		return RenderNotFound(c)
	}

	detail := findingDetail{
		Finding:  f,
		Category: f.Category(),
		Action:   remediation.DefaultAction(f.Category()),
	}
	if h.Remediation != nil {
		key := remediation.Key{ID: f.ID, Action: detail.Action}
		progress, err := h.Remediation.Status(c.Request().Context(), key)
		if err != nil {
			return h.RenderError(c, err)
		}
		detail.Remediation = progress
	}
	if detail.Category == finding.CategoryApplication && h.Catalog != nil {
		detail.Options = h.Catalog.Options(f.OwnerTag)
	}
	return c.JSON(http.StatusOK, detail)
}

// HandleFindingStatus toggles the finding's status at its source and returns
// the finding as re-read from the sources.
func (h *Handlers) HandleFindingStatus(c *echo.Context) error {
	id, err := findingID(c)
	if err != nil {
		return RenderProblem(c, http.StatusBadRequest, err.Error())
	}
	if h.Status == nil {
		return RenderProblem(c, http.StatusServiceUnavailable, "status updates are not configured")
	}
	updated, err := h.Status.Toggle(c.Request().Context(), id)
	if err != nil {
		if status, ok := statusForError(err); ok {
			return RenderProblem(c, status, err.Error())
		}
		c.Logger().Error("status update failed", "request_id", requestID(c), "finding_id", id.String(), "error", err)
		return RenderProblem(c, http.StatusBadGateway, "the owning source did not accept the status update")
	}
	return c.JSON(http.StatusOK, updated)
}
