package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/threatdesk/threatdesk/internal/catalog"
	"github.com/threatdesk/threatdesk/internal/remediation"
)

type artifactResponse struct {
	remediation.Artifact
	State       remediation.State `json:"state"`
	Key         string            `json:"key"`
	DownloadURL string            `json:"download_url"`
}

type selectionRequiredResponse struct {
	Error    string            `json:"error"`
	OwnerTag string            `json:"owner_tag"`
	Options  []catalog.Product `json:"options"`
}

func downloadURL(key remediation.Key) string {
	return fmt.Sprintf("/api/findings/%s/%s/remediation/%s", key.ID.Source, key.ID.OriginalID, key.Action)
}

// HandleGenerateRemediation returns the cached artifact for a finding or
// generates one. force=1 regenerates even when a cached artifact exists.
func (h *Handlers) HandleGenerateRemediation(c *echo.Context) error {
	if h.Remediation == nil {
		return RenderProblem(c, http.StatusServiceUnavailable, "remediation is not configured")
	}
	id, err := findingID(c)
	if err != nil {
		return RenderProblem(c, http.StatusBadRequest, err.Error())
	}
	f, ok := h.lookup(id)
	if !ok {
		return RenderNotFound(c)
	}
	action, err := remediation.ParseAction(c.FormValue("action"))
	if err != nil {
		return RenderProblem(c, http.StatusBadRequest, err.Error())
	}

	artifact, err := h.Remediation.Generate(c.Request().Context(), f, remediation.Request{
		Action: action,
		Force:  ParseBoolForm(c.FormValue("force")),
		Selection: remediation.Selection{
			ProductKey: c.FormValue("product_key"),
			Repository: c.FormValue("repository"),
			RepoURL:    c.FormValue("repo_url"),
		},
	})
	if err != nil {
		var selErr *remediation.SelectionRequiredError
		if errors.As(err, &selErr) {
			return c.JSON(http.StatusUnprocessableEntity, selectionRequiredResponse{
				Error:    selErr.Error(),
				OwnerTag: selErr.OwnerTag,
				Options:  selErr.Options,
			})
		}
		return h.renderDomainError(c, err)
	}

	return c.JSON(http.StatusOK, artifactResponse{
		Artifact:    artifact,
		State:       remediation.StateReady,
		Key:         artifact.Key.String(),
		DownloadURL: downloadURL(artifact.Key),
	})
}

// HandleDownloadRemediation serves a cached artifact as an attachment. It
// never generates content.
func (h *Handlers) HandleDownloadRemediation(c *echo.Context) error {
	if h.Remediation == nil {
		return RenderNotFound(c)
	}
	id, err := findingID(c)
	if err != nil {
		return RenderProblem(c, http.StatusBadRequest, err.Error())
	}
	action, err := remediation.ParseAction(c.Param("action"))
	if err != nil || action == "" {
		return RenderProblem(c, http.StatusBadRequest, fmt.Sprintf("unknown remediation action %q", c.Param("action")))
	}

	artifact, err := h.Remediation.Cached(c.Request().Context(), remediation.Key{ID: id, Action: action})
	if err != nil {
		return h.renderDomainError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", artifact.FileName))
	return c.Blob(http.StatusOK, artifact.ContentType, artifact.Content)
}

// HandleClearArtifacts drops every cached artifact.
func (h *Handlers) HandleClearArtifacts(c *echo.Context) error {
	if h.Remediation == nil {
		return RenderNotFound(c)
	}
	n, err := h.Remediation.Clear(c.Request().Context())
	if err != nil {
		return h.RenderError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"cleared": n})
}
