package scanapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/threatdesk/threatdesk/internal/connectors/registry"
	"github.com/threatdesk/threatdesk/internal/finding"
)

// Feed exposes one read endpoint of the scan API as a registry source.
type Feed struct {
	client     *Client
	kind       finding.Source
	name       string
	path       string
	query      url.Values
	statusPath string
}

var _ registry.Source = (*Feed)(nil)

// ThreatFeed reads live threat detections.
func (c *Client) ThreatFeed() *Feed {
	return &Feed{
		client:     c,
		kind:       finding.SourceThreat,
		name:       "Threat Detection",
		path:       pathThreats,
		statusPath: pathThreats,
	}
}

// VulnerabilityFeed reads application vulnerabilities.
func (c *Client) VulnerabilityFeed() *Feed {
	return &Feed{
		client:     c,
		kind:       finding.SourceVulnerability,
		name:       "Application Vulnerabilities",
		path:       pathVulnerabilities,
		statusPath: pathVulnerabilities,
	}
}

// InfrastructureFeed reads infrastructure vulnerabilities. Status writes share
// the vulnerability endpoint.
func (c *Client) InfrastructureFeed() *Feed {
	return &Feed{
		client:     c,
		kind:       finding.SourceInfrastructure,
		name:       "Infrastructure Vulnerabilities",
		path:       pathVulnerabilities,
		query:      url.Values{"type": []string{"infrastructure"}},
		statusPath: pathVulnerabilities,
	}
}

func (f *Feed) Kind() finding.Source { return f.kind }
func (f *Feed) DisplayName() string  { return f.name }

func (f *Feed) Fetch(ctx context.Context) ([]byte, error) {
	body, err := f.client.get(ctx, f.path, f.query)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", f.kind, err)
	}
	return body, nil
}

// UpdateStatus issues PUT {statusPath}/{id}/status with {"status": ...}.
func (f *Feed) UpdateStatus(ctx context.Context, originalID string, status finding.Status) error {
	originalID = strings.TrimSpace(originalID)
	if originalID == "" {
		return errors.New("finding id is required")
	}
	path := fmt.Sprintf("%s/%s/status", f.statusPath, url.PathEscape(originalID))
	payload := struct {
		Status string `json:"status"`
	}{Status: string(status)}
	if _, err := f.client.sendJSON(ctx, http.MethodPut, path, payload); err != nil {
		return fmt.Errorf("update %s status for %s: %w", f.kind, originalID, err)
	}
	return nil
}
