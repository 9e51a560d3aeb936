package scanapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/threatdesk/threatdesk/internal/remediation"
)

var _ remediation.Creator = (*Client)(nil)

type infrastructurePromptRequest struct {
	VulnerabilityID    string `json:"vulnerability_id"`
	VulnerabilityTitle string `json:"vulnerability_title"`
	AITTag             string `json:"ait_tag"`
	Severity           string `json:"severity"`
	RemediationAction  string `json:"remediation_action"`
	TerraformPrompt    string `json:"terraform_prompt"`
}

type infrastructurePromptResponse struct {
	Success  bool   `json:"success"`
	FilePath string `json:"file_path"`
	Error    string `json:"error"`
	Message  string `json:"message"`
}

// CreateInfrastructureRemediation posts generated Terraform guidance to the
// backend, which stores it next to the scanned infrastructure code.
func (c *Client) CreateInfrastructureRemediation(ctx context.Context, req remediation.InfrastructureRequest) (remediation.InfrastructureResult, error) {
	body, err := c.sendJSON(ctx, http.MethodPost, pathInfrastructurePrompt, infrastructurePromptRequest{
		VulnerabilityID:    req.FindingID,
		VulnerabilityTitle: req.Title,
		AITTag:             req.OwnerTag,
		Severity:           req.Severity,
		RemediationAction:  req.RemediationAction,
		TerraformPrompt:    req.GeneratedContent,
	})
	if err != nil {
		return remediation.InfrastructureResult{}, err
	}

	var resp infrastructurePromptResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return remediation.InfrastructureResult{}, fmt.Errorf("decode infrastructure prompt response: %w", err)
	}
	msg := strings.TrimSpace(resp.Error)
	if msg == "" {
		msg = strings.TrimSpace(resp.Message)
	}
	return remediation.InfrastructureResult{
		Success:  resp.Success,
		FilePath: strings.TrimSpace(resp.FilePath),
		Message:  msg,
	}, nil
}
