package remediation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/threatdesk/threatdesk/internal/finding"
)

// ErrArtifactNotFound is returned by a Store that holds nothing for a key.
var ErrArtifactNotFound = errors.New("remediation artifact not found")

// Action is the kind of artifact generated for a finding.
type Action string

const (
	ActionGuide         Action = "guide"
	ActionComprehensive Action = "comprehensive"
	ActionTerraform     Action = "terraform"
)

// DefaultAction returns the action kind for a remediation branch.
func DefaultAction(c finding.Category) Action {
	switch c {
	case finding.CategoryThreat:
		return ActionGuide
	case finding.CategoryInfrastructure:
		return ActionTerraform
	default:
		return ActionComprehensive
	}
}

// ParseAction reads an action kind from a request. Empty input is allowed and
// means the category default.
func ParseAction(raw string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(raw))); a {
	case "", ActionGuide, ActionComprehensive, ActionTerraform:
		return a, nil
	default:
		return "", fmt.Errorf("unknown remediation action %q", raw)
	}
}

// Key identifies one cached artifact.
type Key struct {
	ID     finding.ID
	Action Action
}

// String is the cache key form "{findingId}_{actionKind}".
func (k Key) String() string {
	return k.ID.String() + "_" + string(k.Action)
}

// Selection is the operator's choice for application findings.
type Selection struct {
	ProductKey string `json:"product_key"`
	Repository string `json:"repository"`
	RepoURL    string `json:"repo_url,omitempty"`
}

func (s Selection) IsZero() bool {
	return strings.TrimSpace(s.ProductKey) == "" && strings.TrimSpace(s.Repository) == ""
}

// Artifact is generated remediation content for one finding and action.
type Artifact struct {
	Key         Key              `json:"-"`
	Category    finding.Category `json:"category"`
	FileName    string           `json:"file_name"`
	ContentType string           `json:"content_type"`
	Content     []byte           `json:"-"`
	RemotePath  string           `json:"remote_path,omitempty"`
	Selection   Selection        `json:"selection,omitzero"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Store persists artifacts until an operator clears them.
type Store interface {
	GetArtifact(ctx context.Context, key Key) (Artifact, error)
	PutArtifact(ctx context.Context, artifact Artifact) error
	ClearArtifacts(ctx context.Context) (int64, error)
}

// FileName returns "<CATEGORY>_<findingId>_REMEDIATION.<ext>".
func FileName(c finding.Category, id finding.ID) string {
	return fmt.Sprintf("%s_%s_REMEDIATION.%s", c, id, extension(c))
}

func extension(c finding.Category) string {
	if c == finding.CategoryInfrastructure {
		return "tf"
	}
	return "md"
}

func contentType(c finding.Category) string {
	if c == finding.CategoryInfrastructure {
		return "text/plain; charset=utf-8"
	}
	return "text/markdown; charset=utf-8"
}
