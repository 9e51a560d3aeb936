// Package remediation generates, caches and re-serves remediation artifacts
// with a per-finding state machine.
package remediation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/threatdesk/threatdesk/internal/catalog"
	"github.com/threatdesk/threatdesk/internal/finding"
	"github.com/threatdesk/threatdesk/internal/metrics"
)

var (
	// ErrInProgress is returned when a generation for the same key is running.
	ErrInProgress = errors.New("remediation generation already in progress")
	// ErrUnsupportedAction is returned for an action that does not belong to the finding's category.
	ErrUnsupportedAction = errors.New("action not supported for finding category")
	// ErrCreationRejected is returned when the infrastructure endpoint reports failure.
	ErrCreationRejected = errors.New("infrastructure remediation was not created")
)

// State is the workflow state of one (finding, action) pair.
type State string

const (
	StateNotStarted State = "NOT_STARTED"
	StateGenerating State = "GENERATING"
	StateReady      State = "READY"
	StateFailed     State = "FAILED"
)

// SelectionRequiredError is returned for application findings requested
// without a product key and repository. Options lists what can be chosen.
type SelectionRequiredError struct {
	OwnerTag string
	Options  []catalog.Product
}

func (e *SelectionRequiredError) Error() string {
	return fmt.Sprintf("product key and repository selection required for %s", e.OwnerTag)
}

// InfrastructureRequest is sent to the remote creation endpoint.
type InfrastructureRequest struct {
	FindingID         string
	Title             string
	OwnerTag          string
	Severity          string
	RemediationAction string
	GeneratedContent  string
}

// InfrastructureResult is the creation endpoint's reply.
type InfrastructureResult struct {
	Success  bool
	FilePath string
	Message  string
}

// Creator persists infrastructure remediations on the remote side.
type Creator interface {
	CreateInfrastructureRemediation(ctx context.Context, req InfrastructureRequest) (InfrastructureResult, error)
}

// Request describes one generation request.
type Request struct {
	Action    Action
	Force     bool
	Selection Selection
}

// Engine runs the remediation workflow. It is safe for concurrent use; at most
// one generation per key runs at a time and concurrent requests for the same
// key fail fast with ErrInProgress.
type Engine struct {
	store   Store
	creator Creator
	catalog *catalog.Catalog
	now     func() time.Time

	mu       sync.Mutex
	states   map[Key]State
	failures map[Key]error
}

func NewEngine(store Store, creator Creator, cat *catalog.Catalog) *Engine {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Engine{
		store:    store,
		creator:  creator,
		catalog:  cat,
		now:      time.Now,
		states:   make(map[Key]State),
		failures: make(map[Key]error),
	}
}

// KeyFor resolves the action for f and returns its cache key.
func KeyFor(f finding.Finding, action Action) (Key, error) {
	want := DefaultAction(f.Category())
	if action == "" {
		action = want
	}
	if action != want {
		return Key{}, fmt.Errorf("%w: %s for %s", ErrUnsupportedAction, action, f.Category())
	}
	return Key{ID: f.ID, Action: action}, nil
}

// Generate returns the artifact for f, generating it when it is not cached or
// when req.Force is set.
func (e *Engine) Generate(ctx context.Context, f finding.Finding, req Request) (Artifact, error) {
	key, err := KeyFor(f, req.Action)
	if err != nil {
		return Artifact{}, err
	}
	category := f.Category()

	if !req.Force {
		cached, err := e.store.GetArtifact(ctx, key)
		if err == nil {
			metrics.RemediationGenerationsTotal.WithLabelValues(string(category), "cached").Inc()
			return cached, nil
		}
		if !errors.Is(err, ErrArtifactNotFound) {
			return Artifact{}, fmt.Errorf("read cached artifact %s: %w", key, err)
		}
	}

	sel := req.Selection
	if category == finding.CategoryApplication {
		if sel.IsZero() {
			return Artifact{}, &SelectionRequiredError{OwnerTag: f.OwnerTag, Options: e.catalog.Options(f.OwnerTag)}
		}
		if err := e.catalog.Check(f.OwnerTag, sel.ProductKey, sel.Repository); err != nil {
			return Artifact{}, err
		}
		sel.ProductKey = strings.TrimSpace(sel.ProductKey)
		sel.Repository = strings.TrimSpace(sel.Repository)
		if strings.TrimSpace(sel.RepoURL) == "" {
			sel.RepoURL = e.catalog.RepositoryURL(f.OwnerTag, sel.ProductKey, sel.Repository)
		}
	} else {
		sel = Selection{}
	}

	if !e.begin(key) {
		metrics.RemediationGenerationsTotal.WithLabelValues(string(category), "in_progress").Inc()
		return Artifact{}, ErrInProgress
	}

	artifact, err := e.produce(ctx, f, key, sel)
	e.finish(key, err)
	if err != nil {
		metrics.RemediationGenerationsTotal.WithLabelValues(string(category), "failed").Inc()
		slog.WarnContext(ctx, "remediation generation failed", "finding_id", f.ID.String(), "action", key.Action, "err", err)
		return Artifact{}, err
	}
	metrics.RemediationGenerationsTotal.WithLabelValues(string(category), "generated").Inc()
	slog.InfoContext(ctx, "remediation artifact generated", "finding_id", f.ID.String(), "action", key.Action, "file_name", artifact.FileName)
	return artifact, nil
}

func (e *Engine) produce(ctx context.Context, f finding.Finding, key Key, sel Selection) (Artifact, error) {
	content, err := Render(f, sel)
	if err != nil {
		return Artifact{}, err
	}
	category := f.Category()
	artifact := Artifact{
		Key:         key,
		Category:    category,
		FileName:    FileName(category, f.ID),
		ContentType: contentType(category),
		Content:     content,
		Selection:   sel,
		CreatedAt:   e.now().UTC(),
	}

	if category == finding.CategoryInfrastructure {
		if e.creator == nil {
			return Artifact{}, errors.New("no infrastructure remediation endpoint configured")
		}
		res, err := e.creator.CreateInfrastructureRemediation(ctx, InfrastructureRequest{
			FindingID:         f.ID.OriginalID,
			Title:             f.Title,
			OwnerTag:          f.OwnerTag,
			Severity:          string(f.Severity),
			RemediationAction: f.RemediationAction,
			GeneratedContent:  string(content),
		})
		if err != nil {
			return Artifact{}, fmt.Errorf("create infrastructure remediation: %w", err)
		}
		if !res.Success {
			if res.Message != "" {
				return Artifact{}, fmt.Errorf("%w: %s", ErrCreationRejected, res.Message)
			}
			return Artifact{}, ErrCreationRejected
		}
		artifact.RemotePath = res.FilePath
	}

	if err := e.store.PutArtifact(ctx, artifact); err != nil {
		return Artifact{}, fmt.Errorf("store artifact %s: %w", key, err)
	}
	return artifact, nil
}

func (e *Engine) begin(key Key) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.states[key] == StateGenerating {
		return false
	}
	e.states[key] = StateGenerating
	delete(e.failures, key)
	return true
}

func (e *Engine) finish(key Key, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.states[key] = StateFailed
		e.failures[key] = err
		return
	}
	e.states[key] = StateReady
}

// Progress is the reported workflow state of one key.
type Progress struct {
	State State  `json:"state"`
	Error string `json:"error,omitempty"`
}

// Status reports the workflow state for key. The store is authoritative for
// Ready so artifacts written before a restart are reported as Ready.
func (e *Engine) Status(ctx context.Context, key Key) (Progress, error) {
	e.mu.Lock()
	st := e.states[key]
	lastErr := e.failures[key]
	e.mu.Unlock()

	if st == StateGenerating {
		return Progress{State: StateGenerating}, nil
	}
	if _, err := e.store.GetArtifact(ctx, key); err == nil {
		return Progress{State: StateReady}, nil
	} else if !errors.Is(err, ErrArtifactNotFound) {
		return Progress{}, fmt.Errorf("read cached artifact %s: %w", key, err)
	}
	if st == StateFailed && lastErr != nil {
		return Progress{State: StateFailed, Error: lastErr.Error()}, nil
	}
	return Progress{State: StateNotStarted}, nil
}

// Cached returns a stored artifact without generating anything.
func (e *Engine) Cached(ctx context.Context, key Key) (Artifact, error) {
	return e.store.GetArtifact(ctx, key)
}

// Clear drops every stored artifact and forgets finished states. Generations
// still running keep their guard.
func (e *Engine) Clear(ctx context.Context) (int64, error) {
	n, err := e.store.ClearArtifacts(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear artifacts: %w", err)
	}
	e.mu.Lock()
	for key, st := range e.states {
		if st != StateGenerating {
			delete(e.states, key)
			delete(e.failures, key)
		}
	}
	e.mu.Unlock()
	slog.Info("remediation artifacts cleared", "count", n)
	return n, nil
}
