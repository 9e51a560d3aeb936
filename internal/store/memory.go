package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/threatdesk/threatdesk/internal/finding"
	"github.com/threatdesk/threatdesk/internal/remediation"
)

// Memory keeps both caches in process memory. It backs tests and runs
// without DATABASE_URL; contents do not survive a restart.
type Memory struct {
	mu        sync.RWMutex
	artifacts map[remediation.Key]remediation.Artifact
	imports   []ImportRow
}

func NewMemory() *Memory {
	return &Memory{artifacts: make(map[remediation.Key]remediation.Artifact)}
}

func (m *Memory) GetArtifact(_ context.Context, key remediation.Key) (remediation.Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.artifacts[key]
	if !ok {
		return remediation.Artifact{}, remediation.ErrArtifactNotFound
	}
	a.Content = slices.Clone(a.Content)
	return a, nil
}

func (m *Memory) PutArtifact(_ context.Context, a remediation.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.Content = slices.Clone(a.Content)
	m.artifacts[a.Key] = a
	return nil
}

func (m *Memory) ClearArtifacts(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.artifacts))
	m.artifacts = make(map[remediation.Key]remediation.Artifact)
	return n, nil
}

func (m *Memory) ListImports(context.Context) ([]ImportRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.imports), nil
}

func (m *Memory) AppendImports(_ context.Context, rows []ImportRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		i := slices.IndexFunc(m.imports, func(existing ImportRow) bool { return existing.ID == r.ID })
		if i >= 0 {
			m.imports[i] = r
			continue
		}
		m.imports = append(m.imports, r)
	}
	return nil
}

func (m *Memory) UpdateImportStatus(_ context.Context, id string, status finding.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.imports, func(r ImportRow) bool { return r.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrImportNotFound, id)
	}
	var rec map[string]any
	if err := json.Unmarshal(m.imports[i].Record, &rec); err != nil {
		return fmt.Errorf("decode import %s: %w", id, err)
	}
	rec["status"] = string(status)
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode import %s: %w", id, err)
	}
	m.imports[i].Record = raw
	return nil
}

func (m *Memory) ClearImports(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.imports))
	m.imports = nil
	return n, nil
}
