package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"storyreel/types"
)

// Memory keeps assemblies in process. Used by the batch CLI and tests.
type Memory struct {
	mu         sync.RWMutex
	assemblies map[string]*types.Assembly
}

func NewMemory() *Memory {
	return &Memory{assemblies: make(map[string]*types.Assembly)}
}

func (m *Memory) SaveAssembly(_ context.Context, a *types.Assembly) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := a.Clone()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = time.Now()
	m.assemblies[a.ID] = c
	return nil
}

func (m *Memory) GetAssembly(_ context.Context, id string) (*types.Assembly, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assemblies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a.Clone(), nil
}

func (m *Memory) SaveAsset(_ context.Context, assemblyID string, asset types.VisualAsset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assemblies[assemblyID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, assemblyID)
	}
	if err := placeAsset(a, asset); err != nil {
		return err
	}
	a.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) UpdateStatus(_ context.Context, id string, status types.Status, output, outputURI, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assemblies[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	a.Status = status
	a.Output = output
	a.OutputURI = outputURI
	a.Error = errMsg
	a.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) ListFinishedBefore(_ context.Context, t time.Time) ([]*types.Assembly, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*types.Assembly
	for _, a := range m.assemblies {
		if a.Status.IsTerminal() && a.UpdatedAt.Before(t) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

