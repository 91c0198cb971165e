package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"storyreel/store"
	"storyreel/types"
)

const maxLogs = 50

// EventPublisher receives a StatusEvent on every transition. The Kafka
// producer satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, key string, v any) error
}

type trackedAssembly struct {
	status types.Status
	logs   []types.LogEntry
}

// Tracker owns assembly status: it validates transitions, persists them and
// keeps the last log lines for each assembly.
type Tracker struct {
	mu     sync.RWMutex
	repo   store.Repository
	events EventPublisher

	assemblies map[string]*trackedAssembly
}

// NewTracker creates a tracker. events may be nil.
func NewTracker(repo store.Repository, events EventPublisher) *Tracker {
	return &Tracker{
		repo:       repo,
		events:     events,
		assemblies: make(map[string]*trackedAssembly),
	}
}

// Register starts tracking a with its current status
func (t *Tracker) Register(a *types.Assembly) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.assemblies[a.ID] = &trackedAssembly{status: a.Status}
	t.addLogLocked(a.ID, fmt.Sprintf("Assembly created with %d scenes (%s)", len(a.Scenes), a.Status))
}

// AddLog appends a line to the assembly's log
func (t *Tracker) AddLog(id, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addLogLocked(id, message)
}

// Logf logs to the process log and to the assembly's log
func (t *Tracker) Logf(id, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("[%s] %s", id, msg)
	t.AddLog(id, msg)
}

// must hold lock
func (t *Tracker) addLogLocked(id, message string) {
	ta, ok := t.assemblies[id]
	if !ok {
		ta = &trackedAssembly{}
		t.assemblies[id] = ta
	}
	ta.logs = append(ta.logs, types.LogEntry{Timestamp: time.Now(), Message: message})
	if len(ta.logs) > maxLogs {
		ta.logs = ta.logs[len(ta.logs)-maxLogs:]
	}
}

// Transition moves assembly id to next, persisting it before it becomes
// visible. Terminal states are final.
func (t *Tracker) Transition(ctx context.Context, id string, next types.Status, output, outputURI, errMsg string) error {
	t.mu.Lock()
	ta, ok := t.assemblies[id]
	if !ok || ta.status == "" {
		// not seen by this process; the store is authoritative
		t.mu.Unlock()
		a, err := t.repo.GetAssembly(ctx, id)
		if err != nil {
			return err
		}
		t.mu.Lock()
		ta, ok = t.assemblies[id]
		if !ok {
			ta = &trackedAssembly{}
			t.assemblies[id] = ta
		}
		if ta.status == "" {
			ta.status = a.Status
		}
	}
	current := ta.status
	if !current.CanTransition(next) {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", types.ErrInvalidTransition, current, next)
	}
	if next != types.StatusCompleted {
		output, outputURI = "", ""
	}
	if err := t.repo.UpdateStatus(ctx, id, next, output, outputURI, errMsg); err != nil {
		t.mu.Unlock()
		return fmt.Errorf("failed to persist %s for %s: %w", next, id, err)
	}
	ta.status = next

	switch next {
	case types.StatusFailed:
		t.addLogLocked(id, fmt.Sprintf("Error: %s", errMsg))
	case types.StatusCompleted:
		t.addLogLocked(id, fmt.Sprintf("Completed: %s", output))
	default:
		t.addLogLocked(id, fmt.Sprintf("Status %s -> %s", current, next))
	}
	t.mu.Unlock()

	// published without the lock held
	if t.events != nil {
		event := types.StatusEvent{
			AssemblyID: id,
			Status:     next,
			Output:     output,
			OutputURI:  outputURI,
			Error:      errMsg,
			At:         time.Now(),
		}
		if err := t.events.Publish(ctx, id, event); err != nil {
			log.Printf("⚠️  failed to publish status event for %s: %v", id, err)
		}
	}
	return nil
}

// Status returns a snapshot combining the stored assembly with its log
func (t *Tracker) Status(ctx context.Context, id string) (types.StatusResponse, error) {
	a, err := t.repo.GetAssembly(ctx, id)
	if err != nil {
		return types.StatusResponse{}, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	resp := types.StatusResponse{
		ID:        a.ID,
		Title:     a.Title,
		Status:    a.Status,
		Output:    a.Output,
		OutputURI: a.OutputURI,
		Error:     a.Error,
		Scenes:    len(a.Scenes),
		Missing:   a.MissingAssets(),
		Logs:      []types.LogEntry{},
	}
	if ta, ok := t.assemblies[id]; ok {
		resp.Logs = append(resp.Logs, ta.logs...)
	}
	return resp, nil
}

// Forget drops the in-memory log of an assembly
func (t *Tracker) Forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.assemblies, id)
}
