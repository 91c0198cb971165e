// Package janitor reclaims the working directories of finished assemblies.
package janitor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sync"
	"time"

	"storyreel/types"
	"storyreel/workdir"

	"github.com/robfig/cron/v3"
)

// Source lists assemblies that finished before a point in time
type Source interface {
	ListFinishedBefore(ctx context.Context, t time.Time) ([]*types.Assembly, error)
}

// Forgetter drops in-memory state kept for an assembly
type Forgetter interface {
	Forget(id string)
}

// Janitor removes intermediate artifacts of assemblies older than the
// retention period. Renders that were never uploaded are kept.
type Janitor struct {
	source    Source
	forget    Forgetter
	retention time.Duration
	now       func() time.Time

	mu     sync.Mutex
	cron   *cron.Cron
	cronID cron.EntryID
}

// New creates a janitor. forget may be nil.
func New(source Source, forget Forgetter, retention time.Duration) *Janitor {
	return &Janitor{source: source, forget: forget, retention: retention, now: time.Now}
}

// Report summarizes one sweep
type Report struct {
	Removed int
	Trimmed int
}

// Sweep cleans every assembly that finished before now minus retention
func (j *Janitor) Sweep(ctx context.Context) (Report, error) {
	var report Report
	finished, err := j.source.ListFinishedBefore(ctx, j.now().Add(-j.retention))
	if err != nil {
		return report, fmt.Errorf("failed to list finished assemblies: %w", err)
	}

	var errs []error
	for _, a := range finished {
		if a.WorkDir == "" {
			continue
		}
		if _, err := os.Stat(a.WorkDir); errors.Is(err, fs.ErrNotExist) {
			continue
		}

		layout := workdir.At(a.WorkDir)
		if a.Status == types.StatusCompleted && a.OutputURI == "" {
			// the local render is the only copy
			trimmed, err := trim(layout)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", a.ID, err))
				continue
			}
			if trimmed {
				report.Trimmed++
			}
		} else {
			if err := os.RemoveAll(layout.Root()); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", a.ID, err))
				continue
			}
			report.Removed++
		}
		if j.forget != nil {
			j.forget.Forget(a.ID)
		}
	}

	if report.Removed+report.Trimmed > 0 {
		log.Printf("🧹 Janitor removed %d and trimmed %d working directories", report.Removed, report.Trimmed)
	}
	return report, errors.Join(errs...)
}

func trim(layout workdir.Layout) (bool, error) {
	trimmed := false
	for _, p := range []string{layout.Images(), layout.Dialogues(), layout.Captions(), layout.MixedAudio(), layout.AvatarVideo()} {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			return trimmed, err
		}
		trimmed = true
	}
	return trimmed, nil
}

// Start runs Sweep on schedule (standard cron or @every/@hourly descriptors)
func (j *Janitor) Start(schedule string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cron != nil {
		return errors.New("janitor already started")
	}
	c := cron.New()
	id, err := c.AddFunc(schedule, func() {
		if _, err := j.Sweep(context.Background()); err != nil {
			log.Printf("⚠️  Janitor sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	j.cron = c
	j.cronID = id
	c.Start()
	log.Printf("Janitor started with schedule: %s", schedule)
	return nil
}

// Stop waits for a running sweep to finish
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
	j.cron.Remove(j.cronID)
	j.cron = nil
}
