package janitor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"storyreel/types"
	"storyreel/workdir"
)

type fakeSource struct {
	assemblies []*types.Assembly
	before     time.Time
	err        error
}

func (f *fakeSource) ListFinishedBefore(_ context.Context, t time.Time) ([]*types.Assembly, error) {
	f.before = t
	return f.assemblies, f.err
}

type forgetter struct{ ids []string }

func (f *forgetter) Forget(id string) { f.ids = append(f.ids, id) }

func makeWorkdir(t *testing.T, base, id string) workdir.Layout {
	t.Helper()
	l := workdir.New(base, id)
	if err := l.Create(); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{filepath.Join(l.Images(), "a.png"), l.MixedAudio(), l.OutputVideo()} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return l
}

func TestSweep(t *testing.T) {
	base := t.TempDir()
	uploaded := makeWorkdir(t, base, "uploaded")
	local := makeWorkdir(t, base, "local")
	failed := makeWorkdir(t, base, "failed")

	src := &fakeSource{assemblies: []*types.Assembly{
		{ID: "uploaded", Status: types.StatusCompleted, WorkDir: uploaded.Root(), OutputURI: "s3://b/k"},
		{ID: "local", Status: types.StatusCompleted, WorkDir: local.Root()},
		{ID: "failed", Status: types.StatusFailed, WorkDir: failed.Root()},
		{ID: "gone", Status: types.StatusFailed, WorkDir: filepath.Join(base, "gone")},
	}}
	fg := &forgetter{}
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	j := New(src, fg, 24*time.Hour)
	j.now = func() time.Time { return now }

	report, err := j.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if !src.before.Equal(now.Add(-24 * time.Hour)) {
		t.Errorf("cutoff = %v", src.before)
	}
	if report.Removed != 2 || report.Trimmed != 1 {
		t.Errorf("report = %+v, want 2 removed 1 trimmed", report)
	}

	if _, err := os.Stat(uploaded.Root()); !errors.Is(err, os.ErrNotExist) {
		t.Error("uploaded workdir should be removed")
	}
	if _, err := os.Stat(failed.Root()); !errors.Is(err, os.ErrNotExist) {
		t.Error("failed workdir should be removed")
	}
	if !workdir.Exists(local.OutputVideo()) {
		t.Error("local-only render must be kept")
	}
	if workdir.Exists(local.MixedAudio()) {
		t.Error("intermediate audio should be trimmed")
	}
	if _, err := os.Stat(local.Images()); !errors.Is(err, os.ErrNotExist) {
		t.Error("images should be trimmed")
	}
	if len(fg.ids) != 3 {
		t.Errorf("forgot %v", fg.ids)
	}

	// a second sweep finds nothing left to do
	report, _ = j.Sweep(context.Background())
	if report.Removed != 0 || report.Trimmed != 0 {
		t.Errorf("second sweep = %+v", report)
	}
}

func TestSweepListError(t *testing.T) {
	j := New(&fakeSource{err: errors.New("db down")}, nil, time.Hour)
	if _, err := j.Sweep(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	j := New(&fakeSource{}, nil, time.Hour)
	if err := j.Start("not a schedule"); err == nil {
		t.Fatal("expected error")
	}
	if err := j.Start("@every 1h"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := j.Start("@every 1h"); err == nil {
		t.Error("expected second Start to fail")
	}
	j.Stop()
	j.Stop()
}
