package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"storyreel/types"
)

func sampleAssembly() *types.Assembly {
	return &types.Assembly{
		ID:     "a1",
		Title:  "Tides",
		Mode:   types.ModeWeb,
		Style:  "vivid",
		Status: types.StatusPending,
		Background: &types.Background{
			Source: "bg.png", Color: "0,255,0", Threshold: 40, Top: 10, Left: 20,
		},
		Music:     "music.mp3",
		Subtitles: true,
		Scenes: []types.Scene{
			{Index: 0, Text: "Waves rise.", AudioPath: "s0.mp3"},
			{Index: 1, Text: "Waves fall.", AudioPath: "s1.mp3", IsLast: true},
		},
	}
}

func TestMemoryLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := sampleAssembly()

	if err := m.SaveAssembly(ctx, a); err != nil {
		t.Fatalf("SaveAssembly failed: %v", err)
	}

	asset := types.VisualAsset{SceneIndex: 1, Position: 1, Path: "img.png", Kind: types.AssetImage, Provider: "bing"}
	if err := m.SaveAsset(ctx, "a1", asset); err != nil {
		t.Fatalf("SaveAsset failed: %v", err)
	}

	got, err := m.GetAssembly(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAssembly failed: %v", err)
	}
	assets := got.Scenes[1].Assets
	if len(assets) != 2 {
		t.Fatalf("expected slot 1 to grow the slice to 2, got %d", len(assets))
	}
	if !assets[0].Missing() || assets[1].Path != "img.png" {
		t.Errorf("unexpected assets %+v", assets)
	}

	// returned copies are not shared with the store
	got.Scenes[0].Text = "changed"
	again, _ := m.GetAssembly(ctx, "a1")
	if again.Scenes[0].Text != "Waves rise." {
		t.Error("GetAssembly returned shared state")
	}

	if err := m.UpdateStatus(ctx, "a1", types.StatusCompleted, "out.mp4", "", ""); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	done, _ := m.GetAssembly(ctx, "a1")
	if done.Status != types.StatusCompleted || done.Output != "out.mp4" {
		t.Errorf("status not updated: %+v", done)
	}
}

func TestMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.GetAssembly(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAssembly: expected ErrNotFound, got %v", err)
	}
	if err := m.SaveAsset(ctx, "nope", types.VisualAsset{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("SaveAsset: expected ErrNotFound, got %v", err)
	}
	if err := m.UpdateStatus(ctx, "nope", types.StatusFailed, "", "", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateStatus: expected ErrNotFound, got %v", err)
	}
}

func TestMemorySaveAssetRejectsBadScene(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.SaveAssembly(ctx, sampleAssembly())

	if err := m.SaveAsset(ctx, "a1", types.VisualAsset{SceneIndex: 5}); err == nil {
		t.Fatal("expected error for scene out of range")
	}
}

func TestMemoryListFinishedBefore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for _, tc := range []struct {
		id     string
		status types.Status
	}{
		{"done", types.StatusCompleted},
		{"failed", types.StatusFailed},
		{"running", types.StatusProcessing},
	} {
		a := sampleAssembly()
		a.ID = tc.id
		a.Status = tc.status
		m.SaveAssembly(ctx, a)
	}

	got, err := m.ListFinishedBefore(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("ListFinishedBefore failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 terminal assemblies, got %d", len(got))
	}
	for _, a := range got {
		if !a.Status.IsTerminal() {
			t.Errorf("non-terminal assembly %s listed", a.ID)
		}
	}

	got, _ = m.ListFinishedBefore(ctx, time.Now().Add(-time.Hour))
	if len(got) != 0 {
		t.Errorf("expected nothing older than an hour, got %d", len(got))
	}
}

func TestRecordConversion(t *testing.T) {
	a := sampleAssembly()
	a.Scenes[0].Assets = []types.VisualAsset{
		{SceneIndex: 0, Position: 0, Path: "a.png", Kind: types.AssetImage, Provider: "bing", Prompt: "waves"},
		{SceneIndex: 0, Position: 1, Kind: types.AssetUnknown, Provider: "bing", Prompt: "foam"},
	}

	rec, assets, err := toRecords(a)
	if err != nil {
		t.Fatalf("toRecords failed: %v", err)
	}
	if len(assets) != 2 || assets[1].AssemblyID != "a1" || assets[1].Position != 1 {
		t.Fatalf("unexpected asset records %+v", assets)
	}

	// reversed order must still land by position
	assets[0], assets[1] = assets[1], assets[0]
	got, err := fromRecords(rec, assets)
	if err != nil {
		t.Fatalf("fromRecords failed: %v", err)
	}
	if got.Background == nil || got.Background.Color != "0,255,0" || !got.Subtitles || got.Music != "music.mp3" {
		t.Errorf("options lost: %+v", got)
	}
	if len(got.Scenes) != 2 || !got.Scenes[1].IsLast || got.Scenes[1].AudioPath != "s1.mp3" {
		t.Errorf("scenes lost: %+v", got.Scenes)
	}
	if got.Scenes[0].Assets[0].Path != "a.png" || got.Scenes[0].Assets[1].Prompt != "foam" {
		t.Errorf("assets misplaced: %+v", got.Scenes[0].Assets)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("converted assembly invalid: %v", err)
	}
}
