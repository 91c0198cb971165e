package publish

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyreel/config"
	"storyreel/types"

	"google.golang.org/api/option"
)

func TestMetadataFor(t *testing.T) {
	a := &types.Assembly{
		Title:  strings.Repeat("t", 120),
		Mode:   types.ModeAI,
		Scenes: []types.Scene{{Text: "One."}, {Text: " "}, {Text: "Two."}},
	}
	meta := MetadataFor(a)
	if len([]rune(meta.Title)) != 100 || !strings.HasSuffix(meta.Title, "...") {
		t.Errorf("title = %q", meta.Title)
	}
	if meta.Description != "One.\nTwo." {
		t.Errorf("description = %q", meta.Description)
	}
	if meta.CategoryID != config.YouTubeCategoryID || meta.Privacy != config.YouTubePrivacyStatus {
		t.Errorf("unexpected meta %+v", meta)
	}
	if MetadataFor(&types.Assembly{}).Title != "Untitled" {
		t.Error("empty title should fall back")
	}
}

func TestPublishUploadsVideo(t *testing.T) {
	var gotTitle, gotPrivacy string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/videos") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), `"title":"Tides"`) {
			gotTitle = "Tides"
		}
		if strings.Contains(string(body), `"privacyStatus":"private"`) {
			gotPrivacy = "private"
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"vid123"}`))
	}))
	defer srv.Close()

	file := filepath.Join(t.TempDir(), "output_video.mp4")
	if err := os.WriteFile(file, []byte("mp4"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	yt, err := NewYouTubeWithOptions(ctx, option.WithoutAuthentication(), option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatal(err)
	}

	link, err := yt.Publish(ctx, &types.Assembly{Title: "Tides"}, file)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if link != "https://www.youtube.com/watch?v=vid123" {
		t.Errorf("link = %s", link)
	}
	if gotTitle != "Tides" || gotPrivacy != "private" {
		t.Errorf("metadata sent: title=%q privacy=%q", gotTitle, gotPrivacy)
	}
}

func TestUploadMissingFile(t *testing.T) {
	yt, err := NewYouTubeWithOptions(context.Background(), option.WithoutAuthentication())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := yt.Upload(context.Background(), "/nonexistent.mp4", Metadata{}); err == nil {
		t.Fatal("expected error")
	}
}
