package narration

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyreel/types"

	"github.com/openai/openai-go/v3/option"
)

type fakeNarrator struct {
	texts []string
	err   error
}

func (f *fakeNarrator) Synthesize(ctx context.Context, text, outPath string) error {
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	return nil
}

func TestSynthesizeAll(t *testing.T) {
	a := &types.Assembly{ID: "a", WorkDir: "/work/a", Scenes: types.NewScenes([]string{"one", "two", "three"})}
	a.Scenes[1].AudioPath = "/given/two.mp3"

	n := &fakeNarrator{}
	if err := SynthesizeAll(context.Background(), n, a); err != nil {
		t.Fatalf("SynthesizeAll error: %v", err)
	}
	if len(n.texts) != 2 || n.texts[0] != "one" || n.texts[1] != "three" {
		t.Fatalf("synthesized %v", n.texts)
	}
	if a.Scenes[0].AudioPath != filepath.Join("/work/a", "dialogues", "scene_000.mp3") {
		t.Fatalf("scene 0 audio = %s", a.Scenes[0].AudioPath)
	}
	if a.Scenes[1].AudioPath != "/given/two.mp3" {
		t.Fatalf("supplied audio was replaced")
	}
}

func TestSynthesizeAllStopsOnError(t *testing.T) {
	a := &types.Assembly{ID: "a", WorkDir: "/work/a", Scenes: types.NewScenes([]string{"one"})}
	boom := errors.New("boom")
	if err := SynthesizeAll(context.Background(), &fakeNarrator{err: boom}, a); !errors.Is(err, boom) {
		t.Fatalf("err = %v; want boom", err)
	}
	if a.Scenes[0].AudioPath != "" {
		t.Fatalf("failed scene should not get an audio path")
	}
}

func TestOpenAISynthesize(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/speech") {
			http.NotFound(w, r)
			return
		}
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3fake"))
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "dialogues", "scene_000.mp3")
	n := NewOpenAI("key", "nova", "", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	if err := n.Synthesize(context.Background(), "Hello there", out); err != nil {
		t.Fatalf("Synthesize error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil || string(data) != "ID3fake" {
		t.Fatalf("output = %q, %v", data, err)
	}
	if !strings.Contains(gotBody, `"voice":"nova"`) || !strings.Contains(gotBody, `"model":"tts-1"`) {
		t.Fatalf("request body = %s", gotBody)
	}
}
