package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyreel/media"
	"storyreel/types"

	"github.com/openai/openai-go/v3/option"
	gopt "google.golang.org/api/option"
)

// pngBytes is enough of a PNG for content sniffing
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

var (
	webpBytes = append([]byte("RIFF\x24\x00\x00\x00WEBPVP8 "), make([]byte, 64)...)
	gifBytes  = append([]byte("GIF89a"), make([]byte, 64)...)
)

func init() {
	retryDelay = 0
}

func imageServer(t *testing.T, bing string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/images/async", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("qft") != "+filter:photo-photo" || r.URL.Query().Get("adlt") != "off" {
			http.Error(w, "bad filters", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, strings.ReplaceAll(bing, "SRV", srv.URL))
	})
	mux.HandleFunc("/good.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write(pngBytes)
	})
	mux.HandleFunc("/page.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>not an image</body></html>")
	})
	var webpHits int
	mux.HandleFunc("/top.webp", func(w http.ResponseWriter, r *http.Request) {
		webpHits++
		w.Write(webpBytes)
	})
	t.Cleanup(func() {
		if webpHits > 1 {
			t.Errorf("unsupported image fetched %d times; want at most 1", webpHits)
		}
	})
	mux.HandleFunc("/missing.png", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func bingAnchor(murl string) string {
	meta, _ := json.Marshal(map[string]string{"murl": murl})
	return fmt.Sprintf(`<a class="iusc" m="%s" href="#">x</a>`, html.EscapeString(string(meta)))
}

func TestBingAcquireSkipsUndownloadable(t *testing.T) {
	page := "<html><body>" +
		bingAnchor("SRV/missing.png") +
		bingAnchor("SRV/page.html") +
		bingAnchor("SRV/good.png") +
		`<a class="iusc" m="not json">y</a>` +
		"</body></html>"
	srv := imageServer(t, page)

	dir := t.TempDir()
	b := NewBing(srv.URL+"/", srv.Client())
	paths, err := b.Acquire(context.Background(), Request{Query: "red fox", OutputDir: dir, NamePrefix: "scene_000_"})
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("got %d paths; want 1", len(paths))
	}
	name := filepath.Base(paths[0])
	if !strings.HasPrefix(name, "scene_000_") || filepath.Ext(name) != ".png" {
		t.Fatalf("unexpected file name %q", name)
	}
	if _, err := os.Stat(paths[0]); err != nil {
		t.Fatalf("downloaded file missing: %v", err)
	}
}

func TestBingAcquireNoResults(t *testing.T) {
	srv := imageServer(t, "<html><body>nothing here</body></html>")
	b := NewBing(srv.URL, srv.Client())
	if _, err := b.Acquire(context.Background(), Request{Query: "void", OutputDir: t.TempDir()}); err == nil {
		t.Fatal("expected error for empty result page")
	}
}

func TestBingAcquireSkipsUnsupportedFormats(t *testing.T) {
	page := "<html><body>" + bingAnchor("SRV/top.webp") + bingAnchor("SRV/good.png") + "</body></html>"
	srv := imageServer(t, page)

	b := NewBing(srv.URL, srv.Client())
	paths, err := b.Acquire(context.Background(), Request{Query: "red fox", OutputDir: t.TempDir(), NamePrefix: "scene_000_"})
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if len(paths) != 1 || filepath.Ext(paths[0]) != ".png" {
		t.Fatalf("paths = %v; want the png result", paths)
	}
	if got := media.Classify(paths[0]); got != types.AssetImage {
		t.Fatalf("Classify(%s) = %s; want image", paths[0], got)
	}
}

func TestWriteImageFormats(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantExt string
	}{
		{"png", pngBytes, ".png"},
		{"jpeg", append([]byte("\xff\xd8\xff\xe0"), make([]byte, 64)...), ".jpg"},
		{"webp", webpBytes, ""},
		{"gif", gifBytes, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := writeImage(tt.data, t.TempDir(), "x_")
			if tt.wantExt == "" {
				if !errors.Is(err, errUnsupportedImage) {
					t.Fatalf("writeImage(%s) = %q, %v; want errUnsupportedImage", tt.name, path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("writeImage: %v", err)
			}
			if filepath.Ext(path) != tt.wantExt {
				t.Fatalf("extension = %s; want %s", filepath.Ext(path), tt.wantExt)
			}
		})
	}
}

func TestWriteImageRejectsNonImage(t *testing.T) {
	if _, err := writeImage([]byte("plain text"), t.TempDir(), "x_"); err == nil {
		t.Fatal("writeImage accepted text content")
	}
}

func TestGoogleAcquire(t *testing.T) {
	srv := imageServer(t, "")
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("searchType") != "image" || q.Get("cx") != "engine" || q.Get("q") != "lighthouse" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]string{
				{"link": srv.URL + "/page.html"},
				{"link": srv.URL + "/good.png"},
			},
		})
	}))
	defer api.Close()

	g, err := NewGoogle(context.Background(), "key", "engine", srv.Client(), gopt.WithEndpoint(api.URL+"/"))
	if err != nil {
		t.Fatalf("NewGoogle error: %v", err)
	}
	paths, err := g.Acquire(context.Background(), Request{Query: "lighthouse", OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if len(paths) != 1 || filepath.Ext(paths[0]) != ".png" {
		t.Fatalf("paths = %v", paths)
	}
}

func TestDallEAcquire(t *testing.T) {
	cases := []struct {
		name  string
		image func(srvURL string) map[string]string
	}{
		{"url", func(u string) map[string]string { return map[string]string{"url": u + "/good.png"} }},
		{"b64", func(string) map[string]string {
			return map[string]string{"b64_json": base64.StdEncoding.EncodeToString(pngBytes)}
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := imageServer(t, "")
			var gotBody map[string]any
			api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !strings.HasSuffix(r.URL.Path, "/images/generations") {
					http.NotFound(w, r)
					return
				}
				json.NewDecoder(r.Body).Decode(&gotBody)
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]any{
					"created": 1,
					"data":    []map[string]string{c.image(srv.URL)},
				})
			}))
			defer api.Close()

			d := NewDallE("key", srv.Client(), option.WithBaseURL(api.URL+"/"), option.WithMaxRetries(0))
			paths, err := d.Acquire(context.Background(), Request{
				Query:     "a quiet harbor at dawn",
				Title:     "Harbors",
				OutputDir: t.TempDir(),
				Style:     "natural",
			})
			if err != nil {
				t.Fatalf("Acquire error: %v", err)
			}
			if len(paths) != 1 {
				t.Fatalf("paths = %v", paths)
			}
			if gotBody["model"] != "dall-e-3" || gotBody["size"] != "1792x1024" || gotBody["style"] != "natural" {
				t.Fatalf("unexpected request body %v", gotBody)
			}
		})
	}
}

func TestFormatPrompt(t *testing.T) {
	if got := FormatPrompt("", "  a cat "); got != "a cat" {
		t.Fatalf("FormatPrompt without title = %q", got)
	}
	got := FormatPrompt("Cats", "a cat")
	if !strings.HasPrefix(got, "a cat.") || !strings.Contains(got, `"Cats"`) {
		t.Fatalf("FormatPrompt = %q", got)
	}
}
