package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"storyreel/types"
	"storyreel/workdir"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// ObjectStore is what the fetcher needs from S3
type ObjectStore interface {
	Get(ctx context.Context, uri string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Key(name string) string
}

// Fetcher turns request inputs (local paths, http(s) URLs, s3:// URIs) into
// local files inside the working directory
type Fetcher struct {
	objects ObjectStore
	client  *http.Client
}

// NewFetcher creates a fetcher. objects may be nil when S3 is not configured.
func NewFetcher(objects ObjectStore, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Fetcher{objects: objects, client: client}
}

// Fetch returns a local path for src, downloading into dir when it is remote
func (f *Fetcher) Fetch(ctx context.Context, src, dir string) (string, error) {
	switch {
	case src == "":
		return "", nil
	case strings.HasPrefix(src, "s3://"):
		if f.objects == nil {
			return "", fmt.Errorf("cannot fetch %s: s3 is not configured", src)
		}
		_, key, err := ParseS3URI(src)
		if err != nil {
			return "", err
		}
		body, err := f.objects.Get(ctx, src)
		if err != nil {
			return "", err
		}
		defer body.Close()
		return save(body, dir, path.Base(key))
	case strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://"):
		return f.download(ctx, src, dir)
	default:
		if _, err := os.Stat(src); err != nil {
			return "", fmt.Errorf("input %s: %w", src, err)
		}
		return src, nil
	}
}

func (f *Fetcher) download(ctx context.Context, src, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", src, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %s: status %d", src, resp.StatusCode)
	}

	name := "input"
	if u, err := url.Parse(src); err == nil && path.Base(u.Path) != "/" && path.Base(u.Path) != "." {
		name = path.Base(u.Path)
	}
	return save(resp.Body, dir, name)
}

// save writes r under dir with a unique name. Files without an extension get
// one from their detected content so the media classifier can read them.
func save(r io.Reader, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, uuid.NewString()[:8]+"_"+filepath.Base(name))
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(dst)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}

	if filepath.Ext(dst) == "" {
		mt, err := mimetype.DetectFile(dst)
		if err == nil && mt.Extension() != "" {
			renamed := dst + mt.Extension()
			if err := os.Rename(dst, renamed); err == nil {
				dst = renamed
			}
		}
	}
	return dst, nil
}

// Localize fetches every remote input of a into its working directory and
// rewrites the assembly to point at the local copies
func (f *Fetcher) Localize(ctx context.Context, a *types.Assembly, layout workdir.Layout) error {
	inputs := filepath.Join(layout.Root(), "inputs")

	fields := []*string{&a.Music, &a.Intro, &a.Outro, &a.AvatarImage}
	if a.Background != nil {
		fields = append(fields, &a.Background.Source)
	}
	for _, field := range fields {
		local, err := f.Fetch(ctx, *field, inputs)
		if err != nil {
			return err
		}
		*field = local
	}

	for i := range a.Scenes {
		local, err := f.Fetch(ctx, a.Scenes[i].AudioPath, layout.Dialogues())
		if err != nil {
			return fmt.Errorf("scene %d audio: %w", i, err)
		}
		a.Scenes[i].AudioPath = local
	}
	return nil
}

// Upload stores the final render under <prefix>/<assembly id>/<file name>
func (f *Fetcher) Upload(ctx context.Context, assemblyID, file string) (string, error) {
	if f.objects == nil {
		return "", nil
	}
	in, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer in.Close()

	key := f.objects.Key(path.Join(assemblyID, filepath.Base(file)))
	uri, err := f.objects.Put(ctx, key, in, "video/mp4")
	if err != nil {
		return "", err
	}
	log.Printf("✅ Uploaded %s to %s", file, uri)
	return uri, nil
}
