package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"storyreel/config"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const maxImageBytes = 25 << 20

// errUnsupportedImage marks content the composer cannot place; retrying the same url cannot help
var errUnsupportedImage = errors.New("unsupported image format")

// supportedImages maps the formats the composer renders to their file extension
var supportedImages = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

var retryDelay = config.DownloadRetryDelay

// userAgent is sent on search and download requests; image hosts reject empty agents
const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// downloadImage fetches url into dir as <prefix><uuid><ext>, retrying transient
// failures. Responses that are not images are rejected.
func downloadImage(ctx context.Context, client *http.Client, url, dir, prefix string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= config.DownloadRetries; attempt++ {
		path, err := fetchImage(ctx, client, url, dir, prefix)
		if err == nil {
			return path, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, errUnsupportedImage) {
			break
		}
		if attempt < config.DownloadRetries {
			log.Printf("⚠️  image download attempt %d/%d failed for %s: %v", attempt, config.DownloadRetries, url, err)
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", fmt.Errorf("failed to download %s: %w", url, lastErr)
}

func fetchImage(ctx context.Context, client *http.Client, url, dir, prefix string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return "", err
	}
	return writeImage(data, dir, prefix)
}

// writeImage stores JPEG or PNG bytes with an extension chosen from their content.
// Other image formats are refused so callers move on to the next candidate.
func writeImage(data []byte, dir, prefix string) (string, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("unexpected content type %s", mt.String())
	}
	ext, ok := supportedImages[mt.String()]
	if !ok {
		return "", fmt.Errorf("%w: %s", errUnsupportedImage, mt.String())
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, prefix+uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// collect downloads candidate urls in order until n images are saved
func collect(ctx context.Context, client *http.Client, urls []string, req Request) ([]string, error) {
	want := amount(req)
	var paths []string
	var lastErr error
	for _, u := range urls {
		if len(paths) == want {
			break
		}
		p, err := downloadImage(ctx, client, u, req.OutputDir, req.NamePrefix)
		if err != nil {
			if ctx.Err() != nil {
				return paths, ctx.Err()
			}
			lastErr = err
			continue
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("no results")
		}
		return nil, fmt.Errorf("no image acquired for %q: %w", req.Query, lastErr)
	}
	return paths, nil
}
