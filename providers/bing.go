package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Bing searches Bing Images and downloads the top photo results
type Bing struct {
	baseURL string
	client  *http.Client
}

// NewBing creates a Bing provider. baseURL is normally https://www.bing.com.
func NewBing(baseURL string, client *http.Client) *Bing {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Bing{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (b *Bing) Name() string { return ProviderBing }

// Acquire searches for req.Query with the photo filter and adult filter off
func (b *Bing) Acquire(ctx context.Context, req Request) ([]string, error) {
	log.Printf("Downloading image from bing: %q", req.Query)

	urls, err := b.search(ctx, req.Query)
	if err != nil {
		return nil, err
	}
	return collect(ctx, b.client, urls, req)
}

type bingMetadata struct {
	MediaURL string `json:"murl"`
}

func (b *Bing) search(ctx context.Context, query string) ([]string, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("first", "0")
	q.Set("count", "35")
	q.Set("adlt", "off")
	q.Set("qft", "+filter:photo-photo")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/images/async?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bing search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bing search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bing results: %w", err)
	}

	var urls []string
	seen := make(map[string]bool)
	doc.Find("a.iusc").Each(func(_ int, s *goquery.Selection) {
		raw, ok := s.Attr("m")
		if !ok {
			return
		}
		var meta bingMetadata
		if err := json.Unmarshal([]byte(raw), &meta); err != nil || meta.MediaURL == "" {
			return
		}
		if !seen[meta.MediaURL] {
			seen[meta.MediaURL] = true
			urls = append(urls, meta.MediaURL)
		}
	})

	if len(urls) == 0 {
		return nil, fmt.Errorf("bing returned no images for %q", query)
	}
	return urls, nil
}
