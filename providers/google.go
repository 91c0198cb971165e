package providers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// Google searches images through the Programmable Search (Custom Search) API
type Google struct {
	service *customsearch.Service
	cx      string
	client  *http.Client
}

// NewGoogle creates a Google provider for the search engine cx. Extra options are
// passed to the API client (endpoint overrides in tests).
func NewGoogle(ctx context.Context, apiKey, cx string, client *http.Client, opts ...option.ClientOption) (*Google, error) {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create custom search service: %w", err)
	}
	return &Google{service: svc, cx: cx, client: client}, nil
}

func (g *Google) Name() string { return ProviderGoogle }

// Acquire searches images for req.Query and downloads the first results
func (g *Google) Acquire(ctx context.Context, req Request) ([]string, error) {
	log.Printf("Downloading image from google: %q", req.Query)

	// Ask for a few spare results since some hosts refuse downloads.
	num := int64(amount(req) + 4)
	if num > 10 {
		num = 10
	}

	res, err := g.service.Cse.List().
		Q(req.Query).
		Cx(g.cx).
		SearchType("image").
		Num(num).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("google image search failed: %w", err)
	}

	urls := make([]string, 0, len(res.Items))
	for _, item := range res.Items {
		if item.Link != "" {
			urls = append(urls, item.Link)
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("google returned no images for %q", req.Query)
	}
	return collect(ctx, g.client, urls, req)
}
