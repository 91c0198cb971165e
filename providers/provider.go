// Package providers holds the visual asset acquisition capabilities and the
// registry that maps an acquisition mode to them.
package providers

import "context"

// Provider identifiers
const (
	ProviderDallE  = "dall-e"
	ProviderBing   = "bing"
	ProviderGoogle = "google"
)

// Request is one acquisition call
type Request struct {
	Query     string
	OutputDir string
	// NamePrefix keeps files from different scenes apart inside OutputDir
	NamePrefix string
	Amount     int
	Style      string
	Title      string
}

// VisualProvider acquires visual assets for a query and returns the local paths written
type VisualProvider interface {
	Name() string
	Acquire(ctx context.Context, req Request) ([]string, error)
}

func amount(req Request) int {
	if req.Amount < 1 {
		return 1
	}
	return req.Amount
}
