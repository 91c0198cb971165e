package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DallE generates images with dall-e-3
type DallE struct {
	client openai.Client
	http   *http.Client
}

// NewDallE creates the generator. Extra options go to the OpenAI client.
func NewDallE(apiKey string, httpClient *http.Client, opts ...option.RequestOption) *DallE {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &DallE{
		client: openai.NewClient(opts...),
		http:   httpClient,
	}
}

func (d *DallE) Name() string { return ProviderDallE }

// Acquire generates one 1792x1024 image per call in the requested style (vivid or natural)
func (d *DallE) Acquire(ctx context.Context, req Request) ([]string, error) {
	log.Printf("⚠️  API CALL IN DALL-E for %q", req.Query)

	style := strings.ToLower(req.Style)
	if style != "natural" {
		style = "vivid"
	}

	resp, err := d.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         FormatPrompt(req.Title, req.Query),
		Model:          openai.ImageModelDallE3,
		Size:           openai.ImageGenerateParamsSize1792x1024,
		Quality:        openai.ImageGenerateParamsQualityStandard,
		Style:          openai.ImageGenerateParamsStyle(style),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
		N:              openai.Int(1),
	})
	if err != nil {
		return nil, fmt.Errorf("dall-e generation failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("dall-e returned no images")
	}

	img := resp.Data[0]
	if img.URL != "" {
		path, err := downloadImage(ctx, d.http, img.URL, req.OutputDir, req.NamePrefix)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}
	if img.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode dall-e image: %w", err)
		}
		path, err := writeImage(data, req.OutputDir, req.NamePrefix)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}
	return nil, fmt.Errorf("dall-e response carried neither url nor data")
}

// FormatPrompt builds the generation prompt from the video title and the scene's image description
func FormatPrompt(title, description string) string {
	description = strings.TrimSpace(description)
	title = strings.TrimSpace(title)
	if title == "" {
		return description
	}
	return fmt.Sprintf("%s. This image illustrates a scene of a video titled %q; do not render any text.", description, title)
}
