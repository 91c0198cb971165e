// Package publish uploads finished renders to YouTube.
package publish

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"storyreel/config"
	"storyreel/types"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Metadata describes an uploaded video
type Metadata struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
	Privacy     string
}

// YouTube uploads videos with a service account
type YouTube struct {
	service *youtube.Service
}

// NewYouTube authenticates with the service account JSON at serviceAccountFile.
// Extra options are passed to the API client.
func NewYouTube(ctx context.Context, serviceAccountFile string, opts ...option.ClientOption) (*YouTube, error) {
	data, err := os.ReadFile(serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read service account file: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(data, youtube.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account: %w", err)
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(jwt.Client(ctx))}, opts...)
	return NewYouTubeWithOptions(ctx, opts...)
}

// NewYouTubeWithOptions builds the client from explicit options
func NewYouTubeWithOptions(ctx context.Context, opts ...option.ClientOption) (*YouTube, error) {
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create YouTube service: %w", err)
	}
	return &YouTube{service: service}, nil
}

// Publish uploads the render of a and returns its watch URL
func (y *YouTube) Publish(ctx context.Context, a *types.Assembly, file string) (string, error) {
	id, err := y.Upload(ctx, file, MetadataFor(a))
	if err != nil {
		return "", err
	}
	return "https://www.youtube.com/watch?v=" + id, nil
}

// Upload sends videoPath and returns the new video id
func (y *YouTube) Upload(ctx context.Context, videoPath string, meta Metadata) (string, error) {
	file, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("failed to open video file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat video file: %w", err)
	}
	log.Printf("📤 Uploading: %s (%.2f MB)", videoPath, float64(info.Size())/(1024*1024))

	privacy := meta.Privacy
	if privacy == "" {
		privacy = config.YouTubePrivacyStatus
	}
	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  meta.CategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           privacy,
			SelfDeclaredMadeForKids: false,
		},
	}

	resp, err := y.service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(file).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload video: %w", err)
	}

	log.Printf("✅ Uploaded! https://www.youtube.com/watch?v=%s", resp.Id)
	return resp.Id, nil
}

// MetadataFor builds upload metadata from the assembly title and narration
func MetadataFor(a *types.Assembly) Metadata {
	title := strings.TrimSpace(a.Title)
	if title == "" {
		title = "Untitled"
	}
	if r := []rune(title); len(r) > 100 {
		title = string(r[:97]) + "..."
	}

	var lines []string
	for _, s := range a.Scenes {
		if t := strings.TrimSpace(s.Text); t != "" {
			lines = append(lines, t)
		}
	}
	description := strings.Join(lines, "\n")
	if r := []rune(description); len(r) > 4900 {
		description = string(r[:4900])
	}

	return Metadata{
		Title:       title,
		Description: description,
		Tags:        []string{strings.ToLower(string(a.Mode)), "storyreel"},
		CategoryID:  config.YouTubeCategoryID,
		Privacy:     config.YouTubePrivacyStatus,
	}
}
