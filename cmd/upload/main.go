package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"storyreel/config"
	"storyreel/publish"
)

func main() {
	videoPath := flag.String("video", "", "Path to the MP4 file to upload")
	title := flag.String("title", "", "Title for the YouTube video (defaults to filename)")
	description := flag.String("description", "", "Description to use (optional)")
	tagsFlag := flag.String("tags", "storyreel", "Comma-separated list of tags")
	categoryID := flag.String("category-id", config.YouTubeCategoryID, "YouTube category ID")
	privacy := flag.String("privacy", config.YouTubePrivacyStatus, "Privacy status (private, unlisted, public)")
	configFile := flag.String("config", "", "Path to a YAML config file (defaults to $STORYREEL_CONFIG)")
	flag.Parse()

	if *videoPath == "" {
		flag.Usage()
		log.Fatal("--video is required")
	}
	if err := ensureFileExists(*videoPath); err != nil {
		log.Fatalf("invalid video path: %v", err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.YouTube.ServiceAccountFile == "" {
		log.Fatal("YOUTUBE_SERVICE_ACCOUNT_FILE is not set")
	}

	titleVal := strings.TrimSpace(*title)
	if titleVal == "" {
		filename := filepath.Base(*videoPath)
		titleVal = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	ctx := context.Background()
	uploader, err := publish.NewYouTube(ctx, cfg.YouTube.ServiceAccountFile)
	if err != nil {
		log.Fatalf("failed to initialize uploader: %v", err)
	}

	videoID, err := uploader.Upload(ctx, *videoPath, publish.Metadata{
		Title:       titleVal,
		Description: strings.TrimSpace(*description),
		Tags:        parseTags(*tagsFlag),
		CategoryID:  *categoryID,
		Privacy:     *privacy,
	})
	if err != nil {
		log.Fatalf("upload failed: %v", err)
	}

	log.Printf("Uploaded successfully! https://youtube.com/watch?v=%s", videoID)
}

func ensureFileExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, expected file: %s", path)
	}
	return nil
}

func parseTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if clean := strings.TrimSpace(tag); clean != "" {
			tags = append(tags, clean)
		}
	}
	return tags
}
