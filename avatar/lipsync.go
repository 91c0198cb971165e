package avatar

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// LipSync renders a talking-head video from a still image and an audio track
type LipSync interface {
	Render(ctx context.Context, stillImage, audioTrack, outDir, style string) (string, error)
}

// CommandLipSync drives an external lip-sync renderer CLI
// (source image, driven audio, result dir, face renderer flags).
type CommandLipSync struct {
	Bin string
	// Args are passed before the generated flags, e.g. the inference script
	Args []string
}

func (c CommandLipSync) Render(ctx context.Context, stillImage, audioTrack, outDir, style string) (string, error) {
	if c.Bin == "" {
		return "", fmt.Errorf("lip-sync renderer is not configured")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", outDir, err)
	}

	args := append([]string{}, c.Args...)
	args = append(args,
		"--source_image", stillImage,
		"--driven_audio", audioTrack,
		"--result_dir", outDir,
		"--facerender", style,
	)

	started := time.Now()
	cmd := exec.CommandContext(ctx, c.Bin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("lip-sync render aborted: %w", ctx.Err())
		}
		msg := strings.TrimSpace(string(out))
		if len(msg) > 800 {
			msg = "..." + msg[len(msg)-800:]
		}
		return "", fmt.Errorf("lip-sync render failed: %w: %s", err, msg)
	}

	video, err := newestVideo(outDir, started)
	if err != nil {
		return "", err
	}
	return video, nil
}

// newestVideo finds the most recent mp4 under dir written after since
func newestVideo(dir string, since time.Time) (string, error) {
	var best string
	var bestTime time.Time
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".mp4") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().Before(since.Add(-time.Second)) {
			return nil
		}
		if best == "" || info.ModTime().After(bestTime) {
			best, bestTime = path, info.ModTime()
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	if best == "" {
		return "", fmt.Errorf("lip-sync renderer produced no video in %s", dir)
	}
	return best, nil
}
