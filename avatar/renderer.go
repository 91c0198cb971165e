// Package avatar renders the lip-synced avatar video overlaid on a video.
// Renders are cached at the working directory's output_avatar.mp4 and
// serialized per directory.
package avatar

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"storyreel/config"
	"storyreel/media"
	"storyreel/workdir"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Options tunes a Renderer
type Options struct {
	// Timeout bounds the lip-sync render and the transcode together
	Timeout time.Duration
	// FaceRender is the renderer style passed to the lip-sync capability
	FaceRender string
}

// Renderer produces the avatar video for an assembly
type Renderer struct {
	lipsync    LipSync
	runner     media.Runner
	locker     Locker
	timeout    time.Duration
	faceRender string
}

// NewRenderer creates a Renderer. A nil locker falls back to an in-process KeyedMutex.
func NewRenderer(lipsync LipSync, runner media.Runner, locker Locker, opts Options) *Renderer {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	if opts.FaceRender == "" {
		opts.FaceRender = "pirender"
	}
	return &Renderer{
		lipsync:    lipsync,
		runner:     runner,
		locker:     locker,
		timeout:    opts.Timeout,
		faceRender: opts.FaceRender,
	}
}

// Render returns layout's avatar video, rendering it from image and audio when
// it is not cached yet. Errors are returned as is; callers decide whether a
// missing avatar is fatal.
func (r *Renderer) Render(ctx context.Context, image, audio string, layout workdir.Layout) (string, error) {
	out := layout.AvatarVideo()

	unlock, err := r.locker.Lock(ctx, "avatar:"+layout.Root())
	if err != nil {
		return "", err
	}
	defer unlock()

	if workdir.Exists(out) {
		log.Printf("Reusing cached avatar video %s", out)
		return out, nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	scratch := filepath.Join(layout.Root(), "avatar_render")
	defer os.RemoveAll(scratch)

	log.Printf("🎭 Rendering avatar for %s", layout.Root())
	raw, err := r.lipsync.Render(ctx, image, audio, scratch, r.faceRender)
	if err != nil {
		return "", fmt.Errorf("avatar render failed: %w", err)
	}

	// Transcode next to the target and rename so a partial file is never taken as cached
	partial := filepath.Join(layout.Root(), "output_avatar.partial.mp4")
	transcode := ffmpeg.Input(raw).Video().
		Output(partial, ffmpeg.KwArgs{"vcodec": config.AvatarCodec, "an": ""}).
		OverWriteOutput()
	if err := r.runner.Run(ctx, transcode); err != nil {
		os.Remove(partial)
		return "", fmt.Errorf("avatar transcode failed: %w", err)
	}
	if err := os.Rename(partial, out); err != nil {
		return "", fmt.Errorf("failed to store avatar video: %w", err)
	}

	log.Printf("✅ Avatar video ready: %s", out)
	return out, nil
}
